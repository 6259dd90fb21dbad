// Package events publishes clinic domain events to the message broker.
// Publishing is best-effort: a broker failure is logged, never returned,
// so a dropped event cannot fail the write that caused it.
package events

import (
	"context"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/messaging"
)

// eventPublisher is the slice of messaging.Publisher the clinic needs.
type eventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ClinicEventPublisher publishes clinic-related events
type ClinicEventPublisher struct {
	publisher eventPublisher
	logger    *logger.Logger
}

// NewClinicEventPublisher creates a publisher bound to the clinic
// events exchange.
func NewClinicEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*ClinicEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeClinicEvents, "practice-service", log)
	if err != nil {
		return nil, err
	}

	return &ClinicEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// NewWithPublisher wires an arbitrary publisher implementation. Tests
// pass a recording fake.
func NewWithPublisher(p eventPublisher, log *logger.Logger) *ClinicEventPublisher {
	return &ClinicEventPublisher{publisher: p, logger: log}
}

// PublishPatientCreated publishes a patient created event
func (p *ClinicEventPublisher) PublishPatientCreated(ctx context.Context, patient *storage.Patient) {
	data := messaging.PatientCreatedEvent{
		PatientID:      patient.ID,
		CompanyID:      patient.CompanyID,
		CustomerNumber: patient.CustomerNumber,
		Name:           patient.FirstName + " " + patient.LastName,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPatientCreated, data); err != nil {
		p.logger.Error().Err(err).Str("patient_id", patient.ID).Msg("failed to publish patient created event")
	}
}

// PublishPatientUpdated publishes a patient updated event
func (p *ClinicEventPublisher) PublishPatientUpdated(ctx context.Context, patient *storage.Patient) {
	data := messaging.PatientUpdatedEvent{
		PatientID: patient.ID,
		CompanyID: patient.CompanyID,
		Fields:    map[string]any{"name": patient.FirstName + " " + patient.LastName},
	}

	if err := p.publisher.Publish(ctx, messaging.EventPatientUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("patient_id", patient.ID).Msg("failed to publish patient updated event")
	}
}

// PublishPatientDeleted publishes a patient deleted event
func (p *ClinicEventPublisher) PublishPatientDeleted(ctx context.Context, patientID, companyID string) {
	data := messaging.PatientDeletedEvent{
		PatientID: patientID,
		CompanyID: companyID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPatientDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("patient_id", patientID).Msg("failed to publish patient deleted event")
	}
}

// PublishOrderCreated publishes an order created event
func (p *ClinicEventPublisher) PublishOrderCreated(ctx context.Context, order *storage.Order) {
	data := messaging.OrderCreatedEvent{
		OrderID:     order.ID,
		CompanyID:   order.CompanyID,
		OrderNumber: order.OrderNumber,
		PatientID:   order.PatientID,
		EcpID:       order.EcpID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderCreated, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order created event")
	}
}

// PublishOrderStatusChanged publishes an order status transition event
func (p *ClinicEventPublisher) PublishOrderStatusChanged(ctx context.Context, order *storage.Order, oldStatus string) {
	data := messaging.OrderStatusChangedEvent{
		OrderID:   order.ID,
		CompanyID: order.CompanyID,
		OldStatus: oldStatus,
		NewStatus: order.Status,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order status changed event")
	}
}

// PublishOrderShipped publishes an order shipped event
func (p *ClinicEventPublisher) PublishOrderShipped(ctx context.Context, order *storage.Order) {
	tracking := ""
	if order.TrackingNumber != nil {
		tracking = *order.TrackingNumber
	}
	data := messaging.OrderShippedEvent{
		OrderID:        order.ID,
		CompanyID:      order.CompanyID,
		OrderNumber:    order.OrderNumber,
		TrackingNumber: tracking,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderShipped, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order shipped event")
	}
}

// PublishInvoiceCreated publishes an invoice created event
func (p *ClinicEventPublisher) PublishInvoiceCreated(ctx context.Context, invoice *storage.Invoice) {
	data := messaging.InvoiceCreatedEvent{
		InvoiceID:     invoice.ID,
		CompanyID:     invoice.CompanyID,
		InvoiceNumber: invoice.InvoiceNumber,
		TotalCents:    invoice.TotalCents,
	}

	if err := p.publisher.Publish(ctx, messaging.EventInvoiceCreated, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("failed to publish invoice created event")
	}
}

// PublishInvoicePaid publishes an invoice paid event
func (p *ClinicEventPublisher) PublishInvoicePaid(ctx context.Context, invoice *storage.Invoice) {
	data := messaging.InvoicePaidEvent{
		InvoiceID:       invoice.ID,
		CompanyID:       invoice.CompanyID,
		InvoiceNumber:   invoice.InvoiceNumber,
		AmountPaidCents: invoice.AmountPaidCents,
	}

	if err := p.publisher.Publish(ctx, messaging.EventInvoicePaid, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("failed to publish invoice paid event")
	}
}

// PublishInvoiceVoided publishes an invoice voided event
func (p *ClinicEventPublisher) PublishInvoiceVoided(ctx context.Context, invoice *storage.Invoice) {
	data := messaging.InvoiceVoidedEvent{
		InvoiceID: invoice.ID,
		CompanyID: invoice.CompanyID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventInvoiceVoided, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("failed to publish invoice voided event")
	}
}

// PublishPrescriptionSigned publishes a prescription signed event
func (p *ClinicEventPublisher) PublishPrescriptionSigned(ctx context.Context, rx *storage.Prescription) {
	signedBy := ""
	if rx.SignedByEcpID != nil {
		signedBy = *rx.SignedByEcpID
	}
	data := messaging.PrescriptionSignedEvent{
		PrescriptionID: rx.ID,
		CompanyID:      rx.CompanyID,
		SignedByEcpID:  signedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPrescriptionSigned, data); err != nil {
		p.logger.Error().Err(err).Str("prescription_id", rx.ID).Msg("failed to publish prescription signed event")
	}
}

// PublishUserCreated publishes a user created event
func (p *ClinicEventPublisher) PublishUserCreated(ctx context.Context, user *storage.User) {
	data := messaging.UserCreatedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}
	if user.CompanyID != nil {
		data.CompanyID = *user.CompanyID
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserCreated, data); err != nil {
		p.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to publish user created event")
	}
}

// PublishUserRoleChanged publishes a role switch event
func (p *ClinicEventPublisher) PublishUserRoleChanged(ctx context.Context, user *storage.User, oldRole string) {
	data := messaging.UserRoleChangedEvent{
		UserID:  user.ID,
		OldRole: oldRole,
		NewRole: user.Role,
	}
	if user.CompanyID != nil {
		data.CompanyID = *user.CompanyID
	}

	if err := p.publisher.Publish(ctx, messaging.EventUserRoleChanged, data); err != nil {
		p.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to publish user role changed event")
	}
}
