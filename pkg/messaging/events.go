package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Patient events
	EventPatientCreated = "patient.created"
	EventPatientUpdated = "patient.updated"
	EventPatientDeleted = "patient.deleted"

	// Order events
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status.changed"
	EventOrderShipped       = "order.shipped"
	EventOrderSentToLab     = "order.sent_to_lab"

	// Invoice events
	EventInvoiceCreated = "invoice.created"
	EventInvoicePaid    = "invoice.paid"
	EventInvoiceVoided  = "invoice.voided"

	// Prescription events
	EventPrescriptionSigned = "prescription.signed"

	// User events
	EventUserCreated     = "user.created"
	EventUserRoleChanged = "user.role.changed"
)

// Exchange names
const (
	ExchangeClinicEvents = "clinic.events"
)

// PatientCreatedEvent is published when a patient is registered
type PatientCreatedEvent struct {
	PatientID      string `json:"patient_id"`
	CompanyID      string `json:"company_id"`
	CustomerNumber string `json:"customer_number"`
	Name           string `json:"name"`
}

// PatientUpdatedEvent is published when patient details change
type PatientUpdatedEvent struct {
	PatientID string         `json:"patient_id"`
	CompanyID string         `json:"company_id"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// PatientDeletedEvent is published when a patient is removed
type PatientDeletedEvent struct {
	PatientID string `json:"patient_id"`
	CompanyID string `json:"company_id"`
}

// OrderCreatedEvent is published when a lab order is placed
type OrderCreatedEvent struct {
	OrderID     string `json:"order_id"`
	CompanyID   string `json:"company_id"`
	OrderNumber string `json:"order_number"`
	PatientID   string `json:"patient_id"`
	EcpID       string `json:"ecp_id"`
}

// OrderStatusChangedEvent is published on any order status transition
type OrderStatusChangedEvent struct {
	OrderID   string `json:"order_id"`
	CompanyID string `json:"company_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// OrderShippedEvent is published when an order ships
type OrderShippedEvent struct {
	OrderID        string `json:"order_id"`
	CompanyID      string `json:"company_id"`
	OrderNumber    string `json:"order_number"`
	TrackingNumber string `json:"tracking_number"`
}

// InvoiceCreatedEvent is published when an invoice is issued
type InvoiceCreatedEvent struct {
	InvoiceID     string `json:"invoice_id"`
	CompanyID     string `json:"company_id"`
	InvoiceNumber string `json:"invoice_number"`
	TotalCents    int64  `json:"total_cents"`
}

// InvoicePaidEvent is published when an invoice becomes fully paid
type InvoicePaidEvent struct {
	InvoiceID       string `json:"invoice_id"`
	CompanyID       string `json:"company_id"`
	InvoiceNumber   string `json:"invoice_number"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
}

// InvoiceVoidedEvent is published when an invoice is voided
type InvoiceVoidedEvent struct {
	InvoiceID string `json:"invoice_id"`
	CompanyID string `json:"company_id"`
}

// PrescriptionSignedEvent is published when an ECP signs a prescription
type PrescriptionSignedEvent struct {
	PrescriptionID string `json:"prescription_id"`
	CompanyID      string `json:"company_id"`
	SignedByEcpID  string `json:"signed_by_ecp_id"`
}

// UserCreatedEvent is published when an account is provisioned
type UserCreatedEvent struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// UserRoleChangedEvent is published when a user switches active role
type UserRoleChangedEvent struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id,omitempty"`
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
}

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	CompanyID     string          `json:"company_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}
