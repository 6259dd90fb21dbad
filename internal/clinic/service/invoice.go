package service

import (
	"context"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// invoiceStore is the slice of storage the invoice service uses.
type invoiceStore interface {
	CreateInvoice(ctx context.Context, invoice *storage.Invoice, items []*storage.InvoiceLineItem) error
	GetInvoice(ctx context.Context, id, companyID string) (*storage.Invoice, error)
	GetInvoiceWithDetails(ctx context.Context, id, companyID string) (*storage.InvoiceWithDetails, error)
	ListInvoices(ctx context.Context, companyID string, filter storage.InvoiceFilter) ([]*storage.Invoice, error)
	RecordPayment(ctx context.Context, id, companyID string, amountCents int64) (*storage.Invoice, error)
	VoidInvoice(ctx context.Context, id, companyID string) (*storage.Invoice, error)
}

// InvoiceService handles invoicing business logic
type InvoiceService struct {
	store     invoiceStore
	publisher *events.ClinicEventPublisher
	logger    *logger.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(store invoiceStore, publisher *events.ClinicEventPublisher, log *logger.Logger) *InvoiceService {
	return &InvoiceService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// InvoiceLineItemRequest is one line on a new invoice
type InvoiceLineItemRequest struct {
	Description    string `json:"description" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"required,gt=0"`
}

// CreateInvoiceRequest carries the fields to issue an invoice
type CreateInvoiceRequest struct {
	EcpID     string                   `json:"ecp_id" validate:"required,uuid"`
	PatientID *string                  `json:"patient_id,omitempty" validate:"omitempty,uuid"`
	LineItems []InvoiceLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// Create issues an invoice. The invoice and all line items are written
// in one transaction; the total is derived from the items.
func (s *InvoiceService) Create(ctx context.Context, companyID string, req CreateInvoiceRequest) (*storage.Invoice, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	invoice := &storage.Invoice{
		CompanyID: companyID,
		EcpID:     req.EcpID,
		PatientID: req.PatientID,
	}

	items := make([]*storage.InvoiceLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, &storage.InvoiceLineItem{
			Description:    li.Description,
			Quantity:       li.Quantity,
			UnitPriceCents: li.UnitPriceCents,
		})
	}

	if err := s.store.CreateInvoice(ctx, invoice, items); err != nil {
		return nil, err
	}

	s.publisher.PublishInvoiceCreated(ctx, invoice)

	s.logger.Info().
		Str("invoice_id", invoice.ID).
		Str("invoice_number", invoice.InvoiceNumber).
		Int64("total_cents", invoice.TotalCents).
		Msg("invoice created")

	return invoice, nil
}

// Get gets an invoice by ID
func (s *InvoiceService) Get(ctx context.Context, id, companyID string) (*storage.Invoice, error) {
	return s.store.GetInvoice(ctx, id, companyID)
}

// GetWithDetails gets an invoice with line items and patient summary
func (s *InvoiceService) GetWithDetails(ctx context.Context, id, companyID string) (*storage.InvoiceWithDetails, error) {
	return s.store.GetInvoiceWithDetails(ctx, id, companyID)
}

// List lists invoices with filters
func (s *InvoiceService) List(ctx context.Context, companyID string, filter storage.InvoiceFilter) ([]*storage.Invoice, error) {
	return s.store.ListInvoices(ctx, companyID, filter)
}

// RecordPayment applies a payment. The paid event fires only when the
// payment settles the invoice in full.
func (s *InvoiceService) RecordPayment(ctx context.Context, id, companyID string, amountCents int64) (*storage.Invoice, error) {
	invoice, err := s.store.RecordPayment(ctx, id, companyID, amountCents)
	if err != nil {
		return nil, err
	}

	if invoice.Status == storage.InvoiceStatusPaid {
		s.publisher.PublishInvoicePaid(ctx, invoice)
	}

	s.logger.Info().
		Str("invoice_id", invoice.ID).
		Int64("amount_cents", amountCents).
		Str("status", invoice.Status).
		Msg("payment recorded")

	return invoice, nil
}

// Void voids a draft invoice
func (s *InvoiceService) Void(ctx context.Context, id, companyID string) (*storage.Invoice, error) {
	invoice, err := s.store.VoidInvoice(ctx, id, companyID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishInvoiceVoided(ctx, invoice)

	return invoice, nil
}
