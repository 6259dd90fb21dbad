package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/messaging"
)

type stubInvoiceStore struct {
	createInvoice         func(ctx context.Context, invoice *storage.Invoice, items []*storage.InvoiceLineItem) error
	getInvoice            func(ctx context.Context, id, companyID string) (*storage.Invoice, error)
	getInvoiceWithDetails func(ctx context.Context, id, companyID string) (*storage.InvoiceWithDetails, error)
	listInvoices          func(ctx context.Context, companyID string, filter storage.InvoiceFilter) ([]*storage.Invoice, error)
	recordPayment         func(ctx context.Context, id, companyID string, amountCents int64) (*storage.Invoice, error)
	voidInvoice           func(ctx context.Context, id, companyID string) (*storage.Invoice, error)
}

func (s *stubInvoiceStore) CreateInvoice(ctx context.Context, invoice *storage.Invoice, items []*storage.InvoiceLineItem) error {
	return s.createInvoice(ctx, invoice, items)
}

func (s *stubInvoiceStore) GetInvoice(ctx context.Context, id, companyID string) (*storage.Invoice, error) {
	return s.getInvoice(ctx, id, companyID)
}

func (s *stubInvoiceStore) GetInvoiceWithDetails(ctx context.Context, id, companyID string) (*storage.InvoiceWithDetails, error) {
	return s.getInvoiceWithDetails(ctx, id, companyID)
}

func (s *stubInvoiceStore) ListInvoices(ctx context.Context, companyID string, filter storage.InvoiceFilter) ([]*storage.Invoice, error) {
	return s.listInvoices(ctx, companyID, filter)
}

func (s *stubInvoiceStore) RecordPayment(ctx context.Context, id, companyID string, amountCents int64) (*storage.Invoice, error) {
	return s.recordPayment(ctx, id, companyID, amountCents)
}

func (s *stubInvoiceStore) VoidInvoice(ctx context.Context, id, companyID string) (*storage.Invoice, error) {
	return s.voidInvoice(ctx, id, companyID)
}

func TestInvoiceCreate_PassesItemsThroughAndPublishes(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	var gotItems []*storage.InvoiceLineItem
	store := &stubInvoiceStore{
		createInvoice: func(ctx context.Context, invoice *storage.Invoice, items []*storage.InvoiceLineItem) error {
			gotItems = items
			invoice.ID = uuid.New().String()
			invoice.InvoiceNumber = "INV-2026-000001"
			invoice.TotalCents = 12000
			return nil
		},
	}
	svc := NewInvoiceService(store, publisher, logger.Nop())

	invoice, err := svc.Create(context.Background(), "company-1", CreateInvoiceRequest{
		EcpID: uuid.New().String(),
		LineItems: []InvoiceLineItemRequest{
			{Description: "Lenses", Quantity: 2, UnitPriceCents: 4500},
			{Description: "Fitting", Quantity: 1, UnitPriceCents: 3000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "company-1", invoice.CompanyID)
	require.Len(t, gotItems, 2)
	assert.Equal(t, "Lenses", gotItems[0].Description)
	assert.Equal(t, []string{messaging.EventInvoiceCreated}, mock.EventTypes())
}

func TestInvoiceCreate_RequiresAtLeastOneLineItem(t *testing.T) {
	publisher, mock := newRecordedPublisher()
	svc := NewInvoiceService(&stubInvoiceStore{}, publisher, logger.Nop())

	invoice, err := svc.Create(context.Background(), "company-1", CreateInvoiceRequest{
		EcpID: uuid.New().String(),
	})
	assert.Nil(t, invoice)
	assert.Error(t, err)
	assert.Empty(t, mock.EventTypes())
}

func TestInvoiceRecordPayment_PaidEventOnlyOnSettlement(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	paidInFull := false
	store := &stubInvoiceStore{
		recordPayment: func(ctx context.Context, id, companyID string, amountCents int64) (*storage.Invoice, error) {
			status := storage.InvoiceStatusDraft
			if paidInFull {
				status = storage.InvoiceStatusPaid
			}
			return &storage.Invoice{ID: id, CompanyID: companyID, Status: status}, nil
		},
	}
	svc := NewInvoiceService(store, publisher, logger.Nop())

	// Partial payment publishes nothing.
	_, err := svc.RecordPayment(context.Background(), "invoice-1", "company-1", 5000)
	require.NoError(t, err)
	assert.Empty(t, mock.EventTypes())

	// The settling payment fires the paid event.
	paidInFull = true
	_, err = svc.RecordPayment(context.Background(), "invoice-1", "company-1", 7000)
	require.NoError(t, err)
	assert.Equal(t, []string{messaging.EventInvoicePaid}, mock.EventTypes())
}

func TestInvoiceVoid_PropagatesNotFound(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	store := &stubInvoiceStore{
		voidInvoice: func(ctx context.Context, id, companyID string) (*storage.Invoice, error) {
			return nil, errors.NotFound("invoice")
		},
	}
	svc := NewInvoiceService(store, publisher, logger.Nop())

	invoice, err := svc.Void(context.Background(), "invoice-1", "company-1")
	assert.Nil(t, invoice)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, mock.EventTypes())
}
