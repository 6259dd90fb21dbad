package storage_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

var invoiceColumns = []string{
	"id", "company_id", "ecp_id", "patient_id", "invoice_number", "status",
	"total_cents", "amount_paid_cents", "created_at", "updated_at",
}

func invoiceRow(id, status string, totalCents, paidCents int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(invoiceColumns).
		AddRow(id, "company-1", "ecp-1", nil, "INV-2026-000001", status, totalCents, paidCents, now, now)
}

func TestCreateInvoice_WritesInvoiceAndItemsInOneTransaction(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	now := time.Now()
	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery(`INSERT INTO invoices`).
		WithArgs(testutil.AnyUUID{}, "company-1", "ecp-1", nil, sqlmock.AnyArg(), "draft", int64(12000)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mockDB.Mock.ExpectExec(`INSERT INTO invoice_line_items`).
		WithArgs(testutil.AnyUUID{}, testutil.AnyUUID{}, "Single vision lenses", 2, int64(4500), int64(9000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`INSERT INTO invoice_line_items`).
		WithArgs(testutil.AnyUUID{}, testutil.AnyUUID{}, "Fitting", 1, int64(3000), int64(3000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	invoice := &storage.Invoice{
		CompanyID: "company-1",
		EcpID:     "ecp-1",
	}
	items := []*storage.InvoiceLineItem{
		{Description: "Single vision lenses", Quantity: 2, UnitPriceCents: 4500},
		{Description: "Fitting", Quantity: 1, UnitPriceCents: 3000},
	}

	err := store.CreateInvoice(ctx, invoice, items)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), invoice.TotalCents)
	assert.Equal(t, invoice.ID, items[0].InvoiceID)

	mockDB.ExpectationsWereMet(t)
}

func TestCreateInvoice_RollsBackWhenAnItemFails(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	now := time.Now()
	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery(`INSERT INTO invoices`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mockDB.Mock.ExpectExec(`INSERT INTO invoice_line_items`).
		WillReturnError(fmt.Errorf("connection reset"))
	mockDB.ExpectRollback()

	invoice := &storage.Invoice{CompanyID: "company-1", EcpID: "ecp-1"}
	items := []*storage.InvoiceLineItem{
		{Description: "Frames", Quantity: 1, UnitPriceCents: 15000},
	}

	err := store.CreateInvoice(ctx, invoice, items)
	assert.Error(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestRecordPayment_RejectsNonPositiveAmounts(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -500} {
		invoice, err := store.RecordPayment(ctx, "invoice-1", "company-1", amount)
		assert.Nil(t, invoice)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))
	}

	mockDB.ExpectationsWereMet(t)
}

func TestRecordPayment_IncrementsAtomically(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`UPDATE invoices SET amount_paid_cents = amount_paid_cents \+ \$3`).
		WithArgs("invoice-1", "company-1", int64(5000)).
		WillReturnRows(invoiceRow("invoice-1", "draft", 12000, 5000))

	invoice, err := store.RecordPayment(ctx, "invoice-1", "company-1", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), invoice.AmountPaidCents)
	assert.Equal(t, "draft", invoice.Status)

	mockDB.ExpectationsWereMet(t)
}

func TestRecordPayment_FlipsStatusWhenSettled(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`UPDATE invoices SET amount_paid_cents = amount_paid_cents \+ \$3`).
		WithArgs("invoice-1", "company-1", int64(7000)).
		WillReturnRows(invoiceRow("invoice-1", "paid", 12000, 12000))

	invoice, err := store.RecordPayment(ctx, "invoice-1", "company-1", 7000)
	require.NoError(t, err)
	assert.Equal(t, storage.InvoiceStatusPaid, invoice.Status)

	mockDB.ExpectationsWereMet(t)
}

func TestRecordPayment_VoidedInvoiceReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	// The predicate excludes void invoices, so the update matches nothing.
	mockDB.Mock.ExpectQuery(`UPDATE invoices SET amount_paid_cents = amount_paid_cents \+ \$3`).
		WithArgs("invoice-1", "company-1", int64(1000)).
		WillReturnError(sql.ErrNoRows)

	invoice, err := store.RecordPayment(ctx, "invoice-1", "company-1", 1000)
	assert.Nil(t, invoice)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestVoidInvoice_OnlyDraftsMatch(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`UPDATE invoices SET status = \$3, updated_at = NOW\(\) WHERE id = \$1 AND company_id = \$2 AND status = \$4`).
		WithArgs("invoice-1", "company-1", "void", "draft").
		WillReturnError(sql.ErrNoRows)

	invoice, err := store.VoidInvoice(ctx, "invoice-1", "company-1")
	assert.Nil(t, invoice)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
