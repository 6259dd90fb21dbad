package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
)

// Invoice statuses
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

// Invoice represents a bill issued by a company. Amounts are integer
// cents so payment arithmetic is exact.
type Invoice struct {
	ID              string    `db:"id" json:"id"`
	CompanyID       string    `db:"company_id" json:"company_id"`
	EcpID           string    `db:"ecp_id" json:"ecp_id"`
	PatientID       *string   `db:"patient_id" json:"patient_id,omitempty"`
	InvoiceNumber   string    `db:"invoice_number" json:"invoice_number"`
	Status          string    `db:"status" json:"status"` // draft, paid, void
	TotalCents      int64     `db:"total_cents" json:"total_cents"`
	AmountPaidCents int64     `db:"amount_paid_cents" json:"amount_paid_cents"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// InvoiceLineItem is a single line of an invoice. Line items are scoped
// through their parent invoice, not directly by company.
type InvoiceLineItem struct {
	ID             string `db:"id" json:"id"`
	InvoiceID      string `db:"invoice_id" json:"invoice_id"`
	Description    string `db:"description" json:"description"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
	TotalCents     int64  `db:"total_cents" json:"total_cents"`
}

// InvoiceWithDetails joins an invoice with its line items and, when the
// invoice names a patient, a narrow patient projection.
type InvoiceWithDetails struct {
	Invoice
	Patient   *PatientSummary    `json:"patient,omitempty"`
	LineItems []*InvoiceLineItem `json:"line_items"`
}

// InvoiceFilter narrows ListInvoices. Absent fields emit no predicate.
type InvoiceFilter struct {
	Status    *string
	PatientID *string
	Search    *string // invoice number substring
	ListOptions
}

const invoiceColumns = `id, company_id, ecp_id, patient_id, invoice_number, status, total_cents, amount_paid_cents, created_at, updated_at`

// CreateInvoice inserts the invoice and all of its line items as one
// transaction. If any insert fails everything rolls back, so a parent
// invoice can never survive without its lines. The invoice total is
// derived from the line items.
func (s *Store) CreateInvoice(ctx context.Context, invoice *Invoice, items []*InvoiceLineItem) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.InvoiceNumber == "" {
		invoice.InvoiceNumber = invoiceNumber(time.Now())
	}
	if invoice.Status == "" {
		invoice.Status = InvoiceStatusDraft
	}

	invoice.TotalCents = 0
	for _, item := range items {
		item.TotalCents = int64(item.Quantity) * item.UnitPriceCents
		invoice.TotalCents += item.TotalCents
	}

	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO invoices (id, company_id, ecp_id, patient_id, invoice_number, status, total_cents, amount_paid_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
			RETURNING created_at, updated_at
		`
		err := s.db.QueryRowxContext(ctx, query,
			invoice.ID, invoice.CompanyID, invoice.EcpID, invoice.PatientID,
			invoice.InvoiceNumber, invoice.Status, invoice.TotalCents,
		).Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
		if err != nil {
			return err
		}

		itemQuery := `
			INSERT INTO invoice_line_items (id, invoice_id, description, quantity, unit_price_cents, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.InvoiceID = invoice.ID

			if _, err := s.db.ExecContext(ctx, itemQuery,
				item.ID, item.InvoiceID, item.Description,
				item.Quantity, item.UnitPriceCents, item.TotalCents,
			); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetInvoice gets an invoice by ID within the calling company.
func (s *Store) GetInvoice(ctx context.Context, id, companyID string) (*Invoice, error) {
	var invoice Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &invoice, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

// GetInvoiceWithDetails gets an invoice plus its line items and, when
// the invoice names a patient, the narrow patient projection.
func (s *Store) GetInvoiceWithDetails(ctx context.Context, id, companyID string) (*InvoiceWithDetails, error) {
	invoice, err := s.GetInvoice(ctx, id, companyID)
	if err != nil {
		return nil, err
	}

	details := &InvoiceWithDetails{Invoice: *invoice}

	itemQuery := `
		SELECT id, invoice_id, description, quantity, unit_price_cents, total_cents
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY id
	`
	if err := s.db.SelectContext(ctx, &details.LineItems, itemQuery, invoice.ID); err != nil {
		return nil, err
	}
	if details.LineItems == nil {
		details.LineItems = []*InvoiceLineItem{}
	}

	if invoice.PatientID != nil {
		var patient PatientSummary
		patientQuery := `SELECT id, first_name, last_name, customer_number FROM patients WHERE id = $1 AND company_id = $2`
		err := s.db.GetContext(ctx, &patient, patientQuery, *invoice.PatientID, companyID)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if err == nil {
			details.Patient = &patient
		}
	}

	return details, nil
}

// ListInvoices lists invoices in the company, newest first.
func (s *Store) ListInvoices(ctx context.Context, companyID string, filter InvoiceFilter) ([]*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, argIdx)
		args = append(args, *filter.PatientID)
		argIdx++
	}
	if filter.Search != nil {
		query += fmt.Sprintf(` AND invoice_number ILIKE $%d`, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	limit, offset := filter.limits()
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var invoices []*Invoice
	if err := s.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, err
	}

	return invoices, nil
}

// RecordPayment adds a payment to an invoice as a single atomic
// increment. The status flips to paid exactly when the accumulated
// amount reaches the total; two concurrent payments can never lose an
// update because the increment happens in the database.
func (s *Store) RecordPayment(ctx context.Context, id, companyID string, amountCents int64) (*Invoice, error) {
	if amountCents <= 0 {
		return nil, errors.BadRequest("payment amount must be greater than zero")
	}

	query := `
		UPDATE invoices
		SET amount_paid_cents = amount_paid_cents + $3,
		    status = CASE WHEN amount_paid_cents + $3 >= total_cents THEN 'paid' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status != 'void'
		RETURNING ` + invoiceColumns

	var invoice Invoice
	err := s.db.GetContext(ctx, &invoice, query, id, companyID, amountCents)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

// VoidInvoice marks a draft invoice void. Paid invoices cannot be voided.
func (s *Store) VoidInvoice(ctx context.Context, id, companyID string) (*Invoice, error) {
	query := `
		UPDATE invoices SET status = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $4
		RETURNING ` + invoiceColumns

	var invoice Invoice
	err := s.db.GetContext(ctx, &invoice, query, id, companyID, InvoiceStatusVoid, InvoiceStatusDraft)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}
