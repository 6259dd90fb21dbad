package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
)

// Order statuses. The normal path is pending → in_production →
// quality_check → shipped → completed; on_hold and cancelled are
// side-transitions.
const (
	OrderStatusPending      = "pending"
	OrderStatusInProduction = "in_production"
	OrderStatusQualityCheck = "quality_check"
	OrderStatusShipped      = "shipped"
	OrderStatusCompleted    = "completed"
	OrderStatusOnHold       = "on_hold"
	OrderStatusCancelled    = "cancelled"
)

var orderStatuses = []string{
	OrderStatusPending,
	OrderStatusInProduction,
	OrderStatusQualityCheck,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusOnHold,
	OrderStatusCancelled,
}

// ValidOrderStatus reports whether the given status is recognized.
func ValidOrderStatus(status string) bool {
	for _, s := range orderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order represents a lab order for a patient. Lab-side fields (JobID,
// JobStatus, SentToLabAt, PDFURL) are written only through the internal
// accessors used by background workers.
type Order struct {
	ID             string     `db:"id" json:"id"`
	CompanyID      string     `db:"company_id" json:"company_id"`
	PatientID      string     `db:"patient_id" json:"patient_id"`
	EcpID          string     `db:"ecp_id" json:"ecp_id"`
	OrderNumber    string     `db:"order_number" json:"order_number"`
	Status         string     `db:"status" json:"status"`
	PrescriptionID *string    `db:"prescription_id" json:"prescription_id,omitempty"`
	LensType       *string    `db:"lens_type" json:"lens_type,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	JobID          *string    `db:"job_id" json:"job_id,omitempty"`
	JobStatus      *string    `db:"job_status" json:"job_status,omitempty"`
	SentToLabAt    *time.Time `db:"sent_to_lab_at" json:"sent_to_lab_at,omitempty"`
	PDFURL         *string    `db:"pdf_url" json:"pdf_url,omitempty"`
	TrackingNumber *string    `db:"tracking_number" json:"tracking_number,omitempty"`
	ShippedAt      *time.Time `db:"shipped_at" json:"shipped_at,omitempty"`
	TotalCents     int64      `db:"total_cents" json:"total_cents"`
	OrderDate      time.Time  `db:"order_date" json:"order_date"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PatientSummary is the narrow patient projection used by with-details
// reads. Never widen this: related records must not leak full PII.
type PatientSummary struct {
	ID             string `db:"id" json:"id"`
	FirstName      string `db:"first_name" json:"first_name"`
	LastName       string `db:"last_name" json:"last_name"`
	CustomerNumber string `db:"customer_number" json:"customer_number"`
}

// UserSummary is the narrow user projection used by with-details reads.
type UserSummary struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Role      string `db:"role" json:"role"`
}

// OrderWithDetails is an order joined with narrow projections of its
// patient and ordering ECP, so route handlers need a single call.
type OrderWithDetails struct {
	Order
	Patient PatientSummary `db:"patient" json:"patient"`
	Ecp     UserSummary    `db:"ecp" json:"ecp"`
}

// OrderFilter narrows ListOrders. Absent fields emit no predicate.
type OrderFilter struct {
	PatientID *string
	EcpID     *string
	Status    *string
	Search    *string // order number substring
	From      *time.Time
	To        *time.Time
	ListOptions
}

// OrderPatch is a partial update for the scoped order fields.
// Lab fields are updated only through the internal accessors.
type OrderPatch struct {
	Status         *string `json:"status,omitempty"`
	PrescriptionID *string `json:"prescription_id,omitempty"`
	LensType       *string `json:"lens_type,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	TotalCents     *int64  `json:"total_cents,omitempty"`
}

const orderColumns = `id, company_id, patient_id, ecp_id, order_number, status, prescription_id, lens_type, notes,
	       job_id, job_status, sent_to_lab_at, pdf_url, tracking_number, shipped_at, total_cents, order_date, created_at, updated_at`

// CreateOrder creates an order with a generated order number. A number
// collision (same millisecond window) surfaces as Conflict; callers retry.
func (s *Store) CreateOrder(ctx context.Context, order *Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = orderNumber(time.Now())
	}
	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now().UTC()
	}

	query := `
		INSERT INTO orders (id, company_id, patient_id, ecp_id, order_number, status, prescription_id, lens_type, notes, total_cents, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		order.ID, order.CompanyID, order.PatientID, order.EcpID,
		order.OrderNumber, order.Status, order.PrescriptionID,
		order.LensType, order.Notes, order.TotalCents, order.OrderDate,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetOrder gets an order by ID within the calling company.
func (s *Store) GetOrder(ctx context.Context, id, companyID string) (*Order, error) {
	var order Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &order, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetOrderWithDetails gets an order joined with its patient and ECP.
// The join carries the company predicate on the order row; related rows
// are reached only through the order's own foreign keys, so nothing can
// cross the tenant boundary.
func (s *Store) GetOrderWithDetails(ctx context.Context, id, companyID string) (*OrderWithDetails, error) {
	var row OrderWithDetails
	query := `
		SELECT o.id, o.company_id, o.patient_id, o.ecp_id, o.order_number, o.status, o.prescription_id,
		       o.lens_type, o.notes, o.job_id, o.job_status, o.sent_to_lab_at, o.pdf_url,
		       o.tracking_number, o.shipped_at, o.total_cents, o.order_date, o.created_at, o.updated_at,
		       p.id AS "patient.id", p.first_name AS "patient.first_name",
		       p.last_name AS "patient.last_name", p.customer_number AS "patient.customer_number",
		       u.id AS "ecp.id", u.first_name AS "ecp.first_name",
		       u.last_name AS "ecp.last_name", u.role AS "ecp.role"
		FROM orders o
		JOIN patients p ON p.id = o.patient_id
		JOIN users u ON u.id = o.ecp_id
		WHERE o.id = $1 AND o.company_id = $2
	`

	err := s.db.GetContext(ctx, &row, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// ListOrders lists orders in the company, most recent order date first.
// Every filter composes conjunctively; omitting one widens the result.
func (s *Store) ListOrders(ctx context.Context, companyID string, filter OrderFilter) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, argIdx)
		args = append(args, *filter.PatientID)
		argIdx++
	}
	if filter.EcpID != nil {
		query += fmt.Sprintf(` AND ecp_id = $%d`, argIdx)
		args = append(args, *filter.EcpID)
		argIdx++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Search != nil {
		query += fmt.Sprintf(` AND order_number ILIKE $%d`, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}
	if filter.From != nil {
		query += fmt.Sprintf(` AND order_date >= $%d`, argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(` AND order_date <= $%d`, argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	limit, offset := filter.limits()
	query += fmt.Sprintf(` ORDER BY order_date DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var orders []*Order
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateOrder applies a partial update to an order in the calling company.
func (s *Store) UpdateOrder(ctx context.Context, id, companyID string, patch OrderPatch) (*Order, error) {
	if patch.Status != nil && !ValidOrderStatus(*patch.Status) {
		return nil, errors.BadRequest("unknown order status: " + *patch.Status)
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, companyID}
	argIdx := 3

	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *patch.Status)
		argIdx++
	}
	if patch.PrescriptionID != nil {
		sets = append(sets, fmt.Sprintf("prescription_id = $%d", argIdx))
		args = append(args, *patch.PrescriptionID)
		argIdx++
	}
	if patch.LensType != nil {
		sets = append(sets, fmt.Sprintf("lens_type = $%d", argIdx))
		args = append(args, *patch.LensType)
		argIdx++
	}
	if patch.Notes != nil {
		sets = append(sets, fmt.Sprintf("notes = $%d", argIdx))
		args = append(args, *patch.Notes)
		argIdx++
	}
	if patch.TotalCents != nil {
		sets = append(sets, fmt.Sprintf("total_cents = $%d", argIdx))
		args = append(args, *patch.TotalCents)
		argIdx++
	}

	query := `UPDATE orders SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND company_id = $2
		RETURNING ` + orderColumns

	var order Order
	err := s.db.GetContext(ctx, &order, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return &order, nil
}

// ShipOrder records the shipping action: tracking number, shipped
// timestamp and the status transition to shipped, in one statement.
func (s *Store) ShipOrder(ctx context.Context, id, companyID, trackingNumber string) (*Order, error) {
	query := `
		UPDATE orders SET status = $3, tracking_number = $4, shipped_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + orderColumns

	var order Order
	err := s.db.GetContext(ctx, &order, query, id, companyID, OrderStatusShipped, trackingNumber)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}
