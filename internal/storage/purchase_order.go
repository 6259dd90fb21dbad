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

// PurchaseOrder represents an order placed with a supplier.
// CompanyID is nullable because legacy rows predate tenancy; new rows
// always carry it, and the scoped accessors require it.
type PurchaseOrder struct {
	ID                 string     `db:"id" json:"id"`
	CompanyID          *string    `db:"company_id" json:"company_id,omitempty"`
	SupplierID         string     `db:"supplier_id" json:"supplier_id"`
	CreatedByID        string     `db:"created_by_id" json:"created_by_id"`
	PONumber           string     `db:"po_number" json:"po_number"`
	Status             string     `db:"status" json:"status"`
	TrackingNumber     *string    `db:"tracking_number" json:"tracking_number,omitempty"`
	ActualDeliveryDate *time.Time `db:"actual_delivery_date" json:"actual_delivery_date,omitempty"`
	TotalCents         int64      `db:"total_cents" json:"total_cents"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// POLineItem is a single line of a purchase order, scoped through its parent.
type POLineItem struct {
	ID              string  `db:"id" json:"id"`
	PurchaseOrderID string  `db:"purchase_order_id" json:"purchase_order_id"`
	ProductID       *string `db:"product_id" json:"product_id,omitempty"`
	Description     string  `db:"description" json:"description"`
	Quantity        int     `db:"quantity" json:"quantity"`
	UnitPriceCents  int64   `db:"unit_price_cents" json:"unit_price_cents"`
}

// PurchaseOrderWithDetails joins a purchase order with narrow projections
// of its supplier and creator plus the line items.
type PurchaseOrderWithDetails struct {
	PurchaseOrder
	Supplier  UserSummary   `db:"supplier" json:"supplier"`
	CreatedBy UserSummary   `db:"created_by" json:"created_by"`
	LineItems []*POLineItem `json:"line_items"`
}

// PurchaseOrderFilter narrows ListPurchaseOrders.
type PurchaseOrderFilter struct {
	SupplierID *string
	Status     *string
	Search     *string // PO number substring
	ListOptions
}

// PurchaseOrderPatch is a partial update for a purchase order.
type PurchaseOrderPatch struct {
	Status             *string    `json:"status,omitempty"`
	TrackingNumber     *string    `json:"tracking_number,omitempty"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"`
}

const purchaseOrderColumns = `id, company_id, supplier_id, created_by_id, po_number, status, tracking_number, actual_delivery_date, total_cents, created_at, updated_at`

// CreatePurchaseOrder inserts the purchase order and its line items as
// one transaction; partial failure rolls everything back.
func (s *Store) CreatePurchaseOrder(ctx context.Context, po *PurchaseOrder, items []*POLineItem) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	if po.PONumber == "" {
		po.PONumber = poNumber(time.Now())
	}
	if po.Status == "" {
		po.Status = "pending"
	}

	po.TotalCents = 0
	for _, item := range items {
		po.TotalCents += int64(item.Quantity) * item.UnitPriceCents
	}

	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO purchase_orders (id, company_id, supplier_id, created_by_id, po_number, status, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		err := s.db.QueryRowxContext(ctx, query,
			po.ID, po.CompanyID, po.SupplierID, po.CreatedByID,
			po.PONumber, po.Status, po.TotalCents,
		).Scan(&po.CreatedAt, &po.UpdatedAt)
		if err != nil {
			return err
		}

		itemQuery := `
			INSERT INTO po_line_items (id, purchase_order_id, product_id, description, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.PurchaseOrderID = po.ID

			if _, err := s.db.ExecContext(ctx, itemQuery,
				item.ID, item.PurchaseOrderID, item.ProductID,
				item.Description, item.Quantity, item.UnitPriceCents,
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

// GetPurchaseOrder gets a purchase order by ID within the calling company.
func (s *Store) GetPurchaseOrder(ctx context.Context, id, companyID string) (*PurchaseOrder, error) {
	var po PurchaseOrder
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &po, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("purchase order")
	}
	if err != nil {
		return nil, err
	}

	return &po, nil
}

// GetPurchaseOrderWithDetails gets a purchase order joined with its
// supplier, creator and line items.
func (s *Store) GetPurchaseOrderWithDetails(ctx context.Context, id, companyID string) (*PurchaseOrderWithDetails, error) {
	var row PurchaseOrderWithDetails
	query := `
		SELECT po.id, po.company_id, po.supplier_id, po.created_by_id, po.po_number, po.status,
		       po.tracking_number, po.actual_delivery_date, po.total_cents, po.created_at, po.updated_at,
		       s.id AS "supplier.id", s.first_name AS "supplier.first_name",
		       s.last_name AS "supplier.last_name", s.role AS "supplier.role",
		       c.id AS "created_by.id", c.first_name AS "created_by.first_name",
		       c.last_name AS "created_by.last_name", c.role AS "created_by.role"
		FROM purchase_orders po
		JOIN users s ON s.id = po.supplier_id
		JOIN users c ON c.id = po.created_by_id
		WHERE po.id = $1 AND po.company_id = $2
	`

	err := s.db.GetContext(ctx, &row, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("purchase order")
	}
	if err != nil {
		return nil, err
	}

	itemQuery := `
		SELECT id, purchase_order_id, product_id, description, quantity, unit_price_cents
		FROM po_line_items
		WHERE purchase_order_id = $1
		ORDER BY id
	`
	if err := s.db.SelectContext(ctx, &row.LineItems, itemQuery, row.ID); err != nil {
		return nil, err
	}
	if row.LineItems == nil {
		row.LineItems = []*POLineItem{}
	}

	return &row, nil
}

// ListPurchaseOrders lists purchase orders in the company, newest first.
func (s *Store) ListPurchaseOrders(ctx context.Context, companyID string, filter PurchaseOrderFilter) ([]*PurchaseOrder, error) {
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.SupplierID != nil {
		query += fmt.Sprintf(` AND supplier_id = $%d`, argIdx)
		args = append(args, *filter.SupplierID)
		argIdx++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Search != nil {
		query += fmt.Sprintf(` AND po_number ILIKE $%d`, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	limit, offset := filter.limits()
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var pos []*PurchaseOrder
	if err := s.db.SelectContext(ctx, &pos, query, args...); err != nil {
		return nil, err
	}

	return pos, nil
}

// UpdatePurchaseOrder applies a partial update within the calling company.
func (s *Store) UpdatePurchaseOrder(ctx context.Context, id, companyID string, patch PurchaseOrderPatch) (*PurchaseOrder, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, companyID}
	argIdx := 3

	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *patch.Status)
		argIdx++
	}
	if patch.TrackingNumber != nil {
		sets = append(sets, fmt.Sprintf("tracking_number = $%d", argIdx))
		args = append(args, *patch.TrackingNumber)
		argIdx++
	}
	if patch.ActualDeliveryDate != nil {
		sets = append(sets, fmt.Sprintf("actual_delivery_date = $%d", argIdx))
		args = append(args, *patch.ActualDeliveryDate)
		argIdx++
	}

	query := `UPDATE purchase_orders SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND company_id = $2
		RETURNING ` + purchaseOrderColumns

	var po PurchaseOrder
	err := s.db.GetContext(ctx, &po, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("purchase order")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return &po, nil
}
