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

// Product is a catalog item (frames, lenses, accessories). Prices are
// integer cents.
type Product struct {
	ID          string    `db:"id" json:"id"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `db:"name" json:"name"`
	Category    string    `db:"category" json:"category"`
	Description *string   `db:"description" json:"description,omitempty"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	Category *string
	Active   *bool
	Search   *string
	ListOptions
}

// ProductPatch holds updatable product fields.
type ProductPatch struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

const productColumns = `id, company_id, sku, name, category, description, price_cents, active, created_at, updated_at`

// CreateProduct adds a catalog item. SKU is unique per company.
func (s *Store) CreateProduct(ctx context.Context, product *Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, company_id, sku, name, category, description, price_cents, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		product.ID, product.CompanyID, product.SKU, product.Name,
		product.Category, product.Description, product.PriceCents, product.Active,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetProduct gets a product by ID within the calling company.
func (s *Store) GetProduct(ctx context.Context, id, companyID string) (*Product, error) {
	var product Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &product, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// GetProductBySKU looks a product up by its company-scoped SKU.
func (s *Store) GetProductBySKU(ctx context.Context, companyID, sku string) (*Product, error) {
	var product Product
	query := `SELECT ` + productColumns + ` FROM products WHERE company_id = $1 AND sku = $2`

	err := s.db.GetContext(ctx, &product, query, companyID, sku)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// ListProducts lists catalog items in the company.
func (s *Store) ListProducts(ctx context.Context, companyID string, filter ProductFilter) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Category != nil {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, *filter.Category)
		argIdx++
	}
	if filter.Active != nil {
		query += fmt.Sprintf(` AND active = $%d`, argIdx)
		args = append(args, *filter.Active)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR sku ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	limit, offset := filter.limits()
	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var products []*Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}

	return products, nil
}

// UpdateProduct applies a patch to a product.
func (s *Store) UpdateProduct(ctx context.Context, id, companyID string, patch ProductPatch) (*Product, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, companyID}
	argIdx := 3

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *patch.Name)
		argIdx++
	}
	if patch.Category != nil {
		sets = append(sets, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *patch.Category)
		argIdx++
	}
	if patch.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *patch.Description)
		argIdx++
	}
	if patch.PriceCents != nil {
		sets = append(sets, fmt.Sprintf("price_cents = $%d", argIdx))
		args = append(args, *patch.PriceCents)
		argIdx++
	}
	if patch.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", argIdx))
		args = append(args, *patch.Active)
		argIdx++
	}

	query := `UPDATE products SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND company_id = $2
		RETURNING ` + productColumns

	var product Product
	err := s.db.GetContext(ctx, &product, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return &product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *Store) DeleteProduct(ctx context.Context, id, companyID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("product")
	}

	return nil
}
