package storage_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
)

func productRow(id, sku string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "company_id", "sku", "name", "category", "description",
		"price_cents", "active", "created_at", "updated_at",
	}).AddRow(id, "company-1", sku, "Titanium frame", "frames", nil, int64(18900), true, now, now)
}

func TestGetProductBySKU_ScopedToCompany(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM products WHERE company_id = \$1 AND sku = \$2`).
		WithArgs("company-1", "FRM-TI-001").
		WillReturnRows(productRow("product-1", "FRM-TI-001"))

	product, err := store.GetProductBySKU(ctx, "company-1", "FRM-TI-001")
	require.NoError(t, err)
	assert.Equal(t, "product-1", product.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestListProducts_SearchMatchesNameOrSKU(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	search := "titanium"
	mockDB.Mock.ExpectQuery(`FROM products WHERE company_id = \$1 AND \(name ILIKE \$2 OR sku ILIKE \$2\) ORDER BY name ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("company-1", "%titanium%", 50, 0).
		WillReturnRows(productRow("product-1", "FRM-TI-001"))

	products, err := store.ListProducts(ctx, "company-1", storage.ProductFilter{Search: &search})
	require.NoError(t, err)
	require.Len(t, products, 1)

	mockDB.ExpectationsWereMet(t)
}

func TestUpdateProduct_ForeignCompanyReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	price := int64(21900)
	mockDB.Mock.ExpectQuery(`UPDATE products SET updated_at = NOW\(\), price_cents = \$3 WHERE id = \$1 AND company_id = \$2`).
		WithArgs("product-1", "other-company", price).
		WillReturnError(sql.ErrNoRows)

	product, err := store.UpdateProduct(ctx, "product-1", "other-company", storage.ProductPatch{PriceCents: &price})
	assert.Nil(t, product)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestDeleteProduct_ZeroRowsReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectExec(`DELETE FROM products WHERE id = \$1 AND company_id = \$2`).
		WithArgs("product-1", "other-company").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(ctx, "product-1", "other-company")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
