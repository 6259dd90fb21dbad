package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

func TestCreatePurchaseOrder_DerivesTotalFromItems(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	companyID := "company-1"
	now := time.Now()
	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery(`INSERT INTO purchase_orders`).
		WithArgs(testutil.AnyUUID{}, companyID, "supplier-1", "user-1",
			sqlmock.AnyArg(), "pending", int64(21000)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mockDB.Mock.ExpectExec(`INSERT INTO po_line_items`).
		WithArgs(testutil.AnyUUID{}, testutil.AnyUUID{}, nil, "Frame stock", 10, int64(1500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectExec(`INSERT INTO po_line_items`).
		WithArgs(testutil.AnyUUID{}, testutil.AnyUUID{}, nil, "Lens blanks", 20, int64(300)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	po := &storage.PurchaseOrder{
		CompanyID:   &companyID,
		SupplierID:  "supplier-1",
		CreatedByID: "user-1",
	}
	items := []*storage.POLineItem{
		{Description: "Frame stock", Quantity: 10, UnitPriceCents: 1500},
		{Description: "Lens blanks", Quantity: 20, UnitPriceCents: 300},
	}

	require.NoError(t, store.CreatePurchaseOrder(ctx, po, items))
	assert.Equal(t, int64(21000), po.TotalCents)
	assert.Equal(t, "pending", po.Status)
	assert.Equal(t, po.ID, items[0].PurchaseOrderID)

	mockDB.ExpectationsWereMet(t)
}
