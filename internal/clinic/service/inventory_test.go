package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// stubInventoryStore overrides only the methods a test exercises; the
// embedded interface panics on anything unexpected.
type stubInventoryStore struct {
	inventoryStore
	createProduct       func(ctx context.Context, product *storage.Product) error
	createPurchaseOrder func(ctx context.Context, po *storage.PurchaseOrder, items []*storage.POLineItem) error
}

func (s *stubInventoryStore) CreateProduct(ctx context.Context, product *storage.Product) error {
	return s.createProduct(ctx, product)
}

func (s *stubInventoryStore) CreatePurchaseOrder(ctx context.Context, po *storage.PurchaseOrder, items []*storage.POLineItem) error {
	return s.createPurchaseOrder(ctx, po, items)
}

func TestProductCreate_SetsCompanyFromCaller(t *testing.T) {
	var stored *storage.Product
	store := &stubInventoryStore{
		createProduct: func(ctx context.Context, product *storage.Product) error {
			stored = product
			product.ID = uuid.New().String()
			return nil
		},
	}
	svc := NewInventoryService(store, logger.Nop())

	product, err := svc.CreateProduct(context.Background(), "company-1", CreateProductRequest{
		SKU:        "FR-1001",
		Name:       "Titanium Frame",
		Category:   "frames",
		PriceCents: 18900,
		Active:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "company-1", stored.CompanyID)
	assert.Equal(t, "FR-1001", product.SKU)
	assert.Equal(t, int64(18900), product.PriceCents)
}

func TestProductCreate_ValidationStopsBeforeStorage(t *testing.T) {
	store := &stubInventoryStore{
		createProduct: func(ctx context.Context, product *storage.Product) error {
			t.Fatal("storage reached with an invalid request")
			return nil
		},
	}
	svc := NewInventoryService(store, logger.Nop())

	product, err := svc.CreateProduct(context.Background(), "company-1", CreateProductRequest{
		Name:     "No SKU",
		Category: "frames",
	})
	assert.Nil(t, product)
	assert.Error(t, err)
}

func TestPurchaseOrderCreate_RequiresLineItems(t *testing.T) {
	store := &stubInventoryStore{
		createPurchaseOrder: func(ctx context.Context, po *storage.PurchaseOrder, items []*storage.POLineItem) error {
			t.Fatal("storage reached with an invalid request")
			return nil
		},
	}
	svc := NewInventoryService(store, logger.Nop())

	po, err := svc.CreatePurchaseOrder(context.Background(), "company-1", "user-1", CreatePurchaseOrderRequest{
		SupplierID: uuid.New().String(),
	})
	assert.Nil(t, po)
	assert.Error(t, err)
}

func TestPurchaseOrderCreate_PassesCompanyAndCreatorThrough(t *testing.T) {
	var storedPO *storage.PurchaseOrder
	var storedItems []*storage.POLineItem
	store := &stubInventoryStore{
		createPurchaseOrder: func(ctx context.Context, po *storage.PurchaseOrder, items []*storage.POLineItem) error {
			storedPO = po
			storedItems = items
			po.ID = uuid.New().String()
			po.PONumber = "PO-2026-000001"
			po.TotalCents = 42000
			return nil
		},
	}
	svc := NewInventoryService(store, logger.Nop())

	po, err := svc.CreatePurchaseOrder(context.Background(), "company-1", "user-1", CreatePurchaseOrderRequest{
		SupplierID: uuid.New().String(),
		LineItems: []POLineItemRequest{
			{Description: "Lens blanks", Quantity: 20, UnitPriceCents: 2100},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, storedPO.CompanyID)
	assert.Equal(t, "company-1", *storedPO.CompanyID)
	assert.Equal(t, "user-1", storedPO.CreatedByID)
	require.Len(t, storedItems, 1)
	assert.Equal(t, "Lens blanks", storedItems[0].Description)
	assert.Equal(t, int64(42000), po.TotalCents)
}
