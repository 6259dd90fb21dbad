package service

import (
	"context"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// inventoryStore is the slice of storage the inventory service uses.
type inventoryStore interface {
	CreateProduct(ctx context.Context, product *storage.Product) error
	GetProduct(ctx context.Context, id, companyID string) (*storage.Product, error)
	GetProductBySKU(ctx context.Context, companyID, sku string) (*storage.Product, error)
	ListProducts(ctx context.Context, companyID string, filter storage.ProductFilter) ([]*storage.Product, error)
	UpdateProduct(ctx context.Context, id, companyID string, patch storage.ProductPatch) (*storage.Product, error)
	DeleteProduct(ctx context.Context, id, companyID string) error

	CreatePurchaseOrder(ctx context.Context, po *storage.PurchaseOrder, items []*storage.POLineItem) error
	GetPurchaseOrder(ctx context.Context, id, companyID string) (*storage.PurchaseOrder, error)
	GetPurchaseOrderWithDetails(ctx context.Context, id, companyID string) (*storage.PurchaseOrderWithDetails, error)
	ListPurchaseOrders(ctx context.Context, companyID string, filter storage.PurchaseOrderFilter) ([]*storage.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, id, companyID string, patch storage.PurchaseOrderPatch) (*storage.PurchaseOrder, error)
}

// InventoryService handles the product catalog and supplier purchase orders
type InventoryService struct {
	store  inventoryStore
	logger *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store inventoryStore, log *logger.Logger) *InventoryService {
	return &InventoryService{store: store, logger: log}
}

// CreateProductRequest carries the fields to add a catalog item
type CreateProductRequest struct {
	SKU         string  `json:"sku" validate:"required,max=64"`
	Name        string  `json:"name" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
	PriceCents  int64   `json:"price_cents" validate:"gte=0"`
	Active      bool    `json:"active"`
}

// CreateProduct adds a catalog item. A duplicate SKU within the company
// surfaces as Conflict.
func (s *InventoryService) CreateProduct(ctx context.Context, companyID string, req CreateProductRequest) (*storage.Product, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	product := &storage.Product{
		CompanyID:   companyID,
		SKU:         req.SKU,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Active:      req.Active,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", product.ID).
		Str("sku", product.SKU).
		Msg("product created")

	return product, nil
}

// GetProduct gets a product by ID
func (s *InventoryService) GetProduct(ctx context.Context, id, companyID string) (*storage.Product, error) {
	return s.store.GetProduct(ctx, id, companyID)
}

// GetProductBySKU gets a product by SKU within the company
func (s *InventoryService) GetProductBySKU(ctx context.Context, companyID, sku string) (*storage.Product, error) {
	return s.store.GetProductBySKU(ctx, companyID, sku)
}

// ListProducts lists catalog items with filters
func (s *InventoryService) ListProducts(ctx context.Context, companyID string, filter storage.ProductFilter) ([]*storage.Product, error) {
	return s.store.ListProducts(ctx, companyID, filter)
}

// UpdateProduct applies a partial update to a product
func (s *InventoryService) UpdateProduct(ctx context.Context, id, companyID string, patch storage.ProductPatch) (*storage.Product, error) {
	return s.store.UpdateProduct(ctx, id, companyID, patch)
}

// DeleteProduct removes a product from the catalog
func (s *InventoryService) DeleteProduct(ctx context.Context, id, companyID string) error {
	return s.store.DeleteProduct(ctx, id, companyID)
}

// POLineItemRequest is one line on a new purchase order
type POLineItemRequest struct {
	ProductID      *string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	Description    string  `json:"description" validate:"required"`
	Quantity       int     `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents int64   `json:"unit_price_cents" validate:"required,gt=0"`
}

// CreatePurchaseOrderRequest carries the fields to place a supplier order
type CreatePurchaseOrderRequest struct {
	SupplierID string              `json:"supplier_id" validate:"required,uuid"`
	LineItems  []POLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// CreatePurchaseOrder places a supplier order. The order and all line
// items are written in one transaction; the total is derived from the
// items.
func (s *InventoryService) CreatePurchaseOrder(ctx context.Context, companyID, createdByID string, req CreatePurchaseOrderRequest) (*storage.PurchaseOrder, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	po := &storage.PurchaseOrder{
		CompanyID:   &companyID,
		SupplierID:  req.SupplierID,
		CreatedByID: createdByID,
	}

	items := make([]*storage.POLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, &storage.POLineItem{
			ProductID:      li.ProductID,
			Description:    li.Description,
			Quantity:       li.Quantity,
			UnitPriceCents: li.UnitPriceCents,
		})
	}

	if err := s.store.CreatePurchaseOrder(ctx, po, items); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("purchase_order_id", po.ID).
		Str("po_number", po.PONumber).
		Int64("total_cents", po.TotalCents).
		Msg("purchase order created")

	return po, nil
}

// GetPurchaseOrder gets a purchase order by ID
func (s *InventoryService) GetPurchaseOrder(ctx context.Context, id, companyID string) (*storage.PurchaseOrder, error) {
	return s.store.GetPurchaseOrder(ctx, id, companyID)
}

// GetPurchaseOrderWithDetails gets a purchase order with its supplier,
// creator and line items
func (s *InventoryService) GetPurchaseOrderWithDetails(ctx context.Context, id, companyID string) (*storage.PurchaseOrderWithDetails, error) {
	return s.store.GetPurchaseOrderWithDetails(ctx, id, companyID)
}

// ListPurchaseOrders lists purchase orders with filters
func (s *InventoryService) ListPurchaseOrders(ctx context.Context, companyID string, filter storage.PurchaseOrderFilter) ([]*storage.PurchaseOrder, error) {
	return s.store.ListPurchaseOrders(ctx, companyID, filter)
}

// UpdatePurchaseOrder applies a partial update to a purchase order
func (s *InventoryService) UpdatePurchaseOrder(ctx context.Context, id, companyID string, patch storage.PurchaseOrderPatch) (*storage.PurchaseOrder, error) {
	return s.store.UpdatePurchaseOrder(ctx, id, companyID, patch)
}
