package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/optilens/optilens-backend/internal/clinic/service"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/tenant"
)

// InventoryHandler handles product catalog and purchase order endpoints
type InventoryHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *service.InventoryService, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{service: svc, logger: log}
}

// CreateProduct adds a catalog item
func (h *InventoryHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreateProductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, product)
}

// GetProduct gets a product by ID
func (h *InventoryHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// ListProducts lists catalog items. ?sku= short-circuits to a single
// product lookup.
func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if sku := r.URL.Query().Get("sku"); sku != "" {
		product, err := h.service.GetProductBySKU(r.Context(), companyID, sku)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, product)
		return
	}

	filter := storage.ProductFilter{
		Category:    optionalQuery(r, "category"),
		Search:      optionalQuery(r, "search"),
		ListOptions: listOptions(r),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active, _ := strconv.ParseBool(v)
		filter.Active = &active
	}

	products, err := h.service.ListProducts(r.Context(), companyID, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, products, &httputil.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdateProduct applies a partial update to a product
func (h *InventoryHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var patch storage.ProductPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), companyID, patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product from the catalog
func (h *InventoryHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id"), companyID); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// CreatePurchaseOrder places a supplier order
func (h *InventoryHandler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreatePurchaseOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	po, err := h.service.CreatePurchaseOrder(r.Context(), companyID, tenant.UserID(r.Context()), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, po)
}

// GetPurchaseOrder gets a purchase order with its line items
func (h *InventoryHandler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	po, err := h.service.GetPurchaseOrderWithDetails(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, po)
}

// ListPurchaseOrders lists purchase orders
func (h *InventoryHandler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filter := storage.PurchaseOrderFilter{
		SupplierID:  optionalQuery(r, "supplier_id"),
		Status:      optionalQuery(r, "status"),
		Search:      optionalQuery(r, "search"),
		ListOptions: listOptions(r),
	}

	pos, err := h.service.ListPurchaseOrders(r.Context(), companyID, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, pos, &httputil.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdatePurchaseOrder applies a partial update to a purchase order
func (h *InventoryHandler) UpdatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var patch storage.PurchaseOrderPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.Error(w, err)
		return
	}

	po, err := h.service.UpdatePurchaseOrder(r.Context(), chi.URLParam(r, "id"), companyID, patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, po)
}
