package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optilens/optilens-backend/internal/clinic/service"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/tenant"
)

// OrderHandler handles lab order endpoints
type OrderHandler struct {
	service *service.OrderService
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(svc *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: log}
}

// Create places a lab order
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreateOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.Create(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, order)
}

// Get gets an order by ID, joined with patient and ECP summaries
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.GetWithDetails(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// List lists orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filter := storage.OrderFilter{
		PatientID:   optionalQuery(r, "patient_id"),
		EcpID:       optionalQuery(r, "ecp_id"),
		Status:      optionalQuery(r, "status"),
		Search:      optionalQuery(r, "search"),
		ListOptions: listOptions(r),
	}

	orders, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, orders, &httputil.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdateStatusRequest carries an order status transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus transitions an order to a new status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), companyID, req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// ShipRequest carries the shipping fields
type ShipRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

// Ship records the shipping action
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ShipRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.Ship(r.Context(), chi.URLParam(r, "id"), companyID, req.TrackingNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// Stats returns order counts and revenue for the company
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}
