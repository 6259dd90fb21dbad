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

// InvoiceHandler handles invoicing endpoints
type InvoiceHandler struct {
	service *service.InvoiceService
	logger  *logger.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(svc *service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: svc, logger: log}
}

// Create issues an invoice
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreateInvoiceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	invoice, err := h.service.Create(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, invoice)
}

// Get gets an invoice with line items and patient summary
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	invoice, err := h.service.GetWithDetails(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, invoice)
}

// List lists invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filter := storage.InvoiceFilter{
		Status:      optionalQuery(r, "status"),
		PatientID:   optionalQuery(r, "patient_id"),
		Search:      optionalQuery(r, "search"),
		ListOptions: listOptions(r),
	}

	invoices, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, invoices, &httputil.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// RecordPaymentRequest carries a payment amount in cents
type RecordPaymentRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// RecordPayment applies a payment to an invoice
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req RecordPaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	invoice, err := h.service.RecordPayment(r.Context(), chi.URLParam(r, "id"), companyID, req.AmountCents)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, invoice)
}

// Void voids a draft invoice
func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	invoice, err := h.service.Void(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, invoice)
}
