// Package handler exposes the clinic services over HTTP. Handlers pull
// the company ID from the request context placed there by the tenant
// middleware and pass it down explicitly; nothing below this layer
// reads the context for tenancy.
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

// PatientHandler handles patient endpoints
type PatientHandler struct {
	service *service.PatientService
	logger  *logger.Logger
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(svc *service.PatientService, log *logger.Logger) *PatientHandler {
	return &PatientHandler{service: svc, logger: log}
}

// listOptions reads limit/offset query parameters.
func listOptions(r *http.Request) storage.ListOptions {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return storage.ListOptions{Limit: limit, Offset: offset}
}

// optionalQuery returns a pointer to the query parameter, or nil if absent.
func optionalQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// Create registers a patient
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreatePatientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	patient, err := h.service.Create(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, patient)
}

// Get gets a patient by ID
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	patient, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, patient)
}

// List lists patients
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filter := storage.PatientFilter{
		EcpID:       optionalQuery(r, "ecp_id"),
		Search:      optionalQuery(r, "search"),
		ListOptions: listOptions(r),
	}

	patients, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, patients, &httputil.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Update applies a partial update to a patient
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var patch storage.PatientPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.Error(w, err)
		return
	}

	patient, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), companyID, patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, patient)
}

// Delete removes a patient
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), companyID); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}
