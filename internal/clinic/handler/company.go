package handler

import (
	"net/http"

	"github.com/optilens/optilens-backend/internal/clinic/service"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/tenant"
)

// CompanyHandler exposes the calling tenant's own company record.
// Registration is the one endpoint that runs without a company in
// context, since the tenant does not exist yet.
type CompanyHandler struct {
	service *service.CompanyService
	logger  *logger.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(svc *service.CompanyService, log *logger.Logger) *CompanyHandler {
	return &CompanyHandler{service: svc, logger: log}
}

// Register onboards a new tenant
func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCompanyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	company, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, company)
}

// Get returns the caller's own company
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	company, err := h.service.Get(r.Context(), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, company)
}

// Update applies a partial update to the caller's own company
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var patch storage.CompanyPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.Error(w, err)
		return
	}

	company, err := h.service.Update(r.Context(), companyID, patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, company)
}
