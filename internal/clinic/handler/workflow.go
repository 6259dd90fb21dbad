package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optilens/optilens-backend/internal/clinic/service"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/tenant"
)

// WorkflowHandler handles workflow template and instance endpoints
type WorkflowHandler struct {
	service *service.WorkflowService
	logger  *logger.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(svc *service.WorkflowService, log *logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{service: svc, logger: log}
}

// Create defines a workflow template
func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreateWorkflowRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	wf, err := h.service.CreateWorkflow(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, wf)
}

// Get gets a workflow template by ID
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	wf, err := h.service.GetWorkflow(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, wf)
}

// List lists workflow templates
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	opts := listOptions(r)
	wfs, err := h.service.ListWorkflows(r.Context(), companyID, opts)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, wfs, &httputil.Meta{Limit: opts.Limit, Offset: opts.Offset})
}

// StartInstance starts a workflow run for a patient
func (h *WorkflowHandler) StartInstance(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.StartInstanceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	instance, err := h.service.StartInstance(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, instance)
}

// GetInstance gets a workflow run by ID
func (h *WorkflowHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	instance, err := h.service.GetInstance(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, instance)
}

// CompleteInstanceRequest carries the terminal status and final state
type CompleteInstanceRequest struct {
	Status string          `json:"status" validate:"required"`
	State  json.RawMessage `json:"state,omitempty"`
}

// CompleteInstance finishes a running workflow instance
func (h *WorkflowHandler) CompleteInstance(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req CompleteInstanceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	instance, err := h.service.CompleteInstance(r.Context(), chi.URLParam(r, "id"), companyID, req.Status, req.State)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, instance)
}
