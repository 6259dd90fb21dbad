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

// UserHandler handles account and role endpoints
type UserHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: log}
}

// Create provisions an account
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Create(r.Context(), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, user)
}

// Get gets a user by ID
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// List lists users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filter := storage.UserFilter{
		Role:          optionalQuery(r, "role"),
		AccountStatus: optionalQuery(r, "status"),
		Search:        optionalQuery(r, "search"),
		ListOptions:   listOptions(r),
	}

	users, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, users, &httputil.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// AvailableRoles returns the roles the user may switch between
func (h *UserHandler) AvailableRoles(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	available, err := h.service.AvailableRoles(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"roles": available})
}

// GrantRoleRequest carries a role grant
type GrantRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// GrantRole grants an additional role to a user
func (h *UserHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req GrantRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	var grantedBy *string
	if actorID := tenant.UserID(r.Context()); actorID != "" {
		grantedBy = &actorID
	}

	if err := h.service.GrantRole(r.Context(), chi.URLParam(r, "id"), companyID, req.Role, grantedBy); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// SwitchRoleRequest carries a role switch
type SwitchRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// SwitchRole switches the user's active role
func (h *UserHandler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req SwitchRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.SwitchRole(r.Context(), chi.URLParam(r, "id"), companyID, req.Role)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// Stats returns account counts for the company
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
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
