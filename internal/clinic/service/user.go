package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/roles"
)

// userStore is the slice of storage the user service uses.
type userStore interface {
	CreateUser(ctx context.Context, user *storage.User) error
	GetUser(ctx context.Context, id, companyID string) (*storage.User, error)
	ListUsers(ctx context.Context, companyID string, filter storage.UserFilter) ([]*storage.User, error)
	UpdateUser(ctx context.Context, id, companyID string, patch storage.UserPatch) (*storage.User, error)
	AvailableRoles(ctx context.Context, userID, companyID string) ([]string, error)
	GrantUserRole(ctx context.Context, userID, companyID, role string, grantedBy *string) error
	SwitchUserRole(ctx context.Context, userID, companyID, newRole string) (*storage.User, error)
	GetUserStats(ctx context.Context, companyID string) (*storage.UserStats, error)
}

// UserService handles account provisioning and role management
type UserService struct {
	store     userStore
	publisher *events.ClinicEventPublisher
	logger    *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(store userStore, publisher *events.ClinicEventPublisher, log *logger.Logger) *UserService {
	return &UserService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// CreateUserRequest carries the fields to provision an account
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=12"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Role      string `json:"role" validate:"omitempty"`
}

// Create provisions an account in the calling company. The password is
// hashed with bcrypt before it reaches storage.
func (s *UserService) Create(ctx context.Context, companyID string, req CreateUserRequest) (*storage.User, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}
	if req.Role != "" && !roles.IsValid(req.Role) {
		return nil, errors.BadRequest("unknown role: " + req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	user := &storage.User{
		CompanyID:    &companyID,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.publisher.PublishUserCreated(ctx, user)

	s.logger.Info().
		Str("user_id", user.ID).
		Str("company_id", companyID).
		Str("role", user.Role).
		Msg("user created")

	return user, nil
}

// Get gets a user by ID
func (s *UserService) Get(ctx context.Context, id, companyID string) (*storage.User, error) {
	return s.store.GetUser(ctx, id, companyID)
}

// List lists users with filters
func (s *UserService) List(ctx context.Context, companyID string, filter storage.UserFilter) ([]*storage.User, error) {
	return s.store.ListUsers(ctx, companyID, filter)
}

// Update applies a partial update to a user
func (s *UserService) Update(ctx context.Context, id, companyID string, patch storage.UserPatch) (*storage.User, error) {
	return s.store.UpdateUser(ctx, id, companyID, patch)
}

// AvailableRoles returns the roles the user may switch between
func (s *UserService) AvailableRoles(ctx context.Context, userID, companyID string) ([]string, error) {
	return s.store.AvailableRoles(ctx, userID, companyID)
}

// GrantRole grants an additional role to a user
func (s *UserService) GrantRole(ctx context.Context, userID, companyID, role string, grantedBy *string) error {
	return s.store.GrantUserRole(ctx, userID, companyID, role, grantedBy)
}

// SwitchRole switches the user's active role. The storage layer rejects
// roles outside the user's grant set.
func (s *UserService) SwitchRole(ctx context.Context, userID, companyID, newRole string) (*storage.User, error) {
	current, err := s.store.GetUser(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.SwitchUserRole(ctx, userID, companyID, newRole)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishUserRoleChanged(ctx, user, current.Role)

	s.logger.Info().
		Str("user_id", userID).
		Str("old_role", current.Role).
		Str("new_role", newRole).
		Msg("user switched role")

	return user, nil
}

// VerifyPassword checks a candidate password against the stored hash
func (s *UserService) VerifyPassword(user *storage.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return errors.Unauthorized("invalid credentials")
	}
	return nil
}

// Stats aggregates account counts for the company
func (s *UserService) Stats(ctx context.Context, companyID string) (*storage.UserStats, error) {
	return s.store.GetUserStats(ctx, companyID)
}
