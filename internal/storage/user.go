package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/roles"
)

// User represents a platform account. CompanyID is nil only for
// platform-level accounts (platform admins, lab-side system accounts).
type User struct {
	ID            string    `db:"id" json:"id"`
	CompanyID     *string   `db:"company_id" json:"company_id,omitempty"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Role          string    `db:"role" json:"role"`
	AccountStatus string    `db:"account_status" json:"account_status"` // pending, active, suspended
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// UserRoleGrant records a role granted to a user beyond their active role.
// The user's available roles are the union of the active role and all grants.
type UserRoleGrant struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	GrantedBy *string   `db:"granted_by" json:"granted_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserFilter narrows ListUsers. Absent fields emit no predicate.
type UserFilter struct {
	Role          *string
	AccountStatus *string
	Search        *string // matches name or email, case-insensitive substring
	ListOptions
}

// UserPatch is a partial update. Role changes must go through SwitchUserRole.
type UserPatch struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	AccountStatus *string `json:"account_status,omitempty"`
}

const userColumns = `id, company_id, email, password_hash, first_name, last_name, role, account_status, created_at, updated_at`

// CreateUser creates a new user. Email is case-normalized before insert.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if user.Role == "" {
		user.Role = roles.ECP
	}
	if user.AccountStatus == "" {
		user.AccountStatus = "pending"
	}

	query := `
		INSERT INTO users (id, company_id, email, password_hash, first_name, last_name, role, account_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		user.ID, user.CompanyID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.AccountStatus,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID within the calling company.
// A user belonging to a different company is indistinguishable from a
// nonexistent one.
func (s *Store) GetUser(ctx context.Context, id, companyID string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &user, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByEmail gets a user by case-normalized email within the calling company.
func (s *Store) GetUserByEmail(ctx context.Context, email, companyID string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)), companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetSupplier gets a user by ID within the calling company, restricted to
// the supplier role.
func (s *Store) GetSupplier(ctx context.Context, id, companyID string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND company_id = $2 AND role = $3`

	err := s.db.GetContext(ctx, &user, query, id, companyID, roles.Supplier)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("supplier")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUsers lists users in the company, newest first.
func (s *Store) ListUsers(ctx context.Context, companyID string, filter UserFilter) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Role != nil {
		query += fmt.Sprintf(` AND role = $%d`, argIdx)
		args = append(args, *filter.Role)
		argIdx++
	}
	if filter.AccountStatus != nil {
		query += fmt.Sprintf(` AND account_status = $%d`, argIdx)
		args = append(args, *filter.AccountStatus)
		argIdx++
	}
	if filter.Search != nil {
		query += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)`, argIdx, argIdx, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	limit, offset := filter.limits()
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var users []*User
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}

	return users, nil
}

// UpdateUser applies a partial update to a user in the calling company.
func (s *Store) UpdateUser(ctx context.Context, id, companyID string, patch UserPatch) (*User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, companyID}
	argIdx := 3

	if patch.FirstName != nil {
		sets = append(sets, fmt.Sprintf("first_name = $%d", argIdx))
		args = append(args, *patch.FirstName)
		argIdx++
	}
	if patch.LastName != nil {
		sets = append(sets, fmt.Sprintf("last_name = $%d", argIdx))
		args = append(args, *patch.LastName)
		argIdx++
	}
	if patch.AccountStatus != nil {
		sets = append(sets, fmt.Sprintf("account_status = $%d", argIdx))
		args = append(args, *patch.AccountStatus)
		argIdx++
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND company_id = $2
		RETURNING ` + userColumns

	var user User
	err := s.db.GetContext(ctx, &user, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return &user, nil
}

// AvailableRoles returns the union of the user's active role and every
// granted role. This is the single source of truth consulted by both the
// query side and SwitchUserRole.
func (s *Store) AvailableRoles(ctx context.Context, userID, companyID string) ([]string, error) {
	user, err := s.GetUser(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	var granted []string
	query := `SELECT role FROM user_role_grants WHERE user_id = $1 ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &granted, query, userID); err != nil {
		return nil, err
	}

	return roles.Union([]string{user.Role}, granted), nil
}

// GrantUserRole records an additional role for a user in the calling company.
func (s *Store) GrantUserRole(ctx context.Context, userID, companyID, role string, grantedBy *string) error {
	if !roles.IsValid(role) {
		return errors.BadRequest("unknown role: " + role)
	}

	// Scoped existence check so a grant can never attach to a foreign user.
	if _, err := s.GetUser(ctx, userID, companyID); err != nil {
		return err
	}

	query := `
		INSERT INTO user_role_grants (id, user_id, role, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, uuid.New().String(), userID, role, grantedBy)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// SwitchUserRole changes the user's active role. The target role must be a
// member of the user's available-roles union; anything else is a Forbidden
// error, not a silent no-op, because it indicates a client bug or a
// tampered request.
func (s *Store) SwitchUserRole(ctx context.Context, userID, companyID, newRole string) (*User, error) {
	available, err := s.AvailableRoles(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	if !roles.Contains(available, newRole) {
		return nil, errors.Forbidden("role is not available for this user")
	}

	query := `
		UPDATE users SET role = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + userColumns

	var user User
	err = s.db.GetContext(ctx, &user, query, userID, companyID, newRole)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}
