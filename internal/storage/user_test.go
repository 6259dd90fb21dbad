package storage_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

var userColumns = []string{
	"id", "company_id", "email", "password_hash", "first_name", "last_name",
	"role", "account_status", "created_at", "updated_at",
}

func userRow(id, companyID, role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumns).
		AddRow(id, companyID, "eye@example.com", "hash", "Eve", "Practitioner", role, "active", now, now)
}

func TestCreateUser_NormalizesEmailAndDefaults(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	companyID := "company-1"
	now := time.Now()
	mockDB.Mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(testutil.AnyUUID{}, companyID, "eye@example.com", "hash", "Eve", "Practitioner", "ecp", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	user := &storage.User{
		CompanyID:    &companyID,
		Email:        "  Eye@Example.COM ",
		PasswordHash: "hash",
		FirstName:    "Eve",
		LastName:     "Practitioner",
	}

	err := store.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "eye@example.com", user.Email)
	assert.Equal(t, "ecp", user.Role)
	assert.Equal(t, "pending", user.AccountStatus)

	mockDB.ExpectationsWereMet(t)
}

func TestGetSupplier_RequiresSupplierRole(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	// An ECP user looked up through GetSupplier matches no row.
	mockDB.Mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2 AND role = \$3`).
		WithArgs("user-1", "company-1", "supplier").
		WillReturnError(sql.ErrNoRows)

	user, err := store.GetSupplier(ctx, "user-1", "company-1")
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestAvailableRoles_UnionsActiveAndGranted(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "company-1").
		WillReturnRows(userRow("user-1", "company-1", "ecp"))
	mockDB.Mock.ExpectQuery(`SELECT role FROM user_role_grants WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin").AddRow("ecp"))

	available, err := store.AvailableRoles(ctx, "user-1", "company-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ecp", "admin"}, available)

	mockDB.ExpectationsWereMet(t)
}

func TestAvailableRoles_ForeignUserReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	// Scoped user lookup fails before the grants table is ever queried.
	mockDB.Mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "company-2").
		WillReturnError(sql.ErrNoRows)

	available, err := store.AvailableRoles(ctx, "user-1", "company-2")
	assert.Nil(t, available)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestGrantUserRole_RejectsUnknownRole(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	err := store.GrantUserRole(ctx, "user-1", "company-1", "superuser", nil)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	mockDB.ExpectationsWereMet(t)
}

func TestSwitchUserRole_GrantedRoleSucceeds(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "company-1").
		WillReturnRows(userRow("user-1", "company-1", "ecp"))
	mockDB.Mock.ExpectQuery(`SELECT role FROM user_role_grants WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))
	mockDB.Mock.ExpectQuery(`UPDATE users SET role = \$3, updated_at = NOW\(\) WHERE id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "company-1", "admin").
		WillReturnRows(userRow("user-1", "company-1", "admin"))

	user, err := store.SwitchUserRole(ctx, "user-1", "company-1", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)

	mockDB.ExpectationsWereMet(t)
}

func TestSwitchUserRole_UngrantedRoleIsForbidden(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM users WHERE id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "company-1").
		WillReturnRows(userRow("user-1", "company-1", "ecp"))
	mockDB.Mock.ExpectQuery(`SELECT role FROM user_role_grants WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	user, err := store.SwitchUserRole(ctx, "user-1", "company-1", "lab_tech")
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	mockDB.ExpectationsWereMet(t)
}
