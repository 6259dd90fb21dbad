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

func companyRow(id, slug string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "slug", "type", "subscription_plan", "status",
		"ai_enabled", "is_subscription_exempt", "stripe_customer_id", "created_at", "updated_at",
	}).AddRow(id, "Vista Eyecare", slug, "practice", "basic", "active", false, false, nil, now, now)
}

func TestCreateCompany_NormalizesSlugAndDefaults(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	now := time.Now()
	mockDB.Mock.ExpectQuery(`INSERT INTO companies`).
		WithArgs(testutil.AnyUUID{}, "Vista Eyecare", "vista-eyecare", "practice",
			"basic", "active", false, false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	company := &storage.Company{
		Name: "Vista Eyecare",
		Slug: "  Vista-Eyecare ",
	}
	require.NoError(t, store.CreateCompany(ctx, company))

	assert.Equal(t, "vista-eyecare", company.Slug)
	assert.Equal(t, "practice", company.Type)
	assert.Equal(t, "basic", company.SubscriptionPlan)

	mockDB.ExpectationsWereMet(t)
}

func TestGetCompanyBySlug_NormalizesLookup(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM companies WHERE slug = \$1`).
		WithArgs("vista-eyecare").
		WillReturnRows(companyRow("company-1", "vista-eyecare"))

	company, err := store.GetCompanyBySlug(ctx, "  Vista-Eyecare ")
	require.NoError(t, err)
	assert.Equal(t, "company-1", company.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestGetCompany_UnknownIDReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM companies WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	company, err := store.GetCompany(ctx, "missing")
	assert.Nil(t, company)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
