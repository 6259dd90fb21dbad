package storage_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrderStats_AggregatesInOneQuery(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE status = 'completed'\) AS completed, COALESCE\(SUM\(total_cents\) FILTER \(WHERE status = 'completed'\), 0\) AS total_revenue_cents FROM orders WHERE company_id = \$1`).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "pending", "in_production", "quality_check", "shipped",
			"completed", "on_hold", "cancelled", "total_revenue_cents",
		}).AddRow(10, 3, 2, 1, 1, 2, 1, 0, int64(480000)))

	stats, err := store.GetOrderStats(ctx, "company-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, int64(480000), stats.TotalRevenueCents)

	mockDB.ExpectationsWereMet(t)
}

func TestGetUserStats_CountsRolesAndStatuses(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE role IN \('admin', 'company_admin'\)\) AS admins .+ FROM users WHERE company_id = \$1`).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "active", "pending", "suspended", "ecps", "admins",
			"lab_techs", "suppliers", "dispensers",
		}).AddRow(8, 6, 1, 1, 4, 2, 1, 0, 1))

	stats, err := store.GetUserStats(ctx, "company-1")
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Total)
	assert.Equal(t, 2, stats.Admins)
	assert.Equal(t, 4, stats.Ecps)

	mockDB.ExpectationsWereMet(t)
}
