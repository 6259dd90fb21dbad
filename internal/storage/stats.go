package storage

import (
	"context"
)

// OrderStats is a per-company roll-up of order counts and revenue.
// Computed in SQL so counts stay consistent under concurrent writes.
type OrderStats struct {
	Total             int   `db:"total" json:"total"`
	Pending           int   `db:"pending" json:"pending"`
	InProduction      int   `db:"in_production" json:"in_production"`
	QualityCheck      int   `db:"quality_check" json:"quality_check"`
	Shipped           int   `db:"shipped" json:"shipped"`
	Completed         int   `db:"completed" json:"completed"`
	OnHold            int   `db:"on_hold" json:"on_hold"`
	Cancelled         int   `db:"cancelled" json:"cancelled"`
	TotalRevenueCents int64 `db:"total_revenue_cents" json:"total_revenue_cents"`
}

// UserStats is a per-company roll-up of account counts by role and
// status.
type UserStats struct {
	Total      int `db:"total" json:"total"`
	Active     int `db:"active" json:"active"`
	Pending    int `db:"pending" json:"pending"`
	Suspended  int `db:"suspended" json:"suspended"`
	Ecps       int `db:"ecps" json:"ecps"`
	Admins     int `db:"admins" json:"admins"`
	LabTechs   int `db:"lab_techs" json:"lab_techs"`
	Suppliers  int `db:"suppliers" json:"suppliers"`
	Dispensers int `db:"dispensers" json:"dispensers"`
}

// GetOrderStats aggregates order counts and delivered revenue for a
// company in a single round trip.
func (s *Store) GetOrderStats(ctx context.Context, companyID string) (*OrderStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'in_production') AS in_production,
			COUNT(*) FILTER (WHERE status = 'quality_check') AS quality_check,
			COUNT(*) FILTER (WHERE status = 'shipped') AS shipped,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'on_hold') AS on_hold,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COALESCE(SUM(total_cents) FILTER (WHERE status = 'completed'), 0) AS total_revenue_cents
		FROM orders
		WHERE company_id = $1
	`

	var stats OrderStats
	if err := s.db.GetContext(ctx, &stats, query, companyID); err != nil {
		return nil, err
	}

	return &stats, nil
}

// GetUserStats aggregates account counts for a company in a single
// round trip.
func (s *Store) GetUserStats(ctx context.Context, companyID string) (*UserStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE account_status = 'active') AS active,
			COUNT(*) FILTER (WHERE account_status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE account_status = 'suspended') AS suspended,
			COUNT(*) FILTER (WHERE role = 'ecp') AS ecps,
			COUNT(*) FILTER (WHERE role IN ('admin', 'company_admin')) AS admins,
			COUNT(*) FILTER (WHERE role = 'lab_tech') AS lab_techs,
			COUNT(*) FILTER (WHERE role = 'supplier') AS suppliers,
			COUNT(*) FILTER (WHERE role = 'dispenser') AS dispensers
		FROM users
		WHERE company_id = $1
	`

	var stats UserStats
	if err := s.db.GetContext(ctx, &stats, query, companyID); err != nil {
		return nil, err
	}

	return &stats, nil
}
