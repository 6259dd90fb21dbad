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
)

// Company is the root of tenancy: every tenant-scoped entity carries a
// company_id foreign key to this table.
type Company struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Slug                 string    `db:"slug" json:"slug"`
	Type                 string    `db:"type" json:"type"` // practice, lab, supplier
	SubscriptionPlan     string    `db:"subscription_plan" json:"subscription_plan"`
	Status               string    `db:"status" json:"status"`
	AIEnabled            bool      `db:"ai_enabled" json:"ai_enabled"`
	IsSubscriptionExempt bool      `db:"is_subscription_exempt" json:"is_subscription_exempt"`
	StripeCustomerID     *string   `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// CompanyPatch is a partial update for a company's own settings.
type CompanyPatch struct {
	Name             *string `json:"name,omitempty"`
	SubscriptionPlan *string `json:"subscription_plan,omitempty"`
	Status           *string `json:"status,omitempty"`
	AIEnabled        *bool   `json:"ai_enabled,omitempty"`
	StripeCustomerID *string `json:"stripe_customer_id,omitempty"`
}

const companyColumns = `id, name, slug, type, subscription_plan, status, ai_enabled, is_subscription_exempt, stripe_customer_id, created_at, updated_at`

// CreateCompany registers a new tenant.
func (s *Store) CreateCompany(ctx context.Context, company *Company) error {
	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	company.Slug = strings.ToLower(strings.TrimSpace(company.Slug))

	if company.Type == "" {
		company.Type = "practice"
	}
	if company.SubscriptionPlan == "" {
		company.SubscriptionPlan = "basic"
	}
	if company.Status == "" {
		company.Status = "active"
	}

	query := `
		INSERT INTO companies (id, name, slug, type, subscription_plan, status, ai_enabled, is_subscription_exempt, stripe_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		company.ID, company.Name, company.Slug, company.Type,
		company.SubscriptionPlan, company.Status, company.AIEnabled,
		company.IsSubscriptionExempt, company.StripeCustomerID,
	).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetCompany gets a company by ID. Callers may only pass their own
// company ID here; the transport layer guarantees that.
func (s *Store) GetCompany(ctx context.Context, id string) (*Company, error) {
	var company Company
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	err := s.db.GetContext(ctx, &company, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("company")
	}
	if err != nil {
		return nil, err
	}

	return &company, nil
}

// GetCompanyBySlug gets a company by its unique slug.
func (s *Store) GetCompanyBySlug(ctx context.Context, slug string) (*Company, error) {
	var company Company
	query := `SELECT ` + companyColumns + ` FROM companies WHERE slug = $1`

	err := s.db.GetContext(ctx, &company, query, strings.ToLower(strings.TrimSpace(slug)))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("company")
	}
	if err != nil {
		return nil, err
	}

	return &company, nil
}

// UpdateCompany applies a partial update to a company's settings.
func (s *Store) UpdateCompany(ctx context.Context, id string, patch CompanyPatch) (*Company, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	argIdx := 2

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *patch.Name)
		argIdx++
	}
	if patch.SubscriptionPlan != nil {
		sets = append(sets, fmt.Sprintf("subscription_plan = $%d", argIdx))
		args = append(args, *patch.SubscriptionPlan)
		argIdx++
	}
	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *patch.Status)
		argIdx++
	}
	if patch.AIEnabled != nil {
		sets = append(sets, fmt.Sprintf("ai_enabled = $%d", argIdx))
		args = append(args, *patch.AIEnabled)
		argIdx++
	}
	if patch.StripeCustomerID != nil {
		sets = append(sets, fmt.Sprintf("stripe_customer_id = $%d", argIdx))
		args = append(args, *patch.StripeCustomerID)
		argIdx++
	}

	query := `UPDATE companies SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1
		RETURNING ` + companyColumns

	var company Company
	err := s.db.GetContext(ctx, &company, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("company")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return &company, nil
}
