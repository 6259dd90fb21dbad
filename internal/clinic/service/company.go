package service

import (
	"context"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// companyStore is the slice of storage the company service uses.
type companyStore interface {
	CreateCompany(ctx context.Context, company *storage.Company) error
	GetCompany(ctx context.Context, id string) (*storage.Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (*storage.Company, error)
	UpdateCompany(ctx context.Context, id string, patch storage.CompanyPatch) (*storage.Company, error)
}

// CompanyService handles tenant onboarding and settings
type CompanyService struct {
	store  companyStore
	logger *logger.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(store companyStore, log *logger.Logger) *CompanyService {
	return &CompanyService{store: store, logger: log}
}

// CreateCompanyRequest carries the fields to register a tenant
type CreateCompanyRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Slug             string `json:"slug" validate:"required,max=100"`
	Type             string `json:"type,omitempty" validate:"omitempty,oneof=practice lab supplier"`
	SubscriptionPlan string `json:"subscription_plan,omitempty"`
}

// Create registers a new tenant. A duplicate slug surfaces as Conflict.
func (s *CompanyService) Create(ctx context.Context, req CreateCompanyRequest) (*storage.Company, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	company := &storage.Company{
		Name:             req.Name,
		Slug:             req.Slug,
		Type:             req.Type,
		SubscriptionPlan: req.SubscriptionPlan,
	}

	if err := s.store.CreateCompany(ctx, company); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("company_id", company.ID).
		Str("slug", company.Slug).
		Msg("company created")

	return company, nil
}

// Get gets a company by ID
func (s *CompanyService) Get(ctx context.Context, id string) (*storage.Company, error) {
	return s.store.GetCompany(ctx, id)
}

// GetBySlug gets a company by its slug
func (s *CompanyService) GetBySlug(ctx context.Context, slug string) (*storage.Company, error) {
	return s.store.GetCompanyBySlug(ctx, slug)
}

// Update applies a partial update to the company's settings
func (s *CompanyService) Update(ctx context.Context, id string, patch storage.CompanyPatch) (*storage.Company, error) {
	return s.store.UpdateCompany(ctx, id, patch)
}
