// Package service holds the clinic business logic between transport and
// storage. Each service declares the slice of the store it consumes, so
// tests stub exactly what a method touches.
package service

import (
	"context"
	"time"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// patientStore is the slice of storage the patient service uses.
type patientStore interface {
	CreatePatient(ctx context.Context, patient *storage.Patient) error
	GetPatient(ctx context.Context, id, companyID string) (*storage.Patient, error)
	ListPatients(ctx context.Context, companyID string, filter storage.PatientFilter) ([]*storage.Patient, error)
	UpdatePatient(ctx context.Context, id, companyID string, patch storage.PatientPatch) (*storage.Patient, error)
	DeletePatient(ctx context.Context, id, companyID string) error
}

// PatientService handles patient-related business logic
type PatientService struct {
	store     patientStore
	publisher *events.ClinicEventPublisher
	logger    *logger.Logger
}

// NewPatientService creates a new patient service
func NewPatientService(store patientStore, publisher *events.ClinicEventPublisher, log *logger.Logger) *PatientService {
	return &PatientService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// CreatePatientRequest carries the fields to register a patient
type CreatePatientRequest struct {
	EcpID       string     `json:"ecp_id" validate:"required,uuid"`
	FirstName   string     `json:"first_name" validate:"required,max=100"`
	LastName    string     `json:"last_name" validate:"required,max=100"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string    `json:"phone,omitempty" validate:"omitempty,max=50"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// Create registers a patient. The customer number is assigned by the
// database sequence during the insert.
func (s *PatientService) Create(ctx context.Context, companyID string, req CreatePatientRequest) (*storage.Patient, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	patient := &storage.Patient{
		CompanyID:   companyID,
		EcpID:       req.EcpID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
	}

	if err := s.store.CreatePatient(ctx, patient); err != nil {
		return nil, err
	}

	s.publisher.PublishPatientCreated(ctx, patient)

	s.logger.Info().
		Str("patient_id", patient.ID).
		Str("company_id", companyID).
		Str("customer_number", patient.CustomerNumber).
		Msg("patient created")

	return patient, nil
}

// Get gets a patient by ID
func (s *PatientService) Get(ctx context.Context, id, companyID string) (*storage.Patient, error) {
	return s.store.GetPatient(ctx, id, companyID)
}

// List lists patients with filters
func (s *PatientService) List(ctx context.Context, companyID string, filter storage.PatientFilter) ([]*storage.Patient, error) {
	return s.store.ListPatients(ctx, companyID, filter)
}

// Update applies a partial update to a patient
func (s *PatientService) Update(ctx context.Context, id, companyID string, patch storage.PatientPatch) (*storage.Patient, error) {
	patient, err := s.store.UpdatePatient(ctx, id, companyID, patch)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishPatientUpdated(ctx, patient)

	return patient, nil
}

// Delete removes a patient
func (s *PatientService) Delete(ctx context.Context, id, companyID string) error {
	if err := s.store.DeletePatient(ctx, id, companyID); err != nil {
		return err
	}

	s.publisher.PublishPatientDeleted(ctx, id, companyID)

	s.logger.Info().
		Str("patient_id", id).
		Str("company_id", companyID).
		Msg("patient deleted")

	return nil
}
