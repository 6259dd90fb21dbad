package service

import (
	"context"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/roles"
)

// clinicalStore is the slice of storage the clinical service uses.
type clinicalStore interface {
	CreateExamination(ctx context.Context, exam *storage.EyeExamination) error
	GetExamination(ctx context.Context, id, companyID string) (*storage.EyeExamination, error)
	ListExaminations(ctx context.Context, companyID, patientID string, opts storage.ListOptions) ([]*storage.EyeExamination, error)
	CreatePrescription(ctx context.Context, rx *storage.Prescription) error
	GetPrescription(ctx context.Context, id, companyID string) (*storage.Prescription, error)
	ListPrescriptions(ctx context.Context, companyID, patientID string, opts storage.ListOptions) ([]*storage.Prescription, error)
	SignPrescription(ctx context.Context, id, companyID, ecpID, signature string) (*storage.Prescription, error)
	GetUser(ctx context.Context, id, companyID string) (*storage.User, error)
	CreateMedicalRecord(ctx context.Context, record *storage.MedicalRecord) error
	ListMedicalRecords(ctx context.Context, companyID, patientID string, opts storage.ListOptions) ([]*storage.MedicalRecord, error)
	CreateBooking(ctx context.Context, booking *storage.AppointmentBooking) error
	GetBooking(ctx context.Context, id, companyID string) (*storage.AppointmentBooking, error)
	ListBookings(ctx context.Context, companyID string, ecpID, status *string, opts storage.ListOptions) ([]*storage.AppointmentBooking, error)
	UpdateBookingStatus(ctx context.Context, id, companyID, status string) (*storage.AppointmentBooking, error)
}

// ClinicalService handles examinations, prescriptions, records and
// appointment bookings
type ClinicalService struct {
	store     clinicalStore
	publisher *events.ClinicEventPublisher
	logger    *logger.Logger
}

// NewClinicalService creates a new clinical service
func NewClinicalService(store clinicalStore, publisher *events.ClinicEventPublisher, log *logger.Logger) *ClinicalService {
	return &ClinicalService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// CreateExamination records an eye examination
func (s *ClinicalService) CreateExamination(ctx context.Context, exam *storage.EyeExamination) error {
	return s.store.CreateExamination(ctx, exam)
}

// GetExamination gets an examination by ID
func (s *ClinicalService) GetExamination(ctx context.Context, id, companyID string) (*storage.EyeExamination, error) {
	return s.store.GetExamination(ctx, id, companyID)
}

// ListExaminations lists a patient's examinations
func (s *ClinicalService) ListExaminations(ctx context.Context, companyID, patientID string, opts storage.ListOptions) ([]*storage.EyeExamination, error) {
	return s.store.ListExaminations(ctx, companyID, patientID, opts)
}

// CreatePrescription creates a prescription
func (s *ClinicalService) CreatePrescription(ctx context.Context, rx *storage.Prescription) error {
	return s.store.CreatePrescription(ctx, rx)
}

// GetPrescription gets a prescription by ID
func (s *ClinicalService) GetPrescription(ctx context.Context, id, companyID string) (*storage.Prescription, error) {
	return s.store.GetPrescription(ctx, id, companyID)
}

// ListPrescriptions lists a patient's prescriptions
func (s *ClinicalService) ListPrescriptions(ctx context.Context, companyID, patientID string, opts storage.ListOptions) ([]*storage.Prescription, error) {
	return s.store.ListPrescriptions(ctx, companyID, patientID, opts)
}

// SignPrescriptionRequest carries the signing fields
type SignPrescriptionRequest struct {
	EcpID     string `json:"ecp_id" validate:"required,uuid"`
	Signature string `json:"signature" validate:"required"`
}

// SignPrescription signs a prescription. Only an active ECP in the same
// company may sign; re-signing overwrites the previous signature.
func (s *ClinicalService) SignPrescription(ctx context.Context, id, companyID string, req SignPrescriptionRequest) (*storage.Prescription, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	signer, err := s.store.GetUser(ctx, req.EcpID, companyID)
	if err != nil {
		return nil, err
	}
	if signer.Role != roles.ECP {
		return nil, errors.Forbidden("only an ECP may sign prescriptions")
	}

	rx, err := s.store.SignPrescription(ctx, id, companyID, req.EcpID, req.Signature)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishPrescriptionSigned(ctx, rx)

	s.logger.Info().
		Str("prescription_id", rx.ID).
		Str("signed_by", req.EcpID).
		Msg("prescription signed")

	return rx, nil
}

// CreateMedicalRecord attaches a clinical note to a patient
func (s *ClinicalService) CreateMedicalRecord(ctx context.Context, record *storage.MedicalRecord) error {
	return s.store.CreateMedicalRecord(ctx, record)
}

// ListMedicalRecords lists a patient's records
func (s *ClinicalService) ListMedicalRecords(ctx context.Context, companyID, patientID string, opts storage.ListOptions) ([]*storage.MedicalRecord, error) {
	return s.store.ListMedicalRecords(ctx, companyID, patientID, opts)
}

// CreateBooking schedules an appointment
func (s *ClinicalService) CreateBooking(ctx context.Context, booking *storage.AppointmentBooking) error {
	return s.store.CreateBooking(ctx, booking)
}

// GetBooking gets a booking by ID
func (s *ClinicalService) GetBooking(ctx context.Context, id, companyID string) (*storage.AppointmentBooking, error) {
	return s.store.GetBooking(ctx, id, companyID)
}

// ListBookings lists bookings, optionally narrowed to an ECP or status
func (s *ClinicalService) ListBookings(ctx context.Context, companyID string, ecpID, status *string, opts storage.ListOptions) ([]*storage.AppointmentBooking, error) {
	return s.store.ListBookings(ctx, companyID, ecpID, status, opts)
}

// UpdateBookingStatus moves a booking to a new status
func (s *ClinicalService) UpdateBookingStatus(ctx context.Context, id, companyID, status string) (*storage.AppointmentBooking, error) {
	return s.store.UpdateBookingStatus(ctx, id, companyID, status)
}
