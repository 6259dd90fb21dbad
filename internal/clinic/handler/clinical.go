package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optilens/optilens-backend/internal/clinic/service"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/tenant"
)

// ClinicalHandler handles examinations, prescriptions, medical records
// and appointment bookings
type ClinicalHandler struct {
	service *service.ClinicalService
	logger  *logger.Logger
}

// NewClinicalHandler creates a new clinical handler
func NewClinicalHandler(svc *service.ClinicalService, log *logger.Logger) *ClinicalHandler {
	return &ClinicalHandler{service: svc, logger: log}
}

// CreateExamination records an eye examination
func (h *ClinicalHandler) CreateExamination(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var exam storage.EyeExamination
	if err := httputil.DecodeJSON(r, &exam); err != nil {
		httputil.Error(w, err)
		return
	}
	exam.CompanyID = companyID

	if err := h.service.CreateExamination(r.Context(), &exam); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, exam)
}

// GetExamination gets an examination by ID
func (h *ClinicalHandler) GetExamination(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	exam, err := h.service.GetExamination(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, exam)
}

// ListExaminations lists a patient's examinations
func (h *ClinicalHandler) ListExaminations(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	opts := listOptions(r)
	exams, err := h.service.ListExaminations(r.Context(), companyID, chi.URLParam(r, "id"), opts)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, exams, &httputil.Meta{Limit: opts.Limit, Offset: opts.Offset})
}

// CreatePrescription creates a prescription
func (h *ClinicalHandler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var rx storage.Prescription
	if err := httputil.DecodeJSON(r, &rx); err != nil {
		httputil.Error(w, err)
		return
	}
	rx.CompanyID = companyID

	if err := h.service.CreatePrescription(r.Context(), &rx); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, rx)
}

// GetPrescription gets a prescription by ID
func (h *ClinicalHandler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rx, err := h.service.GetPrescription(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rx)
}

// ListPrescriptions lists a patient's prescriptions
func (h *ClinicalHandler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	opts := listOptions(r)
	scripts, err := h.service.ListPrescriptions(r.Context(), companyID, chi.URLParam(r, "id"), opts)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, scripts, &httputil.Meta{Limit: opts.Limit, Offset: opts.Offset})
}

// SignPrescription signs a prescription
func (h *ClinicalHandler) SignPrescription(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.SignPrescriptionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rx, err := h.service.SignPrescription(r.Context(), chi.URLParam(r, "id"), companyID, req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rx)
}

// CreateMedicalRecord attaches a clinical note to a patient
func (h *ClinicalHandler) CreateMedicalRecord(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var record storage.MedicalRecord
	if err := httputil.DecodeJSON(r, &record); err != nil {
		httputil.Error(w, err)
		return
	}
	record.CompanyID = companyID

	if err := h.service.CreateMedicalRecord(r.Context(), &record); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, record)
}

// ListMedicalRecords lists a patient's records
func (h *ClinicalHandler) ListMedicalRecords(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	opts := listOptions(r)
	records, err := h.service.ListMedicalRecords(r.Context(), companyID, chi.URLParam(r, "id"), opts)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, records, &httputil.Meta{Limit: opts.Limit, Offset: opts.Offset})
}

// CreateBooking schedules an appointment
func (h *ClinicalHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var booking storage.AppointmentBooking
	if err := httputil.DecodeJSON(r, &booking); err != nil {
		httputil.Error(w, err)
		return
	}
	booking.CompanyID = companyID

	if err := h.service.CreateBooking(r.Context(), &booking); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, booking)
}

// ListBookings lists bookings, optionally narrowed to an ECP or status
func (h *ClinicalHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	opts := listOptions(r)
	bookings, err := h.service.ListBookings(r.Context(), companyID,
		optionalQuery(r, "ecp_id"), optionalQuery(r, "status"), opts)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, bookings, &httputil.Meta{Limit: opts.Limit, Offset: opts.Offset})
}

// GetBooking gets a booking by ID
func (h *ClinicalHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), chi.URLParam(r, "id"), companyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, booking)
}

// UpdateBookingStatusRequest carries the new booking status
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateBookingStatus moves a booking to a new status
func (h *ClinicalHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.CompanyID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req UpdateBookingStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	booking, err := h.service.UpdateBookingStatus(r.Context(), chi.URLParam(r, "id"), companyID, req.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, booking)
}
