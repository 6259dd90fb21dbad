package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
)

// EyeExamination records a patient's eye exam. Measurement fields are
// stored per eye (OD right, OS left).
type EyeExamination struct {
	ID         string    `db:"id" json:"id"`
	CompanyID  string    `db:"company_id" json:"company_id"`
	PatientID  string    `db:"patient_id" json:"patient_id"`
	EcpID      string    `db:"ecp_id" json:"ecp_id"`
	ExamDate   time.Time `db:"exam_date" json:"exam_date"`
	SphereOD   *float64  `db:"sphere_od" json:"sphere_od,omitempty"`
	SphereOS   *float64  `db:"sphere_os" json:"sphere_os,omitempty"`
	CylinderOD *float64  `db:"cylinder_od" json:"cylinder_od,omitempty"`
	CylinderOS *float64  `db:"cylinder_os" json:"cylinder_os,omitempty"`
	AxisOD     *int      `db:"axis_od" json:"axis_od,omitempty"`
	AxisOS     *int      `db:"axis_os" json:"axis_os,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Prescription is an optical prescription, optionally derived from an
// examination. Signing is an overwrite: re-signing replaces the previous
// signature.
type Prescription struct {
	ID               string     `db:"id" json:"id"`
	CompanyID        string     `db:"company_id" json:"company_id"`
	PatientID        string     `db:"patient_id" json:"patient_id"`
	EcpID            string     `db:"ecp_id" json:"ecp_id"`
	ExaminationID    *string    `db:"examination_id" json:"examination_id,omitempty"`
	LensType         *string    `db:"lens_type" json:"lens_type,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	IsSigned         bool       `db:"is_signed" json:"is_signed"`
	SignedByEcpID    *string    `db:"signed_by_ecp_id" json:"signed_by_ecp_id,omitempty"`
	DigitalSignature *string    `db:"digital_signature" json:"digital_signature,omitempty"`
	SignedAt         *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// MedicalRecord is a free-form clinical note attached to a patient.
type MedicalRecord struct {
	ID         string    `db:"id" json:"id"`
	CompanyID  string    `db:"company_id" json:"company_id"`
	PatientID  string    `db:"patient_id" json:"patient_id"`
	RecordType string    `db:"record_type" json:"record_type"`
	Content    string    `db:"content" json:"content"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AppointmentBooking is a scheduled patient appointment.
type AppointmentBooking struct {
	ID          string    `db:"id" json:"id"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	PatientID   string    `db:"patient_id" json:"patient_id"`
	EcpID       string    `db:"ecp_id" json:"ecp_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Status      string    `db:"status" json:"status"` // booked, completed, cancelled, no_show
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const examinationColumns = `id, company_id, patient_id, ecp_id, exam_date, sphere_od, sphere_os, cylinder_od, cylinder_os, axis_od, axis_os, notes, created_at, updated_at`

// CreateExamination records a new eye examination.
func (s *Store) CreateExamination(ctx context.Context, exam *EyeExamination) error {
	if exam.ID == "" {
		exam.ID = uuid.New().String()
	}
	if exam.ExamDate.IsZero() {
		exam.ExamDate = time.Now().UTC()
	}

	query := `
		INSERT INTO eye_examinations (id, company_id, patient_id, ecp_id, exam_date, sphere_od, sphere_os, cylinder_od, cylinder_os, axis_od, axis_os, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		exam.ID, exam.CompanyID, exam.PatientID, exam.EcpID, exam.ExamDate,
		exam.SphereOD, exam.SphereOS, exam.CylinderOD, exam.CylinderOS,
		exam.AxisOD, exam.AxisOS, exam.Notes,
	).Scan(&exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetExamination gets an examination by ID within the calling company.
func (s *Store) GetExamination(ctx context.Context, id, companyID string) (*EyeExamination, error) {
	var exam EyeExamination
	query := `SELECT ` + examinationColumns + ` FROM eye_examinations WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &exam, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("examination")
	}
	if err != nil {
		return nil, err
	}

	return &exam, nil
}

// ListExaminations lists a patient's examinations, newest exam first.
func (s *Store) ListExaminations(ctx context.Context, companyID, patientID string, opts ListOptions) ([]*EyeExamination, error) {
	limit, offset := opts.limits()

	query := `SELECT ` + examinationColumns + `
		FROM eye_examinations
		WHERE company_id = $1 AND patient_id = $2
		ORDER BY exam_date DESC
		LIMIT $3 OFFSET $4`

	var exams []*EyeExamination
	if err := s.db.SelectContext(ctx, &exams, query, companyID, patientID, limit, offset); err != nil {
		return nil, err
	}

	return exams, nil
}

const prescriptionColumns = `id, company_id, patient_id, ecp_id, examination_id, lens_type, notes, is_signed, signed_by_ecp_id, digital_signature, signed_at, created_at, updated_at`

// CreatePrescription creates a prescription, optionally referencing an
// examination. The referenced examination must belong to the same company.
func (s *Store) CreatePrescription(ctx context.Context, rx *Prescription) error {
	if rx.ID == "" {
		rx.ID = uuid.New().String()
	}

	if rx.ExaminationID != nil {
		if _, err := s.GetExamination(ctx, *rx.ExaminationID, rx.CompanyID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO prescriptions (id, company_id, patient_id, ecp_id, examination_id, lens_type, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		rx.ID, rx.CompanyID, rx.PatientID, rx.EcpID,
		rx.ExaminationID, rx.LensType, rx.Notes,
	).Scan(&rx.CreatedAt, &rx.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetPrescription gets a prescription by ID within the calling company.
func (s *Store) GetPrescription(ctx context.Context, id, companyID string) (*Prescription, error) {
	var rx Prescription
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &rx, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("prescription")
	}
	if err != nil {
		return nil, err
	}

	return &rx, nil
}

// ListPrescriptions lists a patient's prescriptions, newest first.
func (s *Store) ListPrescriptions(ctx context.Context, companyID, patientID string, opts ListOptions) ([]*Prescription, error) {
	limit, offset := opts.limits()

	query := `SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE company_id = $1 AND patient_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var rxs []*Prescription
	if err := s.db.SelectContext(ctx, &rxs, query, companyID, patientID, limit, offset); err != nil {
		return nil, err
	}

	return rxs, nil
}

// SignPrescription records a digital signature on a prescription.
// Re-signing overwrites the previous signature.
func (s *Store) SignPrescription(ctx context.Context, id, companyID, ecpID, signature string) (*Prescription, error) {
	query := `
		UPDATE prescriptions
		SET is_signed = TRUE, signed_by_ecp_id = $3, digital_signature = $4, signed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + prescriptionColumns

	var rx Prescription
	err := s.db.GetContext(ctx, &rx, query, id, companyID, ecpID, signature)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("prescription")
	}
	if err != nil {
		return nil, err
	}

	return &rx, nil
}

// CreateMedicalRecord attaches a clinical note to a patient.
func (s *Store) CreateMedicalRecord(ctx context.Context, record *MedicalRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medical_records (id, company_id, patient_id, record_type, content, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		record.ID, record.CompanyID, record.PatientID,
		record.RecordType, record.Content, record.CreatedBy,
	).Scan(&record.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// ListMedicalRecords lists a patient's records, newest first.
func (s *Store) ListMedicalRecords(ctx context.Context, companyID, patientID string, opts ListOptions) ([]*MedicalRecord, error) {
	limit, offset := opts.limits()

	query := `
		SELECT id, company_id, patient_id, record_type, content, created_by, created_at
		FROM medical_records
		WHERE company_id = $1 AND patient_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var records []*MedicalRecord
	if err := s.db.SelectContext(ctx, &records, query, companyID, patientID, limit, offset); err != nil {
		return nil, err
	}

	return records, nil
}

const bookingColumns = `id, company_id, patient_id, ecp_id, scheduled_at, status, reason, created_at, updated_at`

// CreateBooking schedules an appointment.
func (s *Store) CreateBooking(ctx context.Context, booking *AppointmentBooking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.Status == "" {
		booking.Status = "booked"
	}

	query := `
		INSERT INTO appointment_bookings (id, company_id, patient_id, ecp_id, scheduled_at, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		booking.ID, booking.CompanyID, booking.PatientID, booking.EcpID,
		booking.ScheduledAt, booking.Status, booking.Reason,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetBooking gets a booking by ID within the calling company.
func (s *Store) GetBooking(ctx context.Context, id, companyID string) (*AppointmentBooking, error) {
	var booking AppointmentBooking
	query := `SELECT ` + bookingColumns + ` FROM appointment_bookings WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &booking, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("booking")
	}
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

// ListBookings lists bookings in the company, soonest first, optionally
// narrowed to an ECP or a status.
func (s *Store) ListBookings(ctx context.Context, companyID string, ecpID, status *string, opts ListOptions) ([]*AppointmentBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM appointment_bookings WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if ecpID != nil {
		query += fmt.Sprintf(` AND ecp_id = $%d`, argIdx)
		args = append(args, *ecpID)
		argIdx++
	}
	if status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, *status)
		argIdx++
	}

	limit, offset := opts.limits()
	query += fmt.Sprintf(` ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var bookings []*AppointmentBooking
	if err := s.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, err
	}

	return bookings, nil
}

// UpdateBookingStatus moves a booking to a new status.
func (s *Store) UpdateBookingStatus(ctx context.Context, id, companyID, status string) (*AppointmentBooking, error) {
	switch status {
	case "booked", "completed", "cancelled", "no_show":
	default:
		return nil, errors.BadRequest("unknown booking status: " + status)
	}

	query := `
		UPDATE appointment_bookings SET status = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + bookingColumns

	var booking AppointmentBooking
	err := s.db.GetContext(ctx, &booking, query, id, companyID, status)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("booking")
	}
	if err != nil {
		return nil, err
	}

	return &booking, nil
}
