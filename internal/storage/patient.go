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

// Patient represents a patient record owned by a company and an ECP.
// CustomerNumber is assigned server-side from a dedicated sequence at
// creation and never regenerated.
type Patient struct {
	ID             string     `db:"id" json:"id"`
	CompanyID      string     `db:"company_id" json:"company_id"`
	EcpID          string     `db:"ecp_id" json:"ecp_id"`
	CustomerNumber string     `db:"customer_number" json:"customer_number"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PatientFilter narrows ListPatients. Absent fields emit no predicate.
type PatientFilter struct {
	EcpID  *string
	Search *string // matches name or customer number, case-insensitive substring
	ListOptions
}

// PatientPatch is a partial update. The customer number is immutable.
type PatientPatch struct {
	EcpID       *string    `json:"ecp_id,omitempty"`
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

const patientColumns = `id, company_id, ecp_id, customer_number, first_name, last_name, email, phone, date_of_birth, created_at, updated_at`

// CreatePatient creates a patient. The customer number is computed inside
// the INSERT from the customer_number_seq sequence, so concurrent creates
// can never collide.
func (s *Store) CreatePatient(ctx context.Context, patient *Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}

	query := `
		INSERT INTO patients (id, company_id, ecp_id, customer_number, first_name, last_name, email, phone, date_of_birth)
		VALUES ($1, $2, $3, 'CUST-' || lpad(nextval('customer_number_seq')::text, 6, '0'), $4, $5, $6, $7, $8)
		RETURNING customer_number, created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		patient.ID, patient.CompanyID, patient.EcpID,
		patient.FirstName, patient.LastName, patient.Email, patient.Phone, patient.DateOfBirth,
	).Scan(&patient.CustomerNumber, &patient.CreatedAt, &patient.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetPatient gets a patient by ID within the calling company.
func (s *Store) GetPatient(ctx context.Context, id, companyID string) (*Patient, error) {
	var patient Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &patient, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient")
	}
	if err != nil {
		return nil, err
	}

	return &patient, nil
}

// ListPatients lists patients in the company, newest first.
func (s *Store) ListPatients(ctx context.Context, companyID string, filter PatientFilter) ([]*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EcpID != nil {
		query += fmt.Sprintf(` AND ecp_id = $%d`, argIdx)
		args = append(args, *filter.EcpID)
		argIdx++
	}
	if filter.Search != nil {
		query += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR customer_number ILIKE $%d)`, argIdx, argIdx, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	limit, offset := filter.limits()
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	var patients []*Patient
	if err := s.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, err
	}

	return patients, nil
}

// UpdatePatient applies a partial update to a patient in the calling company.
func (s *Store) UpdatePatient(ctx context.Context, id, companyID string, patch PatientPatch) (*Patient, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, companyID}
	argIdx := 3

	if patch.EcpID != nil {
		sets = append(sets, fmt.Sprintf("ecp_id = $%d", argIdx))
		args = append(args, *patch.EcpID)
		argIdx++
	}
	if patch.FirstName != nil {
		sets = append(sets, fmt.Sprintf("first_name = $%d", argIdx))
		args = append(args, *patch.FirstName)
		argIdx++
	}
	if patch.LastName != nil {
		sets = append(sets, fmt.Sprintf("last_name = $%d", argIdx))
		args = append(args, *patch.LastName)
		argIdx++
	}
	if patch.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", argIdx))
		args = append(args, strings.ToLower(strings.TrimSpace(*patch.Email)))
		argIdx++
	}
	if patch.Phone != nil {
		sets = append(sets, fmt.Sprintf("phone = $%d", argIdx))
		args = append(args, *patch.Phone)
		argIdx++
	}
	if patch.DateOfBirth != nil {
		sets = append(sets, fmt.Sprintf("date_of_birth = $%d", argIdx))
		args = append(args, *patch.DateOfBirth)
		argIdx++
	}

	query := `UPDATE patients SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND company_id = $2
		RETURNING ` + patientColumns

	var patient Patient
	err := s.db.GetContext(ctx, &patient, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return &patient, nil
}

// DeletePatient removes a patient in the calling company. A foreign or
// nonexistent ID reports not found either way.
func (s *Store) DeletePatient(ctx context.Context, id, companyID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("patient")
	}

	return nil
}
