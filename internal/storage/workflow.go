package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
)

// Workflow is a company-defined clinical or administrative process
// template. Steps are stored as an opaque JSON document.
type Workflow struct {
	ID          string          `db:"id" json:"id"`
	CompanyID   string          `db:"company_id" json:"company_id"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	Steps       json.RawMessage `db:"steps" json:"steps"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// WorkflowInstance is a single run of a workflow for a patient.
type WorkflowInstance struct {
	ID          string          `db:"id" json:"id"`
	CompanyID   string          `db:"company_id" json:"company_id"`
	WorkflowID  string          `db:"workflow_id" json:"workflow_id"`
	PatientID   string          `db:"patient_id" json:"patient_id"`
	Status      string          `db:"status" json:"status"` // running, completed, aborted
	State       json.RawMessage `db:"state" json:"state"`
	StartedAt   time.Time       `db:"started_at" json:"started_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// WorkflowRunCount tracks how many times a workflow has run for a
// patient. One row per (workflow, patient) pair.
type WorkflowRunCount struct {
	WorkflowID string    `db:"workflow_id" json:"workflow_id"`
	PatientID  string    `db:"patient_id" json:"patient_id"`
	CompanyID  string    `db:"company_id" json:"company_id"`
	RunCount   int       `db:"run_count" json:"run_count"`
	LastRunAt  time.Time `db:"last_run_at" json:"last_run_at"`
}

const workflowColumns = `id, company_id, name, description, steps, active, created_at, updated_at`

// CreateWorkflow defines a new workflow template.
func (s *Store) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}
	if wf.Steps == nil {
		wf.Steps = json.RawMessage(`[]`)
	}

	query := `
		INSERT INTO workflows (id, company_id, name, description, steps, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query,
		wf.ID, wf.CompanyID, wf.Name, wf.Description, wf.Steps, wf.Active,
	).Scan(&wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetWorkflow gets a workflow by ID within the calling company.
func (s *Store) GetWorkflow(ctx context.Context, id, companyID string) (*Workflow, error) {
	var wf Workflow
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &wf, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("workflow")
	}
	if err != nil {
		return nil, err
	}

	return &wf, nil
}

// ListWorkflows lists workflow templates in the company.
func (s *Store) ListWorkflows(ctx context.Context, companyID string, opts ListOptions) ([]*Workflow, error) {
	limit, offset := opts.limits()

	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE company_id = $1
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`

	var wfs []*Workflow
	if err := s.db.SelectContext(ctx, &wfs, query, companyID, limit, offset); err != nil {
		return nil, err
	}

	return wfs, nil
}

const instanceColumns = `id, company_id, workflow_id, patient_id, status, state, started_at, completed_at`

// StartWorkflowInstance starts a workflow run for a patient and bumps
// the per-patient run count in the same transaction.
func (s *Store) StartWorkflowInstance(ctx context.Context, instance *WorkflowInstance) error {
	if instance.ID == "" {
		instance.ID = uuid.New().String()
	}
	if instance.Status == "" {
		instance.Status = "running"
	}
	if instance.State == nil {
		instance.State = json.RawMessage(`{}`)
	}

	if _, err := s.GetWorkflow(ctx, instance.WorkflowID, instance.CompanyID); err != nil {
		return err
	}
	if _, err := s.GetPatient(ctx, instance.PatientID, instance.CompanyID); err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO workflow_instances (id, company_id, workflow_id, patient_id, status, state)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING started_at
		`
		err := s.db.QueryRowxContext(ctx, query,
			instance.ID, instance.CompanyID, instance.WorkflowID,
			instance.PatientID, instance.Status, instance.State,
		).Scan(&instance.StartedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		return s.incrementRunCount(ctx, instance.CompanyID, instance.WorkflowID, instance.PatientID)
	})
}

// incrementRunCount upserts the (workflow, patient) counter row.
func (s *Store) incrementRunCount(ctx context.Context, companyID, workflowID, patientID string) error {
	query := `
		INSERT INTO workflow_run_counts (workflow_id, patient_id, company_id, run_count, last_run_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (workflow_id, patient_id)
		DO UPDATE SET run_count = workflow_run_counts.run_count + 1, last_run_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, workflowID, patientID, companyID); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// GetWorkflowInstance gets a run by ID within the calling company.
func (s *Store) GetWorkflowInstance(ctx context.Context, id, companyID string) (*WorkflowInstance, error) {
	var instance WorkflowInstance
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = $1 AND company_id = $2`

	err := s.db.GetContext(ctx, &instance, query, id, companyID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("workflow instance")
	}
	if err != nil {
		return nil, err
	}

	return &instance, nil
}

// CompleteWorkflowInstance finishes a run. Status must be completed or
// aborted.
func (s *Store) CompleteWorkflowInstance(ctx context.Context, id, companyID, status string, state json.RawMessage) (*WorkflowInstance, error) {
	if status != "completed" && status != "aborted" {
		return nil, errors.BadRequest("terminal status must be completed or aborted")
	}
	if state == nil {
		state = json.RawMessage(`{}`)
	}

	query := `
		UPDATE workflow_instances
		SET status = $3, state = $4, completed_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'running'
		RETURNING ` + instanceColumns

	var instance WorkflowInstance
	err := s.db.GetContext(ctx, &instance, query, id, companyID, status, state)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("workflow instance")
	}
	if err != nil {
		return nil, err
	}

	return &instance, nil
}

// GetRunCount returns how many times a workflow has run for a patient.
// Zero runs is not an error.
func (s *Store) GetRunCount(ctx context.Context, companyID, workflowID, patientID string) (int, error) {
	var count int
	query := `
		SELECT run_count FROM workflow_run_counts
		WHERE workflow_id = $1 AND patient_id = $2 AND company_id = $3
	`

	err := s.db.GetContext(ctx, &count, query, workflowID, patientID, companyID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return count, nil
}
