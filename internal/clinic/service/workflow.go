package service

import (
	"context"
	"encoding/json"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// DefaultMaxWorkflowRuns caps automation runs per (workflow, patient)
// pair. The run count row is bumped on every start, so the cap holds
// across restarts.
const DefaultMaxWorkflowRuns = 50

// workflowStore is the slice of storage the workflow service uses.
type workflowStore interface {
	CreateWorkflow(ctx context.Context, wf *storage.Workflow) error
	GetWorkflow(ctx context.Context, id, companyID string) (*storage.Workflow, error)
	ListWorkflows(ctx context.Context, companyID string, opts storage.ListOptions) ([]*storage.Workflow, error)
	StartWorkflowInstance(ctx context.Context, instance *storage.WorkflowInstance) error
	GetWorkflowInstance(ctx context.Context, id, companyID string) (*storage.WorkflowInstance, error)
	CompleteWorkflowInstance(ctx context.Context, id, companyID, status string, state json.RawMessage) (*storage.WorkflowInstance, error)
	GetRunCount(ctx context.Context, companyID, workflowID, patientID string) (int, error)
}

// WorkflowService handles workflow templates and their runs
type WorkflowService struct {
	store   workflowStore
	logger  *logger.Logger
	maxRuns int
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(store workflowStore, log *logger.Logger) *WorkflowService {
	return &WorkflowService{
		store:   store,
		logger:  log,
		maxRuns: DefaultMaxWorkflowRuns,
	}
}

// CreateWorkflowRequest carries the fields to define a workflow
type CreateWorkflowRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty"`
	Steps       json.RawMessage `json:"steps,omitempty"`
	Active      bool            `json:"active"`
}

// CreateWorkflow defines a new workflow template
func (s *WorkflowService) CreateWorkflow(ctx context.Context, companyID string, req CreateWorkflowRequest) (*storage.Workflow, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	wf := &storage.Workflow{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Active:      req.Active,
	}

	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("workflow_id", wf.ID).
		Str("company_id", companyID).
		Msg("workflow created")

	return wf, nil
}

// GetWorkflow gets a workflow template by ID
func (s *WorkflowService) GetWorkflow(ctx context.Context, id, companyID string) (*storage.Workflow, error) {
	return s.store.GetWorkflow(ctx, id, companyID)
}

// ListWorkflows lists workflow templates in the company
func (s *WorkflowService) ListWorkflows(ctx context.Context, companyID string, opts storage.ListOptions) ([]*storage.Workflow, error) {
	return s.store.ListWorkflows(ctx, companyID, opts)
}

// StartInstanceRequest carries the fields to start a workflow run
type StartInstanceRequest struct {
	WorkflowID string          `json:"workflow_id" validate:"required,uuid"`
	PatientID  string          `json:"patient_id" validate:"required,uuid"`
	State      json.RawMessage `json:"state,omitempty"`
}

// StartInstance starts a workflow run for a patient. Runs beyond the
// per-patient cap are refused before anything is written.
func (s *WorkflowService) StartInstance(ctx context.Context, companyID string, req StartInstanceRequest) (*storage.WorkflowInstance, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	count, err := s.store.GetRunCount(ctx, companyID, req.WorkflowID, req.PatientID)
	if err != nil {
		return nil, err
	}
	if count >= s.maxRuns {
		return nil, errors.Conflict("workflow run limit reached for patient")
	}

	instance := &storage.WorkflowInstance{
		CompanyID:  companyID,
		WorkflowID: req.WorkflowID,
		PatientID:  req.PatientID,
		State:      req.State,
	}

	if err := s.store.StartWorkflowInstance(ctx, instance); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("instance_id", instance.ID).
		Str("workflow_id", instance.WorkflowID).
		Str("patient_id", instance.PatientID).
		Msg("workflow instance started")

	return instance, nil
}

// GetInstance gets a workflow run by ID
func (s *WorkflowService) GetInstance(ctx context.Context, id, companyID string) (*storage.WorkflowInstance, error) {
	return s.store.GetWorkflowInstance(ctx, id, companyID)
}

// CompleteInstance finishes a running workflow instance
func (s *WorkflowService) CompleteInstance(ctx context.Context, id, companyID, status string, state json.RawMessage) (*storage.WorkflowInstance, error) {
	instance, err := s.store.CompleteWorkflowInstance(ctx, id, companyID, status, state)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("instance_id", instance.ID).
		Str("status", instance.Status).
		Msg("workflow instance completed")

	return instance, nil
}

// GetRunCount returns how many times a workflow has run for a patient
func (s *WorkflowService) GetRunCount(ctx context.Context, companyID, workflowID, patientID string) (int, error) {
	return s.store.GetRunCount(ctx, companyID, workflowID, patientID)
}
