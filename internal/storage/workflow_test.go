package storage_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

func workflowRow(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "company_id", "name", "description", "steps", "active", "created_at", "updated_at",
	}).AddRow(id, "company-1", "Annual exam", nil, []byte(`[]`), true, now, now)
}

func patientSummaryRow(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "company_id", "ecp_id", "customer_number", "first_name", "last_name",
		"email", "phone", "date_of_birth", "created_at", "updated_at",
	}).AddRow(id, "company-1", "ecp-1", "CUST-000001", "Pat", "Example", nil, nil, nil, now, now)
}

func TestStartWorkflowInstance_BumpsRunCountInSameTransaction(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM workflows WHERE id = \$1 AND company_id = \$2`).
		WithArgs("wf-1", "company-1").
		WillReturnRows(workflowRow("wf-1"))
	mockDB.Mock.ExpectQuery(`FROM patients WHERE id = \$1 AND company_id = \$2`).
		WithArgs("patient-1", "company-1").
		WillReturnRows(patientSummaryRow("patient-1"))

	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery(`INSERT INTO workflow_instances`).
		WithArgs(testutil.AnyUUID{}, "company-1", "wf-1", "patient-1", "running", []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"started_at"}).AddRow(time.Now()))
	mockDB.Mock.ExpectExec(`INSERT INTO workflow_run_counts .+ ON CONFLICT \(workflow_id, patient_id\) DO UPDATE SET run_count = workflow_run_counts\.run_count \+ 1`).
		WithArgs("wf-1", "patient-1", "company-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	instance := &storage.WorkflowInstance{
		CompanyID:  "company-1",
		WorkflowID: "wf-1",
		PatientID:  "patient-1",
	}
	require.NoError(t, store.StartWorkflowInstance(ctx, instance))
	assert.Equal(t, "running", instance.Status)
	assert.False(t, instance.StartedAt.IsZero())

	mockDB.ExpectationsWereMet(t)
}

func TestStartWorkflowInstance_ForeignWorkflowReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM workflows WHERE id = \$1 AND company_id = \$2`).
		WithArgs("wf-1", "other-company").
		WillReturnError(sql.ErrNoRows)

	err := store.StartWorkflowInstance(ctx, &storage.WorkflowInstance{
		CompanyID:  "other-company",
		WorkflowID: "wf-1",
		PatientID:  "patient-1",
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestCompleteWorkflowInstance_RejectsNonTerminalStatus(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	instance, err := store.CompleteWorkflowInstance(ctx, "inst-1", "company-1", "running", nil)
	assert.Nil(t, instance)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	mockDB.ExpectationsWereMet(t)
}

func TestCompleteWorkflowInstance_OnlyRunningInstancesMatch(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	state := json.RawMessage(`{"step":3}`)
	mockDB.Mock.ExpectQuery(`UPDATE workflow_instances SET status = \$3, state = \$4, completed_at = NOW\(\) WHERE id = \$1 AND company_id = \$2 AND status = 'running'`).
		WithArgs("inst-1", "company-1", "completed", []byte(state)).
		WillReturnError(sql.ErrNoRows)

	instance, err := store.CompleteWorkflowInstance(ctx, "inst-1", "company-1", "completed", state)
	assert.Nil(t, instance)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestGetRunCount_NoRowsMeansZero(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`SELECT run_count FROM workflow_run_counts`).
		WithArgs("wf-1", "patient-1", "company-1").
		WillReturnError(sql.ErrNoRows)

	count, err := store.GetRunCount(ctx, "company-1", "wf-1", "patient-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	mockDB.ExpectationsWereMet(t)
}
