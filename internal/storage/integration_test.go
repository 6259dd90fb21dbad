package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/roles"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

// setupIntegration spins up a PostgreSQL container with the full schema
// applied and returns a store backed by it.
func setupIntegration(t *testing.T) *storage.Store {
	t.Helper()
	testutil.SkipUnlessIntegration(t)

	ctx := context.Background()
	container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	db, err := container.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, container.ApplyMigrations(ctx, db, "../../migrations"))

	return storage.New(database.Wrap(db, logger.Nop()), logger.Nop())
}

// seedCompanyWithEcp creates a company and one active ECP in it.
func seedCompanyWithEcp(t *testing.T, store *storage.Store, name, slug string) (*storage.Company, *storage.User) {
	t.Helper()
	ctx := context.Background()

	company := &storage.Company{Name: name, Slug: slug}
	require.NoError(t, store.CreateCompany(ctx, company))

	fixture := testutil.NewUserFixture(company.ID, slug+"-ecp@example.com")
	user := &storage.User{
		CompanyID:     &company.ID,
		Email:         fixture.Email,
		PasswordHash:  fixture.PasswordHash,
		FirstName:     fixture.FirstName,
		LastName:      fixture.LastName,
		Role:          roles.ECP,
		AccountStatus: "active",
	}
	require.NoError(t, store.CreateUser(ctx, user))

	return company, user
}

func TestIntegration_TenantIsolation(t *testing.T) {
	store := setupIntegration(t)
	ctx := context.Background()

	companyA, ecpA := seedCompanyWithEcp(t, store, "Clinic A", "clinic-a")
	companyB, _ := seedCompanyWithEcp(t, store, "Clinic B", "clinic-b")

	patient := &storage.Patient{
		CompanyID: companyA.ID,
		EcpID:     ecpA.ID,
		FirstName: "Pat",
		LastName:  "Example",
	}
	require.NoError(t, store.CreatePatient(ctx, patient))

	// The owning company reads the record back intact.
	got, err := store.GetPatient(ctx, patient.ID, companyA.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.CustomerNumber, got.CustomerNumber)

	// A foreign company sees not-found, identical to a missing ID.
	_, err = store.GetPatient(ctx, patient.ID, companyB.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = store.UpdatePatient(ctx, patient.ID, companyB.ID, storage.PatientPatch{FirstName: strPtr("Hijacked")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = store.DeletePatient(ctx, patient.ID, companyB.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// The record is untouched after the foreign attempts.
	got, err = store.GetPatient(ctx, patient.ID, companyA.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", got.FirstName)
}

func TestIntegration_CustomerNumbersUniqueUnderConcurrency(t *testing.T) {
	store := setupIntegration(t)
	ctx := context.Background()

	company, ecp := seedCompanyWithEcp(t, store, "Clinic A", "clinic-a")

	const n = 20
	numbers := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			patient := &storage.Patient{
				CompanyID: company.ID,
				EcpID:     ecp.ID,
				FirstName: "Pat",
				LastName:  "Example",
			}
			if err := store.CreatePatient(ctx, patient); err == nil {
				numbers[i] = patient.CustomerNumber
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, num := range numbers {
		require.NotEmpty(t, num)
		assert.False(t, seen[num], "duplicate customer number %s", num)
		seen[num] = true
	}
}

func TestIntegration_RoleSwitchGating(t *testing.T) {
	store := setupIntegration(t)
	ctx := context.Background()

	company, ecp := seedCompanyWithEcp(t, store, "Clinic A", "clinic-a")

	// No grant for admin yet: the switch is forbidden and the active
	// role is unchanged.
	_, err := store.SwitchUserRole(ctx, ecp.ID, company.ID, roles.Admin)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	unchanged, err := store.GetUser(ctx, ecp.ID, company.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.ECP, unchanged.Role)

	// After the grant the same switch succeeds.
	require.NoError(t, store.GrantUserRole(ctx, ecp.ID, company.ID, roles.Admin, nil))

	available, err := store.AvailableRoles(ctx, ecp.ID, company.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{roles.ECP, roles.Admin}, available)

	switched, err := store.SwitchUserRole(ctx, ecp.ID, company.ID, roles.Admin)
	require.NoError(t, err)
	assert.Equal(t, roles.Admin, switched.Role)
}

func TestIntegration_PaymentMonotonicity(t *testing.T) {
	store := setupIntegration(t)
	ctx := context.Background()

	company, ecp := seedCompanyWithEcp(t, store, "Clinic A", "clinic-a")

	invoice := &storage.Invoice{CompanyID: company.ID, EcpID: ecp.ID}
	items := []*storage.InvoiceLineItem{
		{Description: "Lenses", Quantity: 2, UnitPriceCents: 4500},
		{Description: "Fitting", Quantity: 1, UnitPriceCents: 3000},
	}
	require.NoError(t, store.CreateInvoice(ctx, invoice, items))
	require.Equal(t, int64(12000), invoice.TotalCents)

	// Partial payment leaves the invoice in draft.
	after, err := store.RecordPayment(ctx, invoice.ID, company.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), after.AmountPaidCents)
	assert.Equal(t, storage.InvoiceStatusDraft, after.Status)

	// The settling payment flips status exactly at the total.
	after, err = store.RecordPayment(ctx, invoice.ID, company.ID, 7000)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), after.AmountPaidCents)
	assert.Equal(t, storage.InvoiceStatusPaid, after.Status)

	// A voided invoice rejects further payments as not-found.
	void := &storage.Invoice{CompanyID: company.ID, EcpID: ecp.ID}
	require.NoError(t, store.CreateInvoice(ctx, void, []*storage.InvoiceLineItem{
		{Description: "Exam", Quantity: 1, UnitPriceCents: 2000},
	}))
	_, err = store.VoidInvoice(ctx, void.ID, company.ID)
	require.NoError(t, err)
	_, err = store.RecordPayment(ctx, void.ID, company.ID, 2000)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func strPtr(s string) *string { return &s }
