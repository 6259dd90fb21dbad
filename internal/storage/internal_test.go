package storage_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

func TestInternalGetUser_OmitsCompanyPredicate(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM users WHERE id = \$1$`).
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "company-1", "ecp"))

	user, err := store.Internal().GetUserByIDInternal(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestInternalGetUserByEmail_LowercasesInQuery(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`FROM users WHERE email = lower\(\$1\)`).
		WithArgs("Eye@Example.com").
		WillReturnRows(userRow("user-1", "company-1", "ecp"))

	user, err := store.Internal().GetUserByEmailInternal(ctx, "Eye@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestInternalUpdateOrderLab_SetsSentToLabOnce(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`UPDATE orders SET job_id = \$2, job_status = \$3, sent_to_lab_at = COALESCE\(sent_to_lab_at, \$4\)`).
		WithArgs("order-1", "JOB-77", "queued", testutil.AnyTime{}).
		WillReturnRows(orderRow("order-1", "in_production"))

	order, err := store.Internal().UpdateOrderLabInternal(ctx, "order-1", "JOB-77", "queued")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestInternalUpdateOrderPDF_UnknownOrderReportsNotFound(t *testing.T) {
	store, mockDB := newStore(t)
	ctx := context.Background()

	mockDB.Mock.ExpectQuery(`UPDATE orders SET pdf_url = \$2`).
		WithArgs("order-1", "https://cdn.optilens.app/tickets/order-1.pdf").
		WillReturnError(sql.ErrNoRows)

	order, err := store.Internal().UpdateOrderPDFInternal(ctx, "order-1", "https://cdn.optilens.app/tickets/order-1.pdf")
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
