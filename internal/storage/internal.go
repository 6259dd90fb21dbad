package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// Internal holds the cross-tenant accessors used by background jobs and
// platform tooling. It is a separate type from Store so that request
// handlers, which receive a *Store, cannot reach an unscoped read
// without going through Internal() explicitly.
type Internal struct {
	db  *database.DB
	log *logger.Logger
}

// Internal returns the unscoped accessor set backed by the same
// connection pool.
func (s *Store) Internal() *Internal {
	return &Internal{db: s.db, log: s.log}
}

// GetUserByIDInternal fetches a user by ID across all companies.
func (i *Internal) GetUserByIDInternal(ctx context.Context, id string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := i.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByEmailInternal fetches a user by email across all companies.
// Used during sign-in, before a company context exists.
func (i *Internal) GetUserByEmailInternal(ctx context.Context, email string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`

	err := i.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetOrderInternal fetches an order by ID across all companies. Used by
// the lab callback path, which is keyed by order ID alone.
func (i *Internal) GetOrderInternal(ctx context.Context, id string) (*Order, error) {
	var order Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	err := i.db.GetContext(ctx, &order, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// UpdateOrderLabInternal records lab job progress on an order,
// unscoped. Sets sent_to_lab_at on the first job assignment.
func (i *Internal) UpdateOrderLabInternal(ctx context.Context, id, jobID, jobStatus string) (*Order, error) {
	query := `
		UPDATE orders
		SET job_id = $2, job_status = $3,
		    sent_to_lab_at = COALESCE(sent_to_lab_at, $4),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	var order Order
	err := i.db.GetContext(ctx, &order, query, id, jobID, jobStatus, time.Now().UTC())
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// UpdateOrderPDFInternal stores the generated work-ticket PDF location
// on an order, unscoped.
func (i *Internal) UpdateOrderPDFInternal(ctx context.Context, id, pdfURL string) (*Order, error) {
	query := `
		UPDATE orders SET pdf_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	var order Order
	err := i.db.GetContext(ctx, &order, query, id, pdfURL)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}
