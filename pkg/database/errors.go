package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/optilens/optilens-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
//
// Unique violations on generated business numbers (order/invoice/PO numbers)
// surface as Conflict so callers can regenerate and retry.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "email_format"):
		return errors.Validation(map[string]string{
			"email": "must be a valid email address",
		})

	case strings.Contains(constraint, "order_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: pending, in_production, quality_check, shipped, completed, on_hold, cancelled",
		})

	case strings.Contains(constraint, "invoice_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: draft, paid, void",
		})

	case strings.Contains(constraint, "account_status_valid"):
		return errors.Validation(map[string]string{
			"account_status": "must be one of: pending, active, suspended",
		})

	case strings.Contains(constraint, "amount_positive"):
		return errors.Validation(map[string]string{
			"amount": "must be greater than zero",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "order_number"):
		return "an order with this order number already exists"
	case strings.Contains(constraint, "invoice_number"):
		return "an invoice with this invoice number already exists"
	case strings.Contains(constraint, "po_number"):
		return "a purchase order with this PO number already exists"
	case strings.Contains(constraint, "customer_number"):
		return "a patient with this customer number already exists"
	case strings.Contains(constraint, "workflow_patient"):
		return "a run counter for this workflow and patient already exists"
	case strings.Contains(constraint, "email"):
		return "a user with this email already exists"
	case strings.Contains(constraint, "slug"):
		return "a company with this slug already exists"
	default:
		return "a record with these values already exists"
	}
}
