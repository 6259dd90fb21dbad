// Package tenant carries the authenticated caller's company through the
// request context. The transport layer resolves the company once (from the
// session of the authenticated user) and stores it here; services read it a
// single time and pass the company ID as an explicit parameter into every
// scoped storage call. Storage itself never reads the context for tenancy.
package tenant

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const (
	companyIDKey contextKey = "company_id"
	userIDKey    contextKey = "user_id"
)

// ErrNoCompanyInContext is returned when the tenant context is missing
var ErrNoCompanyInContext = errors.New("no company in context")

// WithCompanyID adds the caller's company ID to the context
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyIDKey, companyID)
}

// WithUserID adds the caller's user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// CompanyID extracts the company ID from the context.
// Returns ErrNoCompanyInContext if it is not present.
func CompanyID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(companyIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoCompanyInContext
	}
	return id, nil
}

// UserID extracts the acting user's ID from the context, if present.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// MustCompanyID extracts the company ID and panics if it is missing.
// Use only where a missing tenant is a programming error, never on a
// request path.
func MustCompanyID(ctx context.Context) string {
	id, err := CompanyID(ctx)
	if err != nil {
		panic("company ID not found in context")
	}
	return id
}
