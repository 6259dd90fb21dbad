package roles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optilens/optilens-backend/pkg/roles"
)

func TestIsValid(t *testing.T) {
	for _, role := range roles.All {
		assert.True(t, roles.IsValid(role), role)
	}

	assert.False(t, roles.IsValid("superuser"))
	assert.False(t, roles.IsValid(""))
	assert.False(t, roles.IsValid("ECP"))
}

func TestContains(t *testing.T) {
	set := []string{roles.ECP, roles.Admin}

	assert.True(t, roles.Contains(set, roles.Admin))
	assert.False(t, roles.Contains(set, roles.Supplier))
	assert.False(t, roles.Contains(nil, roles.ECP))
}

func TestUnion_DeduplicatesPreservingFirstAppearance(t *testing.T) {
	got := roles.Union(
		[]string{roles.ECP, roles.Admin},
		[]string{roles.Admin, roles.Dispenser},
		[]string{roles.ECP},
	)

	assert.Equal(t, []string{roles.ECP, roles.Admin, roles.Dispenser}, got)
}
