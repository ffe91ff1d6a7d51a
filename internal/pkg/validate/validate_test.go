package validate

import (
	"errors"
	"testing"

	"github.com/medmarket-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Role   string `json:"role" validate:"required,role"`
	Intent string `json:"intent" validate:"omitempty,intent"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "a", Role: domain.RoleVendor, Intent: "login"}))
}

func TestStruct_UnknownRoleRejected(t *testing.T) {
	err := Struct(sample{Name: "a", Role: "admin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "field 'Role' failed 'role'")
}

func TestStruct_JoinsMessages(t *testing.T) {
	err := Struct(sample{Intent: "reset"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Name' failed 'required'")
	assert.Contains(t, err.Error(), "field 'Intent' failed 'intent'")
}
