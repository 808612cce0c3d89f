package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Count  int    `json:"count" validate:"gt=0"`
	Name   string `json:"name,omitempty" validate:"required,max=5"`
	Hidden int    `json:"-" validate:"min=2"`
}

func TestValidate_Valid(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Count: 1, Name: "go", Hidden: 2})

	assert.NoError(t, err)
}

func TestValidate_Messages(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Count: 0, Name: "toolong", Hidden: 1})
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, errs, 3)

	assert.Equal(t, ValidationError{Field: "count", Tag: "gt", Value: "0", Message: "count must be greater than 0"}, errs[0])
	assert.Equal(t, "name must be at most 5", errs[1].Message)
	assert.Equal(t, "Hidden", errs[2].Field)
	assert.Equal(t, "Hidden must be at least 2", errs[2].Message)
}

func TestValidate_NotAStruct(t *testing.T) {
	v := New()

	err := v.Validate(42)

	require.Error(t, err)
	_, ok := err.(ValidationErrors)
	assert.False(t, ok)
}
