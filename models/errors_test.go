package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("%w: Resolved -> Open", ErrInvalidTransition)

	assert.Equal(t, "Invalid status transition: Resolved -> Open", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	assert.True(t, errors.Is(ErrIssueNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrNotReporter, ErrForbidden))
	assert.True(t, errors.Is(ErrInvalidCredentials, ErrUnauthenticated))
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Field: "title", Message: "is required"},
		{Field: "lat", Message: "must be between -90 and 90"},
	}}

	assert.Equal(t, "validation: title is required; lat must be between -90 and 90", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}
