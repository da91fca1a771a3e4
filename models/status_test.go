package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to IssueStatus
		ok       bool
	}{
		{Open, InProgress, true},
		{Open, Resolved, true},
		{InProgress, Resolved, true},
		{Open, Open, true},
		{InProgress, InProgress, true},
		{InProgress, Open, false},
		{Resolved, Open, false},
		{Resolved, InProgress, false},
		{Resolved, Resolved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	err := ValidateTransition(Open, IssueStatus("Closed"))

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Errors[0].Field)
	assert.ErrorIs(t, err, ErrValidation)
}
