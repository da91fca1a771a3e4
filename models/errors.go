package models

import (
	"errors"
	"strings"
)

// Sentinel errors shared by the stores, controllers and middlewares.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrRejectedUpload  = errors.New("rejected upload")
	ErrAlreadyExists   = errors.New("already exists")
)

var (
	ErrIssueNotFound      = NewError(ErrNotFound, "Issue not found")
	ErrUserNotFound       = NewError(ErrNotFound, "User not found")
	ErrNotReporter        = NewError(ErrForbidden, "Not authorized to modify this issue")
	ErrInvalidTransition  = NewError(ErrValidation, "Invalid status transition")
	ErrEmailTaken         = NewError(ErrAlreadyExists, "User already exists")
	ErrInvalidCredentials = NewError(ErrUnauthenticated, "Invalid credentials")
)

// Error pairs a client-facing message with one of the sentinel kinds above.
type Error struct {
	Kind    error
	Message string
}

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// FieldError describes a validation failure on a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level failures. It unwraps to ErrValidation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
