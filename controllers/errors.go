package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spotfix/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// requestTimeout bounds the store calls made by a single handler.
const requestTimeout = 10 * time.Second

// responder writes error responses. Internal details go to the log and, outside
// production, to the "error" field of the body.
type responder struct {
	log        *slog.Logger
	production bool
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrRejectedUpload),
		errors.Is(err, models.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (r responder) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"message": err.Error()}

	if status == http.StatusInternalServerError {
		r.log.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		body["message"] = "Something went wrong"
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Errors
	}
	if !r.production {
		body["error"] = err.Error()
	}

	c.AbortWithStatusJSON(status, body)
}

// bindError converts a gin binding failure into a ValidationError.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError("body", err.Error())
	}

	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{
			Field:   lowerFirst(fe.Field()),
			Message: describeTag(fe),
		})
	}
	return &models.ValidationError{Errors: fields}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
