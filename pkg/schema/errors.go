package schema

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// ValidationError reports the first violation found, with the path to the offending value,
// e.g. "results[2].uuid".
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed at %s: %s", e.Path, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == constants.ErrValidation
}

// AsValidationError unwraps err to a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func fail(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Drop describes one element discarded by a tolerant list.
type Drop struct {
	Path  string
	Index int
	Err   error
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "jwt":
		return "must be a valid JWT"
	case "datetime":
		if ve.Param() == dateLayout {
			return "must be a date (YYYY-MM-DD)"
		}
		return "must be an RFC 3339 date-time"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
