package log

import (
	"errors"

	"bommel/internal/core"
)

// ErrorType classifies err for the error_type log field.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrNodeNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrMutationInFlight):
		return ErrorTypeConflict
	case core.IsValidation(err):
		return ErrorTypeValidation
	case core.IsIntegrity(err):
		return ErrorTypeIntegrity
	case core.IsPersistence(err):
		return ErrorTypePersistence
	default:
		return ErrorTypeInternal
	}
}
