package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	details := contextDetails(appErr.Context)
	switch appErr.Kind {
	case apperror.KindValidation:
		BadRequest(w, appErr.Message, details)
	case apperror.KindUnauthorized:
		Unauthorized(w, appErr.Message)
	case apperror.KindForbidden:
		Forbidden(w, appErr.Message)
	case apperror.KindNotFound:
		NotFound(w, appErr.Message)
	case apperror.KindConflict:
		Conflict(w, appErr.Message, details)
	case apperror.KindLocked:
		Locked(w, appErr.Message, details)
	case apperror.KindInvalidState:
		writeError(w, http.StatusConflict, "INVALID_STATE", appErr.Message, details)
	case apperror.KindReconciliation:
		writeError(w, http.StatusUnprocessableEntity, "RECONCILIATION_ERROR", appErr.Message, details)

	// Default
	default:
		slog.Error("Internal error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func contextDetails(ctx map[string]any) map[string]string {
	if len(ctx) == 0 {
		return nil
	}
	details := make(map[string]string, len(ctx))
	for k, v := range ctx {
		details[k] = fmt.Sprint(v)
	}
	return details
}
