package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/apperrors"
)

// writeServiceError maps a service-layer error to a stable error code and
// HTTP status. The UI branches on the code and renders the message verbatim,
// so codes are part of the API contract.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, apperrors.ErrAlreadyMerged):
		status, code = http.StatusConflict, "already_merged"
	case errors.Is(err, apperrors.ErrConflict):
		status, code = http.StatusConflict, "merge_conflict"
	case errors.Is(err, apperrors.ErrInvalidFieldSet):
		status, code = http.StatusBadRequest, "invalid_field_set"
	case errors.Is(err, apperrors.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "invalid_request"
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		status, code = http.StatusInternalServerError, "internal_error"
	}

	if writeErr := ErrorResponse(w, status, code, err.Error()); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
