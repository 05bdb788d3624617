package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/logging"
)

// ApiResponse is the envelope of every successful JSON response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorMapping maps a sentinel to a status and error code, in match order.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict"},
	{apperrors.ErrInvalidIndex, http.StatusBadRequest, "invalid_index"},
	{apperrors.ErrUnsupportedType, http.StatusBadRequest, "unsupported_type"},
	{apperrors.ErrConversion, http.StatusBadRequest, "invalid_value"},
	{apperrors.ErrSchema, http.StatusBadRequest, "schema_error"},
	{apperrors.ErrSuspiciousValue, http.StatusBadRequest, "suspicious_value"},
	{apperrors.ErrInvalidStatementKind, http.StatusBadRequest, "invalid_kind"},
}

// writeServiceError writes the response for an error returned by a service.
// Unclassified errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			if encErr := ErrorResponse(w, m.status, m.code, err.Error()); encErr != nil {
				logger.Error("Failed to write error response", zap.Error(encErr))
			}
			return
		}
	}

	logger.Error("Request failed", zap.String("error", logging.SanitizeError(err)))
	if encErr := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); encErr != nil {
		logger.Error("Failed to write error response", zap.Error(encErr))
	}
}
