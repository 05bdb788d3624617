package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseTablePath extracts the schema and table names from the request path.
// The mux has already unescaped them, so "Order%20Details" is "Order Details".
// Returns the names and true on success, or false on error (after writing
// an error response).
// Expects path parameters: schema, table
func ParseTablePath(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, string, bool) {
	schemaName := r.PathValue("schema")
	if schemaName == "" {
		writeParamError(w, "invalid_schema", "Invalid schema name", logger)
		return "", "", false
	}
	tableName := r.PathValue("table")
	if tableName == "" {
		writeParamError(w, "invalid_table", "Invalid table name", logger)
		return "", "", false
	}
	return schemaName, tableName, true
}

// ParseRowIndex extracts the 0-based row index from the request path.
// Expects path parameter: index
func ParseRowIndex(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil || index < 0 {
		writeParamError(w, "invalid_index", "Row index must be a non-negative integer", logger)
		return 0, false
	}
	return index, true
}

func writeParamError(w http.ResponseWriter, code, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
