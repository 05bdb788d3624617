package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
	"github.com/ekaya-inc/ekaya-grid/pkg/services"
)

// maxRowBodyBytes caps the size of a row write request.
const maxRowBodyBytes = 1 << 20

// --- Request Types ---

// RowRequest carries column values for insert and update, or the id
// column values for delete.
type RowRequest struct {
	Values map[string]any `json:"values,omitempty"`
	Key    map[string]any `json:"key,omitempty"`
}

// --- Response Types ---

// TableResponse describes a table and its columns.
type TableResponse struct {
	Schema  string           `json:"schema"`
	Name    string           `json:"name"`
	Columns []ColumnResponse `json:"columns"`
}

// ColumnResponse describes one column. ParameterType is empty for types
// the grid cannot bind.
type ColumnResponse struct {
	Name            string `json:"name"`
	DatabaseType    string `json:"database_type"`
	Type            string `json:"type"`
	IsNullable      bool   `json:"is_nullable"`
	IsID            bool   `json:"is_id"`
	IsAutoGenerated bool   `json:"is_auto_generated"`
	ParameterType   string `json:"parameter_type,omitempty"`
}

// StatementResponse is a generated statement and its parameters.
type StatementResponse struct {
	SQL        string              `json:"sql"`
	Parameters []ParameterResponse `json:"parameters"`
}

// ParameterResponse describes one statement parameter.
type ParameterResponse struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsNullable   bool   `json:"is_nullable"`
	SourceColumn string `json:"source_column,omitempty"`
}

// GridHandler serves row-at-a-time table editing.
type GridHandler struct {
	gridService services.GridService
	logger      *zap.Logger
}

// NewGridHandler creates a new grid handler.
func NewGridHandler(gridService services.GridService, logger *zap.Logger) *GridHandler {
	return &GridHandler{gridService: gridService, logger: logger}
}

// RegisterRoutes registers the grid handler's routes on the given mux.
func (h *GridHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tables", h.ListTables)
	mux.HandleFunc("GET /api/tables/{schema}/{table}", h.GetTable)
	mux.HandleFunc("GET /api/tables/{schema}/{table}/rows/{index}", h.GetRow)
	mux.HandleFunc("POST /api/tables/{schema}/{table}/rows", h.InsertRow)
	mux.HandleFunc("PUT /api/tables/{schema}/{table}/rows", h.UpdateRow)
	mux.HandleFunc("DELETE /api/tables/{schema}/{table}/rows", h.DeleteRow)
	mux.HandleFunc("GET /api/tables/{schema}/{table}/statements/{kind}", h.PreviewStatement)
}

// ListTables handles GET /api/tables
func (h *GridHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.gridService.ListTables(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusOK, tables)
}

// GetTable handles GET /api/tables/{schema}/{table}
func (h *GridHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	schemaName, tableName, ok := ParseTablePath(w, r, h.logger)
	if !ok {
		return
	}

	table, err := h.gridService.Table(r.Context(), schemaName, tableName)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusOK, toTableResponse(table))
}

// GetRow handles GET /api/tables/{schema}/{table}/rows/{index}
func (h *GridHandler) GetRow(w http.ResponseWriter, r *http.Request) {
	schemaName, tableName, ok := ParseTablePath(w, r, h.logger)
	if !ok {
		return
	}
	index, ok := ParseRowIndex(w, r, h.logger)
	if !ok {
		return
	}

	window, err := h.gridService.RowAtIndex(r.Context(), schemaName, tableName, index)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusOK, window)
}

// InsertRow handles POST /api/tables/{schema}/{table}/rows
func (h *GridHandler) InsertRow(w http.ResponseWriter, r *http.Request) {
	schemaName, tableName, ok := ParseTablePath(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := h.decodeRow(w, r)
	if !ok {
		return
	}

	index, err := h.gridService.InsertRow(r.Context(), schemaName, tableName, req.Values)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusCreated, map[string]int64{"index": index})
}

// UpdateRow handles PUT /api/tables/{schema}/{table}/rows
func (h *GridHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	schemaName, tableName, ok := ParseTablePath(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := h.decodeRow(w, r)
	if !ok {
		return
	}

	n, err := h.gridService.UpdateRow(r.Context(), schemaName, tableName, req.Values)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusOK, map[string]int64{"rows_affected": n})
}

// DeleteRow handles DELETE /api/tables/{schema}/{table}/rows
func (h *GridHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	schemaName, tableName, ok := ParseTablePath(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := h.decodeRow(w, r)
	if !ok {
		return
	}

	n, err := h.gridService.DeleteRow(r.Context(), schemaName, tableName, req.Key)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusOK, map[string]int64{"rows_affected": n})
}

// PreviewStatement handles GET /api/tables/{schema}/{table}/statements/{kind}?index=N
func (h *GridHandler) PreviewStatement(w http.ResponseWriter, r *http.Request) {
	schemaName, tableName, ok := ParseTablePath(w, r, h.logger)
	if !ok {
		return
	}

	var index int64
	if raw := r.URL.Query().Get("index"); raw != "" {
		var err error
		if index, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeParamError(w, "invalid_index", "Row index must be an integer", h.logger)
			return
		}
	}

	stmt, err := h.gridService.Preview(r.Context(), schemaName, tableName, r.PathValue("kind"), index)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, http.StatusOK, toStatementResponse(stmt))
}

// decodeRow decodes a RowRequest. Numbers are kept as json.Number so
// large integers and decimals convert without float rounding.
func (h *GridHandler) decodeRow(w http.ResponseWriter, r *http.Request) (*RowRequest, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRowBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var req RowRequest
	if err := dec.Decode(&req); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		writeParamError(w, "invalid_request", msg, h.logger)
		return nil, false
	}
	return &req, true
}

func (h *GridHandler) writeData(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func toTableResponse(table *models.TableModel) TableResponse {
	resp := TableResponse{Schema: table.Schema, Name: table.Name}
	for _, c := range table.Columns() {
		col := ColumnResponse{
			Name:            c.Name,
			DatabaseType:    c.DatabaseType,
			Type:            c.Type.Kind.String(),
			IsNullable:      c.Type.Nullable,
			IsID:            c.IsID,
			IsAutoGenerated: c.IsAutoGenerated,
		}
		if t, _, err := querybuilder.ParameterTypeFor(c.Type); err == nil {
			col.ParameterType = t.String()
		}
		resp.Columns = append(resp.Columns, col)
	}
	return resp
}

func toStatementResponse(stmt *querybuilder.Statement) StatementResponse {
	resp := StatementResponse{SQL: stmt.Text, Parameters: make([]ParameterResponse, 0, len(stmt.Params))}
	for _, p := range stmt.Params {
		resp.Parameters = append(resp.Parameters, ParameterResponse{
			Name:         p.Name,
			Type:         p.Type.String(),
			IsNullable:   p.IsNullable,
			SourceColumn: p.SourceColumn,
		})
	}
	return resp
}
