package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
	"github.com/ekaya-inc/ekaya-grid/pkg/services"
)

type mockGridService struct {
	table  *models.TableModel
	window *models.RowWindow
	index  int64
	stmt   *querybuilder.Statement
	err    error

	gotSchema string
	gotTable  string
	gotIndex  int64
	gotKind   string
	gotValues map[string]any
}

var _ services.GridService = (*mockGridService)(nil)

func (m *mockGridService) ListTables(ctx context.Context) ([]models.TableRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.TableRef{{Schema: "dbo", Name: "Products", RowCount: 77}}, nil
}

func (m *mockGridService) Table(ctx context.Context, schemaName, tableName string) (*models.TableModel, error) {
	m.gotSchema, m.gotTable = schemaName, tableName
	return m.table, m.err
}

func (m *mockGridService) RowAtIndex(ctx context.Context, schemaName, tableName string, index int64) (*models.RowWindow, error) {
	m.gotSchema, m.gotTable, m.gotIndex = schemaName, tableName, index
	return m.window, m.err
}

func (m *mockGridService) InsertRow(ctx context.Context, schemaName, tableName string, values map[string]any) (int64, error) {
	m.gotValues = values
	return m.index, m.err
}

func (m *mockGridService) UpdateRow(ctx context.Context, schemaName, tableName string, values map[string]any) (int64, error) {
	m.gotValues = values
	if m.err != nil {
		return 0, m.err
	}
	return 1, nil
}

func (m *mockGridService) DeleteRow(ctx context.Context, schemaName, tableName string, key map[string]any) (int64, error) {
	m.gotValues = key
	if m.err != nil {
		return 0, m.err
	}
	return 1, nil
}

func (m *mockGridService) Preview(ctx context.Context, schemaName, tableName, kind string, index int64) (*querybuilder.Statement, error) {
	m.gotKind, m.gotIndex = kind, index
	return m.stmt, m.err
}

func serveGrid(t *testing.T, svc services.GridService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewGridHandler(svc, zap.NewNop()).RegisterRoutes(mux)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, data any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func TestGridHandler_ListTables(t *testing.T) {
	rec := serveGrid(t, &mockGridService{}, http.MethodGet, "/api/tables", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var tables []models.TableRef
	decodeData(t, rec, &tables)
	assert.Equal(t, []models.TableRef{{Schema: "dbo", Name: "Products", RowCount: 77}}, tables)
}

func TestGridHandler_GetTable(t *testing.T) {
	table, err := models.NewTableModel("dbo", "Order Details", []models.ColumnSchema{
		{Name: "OrderID", DatabaseType: "int", Type: models.TypeOf(models.KindInt32), IsID: true},
		{Name: "Notes", DatabaseType: "xml", Type: models.NullableOf(models.KindXML)},
	})
	require.NoError(t, err)
	svc := &mockGridService{table: table}

	rec := serveGrid(t, svc, http.MethodGet, "/api/tables/dbo/Order%20Details", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order Details", svc.gotTable)

	var resp TableResponse
	decodeData(t, rec, &resp)
	require.Len(t, resp.Columns, 2)
	assert.Equal(t, ColumnResponse{
		Name: "OrderID", DatabaseType: "int", Type: "int32", IsID: true, ParameterType: "int",
	}, resp.Columns[0])
	assert.Equal(t, "", resp.Columns[1].ParameterType, "xml has no parameter type")
	assert.True(t, resp.Columns[1].IsNullable)
}

func TestGridHandler_GetRow(t *testing.T) {
	svc := &mockGridService{window: &models.RowWindow{
		Index:   0,
		Current: &models.Row{Index: 0, Values: map[string]any{"ProductName": "Chai"}},
		Next:    &models.Row{Index: 1, Values: map[string]any{"ProductName": "Chang"}},
	}}

	rec := serveGrid(t, svc, http.MethodGet, "/api/tables/dbo/Products/rows/0", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), svc.gotIndex)
	var window models.RowWindow
	decodeData(t, rec, &window)
	assert.Nil(t, window.Previous)
	assert.Equal(t, "Chang", window.Next.Values["ProductName"])
}

func TestGridHandler_GetRow_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
		code   string
	}{
		{"negative index", "/api/tables/dbo/Products/rows/-1", nil, http.StatusBadRequest, "invalid_index"},
		{"non-numeric index", "/api/tables/dbo/Products/rows/first", nil, http.StatusBadRequest, "invalid_index"},
		{"past end", "/api/tables/dbo/Products/rows/500", fmt.Errorf("row 500: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveGrid(t, &mockGridService{err: tt.err}, http.MethodGet, tt.target, "")

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestGridHandler_InsertRow(t *testing.T) {
	svc := &mockGridService{index: 77}

	rec := serveGrid(t, svc, http.MethodPost, "/api/tables/dbo/Products/rows",
		`{"values":{"ProductName":"Chai","UnitPrice":18.10,"UnitsInStock":9007199254740993}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var data map[string]int64
	decodeData(t, rec, &data)
	assert.Equal(t, int64(77), data["index"])

	// Numbers arrive as json.Number so they convert without float rounding.
	assert.Equal(t, json.Number("18.10"), svc.gotValues["UnitPrice"])
	assert.Equal(t, json.Number("9007199254740993"), svc.gotValues["UnitsInStock"])
}

func TestGridHandler_InsertRow_BadBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty", "", "Request body is required"},
		{"malformed", `{"values":`, "Invalid request body"},
		{"unknown field", `{"rows":{}}`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewGridHandler(&mockGridService{}, zap.NewNop()).RegisterRoutes(mux)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tables/dbo/Products/rows", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "invalid_request", body["error"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestGridHandler_UpdateRow(t *testing.T) {
	svc := &mockGridService{}

	rec := serveGrid(t, svc, http.MethodPut, "/api/tables/dbo/Products/rows",
		`{"values":{"ProductID":1,"ProductName":"Chai"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]int64
	decodeData(t, rec, &data)
	assert.Equal(t, int64(1), data["rows_affected"])
	assert.Equal(t, "Chai", svc.gotValues["ProductName"])
}

func TestGridHandler_UpdateRow_Conflict(t *testing.T) {
	svc := &mockGridService{err: fmt.Errorf("%w: Violation of PRIMARY KEY constraint", apperrors.ErrConflict)}

	rec := serveGrid(t, svc, http.MethodPut, "/api/tables/dbo/Products/rows", `{"values":{"ProductID":1}}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGridHandler_DeleteRow(t *testing.T) {
	svc := &mockGridService{}

	rec := serveGrid(t, svc, http.MethodDelete, "/api/tables/dbo/Products/rows", `{"key":{"ProductID":5}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("5"), svc.gotValues["ProductID"])
}

func TestGridHandler_PreviewStatement(t *testing.T) {
	param, err := querybuilder.NewParameter("v0", models.ColumnSchema{
		Name: "ProductID", Type: models.TypeOf(models.KindInt32), IsID: true,
	})
	require.NoError(t, err)
	svc := &mockGridService{stmt: &querybuilder.Statement{
		Text:   "DELETE FROM [dbo].[Products]\nWHERE [ProductID] = @v0",
		Params: []*querybuilder.Parameter{param},
	}}

	rec := serveGrid(t, svc, http.MethodGet, "/api/tables/dbo/Products/statements/delete?index=4", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delete", svc.gotKind)
	assert.Equal(t, int64(4), svc.gotIndex)

	var resp StatementResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, svc.stmt.Text, resp.SQL)
	assert.Equal(t, []ParameterResponse{{Name: "v0", Type: "int", SourceColumn: "ProductID"}}, resp.Parameters)
}

func TestGridHandler_PreviewStatement_Errors(t *testing.T) {
	rec := serveGrid(t, &mockGridService{}, http.MethodGet, "/api/tables/dbo/Products/statements/get?index=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc := &mockGridService{err: fmt.Errorf("%w: unknown statement kind \"merge\"", apperrors.ErrInvalidStatementKind)}
	rec = serveGrid(t, svc, http.MethodGet, "/api/tables/dbo/Products/statements/merge", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid_kind", body["error"])
}
