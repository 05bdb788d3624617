package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
)

// ConnectionTester tests database connectivity.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials.
	// Returns nil if connection is healthy, error otherwise.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// SchemaDiscoverer reads table models from the database catalog.
type SchemaDiscoverer interface {
	// DiscoverTables returns all user tables (excludes system schemas).
	DiscoverTables(ctx context.Context) ([]models.TableRef, error)

	// DiscoverTable returns the model of one table. Returns an error
	// wrapping apperrors.ErrNotFound if the table does not exist.
	DiscoverTable(ctx context.Context, schemaName, tableName string) (*models.TableModel, error)
}

// StatementExecutor runs generated statements with their bound parameters.
type StatementExecutor interface {
	// Query runs stmt and returns the rows of its first result set.
	Query(ctx context.Context, stmt *querybuilder.Statement) (*QueryResult, error)

	// Exec runs stmt and reports the affected row count.
	Exec(ctx context.Context, stmt *querybuilder.Statement) (*ExecResult, error)
}

// Datasource is a connected database that supports the grid operations.
// Close releases everything it owns.
type Datasource interface {
	ConnectionTester
	SchemaDiscoverer
	StatementExecutor
}

// ColumnInfo describes a result column with its database type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "NVARCHAR", "INT", "MONEY")
}

// QueryResult holds the rows returned by a statement.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ExecResult holds the outcome of a statement that returns no rows.
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected"`
}
