package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
)

// SchemaDiscoverer reads table models from the SQL Server catalog views.
type SchemaDiscoverer struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a discoverer over an open pool.
// If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(db *sql.DB, logger *zap.Logger) *SchemaDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaDiscoverer{db: db, logger: logger}
}

// DiscoverTables returns all user tables (excludes system schemas).
func (s *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]models.TableRef, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name,
	    SUM(p.rows) AS row_count
	FROM sys.tables t
	INNER JOIN sys.partitions p ON t.object_id = p.object_id
	WHERE p.index_id IN (0, 1)  -- Heap or clustered index
	  AND t.is_ms_shipped = 0   -- Exclude system tables
	GROUP BY t.schema_id, t.name
	ORDER BY table_schema, table_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := make([]models.TableRef, 0)
	for rows.Next() {
		var table models.TableRef
		if err := rows.Scan(&table.Schema, &table.Name, &table.RowCount); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return tables, nil
}

// DiscoverTable returns the model of one table with its columns in
// declared order. Primary key columns are id columns; identity, computed
// and rowversion columns are autogenerated.
func (s *SchemaDiscoverer) DiscoverTable(ctx context.Context, schemaName, tableName string) (*models.TableModel, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    TYPE_NAME(c.system_type_id) AS data_type,
	    c.max_length,
	    c.precision,
	    c.scale,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN c.is_identity = 1 OR c.is_computed = 1
	          OR TYPE_NAME(c.system_type_id) = 'timestamp' THEN 1 ELSE 0 END AS is_auto_generated,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key
	FROM sys.columns c
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table), N'U')
	ORDER BY c.column_id
	`

	rows, err := s.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.ColumnSchema
	for rows.Next() {
		var (
			name, dataType                      string
			maxLength, precision, scale         int
			isNullable, isAutoGenerated, isPrim int
		)
		err := rows.Scan(&name, &dataType, &maxLength, &precision, &scale,
			&isNullable, &isAutoGenerated, &isPrim)
		if err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}

		kind := kindForSQLType(dataType, maxLength)
		if kind == models.KindUnknown {
			s.logger.Debug("Unmapped SQL Server column type",
				zap.String("table", schemaName+"."+tableName),
				zap.String("column", name),
				zap.String("data_type", dataType))
		}

		columns = append(columns, models.ColumnSchema{
			Name:            name,
			DatabaseType:    ddlType(dataType, maxLength, precision, scale),
			Type:            models.ValueType{Kind: kind, Nullable: isNullable == 1},
			IsID:            isPrim == 1,
			IsAutoGenerated: isAutoGenerated == 1,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s: %w", schemaName, tableName, apperrors.ErrNotFound)
	}

	return models.NewTableModel(schemaName, tableName, columns)
}
