package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/audit"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// GridOptions configures a GridService.
type GridOptions struct {
	Statements querybuilder.Options
	// RejectSuspiciousValues fails writes whose string values look like
	// SQL injection instead of only logging them.
	RejectSuspiciousValues bool
	// SchemaCacheTTL is how long discovered table models are reused.
	// Zero disables caching.
	SchemaCacheTTL time.Duration
}

// GridService is row-at-a-time editing of a table ordered by its id columns.
type GridService interface {
	// ListTables returns all user tables.
	ListTables(ctx context.Context) ([]models.TableRef, error)

	// Table returns the model of a table, from cache when fresh.
	Table(ctx context.Context, schemaName, tableName string) (*models.TableModel, error)

	// RowAtIndex returns the row at 0-based index with its neighbors.
	RowAtIndex(ctx context.Context, schemaName, tableName string, index int64) (*models.RowWindow, error)

	// InsertRow inserts a row and returns its 0-based index.
	InsertRow(ctx context.Context, schemaName, tableName string, values map[string]any) (int64, error)

	// UpdateRow updates every non-id column of the row identified by the
	// id column values. Missing nullable columns are set to NULL.
	UpdateRow(ctx context.Context, schemaName, tableName string, values map[string]any) (int64, error)

	// DeleteRow deletes the row identified by key.
	DeleteRow(ctx context.Context, schemaName, tableName string, key map[string]any) (int64, error)

	// Preview generates a statement of the given kind without running it.
	Preview(ctx context.Context, schemaName, tableName, kind string, index int64) (*querybuilder.Statement, error)
}

type cachedTable struct {
	table    *models.TableModel
	loadedAt time.Time
}

type gridService struct {
	discoverer datasource.SchemaDiscoverer
	executor   datasource.StatementExecutor
	opts       GridOptions
	logger     *zap.Logger
	auditor    *audit.SecurityAuditor

	mu    sync.RWMutex
	cache map[string]cachedTable
	now   func() time.Time

	buffers sync.Pool
}

var _ GridService = (*gridService)(nil)

// NewGridService creates a grid service over a discoverer and executor,
// usually the same datasource.
func NewGridService(
	discoverer datasource.SchemaDiscoverer,
	executor datasource.StatementExecutor,
	opts GridOptions,
	logger *zap.Logger,
) (GridService, error) {
	if err := opts.Statements.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gridService{
		discoverer: discoverer,
		executor:   executor,
		opts:       opts,
		logger:     logger,
		auditor:    audit.NewSecurityAuditor(logger),
		cache:      make(map[string]cachedTable),
		now:        time.Now,
		buffers:    sync.Pool{New: func() any { return new(sql.Buffer) }},
	}, nil
}

func (s *gridService) ListTables(ctx context.Context) ([]models.TableRef, error) {
	tables, err := s.discoverer.DiscoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *gridService) Table(ctx context.Context, schemaName, tableName string) (*models.TableModel, error) {
	key := sql.QualifiedName{Schema: schemaName, Name: tableName}.String()

	if s.opts.SchemaCacheTTL > 0 {
		s.mu.RLock()
		entry, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && s.now().Sub(entry.loadedAt) < s.opts.SchemaCacheTTL {
			return entry.table, nil
		}
	}

	table, err := s.discoverer.DiscoverTable(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to discover table %s: %w", key, err)
	}
	s.logger.Debug("Discovered table",
		zap.String("table", key),
		zap.Int("columns", len(table.Columns())),
		zap.Int("id_columns", len(table.IDColumns())))

	if s.opts.SchemaCacheTTL > 0 {
		s.mu.Lock()
		s.cache[key] = cachedTable{table: table, loadedAt: s.now()}
		s.mu.Unlock()
	}
	return table, nil
}

// statement builds a statement for table with a pooled buffer.
func (s *gridService) statement(builder querybuilder.Builder, table *models.TableModel) (*querybuilder.Statement, error) {
	b := s.buffers.Get().(*sql.Buffer)
	defer s.buffers.Put(b)
	return querybuilder.CreateStatement(b, builder, table)
}

func (s *gridService) RowAtIndex(ctx context.Context, schemaName, tableName string, index int64) (*models.RowWindow, error) {
	table, err := s.Table(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	stmt, err := s.statement(querybuilder.GetRowAtIndex{Index: index, Options: s.opts.Statements}, table)
	if err != nil {
		return nil, err
	}

	result, err := s.executor.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d of %s: %w", index, table.FullyQualifiedName(), err)
	}

	window := &models.RowWindow{Index: index}
	for _, values := range result.Rows {
		row, err := rowFromResult(values)
		if err != nil {
			return nil, err
		}
		switch row.Index {
		case index - 1:
			window.Previous = row
		case index:
			window.Current = row
		case index + 1:
			window.Next = row
		}
	}
	if window.Current == nil {
		return nil, fmt.Errorf("row %d of %s: %w", index, table.FullyQualifiedName(), apperrors.ErrNotFound)
	}
	return window, nil
}

// rowFromResult splits the rank column from the column values.
func rowFromResult(values map[string]any) (*models.Row, error) {
	rank, ok := values[querybuilder.RowNumberColumn]
	if !ok {
		return nil, fmt.Errorf("result row has no %s column", querybuilder.RowNumberColumn)
	}
	index, err := cast.ToInt64E(rank)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %v: %w", querybuilder.RowNumberColumn, rank, err)
	}

	row := &models.Row{Index: index, Values: make(map[string]any, len(values)-1)}
	for k, v := range values {
		if k != querybuilder.RowNumberColumn {
			row.Values[k] = v
		}
	}
	return row, nil
}

func (s *gridService) InsertRow(ctx context.Context, schemaName, tableName string, values map[string]any) (int64, error) {
	table, err := s.Table(ctx, schemaName, tableName)
	if err != nil {
		return 0, err
	}
	if err := s.auditValues(ctx, table, values); err != nil {
		return 0, err
	}

	stmt, err := s.statement(querybuilder.InsertRowWithValues{Options: s.opts.Statements}, table)
	if err != nil {
		return 0, err
	}
	if err := stmt.Bind(values); err != nil {
		return 0, err
	}

	result, err := s.executor.Query(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table.FullyQualifiedName(), err)
	}
	if len(result.Rows) == 0 {
		return 0, fmt.Errorf("insert into %s returned no row index", table.FullyQualifiedName())
	}

	index, err := cast.ToInt64E(result.Rows[0][querybuilder.RowNumberColumn])
	if err != nil {
		return 0, fmt.Errorf("invalid %s after insert: %w", querybuilder.RowNumberColumn, err)
	}

	s.auditor.LogRowWrite(ctx, table.FullyQualifiedName().String(), audit.RowWriteDetails{
		Operation:    "insert",
		RowsAffected: 1,
		Index:        &index,
	})
	return index, nil
}

func (s *gridService) UpdateRow(ctx context.Context, schemaName, tableName string, values map[string]any) (int64, error) {
	table, err := s.Table(ctx, schemaName, tableName)
	if err != nil {
		return 0, err
	}
	if err := s.auditValues(ctx, table, values); err != nil {
		return 0, err
	}
	return s.execByKey(ctx, querybuilder.UpdateRow{Options: s.opts.Statements}, table, values, "update")
}

func (s *gridService) DeleteRow(ctx context.Context, schemaName, tableName string, key map[string]any) (int64, error) {
	table, err := s.Table(ctx, schemaName, tableName)
	if err != nil {
		return 0, err
	}
	return s.execByKey(ctx, querybuilder.DeleteRowWithKey{Options: s.opts.Statements}, table, key, "delete")
}

func (s *gridService) Preview(ctx context.Context, schemaName, tableName, kind string, index int64) (*querybuilder.Statement, error) {
	builder, err := querybuilder.BuilderFor(kind, index, s.opts.Statements)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidStatementKind, err)
	}
	table, err := s.Table(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	return s.statement(builder, table)
}

// execByKey runs a statement addressed by id columns. Zero affected rows
// means the key matched nothing.
func (s *gridService) execByKey(ctx context.Context, builder querybuilder.Builder, table *models.TableModel, values map[string]any, op string) (int64, error) {
	stmt, err := s.statement(builder, table)
	if err != nil {
		return 0, err
	}
	if err := stmt.Bind(values); err != nil {
		return 0, err
	}

	result, err := s.executor.Exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to %s %s: %w", op, table.FullyQualifiedName(), err)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("%s %s: no row matches the key: %w", op, table.FullyQualifiedName(), apperrors.ErrNotFound)
	}

	s.auditor.LogRowWrite(ctx, table.FullyQualifiedName().String(), audit.RowWriteDetails{
		Operation:    op,
		RowsAffected: result.RowsAffected,
	})
	return result.RowsAffected, nil
}

// auditValues checks string values with libinjection. Findings are audited,
// and rejected when configured.
func (s *gridService) auditValues(ctx context.Context, table *models.TableModel, values map[string]any) error {
	for _, f := range sql.CheckValues(values) {
		s.auditor.LogInjectionAttempt(ctx, table.FullyQualifiedName().String(), audit.SQLInjectionDetails{
			Column:      f.Column,
			Value:       f.Value,
			Fingerprint: f.Fingerprint,
			Rejected:    s.opts.RejectSuspiciousValues,
		})
		if s.opts.RejectSuspiciousValues {
			return fmt.Errorf("column %q: %w", f.Column, apperrors.ErrSuspiciousValue)
		}
	}
	return nil
}
