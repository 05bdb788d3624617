package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/logging"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
)

// Constraint violation error numbers.
var conflictNumbers = map[int32]bool{
	2627: true, // unique constraint
	2601: true, // unique index
	547:  true, // foreign key or check constraint
}

// Executor runs generated statements against a SQL Server pool.
type Executor struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExecutor creates an executor over an open pool.
// If logger is nil, a no-op logger is used.
func NewExecutor(db *sql.DB, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{db: db, logger: logger}
}

// Session pins one connection. Session-scoped objects such as the
// holding table of an insert live on that connection, so statements on a
// Session run one at a time.
type Session struct {
	mu     sync.Mutex
	conn   *sql.Conn
	logger *zap.Logger
}

// Session pins a connection from the pool. The caller must Close it.
func (e *Executor) Session(ctx context.Context) (*Session, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn, logger: e.logger}, nil
}

// Query runs stmt on a fresh session.
func (e *Executor) Query(ctx context.Context, stmt *querybuilder.Statement) (*datasource.QueryResult, error) {
	s, err := e.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Query(ctx, stmt)
}

// Exec runs stmt on a fresh session.
func (e *Executor) Exec(ctx context.Context, stmt *querybuilder.Statement) (*datasource.ExecResult, error) {
	s, err := e.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Exec(ctx, stmt)
}

// Query runs stmt and collects the rows of its first result set.
func (s *Session) Query(ctx context.Context, stmt *querybuilder.Statement) (*datasource.QueryResult, error) {
	args, err := namedArgs(stmt.Params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, stmt.Text, args...)
	if err != nil {
		s.logFailure(stmt, err)
		return nil, mapError(err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		s.logFailure(stmt, err)
		return nil, mapError(err)
	}

	s.logger.Debug("Statement executed",
		zap.String("sql", logging.SanitizeQuery(stmt.Text)),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Exec runs stmt and reports the affected row count.
func (s *Session) Exec(ctx context.Context, stmt *querybuilder.Statement) (*datasource.ExecResult, error) {
	args, err := namedArgs(stmt.Params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.conn.ExecContext(ctx, stmt.Text, args...)
	if err != nil {
		s.logFailure(stmt, err)
		return nil, mapError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Debug("Statement executed",
		zap.String("sql", logging.SanitizeQuery(stmt.Text)),
		zap.Int64("rows_affected", affected),
		zap.Duration("elapsed", time.Since(start)))
	return &datasource.ExecResult{RowsAffected: affected}, nil
}

// Close returns the pinned connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) logFailure(stmt *querybuilder.Statement, err error) {
	s.logger.Warn("Statement failed",
		zap.String("sql", logging.SanitizeQuery(stmt.Text)),
		zap.String("error", logging.SanitizeError(err)))
}

// mapError turns constraint violations into apperrors.ErrConflict.
func mapError(err error) error {
	var serverErr mssql.Error
	if errors.As(err, &serverErr) && conflictNumbers[serverErr.Number] {
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, serverErr.Message)
	}
	return fmt.Errorf("failed to execute statement: %w", err)
}

// namedArgs binds each parameter as @Name. Every parameter must be bound.
func namedArgs(params []*querybuilder.Parameter) ([]any, error) {
	args := make([]any, 0, len(params))
	for _, p := range params {
		if !p.Bound() {
			return nil, fmt.Errorf("parameter @%s (%s) is not bound", p.Name, p.SourceColumn)
		}
		v, err := driverValue(p)
		if err != nil {
			return nil, err
		}
		args = append(args, sql.Named(p.Name, v))
	}
	return args, nil
}

// driverValue shapes a bound value for the wire type of its DbType.
func driverValue(p *querybuilder.Parameter) (any, error) {
	if p.Value == nil {
		return nil, nil
	}

	var (
		v   any
		err error
	)
	switch p.Type {
	case querybuilder.DbTypeTinyInt, querybuilder.DbTypeSmallInt:
		v, err = cast.ToInt16E(p.Value)
	case querybuilder.DbTypeInt:
		v, err = cast.ToInt32E(p.Value)
	case querybuilder.DbTypeBigInt:
		v, err = cast.ToInt64E(p.Value)
	case querybuilder.DbTypeReal, querybuilder.DbTypeFloat:
		v, err = cast.ToFloat64E(p.Value)
	case querybuilder.DbTypeDecimal, querybuilder.DbTypeMoney:
		// Sent as exact text via decimal's Valuer; the server converts it to
		// the column type.
		v, err = toDecimalValue(p.Value)
	case querybuilder.DbTypeBit:
		v, err = cast.ToBoolE(p.Value)
	case querybuilder.DbTypeNVarChar:
		v, err = cast.ToStringE(p.Value)
	case querybuilder.DbTypeNChar:
		if r, ok := p.Value.(rune); ok {
			v = string(r)
		} else {
			v, err = cast.ToStringE(p.Value)
		}
	case querybuilder.DbTypeUniqueIdentifier:
		u, ok := p.Value.(uuid.UUID)
		if !ok {
			err = fmt.Errorf("want uuid.UUID")
		}
		v = mssql.UniqueIdentifier(u)
	case querybuilder.DbTypeDateTime2:
		var t time.Time
		t, err = cast.ToTimeE(p.Value)
		v = civil.DateTimeOf(t)
	case querybuilder.DbTypeDateTimeOffset:
		var t time.Time
		t, err = cast.ToTimeE(p.Value)
		v = mssql.DateTimeOffset(t)
	case querybuilder.DbTypeVarBinary:
		b, ok := p.Value.([]byte)
		if !ok {
			err = fmt.Errorf("want []byte")
		}
		v = b
	default:
		err = fmt.Errorf("no wire type")
	}
	if err != nil {
		return nil, fmt.Errorf("parameter @%s: %T value for %s: %w", p.Name, p.Value, p.Type, err)
	}
	return v, nil
}

func toDecimalValue(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	}
	return decimal.Decimal{}, fmt.Errorf("want decimal.Decimal or uint64")
}

// scanRows collects rows into maps keyed by column name.
func scanRows(rows *sql.Rows) (*datasource.QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnNames))
	for i, colName := range columnNames {
		columns[i] = datasource.ColumnInfo{
			Name: colName,
			Type: columnTypes[i].DatabaseTypeName(),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			rowMap[col] = resultValue(columns[i].Type, values[i])
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// resultValue converts driver byte slices for text, decimal and
// uniqueidentifier columns to strings.
func resultValue(sqlType string, val any) any {
	b, ok := val.([]byte)
	if !ok {
		return val
	}
	switch {
	case isStringType(sqlType), isDecimalType(sqlType):
		return string(b)
	case sqlType == "UNIQUEIDENTIFIER":
		var u mssql.UniqueIdentifier
		if err := u.Scan(b); err == nil {
			return u.String()
		}
	}
	return b
}
