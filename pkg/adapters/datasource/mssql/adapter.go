package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/logging"
	"github.com/ekaya-inc/ekaya-grid/pkg/retry"
)

// Adapter owns a SQL Server connection pool.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens a pool for cfg and pings it, retrying transient failures
// such as a server that is still starting. Supports SQL authentication and
// Azure AD service principals.
func NewAdapter(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, connStr := connectionString(cfg)
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", cfg.AuthMethod, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	attempt := 0
	err = retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		attempt++
		pingErr := db.PingContext(ctx)
		if pingErr != nil {
			logger.Debug("SQL Server ping failed",
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(pingErr)))
		}
		return pingErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to SQL Server",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("auth_method", cfg.AuthMethod))

	return &Adapter{config: cfg, db: db, logger: logger}, nil
}

// connectionString returns the driver name and DSN for cfg.
func connectionString(cfg *Config) (driver, dsn string) {
	query := url.Values{}
	query.Add("database", cfg.Database)

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	switch cfg.AuthMethod {
	case AuthServicePrincipal:
		// The azuresql driver reads the fedauth parameters.
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", cfg.ClientID+"@"+cfg.TenantID)
		query.Add("password", cfg.ClientSecret)
		return "azuresql", fmt.Sprintf("sqlserver://%s:%d?%s", cfg.Host, cfg.Port, query.Encode())
	default:
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			RawQuery: query.Encode(),
		}
		return "sqlserver", u.String()
	}
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// DB returns the underlying pool for the schema discoverer and executor.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func (a *Adapter) Close() error {
	return a.db.Close()
}
