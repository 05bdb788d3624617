package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver for database/sql
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-grid/pkg/retry"
)

// MSSQLTestImage is the SQL Server image used for integration tests.
const MSSQLTestImage = "mcr.microsoft.com/mssql/server:2022-latest"

const (
	testPassword = "Grid_test_Passw0rd"
	testDatabase = "grid_test"
)

// TestMSSQL holds a shared SQL Server container and an open pool on the
// test database.
type TestMSSQL struct {
	Container testcontainers.Container
	DB        *sql.DB
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
}

// Config returns the datasource config map for the test database.
func (m *TestMSSQL) Config() map[string]any {
	return map[string]any{
		"host":                     m.Host,
		"port":                     m.Port,
		"database":                 m.Database,
		"username":                 m.User,
		"password":                 m.Password,
		"encrypt":                  false,
		"trust_server_certificate": true,
	}
}

var (
	sharedMSSQL     *TestMSSQL
	sharedMSSQLOnce sync.Once
	sharedMSSQLErr  error
)

// GetTestMSSQL returns a shared SQL Server container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestMSSQL(t *testing.T) *TestMSSQL {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMSSQLOnce.Do(func() {
		sharedMSSQL, sharedMSSQLErr = setupTestMSSQL()
	})

	if sharedMSSQLErr != nil {
		t.Fatalf("Failed to setup test SQL Server: %v", sharedMSSQLErr)
	}

	return sharedMSSQL
}

func setupTestMSSQL() (*TestMSSQL, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        MSSQLTestImage,
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": testPassword,
			"MSSQL_PID":         "Developer",
		},
		WaitingFor: wait.ForLog("SQL Server is now ready for client connections").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "1433")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	m := &TestMSSQL{
		Container: container,
		Host:      host,
		Port:      port.Int(),
		Database:  testDatabase,
		User:      "sa",
		Password:  testPassword,
	}

	master, err := sql.Open("sqlserver", m.dsn("master"))
	if err != nil {
		return nil, fmt.Errorf("failed to open master connection: %w", err)
	}
	defer master.Close()

	// The log line can appear before logins are accepted.
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 10
	cfg.InitialDelay = 500 * time.Millisecond
	err = retry.Do(ctx, cfg, func() error {
		_, err := master.ExecContext(ctx,
			"IF DB_ID(N'"+testDatabase+"') IS NULL CREATE DATABASE ["+testDatabase+"]")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test database: %w", err)
	}

	m.DB, err = sql.Open("sqlserver", m.dsn(testDatabase))
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	return m, nil
}

func (m *TestMSSQL) dsn(database string) string {
	query := url.Values{}
	query.Add("database", database)
	query.Add("encrypt", "disable")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(m.User, m.Password),
		Host:     fmt.Sprintf("%s:%d", m.Host, m.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
