package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-grid.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, client secrets) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Database configuration (SQL Server)
	Database DatabaseConfig `yaml:"database"`

	// Grid statement generation and editing
	Grid GridConfig `yaml:"grid"`
}

// DatabaseConfig holds SQL Server connection configuration.
type DatabaseConfig struct {
	Type       string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"mssql"`
	Host       string `yaml:"host" env:"MSSQL_HOST" env-default:"localhost"`
	Port       int    `yaml:"port" env:"MSSQL_PORT" env-default:"1433"`
	Database   string `yaml:"database" env:"MSSQL_DATABASE" env-default:"Northwind"`
	AuthMethod string `yaml:"auth_method" env:"MSSQL_AUTH_METHOD" env-default:"sql"`

	// SQL authentication
	User     string `yaml:"user" env:"MSSQL_USER" env-default:"sa"`
	Password string `yaml:"-" env:"MSSQL_PASSWORD"` // Secret - not in YAML

	// Service principal (Azure AD) authentication
	TenantID     string `yaml:"tenant_id" env:"MSSQL_TENANT_ID" env-default:""`
	ClientID     string `yaml:"client_id" env:"MSSQL_CLIENT_ID" env-default:""`
	ClientSecret string `yaml:"-" env:"MSSQL_CLIENT_SECRET"` // Secret - not in YAML

	Encrypt                bool          `yaml:"encrypt" env:"MSSQL_ENCRYPT" env-default:"true"`
	TrustServerCertificate bool          `yaml:"trust_server_certificate" env:"MSSQL_TRUST_SERVER_CERTIFICATE" env-default:"false"`
	ConnectionTimeout      int           `yaml:"connection_timeout" env:"MSSQL_CONNECTION_TIMEOUT" env-default:"30"`
	MaxOpenConns           int           `yaml:"max_open_conns" env:"MSSQL_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns           int           `yaml:"max_idle_conns" env:"MSSQL_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime        time.Duration `yaml:"conn_max_lifetime" env:"MSSQL_CONN_MAX_LIFETIME" env-default:"30m"`
}

// GridConfig controls statement generation and value auditing.
type GridConfig struct {
	// ValuePrefix prefixes positional placeholders: @v0, @v1, ...
	ValuePrefix string `yaml:"value_prefix" env:"GRID_VALUE_PREFIX" env-default:"v"`
	// HoldingTable names the session temp table used by inserts, without '#'.
	HoldingTable string `yaml:"holding_table" env:"GRID_HOLDING_TABLE" env-default:"tempTable1"`
	// RejectSuspiciousValues fails writes whose string values look like SQL
	// injection. When false they are only logged.
	RejectSuspiciousValues bool `yaml:"reject_suspicious_values" env:"GRID_REJECT_SUSPICIOUS_VALUES" env-default:"false"`
	// SchemaCacheTTL is how long discovered table models are reused.
	SchemaCacheTTL time.Duration `yaml:"schema_cache_ttl" env:"GRID_SCHEMA_CACHE_TTL" env-default:"5m"`
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// A missing config.yaml is not an error; defaults and environment apply.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Port)
	}

	if err := c.validateTLS(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	switch c.Database.AuthMethod {
	case "sql":
		if c.Database.User == "" {
			return fmt.Errorf("database user is required for SQL authentication")
		}
	case "service_principal":
		if c.Database.TenantID == "" || c.Database.ClientID == "" || c.Database.ClientSecret == "" {
			return fmt.Errorf("tenant_id, client_id and MSSQL_CLIENT_SECRET are required for service principal authentication")
		}
	default:
		return fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", c.Database.AuthMethod)
	}

	if !identPattern.MatchString(c.Grid.ValuePrefix) {
		return fmt.Errorf("grid value_prefix %q is not an identifier", c.Grid.ValuePrefix)
	}
	if !identPattern.MatchString(c.Grid.HoldingTable) {
		return fmt.Errorf("grid holding_table %q is not an identifier", c.Grid.HoldingTable)
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// DatasourceMap returns the generic datasource config map understood by
// the adapter registry. Only the credentials of the selected auth method
// are included.
func (c *DatabaseConfig) DatasourceMap() map[string]any {
	m := map[string]any{
		"host":                     ResolveHostForDocker(c.Host),
		"port":                     c.Port,
		"database":                 c.Database,
		"auth_method":              c.AuthMethod,
		"encrypt":                  c.Encrypt,
		"trust_server_certificate": c.TrustServerCertificate,
		"connection_timeout":       c.ConnectionTimeout,
		"max_open_conns":           c.MaxOpenConns,
		"max_idle_conns":           c.MaxIdleConns,
		"conn_max_lifetime":        c.ConnMaxLifetime,
	}
	switch c.AuthMethod {
	case "service_principal":
		m["tenant_id"] = c.TenantID
		m["client_id"] = c.ClientID
		m["client_secret"] = c.ClientSecret
	default:
		m["username"] = c.User
		m["password"] = c.Password
	}
	return m
}
