package mssql

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Auth methods.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod is "sql" or "service_principal".
	AuthMethod string

	// SQL Authentication fields
	Username string
	Password string

	// Service Principal (Azure AD) fields
	TenantID     string
	ClientID     string
	ClientSecret string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int

	// Pool sizing; zero keeps the database/sql defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map and auto-detects auth method.
// Numeric and boolean values may be given as strings or JSON numbers.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

	host, _ := config["host"].(string)
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	cfg.Host = host

	if v, ok := config["port"]; ok {
		port, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid port %v: %w", v, err)
		}
		if port != 0 {
			cfg.Port = port
		}
	}

	if database, ok := config["database"].(string); ok && database != "" {
		cfg.Database = database
	} else if name, ok := config["name"].(string); ok && name != "" {
		cfg.Database = name
	} else {
		return nil, fmt.Errorf("database is required")
	}

	switch v := config["encrypt"].(type) {
	case bool:
		cfg.Encrypt = v
	case string:
		// "true", "false", "strict"
		cfg.Encrypt = v == "true" || v == "strict"
	}

	if v, ok := config["trust_server_certificate"]; ok {
		cfg.TrustServerCertificate = cast.ToBool(v)
	}

	for key, dst := range map[string]*int{
		"connection_timeout": &cfg.ConnectionTimeout,
		"max_open_conns":     &cfg.MaxOpenConns,
		"max_idle_conns":     &cfg.MaxIdleConns,
	} {
		v, ok := config[key]
		if !ok {
			continue
		}
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %v: %w", key, v, err)
		}
		*dst = n
	}

	if v, ok := config["conn_max_lifetime"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid conn_max_lifetime %v: %w", v, err)
		}
		cfg.ConnMaxLifetime = d
	}

	// Auto-detect auth method or use explicitly provided.
	// Priority: client_id > username/user (non-empty)
	if authMethod, ok := config["auth_method"].(string); ok && authMethod != "" {
		cfg.AuthMethod = authMethod
	} else if clientID, ok := config["client_id"].(string); ok && clientID != "" {
		cfg.AuthMethod = AuthServicePrincipal
	} else if username, ok := config["username"].(string); ok && username != "" {
		cfg.AuthMethod = AuthSQL
	} else if user, ok := config["user"].(string); ok && user != "" {
		cfg.AuthMethod = AuthSQL
	} else {
		return nil, fmt.Errorf("could not auto-detect auth method; no credentials provided")
	}

	switch cfg.AuthMethod {
	case AuthSQL:
		if username, ok := config["username"].(string); ok && username != "" {
			cfg.Username = username
		} else if user, ok := config["user"].(string); ok && user != "" {
			cfg.Username = user
		} else {
			return nil, fmt.Errorf("username is required for SQL authentication")
		}
		// Password can be empty for some scenarios
		cfg.Password, _ = config["password"].(string)

	case AuthServicePrincipal:
		var ok bool
		if cfg.TenantID, ok = config["tenant_id"].(string); !ok {
			return nil, fmt.Errorf("tenant_id is required for service principal authentication")
		}
		if cfg.ClientID, ok = config["client_id"].(string); !ok {
			return nil, fmt.Errorf("client_id is required for service principal authentication")
		}
		if cfg.ClientSecret, ok = config["client_secret"].(string); !ok {
			return nil, fmt.Errorf("client_secret is required for service principal authentication")
		}

	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case AuthServicePrincipal:
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required for service principal")
		}
	default:
		return fmt.Errorf("invalid auth method: %s", c.AuthMethod)
	}

	return nil
}
