// Package postgres wraps a pgx connection pool with OpenTelemetry spans and
// coded errors. The gateway reads user records and authority grants from
// it when the directory is backed by PostgreSQL.
//
//	client, err := postgres.NewClient(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Unit tests pass a pgxmock pool to [NewFromPool].
package postgres

import (
	"fmt"
	"net/url"
	"time"
)

const maxSQLLen = 100

const (
	DefaultHost                = "localhost"
	DefaultPort                = 5432
	DefaultDatabase            = "ecos"
	DefaultUser                = "gateway"
	DefaultMaxConns      int32 = 20
	DefaultMinConns      int32 = 2
	DefaultConnLife            = time.Hour
	DefaultConnIdle            = 15 * time.Minute
	DefaultHealthCheck         = 30 * time.Second
	DefaultHealthTimeout       = 2 * time.Second
)

// SSLMode is a libpq sslmode value.
type SSLMode string

const (
	SSLModeDisable    SSLMode = "disable"
	SSLModePrefer     SSLMode = "prefer"
	SSLModeRequire    SSLMode = "require"
	SSLModeVerifyCA   SSLMode = "verify-ca"
	SSLModeVerifyFull SSLMode = "verify-full"
)

// Valid reports whether m is a known sslmode.
func (m SSLMode) Valid() bool {
	switch m {
	case SSLModeDisable, SSLModePrefer, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
		return true
	}
	return false
}

// Secret hides a password from logs and serialized config.
type Secret string

const redacted = "[REDACTED]"

// String returns "[REDACTED]" so the secret never reaches a log line.
func (s Secret) String() string { return redacted }

// GoString returns "[REDACTED]" for %#v.
func (s Secret) GoString() string { return redacted }

// Value returns the plain secret.
func (s Secret) Value() string { return string(s) }

// MarshalText keeps the secret out of JSON and YAML output.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Config holds connection settings. A non-empty URI wins over the
// individual fields.
type Config struct {
	URI               string        `json:"uri,omitempty" yaml:"uri" env:"URI"`
	Host              string        `json:"host,omitempty" yaml:"host" env:"HOST" envDefault:"localhost"`
	Port              int           `json:"port,omitempty" yaml:"port" env:"PORT" envDefault:"5432"`
	Database          string        `json:"database,omitempty" yaml:"database" env:"DATABASE" envDefault:"ecos"`
	User              string        `json:"user,omitempty" yaml:"user" env:"USER" envDefault:"gateway"`
	Password          Secret        `json:"-" yaml:"password" env:"PASSWORD"`
	SSLMode           SSLMode       `json:"ssl_mode,omitempty" yaml:"ssl_mode" env:"SSL_MODE" envDefault:"prefer"`
	MaxConns          int32         `json:"max_conns,omitempty" yaml:"max_conns" env:"MAX_CONNS"`
	MinConns          int32         `json:"min_conns,omitempty" yaml:"min_conns" env:"MIN_CONNS"`
	MaxConnLifetime   time.Duration `json:"max_conn_lifetime,omitempty" yaml:"max_conn_lifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime   time.Duration `json:"max_conn_idle_time,omitempty" yaml:"max_conn_idle_time" env:"MAX_CONN_IDLE_TIME"`
	HealthCheckPeriod time.Duration `json:"health_check_period,omitempty" yaml:"health_check_period" env:"HEALTH_CHECK_PERIOD"`
}

// DefaultConfig returns a Config for a local database.
func DefaultConfig() *Config {
	return &Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		Database:          DefaultDatabase,
		User:              DefaultUser,
		SSLMode:           SSLModePrefer,
		MaxConns:          DefaultMaxConns,
		MinConns:          DefaultMinConns,
		MaxConnLifetime:   DefaultConnLife,
		MaxConnIdleTime:   DefaultConnIdle,
		HealthCheckPeriod: DefaultHealthCheck,
	}
}

// Validate applies pool defaults and returns the first invalid setting.
func (c *Config) Validate() error {
	c.applyPoolDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("postgres: config URI is invalid: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("postgres: config URI scheme must be postgres:// or postgresql://, got %q", u.Scheme)
		}
		return nil
	}

	if c.SSLMode == "" {
		c.SSLMode = SSLModePrefer
	}
	switch {
	case c.Host == "":
		return fmt.Errorf("postgres: config host is required")
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("postgres: config port must be between 1 and 65535, got %d", c.Port)
	case c.Database == "":
		return fmt.Errorf("postgres: config database is required")
	case c.User == "":
		return fmt.Errorf("postgres: config user is required")
	case !c.SSLMode.Valid():
		return fmt.Errorf("postgres: config ssl_mode %q is not supported", c.SSLMode)
	case c.MinConns > c.MaxConns:
		return fmt.Errorf("postgres: config min_conns (%d) must be <= max_conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

func (c *Config) applyPoolDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MinConns == 0 {
		c.MinConns = DefaultMinConns
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = DefaultConnLife
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = DefaultConnIdle
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = DefaultHealthCheck
	}
}

// ConnectionString returns the URI, or builds one from the fields with the
// password percent-encoded.
func (c *Config) ConnectionString() string {
	if c.URI != "" {
		return c.URI
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password.Value()),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(string(c.SSLMode)),
	}
	return u.String()
}

// databaseName is the name recorded on spans.
func (c *Config) databaseName() string {
	if c.URI == "" {
		return c.Database
	}
	u, err := url.Parse(c.URI)
	if err != nil || len(u.Path) < 2 {
		return ""
	}
	return u.Path[1:]
}

func truncateSQL(sql string) string {
	runes := []rune(sql)
	if len(runes) <= maxSQLLen {
		return sql
	}
	return string(runes[:maxSQLLen]) + "..."
}
