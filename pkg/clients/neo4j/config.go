// Package neo4j wraps the Neo4j Go driver with OpenTelemetry spans and
// coded errors. The gateway uses it when user records and group
// membership live in a graph: authorities are the groups reachable from a
// user over MEMBER_OF edges.
//
//	client, err := neo4j.NewClient(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
package neo4j

import (
	"fmt"
	"net/url"
	"time"
)

const maxCypherLen = 100

const (
	DefaultScheme                  = "neo4j"
	DefaultHost                    = "localhost"
	DefaultPort                    = 7687
	DefaultDatabase                = "neo4j"
	DefaultUsername                = "neo4j"
	DefaultMaxConnectionPoolSize   = 50
	DefaultMaxConnectionLifetime   = time.Hour
	DefaultConnectionAcquireTimout = 30 * time.Second
	DefaultConnectTimeout          = 5 * time.Second
	DefaultHealthTimeout           = 2 * time.Second
)

var validSchemes = map[string]bool{
	"neo4j": true, "neo4j+s": true, "bolt": true, "bolt+s": true,
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

// Config holds connection settings. A non-empty URI wins over Scheme, Host
// and Port.
type Config struct {
	URI                          string        `json:"uri,omitempty" yaml:"uri" env:"URI"`
	Scheme                       string        `json:"scheme,omitempty" yaml:"scheme" env:"SCHEME" envDefault:"neo4j"`
	Host                         string        `json:"host,omitempty" yaml:"host" env:"HOST" envDefault:"localhost"`
	Port                         int           `json:"port,omitempty" yaml:"port" env:"PORT" envDefault:"7687"`
	Database                     string        `json:"database" yaml:"database" env:"DATABASE" envDefault:"neo4j"`
	Username                     string        `json:"username" yaml:"username" env:"USERNAME" envDefault:"neo4j"`
	Password                     Secret        `json:"-" yaml:"password" env:"PASSWORD"`
	MaxConnectionPoolSize        int           `json:"max_connection_pool_size,omitempty" yaml:"max_connection_pool_size" env:"MAX_CONNECTION_POOL_SIZE"`
	MaxConnectionLifetime        time.Duration `json:"max_connection_lifetime,omitempty" yaml:"max_connection_lifetime" env:"MAX_CONNECTION_LIFETIME"`
	ConnectionAcquisitionTimeout time.Duration `json:"connection_acquisition_timeout,omitempty" yaml:"connection_acquisition_timeout" env:"CONNECTION_ACQUISITION_TIMEOUT"`
	ConnectTimeout               time.Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// DefaultConfig returns a Config for a local single-instance Neo4j.
func DefaultConfig() *Config {
	return &Config{
		Scheme:                       DefaultScheme,
		Host:                         DefaultHost,
		Port:                         DefaultPort,
		Database:                     DefaultDatabase,
		Username:                     DefaultUsername,
		MaxConnectionPoolSize:        DefaultMaxConnectionPoolSize,
		MaxConnectionLifetime:        DefaultMaxConnectionLifetime,
		ConnectionAcquisitionTimeout: DefaultConnectionAcquireTimout,
		ConnectTimeout:               DefaultConnectTimeout,
	}
}

// Validate applies defaults and returns the first invalid setting.
func (c *Config) Validate() error {
	if c.MaxConnectionPoolSize == 0 {
		c.MaxConnectionPoolSize = DefaultMaxConnectionPoolSize
	}
	if c.MaxConnectionLifetime == 0 {
		c.MaxConnectionLifetime = DefaultMaxConnectionLifetime
	}
	if c.ConnectionAcquisitionTimeout == 0 {
		c.ConnectionAcquisitionTimeout = DefaultConnectionAcquireTimout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Username == "" {
		return fmt.Errorf("neo4j: config username is required")
	}

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("neo4j: config URI is invalid: %w", err)
		}
		if !validSchemes[u.Scheme] {
			return fmt.Errorf("neo4j: config URI scheme %q is not supported", u.Scheme)
		}
		return nil
	}

	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	switch {
	case !validSchemes[c.Scheme]:
		return fmt.Errorf("neo4j: config scheme %q is not supported", c.Scheme)
	case c.Host == "":
		return fmt.Errorf("neo4j: config host is required")
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("neo4j: config port must be between 1 and 65535, got %d", c.Port)
	case c.MaxConnectionPoolSize < 1:
		return fmt.Errorf("neo4j: config max_connection_pool_size must be >= 1, got %d", c.MaxConnectionPoolSize)
	}
	return nil
}

// ConnectionURI returns URI or builds scheme://host:port.
func (c *Config) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

func truncateCypher(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCypherLen {
		return s
	}
	return string(runes[:maxCypherLen]) + "..."
}
