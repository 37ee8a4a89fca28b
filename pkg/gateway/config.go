package gateway

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/authorities"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/clients/neo4j"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/clients/postgres"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/clients/redis"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/ratelimit"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/token"
)

// EnvPrefix prefixes every environment variable of [Config].
const EnvPrefix = "GATEWAY"

// DirectoryBackend selects where user records live.
type DirectoryBackend string

const (
	DirectoryMemory   DirectoryBackend = "memory"
	DirectoryPostgres DirectoryBackend = "postgres"
	DirectoryNeo4j    DirectoryBackend = "neo4j"
)

// StoreBackend selects where token buckets live.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

// DirectoryConfig picks and prepares the directory backend.
type DirectoryConfig struct {
	Backend DirectoryBackend `json:"backend" yaml:"backend" env:"BACKEND" envDefault:"memory"`
	// File seeds the memory backend from YAML.
	File string `json:"file" yaml:"file" env:"FILE"`
	// Migrate creates the Postgres schema on start.
	Migrate bool `json:"migrate" yaml:"migrate" env:"MIGRATE"`
}

// Config is the whole gateway configuration, loaded from GATEWAY_*
// variables and an optional file named by GATEWAY_CONFIG_FILE.
type Config struct {
	ListenAddr      string        `json:"listen_addr" yaml:"listen_addr" env:"LISTEN_ADDR" envDefault:":8080"`
	Upstream        string        `json:"upstream" yaml:"upstream" env:"UPSTREAM" required:"true"`
	ServiceName     string        `json:"service_name" yaml:"service_name" env:"SERVICE_NAME" envDefault:"gateway"`
	LogLevel        string        `json:"log_level" yaml:"log_level" env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// AnonymousUser, when set, is resolved for requests without an
	// asserted user. Otherwise such requests are admitted by client
	// address and forwarded without a credential.
	AnonymousUser string `json:"anonymous_user" yaml:"anonymous_user" env:"ANONYMOUS_USER"`

	Directory      DirectoryConfig `json:"directory" yaml:"directory" env:"DIRECTORY"`
	RateLimitStore StoreBackend    `json:"rate_limit_store" yaml:"rate_limit_store" env:"RATE_LIMIT_STORE" envDefault:"memory"`

	Authorities authorities.Config `json:"authorities" yaml:"authorities" env:"AUTHORITIES"`
	RateLimit   ratelimit.Config   `json:"rate_limit" yaml:"rate_limit" env:"RATE_LIMIT"`
	Token       token.Config       `json:"token" yaml:"token" env:"TOKEN"`

	Redis    redis.Config    `json:"redis" yaml:"redis" env:"REDIS"`
	Postgres postgres.Config `json:"postgres" yaml:"postgres" env:"POSTGRES"`
	Neo4j    neo4j.Config    `json:"neo4j" yaml:"neo4j" env:"NEO4J"`
}

// Validate checks the gateway settings and every component config the
// selected backends use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway: upstream must be an absolute URL, got %q", c.Upstream)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("gateway: shutdown_timeout must be positive")
	}

	if err := c.Authorities.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Token.Validate(); err != nil {
		return err
	}

	switch c.Directory.Backend {
	case DirectoryMemory:
	case DirectoryPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return err
		}
	case DirectoryNeo4j:
		if err := c.Neo4j.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("gateway: unknown directory backend %q", c.Directory.Backend)
	}

	switch c.RateLimitStore {
	case StoreMemory:
	case StoreRedis:
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("gateway: unknown rate limit store %q", c.RateLimitStore)
	}
	return nil
}

// UpstreamURL returns the parsed upstream. Call it after Validate.
func (c *Config) UpstreamURL() *url.URL {
	u, _ := url.Parse(c.Upstream)
	return u
}

// SlogLevel returns LogLevel as a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("gateway: invalid log_level %q", s)
	}
	return level, nil
}
