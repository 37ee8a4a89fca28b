package token

import (
	"fmt"
	"time"
)

const (
	DefaultIssuer    = "stricklysoft-gateway"
	DefaultTTL       = 5 * time.Minute
	DefaultLeeway    = 30 * time.Second
	DefaultCacheTTL  = 10 * time.Second
	DefaultCacheSize = 400

	minSigningKeyLen = 32
)

// Secret hides key material from logs and serialized config.
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

// Config controls token minting and the issued-token cache.
//
// CacheTTL must stay below TTL, otherwise a cached token could outlive its
// own expiry and every request would pay for a regeneration.
type Config struct {
	SigningKey Secret        `json:"-" yaml:"signing_key" env:"SIGNING_KEY" required:"true"`
	Issuer     string        `json:"issuer" yaml:"issuer" env:"ISSUER" envDefault:"stricklysoft-gateway"`
	TTL        time.Duration `json:"ttl" yaml:"ttl" env:"TTL" envDefault:"5m"`
	Leeway     time.Duration `json:"leeway" yaml:"leeway" env:"LEEWAY" envDefault:"30s"`
	CacheTTL   time.Duration `json:"cache_ttl" yaml:"cache_ttl" env:"CACHE_TTL" envDefault:"10s"`
	CacheSize  int           `json:"cache_size" yaml:"cache_size" env:"CACHE_SIZE" envDefault:"400"`
}

// DefaultConfig returns the defaults with no signing key.
func DefaultConfig() Config {
	return Config{
		Issuer:    DefaultIssuer,
		TTL:       DefaultTTL,
		Leeway:    DefaultLeeway,
		CacheTTL:  DefaultCacheTTL,
		CacheSize: DefaultCacheSize,
	}
}

// Validate applies defaults and returns the first invalid setting.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	switch {
	case len(c.SigningKey) < minSigningKeyLen:
		return fmt.Errorf("token: signing_key must be at least %d bytes", minSigningKeyLen)
	case c.TTL < time.Second:
		return fmt.Errorf("token: ttl must be at least 1s, got %s", c.TTL)
	case c.Leeway < 0:
		return fmt.Errorf("token: leeway must not be negative")
	case c.CacheTTL < 0 || c.CacheTTL >= c.TTL:
		return fmt.Errorf("token: cache_ttl must be between 0 and ttl (%s), got %s", c.TTL, c.CacheTTL)
	case c.CacheSize < 1:
		return fmt.Errorf("token: cache_size must be >= 1, got %d", c.CacheSize)
	}
	return nil
}
