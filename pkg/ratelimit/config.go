package ratelimit

import (
	"fmt"
	"time"
)

const (
	DefaultLimit           = 100_000
	DefaultDuration        = time.Hour
	DefaultKeyPrefix       = "gateway:ratelimit:"
	DefaultJanitorInterval = time.Minute
)

// Config is the process-wide admission budget. Each principal gets a
// bucket of Limit tokens refilled linearly over Duration.
type Config struct {
	Enabled         bool          `json:"enabled" yaml:"enabled" env:"ENABLED" envDefault:"true"`
	Limit           int64         `json:"limit" yaml:"limit" env:"LIMIT" envDefault:"100000"`
	Duration        time.Duration `json:"duration" yaml:"duration" env:"DURATION" envDefault:"1h"`
	KeyPrefix       string        `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX" envDefault:"gateway:ratelimit:"`
	JanitorInterval time.Duration `json:"janitor_interval" yaml:"janitor_interval" env:"JANITOR_INTERVAL" envDefault:"1m"`
}

// DefaultConfig returns an enabled limiter of 100 000 requests per hour.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Limit:           DefaultLimit,
		Duration:        DefaultDuration,
		KeyPrefix:       DefaultKeyPrefix,
		JanitorInterval: DefaultJanitorInterval,
	}
}

// Validate fills zero values with defaults and rejects negative ones.
func (c *Config) Validate() error {
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Duration == 0 {
		c.Duration = DefaultDuration
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.JanitorInterval == 0 {
		c.JanitorInterval = DefaultJanitorInterval
	}
	switch {
	case c.Limit < 0:
		return fmt.Errorf("ratelimit: limit must be positive, got %d", c.Limit)
	case c.Duration < time.Millisecond:
		return fmt.Errorf("ratelimit: duration must be at least 1ms, got %s", c.Duration)
	case c.JanitorInterval < 0:
		return fmt.Errorf("ratelimit: janitor_interval must not be negative")
	}
	return nil
}

// Bucket returns the bucket shape for newly created principals.
func (c Config) Bucket() BucketConfig {
	return BucketConfig{Capacity: c.Limit, Duration: c.Duration}
}
