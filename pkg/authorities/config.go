package authorities

import (
	"fmt"
	"time"
)

// StorageType names the directory flavour behind the gateway. It decides
// which admin marker the resolver recognises.
type StorageType string

const (
	StorageEmodel   StorageType = "EMODEL"
	StorageAlfresco StorageType = "ALFRESCO"
)

const (
	DefaultExpireAfterAccess    = 60 * time.Second
	DefaultRefreshAfterWrite    = 20 * time.Second
	DefaultExpireAfterWrite     = 5 * time.Minute
	DefaultMaxEntries           = 100_000
	DefaultRetryDeadline        = 60 * time.Second
	DefaultRetryInitialInterval = time.Second
	DefaultRetryMaxInterval     = 5 * time.Second
	DefaultMaxConcurrent        = 50
	DefaultInternCapacity       = 10_000
	DefaultAdminGroup           = "GROUP_ALFRESCO_ADMINISTRATORS"
	DefaultSystemUser           = "system"
)

// Config covers the cache, the resolver and the provisioning policy.
type Config struct {
	ExpireAfterAccess time.Duration `json:"expire_after_access" yaml:"expire_after_access" env:"EXPIRE_AFTER_ACCESS" envDefault:"60s"`
	RefreshAfterWrite time.Duration `json:"refresh_after_write" yaml:"refresh_after_write" env:"REFRESH_AFTER_WRITE" envDefault:"20s"`
	ExpireAfterWrite  time.Duration `json:"expire_after_write" yaml:"expire_after_write" env:"EXPIRE_AFTER_WRITE" envDefault:"5m"`
	MaxEntries        int           `json:"max_entries" yaml:"max_entries" env:"MAX_ENTRIES" envDefault:"100000"`

	RetryDeadline        time.Duration `json:"retry_deadline" yaml:"retry_deadline" env:"RETRY_DEADLINE" envDefault:"60s"`
	RetryInitialInterval time.Duration `json:"retry_initial_interval" yaml:"retry_initial_interval" env:"RETRY_INITIAL_INTERVAL" envDefault:"1s"`
	RetryMaxInterval     time.Duration `json:"retry_max_interval" yaml:"retry_max_interval" env:"RETRY_MAX_INTERVAL" envDefault:"5s"`
	MaxConcurrent        int           `json:"max_concurrent" yaml:"max_concurrent" env:"MAX_CONCURRENT" envDefault:"50"`
	InternCapacity       int           `json:"intern_capacity" yaml:"intern_capacity" env:"INTERN_CAPACITY" envDefault:"10000"`

	StorageType StorageType `json:"storage_type" yaml:"storage_type" env:"STORAGE_TYPE" envDefault:"EMODEL"`
	AdminGroup  string      `json:"admin_group" yaml:"admin_group" env:"ADMIN_GROUP" envDefault:"GROUP_ALFRESCO_ADMINISTRATORS"`

	// SystemUser is never resolved.
	SystemUser string `json:"system_user" yaml:"system_user" env:"SYSTEM_USER" envDefault:"system"`
	// ExemptUsers pass even when the directory marks them disabled.
	ExemptUsers []string `json:"exempt_users" yaml:"exempt_users" env:"EXEMPT_USERS" envDefault:"admin"`
	// NoAutoCreateUsers must exist in the directory beforehand.
	NoAutoCreateUsers []string `json:"no_auto_create_users" yaml:"no_auto_create_users" env:"NO_AUTO_CREATE_USERS" envDefault:"guest,admin"`
	AutoProvision     bool     `json:"auto_provision" yaml:"auto_provision" env:"AUTO_PROVISION" envDefault:"true"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ExpireAfterAccess:    DefaultExpireAfterAccess,
		RefreshAfterWrite:    DefaultRefreshAfterWrite,
		ExpireAfterWrite:     DefaultExpireAfterWrite,
		MaxEntries:           DefaultMaxEntries,
		RetryDeadline:        DefaultRetryDeadline,
		RetryInitialInterval: DefaultRetryInitialInterval,
		RetryMaxInterval:     DefaultRetryMaxInterval,
		MaxConcurrent:        DefaultMaxConcurrent,
		InternCapacity:       DefaultInternCapacity,
		StorageType:          StorageEmodel,
		AdminGroup:           DefaultAdminGroup,
		SystemUser:           DefaultSystemUser,
		ExemptUsers:          []string{"admin"},
		NoAutoCreateUsers:    []string{"guest", "admin"},
		AutoProvision:        true,
	}
}

// Validate fills zero durations and sizes with defaults and checks the
// freshness ordering.
func (c *Config) Validate() error {
	c.applyDefaults()

	switch {
	case c.StorageType != StorageEmodel && c.StorageType != StorageAlfresco:
		return fmt.Errorf("authorities: unknown storage_type %q", c.StorageType)
	case c.RefreshAfterWrite >= c.ExpireAfterAccess:
		return fmt.Errorf("authorities: refresh_after_write (%s) must be shorter than expire_after_access (%s)",
			c.RefreshAfterWrite, c.ExpireAfterAccess)
	case c.ExpireAfterWrite < c.RefreshAfterWrite:
		return fmt.Errorf("authorities: expire_after_write (%s) must not be shorter than refresh_after_write (%s)",
			c.ExpireAfterWrite, c.RefreshAfterWrite)
	case c.RetryInitialInterval > c.RetryMaxInterval:
		return fmt.Errorf("authorities: retry_initial_interval (%s) exceeds retry_max_interval (%s)",
			c.RetryInitialInterval, c.RetryMaxInterval)
	case c.MaxEntries < 1 || c.MaxConcurrent < 1 || c.InternCapacity < 1:
		return fmt.Errorf("authorities: max_entries, max_concurrent and intern_capacity must be positive")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ExpireAfterAccess == 0 {
		c.ExpireAfterAccess = DefaultExpireAfterAccess
	}
	if c.RefreshAfterWrite == 0 {
		c.RefreshAfterWrite = DefaultRefreshAfterWrite
	}
	if c.ExpireAfterWrite == 0 {
		c.ExpireAfterWrite = DefaultExpireAfterWrite
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.RetryDeadline == 0 {
		c.RetryDeadline = DefaultRetryDeadline
	}
	if c.RetryInitialInterval == 0 {
		c.RetryInitialInterval = DefaultRetryInitialInterval
	}
	if c.RetryMaxInterval == 0 {
		c.RetryMaxInterval = DefaultRetryMaxInterval
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.InternCapacity == 0 {
		c.InternCapacity = DefaultInternCapacity
	}
	if c.StorageType == "" {
		c.StorageType = StorageEmodel
	}
	if c.SystemUser == "" {
		c.SystemUser = DefaultSystemUser
	}
}

// adminMarker is the raw authority that grants RoleAdmin, or "" when the
// storage type has none.
func (c *Config) adminMarker() string {
	if c.StorageType == StorageAlfresco {
		return c.AdminGroup
	}
	return ""
}
