package authorities

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/directory"
	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/metrics"
)

// Provider answers "which authorities does this user have" for the
// request pipeline.
type Provider struct {
	cache   *Cache
	dir     directory.Directory
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// provisioning serialises every create-user sequence of the cache.
	// It is never held on the lookup path.
	provisioning *semaphore.Weighted
}

// NewProvider returns a Provider that reads through cache and creates
// missing users in dir.
func NewProvider(cache *Cache, dir directory.Directory, cfg Config) *Provider {
	cfg.applyDefaults()
	return &Provider{
		cache:        cache,
		dir:          dir,
		cfg:          cfg,
		logger:       slog.Default(),
		provisioning: semaphore.NewWeighted(1),
	}
}

// WithLogger sets the logger for user provisioning.
func (p *Provider) WithLogger(logger *slog.Logger) *Provider {
	p.logger = logger
	return p
}

// WithMetrics sets the provisioning counter. A nil m disables it.
func (p *Provider) WithMetrics(m *metrics.Metrics) *Provider {
	p.metrics = m
	return p
}

// Authorities returns the sorted authorities of username. The returned
// slice belongs to the caller.
//
// Errors:
//   - VAL_002 for a blank username
//   - AUTHZ_005 for the system user
//   - AUTHZ_004 when the user is disabled and not exempt
//   - NF_002 when the user does not exist and may not be created
//   - UNAVAIL_002 when the directory stayed unavailable
func (p *Provider) Authorities(ctx context.Context, username string) ([]string, error) {
	if strings.TrimSpace(username) == "" {
		return nil, sserr.New(sserr.CodeValidationRequired, "authorities: username is required")
	}
	if username == p.cfg.SystemUser {
		return nil, sserr.Newf(sserr.CodeProtectedIdentity,
			"authorities: %q can't be used outside of system context", username)
	}

	info, err := p.cache.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if info.NotExists {
		if info, err = p.provision(ctx, username); err != nil {
			return nil, err
		}
	}
	if info.Disabled && !slices.Contains(p.cfg.ExemptUsers, username) {
		return nil, sserr.UserDisabled(username)
	}
	return slices.Clone(info.Authorities), nil
}

// provision creates username under the cache-wide provisioning lock. The
// user is re-resolved first so that a creation by a concurrent caller, or
// a stale miss, does not lead to a second CreateUser.
func (p *Provider) provision(ctx context.Context, username string) (UserAuthInfo, error) {
	if slices.Contains(p.cfg.NoAutoCreateUsers, username) {
		return UserAuthInfo{}, sserr.UserNotFoundf("User '%s' is not created yet", username)
	}
	if !p.cfg.AutoProvision {
		return UserAuthInfo{}, sserr.UserNotFoundf("user %q not found", username)
	}

	if err := p.provisioning.Acquire(ctx, 1); err != nil {
		return UserAuthInfo{}, err
	}
	defer p.provisioning.Release(1)

	p.cache.Invalidate(username)
	info, err := p.cache.Get(ctx, username)
	if err != nil || !info.NotExists {
		return info, err
	}

	if err := p.dir.CreateUser(ctx, username); err != nil {
		p.logger.ErrorContext(ctx, "failed to create user", "username", username, "error", err)
		return UserAuthInfo{}, err
	}
	p.metrics.UserProvisioned()
	p.logger.InfoContext(ctx, "user created in directory", "username", username)

	p.cache.Invalidate(username)
	info, err = p.cache.Get(ctx, username)
	if err != nil {
		return UserAuthInfo{}, err
	}
	if info.NotExists {
		return UserAuthInfo{}, sserr.UserNotFoundf("user %q is still missing after creation", username)
	}
	return info, nil
}
