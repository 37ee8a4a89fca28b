// Package authorities resolves a username into the authorities the gateway
// signs into downstream credentials.
//
// Three layers build on each other. [Resolver] queries the directory with a
// bounded retry loop and canonicalises the answer. [Cache] keeps resolved
// users with access and write based expiry, refreshes them ahead of
// expiry and never runs two resolutions of one key at once. [Provider]
// applies the gateway policy on top: protected identities, disabled users
// and auto-provisioning of unknown users.
//
//	res := authorities.NewResolver(dir, cfg).WithLogger(logger)
//	cache := authorities.NewCache(res, cfg)
//	provider := authorities.NewProvider(cache, dir, cfg)
//	roles, err := provider.Authorities(ctx, "alice")
package authorities

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/directory"
	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/metrics"
)

const tracerName = "github.com/StricklySoft/stricklysoft-gateway/pkg/authorities"

// errDirectoryDown is the cause recorded when the availability probe fails.
var errDirectoryDown = errors.New("directory reported itself unavailable")

// Loader produces a fresh UserAuthInfo for a cache miss or refresh.
type Loader interface {
	Resolve(ctx context.Context, username string) (UserAuthInfo, error)
}

// Resolver queries the directory for one user at a time. It is safe for
// concurrent use; at most Config.MaxConcurrent resolutions run at once.
type Resolver struct {
	dir      directory.Directory
	cfg      Config
	sem      *semaphore.Weighted
	interner *Interner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

var _ Loader = (*Resolver)(nil)

// NewResolver returns a Resolver over dir. Zero fields of cfg take their
// defaults.
func NewResolver(dir directory.Directory, cfg Config) *Resolver {
	cfg.applyDefaults()
	return &Resolver{
		dir:      dir,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		interner: NewInterner(cfg.InternCapacity),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
}

// WithLogger replaces [slog.Default].
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	r.logger = logger
	return r
}

// WithMetrics sets the resolution and retry counters. A nil m disables
// them.
func (r *Resolver) WithMetrics(m *metrics.Metrics) *Resolver {
	r.metrics = m
	return r
}

// Resolve loads username from the directory.
//
// While the directory reports itself unavailable the lookup is retried
// with exponential backoff until Config.RetryDeadline, after which
// UNAVAIL_002 is returned. A query that fails while the directory is
// available is not retried. Unknown users resolve to NotExists with no
// authorities.
func (r *Resolver) Resolve(ctx context.Context, username string) (UserAuthInfo, error) {
	ctx, span := r.tracer.Start(ctx, "authorities.Resolve",
		trace.WithAttributes(attribute.String("enduser.id", username)))
	defer span.End()

	info, err := r.resolve(ctx, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.metrics.Resolution(string(sserr.FromError(err).Code))
		return UserAuthInfo{}, err
	}
	span.SetStatus(codes.Ok, "")
	r.metrics.Resolution("ok")
	return info, nil
}

func (r *Resolver) resolve(ctx context.Context, username string) (UserAuthInfo, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return UserAuthInfo{}, err
	}
	defer r.sem.Release(1)

	attrs, err := r.fetch(ctx, username)
	if err != nil {
		return UserAuthInfo{}, err
	}

	if attrs.IsNotExists() {
		return UserAuthInfo{Authorities: []string{}, NotExists: true}, nil
	}
	if attrs.Authorities == nil {
		return UserAuthInfo{}, sserr.Internalf("authorities: directory returned no authorities for %q", username)
	}
	return UserAuthInfo{
		Authorities: r.interner.InternAll(Augment(attrs.Authorities, r.cfg.adminMarker())),
		Disabled:    attrs.IsDisabled(),
	}, nil
}

func (r *Resolver) fetch(ctx context.Context, username string) (directory.Attributes, error) {
	loopCtx, cancel := context.WithTimeout(ctx, r.cfg.RetryDeadline)
	defer cancel()

	var (
		attempt   int
		permanent bool
	)
	op := func() (directory.Attributes, error) {
		attempt++
		if !r.dir.Available(loopCtx) {
			return directory.Attributes{}, errDirectoryDown
		}
		attrs, err := r.dir.UserAttributes(loopCtx, username)
		if err == nil {
			return attrs, nil
		}
		if loopCtx.Err() == nil && r.dir.Available(loopCtx) {
			permanent = true
			return directory.Attributes{}, backoff.Permanent(err)
		}
		return directory.Attributes{}, err
	}
	notify := func(err error, wait time.Duration) {
		r.metrics.ResolverRetry()
		r.logger.WarnContext(ctx, "directory unavailable, retrying",
			"username", username,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	attrs, err := backoff.RetryNotifyWithData(op, backoff.WithContext(r.newBackOff(), loopCtx), notify)
	switch {
	case err == nil:
		return attrs, nil
	case permanent:
		return directory.Attributes{}, err
	case ctx.Err() != nil:
		return directory.Attributes{}, ctx.Err()
	}
	r.logger.ErrorContext(ctx, "directory not available before deadline",
		"username", username,
		"attempts", attempt,
		"deadline", r.cfg.RetryDeadline,
		"error", err,
	)
	return directory.Attributes{}, sserr.Wrap(err, sserr.CodeUnavailableDependency,
		"authorities: directory is not available")
}

func (r *Resolver) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryInitialInterval
	b.MaxInterval = r.cfg.RetryMaxInterval
	b.MaxElapsedTime = r.cfg.RetryDeadline
	b.Reset()
	return b
}
