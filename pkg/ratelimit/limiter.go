package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/metrics"
)

const tracerName = "github.com/StricklySoft/stricklysoft-gateway/pkg/ratelimit"

// Limiter is the admission controller. It is safe for concurrent use.
type Limiter struct {
	store   BucketStore
	enabled bool
	bucket  atomic.Pointer[BucketConfig]
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewLimiter returns a Limiter charging buckets in store.
//
// Errors: VAL_001 when cfg is invalid.
func NewLimiter(store BucketStore, cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation, "ratelimit: invalid configuration")
	}
	l := &Limiter{
		store:   store,
		enabled: cfg.Enabled,
		now:     time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	bucket := cfg.Bucket()
	l.bucket.Store(&bucket)
	return l, nil
}

// WithClock sets the time source used to refill buckets. Tests use it to
// step time without sleeping.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// WithLogger sets the logger for store failures and rejections.
func (l *Limiter) WithLogger(logger *slog.Logger) *Limiter {
	l.logger = logger
	return l
}

// WithMetrics sets the admission counters. A nil m disables them.
func (l *Limiter) WithMetrics(m *metrics.Metrics) *Limiter {
	l.metrics = m
	return l
}

// Reconfigure changes the shape of buckets created from now on. Existing
// buckets are not touched, and Enabled and KeyPrefix keep the values given
// to [NewLimiter].
//
// Errors: VAL_001 when cfg.Limit or cfg.Duration is not positive, or when
// cfg is otherwise invalid. The previous shape stays in force.
func (l *Limiter) Reconfigure(cfg Config) error {
	if cfg.Limit <= 0 || cfg.Duration <= 0 {
		return sserr.Validationf("ratelimit: limit and duration must be positive, got %d per %s", cfg.Limit, cfg.Duration)
	}
	if err := cfg.Validate(); err != nil {
		return sserr.Wrap(err, sserr.CodeValidation, "ratelimit: invalid configuration")
	}
	bucket := cfg.Bucket()
	l.bucket.Store(&bucket)
	l.logger.Info("rate limit reconfigured", "limit", bucket.Capacity, "duration", bucket.Duration)
	return nil
}

// TryConsume charges cost tokens to p.
//
// A store failure admits the request: the failure is logged, counted and
// reported through Decision.FailedOpen. The only error returned is
// VAL_001 for a non-positive cost.
func (l *Limiter) TryConsume(ctx context.Context, p Principal, cost int64) (Decision, error) {
	if cost <= 0 {
		return Decision{}, sserr.Validationf("ratelimit: cost must be positive, got %d", cost)
	}
	bucket := *l.bucket.Load()
	if !l.enabled {
		l.metrics.Admission(metrics.DecisionUnlimited)
		return Decision{Allowed: true, Remaining: float64(bucket.Capacity)}, nil
	}

	key := p.Key()
	ctx, span := l.tracer.Start(ctx, "ratelimit.TryConsume",
		trace.WithAttributes(attribute.String("ratelimit.key", key), attribute.Int64("ratelimit.cost", cost)))
	defer span.End()

	d, err := l.store.TryConsume(ctx, key, bucket, cost, l.now())
	if err != nil {
		span.RecordError(err)
		l.metrics.StoreError()
		l.metrics.Admission(metrics.DecisionFailOpen)
		l.logger.WarnContext(ctx, "rate limit store failed, admitting request",
			"key", key,
			"error", err,
		)
		return Decision{Allowed: true, FailedOpen: true}, nil
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", d.Allowed))
	if d.Allowed {
		l.metrics.Admission(metrics.DecisionAllow)
	} else {
		l.metrics.Admission(metrics.DecisionReject)
		l.logger.DebugContext(ctx, "rate limit exceeded", "key", key, "retry_after", d.RetryAfter)
	}
	return d, nil
}

// Allow is TryConsume with cost 1.
func (l *Limiter) Allow(ctx context.Context, p Principal) (Decision, error) {
	return l.TryConsume(ctx, p, 1)
}
