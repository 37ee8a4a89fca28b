package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"slices"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/metrics"
)

// Issuer hands out cached credentials. Tokens are keyed by username and a
// fingerprint of the authorities, so a change in group membership mints a
// new token on the next request.
type Issuer struct {
	signer  Signer
	cache   *expirable.LRU[string, string]
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewIssuer returns an Issuer over signer. Zero cache settings in cfg fall
// back to the defaults.
func NewIssuer(signer Signer, cfg Config) *Issuer {
	size, ttl := cfg.CacheSize, cfg.CacheTTL
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Issuer{
		signer: signer,
		cache:  expirable.NewLRU[string, string](size, nil, ttl),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
}

// WithLogger sets the logger for regenerated credentials.
func (i *Issuer) WithLogger(logger *slog.Logger) *Issuer {
	i.logger = logger
	return i
}

// WithMetrics sets the minting counters. A nil m disables them.
func (i *Issuer) WithMetrics(m *metrics.Metrics) *Issuer {
	i.metrics = m
	return i
}

// Credential returns a valid token for id.
//
// A cached token is validated before it is returned. If validation fails
// the entry is dropped and a new token is minted, once. A second failure
// is returned to the caller.
func (i *Issuer) Credential(ctx context.Context, id Identity) (string, error) {
	ctx, span := startSpan(ctx, i.tracer, "token.Credential")
	span.SetAttributes(attribute.String("token.subject", id.Username))

	tok, err := i.credential(ctx, id)
	finishSpan(span, err)
	return tok, err
}

func (i *Issuer) credential(ctx context.Context, id Identity) (string, error) {
	key := cacheKey(id)

	tok, err := i.get(ctx, key, id)
	if err != nil {
		return "", err
	}
	verr := i.signer.Validate(ctx, tok)
	if verr == nil {
		return tok, nil
	}

	i.logger.WarnContext(ctx, "token: cached token rejected, regenerating",
		"username", id.Username,
		"error", verr,
	)
	i.metrics.TokenRegenerated()
	i.cache.Remove(key)

	tok, err = i.get(ctx, key, id)
	if err != nil {
		return "", err
	}
	if verr := i.signer.Validate(ctx, tok); verr != nil {
		i.cache.Remove(key)
		return "", sserr.FromError(verr)
	}
	return tok, nil
}

// get returns the cached token for key or mints one. Concurrent misses on
// the same key share one Sign call, which runs detached from the caller's
// cancellation.
func (i *Issuer) get(ctx context.Context, key string, id Identity) (string, error) {
	if tok, ok := i.cache.Get(key); ok {
		return tok, nil
	}

	ch := i.group.DoChan(key, func() (any, error) {
		tok, err := i.signer.Sign(context.WithoutCancel(ctx), id)
		if err != nil {
			return "", err
		}
		i.cache.Add(key, tok)
		i.metrics.TokenMinted()
		return tok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", sserr.FromError(res.Err)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len reports the number of cached tokens.
func (i *Issuer) Len() int {
	return i.cache.Len()
}

func cacheKey(id Identity) string {
	sorted := slices.Clone(id.Authorities)
	slices.Sort(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return id.Username + "\x00" + hex.EncodeToString(sum[:])
}
