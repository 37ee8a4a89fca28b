// Package gateway is the request pipeline in front of the upstream
// service. For each request it reads the caller from the inbound headers,
// resolves their authorities, charges the rate budget, mints a bearer
// credential and hands the request on:
//
//	gw := gateway.New(provider, limiter, issuer).
//	    WithLogger(logger).
//	    WithMetrics(m)
//	router := gateway.NewRouter(gateway.RouterOptions{
//	    Pipeline: gw.Middleware(gateway.NewProxy(upstream, "gateway", nil, logger)),
//	})
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/auth"
	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/metrics"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/ratelimit"
	"github.com/StricklySoft/stricklysoft-gateway/pkg/token"
)

// AuthoritiesSource resolves the authorities of a user.
// *authorities.Provider implements it.
type AuthoritiesSource interface {
	Authorities(ctx context.Context, username string) ([]string, error)
}

// Admitter decides whether a principal may proceed.
// *ratelimit.Limiter implements it.
type Admitter interface {
	TryConsume(ctx context.Context, p ratelimit.Principal, cost int64) (ratelimit.Decision, error)
}

// CredentialIssuer mints bearer tokens. *token.Issuer implements it.
type CredentialIssuer interface {
	Credential(ctx context.Context, id token.Identity) (string, error)
}

// Gateway is the request pipeline. It is safe for concurrent use.
type Gateway struct {
	authorities   AuthoritiesSource
	admitter      Admitter
	issuer        CredentialIssuer
	anonymousUser string
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// New returns a pipeline over the three collaborators.
func New(authorities AuthoritiesSource, admitter Admitter, issuer CredentialIssuer) *Gateway {
	return &Gateway{
		authorities: authorities,
		admitter:    admitter,
		issuer:      issuer,
		now:         time.Now,
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger for failed requests.
func (g *Gateway) WithLogger(logger *slog.Logger) *Gateway {
	g.logger = logger
	return g
}

// WithMetrics sets the request counters. A nil m disables them.
func (g *Gateway) WithMetrics(m *metrics.Metrics) *Gateway {
	g.metrics = m
	return g
}

// WithAnonymousUser makes requests without an asserted user act as
// username.
func (g *Gateway) WithAnonymousUser(username string) *Gateway {
	g.anonymousUser = username
	return g
}

// Middleware wraps next with the whole pipeline, including
// [auth.ContextMiddleware]. next sees a RequestContext carrying the
// resolved authorities and the minted token.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return auth.ContextMiddleware(g.admit(next))
}

func (g *Gateway) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := g.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := r.Context()
		rc := auth.MustRequestContext(ctx)

		var failure error
		defer func() {
			g.metrics.Request(rec.status, g.now().Sub(start))
			if rec.status >= http.StatusBadRequest {
				g.logRequestError(ctx, r, rc, rec.status, failure)
			}
		}()

		if rc.Username == "" {
			rc.Username = g.anonymousUser
		}

		if rc.Username != "" {
			authorities, err := g.authorities.Authorities(ctx, rc.Username)
			if err != nil {
				failure = err
				writeError(rec, r, err)
				return
			}
			rc.Authorities = authorities
		}

		decision, err := g.admitter.TryConsume(ctx, ratelimit.Principal{Username: rc.Username, Address: auth.PeerAddress(r)}, 1)
		if err != nil {
			failure = err
			writeError(rec, r, err)
			return
		}
		if !decision.Allowed {
			failure = decision.Err()
			ratelimit.WriteRejection(rec, decision)
			return
		}

		if rc.Username != "" {
			tok, err := g.issuer.Credential(ctx, token.Identity{Username: rc.Username, Authorities: rc.Authorities})
			if err != nil {
				failure = err
				writeError(rec, r, err)
				return
			}
			rc.Token = tok
		}

		next.ServeHTTP(rec, r.WithContext(auth.WithRequestContext(ctx, rc)))
	})
}

// writeError answers with the status of err's code and its client-safe
// message. Errors without a code are reported as a plain 500. A deadline
// or cancellation inside err only means "request canceled" when r's own
// context has ended; internal deadlines keep their code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		http.Error(w, "request canceled", http.StatusServiceUnavailable)
		return
	}
	serr, ok := sserr.AsError(err)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Error(w, serr.Message, serr.HTTPStatus())
}

func (g *Gateway) logRequestError(ctx context.Context, r *http.Request, rc auth.RequestContext, status int, err error) {
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"user", rc.Username,
		"remote", rc.RealIP,
		"trace_id", rc.TraceID,
	}
	if err != nil {
		attrs = append(attrs, "code", string(sserr.FromError(err).Code), "error", err)
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	g.logger.Log(ctx, level, "gateway: request failed", attrs...)
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader records the first status written.
func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

// Write implies a 200 when no status was written yet.
func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
