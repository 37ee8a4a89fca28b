// Package auth carries the caller of a gateway request through
// context.Context: who asserted the request, what they may do, where they
// came from, and the credential minted for calls made on their behalf.
// HTTP and gRPC helpers read that context on the way in and attach it on
// the way out.
package auth

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

type contextKey int

const requestContextKey contextKey = iota

// RequestContext is what the gateway knows about the caller of one
// request. It travels in context.Context, so it follows the request across
// goroutines and into outgoing calls made with that context.
type RequestContext struct {
	// Username is the asserted identity. Empty for anonymous requests.
	Username string
	// Authorities is the resolved authority list, sorted.
	Authorities []string
	// TimezoneOffset is the client's offset from UTC in minutes.
	TimezoneOffset int
	// Locale is the first language tag the client accepts.
	Locale string
	// RealIP is the client address as seen by the edge proxy.
	RealIP string
	// TraceID correlates logs and the X-ECOS-Trace-Id response header.
	TraceID string
	// Token is the bearer credential minted for downstream calls.
	Token string
}

// Anonymous reports whether no user was asserted.
func (rc RequestContext) Anonymous() bool {
	return rc.Username == ""
}

// HasAuthority reports whether authority is among rc.Authorities.
func (rc RequestContext) HasAuthority(authority string) bool {
	return slices.Contains(rc.Authorities, authority)
}

// WithRequestContext returns a copy of ctx carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFromContext returns the RequestContext stored in ctx.
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(RequestContext)
	return rc, ok
}

// MustRequestContext is RequestContextFromContext for code paths that run
// behind [ContextMiddleware]. It panics when ctx carries none.
func MustRequestContext(ctx context.Context) RequestContext {
	rc, ok := RequestContextFromContext(ctx)
	if !ok {
		panic("auth: no request context; ensure ContextMiddleware is configured")
	}
	return rc
}

// TraceIDFromContext returns the OpenTelemetry trace ID of the active span
// as hex.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
