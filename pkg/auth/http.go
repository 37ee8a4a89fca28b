package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// ContextMiddleware builds a [RequestContext] from the inbound headers and
// stores it in the request context. The trace id is taken from the active
// OpenTelemetry span, or generated when there is none, and echoed in the
// X-ECOS-Trace-Id response header.
//
// Wrap the handler with otelhttp first so the span exists:
//
//	handler := otelhttp.NewHandler(auth.ContextMiddleware(next), "gateway")
func ContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := FromRequest(r)
		if id, ok := TraceIDFromContext(r.Context()); ok {
			rc.TraceID = id
		} else {
			rc.TraceID = uuid.NewString()
		}
		w.Header().Set(HeaderTraceID, rc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
	})
}

// PropagatingRoundTripper copies the bearer token and trace id of the
// request's [RequestContext] onto outgoing requests.
//
//	client := &http.Client{
//	    Transport: auth.NewPropagatingRoundTripper("gateway", http.DefaultTransport),
//	}
//	resp, err := client.Do(req.WithContext(ctx))
type PropagatingRoundTripper struct {
	serviceName string
	wrapped     http.RoundTripper
}

// NewPropagatingRoundTripper wraps transport, or http.DefaultTransport when
// transport is nil.
func NewPropagatingRoundTripper(serviceName string, transport http.RoundTripper) *PropagatingRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &PropagatingRoundTripper{
		serviceName: serviceName,
		wrapped:     transport,
	}
}

// RoundTrip implements [http.RoundTripper]. Requests without a
// RequestContext pass through unchanged; an Authorization header already
// set by the caller is kept.
func (t *PropagatingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	rc, ok := RequestContextFromContext(r.Context())
	if !ok {
		return t.wrapped.RoundTrip(r)
	}

	clone := r.Clone(r.Context())
	for k, v := range outgoingHeaders(rc, t.serviceName) {
		if k == HeaderAuthorization && clone.Header.Get(k) != "" {
			continue
		}
		clone.Header.Set(k, v)
	}
	clone.Header.Del(HeaderUser)

	slog.DebugContext(r.Context(), "auth: propagating request context",
		"service", t.serviceName,
		"username", rc.Username,
		"url", r.URL.Redacted(),
	)
	return t.wrapped.RoundTrip(clone)
}
