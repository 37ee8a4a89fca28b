package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/auth"
)

// NewProxy returns a reverse proxy to upstream. Outgoing requests lose the
// asserted identity header and carry the minted bearer token and trace id
// through [auth.PropagatingRoundTripper]. A nil transport means
// http.DefaultTransport.
func NewProxy(upstream *url.URL, serviceName string, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			pr.Out.Header.Del(auth.HeaderUser)
			if rc, ok := auth.RequestContextFromContext(pr.In.Context()); ok && rc.Token != "" {
				// The client's own credential never reaches upstream.
				pr.Out.Header.Del(auth.HeaderAuthorization)
			}
		},
		Transport: otelhttp.NewTransport(auth.NewPropagatingRoundTripper(serviceName, transport)),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "gateway: upstream request failed",
				"upstream", upstream.Redacted(),
				"path", r.URL.Path,
				"error", err,
			)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
}
