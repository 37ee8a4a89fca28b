package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// RouterOptions wires the gateway's own endpoints next to the proxied
// traffic. Nil Health or Metrics leaves that route to the proxy.
type RouterOptions struct {
	ServiceName string
	// Pipeline is the admission middleware wrapped around the proxy.
	Pipeline http.Handler
	Health   http.Handler
	Metrics  http.Handler
}

// NewRouter mounts the operational endpoints and sends every other path
// through the traced pipeline.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if opts.Health != nil {
		r.Method(http.MethodGet, HealthPath, opts.Health)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, MetricsPath, opts.Metrics)
	}

	name := opts.ServiceName
	if name == "" {
		name = "gateway"
	}
	r.Handle("/*", otelhttp.NewHandler(opts.Pipeline, name))
	return r
}
