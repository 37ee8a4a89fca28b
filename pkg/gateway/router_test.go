package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/auth"
)

func TestRouter(t *testing.T) {
	t.Parallel()

	pipeline := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			panic("handler bug")
		}
		rc, _ := auth.RequestContextFromContext(r.Context())
		w.Header().Set("X-Path", r.URL.Path)
		w.Header().Set("X-Has-Context", boolString(rc.TraceID != ""))
		w.WriteHeader(http.StatusTeapot)
	})
	router := NewRouter(RouterOptions{
		Pipeline: auth.ContextMiddleware(pipeline),
		Health:   HealthHandler(0),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("gateway_requests_total 0\n"))
		}),
	})

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := do(http.MethodGet, HealthPath)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, MetricsPath)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_requests_total")

	for _, path := range []string{"/", "/api/-default-/public/records/42", "/healthz/extra"} {
		rec = do(http.MethodGet, path)
		assert.Equal(t, http.StatusTeapot, rec.Code, path)
		assert.Equal(t, path, rec.Header().Get("X-Path"))
		assert.Equal(t, "true", rec.Header().Get("X-Has-Context"))
	}

	rec = do(http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
