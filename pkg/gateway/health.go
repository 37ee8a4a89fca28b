package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

// DefaultHealthTimeout bounds every health probe.
const DefaultHealthTimeout = 2 * time.Second

var errUnavailable = sserr.Unavailable("unavailable")

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler runs checks concurrently and answers 200 when all pass,
// 503 otherwise, with a JSON body naming each check's result.
func HealthHandler(timeout time.Duration, checks ...HealthCheck) http.Handler {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		report := healthReport{Status: "ok", Checks: make(map[string]string, len(checks))}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, hc := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := "ok"
				if err := hc.Check(ctx); err != nil {
					result = err.Error()
				}
				mu.Lock()
				defer mu.Unlock()
				report.Checks[hc.Name] = result
				if result != "ok" {
					report.Status = "unavailable"
				}
			}()
		}
		wg.Wait()

		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
}

// AvailabilityCheck adapts a probe reporting plain availability, such as a
// directory's Available method.
func AvailabilityCheck(name string, available func(ctx context.Context) bool) HealthCheck {
	return HealthCheck{
		Name: name,
		Check: func(ctx context.Context) error {
			if !available(ctx) {
				return errUnavailable
			}
			return nil
		},
	}
}
