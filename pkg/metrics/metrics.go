// Package metrics holds the gateway's Prometheus collectors.
//
// Every method is safe on a nil *Metrics, so components take an optional
// *Metrics and never check it.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gateway"

// Cache lookup results.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupRefresh = "refresh"
)

// Admission decisions.
const (
	DecisionAllow     = "allow"
	DecisionReject    = "reject"
	DecisionFailOpen  = "fail_open"
	DecisionUnlimited = "unlimited"
)

// Metrics groups the collectors. Build one per registry with New.
type Metrics struct {
	cacheLookups      *prometheus.CounterVec
	refreshFailures   prometheus.Counter
	resolutions       *prometheus.CounterVec
	resolverRetries   prometheus.Counter
	provisions        prometheus.Counter
	admissions        *prometheus.CounterVec
	storeErrors       prometheus.Counter
	tokensMinted      prometheus.Counter
	tokensRegenerated prometheus.Counter
	requests          *prometheus.CounterVec
	requestDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// It panics if any of them is already registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorities_cache_lookups_total",
			Help:      "Authorities cache lookups by result.",
		}, []string{"result"}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorities_refresh_failures_total",
			Help:      "Background refreshes that failed and kept the previous value.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorities_resolutions_total",
			Help:      "Directory resolutions by outcome.",
		}, []string{"outcome"}),
		resolverRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorities_resolver_retries_total",
			Help:      "Retries caused by an unavailable directory.",
		}),
		provisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorities_users_provisioned_total",
			Help:      "Users created in the directory by auto-provisioning.",
		}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Admission decisions by outcome.",
		}, []string{"decision"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_store_errors_total",
			Help:      "Bucket store failures. Requests are admitted when they occur.",
		}),
		tokensMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_minted_total",
			Help:      "Bearer tokens signed.",
		}),
		tokensRegenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_regenerated_total",
			Help:      "Cached tokens that failed validation and were minted again.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the pipeline by status code.",
		}, []string{"code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent in the pipeline before forwarding or rejecting.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.cacheLookups,
		m.refreshFailures,
		m.resolutions,
		m.resolverRetries,
		m.provisions,
		m.admissions,
		m.storeErrors,
		m.tokensMinted,
		m.tokensRegenerated,
		m.requests,
		m.requestDuration,
	)
	return m
}

// CacheLookup counts one lookup with one of the Lookup* results.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RefreshFailed counts a background refresh that kept the old value.
func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.refreshFailures.Inc()
}

// Resolution counts a finished resolution; outcome is "ok" or an error
// code.
func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// ResolverRetry counts one retry of an unavailable directory.
func (m *Metrics) ResolverRetry() {
	if m == nil {
		return
	}
	m.resolverRetries.Inc()
}

// UserProvisioned counts a user created on first sight.
func (m *Metrics) UserProvisioned() {
	if m == nil {
		return
	}
	m.provisions.Inc()
}

// Admission counts one decision with one of the Decision* values.
func (m *Metrics) Admission(decision string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(decision).Inc()
}

// StoreError counts a bucket store failure that admitted a request.
func (m *Metrics) StoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

// TokenMinted counts a newly signed credential.
func (m *Metrics) TokenMinted() {
	if m == nil {
		return
	}
	m.tokensMinted.Inc()
}

// TokenRegenerated counts a cached credential replaced after failing
// validation.
func (m *Metrics) TokenRegenerated() {
	if m == nil {
		return
	}
	m.tokensRegenerated.Inc()
}

// Request records a finished pipeline pass.
func (m *Metrics) Request(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(elapsed.Seconds())
}
