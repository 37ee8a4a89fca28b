package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

// RejectionBody is the fixed body of every 429 response.
const RejectionBody = "API rate limit exceeded"

// WriteRejection answers a rejected request with 429, a Retry-After header
// in whole seconds and RejectionBody.
func WriteRejection(w http.ResponseWriter, d Decision) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d)))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(RejectionBody))
}

// Err converts a rejection into LIMIT_001 for callers that must return an
// error, such as gRPC handlers. It returns nil for an admitted request.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return sserr.RateLimited(RejectionBody).WithDetail("retry_after_seconds", retryAfterSeconds(d))
}

func retryAfterSeconds(d Decision) int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
