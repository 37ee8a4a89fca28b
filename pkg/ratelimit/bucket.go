// Package ratelimit admits or rejects requests with one token bucket per
// principal.
//
// Buckets hold up to Capacity tokens and refill continuously at
// Capacity/Duration tokens per second. A request of cost n is admitted
// when n tokens are available. Bucket state lives in a [BucketStore]:
// [MemoryStore] for a single instance, [RedisStore] when several gateway
// instances share one budget.
//
// A bucket keeps the shape it was created with. Changing the configured
// limit affects principals whose bucket does not exist yet.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Principal identifies who is charged. Username wins over Address.
type Principal struct {
	Username string
	Address  string
}

// Key returns the bucket key. An anonymous principal without an address
// gets the bucket "addr:" shared by every such caller.
func (p Principal) Key() string {
	if p.Username != "" {
		return "user:" + p.Username
	}
	return "addr:" + p.Address
}

// BucketConfig is the shape of one bucket.
type BucketConfig struct {
	Capacity int64
	Duration time.Duration
}

// RatePerSecond is the continuous refill rate.
func (b BucketConfig) RatePerSecond() float64 {
	return float64(b.Capacity) / b.Duration.Seconds()
}

// retryAfter is how long a bucket holding tokens needs until cost tokens
// are available. Costs above capacity never fit; a full Duration is
// reported for them.
func (b BucketConfig) retryAfter(tokens float64, cost int64) time.Duration {
	if cost > b.Capacity {
		return b.Duration
	}
	missing := float64(cost) - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing / b.RatePerSecond() * float64(time.Second)))
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Remaining is the token count after this request. It may be
	// fractional.
	Remaining float64
	// RetryAfter is set on rejection.
	RetryAfter time.Duration
	// FailedOpen marks a request admitted because the store failed.
	FailedOpen bool
}

// BucketStore holds bucket state. TryConsume must get-or-create the bucket
// for key with cfg, refill it up to now and take cost tokens if available,
// as one atomic step. A bucket that already exists keeps its own shape.
type BucketStore interface {
	TryConsume(ctx context.Context, key string, cfg BucketConfig, cost int64, now time.Time) (Decision, error)
}
