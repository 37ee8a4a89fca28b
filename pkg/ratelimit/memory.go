package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryBucket struct {
	cfg     BucketConfig
	limiter *rate.Limiter
	// last is the latest time the bucket observed. Earlier times are
	// clamped to it so a clock step backwards never refills.
	last time.Time
}

// MemoryStore keeps buckets in process memory. It is exact for a single
// gateway instance and does not share state between instances.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
}

var _ BucketStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. Start [MemoryStore.Run] to evict
// idle buckets.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*memoryBucket)}
}

// TryConsume implements BucketStore.
func (s *MemoryStore) TryConsume(_ context.Context, key string, cfg BucketConfig, cost int64, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &memoryBucket{
			cfg:     cfg,
			limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond()), int(cfg.Capacity)),
			last:    now,
		}
		s.buckets[key] = b
	}
	if now.Before(b.last) {
		now = b.last
	}
	b.last = now

	if b.limiter.AllowN(now, int(cost)) {
		return Decision{Allowed: true, Remaining: b.limiter.TokensAt(now)}, nil
	}
	tokens := b.limiter.TokensAt(now)
	return Decision{Remaining: tokens, RetryAfter: b.cfg.retryAfter(tokens, cost)}, nil
}

// Sweep drops buckets idle for at least their Duration. Such a bucket is
// full again, so dropping it loses nothing.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		if now.Sub(b.last) >= b.cfg.Duration {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Len reports the number of live buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
