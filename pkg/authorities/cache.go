package authorities

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/StricklySoft/stricklysoft-gateway/pkg/metrics"
)

type entry struct {
	value      UserAuthInfo
	writtenAt  time.Time
	accessedAt atomic.Int64
	refreshing atomic.Bool
}

func newEntry(v UserAuthInfo, now time.Time) *entry {
	e := &entry{value: v, writtenAt: now}
	e.accessedAt.Store(now.UnixNano())
	return e
}

// Cache holds resolved users keyed by username.
//
// An entry is served until it has been idle for ExpireAfterAccess or is
// older than ExpireAfterWrite. Once older than RefreshAfterWrite it is
// still served while one background resolution replaces it in place.
// Only the first population of a key makes callers wait. Failed
// resolutions are never stored.
type Cache struct {
	loader  Loader
	cfg     Config
	entries *lru.Cache[string, *entry]
	group   singleflight.Group
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	// mu orders Invalidate against stores of in-flight resolutions. A
	// resolution that started before the key's last invalidation is
	// dropped instead of stored. gens is bounded; floor is the highest
	// generation it has evicted and stands in for any key it no longer
	// holds.
	mu    sync.Mutex
	seq   uint64
	floor uint64
	gens  *lru.Cache[string, uint64]
}

// NewCache returns an empty Cache in front of loader. Zero fields of cfg
// take their defaults.
func NewCache(loader Loader, cfg Config) *Cache {
	cfg.applyDefaults()
	entries, _ := lru.New[string, *entry](cfg.MaxEntries)
	c := &Cache{
		loader:  loader,
		cfg:     cfg,
		entries: entries,
		now:     time.Now,
		logger:  slog.Default(),
	}
	// Evictions happen inside Invalidate, under mu.
	c.gens, _ = lru.NewWithEvict(cfg.MaxEntries, func(_ string, gen uint64) {
		c.floor = max(c.floor, gen)
	})
	return c
}

// WithClock replaces time.Now. Tests drive expiry with it.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// WithLogger sets the logger for failed background refreshes.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	c.logger = logger
	return c
}

// WithMetrics sets the lookup and refresh counters. A nil m disables them.
func (c *Cache) WithMetrics(m *metrics.Metrics) *Cache {
	c.metrics = m
	return c
}

// Get returns the cached value for username, resolving it on a miss.
//
// Concurrent misses of one key share a single resolution and all observe
// its value or error. The resolution outlives the caller: if ctx is done
// first Get returns ctx.Err() and the result is still stored for others.
func (c *Cache) Get(ctx context.Context, username string) (UserAuthInfo, error) {
	now := c.now()
	if e, ok := c.entries.Get(username); ok && c.servable(e, now) {
		e.accessedAt.Store(now.UnixNano())
		if now.Sub(e.writtenAt) > c.cfg.RefreshAfterWrite {
			c.metrics.CacheLookup(metrics.LookupRefresh)
			c.refresh(ctx, username, e)
		} else {
			c.metrics.CacheLookup(metrics.LookupHit)
		}
		return e.value, nil
	}

	c.metrics.CacheLookup(metrics.LookupMiss)
	ch := c.load(ctx, username)
	select {
	case res := <-ch:
		if res.Err != nil {
			return UserAuthInfo{}, res.Err
		}
		return res.Val.(UserAuthInfo), nil
	case <-ctx.Done():
		return UserAuthInfo{}, ctx.Err()
	}
}

// Invalidate drops username. A resolution already in flight for it will
// not be stored, and the next Get starts a new one.
func (c *Cache) Invalidate(username string) {
	c.mu.Lock()
	c.seq++
	c.gens.Add(username, c.seq)
	c.entries.Remove(username)
	c.mu.Unlock()
}

// Len reports the number of cached users, expired ones included until
// they are evicted or replaced.
func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) servable(e *entry, now time.Time) bool {
	idle := now.Sub(time.Unix(0, e.accessedAt.Load()))
	return idle <= c.cfg.ExpireAfterAccess && now.Sub(e.writtenAt) <= c.cfg.ExpireAfterWrite
}

// load joins or starts the resolution of username for its current
// generation.
func (c *Cache) load(ctx context.Context, username string) <-chan singleflight.Result {
	c.mu.Lock()
	start := c.seq
	gen := c.generation(username)
	c.mu.Unlock()

	key := username + "\x00" + strconv.FormatUint(gen, 10)
	detached := context.WithoutCancel(ctx)
	return c.group.DoChan(key, func() (any, error) {
		v, err := c.loader.Resolve(detached, username)
		if err != nil {
			return nil, err
		}
		c.store(username, v, start)
		return v, nil
	})
}

func (c *Cache) store(username string, v UserAuthInfo, start uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation(username) > start {
		return
	}
	c.entries.Add(username, newEntry(v, c.now()))
}

// generation returns the sequence number of username's last invalidation.
// Keys evicted from gens report floor, which may drop a result that was
// still valid; the next Get resolves it again. The caller holds mu.
func (c *Cache) generation(username string) uint64 {
	if gen, ok := c.gens.Peek(username); ok {
		return gen
	}
	return c.floor
}

// refresh starts one background resolution for e unless one is running.
// On failure e keeps being served until it expires.
func (c *Cache) refresh(ctx context.Context, username string, e *entry) {
	if !e.refreshing.CompareAndSwap(false, true) {
		return
	}
	ch := c.load(ctx, username)
	go func() {
		res := <-ch
		if res.Err == nil {
			return
		}
		e.refreshing.Store(false)
		c.metrics.RefreshFailed()
		c.logger.WarnContext(ctx, "authorities refresh failed, keeping previous value",
			"username", username,
			"error", res.Err,
		)
	}()
}
