package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

// consumeScript refills and charges one bucket hash atomically.
//
//	KEYS[1]  bucket key
//	ARGV     capacity, rate (tokens/ms), now (ms), cost, ttl (ms)
//	returns  {allowed 0|1, tokens as string, retry-after ms (-1: never)}
//
// Capacity and rate are written when the hash is created and read back
// afterwards, so a bucket keeps its shape until it expires.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'capacity', 'rate', 'tokens', 'ts')
local tokens, ts
if state[1] then
  capacity = tonumber(state[1])
  rate = tonumber(state[2])
  tokens = tonumber(state[3])
  ts = tonumber(state[4])
else
  tokens = capacity
  ts = now
end

if now > ts then
  tokens = math.min(capacity, tokens + (now - ts) * rate)
  ts = now
end

local allowed = 0
local retry = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif cost > capacity then
  retry = -1
else
  retry = math.ceil((cost - tokens) / rate)
end

redis.call('HSET', key, 'capacity', capacity, 'rate', tostring(rate), 'tokens', tostring(tokens), 'ts', ts)
redis.call('PEXPIRE', key, ttl)
return {allowed, tostring(tokens), retry}
`)

// ScriptRunner runs a Lua script atomically. The gateway's redis client
// implements it.
type ScriptRunner interface {
	RunScript(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error)
}

// RedisStore keeps buckets as Redis hashes so every gateway instance
// charges the same budget. Each hash expires after twice its Duration of
// inactivity.
type RedisStore struct {
	runner ScriptRunner
	prefix string
}

var _ BucketStore = (*RedisStore)(nil)

// NewRedisStore returns a store that namespaces keys with prefix.
func NewRedisStore(runner ScriptRunner, prefix string) *RedisStore {
	return &RedisStore{runner: runner, prefix: prefix}
}

// TryConsume implements BucketStore. now is the caller's clock; instances
// sharing a store should keep their clocks in sync.
func (s *RedisStore) TryConsume(ctx context.Context, key string, cfg BucketConfig, cost int64, now time.Time) (Decision, error) {
	ratePerMs := float64(cfg.Capacity) / float64(cfg.Duration.Milliseconds())
	ttl := 2 * cfg.Duration.Milliseconds()

	raw, err := s.runner.RunScript(ctx, consumeScript, []string{s.prefix + key},
		cfg.Capacity, ratePerMs, now.UnixMilli(), cost, ttl)
	if err != nil {
		return Decision{}, err
	}
	return parseReply(raw, cfg)
}

func parseReply(raw any, cfg BucketConfig) (Decision, error) {
	reply, ok := raw.([]any)
	if !ok || len(reply) != 3 {
		return Decision{}, sserr.Internalf("ratelimit: unexpected script reply %v", raw)
	}
	allowed, ok1 := reply[0].(int64)
	tokensStr, ok2 := reply[1].(string)
	retryMs, ok3 := reply[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Decision{}, sserr.Internalf("ratelimit: unexpected script reply types %T %T %T",
			reply[0], reply[1], reply[2])
	}
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return Decision{}, sserr.Wrap(err, sserr.CodeInternal, fmt.Sprintf("ratelimit: bad token count %q", tokensStr))
	}

	d := Decision{Allowed: allowed == 1, Remaining: tokens}
	switch {
	case d.Allowed:
	case retryMs < 0:
		d.RetryAfter = cfg.Duration
	default:
		d.RetryAfter = time.Duration(retryMs) * time.Millisecond
	}
	return d, nil
}
