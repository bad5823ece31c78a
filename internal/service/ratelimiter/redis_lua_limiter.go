// Package ratelimiter implements keyed token buckets stored in Redis.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// BucketConfig is a token bucket: Capacity tokens, refilled at RefillRate per second.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// NewBucketConfigFromPerMinute allows perMinute requests per minute with a
// burst of the same size. Non-positive input disables limiting.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// idleTTL is how long an untouched bucket lives: long enough to refill fully.
func (c BucketConfig) idleTTL() time.Duration {
	return time.Duration(float64(c.Capacity)/c.RefillRate*float64(time.Second)) + time.Minute
}

// RedisLuaLimiter applies one bucket config to every key. Refill and take
// happen atomically in a Lua script, so replicas share the quota.
type RedisLuaLimiter struct {
	redis  redis.Scripter
	bucket BucketConfig
	prefix string
	script *redis.Script
	now    func() time.Time
}

var _ domain.Limiter = (*RedisLuaLimiter)(nil)

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb redis.Scripter, bucket BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	return &RedisLuaLimiter{
		redis:  rdb,
		bucket: bucket,
		prefix: "rate:",
		script: redis.NewScript(luaTokenBucketScript),
		now:    time.Now,
	}
}

// The script returns integers only: Redis truncates Lua floats in replies, so
// tokens come back as a string and the wait in whole milliseconds.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_ms = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_ms = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("PEXPIRE", key, ttl_ms)

return { allowed, tostring(tokens), retry_ms }
`

// Allow takes cost tokens from key's bucket. On Redis failure it allows the
// request and returns the error so the caller can log it.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil || !l.bucket.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	nowSec := float64(l.now().UnixNano()) / 1e9

	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key},
		l.bucket.Capacity, l.bucket.RefillRate, nowSec, cost, l.bucket.idleTTL().Milliseconds()).Slice()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.allow: %w", err)
	}
	if len(res) < 3 {
		return true, 0, fmt.Errorf("op=ratelimiter.allow: unexpected script result %v", res)
	}

	allowed := toInt64(res[0]) == 1
	retryAfter := time.Duration(toInt64(res[2])) * time.Millisecond
	if !allowed {
		slog.Debug("rate limited", slog.String("key", key), slog.Duration("retry_after", retryAfter), slog.Any("tokens", res[1]))
	}
	return allowed, retryAfter, nil
}

// Ping reports whether Redis is reachable.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return fmt.Errorf("redis not configured")
	}
	return rdb.Ping(ctx).Err()
}

// NewClient builds a go-redis client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=ratelimiter.NewClient: %w", err)
	}
	return redis.NewClient(opts), nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
