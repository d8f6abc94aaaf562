package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript applies fixed-window accounting for one key atomically, so
// concurrent requests across gateway instances cannot both slip under the
// cap. A full window is left untouched: a denied request does not consume
// quota. Returns {allowed, count, pttl_ms}.
var consumeScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= max then
  return {0, count, redis.call('PTTL', KEYS[1])}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], window)
end
return {1, count, redis.call('PTTL', KEYS[1])}
`)

// RedisConsumer is a Consumer backed by Redis, for deployments where several
// gateway instances must share one quota. Keys expire with their window via
// PEXPIRE, so no explicit eviction pass is needed.
type RedisConsumer struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisConsumer creates a consumer against the given Redis instance.
func NewRedisConsumer(addr, password string, db int) *RedisConsumer {
	return &RedisConsumer{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		now: time.Now,
	}
}

// Consume runs the atomic check-and-increment script for key.
func (c *RedisConsumer) Consume(ctx context.Context, key string, max int, window time.Duration) (Result, error) {
	res, err := consumeScript.Run(ctx, c.client, []string{key}, max, window.Milliseconds()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("consume %s: %w", key, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return Result{}, fmt.Errorf("consume %s: unexpected script result %v", key, res)
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)
	pttl, _ := vals[2].(int64)

	now := c.now()
	resetAt := now.Add(window)
	if pttl > 0 {
		resetAt = now.Add(time.Duration(pttl) * time.Millisecond)
	}
	remaining := max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: allowed == 1, Remaining: remaining, ResetAt: resetAt}, nil
}

// Close releases the Redis client.
func (c *RedisConsumer) Close() error {
	return c.client.Close()
}
