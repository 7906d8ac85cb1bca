package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// The key holds a marker for the whole window. A reply of 0 means the caller
// took the slot; anything else is the remaining cooldown in milliseconds.
var cooldownScript = redis.NewScript(`
if redis.call("SET", KEYS[1], "1", "NX", "PX", ARGV[1]) then
  return 0
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  return tonumber(ARGV[1])
end
return ttl
`)

// RedisCooldownLimiter is a distributed cooldown limiter shared by every
// instance pointed at the same Redis.
type RedisCooldownLimiter struct {
	client  *redis.Client
	prefix  string
	window  time.Duration
	timeout time.Duration
}

// NewRedisCooldownLimiter creates a limiter over an existing client.
func NewRedisCooldownLimiter(client *redis.Client, prefix string, window time.Duration) (*RedisCooldownLimiter, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("rate limiter redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCooldownLimiter{
		client:  client,
		prefix:  prefix,
		window:  window,
		timeout: 2 * time.Second,
	}, nil
}

// Acquire claims the key for one window. Redis failures are returned as
// errors; callers must treat them as a rejection.
func (l *RedisCooldownLimiter) Acquire(ctx context.Context, key string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	ms, err := cooldownScript.Run(ctx, l.client, []string{l.redisKey(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit acquire: %w", err)
	}
	if ms <= 0 {
		return Result{Allowed: true}, nil
	}
	return Result{RetryAfter: time.Duration(ms) * time.Millisecond}, nil
}

func (l *RedisCooldownLimiter) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.client.Del(ctx, l.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("rate limit release: %w", err)
	}
	return nil
}

func (l *RedisCooldownLimiter) redisKey(key string) string {
	return l.prefix + ":" + cleanPart(key)
}
