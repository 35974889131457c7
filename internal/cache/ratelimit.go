package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and sets its expiry on
// first use. Returns {count, ttl_ms}.
const fixedWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a fixed-window limiter shared by all API instances
type RateLimiter struct {
	client *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
	prefix string
}

// NewRateLimiter allows limit requests per window for each key
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		script: redis.NewScript(fixedWindowScript),
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow counts one request against key
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := l.script.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("rate limit script: %w", err)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}

	d := Decision{Limit: l.limit, Remaining: l.limit - count}
	if count <= l.limit {
		d.Allowed = true
		return d, nil
	}
	d.Remaining = 0
	d.RetryAfter = ttl
	return d, nil
}
