// Package cache holds the Redis-backed pieces shared across API instances:
// the fixed-window rate limiter, Idempotency-Key response storage, sponsor
// impression/click counters and a small JSON cache used by search.
package cache
