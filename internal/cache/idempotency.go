package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoredResponse is a replayable HTTP response
type StoredResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

// IdempotencyStore keeps responses for Idempotency-Key replays
type IdempotencyStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewIdempotencyStore keeps responses for ttl
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl, lockTTL: time.Minute}
}

func responseKey(key string) string { return "idem:" + key }
func lockKey(key string) string     { return "idem:" + key + ":lock" }

// Get returns the stored response for key, if any
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	data, err := s.client.Get(ctx, responseKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency get: %w", err)
	}

	var resp StoredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return &resp, nil
}

// Acquire marks key as in flight. It returns false if another request holds it.
func (s *IdempotencyStore) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(key), "1", s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lock: %w", err)
	}
	return ok, nil
}

// Save stores the response and releases the in-flight marker
func (s *IdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, responseKey(key), data, s.ttl)
	pipe.Del(ctx, lockKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}

// Release drops the in-flight marker without storing a response
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockKey(key)).Err()
}
