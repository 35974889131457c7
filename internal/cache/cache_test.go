package cache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ============================================================================
// Connect
// ============================================================================

func TestConnect(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()
	_, err := Connect(context.Background(), "not a url")
	assert.Error(t, err)
}

// ============================================================================
// RateLimiter
// ============================================================================

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	t.Parallel()
	_, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	_, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute)
	ctx := context.Background()

	d, _ := limiter.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "b")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "a")
	assert.False(t, d.Allowed)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	t.Parallel()
	mr, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute)
	ctx := context.Background()

	d, _ := limiter.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "k")
	assert.False(t, d.Allowed)

	mr.FastForward(61 * time.Second)

	d, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiter_RedisDownFailsOpen(t *testing.T) {
	t.Parallel()
	mr, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute)
	mr.Close()

	d, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

// ============================================================================
// IdempotencyStore
// ============================================================================

func TestIdempotencyStore_AcquireSaveGet(t *testing.T) {
	t.Parallel()
	_, client := setupTestRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	resp, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Nil(t, resp)

	ok, err := store.Acquire(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire should see the in-flight marker")

	saved := &StoredResponse{
		Status:  http.StatusCreated,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    []byte(`{"id":"x"}`),
	}
	require.NoError(t, store.Save(ctx, "key", saved))

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.Status, got.Status)
	assert.Equal(t, saved.Body, got.Body)
	assert.Equal(t, "application/json", got.Headers.Get("Content-Type"))

	ok, err = store.Acquire(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok, "save releases the lock")
}

func TestIdempotencyStore_Expires(t *testing.T) {
	t.Parallel()
	mr, client := setupTestRedis(t)
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", &StoredResponse{Status: 200}))
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyStore_Release(t *testing.T) {
	t.Parallel()
	_, client := setupTestRedis(t)
	store := NewIdempotencyStore(client, 0)
	ctx := context.Background()

	ok, _ := store.Acquire(ctx, "k")
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "k"))

	ok, _ = store.Acquire(ctx, "k")
	assert.True(t, ok)
}

// ============================================================================
// SponsorCounters
// ============================================================================

func TestSponsorCounters_Drain(t *testing.T) {
	t.Parallel()
	_, client := setupTestRedis(t)
	counters := NewSponsorCounters(client)
	ctx := context.Background()

	require.NoError(t, counters.RecordImpression(ctx, "sponsors:a"))
	require.NoError(t, counters.RecordImpression(ctx, "sponsors:a"))
	require.NoError(t, counters.RecordImpression(ctx, "sponsors:b"))
	require.NoError(t, counters.RecordClick(ctx, "sponsors:a"))

	counts, err := counters.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, SponsorCounts{Impressions: 2, Clicks: 1}, counts["sponsors:a"])
	assert.Equal(t, SponsorCounts{Impressions: 1}, counts["sponsors:b"])

	counts, err = counters.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestSponsorCounters_Restore(t *testing.T) {
	t.Parallel()
	_, client := setupTestRedis(t)
	counters := NewSponsorCounters(client)
	ctx := context.Background()

	require.NoError(t, counters.RecordClick(ctx, "s1"))
	require.NoError(t, counters.Restore(ctx, map[string]SponsorCounts{"s1": {Impressions: 4, Clicks: 2}}))

	counts, err := counters.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, SponsorCounts{Impressions: 4, Clicks: 3}, counts["s1"])
}

// ============================================================================
// JSONCache
// ============================================================================

func TestJSONCache(t *testing.T) {
	t.Parallel()
	mr, client := setupTestRedis(t)
	c := NewJSONCache(client, "search:")
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var out payload
	hit, err := c.Get(ctx, "q", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "q", payload{Name: "grief", Count: 3}, time.Minute))
	assert.True(t, mr.Exists("search:q"))

	hit, err = c.Get(ctx, "q", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Name: "grief", Count: 3}, out)

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, "q", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}
