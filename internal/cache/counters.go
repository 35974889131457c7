package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	impressionsKey = "sponsor:impressions"
	clicksKey      = "sponsor:clicks"
)

// drainScript reads both counter hashes and deletes them in one step so
// increments landing during a flush are never lost.
const drainScript = `
local imp = redis.call("HGETALL", KEYS[1])
local clk = redis.call("HGETALL", KEYS[2])
redis.call("DEL", KEYS[1], KEYS[2])
return {imp, clk}
`

// SponsorCounts are pending impression and click increments
type SponsorCounts struct {
	Impressions int64
	Clicks      int64
}

// SponsorCounters buffers sponsor impressions and clicks in Redis hashes
type SponsorCounters struct {
	client *redis.Client
	drain  *redis.Script
}

// NewSponsorCounters creates the counter buffer
func NewSponsorCounters(client *redis.Client) *SponsorCounters {
	return &SponsorCounters{client: client, drain: redis.NewScript(drainScript)}
}

// RecordImpression adds one impression for sponsorID
func (c *SponsorCounters) RecordImpression(ctx context.Context, sponsorID string) error {
	return c.client.HIncrBy(ctx, impressionsKey, sponsorID, 1).Err()
}

// RecordClick adds one click for sponsorID
func (c *SponsorCounters) RecordClick(ctx context.Context, sponsorID string) error {
	return c.client.HIncrBy(ctx, clicksKey, sponsorID, 1).Err()
}

// Drain returns and clears all pending counts
func (c *SponsorCounters) Drain(ctx context.Context) (map[string]SponsorCounts, error) {
	raw, err := c.drain.Run(ctx, c.client, []string{impressionsKey, clicksKey}).Slice()
	if err != nil {
		return nil, fmt.Errorf("drain counters: %w", err)
	}

	out := make(map[string]SponsorCounts)
	if len(raw) != 2 {
		return out, nil
	}
	apply := func(pairs interface{}, set func(*SponsorCounts, int64)) {
		list, _ := pairs.([]interface{})
		for i := 0; i+1 < len(list); i += 2 {
			id, _ := list[i].(string)
			val, _ := list[i+1].(string)
			n, err := strconv.ParseInt(val, 10, 64)
			if id == "" || err != nil {
				continue
			}
			sc := out[id]
			set(&sc, n)
			out[id] = sc
		}
	}
	apply(raw[0], func(sc *SponsorCounts, n int64) { sc.Impressions = n })
	apply(raw[1], func(sc *SponsorCounts, n int64) { sc.Clicks = n })

	return out, nil
}

// Restore puts counts back after a failed flush
func (c *SponsorCounters) Restore(ctx context.Context, counts map[string]SponsorCounts) error {
	pipe := c.client.Pipeline()
	for id, sc := range counts {
		if sc.Impressions > 0 {
			pipe.HIncrBy(ctx, impressionsKey, id, sc.Impressions)
		}
		if sc.Clicks > 0 {
			pipe.HIncrBy(ctx, clicksKey, id, sc.Clicks)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
