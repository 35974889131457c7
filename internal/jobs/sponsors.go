package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/haven/api/internal/cache"
)

// CounterBuffer holds impression and click counts between flushes
type CounterBuffer interface {
	Drain(ctx context.Context) (map[string]cache.SponsorCounts, error)
	Restore(ctx context.Context, counts map[string]cache.SponsorCounts) error
}

// SponsorStore persists sponsor counters and lifecycle changes
type SponsorStore interface {
	ApplyCounts(ctx context.Context, sponsorID string, counts cache.SponsorCounts) error
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

// FlushSponsorCounters moves buffered counts into the sponsor records one
// sponsor at a time. Counts whose write failed are put back for the next
// run. Keys that are not sponsor record ids are dropped.
func FlushSponsorCounters(buf CounterBuffer, store SponsorStore) Task {
	return func(ctx context.Context) error {
		counts, err := buf.Drain(ctx)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			return nil
		}

		failed := make(map[string]cache.SponsorCounts)
		var firstErr error
		for id, c := range counts {
			if !isSponsorID(id) {
				slog.Warn("dropping counts for malformed sponsor id", slog.String("sponsor_id", id))
				continue
			}
			if err := store.ApplyCounts(ctx, id, c); err != nil {
				failed[id] = c
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		if len(failed) > 0 {
			// a fresh context so the counts survive a timed-out run
			restoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if rerr := buf.Restore(restoreCtx, failed); rerr != nil {
				return fmt.Errorf("apply counts: %w (restore failed: %v)", firstErr, rerr)
			}
			return fmt.Errorf("apply counts for %d sponsors: %w", len(failed), firstErr)
		}

		slog.Info("sponsor counters flushed", slog.Int("sponsors", len(counts)))
		return nil
	}
}

// ExpireSponsors marks sponsors whose run window has ended as expired
func ExpireSponsors(store SponsorStore, now func() time.Time) Task {
	return func(ctx context.Context) error {
		n, err := store.ExpireEnded(ctx, now())
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("sponsors expired", slog.Int("count", n))
		}
		return nil
	}
}

func isSponsorID(id string) bool {
	key, ok := strings.CutPrefix(id, "sponsors:")
	return ok && key != "" && !strings.ContainsAny(key, " \t\r\n:")
}
