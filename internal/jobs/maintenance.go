package jobs

import (
	"context"
	"log/slog"
	"time"
)

// OrderStore cancels abandoned checkouts
type OrderStore interface {
	CancelStaleOrders(ctx context.Context, cutoff time.Time) (int, error)
}

// MeetupStore closes out meetups that have ended
type MeetupStore interface {
	CompleteEnded(ctx context.Context, now time.Time) (int, error)
}

// TokenPurger removes expired refresh and verification tokens
type TokenPurger interface {
	PurgeExpired(ctx context.Context) error
}

// CancelStaleCheckouts cancels orders left in pending_payment for longer than maxAge
func CancelStaleCheckouts(store OrderStore, maxAge time.Duration, now func() time.Time) Task {
	return func(ctx context.Context) error {
		n, err := store.CancelStaleOrders(ctx, now().Add(-maxAge))
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("stale checkouts cancelled", slog.Int("count", n))
		}
		return nil
	}
}

// CompleteMeetups marks scheduled meetups past their end time completed
func CompleteMeetups(store MeetupStore, now func() time.Time) Task {
	return func(ctx context.Context) error {
		n, err := store.CompleteEnded(ctx, now())
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("meetups completed", slog.Int("count", n))
		}
		return nil
	}
}

// PurgeTokens deletes expired refresh tokens and email verifications
func PurgeTokens(p TokenPurger) Task {
	return p.PurgeExpired
}
