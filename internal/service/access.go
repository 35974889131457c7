package service

import (
	"context"
	"strings"

	"github.com/forgo/haven/api/internal/model"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   model.UserRole
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == model.UserRoleAdmin
}

// IsModerator reports whether the actor is a moderator or admin
func (a Actor) IsModerator() bool {
	return a.Role == model.UserRoleModerator || a.Role == model.UserRoleAdmin
}

// VerificationStore reads and advances a user's verification status
type VerificationStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	CompareAndSetVerification(ctx context.Context, userID string, expected, next model.VerificationStatus) (bool, error)
}

// requireVerification loads the user's profile and checks it has reached level
func requireVerification(ctx context.Context, store VerificationStore, userID string, level model.VerificationStatus) (*model.Profile, error) {
	profile, err := store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	if !profile.VerificationStatus.AtLeast(level) {
		return nil, &VerificationError{Required: level}
	}
	return profile, nil
}

// raiseVerification lifts the user's status to at least level and never
// lowers it. A concurrent change is retried against the fresh value.
func raiseVerification(ctx context.Context, store VerificationStore, userID string, level model.VerificationStatus) (model.VerificationStatus, error) {
	for attempt := 0; attempt < 3; attempt++ {
		profile, err := store.GetByUserID(ctx, userID)
		if err != nil {
			return "", err
		}
		if profile == nil {
			return "", ErrProfileNotFound
		}

		current := profile.VerificationStatus
		next := current.Raise(level)
		if next == current {
			return current, nil
		}
		ok, err := store.CompareAndSetVerification(ctx, userID, current, next)
		if err != nil {
			return "", err
		}
		if ok {
			return next, nil
		}
	}
	return "", ErrInvalidTransition
}

// recordID accepts either a bare key ("abc") or a full record id
// ("table:abc") and returns the full id. It reports false when the id
// names a different table.
func recordID(table, id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	if i := strings.Index(id, ":"); i >= 0 {
		if id[:i] != table || i == len(id)-1 {
			return "", false
		}
		return id, true
	}
	return table + ":" + id, true
}
