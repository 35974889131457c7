package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// profileStore adds username lookups and updates to the shared profile mock
type profileStore struct {
	*mockProfileRepo
	updateErr error
}

func (p *profileStore) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prof := range p.profiles {
		if prof.Username == username {
			cp := *prof
			return &cp, nil
		}
	}
	return nil, nil
}

func (p *profileStore) Update(ctx context.Context, prof *model.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updateErr != nil {
		return p.updateErr
	}
	for uid, other := range p.profiles {
		if uid != prof.UserID && other.Username == prof.Username {
			return database.ErrDuplicate
		}
	}
	cp := *prof
	p.profiles[prof.UserID] = &cp
	return nil
}

func newProfileFixture() (*ProfileService, *profileStore) {
	hidden := profileAt("user:hidden", model.VerificationEmailVerified)
	hidden.Username = "hidden"
	hidden.IsPublic = false
	open := profileAt("user:open", model.VerificationEmailVerified)
	open.Username = "open"

	store := &profileStore{mockProfileRepo: newMockProfileRepo(hidden, open)}
	svc := NewProfileService(ProfileServiceConfig{ProfileRepo: store, Files: &mockFileStore{}})
	return svc, store
}

// ============================================================================
// Visibility Tests
// ============================================================================

func TestProfileGetByUsername_Visibility(t *testing.T) {
	t.Parallel()

	svc, _ := newProfileFixture()
	owner := userActor("user:hidden")
	admin := adminActor("user:admin")
	stranger := userActor("user:open")

	tests := []struct {
		name     string
		viewer   *Actor
		username string
		wantErr  error
	}{
		{"public to anonymous", nil, "open", nil},
		{"private to anonymous", nil, "hidden", ErrProfileNotFound},
		{"private to another user", &stranger, "hidden", ErrProfileNotFound},
		{"private to owner", &owner, "hidden", nil},
		{"private to admin", &admin, "hidden", nil},
		{"unknown username", &admin, "nobody", ErrProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.GetByUsername(context.Background(), tt.viewer, tt.username)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Username != tt.username {
				t.Errorf("expected %s, got %s", tt.username, p.Username)
			}
		})
	}
}

// ============================================================================
// Update Tests
// ============================================================================

func TestProfileUpdate(t *testing.T) {
	t.Parallel()

	svc, store := newProfileFixture()
	ctx := context.Background()

	p, err := svc.Update(ctx, "user:open", model.UpdateProfileRequest{
		DisplayName:  strPtr("Sam"),
		Bio:          strPtr(""),
		LovedOneName: strPtr("Grandma Rose"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DisplayName != "Sam" || p.Bio != nil || p.LovedOneName == nil || *p.LovedOneName != "Grandma Rose" {
		t.Errorf("unexpected profile %+v", p)
	}
	if stored, _ := store.GetByUserID(ctx, "user:open"); stored.DisplayName != "Sam" {
		t.Errorf("expected the update to be stored, got %q", stored.DisplayName)
	}
}

func TestProfileUpdate_UsernameTaken(t *testing.T) {
	t.Parallel()

	svc, _ := newProfileFixture()

	_, err := svc.Update(context.Background(), "user:open", model.UpdateProfileRequest{Username: strPtr("hidden")})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestProfileUpdate_Errors(t *testing.T) {
	t.Parallel()

	svc, store := newProfileFixture()
	ctx := context.Background()

	var verr *ValidationError
	if _, err := svc.Update(ctx, "user:open", model.UpdateProfileRequest{Username: strPtr("No Spaces")}); !errors.As(err, &verr) {
		t.Errorf("expected a ValidationError, got %v", err)
	}
	if _, err := svc.Update(ctx, "user:ghost", model.UpdateProfileRequest{DisplayName: strPtr("Ghost")}); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}

	store.updateErr = database.ErrConnection
	if _, err := svc.Update(ctx, "user:open", model.UpdateProfileRequest{DisplayName: strPtr("Sam")}); !errors.Is(err, database.ErrConnection) {
		t.Errorf("expected the store error, got %v", err)
	}
}

func TestProfileAvatarUpload(t *testing.T) {
	t.Parallel()

	svc, _ := newProfileFixture()
	ctx := context.Background()

	target, err := svc.AvatarUpload(ctx, "user:open", "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(target.Key, "avatars/open/") || !strings.HasSuffix(target.Key, ".png") {
		t.Errorf("unexpected key %q", target.Key)
	}

	if _, err := svc.AvatarUpload(ctx, "user:open", "application/x-msdownload"); !errors.Is(err, ErrUnsupportedUpload) {
		t.Errorf("expected ErrUnsupportedUpload, got %v", err)
	}
}
