package service

import (
	"context"
	"errors"
	"testing"

	"github.com/forgo/haven/api/internal/model"
)

type adminUsers struct {
	*mockUserRepo
	roles map[string]model.UserRole
}

func (a *adminUsers) List(ctx context.Context, limit, offset int) ([]*model.AdminUser, error) {
	var out []*model.AdminUser
	for _, u := range a.users {
		out = append(out, &model.AdminUser{User: u})
	}
	return out, nil
}

func (a *adminUsers) SetRole(ctx context.Context, userID string, role model.UserRole) error {
	a.roles[userID] = role
	return nil
}

type stubStats struct{ stats model.AdminStats }

func (s stubStats) Counts(ctx context.Context) (*model.AdminStats, error) {
	st := s.stats
	return &st, nil
}

func newAdminFixture() (*AdminService, *adminUsers, *mockProfileRepo) {
	users := &adminUsers{
		mockUserRepo: newMockUserRepo(
			&model.User{ID: "user:admin", Email: "admin@haven.test", Role: model.UserRoleAdmin},
			&model.User{ID: "user:a", Email: "a@haven.test", Role: model.UserRoleUser},
		),
		roles: make(map[string]model.UserRole),
	}
	profiles := newMockProfileRepo(profileAt("user:a", model.VerificationMeetupOrganizer))
	return NewAdminService(stubStats{model.AdminStats{Users: 2, OpenReports: 1}}, users, profiles), users, profiles
}

func TestAdmin_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newAdminFixture()
	ctx := context.Background()
	mod := Actor{UserID: "user:mod", Role: model.UserRoleModerator}

	if _, err := svc.Stats(ctx, mod); !errors.Is(err, ErrAdminRequired) {
		t.Errorf("Stats: expected ErrAdminRequired, got %v", err)
	}
	if _, err := svc.ListUsers(ctx, mod, 20, 0); !errors.Is(err, ErrAdminRequired) {
		t.Errorf("ListUsers: expected ErrAdminRequired, got %v", err)
	}
	if _, err := svc.SetVerification(ctx, mod, "a", model.SetVerificationRequest{Status: "unverified"}); !errors.Is(err, ErrAdminRequired) {
		t.Errorf("SetVerification: expected ErrAdminRequired, got %v", err)
	}
	if _, err := svc.SetRole(ctx, mod, "a", model.SetRoleRequest{Role: "admin"}); !errors.Is(err, ErrAdminRequired) {
		t.Errorf("SetRole: expected ErrAdminRequired, got %v", err)
	}

	stats, err := svc.Stats(ctx, adminActor("user:admin"))
	if err != nil || stats.Users != 2 || stats.OpenReports != 1 {
		t.Errorf("unexpected stats %+v (%v)", stats, err)
	}
}

func TestAdmin_SetVerificationCanLower(t *testing.T) {
	t.Parallel()

	svc, _, profiles := newAdminFixture()
	ctx := context.Background()
	admin := adminActor("user:admin")

	p, err := svc.SetVerification(ctx, admin, "a", model.SetVerificationRequest{Status: "email_verified"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.VerificationStatus != model.VerificationEmailVerified || profiles.status("user:a") != model.VerificationEmailVerified {
		t.Errorf("expected email_verified, got %q", profiles.status("user:a"))
	}

	if _, err := svc.SetVerification(ctx, admin, "a", model.SetVerificationRequest{Status: "trusted"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.SetVerification(ctx, admin, "user:nobody", model.SetVerificationRequest{Status: "unverified"}); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := svc.SetVerification(ctx, admin, "meetups:1", model.SetVerificationRequest{Status: "unverified"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAdmin_SetRole(t *testing.T) {
	t.Parallel()

	svc, users, _ := newAdminFixture()
	ctx := context.Background()
	admin := adminActor("user:admin")

	u, err := svc.SetRole(ctx, admin, "a", model.SetRoleRequest{Role: "moderator"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != model.UserRoleModerator || users.roles["user:a"] != model.UserRoleModerator {
		t.Errorf("expected moderator, got %q", users.roles["user:a"])
	}

	tests := []struct {
		name   string
		userID string
		role   string
		want   error
	}{
		{"self demotion", "user:admin", "user", ErrSelfDemotion},
		{"unknown role", "a", "owner", ErrInvalidRole},
		{"unknown user", "ghost", "user", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetRole(ctx, admin, tt.userID, model.SetRoleRequest{Role: tt.role})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := svc.SetRole(ctx, admin, "user:admin", model.SetRoleRequest{Role: "admin"}); err != nil {
		t.Errorf("keeping own admin role should succeed, got %v", err)
	}
}
