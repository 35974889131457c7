package service

import (
	"context"
	"log/slog"

	"github.com/forgo/haven/api/internal/model"
)

// StatsRepository counts platform totals for the dashboard
type StatsRepository interface {
	Counts(ctx context.Context) (*model.AdminStats, error)
}

// AdminUserRepository defines the user operations needed by AdminService
type AdminUserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]*model.AdminUser, error)
	SetRole(ctx context.Context, userID string, role model.UserRole) error
}

// AdminProfileRepository defines the profile operations needed by AdminService
type AdminProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	SetVerificationStatus(ctx context.Context, userID string, status model.VerificationStatus) error
}

// AdminService handles the admin dashboard and user management
type AdminService struct {
	stats    StatsRepository
	users    AdminUserRepository
	profiles AdminProfileRepository
}

// NewAdminService creates a new admin service
func NewAdminService(stats StatsRepository, users AdminUserRepository, profiles AdminProfileRepository) *AdminService {
	return &AdminService{
		stats:    stats,
		users:    users,
		profiles: profiles,
	}
}

// Stats returns platform counts
func (s *AdminService) Stats(ctx context.Context, actor Actor) (*model.AdminStats, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return s.stats.Counts(ctx)
}

// ListUsers returns users with their profiles, newest first
func (s *AdminService) ListUsers(ctx context.Context, actor Actor, limit, offset int) ([]*model.AdminUser, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return s.users.List(ctx, limit, offset)
}

// SetVerification sets a user's verification status to any level,
// including lowering it
func (s *AdminService) SetVerification(ctx context.Context, actor Actor, userID string, req model.SetVerificationRequest) (*model.Profile, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	status := model.VerificationStatus(req.Status)
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	rid, ok := recordID("user", userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	profile, err := s.profiles.GetByUserID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	if err := s.profiles.SetVerificationStatus(ctx, rid, status); err != nil {
		return nil, err
	}

	slog.Info("verification set by admin",
		slog.String("user_id", rid),
		slog.String("from", string(profile.VerificationStatus)),
		slog.String("to", string(status)),
		slog.String("admin_id", actor.UserID))

	profile.VerificationStatus = status
	return profile, nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *AdminService) SetRole(ctx context.Context, actor Actor, userID string, req model.SetRoleRequest) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	role := model.UserRole(req.Role)
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	rid, ok := recordID("user", userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	if rid == actor.UserID && role != model.UserRoleAdmin {
		return nil, ErrSelfDemotion
	}

	user, err := s.users.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.users.SetRole(ctx, rid, role); err != nil {
		return nil, err
	}

	slog.Info("role set by admin",
		slog.String("user_id", rid),
		slog.String("role", string(role)),
		slog.String("admin_id", actor.UserID))

	user.Role = role
	return user, nil
}
