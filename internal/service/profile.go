package service

import (
	"context"
	"errors"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// ProfileRepository defines the interface for profile storage
type ProfileRepository interface {
	VerificationStore
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
	Update(ctx context.Context, p *model.Profile) error
}

// ProfileService manages user profiles
type ProfileService struct {
	profileRepo ProfileRepository
	files       FileStore
}

// ProfileServiceConfig holds configuration for the profile service
type ProfileServiceConfig struct {
	ProfileRepo ProfileRepository
	Files       FileStore
}

// NewProfileService creates a new profile service
func NewProfileService(cfg ProfileServiceConfig) *ProfileService {
	return &ProfileService{
		profileRepo: cfg.ProfileRepo,
		files:       cfg.Files,
	}
}

// GetOwn returns the caller's profile
func (s *ProfileService) GetOwn(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// GetByUsername returns a profile. Private profiles are visible only to
// their owner and admins; everyone else gets not found.
func (s *ProfileService) GetByUsername(ctx context.Context, viewer *Actor, username string) (*model.Profile, error) {
	p, err := s.profileRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	if !p.IsPublic {
		if viewer == nil || (viewer.UserID != p.UserID && !viewer.IsAdmin()) {
			return nil, ErrProfileNotFound
		}
	}
	return p, nil
}

// Update applies a partial update to the caller's profile
func (s *ProfileService) Update(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.Profile, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	p, err := s.GetOwn(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		p.Username = *req.Username
	}
	if req.DisplayName != nil {
		p.DisplayName = *req.DisplayName
	}
	if req.Bio != nil {
		p.Bio = emptyToNil(*req.Bio)
	}
	if req.AvatarURL != nil {
		p.AvatarURL = emptyToNil(*req.AvatarURL)
	}
	if req.Location != nil {
		p.Location = emptyToNil(*req.Location)
	}
	if req.LossType != nil {
		p.LossType = emptyToNil(*req.LossType)
	}
	if req.LovedOneName != nil {
		p.LovedOneName = emptyToNil(*req.LovedOneName)
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}

	if err := s.profileRepo.Update(ctx, p); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return p, nil
}

// AvatarUpload returns a presigned URL for a new avatar image
func (s *ProfileService) AvatarUpload(ctx context.Context, userID, contentType string) (*model.UploadTarget, error) {
	return presignImage(ctx, s.files, "avatars/"+keyPart(userID), contentType)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
