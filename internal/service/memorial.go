package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// MemorialRepository defines the interface for memorial storage
type MemorialRepository interface {
	Create(ctx context.Context, m *model.Memorial) error
	GetByID(ctx context.Context, id string) (*model.Memorial, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*model.Memorial, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Memorial, error)
	Update(ctx context.Context, m *model.Memorial) error
	Delete(ctx context.Context, id string) error
	ListGifts(ctx context.Context, memorialID string, limit, offset int) ([]*model.MemorialGift, error)
}

// MemorialService manages memorial pages
type MemorialService struct {
	memorialRepo MemorialRepository
	profiles     VerificationStore
	files        FileStore
}

// MemorialServiceConfig holds configuration for the memorial service
type MemorialServiceConfig struct {
	MemorialRepo MemorialRepository
	Profiles     VerificationStore
	Files        FileStore
}

// NewMemorialService creates a new memorial service
func NewMemorialService(cfg MemorialServiceConfig) *MemorialService {
	return &MemorialService{
		memorialRepo: cfg.MemorialRepo,
		profiles:     cfg.Profiles,
		files:        cfg.Files,
	}
}

// Create stores a memorial owned by the caller. Requires email_verified.
func (s *MemorialService) Create(ctx context.Context, userID string, req model.CreateMemorialRequest) (*model.Memorial, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	visibility := model.MemorialPublic
	if req.Visibility != "" {
		visibility = model.MemorialVisibility(req.Visibility)
	}

	m := &model.Memorial{
		OwnerID:    userID,
		Name:       strings.TrimSpace(req.Name),
		BirthDate:  nonEmpty(req.BirthDate),
		DeathDate:  nonEmpty(req.DeathDate),
		Biography:  req.Biography,
		PhotoURL:   req.PhotoURL,
		Visibility: visibility,
	}

	for attempt := 0; attempt < 3; attempt++ {
		slug, err := memorialSlug(m.Name)
		if err != nil {
			return nil, err
		}
		m.Slug = slug
		err = s.memorialRepo.Create(ctx, m)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, ErrInvalidTransition
}

// Get returns a memorial. Private memorials are visible to the owner and
// admins only.
func (s *MemorialService) Get(ctx context.Context, viewer *Actor, id string) (*model.Memorial, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsPublic() && !canManageMemorial(viewer, m) {
		return nil, ErrMemorialNotFound
	}
	return m, nil
}

// ListPublic returns public memorials, newest first
func (s *MemorialService) ListPublic(ctx context.Context, limit, offset int) ([]*model.Memorial, error) {
	return s.memorialRepo.ListPublic(ctx, limit, offset)
}

// ListOwn returns the caller's memorials
func (s *MemorialService) ListOwn(ctx context.Context, userID string) ([]*model.Memorial, error) {
	return s.memorialRepo.ListByOwner(ctx, userID)
}

// Update applies a partial update. Only the owner may edit.
func (s *MemorialService) Update(ctx context.Context, actor Actor, id string, req model.UpdateMemorialRequest) (*model.Memorial, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != actor.UserID {
		return nil, ErrNotMemorialOwner
	}
	if err := invalid(req.Validate(m)); err != nil {
		return nil, err
	}

	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.BirthDate != nil {
		m.BirthDate = emptyToNil(*req.BirthDate)
	}
	if req.DeathDate != nil {
		m.DeathDate = emptyToNil(*req.DeathDate)
	}
	if req.Biography != nil {
		m.Biography = emptyToNil(*req.Biography)
	}
	if req.PhotoURL != nil {
		m.PhotoURL = emptyToNil(*req.PhotoURL)
	}
	if req.Visibility != nil {
		m.Visibility = model.MemorialVisibility(*req.Visibility)
	}

	if err := s.memorialRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a memorial. Owners and admins may delete.
func (s *MemorialService) Delete(ctx context.Context, actor Actor, id string) error {
	m, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManageMemorial(&actor, m) {
		return ErrNotMemorialOwner
	}
	return s.memorialRepo.Delete(ctx, m.ID)
}

// PhotoUpload returns a presigned URL for the memorial's photo
func (s *MemorialService) PhotoUpload(ctx context.Context, actor Actor, id, contentType string) (*model.UploadTarget, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != actor.UserID {
		return nil, ErrNotMemorialOwner
	}
	return presignImage(ctx, s.files, "memorials/"+keyPart(m.ID), contentType)
}

// ListGifts returns the paid gifts on a memorial the viewer can see
func (s *MemorialService) ListGifts(ctx context.Context, viewer *Actor, id string, limit, offset int) ([]*model.MemorialGift, error) {
	m, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.memorialRepo.ListGifts(ctx, m.ID, limit, offset)
}

func (s *MemorialService) load(ctx context.Context, id string) (*model.Memorial, error) {
	rid, ok := recordID("memorials", id)
	if !ok {
		return nil, ErrMemorialNotFound
	}
	m, err := s.memorialRepo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMemorialNotFound
	}
	return m, nil
}

func canManageMemorial(actor *Actor, m *model.Memorial) bool {
	return actor != nil && (actor.UserID == m.OwnerID || actor.IsAdmin())
}

// memorialSlug builds a url-safe slug from the name plus a short random suffix
func memorialSlug(name string) (string, error) {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	base := strings.Trim(b.String(), "-")
	if len(base) > 60 {
		base = strings.Trim(base[:60], "-")
	}
	if base == "" {
		base = "memorial"
	}

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return base + "-" + hex.EncodeToString(suffix), nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
