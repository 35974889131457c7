package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

type memoryMemorialRepo struct {
	mu        sync.Mutex
	memorials map[string]*model.Memorial
	gifts     map[string][]*model.MemorialGift
	slugClash int
	seq       int
}

func newMemoryMemorialRepo(memorials ...*model.Memorial) *memoryMemorialRepo {
	m := &memoryMemorialRepo{
		memorials: make(map[string]*model.Memorial),
		gifts:     make(map[string][]*model.MemorialGift),
	}
	for _, mem := range memorials {
		m.memorials[mem.ID] = mem
	}
	return m
}

func (m *memoryMemorialRepo) Create(ctx context.Context, mem *model.Memorial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugClash > 0 {
		m.slugClash--
		return database.ErrDuplicate
	}
	m.seq++
	mem.ID = fmt.Sprintf("memorials:%d", m.seq)
	cp := *mem
	m.memorials[mem.ID] = &cp
	return nil
}

func (m *memoryMemorialRepo) GetByID(ctx context.Context, id string) (*model.Memorial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memorials[id]
	if !ok {
		return nil, nil
	}
	cp := *mem
	return &cp, nil
}

func (m *memoryMemorialRepo) ListPublic(ctx context.Context, limit, offset int) ([]*model.Memorial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Memorial
	for _, mem := range m.memorials {
		if mem.IsPublic() {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memoryMemorialRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Memorial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Memorial
	for _, mem := range m.memorials {
		if mem.OwnerID == ownerID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memoryMemorialRepo) Update(ctx context.Context, mem *model.Memorial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mem
	m.memorials[mem.ID] = &cp
	return nil
}

func (m *memoryMemorialRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.memorials, id)
	return nil
}

func (m *memoryMemorialRepo) ListGifts(ctx context.Context, memorialID string, limit, offset int) ([]*model.MemorialGift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gifts[memorialID], nil
}

func (m *memoryMemorialRepo) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.memorials[id]
	return ok
}

func newMemorialFixture() (*MemorialService, *memoryMemorialRepo) {
	repo := newMemoryMemorialRepo(
		&model.Memorial{ID: "memorials:open", OwnerID: "user:owner", Name: "Rosa", Visibility: model.MemorialPublic, BirthDate: strPtr("1950-04-02")},
		&model.Memorial{ID: "memorials:closed", OwnerID: "user:owner", Name: "Theo", Visibility: model.MemorialPrivate},
	)
	repo.gifts["memorials:closed"] = []*model.MemorialGift{{ID: "memorial_gifts:1", MemorialID: "memorials:closed", Quantity: 1}}

	svc := NewMemorialService(MemorialServiceConfig{
		MemorialRepo: repo,
		Profiles: newMockProfileRepo(
			profileAt("user:owner", model.VerificationEmailVerified),
			profileAt("user:new", model.VerificationUnverified),
		),
		Files: &mockFileStore{},
	})
	return svc, repo
}

// ============================================================================
// Create Tests
// ============================================================================

func TestMemorialCreate(t *testing.T) {
	t.Parallel()

	svc, repo := newMemorialFixture()
	ctx := context.Background()

	m, err := svc.Create(ctx, "user:owner", model.CreateMemorialRequest{
		Name:      "  Rosa Parks ",
		BirthDate: strPtr("1913-02-04"),
		DeathDate: strPtr(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "Rosa Parks" || m.Visibility != model.MemorialPublic || m.DeathDate != nil {
		t.Errorf("unexpected memorial %+v", m)
	}
	if !strings.HasPrefix(m.Slug, "rosa-parks-") {
		t.Errorf("unexpected slug %q", m.Slug)
	}
	if !repo.exists(m.ID) {
		t.Error("expected the memorial to be stored")
	}
}

func TestMemorialCreate_Rules(t *testing.T) {
	t.Parallel()

	svc, _ := newMemorialFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user:new", model.CreateMemorialRequest{Name: "Theo"}); !errors.Is(err, ErrVerificationRequired) {
		t.Errorf("expected ErrVerificationRequired, got %v", err)
	}

	var verr *ValidationError
	_, err := svc.Create(ctx, "user:owner", model.CreateMemorialRequest{
		Name:      "Theo",
		BirthDate: strPtr("1990-06-01"),
		DeathDate: strPtr("1989-01-01"),
	})
	if !errors.As(err, &verr) || verr.Fields[0].Field != "death_date" {
		t.Errorf("expected a death_date error, got %v", err)
	}
}

func TestMemorialCreate_RetriesSlugClash(t *testing.T) {
	t.Parallel()

	svc, repo := newMemorialFixture()
	ctx := context.Background()

	repo.slugClash = 2
	if _, err := svc.Create(ctx, "user:owner", model.CreateMemorialRequest{Name: "Theo"}); err != nil {
		t.Fatalf("expected a retry to succeed, got %v", err)
	}

	repo.slugClash = 3
	if _, err := svc.Create(ctx, "user:owner", model.CreateMemorialRequest{Name: "Theo"}); err == nil {
		t.Error("expected an error after repeated clashes")
	}
}

// ============================================================================
// Visibility Tests
// ============================================================================

func TestMemorialGet_Visibility(t *testing.T) {
	t.Parallel()

	svc, _ := newMemorialFixture()
	owner := userActor("user:owner")
	admin := adminActor("user:admin")
	stranger := userActor("user:other")

	tests := []struct {
		name    string
		viewer  *Actor
		id      string
		wantErr error
	}{
		{"public to anonymous", nil, "open", nil},
		{"private to anonymous", nil, "closed", ErrMemorialNotFound},
		{"private to another user", &stranger, "closed", ErrMemorialNotFound},
		{"private to owner", &owner, "closed", nil},
		{"private to admin", &admin, "memorials:closed", nil},
		{"wrong table", &admin, "meetups:closed", ErrMemorialNotFound},
		{"missing", &admin, "gone", ErrMemorialNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Get(context.Background(), tt.viewer, tt.id)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMemorialListGifts_FollowsVisibility(t *testing.T) {
	t.Parallel()

	svc, _ := newMemorialFixture()
	ctx := context.Background()

	if _, err := svc.ListGifts(ctx, nil, "closed", 20, 0); !errors.Is(err, ErrMemorialNotFound) {
		t.Errorf("expected ErrMemorialNotFound, got %v", err)
	}
	owner := userActor("user:owner")
	gifts, err := svc.ListGifts(ctx, &owner, "closed", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(gifts) != 1 {
		t.Errorf("expected 1 gift, got %d", len(gifts))
	}
}

// ============================================================================
// Update / Delete Tests
// ============================================================================

func TestMemorialUpdate(t *testing.T) {
	t.Parallel()

	svc, _ := newMemorialFixture()
	ctx := context.Background()

	if _, err := svc.Update(ctx, adminActor("user:admin"), "open", model.UpdateMemorialRequest{Name: strPtr("Rosa L.")}); !errors.Is(err, ErrNotMemorialOwner) {
		t.Errorf("expected only the owner to edit, got %v", err)
	}

	// the stored birth date still bounds a new death date
	var verr *ValidationError
	if _, err := svc.Update(ctx, userActor("user:owner"), "open", model.UpdateMemorialRequest{DeathDate: strPtr("1949-12-31")}); !errors.As(err, &verr) {
		t.Errorf("expected a ValidationError, got %v", err)
	}

	m, err := svc.Update(ctx, userActor("user:owner"), "open", model.UpdateMemorialRequest{
		Name:       strPtr(" Rosa L. "),
		DeathDate:  strPtr("2020-01-01"),
		Visibility: strPtr("private"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "Rosa L." || m.IsPublic() || m.DeathDate == nil {
		t.Errorf("unexpected memorial %+v", m)
	}
}

func TestMemorialDelete(t *testing.T) {
	t.Parallel()

	svc, repo := newMemorialFixture()
	ctx := context.Background()

	if err := svc.Delete(ctx, userActor("user:other"), "open"); !errors.Is(err, ErrNotMemorialOwner) {
		t.Errorf("expected ErrNotMemorialOwner, got %v", err)
	}
	if err := svc.Delete(ctx, adminActor("user:admin"), "open"); err != nil {
		t.Fatalf("expected an admin to delete, got %v", err)
	}
	if repo.exists("memorials:open") {
		t.Error("expected the memorial to be removed")
	}
	if err := svc.Delete(ctx, userActor("user:owner"), "closed"); err != nil {
		t.Fatalf("expected the owner to delete, got %v", err)
	}
	if err := svc.Delete(ctx, userActor("user:owner"), "closed"); !errors.Is(err, ErrMemorialNotFound) {
		t.Errorf("expected ErrMemorialNotFound, got %v", err)
	}
}

func TestMemorialPhotoUpload_OwnerOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newMemorialFixture()
	ctx := context.Background()

	if _, err := svc.PhotoUpload(ctx, userActor("user:other"), "open", "image/jpeg"); !errors.Is(err, ErrNotMemorialOwner) {
		t.Errorf("expected ErrNotMemorialOwner, got %v", err)
	}
	target, err := svc.PhotoUpload(ctx, userActor("user:owner"), "open", "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(target.Key, "memorials/open/") {
		t.Errorf("unexpected key %q", target.Key)
	}
}
