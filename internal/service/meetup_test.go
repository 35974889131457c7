package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgo/haven/api/internal/model"
)

// ============================================================================
// In-memory meetup repository
// ============================================================================

type memoryMeetupRepo struct {
	mu      sync.Mutex
	meetups map[string]*model.Meetup
	rsvps   []*model.RSVP
	seq     int
}

func newMemoryMeetupRepo() *memoryMeetupRepo {
	return &memoryMeetupRepo{meetups: make(map[string]*model.Meetup)}
}

func (m *memoryMeetupRepo) nextID(table string) string {
	m.seq++
	return fmt.Sprintf("%s:%d", table, m.seq)
}

func (m *memoryMeetupRepo) Create(ctx context.Context, meetup *model.Meetup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meetup.ID = m.nextID("meetups")
	meetup.Status = model.MeetupScheduled
	cp := *meetup
	m.meetups[meetup.ID] = &cp
	return nil
}

func (m *memoryMeetupRepo) GetByID(ctx context.Context, id string) (*model.Meetup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meetup, ok := m.meetups[id]
	if !ok {
		return nil, nil
	}
	cp := *meetup
	return &cp, nil
}

func (m *memoryMeetupRepo) ListUpcoming(ctx context.Context, f model.MeetupFilters, now time.Time) ([]*model.Meetup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Meetup
	for _, meetup := range m.meetups {
		if meetup.Status == model.MeetupScheduled && meetup.StartsAt.After(now) {
			cp := *meetup
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryMeetupRepo) Update(ctx context.Context, meetup *model.Meetup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *meetup
	m.meetups[meetup.ID] = &cp
	return nil
}

func (m *memoryMeetupRepo) Cancel(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meetup, ok := m.meetups[id]
	if !ok || meetup.Status != model.MeetupScheduled {
		return false, nil
	}
	meetup.Status = model.MeetupCancelled
	return true, nil
}

func (m *memoryMeetupRepo) GetRSVP(ctx context.Context, meetupID, userID string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rsvps {
		if r.MeetupID == meetupID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryMeetupRepo) CreateRSVP(ctx context.Context, rsvp *model.RSVP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rsvp.ID = m.nextID("rsvps")
	rsvp.CreatedOn = testNow.Add(time.Duration(m.seq) * time.Second)
	cp := *rsvp
	m.rsvps = append(m.rsvps, &cp)
	return nil
}

func (m *memoryMeetupRepo) UpdateRSVP(ctx context.Context, rsvp *model.RSVP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rsvps {
		if r.ID == rsvp.ID {
			r.Status = rsvp.Status
			r.Note = rsvp.Note
		}
	}
	return nil
}

func (m *memoryMeetupRepo) DeleteRSVP(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rsvps {
		if r.ID == id {
			m.rsvps = append(m.rsvps[:i], m.rsvps[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryMeetupRepo) countLocked(meetupID string) int {
	n := 0
	for _, r := range m.rsvps {
		if r.MeetupID == meetupID && r.Status == model.RSVPAttending {
			n++
		}
	}
	return n
}

func (m *memoryMeetupRepo) CountAttending(ctx context.Context, meetupID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(meetupID), nil
}

func (m *memoryMeetupRepo) RecountAttendees(ctx context.Context, meetupID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.countLocked(meetupID)
	if meetup, ok := m.meetups[meetupID]; ok {
		meetup.AttendeeCount = n
	}
	return n, nil
}

func (m *memoryMeetupRepo) PromoteNextWaitlisted(ctx context.Context, meetupID string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var waiting []*model.RSVP
	for _, r := range m.rsvps {
		if r.MeetupID == meetupID && r.Status == model.RSVPWaitlist {
			waiting = append(waiting, r)
		}
	}
	if len(waiting) == 0 {
		return nil, nil
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i].CreatedOn.Before(waiting[j].CreatedOn) })
	waiting[0].Status = model.RSVPAttending
	cp := *waiting[0]
	return &cp, nil
}

func (m *memoryMeetupRepo) ListAttendees(ctx context.Context, meetupID string) ([]*model.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Attendee
	for _, r := range m.rsvps {
		if r.MeetupID == meetupID {
			out = append(out, &model.Attendee{UserID: r.UserID, Status: r.Status})
		}
	}
	return out, nil
}

func (m *memoryMeetupRepo) ListResponderIDs(ctx context.Context, meetupID string, statuses []model.RSVPStatus) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[model.RSVPStatus]bool)
	for _, s := range statuses {
		want[s] = true
	}
	var out []string
	for _, r := range m.rsvps {
		if r.MeetupID == meetupID && want[r.Status] {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (m *memoryMeetupRepo) status(meetupID, userID string) model.RSVPStatus {
	r, _ := m.GetRSVP(context.Background(), meetupID, userID)
	if r == nil {
		return ""
	}
	return r.Status
}

// ============================================================================
// Fixture
// ============================================================================

type meetupFixture struct {
	svc      *MeetupService
	repo     *memoryMeetupRepo
	profiles *mockProfileRepo
	events   *capturePublisher
}

func newMeetupFixture(t *testing.T) *meetupFixture {
	t.Helper()
	f := &meetupFixture{
		repo: newMemoryMeetupRepo(),
		profiles: newMockProfileRepo(
			profileAt("user:org", model.VerificationMeetupOrganizer),
			profileAt("user:a", model.VerificationEmailVerified),
			profileAt("user:b", model.VerificationEmailVerified),
			profileAt("user:c", model.VerificationEmailVerified),
			profileAt("user:new", model.VerificationUnverified),
		),
		events: &capturePublisher{},
	}
	f.svc = NewMeetupService(MeetupServiceConfig{MeetupRepo: f.repo, Profiles: f.profiles, Events: f.events})
	f.svc.now = fixedNow
	return f
}

func (f *meetupFixture) meetup(t *testing.T, maxAttendees int) *model.Meetup {
	t.Helper()
	m, err := f.svc.Create(context.Background(), userActor("user:org"), model.CreateMeetupRequest{
		Title:        "Sunday circle",
		Format:       string(model.MeetupInPerson),
		Location:     strPtr("Community hall"),
		StartsAt:     testNow.Add(48 * time.Hour).Format(time.RFC3339),
		EndsAt:       testNow.Add(50 * time.Hour).Format(time.RFC3339),
		MaxAttendees: maxAttendees,
	})
	if err != nil {
		t.Fatalf("create meetup: %v", err)
	}
	return m
}

func (f *meetupFixture) rsvp(t *testing.T, userID, meetupID string, status model.RSVPStatus) *model.RSVPResult {
	t.Helper()
	res, err := f.svc.RSVP(context.Background(), userID, model.RSVPRequest{MeetupID: meetupID, Status: string(status)})
	if err != nil {
		t.Fatalf("rsvp %s: %v", userID, err)
	}
	return res
}

// ============================================================================
// Create Tests
// ============================================================================

func TestMeetupCreate_RequiresOrganizer(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	_, err := f.svc.Create(context.Background(), userActor("user:a"), model.CreateMeetupRequest{
		Title:      "Walk",
		Format:     string(model.MeetupVirtual),
		VirtualURL: strPtr("https://meet.test/x"),
		StartsAt:   testNow.Add(time.Hour).Format(time.RFC3339),
		EndsAt:     testNow.Add(2 * time.Hour).Format(time.RFC3339),
	})

	var verr *VerificationError
	if !errors.As(err, &verr) || verr.Required != model.VerificationMeetupOrganizer {
		t.Errorf("expected meetup_organizer requirement, got %v", err)
	}
}

func TestMeetupCreate_AdminBypassesVerification(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m, err := f.svc.Create(context.Background(), adminActor("user:admin"), model.CreateMeetupRequest{
		Title:      "Online share",
		Format:     string(model.MeetupVirtual),
		VirtualURL: strPtr("https://meet.test/x"),
		StartsAt:   testNow.Add(time.Hour).Format(time.RFC3339),
		EndsAt:     testNow.Add(2 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != model.MeetupScheduled {
		t.Errorf("expected scheduled, got %s", m.Status)
	}
}

func TestMeetupCreate_PastStartRejected(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	_, err := f.svc.Create(context.Background(), userActor("user:org"), model.CreateMeetupRequest{
		Title:    "Late",
		Format:   string(model.MeetupInPerson),
		Location: strPtr("Hall"),
		StartsAt: testNow.Add(-time.Hour).Format(time.RFC3339),
		EndsAt:   testNow.Add(time.Hour).Format(time.RFC3339),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields[0].Field != "starts_at" {
		t.Errorf("expected starts_at validation error, got %v", err)
	}
}

// ============================================================================
// RSVP Tests
// ============================================================================

func TestRSVP_WaitlistsWhenFull(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 1)

	first := f.rsvp(t, "user:a", m.ID, model.RSVPAttending)
	if first.Waitlisted || first.AttendeeCount != 1 {
		t.Errorf("expected first rsvp attending, got %+v", first)
	}

	second := f.rsvp(t, "user:b", m.ID, model.RSVPAttending)
	if !second.Waitlisted || second.RSVP.Status != model.RSVPWaitlist {
		t.Errorf("expected second rsvp waitlisted, got %+v", second.RSVP)
	}
	if second.AttendeeCount != 1 {
		t.Errorf("expected 1 attendee, got %d", second.AttendeeCount)
	}
}

func TestRSVP_LeavingPromotesEarliestWaitlisted(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 1)

	f.rsvp(t, "user:a", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:b", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:c", m.ID, model.RSVPAttending)

	res := f.rsvp(t, "user:a", m.ID, model.RSVPDeclined)
	if res.Promoted == nil || res.Promoted.UserID != "user:b" {
		t.Fatalf("expected user:b promoted, got %+v", res.Promoted)
	}
	if f.repo.status(m.ID, "user:c") != model.RSVPWaitlist {
		t.Error("expected user:c to stay waitlisted")
	}

	events := f.events.forUser("user:b")
	if len(events) != 1 || events[0].Type != EventRSVPPromoted {
		t.Errorf("expected a promotion event for user:b, got %+v", events)
	}
}

func TestCancelRSVP_PromotesFromWaitlist(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 1)
	f.rsvp(t, "user:a", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:b", m.ID, model.RSVPAttending)

	res, err := f.svc.CancelRSVP(context.Background(), "user:a", m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Promoted == nil || res.Promoted.UserID != "user:b" {
		t.Errorf("expected user:b promoted, got %+v", res.Promoted)
	}
	if res.AttendeeCount != 1 {
		t.Errorf("expected 1 attendee, got %d", res.AttendeeCount)
	}

	if _, err := f.svc.CancelRSVP(context.Background(), "user:a", m.ID); !errors.Is(err, ErrRSVPNotFound) {
		t.Errorf("expected ErrRSVPNotFound, got %v", err)
	}
}

func TestRSVP_Rules(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 0)
	ctx := context.Background()

	if _, err := f.svc.RSVP(ctx, "user:org", model.RSVPRequest{MeetupID: m.ID, Status: "attending"}); !errors.Is(err, ErrOwnMeetupRSVP) {
		t.Errorf("expected ErrOwnMeetupRSVP, got %v", err)
	}
	if _, err := f.svc.RSVP(ctx, "user:new", model.RSVPRequest{MeetupID: m.ID, Status: "attending"}); !errors.Is(err, ErrVerificationRequired) {
		t.Errorf("expected ErrVerificationRequired, got %v", err)
	}
	if _, err := f.svc.RSVP(ctx, "user:a", model.RSVPRequest{MeetupID: m.ID, Status: "waitlist"}); err == nil {
		t.Error("expected waitlist to be rejected as a requested status")
	}
	if _, err := f.svc.RSVP(ctx, "user:a", model.RSVPRequest{MeetupID: "meetups:missing", Status: "attending"}); !errors.Is(err, ErrMeetupNotFound) {
		t.Errorf("expected ErrMeetupNotFound, got %v", err)
	}

	f.svc.now = func() time.Time { return testNow.Add(49 * time.Hour) }
	if _, err := f.svc.RSVP(ctx, "user:a", model.RSVPRequest{MeetupID: m.ID, Status: "attending"}); !errors.Is(err, ErrMeetupStarted) {
		t.Errorf("expected ErrMeetupStarted, got %v", err)
	}
}

func TestRSVP_BareIDAccepted(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 0)

	_, key, _ := strings.Cut(m.ID, ":")
	res := f.rsvp(t, "user:a", key, model.RSVPAttending)
	if res.RSVP.MeetupID != m.ID {
		t.Errorf("expected %s, got %s", m.ID, res.RSVP.MeetupID)
	}
}

// ============================================================================
// Update / Cancel Tests
// ============================================================================

func TestUpdate_RaisingCapacityPromotes(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 1)
	f.rsvp(t, "user:a", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:b", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:c", m.ID, model.RSVPAttending)

	three := 3
	updated, err := f.svc.Update(context.Background(), userActor("user:org"), m.ID, model.UpdateMeetupRequest{MaxAttendees: &three})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AttendeeCount != 3 {
		t.Errorf("expected 3 attendees, got %d", updated.AttendeeCount)
	}
	for _, u := range []string{"user:b", "user:c"} {
		if f.repo.status(m.ID, u) != model.RSVPAttending {
			t.Errorf("expected %s promoted", u)
		}
	}
}

func TestUpdate_OnlyOrganizer(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 0)
	title := "Hijacked"
	if _, err := f.svc.Update(context.Background(), userActor("user:a"), m.ID, model.UpdateMeetupRequest{Title: &title}); !errors.Is(err, ErrNotMeetupOrganizer) {
		t.Errorf("expected ErrNotMeetupOrganizer, got %v", err)
	}
}

func TestCancel_NotifiesResponders(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 1)
	f.rsvp(t, "user:a", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:b", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:c", m.ID, model.RSVPDeclined)

	cancelled, err := f.svc.Cancel(context.Background(), userActor("user:org"), m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != model.MeetupCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	for _, u := range []string{"user:a", "user:b"} {
		if ev := f.events.forUser(u); len(ev) != 1 || ev[0].Type != EventMeetupCancelled {
			t.Errorf("expected cancellation event for %s, got %+v", u, ev)
		}
	}
	if len(f.events.forUser("user:c")) != 0 {
		t.Error("expected declined user not notified")
	}

	if _, err := f.svc.Cancel(context.Background(), userActor("user:org"), m.ID); !errors.Is(err, ErrMeetupCancelled) {
		t.Errorf("expected ErrMeetupCancelled on second cancel, got %v", err)
	}
	if _, err := f.svc.RSVP(context.Background(), "user:c", model.RSVPRequest{MeetupID: m.ID, Status: "attending"}); !errors.Is(err, ErrMeetupCancelled) {
		t.Errorf("expected RSVP to a cancelled meetup to fail, got %v", err)
	}
}

func TestAttendees_Visibility(t *testing.T) {
	t.Parallel()

	f := newMeetupFixture(t)
	m := f.meetup(t, 0)
	f.rsvp(t, "user:a", m.ID, model.RSVPAttending)
	f.rsvp(t, "user:b", m.ID, model.RSVPMaybe)
	ctx := context.Background()

	if _, err := f.svc.Attendees(ctx, userActor("user:a"), m.ID); err != nil {
		t.Errorf("expected attendee to see the list, got %v", err)
	}
	if _, err := f.svc.Attendees(ctx, userActor("user:b"), m.ID); !errors.Is(err, ErrNotAttendee) {
		t.Errorf("expected ErrNotAttendee for a maybe, got %v", err)
	}
	list, err := f.svc.Attendees(ctx, userActor("user:org"), m.ID)
	if err != nil || len(list) != 2 {
		t.Errorf("expected organizer to see 2 responders, got %d (%v)", len(list), err)
	}
}
