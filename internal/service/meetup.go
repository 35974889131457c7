package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// MeetupRepository defines the interface for meetup and RSVP storage
type MeetupRepository interface {
	Create(ctx context.Context, m *model.Meetup) error
	GetByID(ctx context.Context, id string) (*model.Meetup, error)
	ListUpcoming(ctx context.Context, f model.MeetupFilters, now time.Time) ([]*model.Meetup, error)
	Update(ctx context.Context, m *model.Meetup) error
	Cancel(ctx context.Context, id string) (bool, error)

	GetRSVP(ctx context.Context, meetupID, userID string) (*model.RSVP, error)
	CreateRSVP(ctx context.Context, rsvp *model.RSVP) error
	UpdateRSVP(ctx context.Context, rsvp *model.RSVP) error
	DeleteRSVP(ctx context.Context, id string) error
	CountAttending(ctx context.Context, meetupID string) (int, error)
	RecountAttendees(ctx context.Context, meetupID string) (int, error)
	PromoteNextWaitlisted(ctx context.Context, meetupID string) (*model.RSVP, error)
	ListAttendees(ctx context.Context, meetupID string) ([]*model.Attendee, error)
	ListResponderIDs(ctx context.Context, meetupID string, statuses []model.RSVPStatus) ([]string, error)
}

// MeetupService manages meetups and RSVPs
type MeetupService struct {
	meetupRepo MeetupRepository
	profiles   VerificationStore
	events     Publisher
	now        func() time.Time
}

// MeetupServiceConfig holds configuration for the meetup service
type MeetupServiceConfig struct {
	MeetupRepo MeetupRepository
	Profiles   VerificationStore
	Events     Publisher
}

// NewMeetupService creates a new meetup service
func NewMeetupService(cfg MeetupServiceConfig) *MeetupService {
	return &MeetupService{
		meetupRepo: cfg.MeetupRepo,
		profiles:   cfg.Profiles,
		events:     cfg.Events,
		now:        time.Now,
	}
}

// Create schedules a meetup. Requires meetup_organizer status or admin.
func (s *MeetupService) Create(ctx context.Context, actor Actor, req model.CreateMeetupRequest) (*model.Meetup, error) {
	starts, ends, fields := req.Validate(s.now())
	if err := invalid(fields); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if _, err := requireVerification(ctx, s.profiles, actor.UserID, model.VerificationMeetupOrganizer); err != nil {
			return nil, err
		}
	}

	m := &model.Meetup{
		OrganizerID:  actor.UserID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Format:       model.MeetupFormat(req.Format),
		Location:     nonEmpty(req.Location),
		City:         nonEmpty(req.City),
		VirtualURL:   nonEmpty(req.VirtualURL),
		StartsAt:     starts.UTC(),
		EndsAt:       ends.UTC(),
		MaxAttendees: req.MaxAttendees,
	}
	if err := s.meetupRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns upcoming scheduled meetups
func (s *MeetupService) List(ctx context.Context, f model.MeetupFilters) ([]*model.Meetup, error) {
	return s.meetupRepo.ListUpcoming(ctx, f, s.now())
}

// Get returns a meetup and, for a signed-in viewer, their RSVP
func (s *MeetupService) Get(ctx context.Context, viewer *Actor, id string) (*model.MeetupDetail, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &model.MeetupDetail{Meetup: m}
	if viewer != nil {
		rsvp, err := s.meetupRepo.GetRSVP(ctx, m.ID, viewer.UserID)
		if err != nil {
			return nil, err
		}
		detail.MyRSVP = rsvp
	}
	return detail, nil
}

// Update edits a scheduled meetup. Only the organizer may edit. Raising
// max_attendees promotes waitlisted RSVPs into the new seats.
func (s *MeetupService) Update(ctx context.Context, actor Actor, id string, req model.UpdateMeetupRequest) (*model.Meetup, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != actor.UserID {
		return nil, ErrNotMeetupOrganizer
	}
	if m.Status == model.MeetupCancelled {
		return nil, ErrMeetupCancelled
	}
	if m.Status == model.MeetupCompleted {
		return nil, ErrMeetupStarted
	}
	if err := invalid(req.Validate(m, s.now())); err != nil {
		return nil, err
	}

	previousMax := m.MaxAttendees
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		m.Description = emptyToNil(*req.Description)
	}
	if req.Location != nil {
		m.Location = emptyToNil(*req.Location)
	}
	if req.City != nil {
		m.City = emptyToNil(*req.City)
	}
	if req.VirtualURL != nil {
		m.VirtualURL = emptyToNil(*req.VirtualURL)
	}
	if req.StartsAt != nil {
		m.StartsAt, _ = time.Parse(time.RFC3339, *req.StartsAt)
		m.StartsAt = m.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		m.EndsAt, _ = time.Parse(time.RFC3339, *req.EndsAt)
		m.EndsAt = m.EndsAt.UTC()
	}
	if req.MaxAttendees != nil {
		m.MaxAttendees = *req.MaxAttendees
	}

	if err := s.meetupRepo.Update(ctx, m); err != nil {
		return nil, err
	}

	if m.MaxAttendees == 0 || m.MaxAttendees > previousMax {
		if _, err := s.fillFromWaitlist(ctx, m); err != nil {
			return nil, err
		}
		count, err := s.meetupRepo.RecountAttendees(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		m.AttendeeCount = count
	}
	return m, nil
}

// Cancel cancels a scheduled meetup and notifies everyone who responded.
// The organizer and admins may cancel.
func (s *MeetupService) Cancel(ctx context.Context, actor Actor, id string) (*model.Meetup, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrNotMeetupOrganizer
	}

	ok, err := s.meetupRepo.Cancel(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMeetupCancelled
	}
	m.Status = model.MeetupCancelled

	responders, err := s.meetupRepo.ListResponderIDs(ctx, m.ID,
		[]model.RSVPStatus{model.RSVPAttending, model.RSVPMaybe, model.RSVPWaitlist})
	if err != nil {
		slog.Warn("failed to list meetup responders", slog.String("meetup_id", m.ID), slog.String("error", err.Error()))
		return m, nil
	}
	for _, userID := range responders {
		s.events.SendToUser(userID, Event{
			Type: EventMeetupCancelled,
			Data: map[string]string{"meetup_id": m.ID, "title": m.Title},
		})
	}
	return m, nil
}

// Attendees lists responders. Visible to the organizer, admins and users
// attending the meetup.
func (s *MeetupService) Attendees(ctx context.Context, actor Actor, id string) ([]*model.Attendee, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != actor.UserID && !actor.IsAdmin() {
		rsvp, err := s.meetupRepo.GetRSVP(ctx, m.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if rsvp == nil || rsvp.Status != model.RSVPAttending {
			return nil, ErrNotAttendee
		}
	}
	return s.meetupRepo.ListAttendees(ctx, m.ID)
}

// RSVP records the caller's response. Asking to attend a full meetup puts
// the caller on the waitlist; leaving attending frees the seat for the
// earliest waitlisted RSVP.
func (s *MeetupService) RSVP(ctx context.Context, userID string, req model.RSVPRequest) (*model.RSVPResult, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	m, err := s.loadOpen(ctx, req.MeetupID)
	if err != nil {
		return nil, err
	}
	if m.OrganizerID == userID {
		return nil, ErrOwnMeetupRSVP
	}

	existing, err := s.meetupRepo.GetRSVP(ctx, m.ID, userID)
	if err != nil {
		return nil, err
	}
	wasAttending := existing != nil && existing.Status == model.RSVPAttending

	status := model.RSVPStatus(req.Status)
	if status == model.RSVPAttending && !wasAttending {
		count, err := s.meetupRepo.CountAttending(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if !m.HasCapacity(count) {
			status = model.RSVPWaitlist
		}
	}

	rsvp := existing
	if rsvp == nil {
		rsvp = &model.RSVP{MeetupID: m.ID, UserID: userID, Status: status, Note: req.Note}
		if err := s.meetupRepo.CreateRSVP(ctx, rsvp); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return nil, ErrRSVPConflict
			}
			return nil, err
		}
	} else {
		rsvp.Status = status
		rsvp.Note = req.Note
		if err := s.meetupRepo.UpdateRSVP(ctx, rsvp); err != nil {
			return nil, err
		}
	}

	// two callers can both see the last free seat; the later one yields
	if status == model.RSVPAttending && !wasAttending && m.MaxAttendees > 0 {
		count, err := s.meetupRepo.CountAttending(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if count > m.MaxAttendees {
			rsvp.Status = model.RSVPWaitlist
			if err := s.meetupRepo.UpdateRSVP(ctx, rsvp); err != nil {
				return nil, err
			}
		}
	}

	result := &model.RSVPResult{RSVP: rsvp, Waitlisted: rsvp.Status == model.RSVPWaitlist}
	if wasAttending && rsvp.Status != model.RSVPAttending {
		promoted, err := s.fillFromWaitlist(ctx, m)
		if err != nil {
			return nil, err
		}
		if len(promoted) > 0 {
			result.Promoted = promoted[0]
		}
	}

	count, err := s.meetupRepo.RecountAttendees(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	result.AttendeeCount = count
	return result, nil
}

// CancelRSVP removes the caller's RSVP, promoting from the waitlist when an
// attending seat is freed
func (s *MeetupService) CancelRSVP(ctx context.Context, userID, meetupID string) (*model.RSVPResult, error) {
	m, err := s.load(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	rsvp, err := s.meetupRepo.GetRSVP(ctx, m.ID, userID)
	if err != nil {
		return nil, err
	}
	if rsvp == nil {
		return nil, ErrRSVPNotFound
	}
	if err := s.meetupRepo.DeleteRSVP(ctx, rsvp.ID); err != nil {
		return nil, err
	}

	result := &model.RSVPResult{}
	if rsvp.Status == model.RSVPAttending && m.Status == model.MeetupScheduled {
		promoted, err := s.fillFromWaitlist(ctx, m)
		if err != nil {
			return nil, err
		}
		if len(promoted) > 0 {
			result.Promoted = promoted[0]
		}
	}

	count, err := s.meetupRepo.RecountAttendees(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	result.AttendeeCount = count
	return result, nil
}

// fillFromWaitlist promotes waitlisted RSVPs in arrival order while seats
// remain and notifies each promoted user
func (s *MeetupService) fillFromWaitlist(ctx context.Context, m *model.Meetup) ([]*model.RSVP, error) {
	var promoted []*model.RSVP
	for {
		count, err := s.meetupRepo.CountAttending(ctx, m.ID)
		if err != nil {
			return promoted, err
		}
		if !m.HasCapacity(count) {
			return promoted, nil
		}

		next, err := s.meetupRepo.PromoteNextWaitlisted(ctx, m.ID)
		if err != nil {
			return promoted, err
		}
		if next == nil {
			return promoted, nil
		}
		promoted = append(promoted, next)

		s.events.SendToUser(next.UserID, Event{
			Type: EventRSVPPromoted,
			Data: map[string]string{"meetup_id": m.ID, "title": m.Title, "rsvp_id": next.ID},
		})
		slog.Info("rsvp promoted from waitlist", slog.String("meetup_id", m.ID), slog.String("user_id", next.UserID))
	}
}

// loadOpen returns a meetup that can still take RSVPs
func (s *MeetupService) loadOpen(ctx context.Context, id string) (*model.Meetup, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case m.Status == model.MeetupCancelled:
		return nil, ErrMeetupCancelled
	case m.Status == model.MeetupCompleted, m.HasStarted(s.now()):
		return nil, ErrMeetupStarted
	}
	return m, nil
}

func (s *MeetupService) load(ctx context.Context, id string) (*model.Meetup, error) {
	rid, ok := recordID("meetups", id)
	if !ok {
		return nil, ErrMeetupNotFound
	}
	m, err := s.meetupRepo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMeetupNotFound
	}
	return m, nil
}
