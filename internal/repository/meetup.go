package repository

import (
	"context"
	"strings"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// MeetupRepository handles meetup and RSVP data access
type MeetupRepository struct {
	db database.Database
}

// NewMeetupRepository creates a new meetup repository
func NewMeetupRepository(db database.Database) *MeetupRepository {
	return &MeetupRepository{db: db}
}

var (
	parseMeetup = parseInto[model.Meetup]()
	parseRSVP   = parseInto[model.RSVP]()
)

// Create stores a scheduled meetup
func (r *MeetupRepository) Create(ctx context.Context, m *model.Meetup) error {
	query := `
		CREATE meetups CONTENT {
			organizer_id: $organizer_id,
			title: $title,
			description: $description,
			format: $format,
			location: $location,
			city: $city,
			city_key: $city_key,
			virtual_url: $virtual_url,
			starts_at: <datetime>$starts_at,
			ends_at: <datetime>$ends_at,
			max_attendees: $max_attendees,
			attendee_count: 0,
			status: 'scheduled',
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	created, err := createOne(ctx, r.db, query, meetupVars(m), parseMeetup)
	if err != nil {
		return err
	}
	*m = *created
	return nil
}

func meetupVars(m *model.Meetup) map[string]interface{} {
	var cityKey interface{}
	if m.City != nil {
		cityKey = strings.ToLower(strings.TrimSpace(*m.City))
	}
	return map[string]interface{}{
		"id":            m.ID,
		"organizer_id":  m.OrganizerID,
		"title":         m.Title,
		"description":   ptrToNone(m.Description),
		"format":        m.Format,
		"location":      ptrToNone(m.Location),
		"city":          ptrToNone(m.City),
		"city_key":      cityKey,
		"virtual_url":   ptrToNone(m.VirtualURL),
		"starts_at":     timeVar(m.StartsAt),
		"ends_at":       timeVar(m.EndsAt),
		"max_attendees": m.MaxAttendees,
	}
}

// GetByID retrieves a meetup
func (r *MeetupRepository) GetByID(ctx context.Context, id string) (*model.Meetup, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'meetups'`,
		map[string]interface{}{"id": id}, parseMeetup)
}

// ListUpcoming returns scheduled meetups that have not started, soonest first
func (r *MeetupRepository) ListUpcoming(ctx context.Context, f model.MeetupFilters, now time.Time) ([]*model.Meetup, error) {
	limit, offset := page(f.Limit, f.Offset, 20, 100)

	where := []string{"status = 'scheduled'", "starts_at > <datetime>$now"}
	vars := map[string]interface{}{"now": timeVar(now), "limit": limit, "offset": offset}
	if f.Format != nil {
		where = append(where, "format = $format")
		vars["format"] = *f.Format
	}
	if f.City != nil {
		where = append(where, "city_key = $city")
		vars["city"] = strings.ToLower(strings.TrimSpace(*f.City))
	}

	query := `SELECT * FROM meetups WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY starts_at ASC LIMIT $limit START $offset`
	return selectMany(ctx, r.db, query, vars, parseMeetup)
}

// Update writes the editable meetup fields and returns the stored meetup
func (r *MeetupRepository) Update(ctx context.Context, m *model.Meetup) error {
	query := `
		UPDATE type::record($id) SET
			title = $title,
			description = $description,
			location = $location,
			city = $city,
			city_key = $city_key,
			virtual_url = $virtual_url,
			starts_at = <datetime>$starts_at,
			ends_at = <datetime>$ends_at,
			max_attendees = $max_attendees,
			updated_on = time::now()
		RETURN AFTER
	`
	updated, err := createOne(ctx, r.db, query, meetupVars(m), parseMeetup)
	if err != nil {
		return err
	}
	*m = *updated
	return nil
}

// Cancel moves a scheduled meetup to cancelled. It reports false when the
// meetup was not scheduled.
func (r *MeetupRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE type::record($id) SET status = 'cancelled', updated_on = time::now()
		WHERE status = 'scheduled'
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query, map[string]interface{}{"id": id}, parseMeetup)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// CompleteEnded marks scheduled meetups whose end time has passed completed
func (r *MeetupRepository) CompleteEnded(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE meetups SET status = 'completed', updated_on = time::now()
		WHERE status = 'scheduled' AND ends_at < <datetime>$now
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query, map[string]interface{}{"now": timeVar(now)}, parseMeetup)
	return len(rows), err
}

// Search matches upcoming scheduled meetups by title or city
func (r *MeetupRepository) Search(ctx context.Context, q string, now time.Time, limit int) ([]*model.Meetup, error) {
	query := `
		SELECT * FROM meetups
		WHERE status = 'scheduled' AND starts_at > <datetime>$now
			AND (string::contains(string::lowercase(title), $q) OR string::contains(city_key ?? '', $q))
		ORDER BY starts_at ASC
		LIMIT $limit
	`
	return selectMany(ctx, r.db, query, map[string]interface{}{"q": q, "now": timeVar(now), "limit": limit}, parseMeetup)
}

// ============================================================================
// RSVPs
// ============================================================================

// GetRSVP returns a user's RSVP for a meetup
func (r *MeetupRepository) GetRSVP(ctx context.Context, meetupID, userID string) (*model.RSVP, error) {
	query := `SELECT * FROM meetup_rsvps WHERE meetup_id = $meetup_id AND user_id = $user_id LIMIT 1`
	return selectOne(ctx, r.db, query, map[string]interface{}{"meetup_id": meetupID, "user_id": userID}, parseRSVP)
}

// CreateRSVP stores a new RSVP. A second RSVP for the same meetup and user
// violates the unique index and returns database.ErrDuplicate.
func (r *MeetupRepository) CreateRSVP(ctx context.Context, rsvp *model.RSVP) error {
	query := `
		CREATE meetup_rsvps CONTENT {
			meetup_id: $meetup_id,
			user_id: $user_id,
			status: $status,
			note: $note,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"meetup_id": rsvp.MeetupID,
		"user_id":   rsvp.UserID,
		"status":    rsvp.Status,
		"note":      ptrToNone(rsvp.Note),
	}
	created, err := createOne(ctx, r.db, query, vars, parseRSVP)
	if err != nil {
		return err
	}
	*rsvp = *created
	return nil
}

// UpdateRSVP changes status and note. Moving onto the waitlist resets the
// queue position by bumping created_on.
func (r *MeetupRepository) UpdateRSVP(ctx context.Context, rsvp *model.RSVP) error {
	query := `
		UPDATE type::record($id) SET
			created_on = IF status != 'waitlist' AND $status = 'waitlist' THEN time::now() ELSE created_on END,
			status = $status,
			note = $note,
			updated_on = time::now()
		RETURN AFTER
	`
	vars := map[string]interface{}{"id": rsvp.ID, "status": rsvp.Status, "note": ptrToNone(rsvp.Note)}
	updated, err := createOne(ctx, r.db, query, vars, parseRSVP)
	if err != nil {
		return err
	}
	*rsvp = *updated
	return nil
}

// DeleteRSVP removes an RSVP
func (r *MeetupRepository) DeleteRSVP(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `DELETE type::record($id)`, map[string]interface{}{"id": id})
}

// CountAttending counts attending RSVPs
func (r *MeetupRepository) CountAttending(ctx context.Context, meetupID string) (int, error) {
	query := `SELECT count() AS count FROM meetup_rsvps WHERE meetup_id = $meetup_id AND status = 'attending' GROUP ALL`
	return countOf(ctx, r.db, query, map[string]interface{}{"meetup_id": meetupID})
}

// RecountAttendees recomputes attendee_count from attending RSVPs and returns it
func (r *MeetupRepository) RecountAttendees(ctx context.Context, meetupID string) (int, error) {
	query := `
		UPDATE type::record($id) SET attendee_count =
			(SELECT count() AS count FROM meetup_rsvps WHERE meetup_id = $id AND status = 'attending' GROUP ALL)[0].count ?? 0
		RETURN AFTER
	`
	m, err := createOne(ctx, r.db, query, map[string]interface{}{"id": meetupID}, parseMeetup)
	if err != nil {
		return 0, err
	}
	return m.AttendeeCount, nil
}

// PromoteNextWaitlisted moves the earliest waitlisted RSVP to attending and
// returns it, or nil when the waitlist is empty
func (r *MeetupRepository) PromoteNextWaitlisted(ctx context.Context, meetupID string) (*model.RSVP, error) {
	query := `
		LET $next = (SELECT VALUE id FROM meetup_rsvps
			WHERE meetup_id = $meetup_id AND status = 'waitlist'
			ORDER BY created_on ASC LIMIT 1);
		UPDATE $next SET status = 'attending', updated_on = time::now() WHERE status = 'waitlist' RETURN AFTER;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"meetup_id": meetupID})
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 1)
	if len(rows) == 0 {
		return nil, nil
	}
	return parseRSVP(rows[0])
}

// ListAttendees returns non-declined RSVPs joined with attendee profiles
func (r *MeetupRepository) ListAttendees(ctx context.Context, meetupID string) ([]*model.Attendee, error) {
	rsvps, err := selectMany(ctx, r.db, `
		SELECT * FROM meetup_rsvps
		WHERE meetup_id = $meetup_id AND status != 'declined'
		ORDER BY created_on ASC
	`, map[string]interface{}{"meetup_id": meetupID}, parseRSVP)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rsvps))
	for i, rv := range rsvps {
		ids[i] = rv.UserID
	}
	profiles, err := selectMany(ctx, r.db, `SELECT * FROM profiles WHERE user_id IN $ids`,
		map[string]interface{}{"ids": ids}, parseProfile)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*model.Profile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	out := make([]*model.Attendee, 0, len(rsvps))
	for _, rv := range rsvps {
		a := &model.Attendee{UserID: rv.UserID, Status: rv.Status, RespondedOn: rv.UpdatedOn}
		if p := byUser[rv.UserID]; p != nil {
			a.Username = p.Username
			a.DisplayName = p.DisplayName
			a.AvatarURL = p.AvatarURL
		}
		out = append(out, a)
	}
	return out, nil
}

// ListResponderIDs returns user ids of RSVPs in the given statuses
func (r *MeetupRepository) ListResponderIDs(ctx context.Context, meetupID string, statuses []model.RSVPStatus) ([]string, error) {
	rsvps, err := selectMany(ctx, r.db, `SELECT * FROM meetup_rsvps WHERE meetup_id = $meetup_id AND status IN $statuses`,
		map[string]interface{}{"meetup_id": meetupID, "statuses": statuses}, parseRSVP)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rsvps))
	for i, rv := range rsvps {
		ids[i] = rv.UserID
	}
	return ids, nil
}
