package model

import (
	"strings"
	"time"
)

// MeetupFormat is how a meetup is attended
type MeetupFormat string

const (
	MeetupInPerson MeetupFormat = "in_person"
	MeetupVirtual  MeetupFormat = "virtual"
)

// MeetupStatus is the lifecycle state of a meetup
type MeetupStatus string

const (
	MeetupScheduled MeetupStatus = "scheduled"
	MeetupCancelled MeetupStatus = "cancelled"
	MeetupCompleted MeetupStatus = "completed"
)

// Meetup is an in-person or virtual support gathering
type Meetup struct {
	ID            string       `json:"id"`
	OrganizerID   string       `json:"organizer_id"`
	Title         string       `json:"title"`
	Description   *string      `json:"description,omitempty"`
	Format        MeetupFormat `json:"format"`
	Location      *string      `json:"location,omitempty"`
	City          *string      `json:"city,omitempty"`
	VirtualURL    *string      `json:"virtual_url,omitempty"`
	StartsAt      time.Time    `json:"starts_at"`
	EndsAt        time.Time    `json:"ends_at"`
	MaxAttendees  int          `json:"max_attendees"` // 0 = unlimited
	AttendeeCount int          `json:"attendee_count"`
	Status        MeetupStatus `json:"status"`
	CreatedOn     time.Time    `json:"created_on"`
	UpdatedOn     time.Time    `json:"updated_on"`
}

// HasCapacity reports whether another attendee fits
func (m *Meetup) HasCapacity(attending int) bool {
	return m.MaxAttendees == 0 || attending < m.MaxAttendees
}

// HasStarted reports whether the meetup start time is at or before now
func (m *Meetup) HasStarted(now time.Time) bool {
	return !now.Before(m.StartsAt)
}

// MeetupDetail is a meetup together with the viewer's RSVP
type MeetupDetail struct {
	Meetup *Meetup `json:"meetup"`
	MyRSVP *RSVP   `json:"my_rsvp,omitempty"`
}

// MeetupFilters narrows meetup listings
type MeetupFilters struct {
	Format *MeetupFormat
	City   *string
	Limit  int
	Offset int
}

// Constraints
const (
	MaxMeetupTitleLength       = 200
	MaxMeetupDescriptionLength = 5000
	MaxMeetupAttendees         = 500
)

// CreateMeetupRequest represents a request to create a meetup
type CreateMeetupRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	Format       string  `json:"format"`
	Location     *string `json:"location,omitempty"`
	City         *string `json:"city,omitempty"`
	VirtualURL   *string `json:"virtual_url,omitempty"`
	StartsAt     string  `json:"starts_at"` // RFC3339
	EndsAt       string  `json:"ends_at"`   // RFC3339
	MaxAttendees int     `json:"max_attendees"`
}

// Validate checks the create request and returns the parsed times
func (r *CreateMeetupRequest) Validate(now time.Time) (time.Time, time.Time, []FieldError) {
	var errors []FieldError

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxMeetupTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	if r.Description != nil && len(*r.Description) > MaxMeetupDescriptionLength {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 5000 characters or less"})
	}

	switch MeetupFormat(r.Format) {
	case MeetupVirtual:
		if isBlank(r.VirtualURL) {
			errors = append(errors, FieldError{Field: "virtual_url", Message: "virtual_url is required for virtual meetups"})
		}
	case MeetupInPerson:
		if isBlank(r.Location) {
			errors = append(errors, FieldError{Field: "location", Message: "location is required for in-person meetups"})
		}
	default:
		errors = append(errors, FieldError{Field: "format", Message: "format must be in_person or virtual"})
	}

	if r.MaxAttendees < 0 || r.MaxAttendees > MaxMeetupAttendees {
		errors = append(errors, FieldError{Field: "max_attendees", Message: "max_attendees must be between 0 and 500"})
	}

	starts, ends, timeErrs := parseWindow(r.StartsAt, r.EndsAt, now, true)
	errors = append(errors, timeErrs...)

	return starts, ends, errors
}

// UpdateMeetupRequest represents a partial meetup update
type UpdateMeetupRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Location     *string `json:"location,omitempty"`
	City         *string `json:"city,omitempty"`
	VirtualURL   *string `json:"virtual_url,omitempty"`
	StartsAt     *string `json:"starts_at,omitempty"`
	EndsAt       *string `json:"ends_at,omitempty"`
	MaxAttendees *int    `json:"max_attendees,omitempty"`
}

// Validate checks the update against the current meetup. The stored start
// is not held to the future, so a running meetup can still move its end.
func (r *UpdateMeetupRequest) Validate(current *Meetup, now time.Time) []FieldError {
	var errors []FieldError

	if r.Title != nil && (strings.TrimSpace(*r.Title) == "" || len(*r.Title) > MaxMeetupTitleLength) {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 1-200 characters"})
	}
	if r.Description != nil && len(*r.Description) > MaxMeetupDescriptionLength {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 5000 characters or less"})
	}
	if r.MaxAttendees != nil && (*r.MaxAttendees < 0 || *r.MaxAttendees > MaxMeetupAttendees) {
		errors = append(errors, FieldError{Field: "max_attendees", Message: "max_attendees must be between 0 and 500"})
	}
	if current.Format == MeetupVirtual && r.VirtualURL != nil && isBlank(r.VirtualURL) {
		errors = append(errors, FieldError{Field: "virtual_url", Message: "virtual_url is required for virtual meetups"})
	}
	if current.Format == MeetupInPerson && r.Location != nil && isBlank(r.Location) {
		errors = append(errors, FieldError{Field: "location", Message: "location is required for in-person meetups"})
	}

	if r.StartsAt != nil || r.EndsAt != nil {
		starts := current.StartsAt.Format(time.RFC3339)
		ends := current.EndsAt.Format(time.RFC3339)
		if r.StartsAt != nil {
			starts = *r.StartsAt
		}
		if r.EndsAt != nil {
			ends = *r.EndsAt
		}
		_, parsedEnd, timeErrs := parseWindow(starts, ends, now, r.StartsAt != nil)
		errors = append(errors, timeErrs...)
		if len(timeErrs) == 0 && r.EndsAt != nil && !parsedEnd.After(now) {
			errors = append(errors, FieldError{Field: "ends_at", Message: "ends_at must be in the future"})
		}
	}

	return errors
}

func parseWindow(startsRaw, endsRaw string, now time.Time, futureStart bool) (time.Time, time.Time, []FieldError) {
	var errors []FieldError

	starts, err := time.Parse(time.RFC3339, startsRaw)
	if err != nil {
		errors = append(errors, FieldError{Field: "starts_at", Message: "starts_at must be an RFC3339 timestamp"})
	} else if futureStart && !starts.After(now) {
		errors = append(errors, FieldError{Field: "starts_at", Message: "starts_at must be in the future"})
	}
	ends, err := time.Parse(time.RFC3339, endsRaw)
	if err != nil {
		errors = append(errors, FieldError{Field: "ends_at", Message: "ends_at must be an RFC3339 timestamp"})
	}
	if len(errors) == 0 && !ends.After(starts) {
		errors = append(errors, FieldError{Field: "ends_at", Message: "ends_at must be after starts_at"})
	}
	return starts, ends, errors
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
