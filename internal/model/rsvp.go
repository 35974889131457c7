package model

import "time"

// RSVPStatus is a user's attendance response to a meetup
type RSVPStatus string

const (
	RSVPAttending RSVPStatus = "attending"
	RSVPMaybe     RSVPStatus = "maybe"
	RSVPDeclined  RSVPStatus = "declined"
	RSVPWaitlist  RSVPStatus = "waitlist"
)

// IsValid reports whether the status may be requested by a user.
// waitlist is assigned by the server, never requested.
func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPAttending, RSVPMaybe, RSVPDeclined:
		return true
	}
	return false
}

// RSVP is one user's response to one meetup
type RSVP struct {
	ID        string     `json:"id"`
	MeetupID  string     `json:"meetup_id"`
	UserID    string     `json:"user_id"`
	Status    RSVPStatus `json:"status"`
	Note      *string    `json:"note,omitempty"`
	CreatedOn time.Time  `json:"created_on"`
	UpdatedOn time.Time  `json:"updated_on"`
}

// Constraints
const MaxRSVPNoteLength = 500

// RSVPRequest represents a request to respond to a meetup
type RSVPRequest struct {
	MeetupID string  `json:"meetup_id"`
	Status   string  `json:"status"`
	Note     *string `json:"note,omitempty"`
}

// Validate checks the RSVP request
func (r *RSVPRequest) Validate() []FieldError {
	var errors []FieldError

	if r.MeetupID == "" {
		errors = append(errors, FieldError{Field: "meetup_id", Message: "meetup_id is required"})
	}
	if !RSVPStatus(r.Status).IsValid() {
		errors = append(errors, FieldError{Field: "status", Message: "status must be attending, maybe or declined"})
	}
	if r.Note != nil && len(*r.Note) > MaxRSVPNoteLength {
		errors = append(errors, FieldError{Field: "note", Message: "note must be 500 characters or less"})
	}

	return errors
}

// RSVPResult reports the stored RSVP and its side effects
type RSVPResult struct {
	RSVP          *RSVP `json:"rsvp"`
	Waitlisted    bool  `json:"waitlisted"`
	Promoted      *RSVP `json:"promoted,omitempty"`
	AttendeeCount int   `json:"attendee_count"`
}

// Attendee is an RSVP joined with the attendee's profile
type Attendee struct {
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Status      RSVPStatus `json:"status"`
	RespondedOn time.Time  `json:"responded_on"`
}
