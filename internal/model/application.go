package model

import (
	"strings"
	"time"
)

// ApplicationType distinguishes the two verification workflows
type ApplicationType string

const (
	ApplicationOrganizer       ApplicationType = "organizer"
	ApplicationBackgroundCheck ApplicationType = "background_check"
)

// ApplicationStatus is shared by both application kinds. Organizer
// applications start at pending_payment; background checks start at pending.
type ApplicationStatus string

const (
	ApplicationPendingPayment  ApplicationStatus = "pending_payment"
	ApplicationPaymentComplete ApplicationStatus = "payment_complete"
	ApplicationPending         ApplicationStatus = "pending"
	ApplicationApproved        ApplicationStatus = "approved"
	ApplicationRejected        ApplicationStatus = "rejected"
)

// IsOpen reports whether the application still awaits a decision
func (s ApplicationStatus) IsOpen() bool {
	switch s {
	case ApplicationPendingPayment, ApplicationPaymentComplete, ApplicationPending:
		return true
	}
	return false
}

// OrganizerApplication is a request to become a meetup organizer
type OrganizerApplication struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Motivation        string            `json:"motivation"`
	Experience        *string           `json:"experience,omitempty"`
	City              *string           `json:"city,omitempty"`
	Status            ApplicationStatus `json:"status"`
	CheckoutSessionID *string           `json:"-"`
	ReviewerID        *string           `json:"reviewer_id,omitempty"`
	ReviewNote        *string           `json:"review_note,omitempty"`
	DecidedAt         *time.Time        `json:"decided_at,omitempty"`
	CreatedOn         time.Time         `json:"created_on"`
	UpdatedOn         time.Time         `json:"updated_on"`
}

// BackgroundCheckApplication is a request for id_verified status
type BackgroundCheckApplication struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	LegalName   string            `json:"legal_name"`
	DateOfBirth string            `json:"date_of_birth"`
	DocumentKey string            `json:"-"`
	Status      ApplicationStatus `json:"status"`
	ReviewerID  *string           `json:"reviewer_id,omitempty"`
	ReviewNote  *string           `json:"review_note,omitempty"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
	CreatedOn   time.Time         `json:"created_on"`
	UpdatedOn   time.Time         `json:"updated_on"`
}

// ApplicationList groups a user's or the review queue's applications
type ApplicationList struct {
	Organizer       []*OrganizerApplication       `json:"organizer"`
	BackgroundCheck []*BackgroundCheckApplication `json:"background_check"`
}

// Constraints
const (
	MinMotivationLength = 50
	MaxMotivationLength = 5000
	MaxReviewNoteLength = 1000
)

// OrganizerApplicationRequest applies to become an organizer
type OrganizerApplicationRequest struct {
	Motivation string  `json:"motivation"`
	Experience *string `json:"experience,omitempty"`
	City       *string `json:"city,omitempty"`
}

// Validate checks the organizer application
func (r *OrganizerApplicationRequest) Validate() []FieldError {
	var errors []FieldError

	m := strings.TrimSpace(r.Motivation)
	if len(m) < MinMotivationLength {
		errors = append(errors, FieldError{Field: "motivation", Message: "motivation must be at least 50 characters"})
	} else if len(m) > MaxMotivationLength {
		errors = append(errors, FieldError{Field: "motivation", Message: "motivation must be 5000 characters or less"})
	}
	if r.Experience != nil && len(*r.Experience) > MaxMotivationLength {
		errors = append(errors, FieldError{Field: "experience", Message: "experience must be 5000 characters or less"})
	}

	return errors
}

// BackgroundCheckRequest submits identity details and an uploaded document
type BackgroundCheckRequest struct {
	LegalName   string `json:"legal_name"`
	DateOfBirth string `json:"date_of_birth"`
	DocumentKey string `json:"document_key"`
}

// Validate checks the background check submission
func (r *BackgroundCheckRequest) Validate(now time.Time) []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.LegalName) == "" || len(r.LegalName) > 200 {
		errors = append(errors, FieldError{Field: "legal_name", Message: "legal_name must be 1-200 characters"})
	}
	if dob, err := time.Parse(DateLayout, r.DateOfBirth); err != nil {
		errors = append(errors, FieldError{Field: "date_of_birth", Message: "date_of_birth must be YYYY-MM-DD"})
	} else if dob.AddDate(18, 0, 0).After(now) {
		errors = append(errors, FieldError{Field: "date_of_birth", Message: "applicant must be at least 18"})
	}
	if r.DocumentKey == "" {
		errors = append(errors, FieldError{Field: "document_key", Message: "document_key is required"})
	}

	return errors
}

// DecisionRequest is an admin approve/reject with an optional note
type DecisionRequest struct {
	Note *string `json:"note,omitempty"`
}

// Validate checks the decision note
func (r *DecisionRequest) Validate() []FieldError {
	if r.Note != nil && len(*r.Note) > MaxReviewNoteLength {
		return []FieldError{{Field: "note", Message: "note must be 1000 characters or less"}}
	}
	return nil
}

// OrganizerApplicationResponse is returned after applying as an organizer
type OrganizerApplicationResponse struct {
	Application *OrganizerApplication `json:"application"`
	CheckoutURL string                `json:"checkout_url"`
}

// AllowedDocumentTypes lists content types accepted for identity documents
var AllowedDocumentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}
