package model

import "time"

// ReportContentType is the kind of content a report targets
type ReportContentType string

const (
	ReportContentProfile    ReportContentType = "profile"
	ReportContentMemorial   ReportContentType = "memorial"
	ReportContentForumTopic ReportContentType = "forum_topic"
	ReportContentForumPost  ReportContentType = "forum_post"
	ReportContentMessage    ReportContentType = "message"
	ReportContentMeetup     ReportContentType = "meetup"
)

// IsValid reports whether the content type is known
func (t ReportContentType) IsValid() bool {
	switch t {
	case ReportContentProfile, ReportContentMemorial, ReportContentForumTopic,
		ReportContentForumPost, ReportContentMessage, ReportContentMeetup:
		return true
	}
	return false
}

// ReportReason is why content was reported
type ReportReason string

const (
	ReportReasonSpam           ReportReason = "spam"
	ReportReasonHarassment     ReportReason = "harassment"
	ReportReasonInappropriate  ReportReason = "inappropriate"
	ReportReasonMisinformation ReportReason = "misinformation"
	ReportReasonOther          ReportReason = "other"
)

// IsValid reports whether the reason is known
func (r ReportReason) IsValid() bool {
	switch r {
	case ReportReasonSpam, ReportReasonHarassment, ReportReasonInappropriate,
		ReportReasonMisinformation, ReportReasonOther:
		return true
	}
	return false
}

// ReportStatus represents the state of a report
type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "open"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Report is a user report against a piece of content
type Report struct {
	ID             string            `json:"id"`
	ReporterID     string            `json:"reporter_id"`
	ContentType    ReportContentType `json:"content_type"`
	ContentID      string            `json:"content_id"`
	Reason         ReportReason      `json:"reason"`
	Details        *string           `json:"details,omitempty"`
	Status         ReportStatus      `json:"status"`
	ResolverID     *string           `json:"resolver_id,omitempty"`
	ResolutionNote *string           `json:"resolution_note,omitempty"`
	CreatedOn      time.Time         `json:"created_on"`
	ResolvedOn     *time.Time        `json:"resolved_on,omitempty"`
}

// Constraints
const MaxReportDetailsLength = 1000

// CreateReportRequest represents a request to report content
type CreateReportRequest struct {
	ContentType string  `json:"content_type"`
	ContentID   string  `json:"content_id"`
	Reason      string  `json:"reason"`
	Details     *string `json:"details,omitempty"`
}

// Validate checks the report
func (r *CreateReportRequest) Validate() []FieldError {
	var errors []FieldError

	if !ReportContentType(r.ContentType).IsValid() {
		errors = append(errors, FieldError{Field: "content_type", Message: "content_type is not supported"})
	}
	if r.ContentID == "" {
		errors = append(errors, FieldError{Field: "content_id", Message: "content_id is required"})
	}
	if !ReportReason(r.Reason).IsValid() {
		errors = append(errors, FieldError{Field: "reason", Message: "reason must be spam, harassment, inappropriate, misinformation or other"})
	}
	if r.Details != nil && len(*r.Details) > MaxReportDetailsLength {
		errors = append(errors, FieldError{Field: "details", Message: "details must be 1000 characters or less"})
	}

	return errors
}

// ResolveReportRequest closes a report
type ResolveReportRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

// Validate checks the resolution
func (r *ResolveReportRequest) Validate() []FieldError {
	var errors []FieldError

	if ReportStatus(r.Status) != ReportStatusResolved && ReportStatus(r.Status) != ReportStatusDismissed {
		errors = append(errors, FieldError{Field: "status", Message: "status must be resolved or dismissed"})
	}
	if r.Note != nil && len(*r.Note) > MaxReviewNoteLength {
		errors = append(errors, FieldError{Field: "note", Message: "note must be 1000 characters or less"})
	}

	return errors
}
