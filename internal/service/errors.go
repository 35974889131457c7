package service

import (
	"errors"
	"fmt"

	"github.com/forgo/haven/api/internal/model"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here so handlers can
// map them to HTTP responses in one place.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailAlreadyExists       = errors.New("email already registered")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrEmailAlreadyVerified     = errors.New("email already verified")
)

// ===== Token Errors =====
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// ===== Access Errors =====
var (
	ErrForbidden            = errors.New("not permitted")
	ErrAdminRequired        = errors.New("admin role required")
	ErrModeratorRequired    = errors.New("moderator role required")
	ErrVerificationRequired = errors.New("verification required")
)

// ===== Profile Errors =====
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidRole     = errors.New("invalid role")
	ErrSelfDemotion    = errors.New("admins cannot remove their own admin role")
)

// ===== Memorial Errors =====
var (
	ErrMemorialNotFound  = errors.New("memorial not found")
	ErrNotMemorialOwner  = errors.New("only the memorial owner can do this")
	ErrUnsupportedUpload = errors.New("unsupported content type")
)

// ===== Meetup Errors =====
var (
	ErrMeetupNotFound     = errors.New("meetup not found")
	ErrNotMeetupOrganizer = errors.New("only the organizer can do this")
	ErrMeetupCancelled    = errors.New("meetup has been cancelled")
	ErrMeetupStarted      = errors.New("meetup has already started")
	ErrOwnMeetupRSVP      = errors.New("organizers cannot RSVP to their own meetup")
	ErrRSVPNotFound       = errors.New("rsvp not found")
	ErrRSVPConflict       = errors.New("rsvp changed concurrently, try again")
	ErrNotAttendee        = errors.New("only the organizer or attendees can see the attendee list")
)

// ===== Forum Errors =====
var (
	ErrCategoryNotFound = errors.New("forum category not found")
	ErrCategoryExists   = errors.New("a category with this slug already exists")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrTopicLocked      = errors.New("topic is locked")
	ErrPostNotFound     = errors.New("post not found")
	ErrNotPostAuthor    = errors.New("only the author can edit this post")
	ErrPostDeleted      = errors.New("post has been deleted")
)

// ===== Messaging Errors =====
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrRecipientNotFound    = errors.New("recipient not found")
)

// ===== Store Errors =====
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductInactive  = errors.New("product is not available")
	ErrOrderNotFound    = errors.New("order not found")
	ErrMemorialRequired = errors.New("memorial_id is required for digital gifts")
	ErrOrderNotPaid     = errors.New("order has not been paid")
	ErrNoDownload       = errors.New("product has no downloadable asset")
	ErrNoBillingAccount = errors.New("no billing account on file")
	ErrInvalidWebhook   = errors.New("invalid webhook signature")
	ErrPaymentProvider  = errors.New("payment provider error")
)

// ===== Sponsor Errors =====
var (
	ErrSponsorNotFound   = errors.New("sponsor not found")
	ErrUnknownTier       = errors.New("unknown sponsor tier")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrUnknownPlacement  = errors.New("unknown placement slot")
)

// ===== Application Errors =====
var (
	ErrApplicationNotFound   = errors.New("application not found")
	ErrApplicationExists     = errors.New("an open application already exists")
	ErrApplicationNotPending = errors.New("application is not awaiting a decision")
)

// ===== Moderation Errors =====
var (
	ErrReportNotFound   = errors.New("report not found")
	ErrReportClosed     = errors.New("report is already closed")
	ErrCannotReportSelf = errors.New("cannot report yourself")
)

// ===== Suggestion Errors =====
var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrAlreadyVoted       = errors.New("already voted for this suggestion")
	ErrVoteNotFound       = errors.New("no vote to remove")
)

// ValidationError carries field-level problems found by a service
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("%s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

// invalid wraps field errors, returning nil when there are none
func invalid(fields []model.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// VerificationError reports the tier a feature needs. It matches
// ErrVerificationRequired with errors.Is.
type VerificationError struct {
	Required model.VerificationStatus
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification status %s or higher is required", e.Required)
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationRequired
}
