package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return model.NewValidationError(verr.Fields)
	}
	var gate *service.VerificationError
	if errors.As(err, &gate) {
		return model.NewVerificationRequiredError(gate.Required)
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return model.NewUnauthorizedError(err.Error())

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAdminRequired),
		errors.Is(err, service.ErrModeratorRequired),
		errors.Is(err, service.ErrNotMemorialOwner),
		errors.Is(err, service.ErrNotMeetupOrganizer),
		errors.Is(err, service.ErrNotAttendee),
		errors.Is(err, service.ErrNotPostAuthor),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrOrderNotPaid):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")
	case errors.Is(err, service.ErrProfileNotFound):
		return model.NewNotFoundError("profile")
	case errors.Is(err, service.ErrMemorialNotFound):
		return model.NewNotFoundError("memorial")
	case errors.Is(err, service.ErrMeetupNotFound):
		return model.NewNotFoundError("meetup")
	case errors.Is(err, service.ErrRSVPNotFound):
		return model.NewNotFoundError("RSVP")
	case errors.Is(err, service.ErrCategoryNotFound):
		return model.NewNotFoundError("forum category")
	case errors.Is(err, service.ErrTopicNotFound):
		return model.NewNotFoundError("topic")
	case errors.Is(err, service.ErrPostNotFound):
		return model.NewNotFoundError("post")
	case errors.Is(err, service.ErrConversationNotFound):
		return model.NewNotFoundError("conversation")
	case errors.Is(err, service.ErrRecipientNotFound):
		return model.NewNotFoundError("recipient")
	case errors.Is(err, service.ErrProductNotFound):
		return model.NewNotFoundError("product")
	case errors.Is(err, service.ErrOrderNotFound):
		return model.NewNotFoundError("order")
	case errors.Is(err, service.ErrNoDownload):
		return model.NewNotFoundError("download")
	case errors.Is(err, service.ErrSponsorNotFound):
		return model.NewNotFoundError("sponsor")
	case errors.Is(err, service.ErrApplicationNotFound):
		return model.NewNotFoundError("application")
	case errors.Is(err, service.ErrReportNotFound):
		return model.NewNotFoundError("report")
	case errors.Is(err, service.ErrSuggestionNotFound):
		return model.NewNotFoundError("suggestion")
	case errors.Is(err, service.ErrVoteNotFound):
		return model.NewNotFoundError("vote")

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrEmailAlreadyVerified),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrCategoryExists):
		return model.NewConflictError(err.Error())
	case errors.Is(err, service.ErrMeetupCancelled),
		errors.Is(err, service.ErrMeetupStarted),
		errors.Is(err, service.ErrOwnMeetupRSVP),
		errors.Is(err, service.ErrRSVPConflict),
		errors.Is(err, service.ErrTopicLocked),
		errors.Is(err, service.ErrPostDeleted),
		errors.Is(err, service.ErrApplicationExists),
		errors.Is(err, service.ErrApplicationNotPending),
		errors.Is(err, service.ErrReportClosed),
		errors.Is(err, service.ErrAlreadyVoted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrNoBillingAccount):
		return model.NewConflictError(err.Error())

	// ===== Bad Request → 400 =====
	case errors.Is(err, service.ErrInvalidVerificationToken),
		errors.Is(err, service.ErrInvalidWebhook),
		errors.Is(err, service.ErrUnsupportedUpload),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrMemorialRequired),
		errors.Is(err, service.ErrUnknownTier),
		errors.Is(err, service.ErrUnknownPlacement):
		return model.NewBadRequestError(err.Error())

	// Self-action prevention
	case errors.Is(err, service.ErrSelfConversation),
		errors.Is(err, service.ErrCannotReportSelf),
		errors.Is(err, service.ErrSelfDemotion):
		return model.NewValidationError([]model.FieldError{{Field: "target", Message: err.Error()}})

	case errors.Is(err, service.ErrInvalidStatus):
		return model.NewValidationError([]model.FieldError{{Field: "status", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidRole):
		return model.NewValidationError([]model.FieldError{{Field: "role", Message: err.Error()}})

	// ===== Payment processor → 500 =====
	case errors.Is(err, service.ErrPaymentProvider):
		return model.NewInternalError("payment provider error")

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == http.StatusInternalServerError {
		pd.Detail = operation + ": an unexpected error occurred"
		pd.Message = pd.Detail
	}
	return pd
}

// writeServiceError maps err and writes it, logging anything that became a 500
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	pd := MapServiceErrorWithContext(err, operation)
	if pd.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("operation", operation),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	WriteError(w, pd)
}
