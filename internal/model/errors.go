package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode represents API error codes
type ErrorCode int

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = 1001
	ErrCodeTokenExpired ErrorCode = 1002
	ErrCodeTokenInvalid ErrorCode = 1003
	ErrCodeLoginFailed  ErrorCode = 1004

	// Authorization errors (2xxx)
	ErrCodeForbidden            ErrorCode = 2001
	ErrCodeVerificationRequired ErrorCode = 2002

	// Resource errors (3xxx)
	ErrCodeNotFound      ErrorCode = 3001
	ErrCodeAlreadyExists ErrorCode = 3002
	ErrCodeConflict      ErrorCode = 3003

	// Validation errors (4xxx)
	ErrCodeValidation   ErrorCode = 4001
	ErrCodeInvalidInput ErrorCode = 4002
	ErrCodeRateLimited  ErrorCode = 4003

	// Internal errors (5xxx)
	ErrCodeInternal    ErrorCode = 5001
	ErrCodeDatabase    ErrorCode = 5002
	ErrCodeExternalAPI ErrorCode = 5003
)

const errorTypeBase = "https://haven.community/errors/"

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs.
// Message mirrors Detail so clients can read a single `error` string.
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Message  string       `json:"error"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	Code     ErrorCode    `json:"code,omitempty"`
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	if p.Message == "" {
		p.Message = p.Detail
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newProblem(slug, title string, status int, code ErrorCode, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:    errorTypeBase + slug,
		Title:   title,
		Status:  status,
		Message: detail,
		Detail:  detail,
		Code:    code,
	}
}

// Common error constructors

func NewUnauthorizedError(detail string) *ProblemDetails {
	return newProblem("unauthorized", "Unauthorized", http.StatusUnauthorized, ErrCodeUnauthorized, detail)
}

func NewForbiddenError(detail string) *ProblemDetails {
	return newProblem("forbidden", "Forbidden", http.StatusForbidden, ErrCodeForbidden, detail)
}

// NewVerificationRequiredError reports that the caller's verification
// status is below the level a feature needs.
func NewVerificationRequiredError(required VerificationStatus) *ProblemDetails {
	return newProblem("verification-required", "Verification Required", http.StatusForbidden,
		ErrCodeVerificationRequired, fmt.Sprintf("verification status %s or higher is required", required))
}

func NewNotFoundError(resource string) *ProblemDetails {
	return newProblem("not-found", "Not Found", http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func NewValidationError(errors []FieldError) *ProblemDetails {
	detail := "one or more fields failed validation"
	if len(errors) > 0 {
		detail = fmt.Sprintf("%s: %s", errors[0].Field, errors[0].Message)
		if len(errors) > 1 {
			detail = fmt.Sprintf("%s (and %d more errors)", detail, len(errors)-1)
		}
	}
	p := newProblem("validation", "Validation Error", http.StatusBadRequest, ErrCodeValidation, detail)
	p.Errors = errors
	return p
}

func NewConflictError(detail string) *ProblemDetails {
	return newProblem("conflict", "Conflict", http.StatusConflict, ErrCodeConflict, detail)
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "an unexpected error occurred"
	}
	return newProblem("internal", "Internal Server Error", http.StatusInternalServerError, ErrCodeInternal, detail)
}

func NewBadRequestError(detail string) *ProblemDetails {
	return newProblem("bad-request", "Bad Request", http.StatusBadRequest, ErrCodeInvalidInput, detail)
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return newProblem("rate-limited", "Too Many Requests", http.StatusTooManyRequests, ErrCodeRateLimited,
		fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter))
}
