package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Error() Interface Tests
// ============================================================================

func TestProblemDetails_Error_ReturnsFormattedMessage(t *testing.T) {
	t.Parallel()

	var err error = NewNotFoundError("memorial")
	errMsg := err.Error()

	if !strings.Contains(errMsg, "404") {
		t.Errorf("error message should contain status code, got: %s", errMsg)
	}
	if !strings.Contains(errMsg, "memorial not found") {
		t.Errorf("error message should contain detail, got: %s", errMsg)
	}
}

// ============================================================================
// WriteJSON Tests
// ============================================================================

func TestProblemDetails_WriteJSON_CarriesErrorString(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewConflictError("meetup has been cancelled").WriteJSON(rr)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", ct)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != "meetup has been cancelled" {
		t.Errorf("expected error field, got %v", body["error"])
	}
}

func TestProblemDetails_WriteJSON_FillsErrorFromDetail(t *testing.T) {
	t.Parallel()

	pd := &ProblemDetails{Status: http.StatusTeapot, Title: "Teapot", Detail: "short and stout"}
	rr := httptest.NewRecorder()
	pd.WriteJSON(rr)

	var result ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if result.Message != "short and stout" {
		t.Errorf("expected error to mirror detail, got %q", result.Message)
	}
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestConstructors_StatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pd     *ProblemDetails
		status int
		code   ErrorCode
	}{
		{"unauthorized", NewUnauthorizedError("token expired"), http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", NewForbiddenError("not yours"), http.StatusForbidden, ErrCodeForbidden},
		{"verification", NewVerificationRequiredError(VerificationEmailVerified), http.StatusForbidden, ErrCodeVerificationRequired},
		{"not found", NewNotFoundError("meetup"), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", NewConflictError("already voted"), http.StatusConflict, ErrCodeConflict},
		{"bad request", NewBadRequestError("bad json"), http.StatusBadRequest, ErrCodeInvalidInput},
		{"validation", NewValidationError(nil), http.StatusBadRequest, ErrCodeValidation},
		{"internal", NewInternalError(""), http.StatusInternalServerError, ErrCodeInternal},
		{"rate limited", NewRateLimitError(30), http.StatusTooManyRequests, ErrCodeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.pd.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.pd.Status)
			}
			if tt.pd.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, tt.pd.Code)
			}
			if tt.pd.Message == "" {
				t.Error("expected error string to be set")
			}
			if !strings.HasPrefix(tt.pd.Type, errorTypeBase) {
				t.Errorf("unexpected type %q", tt.pd.Type)
			}
		})
	}
}

func TestNewValidationError_MultipleFields(t *testing.T) {
	t.Parallel()

	pd := NewValidationError([]FieldError{
		{Field: "username", Message: "too short"},
		{Field: "bio", Message: "too long"},
	})

	if pd.Detail != "username: too short (and 1 more errors)" {
		t.Errorf("unexpected detail %q", pd.Detail)
	}
	if len(pd.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(pd.Errors))
	}
}

func TestNewInternalError_DefaultDetail(t *testing.T) {
	t.Parallel()

	if pd := NewInternalError(""); pd.Detail != "an unexpected error occurred" {
		t.Errorf("unexpected default detail %q", pd.Detail)
	}
}
