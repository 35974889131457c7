package model

import (
	"strings"
	"time"
)

// SuggestionStatus is the triage state of a feature suggestion
type SuggestionStatus string

const (
	SuggestionOpen        SuggestionStatus = "open"
	SuggestionUnderReview SuggestionStatus = "under_review"
	SuggestionPlanned     SuggestionStatus = "planned"
	SuggestionCompleted   SuggestionStatus = "completed"
	SuggestionDeclined    SuggestionStatus = "declined"
)

// IsValid reports whether the status is known
func (s SuggestionStatus) IsValid() bool {
	switch s {
	case SuggestionOpen, SuggestionUnderReview, SuggestionPlanned, SuggestionCompleted, SuggestionDeclined:
		return true
	}
	return false
}

// Suggestion is a community feature request
type Suggestion struct {
	ID          string           `json:"id"`
	AuthorID    string           `json:"author_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      SuggestionStatus `json:"status"`
	VoteCount   int              `json:"vote_count"`
	HasVoted    bool             `json:"has_voted"`
	CreatedOn   time.Time        `json:"created_on"`
	UpdatedOn   time.Time        `json:"updated_on"`
}

// SuggestionSort orders suggestion listings
type SuggestionSort string

const (
	SuggestionSortVotes SuggestionSort = "votes"
	SuggestionSortNew   SuggestionSort = "new"
)

// Constraints
const (
	MaxSuggestionTitleLength = 150
	MaxSuggestionDescLength  = 2000
)

// CreateSuggestionRequest represents a new suggestion
type CreateSuggestionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate checks the suggestion
func (r *CreateSuggestionRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxSuggestionTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 150 characters or less"})
	}
	if strings.TrimSpace(r.Description) == "" {
		errors = append(errors, FieldError{Field: "description", Message: "description is required"})
	} else if len(r.Description) > MaxSuggestionDescLength {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 2000 characters or less"})
	}

	return errors
}

// SetSuggestionStatusRequest is an admin triage update
type SetSuggestionStatusRequest struct {
	Status string `json:"status"`
}
