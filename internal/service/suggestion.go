package service

import (
	"context"
	"errors"
	"strings"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// SuggestionRepository defines the interface for suggestion and vote storage
type SuggestionRepository interface {
	Create(ctx context.Context, s *model.Suggestion) error
	GetByID(ctx context.Context, id string) (*model.Suggestion, error)
	List(ctx context.Context, sort model.SuggestionSort, viewerID string, limit, offset int) ([]*model.Suggestion, error)
	HasVoted(ctx context.Context, suggestionID, userID string) (bool, error)
	AddVote(ctx context.Context, suggestionID, userID string) error
	RemoveVote(ctx context.Context, suggestionID, userID string) (bool, error)
	RecountVotes(ctx context.Context, suggestionID string) (*model.Suggestion, error)
	SetStatus(ctx context.Context, id string, status model.SuggestionStatus) (*model.Suggestion, error)
}

// SuggestionService handles feature suggestions and votes
type SuggestionService struct {
	suggestionRepo SuggestionRepository
	profiles       VerificationStore
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(suggestionRepo SuggestionRepository, profiles VerificationStore) *SuggestionService {
	return &SuggestionService{
		suggestionRepo: suggestionRepo,
		profiles:       profiles,
	}
}

// Create adds a suggestion. Requires email_verified.
func (s *SuggestionService) Create(ctx context.Context, userID string, req model.CreateSuggestionRequest) (*model.Suggestion, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	sg := &model.Suggestion{
		AuthorID:    userID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      model.SuggestionOpen,
	}
	if err := s.suggestionRepo.Create(ctx, sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// List returns suggestions sorted by votes (default) or newest first.
// viewerID may be empty for anonymous callers.
func (s *SuggestionService) List(ctx context.Context, sort, viewerID string, limit, offset int) ([]*model.Suggestion, error) {
	by := model.SuggestionSort(sort)
	switch by {
	case "":
		by = model.SuggestionSortVotes
	case model.SuggestionSortVotes, model.SuggestionSortNew:
	default:
		return nil, invalid([]model.FieldError{{Field: "sort", Message: "sort must be votes or new"}})
	}
	return s.suggestionRepo.List(ctx, by, viewerID, limit, offset)
}

// Vote adds the caller's vote. A second vote is a conflict.
func (s *SuggestionService) Vote(ctx context.Context, userID, id string) (*model.Suggestion, error) {
	sg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.suggestionRepo.AddVote(ctx, sg.ID, userID); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}
	return s.recount(ctx, sg.ID, true)
}

// Unvote removes the caller's vote
func (s *SuggestionService) Unvote(ctx context.Context, userID, id string) (*model.Suggestion, error) {
	sg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	removed, err := s.suggestionRepo.RemoveVote(ctx, sg.ID, userID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrVoteNotFound
	}
	return s.recount(ctx, sg.ID, false)
}

// SetStatus moves a suggestion through triage. Admin only.
func (s *SuggestionService) SetStatus(ctx context.Context, actor Actor, id string, req model.SetSuggestionStatusRequest) (*model.Suggestion, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	status := model.SuggestionStatus(req.Status)
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	sg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.suggestionRepo.SetStatus(ctx, sg.ID, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrSuggestionNotFound
	}
	return updated, nil
}

func (s *SuggestionService) recount(ctx context.Context, id string, voted bool) (*model.Suggestion, error) {
	sg, err := s.suggestionRepo.RecountVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, ErrSuggestionNotFound
	}
	sg.HasVoted = voted
	return sg, nil
}

func (s *SuggestionService) load(ctx context.Context, id string) (*model.Suggestion, error) {
	rid, ok := recordID("feature_suggestions", id)
	if !ok {
		return nil, ErrSuggestionNotFound
	}
	sg, err := s.suggestionRepo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, ErrSuggestionNotFound
	}
	return sg, nil
}
