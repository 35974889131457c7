package repository

import (
	"context"
	"fmt"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// SuggestionRepository handles feature suggestions and their votes
type SuggestionRepository struct {
	db database.Database
}

// NewSuggestionRepository creates a new suggestion repository
func NewSuggestionRepository(db database.Database) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

var parseSuggestion = parseInto[model.Suggestion]()

// Create stores an open suggestion
func (r *SuggestionRepository) Create(ctx context.Context, s *model.Suggestion) error {
	query := `
		CREATE feature_suggestions CONTENT {
			author_id: $author_id,
			title: $title,
			description: $description,
			status: $status,
			vote_count: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	created, err := createOne(ctx, r.db, query, map[string]interface{}{
		"author_id":   s.AuthorID,
		"title":       s.Title,
		"description": s.Description,
		"status":      model.SuggestionOpen,
	}, parseSuggestion)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetByID retrieves a suggestion
func (r *SuggestionRepository) GetByID(ctx context.Context, id string) (*model.Suggestion, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'feature_suggestions'`,
		map[string]interface{}{"id": id}, parseSuggestion)
}

// List returns suggestions sorted by votes or recency. When viewerID is set
// HasVoted reflects that user's votes.
func (r *SuggestionRepository) List(ctx context.Context, sort model.SuggestionSort, viewerID string, limit, offset int) ([]*model.Suggestion, error) {
	limit, offset = page(limit, offset, 50, 200)
	order := "vote_count DESC, created_on DESC"
	if sort == model.SuggestionSortNew {
		order = "created_on DESC"
	}
	query := `SELECT * FROM feature_suggestions ORDER BY ` + order + ` LIMIT $limit START $offset`
	items, err := selectMany(ctx, r.db, query, map[string]interface{}{"limit": limit, "offset": offset}, parseSuggestion)
	if err != nil || viewerID == "" || len(items) == 0 {
		return items, err
	}

	ids := make([]string, len(items))
	for i, s := range items {
		ids[i] = s.ID
	}
	results, err := r.db.Query(ctx,
		`SELECT suggestion_id FROM suggestion_votes WHERE user_id = $user_id AND suggestion_id IN $ids`,
		map[string]interface{}{"user_id": viewerID, "ids": ids})
	if err != nil {
		return nil, err
	}
	voted := make(map[string]bool)
	for _, row := range statementRows(results, 0) {
		if id, ok := row["suggestion_id"].(string); ok {
			voted[id] = true
		}
	}
	for _, s := range items {
		s.HasVoted = voted[s.ID]
	}
	return items, nil
}

// HasVoted reports whether the user has voted for the suggestion
func (r *SuggestionRepository) HasVoted(ctx context.Context, suggestionID, userID string) (bool, error) {
	n, err := countOf(ctx, r.db,
		`SELECT count() AS count FROM suggestion_votes WHERE suggestion_id = $suggestion_id AND user_id = $user_id GROUP ALL`,
		map[string]interface{}{"suggestion_id": suggestionID, "user_id": userID})
	return n > 0, err
}

// AddVote records a vote. A second vote by the same user returns
// database.ErrDuplicate.
func (r *SuggestionRepository) AddVote(ctx context.Context, suggestionID, userID string) error {
	query := `
		CREATE suggestion_votes CONTENT {
			suggestion_id: $suggestion_id,
			user_id: $user_id,
			created_on: time::now()
		}
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{"suggestion_id": suggestionID, "user_id": userID})
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: already voted", database.ErrDuplicate)
		}
		return err
	}
	return nil
}

// RemoveVote deletes a vote and reports whether one existed
func (r *SuggestionRepository) RemoveVote(ctx context.Context, suggestionID, userID string) (bool, error) {
	results, err := r.db.Query(ctx,
		`DELETE suggestion_votes WHERE suggestion_id = $suggestion_id AND user_id = $user_id RETURN BEFORE`,
		map[string]interface{}{"suggestion_id": suggestionID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return len(statementRows(results, 0)) > 0, nil
}

// RecountVotes recomputes vote_count from the votes table
func (r *SuggestionRepository) RecountVotes(ctx context.Context, suggestionID string) (*model.Suggestion, error) {
	query := `
		UPDATE type::record($id) SET
			vote_count = (SELECT count() AS count FROM suggestion_votes WHERE suggestion_id = $id GROUP ALL)[0].count ?? 0,
			updated_on = time::now()
		RETURN AFTER
	`
	return createOne(ctx, r.db, query, map[string]interface{}{"id": suggestionID}, parseSuggestion)
}

// SetStatus updates a suggestion's status
func (r *SuggestionRepository) SetStatus(ctx context.Context, id string, status model.SuggestionStatus) (*model.Suggestion, error) {
	query := `UPDATE type::record($id) SET status = $status, updated_on = time::now() RETURN AFTER`
	return createOne(ctx, r.db, query, map[string]interface{}{"id": id, "status": status}, parseSuggestion)
}
