package repository

import (
	"context"
	"fmt"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// ProfileRepository handles profile data access
type ProfileRepository struct {
	db database.Database
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var parseProfile = parseInto[model.Profile]()

// Create creates a profile. Username collisions return database.ErrDuplicate.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	query := `
		CREATE profiles CONTENT {
			user_id: $user_id,
			username: $username,
			display_name: $display_name,
			verification_status: $verification_status,
			is_public: $is_public,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"user_id":             p.UserID,
		"username":            p.Username,
		"display_name":        p.DisplayName,
		"verification_status": p.VerificationStatus,
		"is_public":           p.IsPublic,
	}

	created, err := createOne(ctx, r.db, query, vars, parseProfile)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: username taken", database.ErrDuplicate)
		}
		return err
	}
	p.ID = created.ID
	p.CreatedOn = created.CreatedOn
	p.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByUserID retrieves the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return selectOne(ctx, r.db, `SELECT * FROM profiles WHERE user_id = $user_id LIMIT 1`,
		map[string]interface{}{"user_id": userID}, parseProfile)
}

// GetByUsername retrieves a profile by username
func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return selectOne(ctx, r.db, `SELECT * FROM profiles WHERE username = $username LIMIT 1`,
		map[string]interface{}{"username": username}, parseProfile)
}

// UsernameExists reports whether a username is taken
func (r *ProfileRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := countOf(ctx, r.db, `SELECT count() AS count FROM profiles WHERE username = $username GROUP ALL`,
		map[string]interface{}{"username": username})
	return n > 0, err
}

// Update writes the editable profile fields
func (r *ProfileRepository) Update(ctx context.Context, p *model.Profile) error {
	query := `
		UPDATE type::record($id) SET
			username = $username,
			display_name = $display_name,
			bio = $bio,
			avatar_url = $avatar_url,
			location = $location,
			loss_type = $loss_type,
			loved_one_name = $loved_one_name,
			is_public = $is_public,
			updated_on = time::now()
	`
	vars := map[string]interface{}{
		"id":             p.ID,
		"username":       p.Username,
		"display_name":   p.DisplayName,
		"bio":            ptrToNone(p.Bio),
		"avatar_url":     ptrToNone(p.AvatarURL),
		"location":       ptrToNone(p.Location),
		"loss_type":      ptrToNone(p.LossType),
		"loved_one_name": ptrToNone(p.LovedOneName),
		"is_public":      p.IsPublic,
	}

	if err := r.db.Execute(ctx, query, vars); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: username taken", database.ErrDuplicate)
		}
		return err
	}
	return nil
}

// SetVerificationStatus overwrites a user's verification status
func (r *ProfileRepository) SetVerificationStatus(ctx context.Context, userID string, status model.VerificationStatus) error {
	query := `UPDATE profiles SET verification_status = $status, updated_on = time::now() WHERE user_id = $user_id`
	return r.db.Execute(ctx, query, map[string]interface{}{"user_id": userID, "status": status})
}

// CompareAndSetVerification moves the status from expected to next. It
// reports false when the stored status no longer matches expected.
func (r *ProfileRepository) CompareAndSetVerification(ctx context.Context, userID string, expected, next model.VerificationStatus) (bool, error) {
	query := `
		UPDATE profiles SET verification_status = $next, updated_on = time::now()
		WHERE user_id = $user_id AND verification_status = $expected
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query,
		map[string]interface{}{"user_id": userID, "expected": expected, "next": next}, parseProfile)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Search matches public profiles by username or display name
func (r *ProfileRepository) Search(ctx context.Context, q string, limit int) ([]*model.Profile, error) {
	query := `
		SELECT * FROM profiles
		WHERE is_public = true
			AND (string::contains(string::lowercase(username), $q)
				OR string::contains(string::lowercase(display_name), $q))
		ORDER BY username
		LIMIT $limit
	`
	return selectMany(ctx, r.db, query, map[string]interface{}{"q": q, "limit": limit}, parseProfile)
}
