package repository

import (
	"context"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/service"
)

// TokenRepository handles refresh and email verification tokens
type TokenRepository struct {
	db database.Database
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db database.Database) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreateRefreshToken stores a new refresh token
func (r *TokenRepository) CreateRefreshToken(ctx context.Context, token *service.RefreshToken) error {
	query := `
		CREATE refresh_token CONTENT {
			user_id: $user_id,
			token_hash: $token_hash,
			expires_at: <datetime>$expires_at,
			created_at: time::now(),
			revoked: false
		}
	`
	vars := map[string]interface{}{
		"user_id":    token.UserID,
		"token_hash": token.TokenHash,
		"expires_at": timeVar(token.ExpiresAt),
	}

	created, err := createOne(ctx, r.db, query, vars, parseInto[service.RefreshToken]())
	if err != nil {
		return err
	}
	token.ID = created.ID
	token.CreatedAt = created.CreatedAt
	return nil
}

// GetRefreshTokenByHash retrieves a refresh token by its hash
func (r *TokenRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*service.RefreshToken, error) {
	return selectOne(ctx, r.db, `SELECT * FROM refresh_token WHERE token_hash = $hash LIMIT 1`,
		map[string]interface{}{"hash": hash}, parseInto[service.RefreshToken]())
}

// RevokeRefreshToken marks a refresh token as revoked. It reports false when
// the token was already revoked, so concurrent refreshes cannot both rotate.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	query := `UPDATE refresh_token SET revoked = true WHERE token_hash = $hash AND revoked = false RETURN AFTER`
	rows, err := selectMany(ctx, r.db, query, map[string]interface{}{"hash": hash}, parseInto[service.RefreshToken]())
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID string) error {
	query := `UPDATE refresh_token SET revoked = true WHERE user_id = $user_id AND revoked = false`
	return r.db.Execute(ctx, query, map[string]interface{}{"user_id": userID})
}

// DeleteExpiredTokens removes expired refresh tokens and verification tokens
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	query := `
		DELETE refresh_token WHERE expires_at < time::now();
		DELETE email_verification WHERE expires_at < time::now();
	`
	return r.db.Execute(ctx, query, nil)
}

// CreateEmailVerification stores a one-time email verification token
func (r *TokenRepository) CreateEmailVerification(ctx context.Context, v *service.EmailVerification) error {
	query := `
		CREATE email_verification CONTENT {
			user_id: $user_id,
			token_hash: $token_hash,
			expires_at: <datetime>$expires_at,
			created_at: time::now()
		}
	`
	vars := map[string]interface{}{
		"user_id":    v.UserID,
		"token_hash": v.TokenHash,
		"expires_at": timeVar(v.ExpiresAt),
	}

	created, err := createOne(ctx, r.db, query, vars, parseInto[service.EmailVerification]())
	if err != nil {
		return err
	}
	v.ID = created.ID
	v.CreatedAt = created.CreatedAt
	return nil
}

// ConsumeEmailVerification marks an unused, unexpired token used and returns
// it. It returns nil when no such token exists.
func (r *TokenRepository) ConsumeEmailVerification(ctx context.Context, hash string, now time.Time) (*service.EmailVerification, error) {
	query := `
		UPDATE email_verification SET used_at = <datetime>$now
		WHERE token_hash = $hash AND used_at = NONE AND expires_at > <datetime>$now
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query, map[string]interface{}{"hash": hash, "now": timeVar(now)},
		parseInto[service.EmailVerification]())
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}
