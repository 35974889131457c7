package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/pkg/jwt"
)

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

// EmailVerification is a stored one-time email verification token
type EmailVerification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TokenRepository defines the interface for refresh and verification token storage
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	RevokeAllUserTokens(ctx context.Context, userID string) error
	DeleteExpiredTokens(ctx context.Context) error
	CreateEmailVerification(ctx context.Context, v *EmailVerification) error
	ConsumeEmailVerification(ctx context.Context, hash string, now time.Time) (*EmailVerification, error)
}

// TokenService handles JWT and refresh token operations
type TokenService struct {
	jwtService      *jwt.Service
	tokenRepo       TokenRepository
	refreshDuration time.Duration
	now             func() time.Time
}

// TokenServiceConfig holds configuration for the token service
type TokenServiceConfig struct {
	JWTService      *jwt.Service
	TokenRepo       TokenRepository
	RefreshDuration time.Duration // Default: 30 days
}

// NewTokenService creates a new token service
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	if cfg.RefreshDuration == 0 {
		cfg.RefreshDuration = 30 * 24 * time.Hour
	}

	return &TokenService{
		jwtService:      cfg.JWTService,
		tokenRepo:       cfg.TokenRepo,
		refreshDuration: cfg.RefreshDuration,
		now:             time.Now,
	}
}

// TokenPair represents an access token and refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// GenerateTokenPair creates a new access token and refresh token for a user
func (s *TokenService) GenerateTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	claims := jwt.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}

	accessToken, err := s.jwtService.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	stored := &RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: s.now().Add(s.refreshDuration),
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, stored); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwtService.GetExpiration().Seconds()),
	}, nil
}

// LookupRefreshToken returns the stored record for a presented refresh token
func (s *TokenService) LookupRefreshToken(ctx context.Context, refreshToken string) (*RefreshToken, error) {
	stored, err := s.tokenRepo.GetRefreshTokenByHash(ctx, hashToken(refreshToken))
	if err != nil || stored == nil {
		return nil, ErrInvalidRefreshToken
	}
	return stored, nil
}

// RefreshTokens validates a refresh token and issues new tokens.
// Each refresh token is single-use: presenting a revoked one revokes every
// token the user holds.
func (s *TokenService) RefreshTokens(ctx context.Context, refreshToken string, user *model.User) (*TokenPair, error) {
	stored, err := s.LookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if stored.Revoked {
		_ = s.tokenRepo.RevokeAllUserTokens(ctx, stored.UserID)
		return nil, ErrRefreshTokenRevoked
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	revoked, err := s.tokenRepo.RevokeRefreshToken(ctx, stored.TokenHash)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// lost a race with another refresh of the same token
		_ = s.tokenRepo.RevokeAllUserTokens(ctx, stored.UserID)
		return nil, ErrRefreshTokenRevoked
	}

	return s.GenerateTokenPair(ctx, user)
}

// ValidateAccessToken validates an access token and returns the claims
func (s *TokenService) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return s.jwtService.Validate(token)
}

// RevokeAllUserTokens revokes all refresh tokens for a user (logout from all devices)
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return s.tokenRepo.RevokeAllUserTokens(ctx, userID)
}

// IssueEmailVerification stores a one-time verification token and returns
// the raw value to send to the user
func (s *TokenService) IssueEmailVerification(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", err
	}
	v := &EmailVerification{
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.tokenRepo.CreateEmailVerification(ctx, v); err != nil {
		return "", err
	}
	return raw, nil
}

// ConsumeEmailVerification redeems a verification token and returns the user it belongs to
func (s *TokenService) ConsumeEmailVerification(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidVerificationToken
	}
	v, err := s.tokenRepo.ConsumeEmailVerification(ctx, hashToken(raw), s.now())
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", ErrInvalidVerificationToken
	}
	return v.UserID, nil
}

// PurgeExpired removes expired refresh and verification tokens
func (s *TokenService) PurgeExpired(ctx context.Context) error {
	return s.tokenRepo.DeleteExpiredTokens(ctx)
}

// generateToken creates a cryptographically secure random token
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// stringValue safely dereferences a string pointer
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
