package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forgo/haven/api/internal/model"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockTokenRepo struct {
	createRefreshTokenFunc       func(ctx context.Context, token *RefreshToken) error
	getRefreshTokenByHashFunc    func(ctx context.Context, hash string) (*RefreshToken, error)
	revokeRefreshTokenFunc       func(ctx context.Context, hash string) (bool, error)
	revokeAllUserTokensFunc      func(ctx context.Context, userID string) error
	deleteExpiredTokensFunc      func(ctx context.Context) error
	createEmailVerificationFunc  func(ctx context.Context, v *EmailVerification) error
	consumeEmailVerificationFunc func(ctx context.Context, hash string, now time.Time) (*EmailVerification, error)
}

func (m *mockTokenRepo) CreateRefreshToken(ctx context.Context, token *RefreshToken) error {
	if m.createRefreshTokenFunc != nil {
		return m.createRefreshTokenFunc(ctx, token)
	}
	return nil
}

func (m *mockTokenRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	if m.getRefreshTokenByHashFunc != nil {
		return m.getRefreshTokenByHashFunc(ctx, hash)
	}
	return nil, nil
}

func (m *mockTokenRepo) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	if m.revokeRefreshTokenFunc != nil {
		return m.revokeRefreshTokenFunc(ctx, hash)
	}
	return true, nil
}

func (m *mockTokenRepo) RevokeAllUserTokens(ctx context.Context, userID string) error {
	if m.revokeAllUserTokensFunc != nil {
		return m.revokeAllUserTokensFunc(ctx, userID)
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpiredTokens(ctx context.Context) error {
	if m.deleteExpiredTokensFunc != nil {
		return m.deleteExpiredTokensFunc(ctx)
	}
	return nil
}

func (m *mockTokenRepo) CreateEmailVerification(ctx context.Context, v *EmailVerification) error {
	if m.createEmailVerificationFunc != nil {
		return m.createEmailVerificationFunc(ctx, v)
	}
	return nil
}

func (m *mockTokenRepo) ConsumeEmailVerification(ctx context.Context, hash string, now time.Time) (*EmailVerification, error) {
	if m.consumeEmailVerificationFunc != nil {
		return m.consumeEmailVerificationFunc(ctx, hash, now)
	}
	return nil, nil
}

func newTestTokenService(t *testing.T, repo TokenRepository) *TokenService {
	t.Helper()
	svc := NewTokenService(TokenServiceConfig{
		JWTService: createTestJWTService(t),
		TokenRepo:  repo,
	})
	svc.now = fixedNow
	return svc
}

func testUser() *model.User {
	return &model.User{ID: "user:1", Email: "grace@haven.test", Role: model.UserRoleUser}
}

// ============================================================================
// hashToken Tests
// ============================================================================

func TestHashToken_Deterministic(t *testing.T) {
	t.Parallel()

	if hashToken("abc") != hashToken("abc") {
		t.Error("expected identical hashes for identical input")
	}
	if hashToken("abc") == hashToken("abd") {
		t.Error("expected different hashes for different input")
	}
	if len(hashToken("abc")) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(hashToken("abc")))
	}
}

func TestStringValue(t *testing.T) {
	t.Parallel()

	if stringValue(nil) != "" {
		t.Error("expected empty string for nil")
	}
	if stringValue(strPtr("x")) != "x" {
		t.Error("expected pointed-to value")
	}
}

// ============================================================================
// NewTokenService Tests
// ============================================================================

func TestNewTokenService_DefaultDuration(t *testing.T) {
	t.Parallel()

	svc := NewTokenService(TokenServiceConfig{TokenRepo: &mockTokenRepo{}})
	if svc.refreshDuration != 30*24*time.Hour {
		t.Errorf("expected 30 day default, got %v", svc.refreshDuration)
	}
}

// ============================================================================
// GenerateTokenPair Tests
// ============================================================================

func TestGenerateTokenPair_StoresHashedToken(t *testing.T) {
	t.Parallel()

	var stored *RefreshToken
	svc := newTestTokenService(t, &mockTokenRepo{
		createRefreshTokenFunc: func(ctx context.Context, token *RefreshToken) error {
			stored = token
			return nil
		},
	})

	pair, err := svc.GenerateTokenPair(context.Background(), testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.AccessToken == "" {
		t.Errorf("unexpected pair %+v", pair)
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("expected 3600s access lifetime, got %d", pair.ExpiresIn)
	}
	if stored == nil || stored.TokenHash != hashToken(pair.RefreshToken) {
		t.Fatal("expected the refresh token to be stored hashed")
	}
	if !stored.ExpiresAt.Equal(testNow.Add(30 * 24 * time.Hour)) {
		t.Errorf("unexpected expiry %v", stored.ExpiresAt)
	}

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("access token did not validate: %v", err)
	}
	if claims.UserID != "user:1" || claims.Role != "user" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestGenerateTokenPair_RepoError(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("db down")
	svc := newTestTokenService(t, &mockTokenRepo{
		createRefreshTokenFunc: func(ctx context.Context, token *RefreshToken) error { return repoErr },
	})

	if _, err := svc.GenerateTokenPair(context.Background(), testUser()); !errors.Is(err, repoErr) {
		t.Errorf("expected repo error, got %v", err)
	}
}

// ============================================================================
// RefreshTokens Tests
// ============================================================================

func TestRefreshTokens_RotatesToken(t *testing.T) {
	t.Parallel()

	var revokedHash string
	svc := newTestTokenService(t, &mockTokenRepo{
		getRefreshTokenByHashFunc: func(ctx context.Context, hash string) (*RefreshToken, error) {
			return &RefreshToken{UserID: "user:1", TokenHash: hash, ExpiresAt: testNow.Add(time.Hour)}, nil
		},
		revokeRefreshTokenFunc: func(ctx context.Context, hash string) (bool, error) {
			revokedHash = hash
			return true, nil
		},
	})

	pair, err := svc.RefreshTokens(context.Background(), "old-token", testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revokedHash != hashToken("old-token") {
		t.Error("expected the presented token to be revoked")
	}
	if pair.RefreshToken == "old-token" {
		t.Error("expected a new refresh token")
	}
}

func TestRefreshTokens_UnknownToken(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t, &mockTokenRepo{})
	if _, err := svc.RefreshTokens(context.Background(), "nope", testUser()); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshTokens_RevokedTokenRevokesAll(t *testing.T) {
	t.Parallel()

	var revokedAllFor string
	svc := newTestTokenService(t, &mockTokenRepo{
		getRefreshTokenByHashFunc: func(ctx context.Context, hash string) (*RefreshToken, error) {
			return &RefreshToken{UserID: "user:1", TokenHash: hash, Revoked: true, ExpiresAt: testNow.Add(time.Hour)}, nil
		},
		revokeAllUserTokensFunc: func(ctx context.Context, userID string) error {
			revokedAllFor = userID
			return nil
		},
	})

	_, err := svc.RefreshTokens(context.Background(), "reused", testUser())
	if !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("expected ErrRefreshTokenRevoked, got %v", err)
	}
	if revokedAllFor != "user:1" {
		t.Error("expected reuse to revoke every token of the user")
	}
}

func TestRefreshTokens_Expired(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t, &mockTokenRepo{
		getRefreshTokenByHashFunc: func(ctx context.Context, hash string) (*RefreshToken, error) {
			return &RefreshToken{UserID: "user:1", TokenHash: hash, ExpiresAt: testNow.Add(-time.Minute)}, nil
		},
	})

	if _, err := svc.RefreshTokens(context.Background(), "stale", testUser()); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Errorf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefreshTokens_LostRaceIsTreatedAsReuse(t *testing.T) {
	t.Parallel()

	revokedAll := false
	svc := newTestTokenService(t, &mockTokenRepo{
		getRefreshTokenByHashFunc: func(ctx context.Context, hash string) (*RefreshToken, error) {
			return &RefreshToken{UserID: "user:1", TokenHash: hash, ExpiresAt: testNow.Add(time.Hour)}, nil
		},
		revokeRefreshTokenFunc: func(ctx context.Context, hash string) (bool, error) { return false, nil },
		revokeAllUserTokensFunc: func(ctx context.Context, userID string) error {
			revokedAll = true
			return nil
		},
	})

	if _, err := svc.RefreshTokens(context.Background(), "raced", testUser()); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("expected ErrRefreshTokenRevoked, got %v", err)
	}
	if !revokedAll {
		t.Error("expected all tokens revoked")
	}
}

// ============================================================================
// Email Verification Tests
// ============================================================================

func TestEmailVerification_RoundTrip(t *testing.T) {
	t.Parallel()

	var stored *EmailVerification
	svc := newTestTokenService(t, &mockTokenRepo{
		createEmailVerificationFunc: func(ctx context.Context, v *EmailVerification) error {
			stored = v
			return nil
		},
		consumeEmailVerificationFunc: func(ctx context.Context, hash string, now time.Time) (*EmailVerification, error) {
			if stored == nil || hash != stored.TokenHash || now.After(stored.ExpiresAt) {
				return nil, nil
			}
			return stored, nil
		},
	})

	raw, err := svc.IssueEmailVerification(context.Background(), "user:1", 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.TokenHash == raw {
		t.Error("expected the verification token to be stored hashed")
	}

	userID, err := svc.ConsumeEmailVerification(context.Background(), raw)
	if err != nil || userID != "user:1" {
		t.Errorf("expected user:1, got %q (%v)", userID, err)
	}

	if _, err := svc.ConsumeEmailVerification(context.Background(), "forged"); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Errorf("expected ErrInvalidVerificationToken, got %v", err)
	}
	if _, err := svc.ConsumeEmailVerification(context.Background(), ""); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Errorf("expected ErrInvalidVerificationToken for empty token, got %v", err)
	}
}

func TestGenerateToken_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := generateToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tok) != 64 {
			t.Fatalf("expected 64 hex chars, got %d", len(tok))
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}
