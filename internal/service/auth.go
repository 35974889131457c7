package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/mailer"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/pkg/jwt"
)

const (
	// bcrypt cost factor (10-14 recommended for production)
	bcryptCost = 12

	emailVerificationTTL = 24 * time.Hour
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}

// AuthProfileRepository is the slice of profile storage registration needs
type AuthProfileRepository interface {
	VerificationStore
	Create(ctx context.Context, p *model.Profile) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo     UserRepository
	profileRepo  AuthProfileRepository
	tokenService *TokenService
	mail         mailer.Sender
	verifyURL    string
	now          func() time.Time
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	UserRepo     UserRepository
	ProfileRepo  AuthProfileRepository
	TokenService *TokenService
	Mailer       mailer.Sender
	// VerifyURL is the client page that confirms a token, e.g.
	// https://haven.community/verify-email
	VerifyURL string
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		userRepo:     cfg.UserRepo,
		profileRepo:  cfg.ProfileRepo,
		tokenService: cfg.TokenService,
		mail:         cfg.Mailer,
		verifyURL:    cfg.VerifyURL,
		now:          time.Now,
	}
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	User      *model.User    `json:"user"`
	Profile   *model.Profile `json:"profile,omitempty"`
	TokenPair *TokenPair     `json:"tokens"`
}

// Me is the authenticated user's account and profile
type Me struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

// Register creates a new user account with an unverified profile
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*AuthResult, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: req.Email, Hash: &hash, Role: model.UserRoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	profile, err := s.createProfile(ctx, user, strings.TrimSpace(req.DisplayName))
	if err != nil {
		return nil, err
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Profile: profile, TokenPair: pair}, nil
}

// createProfile picks a free username derived from the display name or
// email and stores the initial profile
func (s *AuthService) createProfile(ctx context.Context, user *model.User, displayName string) (*model.Profile, error) {
	base := usernameBase(displayName, user.Email)

	for attempt := 0; attempt < 5; attempt++ {
		candidate := base
		if attempt > 0 {
			suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
			if err != nil {
				return nil, err
			}
			candidate = fmt.Sprintf("%s_%04d", base, suffix.Int64())
		}

		taken, err := s.profileRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		profile := &model.Profile{
			UserID:             user.ID,
			Username:           candidate,
			DisplayName:        displayName,
			VerificationStatus: model.VerificationUnverified,
			IsPublic:           true,
		}
		if err := s.profileRepo.Create(ctx, profile); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				continue
			}
			return nil, err
		}
		return profile, nil
	}
	return nil, ErrUsernameTaken
}

// usernameBase lowercases and strips a display name (falling back to the
// email local part) down to [a-z0-9_], between 3 and 24 characters
func usernameBase(displayName, email string) string {
	clean := func(s string) string {
		var b strings.Builder
		for _, r := range strings.ToLower(s) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == ' ' || r == '_' || r == '-' || r == '.':
				b.WriteRune('_')
			}
		}
		return strings.Trim(b.String(), "_")
	}

	base := clean(displayName)
	if len(base) < model.MinUsernameLength {
		local, _, _ := strings.Cut(email, "@")
		base = clean(local)
	}
	for len(base) < model.MinUsernameLength {
		base += "_"
	}
	if len(base) > 24 {
		base = strings.TrimRight(base[:24], "_")
		for len(base) < model.MinUsernameLength {
			base += "_"
		}
	}
	return base
}

// Login authenticates a user with email and password
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Hash == nil || *user.Hash == "" {
		return nil, ErrInvalidCredentials
	}
	if !checkPassword(req.Password, *user.Hash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokenService.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLogin(ctx, user.ID, s.now()); err != nil {
		slog.Warn("failed to record login", slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	profile, err := s.profileRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Profile: profile, TokenPair: pair}, nil
}

// RefreshTokens rotates a refresh token and issues a new pair
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	stored, err := s.tokenService.LookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return s.tokenService.RefreshTokens(ctx, refreshToken, user)
}

// Logout revokes every refresh token the user holds
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokenService.RevokeAllUserTokens(ctx, userID)
}

// Me returns the caller's account and profile
func (s *AuthService) Me(ctx context.Context, userID string) (*Me, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Me{User: user, Profile: profile}, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (s *AuthService) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return s.tokenService.ValidateAccessToken(token)
}

// RequestEmailVerification issues a one-time token and emails a
// confirmation link to the user
func (s *AuthService) RequestEmailVerification(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	raw, err := s.tokenService.IssueEmailVerification(ctx, userID, emailVerificationTTL)
	if err != nil {
		return err
	}

	link := s.verifyURL + "?token=" + url.QueryEscape(raw)
	return s.mail.Send(ctx, mailer.VerificationEmail(user.Email, link))
}

// ConfirmEmailVerification redeems a token, marks the email verified and
// raises the profile to email_verified
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, token string) (*model.Profile, error) {
	userID, err := s.tokenService.ConsumeEmailVerification(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetEmailVerified(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := raiseVerification(ctx, s.profileRepo, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}
	return s.profileRepo.GetByUserID(ctx, userID)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
