package model

import (
	"net/mail"
	"strings"
	"time"
)

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleUser      UserRole = "user"      // Default role
	UserRoleModerator UserRole = "moderator" // Can resolve reports, pin and lock topics
	UserRoleAdmin     UserRole = "admin"     // Full access
)

// IsValid reports whether the role is known
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}

// User represents a user account
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Hash            *string    `json:"-"`
	Role            UserRole   `json:"role"`
	EmailVerified   bool       `json:"email_verified"`
	PaymentCustomer *string    `json:"-"`
	CreatedOn       time.Time  `json:"created_on"`
	UpdatedOn       time.Time  `json:"updated_on"`
	LoginOn         *time.Time `json:"login_on,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsModerator returns true if the user has moderator or admin role
func (u *User) IsModerator() bool {
	return u.Role == UserRoleModerator || u.Role == UserRoleAdmin
}

// Constraints
const (
	MinPasswordLength    = 8
	MaxPasswordLength    = 72 // bcrypt input limit
	MaxDisplayNameLength = 100
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Validate checks the registration request
func (r *RegisterRequest) Validate() []FieldError {
	var errors []FieldError

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		errors = append(errors, FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errors = append(errors, FieldError{Field: "email", Message: "email is not a valid address"})
	}
	if len(r.Password) < MinPasswordLength {
		errors = append(errors, FieldError{Field: "password", Message: "password must be at least 8 characters"})
	} else if len(r.Password) > MaxPasswordLength {
		errors = append(errors, FieldError{Field: "password", Message: "password must be 72 characters or less"})
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		errors = append(errors, FieldError{Field: "display_name", Message: "display_name is required"})
	} else if len(r.DisplayName) > MaxDisplayNameLength {
		errors = append(errors, FieldError{Field: "display_name", Message: "display_name must be 100 characters or less"})
	}

	return errors
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyEmailRequest confirms an email verification token
type VerifyEmailRequest struct {
	Token string `json:"token"`
}
