package model

import (
	"regexp"
	"time"
)

// VerificationStatus is a user's trust tier. Tiers are ordered and gate
// feature access: posting requires email_verified, organizer applications
// require id_verified, creating meetups requires meetup_organizer.
type VerificationStatus string

const (
	VerificationUnverified      VerificationStatus = "unverified"
	VerificationEmailVerified   VerificationStatus = "email_verified"
	VerificationIDVerified      VerificationStatus = "id_verified"
	VerificationMeetupOrganizer VerificationStatus = "meetup_organizer"
)

var verificationRank = map[VerificationStatus]int{
	VerificationUnverified:      0,
	VerificationEmailVerified:   1,
	VerificationIDVerified:      2,
	VerificationMeetupOrganizer: 3,
}

// IsValid reports whether the status is a known tier
func (v VerificationStatus) IsValid() bool {
	_, ok := verificationRank[v]
	return ok
}

// Rank returns the tier's position; unknown values rank below unverified
func (v VerificationStatus) Rank() int {
	if r, ok := verificationRank[v]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether v is the same tier as level or above it
func (v VerificationStatus) AtLeast(level VerificationStatus) bool {
	return v.Rank() >= level.Rank()
}

// Raise returns the higher of v and level. Approvals use it so a
// status is never lowered.
func (v VerificationStatus) Raise(level VerificationStatus) VerificationStatus {
	if level.Rank() > v.Rank() {
		return level
	}
	return v
}

// Profile is the public-facing identity of a user
type Profile struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Username           string             `json:"username"`
	DisplayName        string             `json:"display_name"`
	Bio                *string            `json:"bio,omitempty"`
	AvatarURL          *string            `json:"avatar_url,omitempty"`
	Location           *string            `json:"location,omitempty"`
	LossType           *string            `json:"loss_type,omitempty"`
	LovedOneName       *string            `json:"loved_one_name,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	IsPublic           bool               `json:"is_public"`
	CreatedOn          time.Time          `json:"created_on"`
	UpdatedOn          time.Time          `json:"updated_on"`
}

// Constraints
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxBioLength      = 1000
	MaxLocationLength = 200
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// ValidUsername reports whether s is 3-30 characters of [a-z0-9_]
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	Username     *string `json:"username,omitempty"`
	DisplayName  *string `json:"display_name,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	Location     *string `json:"location,omitempty"`
	LossType     *string `json:"loss_type,omitempty"`
	LovedOneName *string `json:"loved_one_name,omitempty"`
	IsPublic     *bool   `json:"is_public,omitempty"`
}

// Validate checks the profile update
func (r *UpdateProfileRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Username != nil && !ValidUsername(*r.Username) {
		errors = append(errors, FieldError{Field: "username", Message: "username must be 3-30 characters of lowercase letters, digits or underscore"})
	}
	if r.DisplayName != nil && (*r.DisplayName == "" || len(*r.DisplayName) > MaxDisplayNameLength) {
		errors = append(errors, FieldError{Field: "display_name", Message: "display_name must be 1-100 characters"})
	}
	if r.Bio != nil && len(*r.Bio) > MaxBioLength {
		errors = append(errors, FieldError{Field: "bio", Message: "bio must be 1000 characters or less"})
	}
	if r.Location != nil && len(*r.Location) > MaxLocationLength {
		errors = append(errors, FieldError{Field: "location", Message: "location must be 200 characters or less"})
	}
	if r.LovedOneName != nil && len(*r.LovedOneName) > MaxDisplayNameLength {
		errors = append(errors, FieldError{Field: "loved_one_name", Message: "loved_one_name must be 100 characters or less"})
	}

	return errors
}

// UploadRequest asks for a presigned upload URL
type UploadRequest struct {
	ContentType string `json:"content_type"`
}

// UploadTarget is a presigned PUT destination and where the object will be served from
type UploadTarget struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	PublicURL string    `json:"public_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AllowedImageTypes lists content types accepted for avatar and memorial photos
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}
