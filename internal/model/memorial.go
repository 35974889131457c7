package model

import (
	"strings"
	"time"
)

// MemorialVisibility controls who may view a memorial
type MemorialVisibility string

const (
	MemorialPublic  MemorialVisibility = "public"
	MemorialPrivate MemorialVisibility = "private"
)

// Memorial is a page dedicated to a loved one
type Memorial struct {
	ID         string             `json:"id"`
	OwnerID    string             `json:"owner_id"`
	Name       string             `json:"name"`
	Slug       string             `json:"slug"`
	BirthDate  *string            `json:"birth_date,omitempty"` // YYYY-MM-DD
	DeathDate  *string            `json:"death_date,omitempty"` // YYYY-MM-DD
	Biography  *string            `json:"biography,omitempty"`
	PhotoURL   *string            `json:"photo_url,omitempty"`
	Visibility MemorialVisibility `json:"visibility"`
	GiftCount  int                `json:"gift_count"`
	CreatedOn  time.Time          `json:"created_on"`
	UpdatedOn  time.Time          `json:"updated_on"`
}

// IsPublic reports whether anyone may view the memorial
func (m *Memorial) IsPublic() bool {
	return m.Visibility == MemorialPublic
}

// MemorialGift is a paid gift placed on a memorial
type MemorialGift struct {
	ID         string    `json:"id"`
	MemorialID string    `json:"memorial_id"`
	OrderID    string    `json:"order_id"`
	ProductID  string    `json:"product_id"`
	GiverID    string    `json:"giver_id"`
	Name       string    `json:"name"`
	ImageURL   *string   `json:"image_url,omitempty"`
	Message    *string   `json:"message,omitempty"`
	Quantity   int       `json:"quantity"`
	CreatedOn  time.Time `json:"created_on"`
}

// Constraints
const (
	MaxMemorialNameLength = 200
	MaxBiographyLength    = 10000
	DateLayout            = "2006-01-02"
)

// CreateMemorialRequest represents a request to create a memorial
type CreateMemorialRequest struct {
	Name       string  `json:"name"`
	BirthDate  *string `json:"birth_date,omitempty"`
	DeathDate  *string `json:"death_date,omitempty"`
	Biography  *string `json:"biography,omitempty"`
	PhotoURL   *string `json:"photo_url,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
}

// Validate checks the create request
func (r *CreateMemorialRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Name) == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	} else if len(r.Name) > MaxMemorialNameLength {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 200 characters or less"})
	}
	if r.Biography != nil && len(*r.Biography) > MaxBiographyLength {
		errors = append(errors, FieldError{Field: "biography", Message: "biography must be 10000 characters or less"})
	}
	if r.Visibility != "" && !validVisibility(r.Visibility) {
		errors = append(errors, FieldError{Field: "visibility", Message: "visibility must be public or private"})
	}
	errors = append(errors, validateLifeDates(r.BirthDate, r.DeathDate)...)

	return errors
}

// UpdateMemorialRequest represents a partial memorial update
type UpdateMemorialRequest struct {
	Name       *string `json:"name,omitempty"`
	BirthDate  *string `json:"birth_date,omitempty"`
	DeathDate  *string `json:"death_date,omitempty"`
	Biography  *string `json:"biography,omitempty"`
	PhotoURL   *string `json:"photo_url,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
}

// Validate checks the update against the memorial's current dates
func (r *UpdateMemorialRequest) Validate(current *Memorial) []FieldError {
	var errors []FieldError

	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			errors = append(errors, FieldError{Field: "name", Message: "name is required"})
		} else if len(*r.Name) > MaxMemorialNameLength {
			errors = append(errors, FieldError{Field: "name", Message: "name must be 200 characters or less"})
		}
	}
	if r.Biography != nil && len(*r.Biography) > MaxBiographyLength {
		errors = append(errors, FieldError{Field: "biography", Message: "biography must be 10000 characters or less"})
	}
	if r.Visibility != nil && !validVisibility(*r.Visibility) {
		errors = append(errors, FieldError{Field: "visibility", Message: "visibility must be public or private"})
	}

	birth, death := r.BirthDate, r.DeathDate
	if current != nil {
		if birth == nil {
			birth = current.BirthDate
		}
		if death == nil {
			death = current.DeathDate
		}
	}
	errors = append(errors, validateLifeDates(birth, death)...)

	return errors
}

func validVisibility(v string) bool {
	return v == string(MemorialPublic) || v == string(MemorialPrivate)
}

func validateLifeDates(birth, death *string) []FieldError {
	var errors []FieldError
	var b, d time.Time
	var err error

	if birth != nil && *birth != "" {
		if b, err = time.Parse(DateLayout, *birth); err != nil {
			errors = append(errors, FieldError{Field: "birth_date", Message: "birth_date must be YYYY-MM-DD"})
		}
	}
	if death != nil && *death != "" {
		if d, err = time.Parse(DateLayout, *death); err != nil {
			errors = append(errors, FieldError{Field: "death_date", Message: "death_date must be YYYY-MM-DD"})
		}
	}
	if len(errors) == 0 && !b.IsZero() && !d.IsZero() && d.Before(b) {
		errors = append(errors, FieldError{Field: "death_date", Message: "death_date cannot be before birth_date"})
	}
	return errors
}
