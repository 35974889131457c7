package model

import (
	"net/url"
	"strings"
	"time"
)

// SponsorTierName is a pricing and placement category for sponsors
type SponsorTierName string

const (
	TierCommunity SponsorTierName = "community"
	TierSupporter SponsorTierName = "supporter"
	TierPartner   SponsorTierName = "partner"
	TierFounding  SponsorTierName = "founding"
)

// IsValid reports whether the tier name is known
func (n SponsorTierName) IsValid() bool {
	switch n {
	case TierCommunity, TierSupporter, TierPartner, TierFounding:
		return true
	}
	return false
}

// SponsorTier describes a tier from the catalog
type SponsorTier struct {
	Name         SponsorTierName `json:"name" yaml:"name"`
	DisplayName  string          `json:"display_name" yaml:"display_name"`
	MonthlyCents int64           `json:"monthly_cents" yaml:"monthly_cents"`
	Placements   []string        `json:"placements" yaml:"placements"`
	Weight       int             `json:"weight" yaml:"weight"`
}

// HasPlacement reports whether the tier is shown in slot
func (t *SponsorTier) HasPlacement(slot string) bool {
	for _, p := range t.Placements {
		if p == slot {
			return true
		}
	}
	return false
}

// SponsorStatus is the lifecycle state of a sponsorship
type SponsorStatus string

const (
	SponsorPending SponsorStatus = "pending"
	SponsorActive  SponsorStatus = "active"
	SponsorPaused  SponsorStatus = "paused"
	SponsorExpired SponsorStatus = "expired"
)

var sponsorTransitions = map[SponsorStatus][]SponsorStatus{
	SponsorPending: {SponsorActive, SponsorExpired},
	SponsorActive:  {SponsorPaused, SponsorExpired},
	SponsorPaused:  {SponsorActive, SponsorExpired},
}

// CanTransition reports whether a sponsor may move from s to next
func (s SponsorStatus) CanTransition(next SponsorStatus) bool {
	for _, allowed := range sponsorTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether the status is known
func (s SponsorStatus) IsValid() bool {
	switch s {
	case SponsorPending, SponsorActive, SponsorPaused, SponsorExpired:
		return true
	}
	return false
}

// Sponsor is an advertising partner
type Sponsor struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	CompanyName       string          `json:"company_name"`
	WebsiteURL        string          `json:"website_url"`
	LogoURL           *string         `json:"logo_url,omitempty"`
	Tier              SponsorTierName `json:"tier"`
	Status            SponsorStatus   `json:"status"`
	StartsAt          *time.Time      `json:"starts_at,omitempty"`
	EndsAt            *time.Time      `json:"ends_at,omitempty"`
	Impressions       int64           `json:"impressions"`
	Clicks            int64           `json:"clicks"`
	CustomerID        *string         `json:"-"`
	CheckoutSessionID *string         `json:"-"`
	PaidOn            *time.Time      `json:"paid_on,omitempty"`
	CreatedOn         time.Time       `json:"created_on"`
	UpdatedOn         time.Time       `json:"updated_on"`
}

// Placement is the public view of a sponsor shown in a slot
type Placement struct {
	SponsorID   string          `json:"sponsor_id"`
	CompanyName string          `json:"company_name"`
	WebsiteURL  string          `json:"website_url"`
	LogoURL     *string         `json:"logo_url,omitempty"`
	Tier        SponsorTierName `json:"tier"`
}

// SponsorActivationPeriod is how long an activation lasts when no end date is set
const SponsorActivationPeriod = 30 * 24 * time.Hour

// CreateSponsorRequest represents a sponsorship application
type CreateSponsorRequest struct {
	CompanyName string  `json:"company_name"`
	WebsiteURL  string  `json:"website_url"`
	LogoURL     *string `json:"logo_url,omitempty"`
	Tier        string  `json:"tier"`
}

// Validate checks the sponsor application shape; the tier is checked against the catalog
func (r *CreateSponsorRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.CompanyName) == "" || len(r.CompanyName) > 200 {
		errors = append(errors, FieldError{Field: "company_name", Message: "company_name must be 1-200 characters"})
	}
	if u, err := url.Parse(r.WebsiteURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errors = append(errors, FieldError{Field: "website_url", Message: "website_url must be an http(s) URL"})
	}
	if r.Tier == "" {
		errors = append(errors, FieldError{Field: "tier", Message: "tier is required"})
	}

	return errors
}

// SetSponsorStatusRequest is an admin status change
type SetSponsorStatusRequest struct {
	Status string `json:"status"`
}

// SponsorApplicationResponse is returned after applying to sponsor
type SponsorApplicationResponse struct {
	Sponsor     *Sponsor `json:"sponsor"`
	CheckoutURL string   `json:"checkout_url"`
}
