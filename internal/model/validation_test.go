package model

import (
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func hasField(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// ============================================================================
// Verification Ordering Tests
// ============================================================================

func TestVerificationStatus_AtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		have, need VerificationStatus
		want       bool
	}{
		{VerificationUnverified, VerificationUnverified, true},
		{VerificationUnverified, VerificationEmailVerified, false},
		{VerificationEmailVerified, VerificationEmailVerified, true},
		{VerificationIDVerified, VerificationEmailVerified, true},
		{VerificationIDVerified, VerificationMeetupOrganizer, false},
		{VerificationMeetupOrganizer, VerificationIDVerified, true},
		{VerificationStatus("bogus"), VerificationUnverified, false},
	}

	for _, tt := range tests {
		if got := tt.have.AtLeast(tt.need); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.have, tt.need, got, tt.want)
		}
	}
}

func TestVerificationStatus_RaiseNeverLowers(t *testing.T) {
	t.Parallel()

	if got := VerificationMeetupOrganizer.Raise(VerificationIDVerified); got != VerificationMeetupOrganizer {
		t.Errorf("expected organizer to stay organizer, got %s", got)
	}
	if got := VerificationEmailVerified.Raise(VerificationIDVerified); got != VerificationIDVerified {
		t.Errorf("expected raise to id_verified, got %s", got)
	}
}

// ============================================================================
// Profile Tests
// ============================================================================

func TestValidUsername(t *testing.T) {
	t.Parallel()

	valid := []string{"abc", "grief_walker_22", strings.Repeat("a", 30)}
	invalid := []string{"ab", "Upper", "with space", "dash-name", strings.Repeat("a", 31), ""}

	for _, u := range valid {
		if !ValidUsername(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}
	for _, u := range invalid {
		if ValidUsername(u) {
			t.Errorf("expected %q to be invalid", u)
		}
	}
}

func TestUpdateProfileRequest_Validate_BioTooLong(t *testing.T) {
	t.Parallel()

	req := &UpdateProfileRequest{Bio: strPtr(strings.Repeat("x", MaxBioLength+1))}
	if errs := req.Validate(); !hasField(errs, "bio") {
		t.Errorf("expected bio error, got %v", errs)
	}
}

// ============================================================================
// Memorial Tests
// ============================================================================

func TestCreateMemorialRequest_Validate_DeathBeforeBirth(t *testing.T) {
	t.Parallel()

	req := &CreateMemorialRequest{
		Name:      "Rosa Diaz",
		BirthDate: strPtr("1950-05-01"),
		DeathDate: strPtr("1949-01-01"),
	}
	if errs := req.Validate(); !hasField(errs, "death_date") {
		t.Errorf("expected death_date error, got %v", errs)
	}
}

func TestCreateMemorialRequest_Validate_Valid(t *testing.T) {
	t.Parallel()

	req := &CreateMemorialRequest{
		Name:       "Rosa Diaz",
		BirthDate:  strPtr("1950-05-01"),
		DeathDate:  strPtr("2020-01-01"),
		Visibility: "private",
	}
	if errs := req.Validate(); len(errs) > 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestUpdateMemorialRequest_Validate_UsesCurrentDates(t *testing.T) {
	t.Parallel()

	current := &Memorial{BirthDate: strPtr("1950-05-01")}
	req := &UpdateMemorialRequest{DeathDate: strPtr("1940-01-01")}
	if errs := req.Validate(current); !hasField(errs, "death_date") {
		t.Errorf("expected death_date error against stored birth date, got %v", errs)
	}
}

// ============================================================================
// Meetup Tests
// ============================================================================

func TestCreateMeetupRequest_Validate_FormatRequirements(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := CreateMeetupRequest{
		Title:    "Sunday circle",
		StartsAt: "2026-02-01T18:00:00Z",
		EndsAt:   "2026-02-01T20:00:00Z",
	}

	virtual := base
	virtual.Format = "virtual"
	if _, _, errs := virtual.Validate(now); !hasField(errs, "virtual_url") {
		t.Errorf("expected virtual_url error, got %v", errs)
	}

	inPerson := base
	inPerson.Format = "in_person"
	if _, _, errs := inPerson.Validate(now); !hasField(errs, "location") {
		t.Errorf("expected location error, got %v", errs)
	}

	inPerson.Location = strPtr("Library room 2")
	starts, ends, errs := inPerson.Validate(now)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if !ends.After(starts) {
		t.Error("expected parsed window to be ordered")
	}
}

func TestCreateMeetupRequest_Validate_EndsBeforeStart(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := CreateMeetupRequest{
		Title:      "Evening walk",
		Format:     "virtual",
		VirtualURL: strPtr("https://meet.example/abc"),
		StartsAt:   "2026-02-01T20:00:00Z",
		EndsAt:     "2026-02-01T18:00:00Z",
	}
	if _, _, errs := req.Validate(now); !hasField(errs, "ends_at") {
		t.Errorf("expected ends_at error, got %v", errs)
	}
}

func TestUpdateMeetupRequest_Validate_Window(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)
	running := &Meetup{
		Format:   MeetupVirtual,
		StartsAt: time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name    string
		req     UpdateMeetupRequest
		wantErr string
	}{
		{"extend a running meetup", UpdateMeetupRequest{EndsAt: strPtr("2026-02-01T21:00:00Z")}, ""},
		{"title only on a running meetup", UpdateMeetupRequest{Title: strPtr("Evening walk")}, ""},
		{"end moved into the past", UpdateMeetupRequest{EndsAt: strPtr("2026-02-01T18:30:00Z")}, "ends_at"},
		{"end before start", UpdateMeetupRequest{EndsAt: strPtr("2026-02-01T17:00:00Z")}, "ends_at"},
		{"new start in the past", UpdateMeetupRequest{StartsAt: strPtr("2026-02-01T18:30:00Z")}, "starts_at"},
		{"new start in the future", UpdateMeetupRequest{
			StartsAt: strPtr("2026-02-02T18:00:00Z"),
			EndsAt:   strPtr("2026-02-02T20:00:00Z"),
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate(running, now)
			if tt.wantErr == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if !hasField(errs, tt.wantErr) {
				t.Errorf("expected %s error, got %v", tt.wantErr, errs)
			}
		})
	}
}

func TestMeetup_HasCapacity(t *testing.T) {
	t.Parallel()

	unlimited := &Meetup{MaxAttendees: 0}
	if !unlimited.HasCapacity(1000) {
		t.Error("max_attendees 0 should be unlimited")
	}
	capped := &Meetup{MaxAttendees: 2}
	if !capped.HasCapacity(1) || capped.HasCapacity(2) {
		t.Error("capacity check off by one")
	}
}

func TestRSVPRequest_Validate_RejectsWaitlist(t *testing.T) {
	t.Parallel()

	req := &RSVPRequest{MeetupID: "meetups:1", Status: "waitlist"}
	if errs := req.Validate(); !hasField(errs, "status") {
		t.Errorf("waitlist must not be requestable, got %v", errs)
	}
}

// ============================================================================
// Store Tests
// ============================================================================

func TestCreateCheckoutRequest_Validate_Quantity(t *testing.T) {
	t.Parallel()

	req := &CreateCheckoutRequest{Items: []CheckoutItem{{ProductID: "store_products:1", Quantity: 11}}}
	if errs := req.Validate(); !hasField(errs, "items.quantity") {
		t.Errorf("expected quantity error, got %v", errs)
	}

	req.Items[0].Quantity = 0
	if errs := req.Validate(); !hasField(errs, "items.quantity") {
		t.Errorf("expected quantity error for zero, got %v", errs)
	}

	req.Items[0].Quantity = 10
	if errs := req.Validate(); len(errs) > 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

// ============================================================================
// Sponsor Tests
// ============================================================================

func TestSponsorStatus_CanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]SponsorStatus{
		{SponsorPending, SponsorActive},
		{SponsorActive, SponsorPaused},
		{SponsorPaused, SponsorActive},
		{SponsorActive, SponsorExpired},
		{SponsorPaused, SponsorExpired},
		{SponsorPending, SponsorExpired},
	}
	denied := [][2]SponsorStatus{
		{SponsorPending, SponsorPaused},
		{SponsorExpired, SponsorActive},
		{SponsorActive, SponsorPending},
		{SponsorActive, SponsorActive},
	}

	for _, tr := range allowed {
		if !tr[0].CanTransition(tr[1]) {
			t.Errorf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}
	for _, tr := range denied {
		if tr[0].CanTransition(tr[1]) {
			t.Errorf("expected %s -> %s to be denied", tr[0], tr[1])
		}
	}
}

// ============================================================================
// Application Tests
// ============================================================================

func TestOrganizerApplicationRequest_Validate_ShortMotivation(t *testing.T) {
	t.Parallel()

	req := &OrganizerApplicationRequest{Motivation: "I want to help"}
	if errs := req.Validate(); !hasField(errs, "motivation") {
		t.Errorf("expected motivation error, got %v", errs)
	}
}

func TestBackgroundCheckRequest_Validate_Underage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := &BackgroundCheckRequest{LegalName: "Sam Lee", DateOfBirth: "2010-06-01", DocumentKey: "bgcheck/x.pdf"}
	if errs := req.Validate(now); !hasField(errs, "date_of_birth") {
		t.Errorf("expected date_of_birth error, got %v", errs)
	}
}

// ============================================================================
// Search Tests
// ============================================================================

func TestNormalizeSearch(t *testing.T) {
	t.Parallel()

	q, errs := NormalizeSearch("  Grief   Walk ", "")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if q.Q != "grief walk" || q.Type != SearchAll {
		t.Errorf("unexpected normalization %+v", q)
	}

	if _, errs := NormalizeSearch("a", "all"); !hasField(errs, "q") {
		t.Errorf("expected q error, got %v", errs)
	}
	if _, errs := NormalizeSearch("hello", "people"); !hasField(errs, "type") {
		t.Errorf("expected type error, got %v", errs)
	}
}

func TestPairKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	if PairKey("user:a", "user:b") != PairKey("user:b", "user:a") {
		t.Error("pair key should not depend on argument order")
	}
}
