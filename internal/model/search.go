package model

import (
	"strings"
	"time"
)

// SearchType selects which collections a search covers
type SearchType string

const (
	SearchAll       SearchType = "all"
	SearchMemorials SearchType = "memorials"
	SearchMeetups   SearchType = "meetups"
	SearchTopics    SearchType = "topics"
	SearchProfiles  SearchType = "profiles"
)

// Includes reports whether a search of type t covers other
func (t SearchType) Includes(other SearchType) bool {
	return t == SearchAll || t == other
}

// Constraints
const (
	MinSearchQueryLength = 2
	MaxSearchQueryLength = 100
	MaxSearchResults     = 20
)

// SearchQuery is a validated search request
type SearchQuery struct {
	Q    string
	Type SearchType
}

// NormalizeSearch trims and lowercases the query and validates both parameters
func NormalizeSearch(q, typ string) (SearchQuery, []FieldError) {
	var errors []FieldError

	q = strings.ToLower(strings.Join(strings.Fields(q), " "))
	if n := len([]rune(q)); n < MinSearchQueryLength || n > MaxSearchQueryLength {
		errors = append(errors, FieldError{Field: "q", Message: "q must be between 2 and 100 characters"})
	}

	st := SearchType(typ)
	if typ == "" {
		st = SearchAll
	}
	switch st {
	case SearchAll, SearchMemorials, SearchMeetups, SearchTopics, SearchProfiles:
	default:
		errors = append(errors, FieldError{Field: "type", Message: "type must be memorials, meetups, topics, profiles or all"})
	}

	return SearchQuery{Q: q, Type: st}, errors
}

// SearchHit is a single compact result
type SearchHit struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Subtitle *string    `json:"subtitle,omitempty"`
	URL      string     `json:"url"`
	Date     *time.Time `json:"date,omitempty"`
}

// SearchResults groups hits by collection
type SearchResults struct {
	Query     string      `json:"query"`
	Memorials []SearchHit `json:"memorials"`
	Meetups   []SearchHit `json:"meetups"`
	Topics    []SearchHit `json:"topics"`
	Profiles  []SearchHit `json:"profiles"`
	Cached    bool        `json:"cached"`
}
