package model

import (
	"regexp"
	"strings"
	"time"
)

// ForumCategory groups topics
type ForumCategory struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
	TopicCount  int       `json:"topic_count"`
	CreatedOn   time.Time `json:"created_on"`
}

// ForumTopic is a discussion thread within a category
type ForumTopic struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	AuthorID   string    `json:"author_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IsPinned   bool      `json:"is_pinned"`
	IsLocked   bool      `json:"is_locked"`
	ReplyCount int       `json:"reply_count"`
	LastPostAt time.Time `json:"last_post_at"`
	CreatedOn  time.Time `json:"created_on"`
	UpdatedOn  time.Time `json:"updated_on"`
}

// ForumPost is a reply within a topic
type ForumPost struct {
	ID        string     `json:"id"`
	TopicID   string     `json:"topic_id"`
	AuthorID  string     `json:"author_id"`
	Body      string     `json:"body"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	IsDeleted bool       `json:"is_deleted"`
	CreatedOn time.Time  `json:"created_on"`
}

// TopicWithPosts is a topic with its replies in posting order
type TopicWithPosts struct {
	Topic *ForumTopic  `json:"topic"`
	Posts []*ForumPost `json:"posts"`
}

// Constraints
const (
	MaxTopicTitleLength   = 200
	MaxForumBodyLength    = 10000
	MaxCategoryNameLength = 100
	DeletedPostBody       = "[deleted]"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateCategoryRequest represents a request to create a forum category
type CreateCategoryRequest struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sort_order"`
}

// Validate checks the category request
func (r *CreateCategoryRequest) Validate() []FieldError {
	var errors []FieldError

	if !slugPattern.MatchString(r.Slug) || len(r.Slug) > 60 {
		errors = append(errors, FieldError{Field: "slug", Message: "slug must be lowercase words separated by hyphens"})
	}
	if strings.TrimSpace(r.Name) == "" || len(r.Name) > MaxCategoryNameLength {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 1-100 characters"})
	}

	return errors
}

// CreateTopicRequest represents a request to start a topic
type CreateTopicRequest struct {
	CategoryID string `json:"category_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// Validate checks the topic request
func (r *CreateTopicRequest) Validate() []FieldError {
	var errors []FieldError

	if r.CategoryID == "" {
		errors = append(errors, FieldError{Field: "category_id", Message: "category_id is required"})
	}
	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxTopicTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 200 characters or less"})
	}
	errors = append(errors, validateBody(r.Body)...)

	return errors
}

// PostBodyRequest carries the body of a new or edited post
type PostBodyRequest struct {
	Body string `json:"body"`
}

// Validate checks the post body
func (r *PostBodyRequest) Validate() []FieldError {
	return validateBody(r.Body)
}

func validateBody(body string) []FieldError {
	if strings.TrimSpace(body) == "" {
		return []FieldError{{Field: "body", Message: "body is required"}}
	}
	if len(body) > MaxForumBodyLength {
		return []FieldError{{Field: "body", Message: "body must be 10000 characters or less"}}
	}
	return nil
}

// TopicFlagRequest sets a topic flag. Omitting value toggles it.
type TopicFlagRequest struct {
	Value *bool `json:"value,omitempty"`
}
