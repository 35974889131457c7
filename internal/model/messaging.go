package model

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a direct message thread between exactly two users
type Conversation struct {
	ID                 string     `json:"id"`
	ParticipantIDs     []string   `json:"participant_ids"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	LastMessagePreview *string    `json:"last_message_preview,omitempty"`
	UnreadCount        int        `json:"unread_count"`
	CreatedOn          time.Time  `json:"created_on"`
}

// HasParticipant reports whether userID is part of the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.ParticipantIDs {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.ParticipantIDs {
		if p != userID {
			return p
		}
	}
	return ""
}

// PairKey is an order-independent key identifying a conversation between two users
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// Message is a single direct message
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedOn      time.Time  `json:"created_on"`
}

// Constraints
const (
	MaxMessageLength  = 5000
	MessagePreviewLen = 120
)

// Preview truncates a message body for conversation listings
func Preview(body string) string {
	r := []rune(body)
	if len(r) <= MessagePreviewLen {
		return body
	}
	return string(r[:MessagePreviewLen]) + "…"
}

// StartConversationRequest opens or reuses a conversation
type StartConversationRequest struct {
	RecipientID string `json:"recipient_id"`
}

// SendMessageRequest sends a message
type SendMessageRequest struct {
	Body string `json:"body"`
}

// Validate checks the message body
func (r *SendMessageRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Body) == "" {
		errors = append(errors, FieldError{Field: "body", Message: "body is required"})
	} else if len(r.Body) > MaxMessageLength {
		errors = append(errors, FieldError{Field: "body", Message: "body must be 5000 characters or less"})
	}

	return errors
}
