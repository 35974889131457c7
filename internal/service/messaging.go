package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// MessagingRepository defines the interface for conversation storage
type MessagingRepository interface {
	GetConversationByPair(ctx context.Context, a, b string) (*model.Conversation, error)
	CreateConversation(ctx context.Context, a, b string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error)
	CreateMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*model.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error)
}

// UserLookup resolves user accounts
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// MessagingService manages direct messages between two users
type MessagingService struct {
	messagingRepo MessagingRepository
	users         UserLookup
	profiles      VerificationStore
	events        Publisher
	now           func() time.Time
}

// MessagingServiceConfig holds configuration for the messaging service
type MessagingServiceConfig struct {
	MessagingRepo MessagingRepository
	Users         UserLookup
	Profiles      VerificationStore
	Events        Publisher
}

// NewMessagingService creates a new messaging service
func NewMessagingService(cfg MessagingServiceConfig) *MessagingService {
	return &MessagingService{
		messagingRepo: cfg.MessagingRepo,
		users:         cfg.Users,
		profiles:      cfg.Profiles,
		events:        cfg.Events,
		now:           time.Now,
	}
}

// Start returns the conversation between the caller and the recipient,
// creating it on first contact. Requires email_verified.
func (s *MessagingService) Start(ctx context.Context, userID, recipientID string) (*model.Conversation, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, invalid([]model.FieldError{{Field: "recipient_id", Message: "recipient_id is required"}})
	}
	rid, ok := recordID("user", recipientID)
	if !ok {
		return nil, ErrRecipientNotFound
	}
	if rid == userID {
		return nil, ErrSelfConversation
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	recipient, err := s.users.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	existing, err := s.messagingRepo.GetConversationByPair(ctx, userID, rid)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c, err := s.messagingRepo.CreateConversation(ctx, userID, rid)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return s.messagingRepo.GetConversationByPair(ctx, userID, rid)
		}
		return nil, err
	}
	return c, nil
}

// List returns the caller's conversations with unread counts
func (s *MessagingService) List(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return s.messagingRepo.ListConversations(ctx, userID)
}

// Messages returns a page of messages, newest first. Participants only.
func (s *MessagingService) Messages(ctx context.Context, userID, conversationID string, before *time.Time, limit int) ([]*model.Message, error) {
	c, err := s.loadForParticipant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.messagingRepo.ListMessages(ctx, c.ID, before, limit)
}

// Send posts a message and pushes it to the other participant's event stream
func (s *MessagingService) Send(ctx context.Context, userID, conversationID string, req model.SendMessageRequest) (*model.Message, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	c, err := s.loadForParticipant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	m := &model.Message{ConversationID: c.ID, SenderID: userID, Body: req.Body}
	if err := s.messagingRepo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	if other := c.OtherParticipant(userID); other != "" {
		s.events.SendToUser(other, Event{Type: EventMessageCreated, Data: m})
	}
	return m, nil
}

// MarkRead marks the other participant's messages read and returns how many changed
func (s *MessagingService) MarkRead(ctx context.Context, userID, conversationID string) (int, error) {
	c, err := s.loadForParticipant(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	return s.messagingRepo.MarkRead(ctx, c.ID, userID, s.now())
}

func (s *MessagingService) loadForParticipant(ctx context.Context, userID, id string) (*model.Conversation, error) {
	rid, ok := recordID("conversations", id)
	if !ok {
		return nil, ErrConversationNotFound
	}
	c, err := s.messagingRepo.GetConversation(ctx, rid)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrConversationNotFound
	}
	if !c.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return c, nil
}
