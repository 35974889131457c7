package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// MessagingRepository handles two-party conversations and their messages
type MessagingRepository struct {
	db database.Database
}

// NewMessagingRepository creates a new messaging repository
func NewMessagingRepository(db database.Database) *MessagingRepository {
	return &MessagingRepository{db: db}
}

var (
	parseConversation = parseInto[model.Conversation]()
	parseMessage      = parseInto[model.Message]()
)

// GetConversationByPair returns the conversation between two users, if any
func (r *MessagingRepository) GetConversationByPair(ctx context.Context, a, b string) (*model.Conversation, error) {
	return selectOne(ctx, r.db, `SELECT * FROM conversations WHERE pair_key = $pair_key LIMIT 1`,
		map[string]interface{}{"pair_key": model.PairKey(a, b)}, parseConversation)
}

// CreateConversation stores a conversation between two users. A concurrent
// create for the same pair returns database.ErrDuplicate.
func (r *MessagingRepository) CreateConversation(ctx context.Context, a, b string) (*model.Conversation, error) {
	query := `
		CREATE conversations CONTENT {
			participant_ids: $participants,
			pair_key: $pair_key,
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"participants": []string{a, b},
		"pair_key":     model.PairKey(a, b),
	}
	c, err := createOne(ctx, r.db, query, vars, parseConversation)
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: conversation exists", database.ErrDuplicate)
		}
		return nil, err
	}
	return c, nil
}

// GetConversation retrieves a conversation
func (r *MessagingRepository) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'conversations'`,
		map[string]interface{}{"id": id}, parseConversation)
}

// ListConversations returns the user's conversations, most recent first, with
// per-conversation unread counts for that user
func (r *MessagingRepository) ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error) {
	query := `
		SELECT * FROM conversations
		WHERE participant_ids CONTAINS $user_id
		ORDER BY last_message_at DESC, created_on DESC
	`
	convs, err := selectMany(ctx, r.db, query, map[string]interface{}{"user_id": userID}, parseConversation)
	if err != nil || len(convs) == 0 {
		return convs, err
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	query = `
		SELECT conversation_id, count() AS count FROM messages
		WHERE conversation_id IN $ids AND sender_id != $user_id AND !read_at
		GROUP BY conversation_id
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"ids": ids, "user_id": userID})
	if err != nil {
		return nil, err
	}
	unread := make(map[string]int)
	for _, row := range statementRows(results, 0) {
		if id, ok := row["conversation_id"].(string); ok {
			unread[id] = extractCountValue(row["count"])
		}
	}
	for _, c := range convs {
		c.UnreadCount = unread[c.ID]
	}
	return convs, nil
}

// CreateMessage stores a message and updates the conversation summary
func (r *MessagingRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	batch := database.NewBatch().
		Add(`
			CREATE messages CONTENT {
				conversation_id: $conversation_id,
				sender_id: $sender_id,
				body: $body,
				created_on: time::now()
			}
		`, map[string]interface{}{
			"conversation_id": m.ConversationID,
			"sender_id":       m.SenderID,
			"body":            m.Body,
		}).
		Add(`UPDATE type::record($id) SET last_message_at = time::now(), last_message_preview = $preview`,
			map[string]interface{}{"id": m.ConversationID, "preview": model.Preview(m.Body)})

	results, err := batch.Run(ctx, r.db)
	if err != nil {
		return err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return fmt.Errorf("%w: message not created", database.ErrQuery)
	}
	created, err := parseMessage(rows[0])
	if err != nil {
		return err
	}
	*m = *created
	return nil
}

// ListMessages returns a page of messages, newest first. When before is set
// only older messages are returned.
func (r *MessagingRepository) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*model.Message, error) {
	limit, _ = page(limit, 0, 50, 200)
	vars := map[string]interface{}{"conversation_id": conversationID, "limit": limit}

	cond := "conversation_id = $conversation_id"
	if before != nil {
		cond += " AND created_on < <datetime>$before"
		vars["before"] = timeVar(*before)
	}
	query := `SELECT * FROM messages WHERE ` + cond + ` ORDER BY created_on DESC LIMIT $limit`
	return selectMany(ctx, r.db, query, vars, parseMessage)
}

// MarkRead marks every unread message not sent by readerID as read
func (r *MessagingRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error) {
	query := `
		UPDATE messages SET read_at = <datetime>$at
		WHERE conversation_id = $conversation_id AND sender_id != $reader_id AND !read_at
		RETURN AFTER
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{
		"conversation_id": conversationID,
		"reader_id":       readerID,
		"at":              timeVar(at),
	})
	if err != nil {
		return 0, err
	}
	return len(statementRows(results, 0)), nil
}
