package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nimbus/internal/types"
)

// ConversationRepo is the Postgres implementation of
// types.ConversationRepository. All reads are scoped by owner; a foreign
// conversation ID behaves exactly like a missing one.
type ConversationRepo struct {
	db DBTX
}

var _ types.ConversationRepository = (*ConversationRepo)(nil)

// Create inserts a new conversation.
func (r *ConversationRepo) Create(ctx context.Context, conv *types.Conversation) error {
	const q = `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, q,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetByID returns the conversation with its messages hydrated in
// chronological order, or nil if it does not exist or belongs to another
// user.
func (r *ConversationRepo) GetByID(ctx context.Context, id, userID string) (*types.Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = $1 AND user_id = $2`

	var c types.Conversation
	err := r.db.QueryRow(ctx, q, id, userID).Scan(
		&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	messages, err := r.messagesFor(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Messages = messages

	return &c, nil
}

// ListByUser returns the user's conversations ordered by most recent
// activity first, each with its messages hydrated in chronological order.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]*types.Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*types.Conversation, 0)
	for rows.Next() {
		var c types.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		c.Messages = []types.Message{}
		conversations = append(conversations, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	if err := r.hydrateMessages(ctx, conversations); err != nil {
		return nil, err
	}

	return conversations, nil
}

// hydrateMessages loads the messages for all listed conversations in a
// single query and distributes them to their parents.
func (r *ConversationRepo) hydrateMessages(ctx context.Context, conversations []*types.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}

	ids := make([]string, len(conversations))
	byID := make(map[string]*types.Conversation, len(conversations))
	for i, c := range conversations {
		ids[i] = c.ID
		byID[c.ID] = c
	}

	const q = `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ANY($1)
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return fmt.Errorf("scanning message row: %w", err)
		}
		if c, ok := byID[m.ConversationID]; ok {
			c.Messages = append(c.Messages, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating messages: %w", err)
	}

	return nil
}

// AddMessage inserts a message and advances the parent conversation's
// updated_at so recency ordering stays correct.
func (r *ConversationRepo) AddMessage(ctx context.Context, msg *types.Message) error {
	const insertMsg = `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, insertMsg,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	const touch = `UPDATE conversations SET updated_at = $2 WHERE id = $1`

	if _, err := r.db.Exec(ctx, touch, msg.ConversationID, msg.CreatedAt); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) messagesFor(ctx context.Context, conversationID string) ([]types.Message, error) {
	const q = `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := make([]types.Message, 0)
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}
