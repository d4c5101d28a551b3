package types

import (
	"context"
	"time"
)

// UserRepository defines the data access interface for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// SessionRepository defines the data access interface for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	DeleteByID(ctx context.Context, sessionID string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpiredByUser(ctx context.Context, userID string) error
}

// ConversationRepository defines the data access interface for conversations
// and their messages. All reads are scoped by the owning user ID; a foreign
// conversation reads as not-found.
type ConversationRepository interface {
	Create(ctx context.Context, conv *Conversation) error
	GetByID(ctx context.Context, id, userID string) (*Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*Conversation, error)

	// AddMessage inserts a message and advances the parent conversation's
	// updated_at so list ordering tracks recency.
	AddMessage(ctx context.Context, msg *Message) error
}

// SecurityRepository persists and queries authentication attempt events.
type SecurityRepository interface {
	LogAttempt(ctx context.Context, event *SecurityEvent) error
	CountRecentFailuresByIdentifier(ctx context.Context, identifier string, since time.Time) (int, error)
	CountRecentFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error)
}

// RepositoryRegistry provides access to all repository instances.
type RepositoryRegistry interface {
	Users() UserRepository
	Sessions() SessionRepository
	Conversations() ConversationRepository
	Security() SecurityRepository
}

// TransactionManager provides transactional execution across repositories.
// The callback receives a registry whose repositories all write through the
// same database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryRegistry) error) error
}
