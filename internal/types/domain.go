package types

import "time"

// MessageRole identifies who authored a message within a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Valid reports whether the role is one of the known values.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email,omitempty" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Session represents an authenticated browser session. The session ID is
// delivered to clients only via an HttpOnly cookie; the CSRF token travels
// in the response body and must be echoed in the X-CSRF-Token header on
// mutating requests.
type Session struct {
	ID        string    `json:"-" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CSRFToken string    `json:"-" db:"csrf_token"`
	IPAddress string    `json:"-" db:"ip_address"`
	UserAgent string    `json:"-" db:"user_agent"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Conversation groups a sequence of user and assistant messages.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Hydrated by the repository; ordered by created_at ascending.
	Messages []Message `json:"messages"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string      `json:"id" db:"id"`
	ConversationID string      `json:"-" db:"conversation_id"`
	Role           MessageRole `json:"role" db:"role"`
	Content        string      `json:"content" db:"content"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// SecurityEvent records an authentication attempt for brute force tracking.
type SecurityEvent struct {
	EventType     string    `db:"event_type"`
	Identifier    string    `db:"identifier"`
	IPAddress     string    `db:"ip_address"`
	AttemptedAt   time.Time `db:"attempted_at"`
	Success       bool      `db:"success"`
	FailureReason string    `db:"failure_reason"`
}
