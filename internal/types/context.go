package types

import "context"

// Actor represents the authenticated entity performing an operation.
type Actor struct {
	ID        string // user ID
	Username  string
	SessionID string
}

// Context keys.
type contextKey string

const (
	actorKey       contextKey = "actor"
	requestIDKey   contextKey = "request_id"
	sessionCSRFKey contextKey = "session_csrf_token"
)

// WithActor stores the Actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the Actor from the context.
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSessionCSRFToken stores the session's CSRF token in the context.
// Set by the auth middleware so the CSRF middleware can validate the
// X-CSRF-Token header against it.
func WithSessionCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionCSRFKey, token)
}

// GetSessionCSRFToken retrieves the session's CSRF token from the context.
func GetSessionCSRFToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionCSRFKey).(string)
	return token, ok && token != ""
}
