package auth

import (
	"context"

	"nimbus/internal/types"
)

// Authenticator adapts the session and user repositories to the session
// resolution interface consumed by the HTTP middleware.
type Authenticator struct {
	sessions *SessionService
	users    types.UserRepository
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(sessions *SessionService, users types.UserRepository) *Authenticator {
	return &Authenticator{sessions: sessions, users: users}
}

// ResolveSession validates the session ID and returns the acting user along
// with the session's CSRF token.
func (a *Authenticator) ResolveSession(ctx context.Context, sessionID string) (*types.Actor, string, error) {
	session, err := a.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, "", types.NewAppError(types.ErrCodeInternalDB, "failed to load user", err)
	}
	if user == nil {
		// The account was removed while the session was still live.
		_ = a.sessions.Revoke(ctx, sessionID)
		return nil, "", types.NewAppError(types.ErrCodeAuthSessionInvalid, "invalid session", nil)
	}

	actor := &types.Actor{
		ID:        user.ID,
		Username:  user.Username,
		SessionID: session.ID,
	}
	return actor, session.CSRFToken, nil
}
