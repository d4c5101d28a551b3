package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nimbus/internal/types"
)

// SessionRepo is the Postgres implementation of types.SessionRepository.
type SessionRepo struct {
	db DBTX
}

var _ types.SessionRepository = (*SessionRepo)(nil)

// Create inserts a new session.
func (r *SessionRepo) Create(ctx context.Context, session *types.Session) error {
	const q = `
		INSERT INTO sessions (id, user_id, csrf_token, ip_address, user_agent, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, q,
		session.ID, session.UserID, session.CSRFToken,
		session.IPAddress, session.UserAgent,
		session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetByID returns the session with the given ID, or nil if none exists.
// Expiry is enforced by the caller, not here.
func (r *SessionRepo) GetByID(ctx context.Context, sessionID string) (*types.Session, error) {
	const q = `
		SELECT id, user_id, csrf_token, ip_address, user_agent, expires_at, created_at
		FROM sessions WHERE id = $1`

	var s types.Session
	err := r.db.QueryRow(ctx, q, sessionID).Scan(
		&s.ID, &s.UserID, &s.CSRFToken, &s.IPAddress, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &s, nil
}

// DeleteByID removes a session. Deleting a nonexistent session is not an
// error.
func (r *SessionRepo) DeleteByID(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM sessions WHERE id = $1`

	if _, err := r.db.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteByUser removes all of a user's sessions.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM sessions WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredByUser removes the user's sessions whose expiry has passed.
func (r *SessionRepo) DeleteExpiredByUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM sessions WHERE user_id = $1 AND expires_at <= now()`

	if _, err := r.db.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	return nil
}
