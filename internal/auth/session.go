// Package auth implements account registration, credential verification,
// and session lifecycle management for the Nimbus API. Sessions are opaque
// random identifiers stored server-side; clients hold them only in an
// HttpOnly cookie, with a per-session CSRF token for mutating requests.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"nimbus/internal/types"
)

const (
	// sessionIDPrefix marks session tokens so they are recognizable in
	// support tooling without being guessable.
	sessionIDPrefix = "sess_"

	tokenByteLength = 32
)

// TokenGenerator produces session identifiers and CSRF tokens. Abstracted
// for deterministic tests.
type TokenGenerator interface {
	SessionID() (string, error)
	CSRFToken() (string, error)
}

// CryptoTokenGenerator is the production TokenGenerator backed by
// crypto/rand.
type CryptoTokenGenerator struct{}

// SessionID returns a new random session identifier.
func (CryptoTokenGenerator) SessionID() (string, error) {
	tok, err := randomHex(tokenByteLength)
	if err != nil {
		return "", fmt.Errorf("generating session ID: %w", err)
	}
	return sessionIDPrefix + tok, nil
}

// CSRFToken returns a new random CSRF token.
func (CryptoTokenGenerator) CSRFToken() (string, error) {
	tok, err := randomHex(tokenByteLength)
	if err != nil {
		return "", fmt.Errorf("generating CSRF token: %w", err)
	}
	return tok, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SessionConfig holds session issuance parameters.
type SessionConfig struct {
	Duration time.Duration
}

// SessionService issues and validates sessions.
type SessionService struct {
	sessions types.SessionRepository
	tokens   TokenGenerator
	clock    types.Clock
	cfg      SessionConfig
}

// NewSessionService creates a SessionService. A nil tokens or clock falls
// back to the production implementations.
func NewSessionService(sessions types.SessionRepository, tokens TokenGenerator, clock types.Clock, cfg SessionConfig) *SessionService {
	if tokens == nil {
		tokens = CryptoTokenGenerator{}
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &SessionService{sessions: sessions, tokens: tokens, clock: clock, cfg: cfg}
}

// Issue creates and persists a new session for the given user.
func (s *SessionService) Issue(ctx context.Context, userID, ipAddress, userAgent string) (*types.Session, error) {
	sessionID, err := s.tokens.SessionID()
	if err != nil {
		return nil, err
	}
	csrfToken, err := s.tokens.CSRFToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &types.Session{
		ID:        sessionID,
		UserID:    userID,
		CSRFToken: csrfToken,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.cfg.Duration),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create session", err)
	}

	return session, nil
}

// Resolve looks up a session by ID and verifies it has not expired. Expired
// sessions are deleted on sight.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (*types.Session, error) {
	if !strings.HasPrefix(sessionID, sessionIDPrefix) {
		return nil, types.NewAppError(types.ErrCodeAuthSessionInvalid, "invalid session", nil)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, types.NewAppError(types.ErrCodeAuthSessionInvalid, "invalid session", nil)
	}

	if !s.clock.Now().Before(session.ExpiresAt) {
		// Best effort; a failed delete does not block the expiry verdict.
		_ = s.sessions.DeleteByID(ctx, sessionID)
		return nil, types.NewAppError(types.ErrCodeAuthSessionExpired, "session expired", nil)
	}

	return session, nil
}

// Revoke deletes a session, logging the user out.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete session", err)
	}
	return nil
}

// ValidateCSRF compares a presented CSRF token against the session's token
// in constant time.
func ValidateCSRF(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// CanonicalizeUsername normalizes a username for storage and lookup.
func CanonicalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
