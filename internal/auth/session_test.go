package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nimbus/internal/types"
)

func TestCryptoTokenGenerator(t *testing.T) {
	gen := CryptoTokenGenerator{}

	sessionID, err := gen.SessionID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sessionID, "sess_"))
	assert.Len(t, sessionID, len("sess_")+64)

	csrf, err := gen.CSRFToken()
	require.NoError(t, err)
	assert.Len(t, csrf, 64)

	// Tokens must not repeat.
	second, err := gen.SessionID()
	require.NoError(t, err)
	assert.NotEqual(t, sessionID, second)
}

func TestSessionIssue(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	clock := fixedClock{now: testNow}
	svc := NewSessionService(repo, fixedTokens{}, clock, SessionConfig{Duration: 2 * time.Hour})

	session, err := svc.Issue(context.Background(), "u1", "1.2.3.4", "agent")
	require.NoError(t, err)

	assert.Equal(t, "sess_fixed", session.ID)
	assert.Equal(t, "csrf_fixed", session.CSRFToken)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, testNow.Add(2*time.Hour), session.ExpiresAt)
}

func TestSessionResolve(t *testing.T) {
	clock := fixedClock{now: testNow}

	t.Run("valid session", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("GetByID", mock.Anything, "sess_live").Return(&types.Session{
			ID:        "sess_live",
			UserID:    "u1",
			ExpiresAt: testNow.Add(time.Hour),
		}, nil)

		svc := NewSessionService(repo, nil, clock, SessionConfig{Duration: time.Hour})

		session, err := svc.Resolve(context.Background(), "sess_live")
		require.NoError(t, err)
		assert.Equal(t, "u1", session.UserID)
	})

	t.Run("unknown session", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("GetByID", mock.Anything, "sess_missing").Return(nil, nil)

		svc := NewSessionService(repo, nil, clock, SessionConfig{Duration: time.Hour})

		_, err := svc.Resolve(context.Background(), "sess_missing")
		assert.Equal(t, types.ErrCodeAuthSessionInvalid, appErrCode(t, err))
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		repo := new(mockSessionRepo)
		repo.On("GetByID", mock.Anything, "sess_old").Return(&types.Session{
			ID:        "sess_old",
			UserID:    "u1",
			ExpiresAt: testNow.Add(-time.Minute),
		}, nil)
		repo.On("DeleteByID", mock.Anything, "sess_old").Return(nil)

		svc := NewSessionService(repo, nil, clock, SessionConfig{Duration: time.Hour})

		_, err := svc.Resolve(context.Background(), "sess_old")
		assert.Equal(t, types.ErrCodeAuthSessionExpired, appErrCode(t, err))
		repo.AssertCalled(t, "DeleteByID", mock.Anything, "sess_old")
	})

	t.Run("malformed session id short-circuits", func(t *testing.T) {
		repo := new(mockSessionRepo)

		svc := NewSessionService(repo, nil, clock, SessionConfig{Duration: time.Hour})

		_, err := svc.Resolve(context.Background(), "not-a-session")
		assert.Equal(t, types.ErrCodeAuthSessionInvalid, appErrCode(t, err))
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestValidateCSRF(t *testing.T) {
	assert.True(t, ValidateCSRF("token", "token"))
	assert.False(t, ValidateCSRF("token", "other"))
	assert.False(t, ValidateCSRF("", ""))
	assert.False(t, ValidateCSRF("token", ""))
}

func TestCanonicalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", CanonicalizeUsername("  Alice  "))
	assert.Equal(t, "bob", CanonicalizeUsername("BOB"))
}

func TestResolveSessionLoadsActor(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)

	sessions.On("GetByID", mock.Anything, "sess_live").Return(&types.Session{
		ID:        "sess_live",
		UserID:    "u1",
		CSRFToken: "csrf_live",
		ExpiresAt: testNow.Add(time.Hour),
	}, nil)
	users.On("GetByID", mock.Anything, "u1").Return(&types.User{ID: "u1", Username: "alice"}, nil)

	svc := NewSessionService(sessions, nil, fixedClock{now: testNow}, SessionConfig{Duration: time.Hour})
	authenticator := NewAuthenticator(svc, users)

	actor, csrf, err := authenticator.ResolveSession(context.Background(), "sess_live")
	require.NoError(t, err)

	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, "alice", actor.Username)
	assert.Equal(t, "sess_live", actor.SessionID)
	assert.Equal(t, "csrf_live", csrf)
}

func TestResolveSessionDeletedUser(t *testing.T) {
	sessions := new(mockSessionRepo)
	users := new(mockUserRepo)

	sessions.On("GetByID", mock.Anything, "sess_live").Return(&types.Session{
		ID:        "sess_live",
		UserID:    "u1",
		ExpiresAt: testNow.Add(time.Hour),
	}, nil)
	sessions.On("DeleteByID", mock.Anything, "sess_live").Return(nil)
	users.On("GetByID", mock.Anything, "u1").Return(nil, nil)

	svc := NewSessionService(sessions, nil, fixedClock{now: testNow}, SessionConfig{Duration: time.Hour})
	authenticator := NewAuthenticator(svc, users)

	_, _, err := authenticator.ResolveSession(context.Background(), "sess_live")
	assert.Equal(t, types.ErrCodeAuthSessionInvalid, appErrCode(t, err))
	sessions.AssertCalled(t, "DeleteByID", mock.Anything, "sess_live")
}
