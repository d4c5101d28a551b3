package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"nimbus/internal/types"
)

// bcryptCost balances verification latency against brute force resistance.
const bcryptCost = 12

// dummyHash is a bcrypt hash of an unguessable value. It is compared against
// when a username does not exist so that the response timing of "unknown
// user" and "wrong password" are indistinguishable.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

const (
	eventLoginAttempt = "login_attempt"
)

// BruteForceConfig holds failed-attempt thresholds. When the count of recent
// failures for an identifier or an IP exceeds its threshold, further login
// attempts are rejected without touching credentials.
type BruteForceConfig struct {
	IdentifierThreshold int
	IPThreshold         int
	Window              time.Duration
}

// Service implements account registration and credential verification.
type Service struct {
	users      types.UserRepository
	security   types.SecurityRepository
	sessions   *SessionService
	bruteForce BruteForceConfig
	clock      types.Clock
	logger     *slog.Logger
}

// NewService creates an auth Service.
func NewService(
	users types.UserRepository,
	security types.SecurityRepository,
	sessions *SessionService,
	bruteForce BruteForceConfig,
	clock types.Clock,
	logger *slog.Logger,
) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      users,
		security:   security,
		sessions:   sessions,
		bruteForce: bruteForce,
		clock:      clock,
		logger:     logger,
	}
}

// Register creates a new account. The username is canonicalized before
// storage; a duplicate yields a conflict error.
func (s *Service) Register(ctx context.Context, username, email, password string) (*types.User, error) {
	username = CanonicalizeUsername(username)

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to look up username", err)
	}
	if existing != nil {
		return nil, types.NewAppError(types.ErrCodeConflictUsername, "username is already taken", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
	}

	user := &types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a session. Unknown usernames and
// wrong passwords return the same generic error so accounts cannot be
// enumerated. Every attempt is recorded for brute force tracking.
func (s *Service) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*types.User, *types.Session, error) {
	username = CanonicalizeUsername(username)

	if err := s.checkBruteForce(ctx, username, ipAddress); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, types.NewAppError(types.ErrCodeInternalDB, "failed to look up user", err)
	}

	if user == nil {
		// Equalize timing with the password verification path.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.recordAttempt(ctx, username, ipAddress, false, "unknown_user")
		return nil, nil, invalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordAttempt(ctx, username, ipAddress, false, "wrong_password")
		return nil, nil, invalidCredentials()
	}

	s.recordAttempt(ctx, username, ipAddress, true, "")

	// Housekeeping failures must not block a successful login.
	if err := s.sessions.sessions.DeleteExpiredByUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to clean up expired sessions", "user_id", user.ID, "error", err)
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	session, err := s.sessions.Issue(ctx, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return user, session, nil
}

// Logout revokes the given session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}

func invalidCredentials() error {
	return types.NewAppError(types.ErrCodeAuthInvalidCreds, "Invalid username or password", nil)
}

// checkBruteForce rejects the attempt if recent failures for the identifier
// or the source IP exceed their thresholds.
func (s *Service) checkBruteForce(ctx context.Context, username, ipAddress string) error {
	since := s.clock.Now().Add(-s.bruteForce.Window)

	identFailures, err := s.security.CountRecentFailuresByIdentifier(ctx, username, since)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to check login history", err)
	}
	if s.bruteForce.IdentifierThreshold > 0 && identFailures >= s.bruteForce.IdentifierThreshold {
		s.logger.Warn("login blocked: identifier threshold exceeded",
			"identifier", username,
			"ip", ipAddress,
			"failures", identFailures,
		)
		return types.NewAppError(types.ErrCodeAuthLocked, "too many failed attempts, try again later", nil)
	}

	ipFailures, err := s.security.CountRecentFailuresByIP(ctx, ipAddress, since)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to check login history", err)
	}
	if s.bruteForce.IPThreshold > 0 && ipFailures >= s.bruteForce.IPThreshold {
		s.logger.Warn("login blocked: IP threshold exceeded",
			"ip", ipAddress,
			"failures", ipFailures,
		)
		return types.NewAppError(types.ErrCodeAuthLocked, "too many failed attempts, try again later", nil)
	}

	return nil
}

// recordAttempt persists a login attempt. Failures to record are logged but
// never surfaced to the caller.
func (s *Service) recordAttempt(ctx context.Context, identifier, ipAddress string, success bool, reason string) {
	event := &types.SecurityEvent{
		EventType:     eventLoginAttempt,
		Identifier:    identifier,
		IPAddress:     ipAddress,
		AttemptedAt:   s.clock.Now(),
		Success:       success,
		FailureReason: reason,
	}
	if err := s.security.LogAttempt(ctx, event); err != nil {
		s.logger.Error("failed to record login attempt", "error", err)
	}
}
