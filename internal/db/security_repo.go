package db

import (
	"context"
	"fmt"
	"time"

	"nimbus/internal/types"
)

// SecurityRepo is the Postgres implementation of types.SecurityRepository.
type SecurityRepo struct {
	db DBTX
}

var _ types.SecurityRepository = (*SecurityRepo)(nil)

// LogAttempt records an authentication attempt.
func (r *SecurityRepo) LogAttempt(ctx context.Context, event *types.SecurityEvent) error {
	const q = `
		INSERT INTO security_events (event_type, identifier, ip_address, attempted_at, success, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, q,
		event.EventType, event.Identifier, event.IPAddress,
		event.AttemptedAt, event.Success, event.FailureReason)
	if err != nil {
		return fmt.Errorf("inserting security event: %w", err)
	}
	return nil
}

// CountRecentFailuresByIdentifier counts failed attempts for the identifier
// since the given time.
func (r *SecurityRepo) CountRecentFailuresByIdentifier(ctx context.Context, identifier string, since time.Time) (int, error) {
	const q = `
		SELECT count(*) FROM security_events
		WHERE identifier = $1 AND success = false AND attempted_at >= $2`

	var count int
	if err := r.db.QueryRow(ctx, q, identifier, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting failures by identifier: %w", err)
	}
	return count, nil
}

// CountRecentFailuresByIP counts failed attempts from the IP since the
// given time.
func (r *SecurityRepo) CountRecentFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	const q = `
		SELECT count(*) FROM security_events
		WHERE ip_address = $1 AND success = false AND attempted_at >= $2`

	var count int
	if err := r.db.QueryRow(ctx, q, ip, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting failures by IP: %w", err)
	}
	return count, nil
}
