package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nimbus/internal/types"
)

// UserRepo is the Postgres implementation of types.UserRepository.
type UserRepo struct {
	db DBTX
}

var _ types.UserRepository = (*UserRepo)(nil)

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, user *types.User) error {
	const q = `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, q,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetByID returns the user with the given ID, or nil if none exists.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	const q = `
		SELECT id, username, email, password_hash, created_at, last_login_at
		FROM users WHERE id = $1`

	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

// GetByUsername returns the user with the given username, or nil if none
// exists. Callers are expected to canonicalize the username first.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	const q = `
		SELECT id, username, email, password_hash, created_at, last_login_at
		FROM users WHERE username = $1`

	return r.scanOne(r.db.QueryRow(ctx, q, username))
}

// UpdateLastLogin stamps the user's last successful login time.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	const q = `UPDATE users SET last_login_at = now() WHERE id = $1`

	if _, err := r.db.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

func (r *UserRepo) scanOne(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}
