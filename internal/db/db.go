// Package db implements Postgres-backed repositories using pgx. All
// repositories operate against the DBTX interface so the same query code
// runs on the connection pool and inside transactions.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nimbus/internal/config"
	"nimbus/internal/types"
)

// DBTX is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgx connection pool from configuration and verifies
// connectivity with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Registry bundles all repositories over a single DBTX. The production
// registry wraps the pool; RunInTx builds a transient registry over a
// transaction.
type Registry struct {
	pool   *pgxpool.Pool
	db     DBTX
	logger *slog.Logger

	users         *UserRepo
	sessions      *SessionRepo
	conversations *ConversationRepo
	security      *SecurityRepo
}

var _ types.RepositoryRegistry = (*Registry)(nil)
var _ types.TransactionManager = (*Registry)(nil)

// NewRegistry creates the production repository registry over a pool.
func NewRegistry(pool *pgxpool.Pool, logger *slog.Logger) *Registry {
	return newRegistry(pool, pool, logger)
}

func newRegistry(pool *pgxpool.Pool, db DBTX, logger *slog.Logger) *Registry {
	return &Registry{
		pool:          pool,
		db:            db,
		logger:        logger,
		users:         &UserRepo{db: db},
		sessions:      &SessionRepo{db: db},
		conversations: &ConversationRepo{db: db},
		security:      &SecurityRepo{db: db},
	}
}

// Users returns the user repository.
func (r *Registry) Users() types.UserRepository { return r.users }

// Sessions returns the session repository.
func (r *Registry) Sessions() types.SessionRepository { return r.sessions }

// Conversations returns the conversation repository.
func (r *Registry) Conversations() types.ConversationRepository { return r.conversations }

// Security returns the security event repository.
func (r *Registry) Security() types.SecurityRepository { return r.security }

// RunInTx executes fn inside a database transaction. The registry passed to
// fn routes all repository operations through that transaction; it commits
// when fn returns nil and rolls back otherwise.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context, repos types.RepositoryRegistry) error) error {
	if r.pool == nil {
		return fmt.Errorf("transactions require a pool-backed registry")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		// No-op if the transaction already committed.
		_ = tx.Rollback(ctx)
	}()

	txRegistry := newRegistry(nil, tx, r.logger)
	if err := fn(ctx, txRegistry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Ping verifies database connectivity, for health probes.
func (r *Registry) Ping(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (r *Registry) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}
