package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nimbus/internal/types"
)

type mockDBTX struct{ mock.Mock }

func (m *mockDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	callArgs := m.Called(ctx, sql, args)
	return pgconn.CommandTag{}, callArgs.Error(0)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	callArgs := m.Called(ctx, sql, args)
	rows, _ := callArgs.Get(0).(pgx.Rows)
	return rows, callArgs.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	callArgs := m.Called(ctx, sql, args)
	return callArgs.Get(0).(pgx.Row)
}

// mockRow scans canned values into the destinations, or fails with err.
type mockRow struct {
	values []any
	err    error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) || r.values[i] == nil {
			continue
		}
		switch target := d.(type) {
		case *string:
			*target = r.values[i].(string)
		case *time.Time:
			*target = r.values[i].(time.Time)
		case **time.Time:
			v := r.values[i].(time.Time)
			*target = &v
		case *int:
			*target = r.values[i].(int)
		case *bool:
			*target = r.values[i].(bool)
		}
	}
	return nil
}

func TestUserRepoCreate(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO users")
	}), mock.Anything).Return(nil)

	repo := &UserRepo{db: db}
	err := repo.Create(context.Background(), &types.User{
		ID:           "u1",
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	})

	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestUserRepoGetByUsername(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", mock.Anything, mock.Anything, []any{"alice"}).Return(&mockRow{
			values: []any{"u1", "alice", "alice@example.com", "hash", created, nil},
		})

		repo := &UserRepo{db: db}
		user, err := repo.GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Nil(t, user.LastLoginAt)
	})

	t.Run("not found yields nil without error", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", mock.Anything, mock.Anything, []any{"ghost"}).
			Return(&mockRow{err: pgx.ErrNoRows})

		repo := &UserRepo{db: db}
		user, err := repo.GetByUsername(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("database error surfaces", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", mock.Anything, mock.Anything, []any{"alice"}).
			Return(&mockRow{err: errors.New("connection reset")})

		repo := &UserRepo{db: db}
		_, err := repo.GetByUsername(context.Background(), "alice")
		assert.Error(t, err)
	})
}

func TestSecurityRepoCounts(t *testing.T) {
	since := time.Date(2026, 3, 15, 11, 45, 0, 0, time.UTC)

	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "success = false")
	}), []any{"alice", since}).Return(&mockRow{values: []any{3}})

	repo := &SecurityRepo{db: db}
	count, err := repo.CountRecentFailuresByIdentifier(context.Background(), "alice", since)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSessionRepoDeleteExpired(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "expires_at <= now()")
	}), []any{"u1"}).Return(nil)

	repo := &SessionRepo{db: db}
	require.NoError(t, repo.DeleteExpiredByUser(context.Background(), "u1"))
	db.AssertExpectations(t)
}

func TestConversationRepoAddMessageTouchesParent(t *testing.T) {
	now := time.Now()

	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO messages")
	}), mock.Anything).Return(nil).Once()
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "UPDATE conversations SET updated_at")
	}), []any{"c1", now}).Return(nil).Once()

	repo := &ConversationRepo{db: db}
	err := repo.AddMessage(context.Background(), &types.Message{
		ID:             "m1",
		ConversationID: "c1",
		Role:           types.RoleUser,
		Content:        "weather?",
		CreatedAt:      now,
	})

	require.NoError(t, err)
	db.AssertExpectations(t)
}
