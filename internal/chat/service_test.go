package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nimbus/internal/qna"
	"nimbus/internal/types"
)

type mockConversationRepo struct{ mock.Mock }

func (m *mockConversationRepo) Create(ctx context.Context, conv *types.Conversation) error {
	return m.Called(ctx, conv).Error(0)
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id, userID string) (*types.Conversation, error) {
	args := m.Called(ctx, id, userID)
	conv, _ := args.Get(0).(*types.Conversation)
	return conv, args.Error(1)
}

func (m *mockConversationRepo) ListByUser(ctx context.Context, userID string) ([]*types.Conversation, error) {
	args := m.Called(ctx, userID)
	conversations, _ := args.Get(0).([]*types.Conversation)
	return conversations, args.Error(1)
}

func (m *mockConversationRepo) AddMessage(ctx context.Context, msg *types.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// mockRegistry exposes only the conversation repository; the chat service
// never touches the others.
type mockRegistry struct {
	conversations *mockConversationRepo
}

func (r *mockRegistry) Users() types.UserRepository                 { return nil }
func (r *mockRegistry) Sessions() types.SessionRepository           { return nil }
func (r *mockRegistry) Conversations() types.ConversationRepository { return r.conversations }
func (r *mockRegistry) Security() types.SecurityRepository          { return nil }

// passthroughTxm runs the callback against the same registry without a real
// transaction.
type passthroughTxm struct {
	registry types.RepositoryRegistry
	err      error
}

func (t *passthroughTxm) RunInTx(ctx context.Context, fn func(ctx context.Context, repos types.RepositoryRegistry) error) error {
	if t.err != nil {
		return t.err
	}
	return fn(ctx, t.registry)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(conversations *mockConversationRepo, txmErr error) *Service {
	registry := &mockRegistry{conversations: conversations}
	txm := &passthroughTxm{registry: registry, err: txmErr}
	engine := qna.NewEngine(nil, 0, nil)
	return NewService(registry, txm, engine, fixedClock{now: testNow}, nil)
}

func TestAskStartsNewConversation(t *testing.T) {
	conversations := new(mockConversationRepo)

	var createdConv *types.Conversation
	conversations.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			createdConv = args.Get(1).(*types.Conversation)
		}).Return(nil)

	var messages []*types.Message
	conversations.On("AddMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			messages = append(messages, args.Get(1).(*types.Message))
		}).Return(nil)

	svc := newTestService(conversations, nil)

	question := "What's the weather in Paris tomorrow?"
	result, err := svc.Ask(context.Background(), "u1", question, "")
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.NotEmpty(t, result.ConversationID)
	assert.True(t, strings.HasPrefix(result.Answer, "Weather forecast for Paris (tomorrow):"))

	require.NotNil(t, createdConv)
	assert.Equal(t, "u1", createdConv.UserID)
	assert.Equal(t, question, createdConv.Title)

	require.Len(t, messages, 2)
	assert.Equal(t, types.RoleUser, messages[0].Role)
	assert.Equal(t, question, messages[0].Content)
	assert.Equal(t, types.RoleAssistant, messages[1].Role)
	assert.Equal(t, result.Answer, messages[1].Content)
	assert.True(t, messages[1].CreatedAt.After(messages[0].CreatedAt))
}

func TestAskTruncatesLongTitle(t *testing.T) {
	conversations := new(mockConversationRepo)

	var createdConv *types.Conversation
	conversations.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			createdConv = args.Get(1).(*types.Conversation)
		}).Return(nil)
	conversations.On("AddMessage", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(conversations, nil)

	question := strings.Repeat("what is the weather ", 10)
	_, err := svc.Ask(context.Background(), "u1", question, "")
	require.NoError(t, err)

	require.NotNil(t, createdConv)
	assert.Len(t, []rune(createdConv.Title), 50)
	assert.Equal(t, question[:50], createdConv.Title)
}

func TestAskAppendsToExistingConversation(t *testing.T) {
	conversations := new(mockConversationRepo)

	existing := &types.Conversation{ID: "c1", UserID: "u1", Title: "earlier"}
	conversations.On("GetByID", mock.Anything, "c1", "u1").Return(existing, nil)
	conversations.On("AddMessage", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(conversations, nil)

	result, err := svc.Ask(context.Background(), "u1", "how about 2025-09-01?", "c1")
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, "c1", result.ConversationID)
	conversations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAskForeignConversationReadsAsNotFound(t *testing.T) {
	conversations := new(mockConversationRepo)
	conversations.On("GetByID", mock.Anything, "c-other", "u1").Return(nil, nil)

	svc := newTestService(conversations, nil)

	_, err := svc.Ask(context.Background(), "u1", "question", "c-other")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundConversation, appErr.Code)
	conversations.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything)
}

func TestAskSurfacesTransactionFailure(t *testing.T) {
	conversations := new(mockConversationRepo)

	svc := newTestService(conversations, errors.New("connection lost"))

	_, err := svc.Ask(context.Background(), "u1", "question", "")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestGetNotFound(t *testing.T) {
	conversations := new(mockConversationRepo)
	conversations.On("GetByID", mock.Anything, "missing", "u1").Return(nil, nil)

	svc := newTestService(conversations, nil)

	_, err := svc.Get(context.Background(), "u1", "missing")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundConversation, appErr.Code)
}

func TestList(t *testing.T) {
	conversations := new(mockConversationRepo)
	conversations.On("ListByUser", mock.Anything, "u1").Return([]*types.Conversation{
		{ID: "c2", Title: "newest"},
		{ID: "c1", Title: "older"},
	}, nil)

	svc := newTestService(conversations, nil)

	got, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID)
}
