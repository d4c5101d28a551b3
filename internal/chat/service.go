// Package chat manages threaded conversations: it runs the answer engine
// over incoming questions and persists the exchange as user and assistant
// messages.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nimbus/internal/qna"
	"nimbus/internal/types"
)

// titleMaxLen caps the auto-generated conversation title.
const titleMaxLen = 50

// AskResult is the outcome of submitting a question.
type AskResult struct {
	ConversationID string
	Answer         string

	// Created reports whether this question started a new conversation.
	Created bool
}

// Service orchestrates the ask flow and conversation reads.
type Service struct {
	repos  types.RepositoryRegistry
	txm    types.TransactionManager
	engine *qna.Engine
	clock  types.Clock
	logger *slog.Logger
}

// NewService creates a chat Service.
func NewService(repos types.RepositoryRegistry, txm types.TransactionManager, engine *qna.Engine, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, txm: txm, engine: engine, clock: clock, logger: logger}
}

// Ask answers a question and records the exchange. An empty conversationID
// starts a new conversation titled from the question; otherwise the
// exchange is appended to the caller's existing conversation. A
// conversation belonging to another user reads as not found.
func (s *Service) Ask(ctx context.Context, userID, question, conversationID string) (*AskResult, error) {
	created := conversationID == ""

	var conv *types.Conversation
	if created {
		now := s.clock.Now()
		conv = &types.Conversation{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     truncateTitle(question),
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		existing, err := s.repos.Conversations().GetByID(ctx, conversationID, userID)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load conversation", err)
		}
		if existing == nil {
			return nil, types.NewAppError(types.ErrCodeNotFoundConversation, "conversation not found", nil)
		}
		conv = existing
	}

	// The engine never fails; a language-model problem degrades to the
	// deterministic base answer. Run it before the transaction so a slow
	// backend call never holds a database transaction open.
	answer := s.engine.Answer(ctx, question)

	askedAt := s.clock.Now()
	userMsg := &types.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        question,
		CreatedAt:      askedAt,
	}
	assistantMsg := &types.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           types.RoleAssistant,
		Content:        answer,
		// Strictly after the question so chronological reads keep the
		// exchange ordered even at coarse clock resolution.
		CreatedAt: askedAt.Add(time.Millisecond),
	}

	err := s.txm.RunInTx(ctx, func(ctx context.Context, repos types.RepositoryRegistry) error {
		if created {
			if err := repos.Conversations().Create(ctx, conv); err != nil {
				return err
			}
		}
		if err := repos.Conversations().AddMessage(ctx, userMsg); err != nil {
			return err
		}
		return repos.Conversations().AddMessage(ctx, assistantMsg)
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to record exchange", err)
	}

	s.logger.Info("question answered",
		"conversation_id", conv.ID,
		"new_conversation", created,
	)

	return &AskResult{ConversationID: conv.ID, Answer: answer, Created: created}, nil
}

// List returns the user's conversations, most recently active first.
func (s *Service) List(ctx context.Context, userID string) ([]*types.Conversation, error) {
	conversations, err := s.repos.Conversations().ListByUser(ctx, userID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list conversations", err)
	}
	return conversations, nil
}

// Get returns one conversation with its full message history.
func (s *Service) Get(ctx context.Context, userID, conversationID string) (*types.Conversation, error) {
	conv, err := s.repos.Conversations().GetByID(ctx, conversationID, userID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load conversation", err)
	}
	if conv == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundConversation, "conversation not found", nil)
	}
	return conv, nil
}

// truncateTitle derives a conversation title from the first question,
// capped at a display-friendly length without splitting multi-byte runes.
func truncateTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= titleMaxLen {
		return question
	}
	return string(runes[:titleMaxLen])
}
