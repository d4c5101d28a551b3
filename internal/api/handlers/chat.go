package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nimbus/internal/chat"
	"nimbus/internal/core"
	"nimbus/internal/types"
)

// ChatHandler serves question submission and conversation reads.
type ChatHandler struct {
	service   *chat.Service
	validator *core.Validator
	logger    *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(service *chat.Service, validator *core.Validator, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{service: service, validator: validator, logger: logger}
}

// RegisterRoutes mounts the chat routes on the given router.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/ask", h.HandleAsk)
	r.Get("/chat/conversations", h.HandleListConversations)
	r.Get("/chat/conversations/{conversationID}", h.HandleGetConversation)
}

// AskRequest is the payload for POST /v1/chat/ask. An omitted
// conversation_id starts a new conversation.
type AskRequest struct {
	Question       string `json:"question" validate:"required,min=1,max=2000"`
	ConversationID string `json:"conversation_id" validate:"omitempty,uuid"`
}

type askResponse struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
}

// HandleAsk answers a question and records the exchange. Returns 201 when a
// new conversation was started, 200 when appending to an existing one.
func (h *ChatHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "authentication required", nil))
		return
	}

	var req AskRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.service.Ask(r.Context(), actor.ID, req.Question, req.ConversationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	core.JSON(w, r, status, core.APIResponse{Data: askResponse{
		ConversationID: result.ConversationID,
		Question:       req.Question,
		Answer:         result.Answer,
	}})
}

// HandleListConversations returns the caller's conversations, most recently
// active first.
func (h *ChatHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "authentication required", nil))
		return
	}

	conversations, err := h.service.List(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: conversations})
}

// HandleGetConversation returns one conversation with its full message
// history. A conversation owned by another user reads as not found.
func (h *ChatHandler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "authentication required", nil))
		return
	}

	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.service.Get(r.Context(), actor.ID, conversationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: conv})
}
