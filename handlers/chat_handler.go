package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/middleware"
	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/repositories"
	"github.com/upb/ai-tutor/backend/services/synthesis"
	"github.com/upb/ai-tutor/backend/utils"
)

// AskRequestBody is the request body for POST /api/v1/chat/ask
type AskRequestBody struct {
	Question       string `json:"question" validate:"required"`
	ThreadID       string `json:"thread_id,omitempty" validate:"omitempty,uuid"`
	DocumentFilter string `json:"document_filter,omitempty"`
	SearchAll      bool   `json:"search_all,omitempty"`
}

// AskResponseBody is the response body for an answered question
type AskResponseBody struct {
	Answer     string             `json:"answer"`
	ThreadID   string             `json:"thread_id"`
	References []models.Reference `json:"references,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
}

// ThreadResponse is the public view of a chat thread
type ThreadResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageResponse is the public view of a persisted chat message
type MessageResponse struct {
	ID         string             `json:"id"`
	Role       string             `json:"role"`
	Text       string             `json:"text"`
	References []models.Reference `json:"references,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// RenameThreadRequest is the request body for PATCH /api/v1/chat/threads/{id}
type RenameThreadRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// Asker answers one question within a thread
type Asker interface {
	Ask(ctx context.Context, req synthesis.AskRequest) (synthesis.AskResult, error)
}

// ChatHandler handles question answering and thread management
type ChatHandler struct {
	asker     Asker
	threads   repositories.ThreadRepository
	messages  repositories.MessageRepository
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(
	asker Asker,
	threads repositories.ThreadRepository,
	messages repositories.MessageRepository,
	txManager repositories.TransactionManager,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		asker:     asker,
		threads:   threads,
		messages:  messages,
		txManager: txManager,
		logger:    logger,
	}
}

// HandleAsk handles POST /api/v1/chat/ask
func (h *ChatHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req AskRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse ask request", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	threadID := uuid.Nil
	if req.ThreadID != "" {
		parsed, err := uuid.Parse(req.ThreadID)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid thread ID", nil)
			return
		}
		threadID = parsed
	}

	scope := synthesis.ScopeFromFilter(req.DocumentFilter)
	if req.SearchAll {
		scope = synthesis.CorpusScope()
	}

	h.logger.Debug("processing question",
		zap.String("owner_id", ownerID),
		zap.String("scope", scope.Kind.String()),
		zap.String("document", scope.Document))

	result, err := h.asker.Ask(ctx, synthesis.AskRequest{
		OwnerID:  ownerID,
		ThreadID: threadID,
		Question: req.Question,
		Scope:    scope,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, AskResponseBody{
		Answer:     result.Answer,
		ThreadID:   result.ThreadID.String(),
		References: result.References,
		Reasoning:  result.Reasoning,
	})
}

// HandleListThreads handles GET /api/v1/chat/threads
func (h *ChatHandler) HandleListThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	threads, err := h.threads.GetByOwner(ctx, ownerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		responses = append(responses, ThreadResponse{
			ID:        thread.ID.String(),
			Title:     thread.Title,
			CreatedAt: thread.CreatedAt,
			UpdatedAt: thread.UpdatedAt,
		})
	}

	_ = utils.WriteOK(w, responses)
}

// HandleThreadHistory handles GET /api/v1/chat/threads/{id}/messages
func (h *ChatHandler) HandleThreadHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid thread ID", nil)
		return
	}

	// Verify ownership before listing
	if _, err := h.threads.GetByID(ctx, ownerID, threadID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	msgs, err := h.messages.GetByThread(ctx, ownerID, threadID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		resp := MessageResponse{
			ID:         msg.ID.String(),
			Role:       string(msg.Role),
			Text:       msg.Text,
			References: msg.ParsedReferences(),
			CreatedAt:  msg.CreatedAt,
		}
		if msg.Reasoning != nil {
			resp.Reasoning = *msg.Reasoning
		}
		responses = append(responses, resp)
	}

	_ = utils.WriteOK(w, responses)
}

// HandleRenameThread handles PATCH /api/v1/chat/threads/{id}
func (h *ChatHandler) HandleRenameThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid thread ID", nil)
		return
	}

	var req RenameThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.threads.Rename(ctx, ownerID, threadID, req.Title); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleDeleteThread handles DELETE /api/v1/chat/threads/{id}. The thread
// and its messages are removed in one transaction.
func (h *ChatHandler) HandleDeleteThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid thread ID", nil)
		return
	}

	err = h.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := h.messages.DeleteByThread(txCtx, ownerID, threadID); err != nil {
			return err
		}
		return h.threads.Delete(txCtx, ownerID, threadID)
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("thread deleted",
		zap.String("owner_id", ownerID),
		zap.String("thread_id", threadID.String()))

	utils.WriteNoContent(w)
}
