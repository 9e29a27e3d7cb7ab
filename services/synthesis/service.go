package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/services/memory"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/retrieval"
	"github.com/upb/ai-tutor/backend/services/routing"
)

const maxThreadTitleLength = 60

// QueryExpander produces sub-queries for multi-query retrieval
type QueryExpander interface {
	Expand(ctx context.Context, query string, n int) []string
}

// ContextRetriever runs the fan-out search and merge over the vector index
type ContextRetriever interface {
	Search(ctx context.Context, queries []string, ownerID, documentFilter string, k int) ([]models.Passage, error)
}

// ConversationMemory loads and recomputes a thread's bounded history
type ConversationMemory interface {
	Load(ctx context.Context, ownerID string, threadID uuid.UUID) (string, []memory.Turn, error)
	Commit(ctx context.Context, ownerID string, threadID uuid.UUID) (memory.CommitResult, error)
}

// ChatStore persists threads, messages and thread summaries
type ChatStore interface {
	GetThread(ctx context.Context, ownerID string, threadID uuid.UUID) (*models.ChatThread, error)
	CreateThread(ctx context.Context, thread *models.ChatThread) error
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	SaveThreadSummary(ctx context.Context, ownerID string, threadID uuid.UUID, summary string, summarizedThrough int) error
}

// Params bounds the retrieval stage of the pipeline
type Params struct {
	MultiQueryCount int
	ChunkK          int
}

// AskRequest is one question addressed to the tutor
type AskRequest struct {
	OwnerID  string
	ThreadID uuid.UUID // uuid.Nil starts a new thread
	Question string
	Scope    QueryScope
	Notify   func(stage string) // optional coarse progress callback
}

// AskResult is the answered turn
type AskResult struct {
	Answer     string
	ThreadID   uuid.UUID
	References []models.Reference
	Reasoning  string
}

// Service orchestrates one question end to end: retrieval, prompt
// construction, model invocation, parsing, citation resolution and
// persistence of the turn.
type Service struct {
	expander  QueryExpander
	retriever ContextRetriever
	memory    ConversationMemory
	store     ChatStore
	backend   providers.ModelBackend
	pool      *routing.BackendPool
	params    Params
	logger    *zap.Logger
}

// NewService creates a synthesis Service
func NewService(
	expander QueryExpander,
	retriever ContextRetriever,
	mem ConversationMemory,
	store ChatStore,
	backend providers.ModelBackend,
	pool *routing.BackendPool,
	params Params,
	logger *zap.Logger,
) *Service {
	return &Service{
		expander:  expander,
		retriever: retriever,
		memory:    mem,
		store:     store,
		backend:   backend,
		pool:      pool,
		params:    params,
		logger:    logger,
	}
}

// Ask answers one question within a thread. Model and retrieval failures
// after the question is accepted become user-facing answers, not errors;
// the turn is always persisted.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResult{}, services.ErrEmptyQuestion
	}

	thread, err := s.resolveThread(ctx, req.OwnerID, req.ThreadID, question)
	if err != nil {
		return AskResult{}, err
	}

	notify(req.Notify, "Starting AI processing...")
	s.logger.Debug("Step 1: Question accepted",
		zap.String("owner_id", req.OwnerID),
		zap.String("thread_id", thread.ID.String()),
		zap.String("scope", req.Scope.Kind.String()))

	userMsg := models.NewChatMessage(thread.ID, req.OwnerID, models.RoleUser, question)
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		return AskResult{}, err
	}

	summary, turns, err := s.memory.Load(ctx, req.OwnerID, thread.ID)
	if err != nil {
		return AskResult{}, err
	}
	history := memory.EffectiveHistory(summary, turns)

	contextText := "No relevant context was found."
	var entries map[int]models.ContextEntry

	if req.Scope.Kind != ScopeGeneral {
		s.logger.Debug("Step 2: Retrieving context",
			zap.String("document", req.Scope.Document))
		if req.Scope.Kind == ScopeDocument {
			notify(req.Notify, fmt.Sprintf("Searching in document: %s...", req.Scope.Document))
		} else {
			notify(req.Notify, "Searching your documents...")
		}

		queries := s.expander.Expand(ctx, question, s.params.MultiQueryCount)
		passages, err := s.retriever.Search(ctx, queries, req.OwnerID, req.Scope.Document, s.params.ChunkK)
		if err != nil {
			if services.IsScopedEmptyError(err) {
				// Terminal early answer, the model is never invoked
				answer := retrieval.NoContextMessage
				if req.Scope.Kind == ScopeDocument {
					answer = DocumentNoContentMessage(req.Scope.Document)
				}
				s.logger.Info("No retrieval context found",
					zap.String("thread_id", thread.ID.String()),
					zap.String("scope", req.Scope.Kind.String()))
				return s.finishTurn(ctx, req, thread.ID, answer, nil, "")
			}
			return s.finishTurn(ctx, req, thread.ID, ApologyMessage("RetrievalError"), nil, "")
		}
		contextText, entries = retrieval.Assemble(passages)
	}

	reasoning := RequiresReasoning(question)
	prompt := AnswerPrompt{
		Question:         question,
		History:          history,
		Context:          contextText,
		Reasoning:        reasoning,
		GeneralKnowledge: req.Scope.Kind == ScopeGeneral,
	}.Render()

	s.logger.Debug("Step 3: Invoking model",
		zap.Bool("reasoning_variant", reasoning),
		zap.Int("prompt_length", len(prompt)))
	notify(req.Notify, "Invoking LLM for synthesis...")

	endpoint, err := s.pool.Next()
	if err != nil {
		s.logger.Error("No backends available for synthesis", zap.Error(err))
		return s.finishTurn(ctx, req, thread.ID, ApologyMessage("NoBackends"), nil, "")
	}
	raw, err := s.backend.Generate(ctx, endpoint.URL, prompt)
	if err != nil {
		reason := "BackendError"
		if providers.IsTimeout(err) {
			reason = "Timeout"
		}
		s.logger.Error("Model invocation failed",
			zap.String("endpoint", endpoint.URL),
			zap.String("reason", reason),
			zap.Error(err))
		return s.finishTurn(ctx, req, thread.ID, ApologyMessage(reason), nil, "")
	}

	notify(req.Notify, "Parsing LLM response...")
	s.logger.Debug("Step 4: Parsing model response",
		zap.Int("response_length", len(raw)))

	answer, reasoningText := providers.SplitReasoning(raw)
	if answer == "" {
		if reasoningText != "" {
			answer = EmptyAnswerPlaceholder
		} else {
			answer = EmptyResponseError
		}
	}

	refs := ResolveCitations(answer, entries)
	s.logger.Debug("Step 5: Citations resolved",
		zap.Int("reference_count", len(refs)))

	return s.finishTurn(ctx, req, thread.ID, answer, refs, reasoningText)
}

// finishTurn persists the assistant message and recomputes the thread's
// rolling summary. Memory recompute failures degrade silently.
func (s *Service) finishTurn(ctx context.Context, req AskRequest, threadID uuid.UUID, answer string, refs []models.Reference, reasoningText string) (AskResult, error) {
	msg := models.NewChatMessage(threadID, req.OwnerID, models.RoleAssistant, answer)
	msg.SetReferences(refs)
	msg.SetReasoning(reasoningText)
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return AskResult{}, err
	}

	result, err := s.memory.Commit(ctx, req.OwnerID, threadID)
	if err != nil {
		s.logger.Warn("Memory commit failed, keeping previous summary",
			zap.String("thread_id", threadID.String()),
			zap.Error(err))
	} else if result.Changed {
		if err := s.store.SaveThreadSummary(ctx, req.OwnerID, threadID, result.Summary, result.SummarizedThrough); err != nil {
			s.logger.Warn("Failed to persist thread summary",
				zap.String("thread_id", threadID.String()),
				zap.Error(err))
		}
	}

	return AskResult{
		Answer:     answer,
		ThreadID:   threadID,
		References: refs,
		Reasoning:  reasoningText,
	}, nil
}

// resolveThread loads the target thread or starts a new one titled after
// the question
func (s *Service) resolveThread(ctx context.Context, ownerID string, threadID uuid.UUID, question string) (*models.ChatThread, error) {
	if threadID != uuid.Nil {
		return s.store.GetThread(ctx, ownerID, threadID)
	}

	title := question
	if runes := []rune(title); len(runes) > maxThreadTitleLength {
		title = strings.TrimSpace(string(runes[:maxThreadTitleLength])) + "..."
	}
	thread := models.NewChatThread(ownerID, title)
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func notify(fn func(string), stage string) {
	if fn != nil {
		fn(stage)
	}
}
