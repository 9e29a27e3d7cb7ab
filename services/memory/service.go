package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/routing"
)

// keepMinTurns is the number of newest turns that always stay verbatim,
// so the latest exchange is never folded into the summary.
const keepMinTurns = 2

// Turn is one conversational exchange half as fed into prompts.
type Turn struct {
	Role models.MessageRole
	Text string
}

// ThreadReader is the slice of the store the memory service reads from.
type ThreadReader interface {
	GetThread(ctx context.Context, ownerID string, threadID uuid.UUID) (*models.ChatThread, error)
	GetMessages(ctx context.Context, ownerID string, threadID uuid.UUID) ([]*models.ChatMessage, error)
}

// SummaryPrompt carries the fields of the summary-recompute prompt.
type SummaryPrompt struct {
	PriorSummary string
	Evicted      []Turn
}

// Render produces the instruction sent to the model.
func (p SummaryPrompt) Render() string {
	var sb strings.Builder
	sb.WriteString("Progressively summarize the conversation below, extending the current summary. Keep facts the student established and the tutor's key explanations. Return only the new summary.\n\n")
	sb.WriteString("Current summary:\n")
	if p.PriorSummary == "" {
		sb.WriteString("(none)\n")
	} else {
		sb.WriteString(p.PriorSummary + "\n")
	}
	sb.WriteString("\nNew lines of conversation:\n")
	for _, t := range p.Evicted {
		sb.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Text))
	}
	sb.WriteString("\nNew summary:")
	return sb.String()
}

// CommitResult is the recomputed memory state for one thread.
type CommitResult struct {
	Summary           string
	SummarizedThrough int
	Changed           bool
}

// Service maintains a token-bounded effective history per thread: a
// rolling summary of evicted turns plus the newest turns verbatim. The
// summary is regenerated from (old summary + evicted turns), never
// truncated arbitrarily. Persisting the result is the caller's job.
type Service struct {
	store      ThreadReader
	backend    providers.ModelBackend
	pool       *routing.BackendPool
	tokenizer  Tokenizer
	tokenLimit int
	logger     *zap.Logger

	mu          sync.Mutex
	threadLocks map[uuid.UUID]*sync.Mutex
}

// NewService creates a new conversation memory service
func NewService(store ThreadReader, backend providers.ModelBackend, pool *routing.BackendPool, tokenizer Tokenizer, tokenLimit int, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		backend:     backend,
		pool:        pool,
		tokenizer:   tokenizer,
		tokenLimit:  tokenLimit,
		logger:      logger,
		threadLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Load returns the thread's rolling summary and its verbatim turns (the
// messages not yet folded into the summary), oldest first.
func (s *Service) Load(ctx context.Context, ownerID string, threadID uuid.UUID) (string, []Turn, error) {
	thread, err := s.store.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return "", nil, err
	}
	msgs, err := s.store.GetMessages(ctx, ownerID, threadID)
	if err != nil {
		return "", nil, err
	}
	return thread.Summary, bufferTurns(msgs, thread.SummarizedThrough), nil
}

// Commit recomputes the thread's memory state after an assistant turn.
// When summary plus verbatim turns exceed the token budget, the oldest
// turns are folded into a regenerated summary via a model call. Commits
// for the same thread are serialized; different threads proceed
// concurrently.
func (s *Service) Commit(ctx context.Context, ownerID string, threadID uuid.UUID) (CommitResult, error) {
	lock := s.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread, err := s.store.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return CommitResult{}, err
	}
	msgs, err := s.store.GetMessages(ctx, ownerID, threadID)
	if err != nil {
		return CommitResult{}, err
	}

	buffer := bufferTurns(msgs, thread.SummarizedThrough)
	unchanged := CommitResult{Summary: thread.Summary, SummarizedThrough: thread.SummarizedThrough}

	used := s.tokenizer.Count(thread.Summary)
	for _, t := range buffer {
		used += s.tokenizer.Count(t.Text)
	}
	if used <= s.tokenLimit {
		return unchanged, nil
	}

	// Evict oldest turns until the budget holds, keeping the newest
	// exchange verbatim.
	var evicted []Turn
	for used > s.tokenLimit && len(buffer) > keepMinTurns {
		used -= s.tokenizer.Count(buffer[0].Text)
		evicted = append(evicted, buffer[0])
		buffer = buffer[1:]
	}
	if len(evicted) == 0 {
		return unchanged, nil
	}

	endpoint, err := s.pool.Next()
	if err != nil {
		s.logger.Warn("summary recompute skipped: no endpoint", zap.Error(err))
		return unchanged, nil
	}
	prompt := SummaryPrompt{PriorSummary: thread.Summary, Evicted: evicted}.Render()
	newSummary, err := s.backend.Generate(ctx, endpoint.URL, prompt)
	if err != nil {
		// The answer already went out; a failed recompute degrades to
		// the previous summary instead of surfacing an error.
		s.logger.Warn("summary recompute failed, keeping previous summary",
			zap.String("thread_id", threadID.String()),
			zap.Error(err),
		)
		return unchanged, nil
	}
	newSummary = strings.TrimSpace(newSummary)
	if newSummary == "" {
		return unchanged, nil
	}

	s.logger.Debug("folded turns into rolling summary",
		zap.String("thread_id", threadID.String()),
		zap.Int("evicted", len(evicted)),
		zap.Int("kept_verbatim", len(buffer)),
	)
	return CommitResult{
		Summary:           newSummary,
		SummarizedThrough: thread.SummarizedThrough + len(evicted),
		Changed:           true,
	}, nil
}

// EffectiveHistory renders summary and turns into the prompt's history
// section.
func EffectiveHistory(summary string, turns []Turn) string {
	var sb strings.Builder
	if summary != "" {
		sb.WriteString("Summary of earlier conversation:\n")
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}
	for _, t := range turns {
		sb.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Service) lockFor(threadID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		s.threadLocks[threadID] = lock
	}
	return lock
}

func bufferTurns(msgs []*models.ChatMessage, summarizedThrough int) []Turn {
	if summarizedThrough > len(msgs) {
		summarizedThrough = len(msgs)
	}
	buffer := msgs[summarizedThrough:]
	turns := make([]Turn, len(buffer))
	for i, m := range buffer {
		turns[i] = Turn{Role: m.Role, Text: m.Text}
	}
	return turns
}
