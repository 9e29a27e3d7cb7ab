package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/routing"
)

type fakeStore struct {
	mu      sync.Mutex
	threads map[uuid.UUID]*models.ChatThread
	msgs    map[uuid.UUID][]*models.ChatMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		threads: make(map[uuid.UUID]*models.ChatThread),
		msgs:    make(map[uuid.UUID][]*models.ChatMessage),
	}
}

func (f *fakeStore) GetThread(ctx context.Context, ownerID string, threadID uuid.UUID) (*models.ChatThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[threadID]
	if !ok {
		return nil, errors.New("thread not found")
	}
	return t, nil
}

func (f *fakeStore) GetMessages(ctx context.Context, ownerID string, threadID uuid.UUID) ([]*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[threadID], nil
}

func (f *fakeStore) addTurn(threadID uuid.UUID, role models.MessageRole, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[threadID] = append(f.msgs[threadID], models.NewChatMessage(threadID, "u1", role, text))
}

func (f *fakeStore) apply(threadID uuid.UUID, r CommitResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[threadID].Summary = r.Summary
	f.threads[threadID].SummarizedThrough = r.SummarizedThrough
}

type summaryBackend struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *summaryBackend) Name() string { return "fake" }

func (b *summaryBackend) Generate(ctx context.Context, endpoint, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	return fmt.Sprintf("summary v%d", b.calls), nil
}

func (b *summaryBackend) GenerateStream(ctx context.Context, endpoint, prompt string, onChunk providers.StreamCallback) (string, error) {
	return b.Generate(ctx, endpoint, prompt)
}

func (b *summaryBackend) Embed(ctx context.Context, endpoint, text string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func newService(store *fakeStore, backend *summaryBackend, tokenLimit int) *Service {
	pool := routing.NewBackendPool([]string{"http://stub:11434"}, zap.NewNop())
	return NewService(store, backend, pool, EstimateCounter{}, tokenLimit, zap.NewNop())
}

func seedThread(store *fakeStore) uuid.UUID {
	thread := models.NewChatThread("u1", "test thread")
	store.threads[thread.ID] = thread
	return thread.ID
}

func TestService_Load(t *testing.T) {
	store := newFakeStore()
	threadID := seedThread(store)
	store.threads[threadID].Summary = "earlier talk about osmosis"
	store.threads[threadID].SummarizedThrough = 2
	store.addTurn(threadID, models.RoleUser, "old question")
	store.addTurn(threadID, models.RoleAssistant, "old answer")
	store.addTurn(threadID, models.RoleUser, "recent question")
	store.addTurn(threadID, models.RoleAssistant, "recent answer")

	svc := newService(store, &summaryBackend{}, 800)

	summary, turns, err := svc.Load(context.Background(), "u1", threadID)
	require.NoError(t, err)

	assert.Equal(t, "earlier talk about osmosis", summary)
	require.Len(t, turns, 2)
	assert.Equal(t, "recent question", turns[0].Text)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "recent answer", turns[1].Text)
}

func TestService_Commit_UnderBudgetIsNoop(t *testing.T) {
	store := newFakeStore()
	threadID := seedThread(store)
	store.addTurn(threadID, models.RoleUser, "short")
	store.addTurn(threadID, models.RoleAssistant, "also short")

	backend := &summaryBackend{}
	svc := newService(store, backend, 800)

	result, err := svc.Commit(context.Background(), "u1", threadID)
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Empty(t, result.Summary)
	assert.Zero(t, result.SummarizedThrough)
	assert.Zero(t, backend.calls, "no model call when under budget")
}

func TestService_Commit_FoldsOldestTurns(t *testing.T) {
	store := newFakeStore()
	threadID := seedThread(store)
	long := strings.Repeat("lengthy explanation of cell biology ", 20) // ~180 tokens
	for i := 0; i < 4; i++ {
		store.addTurn(threadID, models.RoleUser, long)
		store.addTurn(threadID, models.RoleAssistant, long)
	}

	backend := &summaryBackend{}
	svc := newService(store, backend, 400)

	result, err := svc.Commit(context.Background(), "u1", threadID)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, "summary v1", result.Summary)
	assert.Equal(t, 6, result.SummarizedThrough, "all but the newest exchange folded")
	assert.Equal(t, 1, backend.calls)
}

func TestService_Commit_KeepsNewestExchangeVerbatim(t *testing.T) {
	store := newFakeStore()
	threadID := seedThread(store)
	long := strings.Repeat("words words words words ", 50)
	store.addTurn(threadID, models.RoleUser, long)
	store.addTurn(threadID, models.RoleAssistant, long)

	svc := newService(store, &summaryBackend{}, 10) // hopelessly small budget

	result, err := svc.Commit(context.Background(), "u1", threadID)
	require.NoError(t, err)

	// Only two turns exist; they are the newest exchange and must stay.
	assert.False(t, result.Changed)
	assert.Zero(t, result.SummarizedThrough)
}

func TestService_Commit_BackendFailureKeepsPreviousSummary(t *testing.T) {
	store := newFakeStore()
	threadID := seedThread(store)
	store.threads[threadID].Summary = "previous summary"
	long := strings.Repeat("many tokens here indeed ", 40)
	for i := 0; i < 3; i++ {
		store.addTurn(threadID, models.RoleUser, long)
		store.addTurn(threadID, models.RoleAssistant, long)
	}

	backend := &summaryBackend{err: errors.New("backend down")}
	svc := newService(store, backend, 100)

	result, err := svc.Commit(context.Background(), "u1", threadID)
	require.NoError(t, err, "recompute failure must not surface")

	assert.False(t, result.Changed)
	assert.Equal(t, "previous summary", result.Summary)
}

func TestService_Commit_Boundedness(t *testing.T) {
	// After many over-budget turns, the verbatim buffer stays under
	// budget and the rolling summary is non-empty.
	store := newFakeStore()
	threadID := seedThread(store)
	backend := &summaryBackend{}
	const limit = 300
	svc := newService(store, backend, limit)

	turn := strings.Repeat("a question about photosynthesis and light ", 10)
	for i := 0; i < 10; i++ {
		store.addTurn(threadID, models.RoleUser, turn)
		store.addTurn(threadID, models.RoleAssistant, turn)

		result, err := svc.Commit(context.Background(), "u1", threadID)
		require.NoError(t, err)
		store.apply(threadID, result)
	}

	thread := store.threads[threadID]
	assert.NotEmpty(t, thread.Summary)

	_, turns, err := svc.Load(context.Background(), "u1", threadID)
	require.NoError(t, err)

	counter := EstimateCounter{}
	total := 0
	for _, tr := range turns {
		total += counter.Count(tr.Text)
	}
	// The buffer alone fits the budget once the summary's own size is
	// set aside; with turns this large that means the newest exchange.
	assert.LessOrEqual(t, len(turns), keepMinTurns)
	assert.LessOrEqual(t, total, limit)
}

func TestService_Commit_SerializedPerThread(t *testing.T) {
	store := newFakeStore()
	threadID := seedThread(store)
	long := strings.Repeat("busy thread content ", 40)
	for i := 0; i < 4; i++ {
		store.addTurn(threadID, models.RoleUser, long)
		store.addTurn(threadID, models.RoleAssistant, long)
	}

	backend := &summaryBackend{}
	svc := newService(store, backend, 200)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Commit(context.Background(), "u1", threadID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestSummaryPrompt_Render(t *testing.T) {
	p := SummaryPrompt{
		PriorSummary: "they discussed osmosis",
		Evicted: []Turn{
			{Role: models.RoleUser, Text: "what about diffusion?"},
			{Role: models.RoleAssistant, Text: "diffusion spreads particles"},
		},
	}

	rendered := p.Render()

	assert.Contains(t, rendered, "they discussed osmosis")
	assert.Contains(t, rendered, "user: what about diffusion?")
	assert.Contains(t, rendered, "assistant: diffusion spreads particles")
	assert.Contains(t, rendered, "New summary:")
}

func TestSummaryPrompt_Render_NoPriorSummary(t *testing.T) {
	p := SummaryPrompt{Evicted: []Turn{{Role: models.RoleUser, Text: "hi"}}}

	assert.Contains(t, p.Render(), "(none)")
}

func TestEffectiveHistory(t *testing.T) {
	got := EffectiveHistory("old context", []Turn{
		{Role: models.RoleUser, Text: "question"},
		{Role: models.RoleAssistant, Text: "answer"},
	})

	assert.Contains(t, got, "Summary of earlier conversation:\nold context")
	assert.Contains(t, got, "user: question")
	assert.Contains(t, got, "assistant: answer")
}

func TestEffectiveHistory_Empty(t *testing.T) {
	assert.Empty(t, EffectiveHistory("", nil))
}

func TestEstimateCounter(t *testing.T) {
	c := EstimateCounter{}

	assert.Zero(t, c.Count(""))
	assert.Equal(t, 1, c.Count("hi"))
	assert.Equal(t, 10, c.Count(strings.Repeat("a", 40)))
	// CJK characters count individually
	assert.Equal(t, 3, c.Count("你好吗"))
}
