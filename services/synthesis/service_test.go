package synthesis

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/services/memory"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/retrieval"
	"github.com/upb/ai-tutor/backend/services/routing"
)

type fakeExpander struct {
	queries []string
}

func (f *fakeExpander) Expand(ctx context.Context, query string, n int) []string {
	if f.queries != nil {
		return f.queries
	}
	return []string{query}
}

type fakeRetriever struct {
	passages []models.Passage
	err      error
	called   bool
	gotK     int
	gotDoc   string
}

func (f *fakeRetriever) Search(ctx context.Context, queries []string, ownerID, documentFilter string, k int) ([]models.Passage, error) {
	f.called = true
	f.gotK = k
	f.gotDoc = documentFilter
	return f.passages, f.err
}

type fakeMemory struct {
	summary string
	turns   []memory.Turn
	commit  memory.CommitResult
	err     error
}

func (f *fakeMemory) Load(ctx context.Context, ownerID string, threadID uuid.UUID) (string, []memory.Turn, error) {
	return f.summary, f.turns, nil
}

func (f *fakeMemory) Commit(ctx context.Context, ownerID string, threadID uuid.UUID) (memory.CommitResult, error) {
	if f.err != nil {
		return memory.CommitResult{}, f.err
	}
	return f.commit, nil
}

type fakeChatStore struct {
	mu        sync.Mutex
	threads   map[uuid.UUID]*models.ChatThread
	messages  []*models.ChatMessage
	summaries map[uuid.UUID]string
	saveErr   error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		threads:   make(map[uuid.UUID]*models.ChatThread),
		summaries: make(map[uuid.UUID]string),
	}
}

func (f *fakeChatStore) GetThread(ctx context.Context, ownerID string, threadID uuid.UUID) (*models.ChatThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.threads[threadID]
	if !ok || thread.OwnerID != ownerID {
		return nil, services.ErrThreadNotFound
	}
	return thread, nil
}

func (f *fakeChatStore) CreateThread(ctx context.Context, thread *models.ChatThread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[thread.ID] = thread
	return nil
}

func (f *fakeChatStore) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatStore) SaveThreadSummary(ctx context.Context, ownerID string, threadID uuid.UUID, summary string, summarizedThrough int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[threadID] = summary
	return nil
}

func (f *fakeChatStore) lastMessage() *models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

type fakeBackend struct {
	output  string
	err     error
	prompts []string
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Generate(ctx context.Context, endpoint, prompt string) (string, error) {
	b.prompts = append(b.prompts, prompt)
	if b.err != nil {
		return "", b.err
	}
	return b.output, nil
}

func (b *fakeBackend) GenerateStream(ctx context.Context, endpoint, prompt string, onChunk providers.StreamCallback) (string, error) {
	return b.Generate(ctx, endpoint, prompt)
}

func (b *fakeBackend) Embed(ctx context.Context, endpoint, text string) ([]float32, error) {
	return nil, nil
}

type testEnv struct {
	svc       *Service
	expander  *fakeExpander
	retriever *fakeRetriever
	memory    *fakeMemory
	store     *fakeChatStore
	backend   *fakeBackend
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	env := &testEnv{
		expander:  &fakeExpander{},
		retriever: &fakeRetriever{},
		memory:    &fakeMemory{},
		store:     newFakeChatStore(),
		backend:   &fakeBackend{output: "An answer."},
	}
	pool := routing.NewBackendPool([]string{"http://localhost:11434"}, logger)
	env.svc = NewService(env.expander, env.retriever, env.memory, env.store, env.backend, pool,
		Params{MultiQueryCount: 3, ChunkK: 15}, logger)
	return env
}

func TestAsk_EmptyQuestion(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Ask(context.Background(), AskRequest{OwnerID: "u1", Question: "   "})

	assert.ErrorIs(t, err, services.ErrEmptyQuestion)
	assert.Empty(t, env.store.messages)
}

func TestAsk_CreatesThread(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID:  "u1",
		Question: "What is X?",
		Scope:    GeneralScope(),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ThreadID)
	thread := env.store.threads[result.ThreadID]
	require.NotNil(t, thread)
	assert.Equal(t, "What is X?", thread.Title)
}

func TestAsk_TruncatesLongThreadTitle(t *testing.T) {
	env := newTestEnv()
	question := strings.Repeat("why ", 40)

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: question, Scope: GeneralScope(),
	})

	require.NoError(t, err)
	title := env.store.threads[result.ThreadID].Title
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.LessOrEqual(t, len(title), maxThreadTitleLength+3)
}

func TestAsk_ThreadNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID:  "u1",
		ThreadID: uuid.New(),
		Question: "What is X?",
		Scope:    GeneralScope(),
	})

	assert.True(t, services.IsNotFoundError(err))
}

func TestAsk_GeneralModeSkipsRetrieval(t *testing.T) {
	env := newTestEnv()

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.False(t, env.retriever.called, "general mode must not touch the index")
	assert.Equal(t, "An answer.", result.Answer)
	require.Len(t, env.backend.prompts, 1)
	assert.Contains(t, env.backend.prompts[0], "fall back on your general knowledge")
}

func TestAsk_EmptyIndexMessage(t *testing.T) {
	env := newTestEnv()
	env.retriever.err = services.ErrNoContextFound

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: CorpusScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, retrieval.NoContextMessage, result.Answer)
	assert.Empty(t, result.References)
	assert.Empty(t, env.backend.prompts, "no-context answer must not reach the model")

	last := env.store.lastMessage()
	require.NotNil(t, last)
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Equal(t, retrieval.NoContextMessage, last.Text)
}

func TestAsk_DocumentScopedEmptyMessage(t *testing.T) {
	env := newTestEnv()
	env.retriever.err = services.ErrDocumentNoContent

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: DocumentScope("thesis.pdf"),
	})

	require.NoError(t, err)
	assert.Equal(t, DocumentNoContentMessage("thesis.pdf"), result.Answer)
	assert.NotContains(t, result.Answer, "passage")
	assert.Empty(t, env.backend.prompts)
	assert.Equal(t, "thesis.pdf", env.retriever.gotDoc)
}

func TestAsk_SinglePassageSingleCitation(t *testing.T) {
	env := newTestEnv()
	// Two sub-queries retrieved the same passage; the merger already
	// deduplicated it, so exactly one context entry reaches the prompt.
	env.expander.queries = []string{"What is X?", "definition of X"}
	env.retriever.passages = []models.Passage{
		{Text: "X is a thing.", SourceID: "doc.pdf", ChunkIndex: 4, OwnerID: "u1"},
	}
	env.backend.output = "X is a thing [1]."

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: CorpusScope(),
	})

	require.NoError(t, err)
	require.Len(t, result.References, 1)
	assert.Equal(t, 1, result.References[0].CitationIndex)
	assert.Equal(t, "doc.pdf", result.References[0].SourceID)
	assert.Equal(t, 4, result.References[0].ChunkIndex)

	last := env.store.lastMessage()
	require.NotNil(t, last)
	assert.Equal(t, result.References, last.ParsedReferences())
}

func TestAsk_ReasoningVariantSelection(t *testing.T) {
	env := newTestEnv()
	env.retriever.passages = []models.Passage{{Text: "ctx", SourceID: "d.pdf", OwnerID: "u1"}}

	_, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "Explain step by step how X works", Scope: CorpusScope(),
	})
	require.NoError(t, err)

	_, err = env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: CorpusScope(),
	})
	require.NoError(t, err)

	require.Len(t, env.backend.prompts, 2)
	assert.Contains(t, env.backend.prompts[0], "THINKING PROCESS (MANDATORY)")
	assert.Contains(t, env.backend.prompts[1], "INSTRUCTIONS (Concise)")
}

func TestAsk_ParsesReasoning(t *testing.T) {
	env := newTestEnv()
	env.backend.output = "<thinking>checking the context</thinking>The answer."

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, "The answer.", result.Answer)
	assert.Equal(t, "checking the context", result.Reasoning)

	last := env.store.lastMessage()
	require.NotNil(t, last)
	require.NotNil(t, last.Reasoning)
	assert.Equal(t, "checking the context", *last.Reasoning)
}

func TestAsk_EmptyAnswerWithReasoning(t *testing.T) {
	env := newTestEnv()
	env.backend.output = "<thinking>all reasoning, no answer</thinking>"

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, EmptyAnswerPlaceholder, result.Answer)
}

func TestAsk_EmptyAnswerNoReasoning(t *testing.T) {
	env := newTestEnv()
	env.backend.output = "   "

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, EmptyResponseError, result.Answer)
}

func TestAsk_BackendFailureApologizes(t *testing.T) {
	env := newTestEnv()
	env.backend.err = providers.NewBackendError("ollama", "http://localhost:11434", "boom", 0, nil)

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err, "backend failure becomes an answer, not an error")
	assert.Equal(t, ApologyMessage("BackendError"), result.Answer)

	last := env.store.lastMessage()
	require.NotNil(t, last)
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Equal(t, result.Answer, last.Text)
}

func TestAsk_TimeoutApologizes(t *testing.T) {
	env := newTestEnv()
	env.backend.err = &providers.BackendError{
		Backend:  "ollama",
		Endpoint: "http://localhost:11434",
		Message:  "request timed out",
		Timeout:  true,
	}

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, ApologyMessage("Timeout"), result.Answer)
}

func TestAsk_PersistsUserAndAssistantTurns(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	require.Len(t, env.store.messages, 2)
	assert.Equal(t, models.RoleUser, env.store.messages[0].Role)
	assert.Equal(t, "What is X?", env.store.messages[0].Text)
	assert.Equal(t, models.RoleAssistant, env.store.messages[1].Role)
}

func TestAsk_SavesRecomputedSummary(t *testing.T) {
	env := newTestEnv()
	env.memory.commit = memory.CommitResult{Summary: "a summary", SummarizedThrough: 4, Changed: true}

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, "a summary", env.store.summaries[result.ThreadID])
}

func TestAsk_MemoryCommitFailureIsSilent(t *testing.T) {
	env := newTestEnv()
	env.memory.err = services.ErrInternal

	result, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	assert.Equal(t, "An answer.", result.Answer)
	assert.Empty(t, env.store.summaries)
}

func TestAsk_NotifyStages(t *testing.T) {
	env := newTestEnv()
	env.retriever.passages = []models.Passage{{Text: "ctx", SourceID: "d.pdf", OwnerID: "u1"}}
	var stages []string

	_, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID:  "u1",
		Question: "What is X?",
		Scope:    DocumentScope("d.pdf"),
		Notify:   func(stage string) { stages = append(stages, stage) },
	})

	require.NoError(t, err)
	require.NotEmpty(t, stages)
	assert.Equal(t, "Starting AI processing...", stages[0])
	assert.Contains(t, stages, "Searching in document: d.pdf...")
	assert.Contains(t, stages, "Invoking LLM for synthesis...")
}

func TestAsk_UsesHistoryInPrompt(t *testing.T) {
	env := newTestEnv()
	env.memory.summary = "Earlier the student asked about entropy."
	env.memory.turns = []memory.Turn{{Role: models.RoleUser, Text: "and enthalpy?"}}

	_, err := env.svc.Ask(context.Background(), AskRequest{
		OwnerID: "u1", Question: "What is X?", Scope: GeneralScope(),
	})

	require.NoError(t, err)
	require.Len(t, env.backend.prompts, 1)
	assert.Contains(t, env.backend.prompts[0], "Earlier the student asked about entropy.")
	assert.Contains(t, env.backend.prompts[0], "and enthalpy?")
}
