package analysis

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/routing"
)

// EmptyAnalysisPlaceholder replaces an empty analysis that still produced reasoning
const EmptyAnalysisPlaceholder = "[AI response was empty. See reasoning process.]"

// Kind selects which analysis to run over a document
type Kind string

const (
	KindFAQ     Kind = "faq"
	KindTopics  Kind = "topics"
	KindMindmap Kind = "mindmap"
	KindPodcast Kind = "podcast"
)

// ParseKind validates a client-supplied analysis kind
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFAQ, KindTopics, KindMindmap, KindPodcast:
		return Kind(s), nil
	default:
		return "", services.ErrInvalidAnalysisKind
	}
}

// Result is the outcome of one document analysis
type Result struct {
	Content   string
	Reasoning string
	Truncated bool
}

// TextSource yields extracted document text for one owner's document
type TextSource interface {
	Text(ctx context.Context, ownerID, filename string) (string, error)
}

// Service generates whole-document analyses (FAQ, topics, mindmap, podcast)
type Service struct {
	texts      TextSource
	backend    providers.ModelBackend
	pool       *routing.BackendPool
	maxContext int
	logger     *zap.Logger
}

// NewService creates an analysis Service
func NewService(texts TextSource, backend providers.ModelBackend, pool *routing.BackendPool, maxContext int, logger *zap.Logger) *Service {
	return &Service{
		texts:      texts,
		backend:    backend,
		pool:       pool,
		maxContext: maxContext,
		logger:     logger,
	}
}

// Analyze runs one analysis kind over a document's full text
func (s *Service) Analyze(ctx context.Context, ownerID, filename string, kind Kind) (Result, error) {
	s.logger.Debug("Step 1: Loading document text for analysis",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.String("kind", string(kind)))

	text, err := s.texts.Text(ctx, ownerID, filename)
	if err != nil {
		return Result{}, err
	}
	if text == "" {
		return Result{}, services.ErrEmptyDocument
	}

	truncated := false
	if len(text) > s.maxContext {
		text = truncateText(text, s.maxContext)
		truncated = true
		s.logger.Warn("Document text truncated for analysis",
			zap.String("filename", filename),
			zap.Int("max_context", s.maxContext))
	}

	prompt, err := s.buildPrompt(kind, text)
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("Step 2: Invoking model for analysis",
		zap.Int("prompt_length", len(prompt)))

	endpoint, err := s.pool.Next()
	if err != nil {
		return Result{}, err
	}
	raw, err := s.backend.Generate(ctx, endpoint.URL, prompt)
	if err != nil {
		return Result{}, services.WrapBackend("analysis generation failed", err)
	}

	s.logger.Debug("Step 3: Parsing analysis response",
		zap.Int("response_length", len(raw)))

	content, reasoning := providers.SplitReasoning(raw)
	if content == "" {
		if reasoning == "" {
			return Result{}, services.ErrEmptyModelOutput
		}
		content = EmptyAnalysisPlaceholder
	}

	return Result{Content: content, Reasoning: reasoning, Truncated: truncated}, nil
}

func (s *Service) buildPrompt(kind Kind, text string) (string, error) {
	switch kind {
	case KindFAQ:
		return FAQPrompt{DocumentText: text}.Render(), nil
	case KindTopics:
		return TopicsPrompt{DocumentText: text}.Render(), nil
	case KindMindmap:
		return MindmapPrompt{DocumentText: text}.Render(), nil
	case KindPodcast:
		return PodcastPrompt{DocumentText: text}.Render(), nil
	default:
		return "", services.ErrInvalidAnalysisKind
	}
}

// truncateText cuts text to at most max bytes without splitting a rune
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
