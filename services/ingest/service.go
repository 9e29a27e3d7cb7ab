package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/services/doccache"
	"github.com/upb/ai-tutor/backend/services/vectorindex"
)

// DocumentStore persists indexing state for stored documents
type DocumentStore interface {
	MarkIndexed(ctx context.Context, ownerID, filename string, chunkCount int) error
}

// Service runs the ingestion pipeline: extract, chunk, embed, index, snapshot
type Service struct {
	provider    DocumentProvider
	cache       *doccache.Cache
	chunker     *Chunker
	index       *vectorindex.Index
	store       DocumentStore
	snapshotDir string
	logger      *zap.Logger
}

// NewService creates an ingestion Service with all dependencies injected
func NewService(
	provider DocumentProvider,
	cache *doccache.Cache,
	chunker *Chunker,
	index *vectorindex.Index,
	store DocumentStore,
	snapshotDir string,
	logger *zap.Logger,
) *Service {
	return &Service{
		provider:    provider,
		cache:       cache,
		chunker:     chunker,
		index:       index,
		store:       store,
		snapshotDir: snapshotDir,
		logger:      logger,
	}
}

// IndexDocument extracts, chunks, embeds and indexes one document, returning
// the number of passages indexed. Re-indexing replaces the source's vectors.
func (s *Service) IndexDocument(ctx context.Context, ownerID, filename string) (int, error) {
	s.logger.Debug("Step 1: Extracting document text",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename))

	text, err := s.Text(ctx, ownerID, filename)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, services.ErrEmptyDocument
	}

	s.logger.Debug("Step 2: Chunking document text",
		zap.Int("text_length", len(text)))

	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, services.ErrEmptyDocument
	}

	passages := make([]models.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		passages = append(passages, models.Passage{
			Text:       chunk,
			SourceID:   filename,
			ChunkIndex: i,
			OwnerID:    ownerID,
		})
	}

	// Re-ingest must not leave stale chunks behind
	removed := s.index.DeleteBySource(ownerID, filename)
	if removed > 0 {
		s.logger.Debug("Removed stale vectors before re-indexing",
			zap.Int("removed", removed))
	}

	s.logger.Debug("Step 3: Embedding and indexing passages",
		zap.Int("passage_count", len(passages)))

	if err := s.index.Add(ctx, passages); err != nil {
		return 0, err
	}

	s.logger.Debug("Step 4: Saving index snapshot")
	if err := s.index.SaveSnapshot(s.snapshotDir); err != nil {
		// Index is still serving from memory; snapshot retries on next ingest
		s.logger.Warn("Failed to save index snapshot", zap.Error(err))
	}

	s.logger.Debug("Step 5: Marking document indexed",
		zap.Int("chunk_count", len(passages)))
	if err := s.store.MarkIndexed(ctx, ownerID, filename, len(passages)); err != nil {
		return 0, err
	}

	s.logger.Info("Document indexed",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.Int("chunk_count", len(passages)))

	return len(passages), nil
}

// Text returns the extracted text for a document, serving from the cache
// when possible
func (s *Service) Text(ctx context.Context, ownerID, filename string) (string, error) {
	key := doccache.CacheKey{OwnerID: ownerID, Filename: filename}
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	result, err := s.provider.GetText(ctx, ownerID, filename)
	if err != nil {
		return "", err
	}
	if result.Status == ExtractionDegraded {
		s.logger.Warn("Using degraded document text",
			zap.String("filename", filename),
			zap.String("detail", result.Detail))
	}

	s.cache.Set(key, result.Text)
	return result.Text, nil
}

// RemoveDocument deletes a source's vectors and cached text, returning the
// number of vectors removed
func (s *Service) RemoveDocument(ownerID, filename string) int {
	removed := s.index.DeleteBySource(ownerID, filename)
	s.cache.Invalidate(doccache.CacheKey{OwnerID: ownerID, Filename: filename})

	if err := s.index.SaveSnapshot(s.snapshotDir); err != nil {
		s.logger.Warn("Failed to save index snapshot after deletion", zap.Error(err))
	}

	s.logger.Info("Document removed from index",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.Int("vectors_removed", removed))
	return removed
}
