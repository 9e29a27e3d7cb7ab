package vectorindex

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/routing"
)

// indexEntry pairs an embedding with its passage. Entries are never
// mutated after insertion; deletion removes them wholesale.
type indexEntry struct {
	Embedding []float32
	Passage   models.Passage
}

// Index is an in-memory approximate nearest-neighbor store over passage
// embeddings. Scores follow distance semantics: lower is more relevant.
type Index struct {
	mu      sync.RWMutex
	entries []indexEntry

	backend providers.ModelBackend
	pool    *routing.BackendPool
	logger  *zap.Logger
}

// NewIndex creates an empty index backed by the given embedding backend
func NewIndex(backend providers.ModelBackend, pool *routing.BackendPool, logger *zap.Logger) *Index {
	return &Index{
		backend: backend,
		pool:    pool,
		logger:  logger,
	}
}

// embedConcurrency bounds parallel embedding calls per batch.
const embedConcurrency = 4

// Add embeds the passages concurrently and inserts them into the index.
// Each embedding call draws its own endpoint from the pool. Nothing is
// inserted if any passage fails to embed.
func (i *Index) Add(ctx context.Context, passages []models.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	entries := make([]indexEntry, len(passages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for idx, p := range passages {
		idx, p := idx, p
		g.Go(func() error {
			endpoint, err := i.pool.Next()
			if err != nil {
				return err
			}
			embedding, err := i.backend.Embed(gctx, endpoint.URL, p.Text)
			if err != nil {
				return services.WrapBackend("embedding passage failed", err)
			}
			entries[idx] = indexEntry{Embedding: embedding, Passage: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	i.mu.Lock()
	i.entries = append(i.entries, entries...)
	total := len(i.entries)
	i.mu.Unlock()

	i.logger.Debug("indexed passages",
		zap.Int("added", len(entries)),
		zap.Int("total", total),
	)
	return nil
}

// Search embeds the query and returns the k nearest candidates with
// their distance scores. A blank query or empty index yields an empty
// result, not an error.
func (i *Index) Search(ctx context.Context, queryText string, k int) ([]models.ScoredCandidate, error) {
	if strings.TrimSpace(queryText) == "" || i.Size() == 0 || k <= 0 {
		return nil, nil
	}

	endpoint, err := i.pool.Next()
	if err != nil {
		return nil, err
	}

	queryVec, err := i.backend.Embed(ctx, endpoint.URL, queryText)
	if err != nil {
		return nil, services.WrapBackend("embedding query failed", err)
	}

	i.mu.RLock()
	candidates := make([]models.ScoredCandidate, 0, len(i.entries))
	for _, e := range i.entries {
		candidates = append(candidates, models.ScoredCandidate{
			Passage: e.Passage,
			Score:   cosineDistance(queryVec, e.Embedding),
		})
	}
	i.mu.RUnlock()

	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].Score < candidates[b].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Size returns the number of indexed vectors
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// DeleteBySource removes every vector whose passage belongs to the given
// owner and source document. Returns the number of vectors removed.
func (i *Index) DeleteBySource(ownerID, sourceID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	kept := i.entries[:0]
	removed := 0
	for _, e := range i.entries {
		if e.Passage.OwnerID == ownerID && e.Passage.SourceID == sourceID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	i.entries = kept

	if removed > 0 {
		i.logger.Info("removed vectors for deleted document",
			zap.String("owner_id", ownerID),
			zap.String("source_id", sourceID),
			zap.Int("removed", removed),
		)
	}
	return removed
}

// cosineDistance converts cosine similarity into distance semantics so
// that lower scores rank first. Zero vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
