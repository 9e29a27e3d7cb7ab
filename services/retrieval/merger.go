package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
)

// minFetchMultiplier compensates for candidates lost to the owner filter
// and deduplication after the per-query fetch.
const minFetchMultiplier = 3

// Searcher is the slice of the vector index the merger depends on.
type Searcher interface {
	Search(ctx context.Context, queryText string, k int) ([]models.ScoredCandidate, error)
	Size() int
}

// Merger fans a query set out to the vector index, deduplicates and
// ranks the candidates, and enforces per-owner access control.
type Merger struct {
	index           Searcher
	fetchMultiplier int
	logger          *zap.Logger
}

// NewMerger creates a new retrieval merger. Multipliers below the floor
// are raised to it.
func NewMerger(index Searcher, fetchMultiplier int, logger *zap.Logger) *Merger {
	if fetchMultiplier < minFetchMultiplier {
		fetchMultiplier = minFetchMultiplier
	}
	return &Merger{
		index:           index,
		fetchMultiplier: fetchMultiplier,
		logger:          logger,
	}
}

// Search retrieves the k best passages for the query set, scoped to the
// owner and optionally to one source document. An empty outcome is
// reported as a typed error so callers can tell "nothing indexed"
// (ErrNoContextFound) from "document has nothing relevant"
// (ErrDocumentNoContent).
func (m *Merger) Search(ctx context.Context, queries []string, ownerID, documentFilter string, k int) ([]models.Passage, error) {
	live := make([]string, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			live = append(live, q)
		}
	}
	if len(live) == 0 || k <= 0 {
		return nil, m.emptyResult(documentFilter)
	}

	// Step 1: fan out the sub-query searches concurrently. One query's
	// failure is logged and skipped, never aborting the others.
	fetchK := k * m.fetchMultiplier
	var (
		mu   sync.Mutex
		pool []models.ScoredCandidate
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, query := range live {
		query := query
		g.Go(func() error {
			candidates, err := m.index.Search(gctx, query, fetchK)
			if err != nil {
				m.logger.Warn("sub-query search failed, skipping",
					zap.String("query", query),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			pool = append(pool, candidates...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Step 2: access control, then optional document scoping.
	filtered := pool[:0]
	for _, c := range pool {
		if c.Passage.OwnerID != ownerID {
			continue
		}
		if documentFilter != "" && c.Passage.SourceID != documentFilter {
			continue
		}
		filtered = append(filtered, c)
	}

	// Step 3: deduplicate by retrieval key, keeping the minimum score.
	best := make(map[models.RetrievalKey]models.ScoredCandidate, len(filtered))
	for _, c := range filtered {
		key := c.Passage.Key()
		if existing, ok := best[key]; !ok || c.Score < existing.Score {
			best[key] = c
		}
	}

	// Step 4: rank ascending by score and truncate to k.
	merged := make([]models.ScoredCandidate, 0, len(best))
	for _, c := range best {
		merged = append(merged, c)
	}
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Score < merged[b].Score
	})
	if len(merged) > k {
		merged = merged[:k]
	}

	if len(merged) == 0 {
		return nil, m.emptyResult(documentFilter)
	}

	passages := make([]models.Passage, len(merged))
	for i, c := range merged {
		passages[i] = c.Passage
	}

	m.logger.Debug("merged retrieval results",
		zap.Int("queries", len(live)),
		zap.Int("pooled", len(pool)),
		zap.Int("returned", len(passages)),
	)
	return passages, nil
}

// emptyResult distinguishes a document-scoped miss from a globally empty
// retrieval. An empty index always reports as "nothing indexed", even
// under a document filter.
func (m *Merger) emptyResult(documentFilter string) error {
	if documentFilter != "" && m.index.Size() > 0 {
		return services.ErrDocumentNoContent
	}
	return services.ErrNoContextFound
}
