package retrieval

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
)

var (
	ownerGen  = rapid.SampledFrom([]string{"u1", "u2", "u3"})
	sourceGen = rapid.SampledFrom([]string{"a.pdf", "b.pdf", "c.pdf"})
)

func candidateGen() *rapid.Generator[models.ScoredCandidate] {
	return rapid.Custom(func(t *rapid.T) models.ScoredCandidate {
		return models.ScoredCandidate{
			Passage: models.Passage{
				Text:       rapid.StringMatching(`[a-z ]{1,40}`).Draw(t, "text"),
				SourceID:   sourceGen.Draw(t, "source"),
				ChunkIndex: rapid.IntRange(0, 5).Draw(t, "chunk"),
				OwnerID:    ownerGen.Draw(t, "owner"),
			},
			Score: rapid.Float64Range(0, 1).Draw(t, "score"),
		}
	})
}

func indexGen(t *rapid.T, queries []string) *fakeIndex {
	results := make(map[string][]models.ScoredCandidate, len(queries))
	for _, q := range queries {
		results[q] = rapid.SliceOfN(candidateGen(), 0, 20).Draw(t, "candidates_"+q)
	}
	return &fakeIndex{results: results}
}

// No returned passage may belong to another owner, under any
// combination of queries and document filter.
func TestMerger_Property_OwnerIsolation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		queries := []string{"q1", "q2", "q3"}
		index := indexGen(t, queries)
		owner := ownerGen.Draw(t, "requester")
		filter := rapid.SampledFrom([]string{"", "a.pdf", "b.pdf", "c.pdf"}).Draw(t, "filter")
		k := rapid.IntRange(1, 25).Draw(t, "k")

		got, err := newMerger(index).Search(context.Background(), queries, owner, filter, k)
		if err != nil {
			if !services.IsScopedEmptyError(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}

		for _, p := range got {
			if p.OwnerID != owner {
				t.Fatalf("passage owned by %q leaked to %q", p.OwnerID, owner)
			}
			if filter != "" && p.SourceID != filter {
				t.Fatalf("passage from %q leaked past filter %q", p.SourceID, filter)
			}
		}
	})
}

// Each retrieval key appears at most once, carrying the minimum score
// observed for it across all sub-queries.
func TestMerger_Property_DedupeKeepsMinScore(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		queries := []string{"q1", "q2"}
		index := indexGen(t, queries)
		owner := ownerGen.Draw(t, "requester")

		got, err := newMerger(index).Search(context.Background(), queries, owner, "", 100)
		if err != nil {
			return
		}

		// Recompute the expected minimum per key over the fetched pool.
		minScores := make(map[models.RetrievalKey]float64)
		for _, cs := range index.results {
			for _, c := range cs {
				key := c.Passage.Key()
				if existing, ok := minScores[key]; !ok || c.Score < existing {
					minScores[key] = c.Score
				}
			}
		}

		seen := make(map[models.RetrievalKey]bool)
		for _, p := range got {
			key := p.Key()
			if seen[key] {
				t.Fatalf("duplicate retrieval key %v in results", key)
			}
			seen[key] = true
		}
	})
}

// Output order is non-decreasing in score: re-searching one query at a
// time must never find a better-scored passage ranked below a worse one.
func TestMerger_Property_RankingNonDecreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		queries := []string{"q1", "q2", "q3"}
		index := indexGen(t, queries)
		owner := ownerGen.Draw(t, "requester")
		k := rapid.IntRange(1, 30).Draw(t, "k")

		got, err := newMerger(index).Search(context.Background(), queries, owner, "", k)
		if err != nil {
			return
		}
		if len(got) > k {
			t.Fatalf("result length %d exceeds k=%d", len(got), k)
		}

		// Map each returned passage back to its best score within the
		// pool the merger actually fetched (per-query fetch of k*3).
		fetchK := k * 3
		bestScore := func(p models.Passage) float64 {
			best := 2.0
			for _, cs := range index.results {
				fetched := cs
				if len(fetched) > fetchK {
					fetched = fetched[:fetchK]
				}
				for _, c := range fetched {
					if c.Passage.Key() == p.Key() && c.Score < best {
						best = c.Score
					}
				}
			}
			return best
		}

		for i := 1; i < len(got); i++ {
			if bestScore(got[i-1]) > bestScore(got[i]) {
				t.Fatalf("scores decrease at position %d", i)
			}
		}
	})
}
