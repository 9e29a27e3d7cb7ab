package expansion

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/routing"
)

// SubQueryPrompt carries the fields of the sub-query generation prompt.
type SubQueryPrompt struct {
	Question string
	Count    int
}

// Render produces the instruction sent to the model.
func (p SubQueryPrompt) Render() string {
	return fmt.Sprintf(`You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database. By generating multiple perspectives on the user question, your goal is to help overcome some of the limitations of distance-based similarity search.

Provide these alternative questions separated by newlines, without numbering or commentary.

Original question: %s`, p.Count, p.Question)
}

// Expander turns one user question into several semantically diverse
// search queries via the model backend.
type Expander struct {
	backend providers.ModelBackend
	pool    *routing.BackendPool
	logger  *zap.Logger
}

// NewExpander creates a new query expander
func NewExpander(backend providers.ModelBackend, pool *routing.BackendPool, logger *zap.Logger) *Expander {
	return &Expander{
		backend: backend,
		pool:    pool,
		logger:  logger,
	}
}

// Expand returns up to n+1 queries, the original always first. Any
// backend failure or empty model output degrades silently to the
// original query alone; retrieval still works with a single query.
func (e *Expander) Expand(ctx context.Context, query string, n int) []string {
	if n <= 0 {
		return []string{query}
	}

	endpoint, err := e.pool.Next()
	if err != nil {
		e.logger.Warn("query expansion skipped: no endpoint", zap.Error(err))
		return []string{query}
	}

	prompt := SubQueryPrompt{Question: query, Count: n}.Render()
	raw, err := e.backend.Generate(ctx, endpoint.URL, prompt)
	if err != nil {
		e.logger.Warn("query expansion failed, falling back to original query",
			zap.String("endpoint", endpoint.URL),
			zap.Error(err),
		)
		return []string{query}
	}

	queries := mergeSubQueries(query, parseSubQueries(raw), n)
	e.logger.Debug("expanded query",
		zap.String("original", query),
		zap.Int("generated", len(queries)-1),
	)
	return queries
}

// listMarker matches a single leading bullet or "1." / "2)" style
// numbering. Bounded so digits that start the query itself survive.
var listMarker = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+`)

// parseSubQueries extracts candidate sub-queries from raw model output,
// one per non-empty line, stripping list markers the model tends to add.
func parseSubQueries(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// mergeSubQueries dedupes generated queries against the original while
// preserving order, and caps the result at n+1 entries.
func mergeSubQueries(original string, generated []string, n int) []string {
	result := []string{original}
	seen := map[string]bool{normalizeQuery(original): true}

	for _, q := range generated {
		if len(result) >= n+1 {
			break
		}
		key := normalizeQuery(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, q)
	}
	return result
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
