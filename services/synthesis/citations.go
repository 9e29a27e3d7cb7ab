package synthesis

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/upb/ai-tutor/backend/models"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ResolveCitations maps [n] markers in the answer back to the context
// entries that carried them. Markers with no matching entry are ignored;
// each cited source appears once, ordered by citation index.
func ResolveCitations(answer string, entries map[int]models.ContextEntry) []models.Reference {
	if len(entries) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var refs []models.Reference
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || seen[n] {
			continue
		}
		entry, ok := entries[n]
		if !ok {
			continue
		}
		seen[n] = true
		refs = append(refs, models.Reference{
			CitationIndex: entry.CitationIndex,
			SourceID:      entry.SourceID,
			ChunkIndex:    entry.ChunkIndex,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].CitationIndex < refs[j].CitationIndex
	})
	return refs
}
