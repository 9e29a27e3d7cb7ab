package retrieval

import (
	"strings"

	"github.com/upb/ai-tutor/backend/models"
)

// NoContextMessage is the fixed answer used when retrieval finds nothing
// across the caller's accessible documents.
const NoContextMessage = "No relevant context was found in your accessible documents."

// contextSeparator visibly divides the numbered context blocks.
const contextSeparator = "\n\n---\n\n"

// Assemble turns ranked passages into a citation-indexed context block.
// Citation indices follow input order, 1-based and contiguous. An empty
// input yields the fixed no-context string and an empty map; callers
// must not feed that to the model as if it were real context.
func Assemble(passages []models.Passage) (string, map[int]models.ContextEntry) {
	contextMap := make(map[int]models.ContextEntry, len(passages))
	if len(passages) == 0 {
		return NoContextMessage, contextMap
	}

	blocks := make([]string, len(passages))
	for i, p := range passages {
		entry := models.ContextEntry{
			CitationIndex: i + 1,
			SourceID:      p.SourceID,
			ChunkIndex:    p.ChunkIndex,
			Text:          p.Text,
		}
		contextMap[entry.CitationIndex] = entry
		blocks[i] = entry.Label() + "\n" + p.Text
	}

	return strings.Join(blocks, contextSeparator), contextMap
}
