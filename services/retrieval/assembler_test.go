package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/ai-tutor/backend/models"
)

func TestAssemble(t *testing.T) {
	passages := []models.Passage{
		{Text: "Osmosis moves water across membranes.", SourceID: "biology.pdf", ChunkIndex: 4, OwnerID: "u1"},
		{Text: "Diffusion spreads particles.", SourceID: "biology.pdf", ChunkIndex: 7, OwnerID: "u1"},
	}

	text, contextMap := Assemble(passages)

	require.Len(t, contextMap, 2)
	assert.Equal(t, 1, contextMap[1].CitationIndex)
	assert.Equal(t, "biology.pdf", contextMap[1].SourceID)
	assert.Equal(t, 4, contextMap[1].ChunkIndex)
	assert.Equal(t, "Osmosis moves water across membranes.", contextMap[1].Text)
	assert.Equal(t, 2, contextMap[2].CitationIndex)

	assert.Contains(t, text, "[1] Source: biology.pdf | Chunk Index: 4\nOsmosis moves water across membranes.")
	assert.Contains(t, text, "[2] Source: biology.pdf | Chunk Index: 7\nDiffusion spreads particles.")
	assert.Contains(t, text, "\n\n---\n\n")
}

func TestAssemble_IndicesContiguous(t *testing.T) {
	passages := []models.Passage{
		{Text: "a", SourceID: "x.pdf", ChunkIndex: 9},
		{Text: "b", SourceID: "y.pdf", ChunkIndex: 2},
		{Text: "c", SourceID: "z.pdf", ChunkIndex: 5},
	}

	_, contextMap := Assemble(passages)

	require.Len(t, contextMap, 3)
	for n := 1; n <= 3; n++ {
		entry, ok := contextMap[n]
		require.True(t, ok, "missing citation index %d", n)
		assert.Equal(t, n, entry.CitationIndex)
	}
}

func TestAssemble_Empty(t *testing.T) {
	text, contextMap := Assemble(nil)

	assert.Equal(t, NoContextMessage, text)
	assert.Empty(t, contextMap)
}

func TestAssemble_SingleBlockHasNoSeparator(t *testing.T) {
	text, _ := Assemble([]models.Passage{{Text: "only", SourceID: "a.pdf"}})

	assert.False(t, strings.Contains(text, contextSeparator))
}
