package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/ai-tutor/backend/models"
)

func contextEntries(n int) map[int]models.ContextEntry {
	entries := make(map[int]models.ContextEntry, n)
	for i := 1; i <= n; i++ {
		entries[i] = models.ContextEntry{
			CitationIndex: i,
			SourceID:      "doc.pdf",
			ChunkIndex:    i - 1,
			Text:          "chunk",
		}
	}
	return entries
}

func TestResolveCitations(t *testing.T) {
	refs := ResolveCitations("See [1] and [2], also [1][2].", contextEntries(2))

	require.Len(t, refs, 2)
	assert.Equal(t, 1, refs[0].CitationIndex)
	assert.Equal(t, 2, refs[1].CitationIndex)
	assert.Equal(t, "doc.pdf", refs[0].SourceID)
	assert.Equal(t, 0, refs[0].ChunkIndex)
}

func TestResolveCitations_IgnoresUnknownMarkers(t *testing.T) {
	refs := ResolveCitations("Cited [1], invented [7] and [42].", contextEntries(1))

	require.Len(t, refs, 1)
	assert.Equal(t, 1, refs[0].CitationIndex)
}

func TestResolveCitations_NoMarkers(t *testing.T) {
	assert.Nil(t, ResolveCitations("No citations here.", contextEntries(3)))
}

func TestResolveCitations_NoEntries(t *testing.T) {
	assert.Nil(t, ResolveCitations("Cites [1] into the void.", nil))
}

func TestResolveCitations_OrderedByIndex(t *testing.T) {
	refs := ResolveCitations("First [3], then [1], then [2].", contextEntries(3))

	require.Len(t, refs, 3)
	assert.Equal(t, []int{refs[0].CitationIndex, refs[1].CitationIndex, refs[2].CitationIndex}, []int{1, 2, 3})
}
