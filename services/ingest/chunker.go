package ingest

import (
	"strings"
	"unicode/utf8"
)

// chunk boundary separators, tried most to least structural
var boundarySeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits document text into overlapping passages sized for embedding
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker; overlap must be smaller than size
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split divides text into chunks of at most size bytes, overlapping by
// roughly overlap bytes, preferring paragraph then sentence boundaries
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			if piece := strings.TrimSpace(text[start:]); piece != "" {
				chunks = append(chunks, piece)
			}
			break
		}

		cut := c.boundary(text, start, end)
		if piece := strings.TrimSpace(text[start:cut]); piece != "" {
			chunks = append(chunks, piece)
		}

		next := cut - c.overlap
		// Overlap must not stall the scan
		if next <= start {
			next = cut
		}
		start = alignRune(text, next)
	}
	return chunks
}

// boundary picks the cut point for a chunk spanning [start, end), searching
// backwards for the most structural separator in the second half of the window
func (c *Chunker) boundary(text string, start, end int) int {
	end = alignRune(text, end)
	floor := start + c.size/2
	for _, sep := range boundarySeparators {
		idx := strings.LastIndex(text[start:end], sep)
		if idx < 0 {
			continue
		}
		cut := start + idx + len(sep)
		if cut > floor {
			return cut
		}
	}
	return end
}

// alignRune moves pos back to the nearest UTF-8 rune start
func alignRune(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
