package models

import "fmt"

// Passage is a chunk of source-document text with owner and position
// metadata. Immutable once indexed.
type Passage struct {
	Text       string `json:"text"`
	SourceID   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
	OwnerID    string `json:"owner_id"`
}

// RetrievalKey identifies a logical passage across sub-query retrievals.
// Two candidates with the same key are the same passage reached via
// different expanded queries.
type RetrievalKey struct {
	SourceID   string
	ChunkIndex int
	OwnerID    string
}

// Key returns the deduplication identity of the passage.
func (p Passage) Key() RetrievalKey {
	return RetrievalKey{
		SourceID:   p.SourceID,
		ChunkIndex: p.ChunkIndex,
		OwnerID:    p.OwnerID,
	}
}

// ScoredCandidate pairs a passage with its distance score from a
// nearest-neighbor search. Lower score means more relevant.
type ScoredCandidate struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// ContextEntry is one numbered context unit an answer may cite as [n].
// CitationIndex values are 1-based and contiguous within a single
// synthesis call.
type ContextEntry struct {
	CitationIndex int    `json:"citation_index"`
	SourceID      string `json:"source_id"`
	ChunkIndex    int    `json:"chunk_index"`
	Text          string `json:"text"`
}

// Label returns the header line used when rendering the entry into a
// prompt context block.
func (e ContextEntry) Label() string {
	return fmt.Sprintf("[%d] Source: %s | Chunk Index: %d", e.CitationIndex, e.SourceID, e.ChunkIndex)
}

// Reference records a resolved citation from an assistant answer back to
// the passage it cites.
type Reference struct {
	CitationIndex int    `json:"citation_index"`
	SourceID      string `json:"source_id"`
	ChunkIndex    int    `json:"chunk_index"`
}
