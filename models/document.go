package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents an uploaded source document owned by one user
type Document struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OwnerID          string    `json:"owner_id" db:"owner_id"`
	Filename         string    `json:"filename" db:"filename"` // stored name, the retrieval source_id
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	ContentType      string    `json:"content_type" db:"content_type"`
	SizeBytes        int64     `json:"size_bytes" db:"size_bytes"`
	Indexed          bool      `json:"indexed" db:"indexed"`
	ChunkCount       int       `json:"chunk_count" db:"chunk_count"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new Document instance
func NewDocument(ownerID, filename, originalFilename, contentType string, sizeBytes int64) *Document {
	now := time.Now()
	return &Document{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Filename:         filename,
		OriginalFilename: originalFilename,
		ContentType:      contentType,
		SizeBytes:        sizeBytes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// MarkIndexed records that the document's passages are in the vector index
func (d *Document) MarkIndexed(chunkCount int) {
	d.Indexed = true
	d.ChunkCount = chunkCount
	d.UpdatedAt = time.Now()
}
