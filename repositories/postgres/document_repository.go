package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/repositories"
	"github.com/upb/ai-tutor/backend/services"
)

// DocumentRepository implements the repositories.DocumentRepository interface
type DocumentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB, logger *zap.Logger) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a newly uploaded document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, owner_id, filename, original_filename, content_type, size_bytes, indexed, chunk_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Filename,
		doc.OriginalFilename,
		doc.ContentType,
		doc.SizeBytes,
		doc.Indexed,
		doc.ChunkCount,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Debug("document created",
		zap.String("id", doc.ID.String()),
		zap.String("owner_id", doc.OwnerID),
		zap.String("filename", doc.Filename))
	return nil
}

// GetByFilename retrieves one of the owner's documents by stored filename
func (r *DocumentRepository) GetByFilename(ctx context.Context, ownerID, filename string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, filename, original_filename, content_type, size_bytes, indexed, chunk_count, created_at, updated_at
		FROM documents
		WHERE owner_id = $1 AND filename = $2
	`

	executor := GetExecutor(ctx, r.db)
	doc := &models.Document{}

	err := executor.QueryRowContext(ctx, query, ownerID, filename).Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Filename,
		&doc.OriginalFilename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.Indexed,
		&doc.ChunkCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetByOwner retrieves all of the owner's documents, newest first
func (r *DocumentRepository) GetByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	query := `
		SELECT id, owner_id, filename, original_filename, content_type, size_bytes, indexed, chunk_count, created_at, updated_at
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&doc.Filename,
			&doc.OriginalFilename,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.Indexed,
			&doc.ChunkCount,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// MarkIndexed records that the document's passages are in the vector index
func (r *DocumentRepository) MarkIndexed(ctx context.Context, ownerID, filename string, chunkCount int) error {
	query := `
		UPDATE documents
		SET indexed = true,
		    chunk_count = $3,
		    updated_at = $4
		WHERE owner_id = $1 AND filename = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, ownerID, filename, chunkCount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrDocumentNotFound
	}

	r.logger.Debug("document marked indexed",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.Int("chunk_count", chunkCount))
	return nil
}

// Delete removes one of the owner's documents
func (r *DocumentRepository) Delete(ctx context.Context, ownerID, filename string) error {
	query := `DELETE FROM documents WHERE owner_id = $1 AND filename = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, ownerID, filename)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrDocumentNotFound
	}

	r.logger.Debug("document deleted",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *DocumentRepository) WithTx(tx repositories.Transaction) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     r.db,
		logger: r.logger,
	}
}
