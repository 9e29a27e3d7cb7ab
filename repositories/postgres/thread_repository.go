package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/repositories"
	"github.com/upb/ai-tutor/backend/services"
)

// ThreadRepository implements the repositories.ThreadRepository interface
type ThreadRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *DB, logger *zap.Logger) repositories.ThreadRepository {
	return &ThreadRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new thread
func (r *ThreadRepository) Create(ctx context.Context, thread *models.ChatThread) error {
	query := `
		INSERT INTO chat_threads (id, owner_id, title, summary, summarized_through, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		thread.ID,
		thread.OwnerID,
		thread.Title,
		thread.Summary,
		thread.SummarizedThrough,
		thread.CreatedAt,
		thread.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}

	r.logger.Debug("thread created",
		zap.String("id", thread.ID.String()),
		zap.String("owner_id", thread.OwnerID))
	return nil
}

// GetByID retrieves one of the owner's threads
func (r *ThreadRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.ChatThread, error) {
	query := `
		SELECT id, owner_id, title, summary, summarized_through, created_at, updated_at
		FROM chat_threads
		WHERE owner_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	thread := &models.ChatThread{}

	err := executor.QueryRowContext(ctx, query, ownerID, id).Scan(
		&thread.ID,
		&thread.OwnerID,
		&thread.Title,
		&thread.Summary,
		&thread.SummarizedThrough,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	return thread, nil
}

// GetByOwner retrieves all of the owner's threads, most recently updated first
func (r *ThreadRepository) GetByOwner(ctx context.Context, ownerID string) ([]*models.ChatThread, error) {
	query := `
		SELECT id, owner_id, title, summary, summarized_through, created_at, updated_at
		FROM chat_threads
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.ChatThread
	for rows.Next() {
		thread := &models.ChatThread{}
		err := rows.Scan(
			&thread.ID,
			&thread.OwnerID,
			&thread.Title,
			&thread.Summary,
			&thread.SummarizedThrough,
			&thread.CreatedAt,
			&thread.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread rows: %w", err)
	}

	return threads, nil
}

// Rename updates a thread's title
func (r *ThreadRepository) Rename(ctx context.Context, ownerID string, id uuid.UUID, title string) error {
	query := `
		UPDATE chat_threads
		SET title = $3,
		    updated_at = $4
		WHERE owner_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, ownerID, id, title, time.Now())
	if err != nil {
		return fmt.Errorf("failed to rename thread: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrThreadNotFound
	}

	r.logger.Debug("thread renamed", zap.String("id", id.String()))
	return nil
}

// SaveSummary persists a recomputed rolling summary and its fold point
func (r *ThreadRepository) SaveSummary(ctx context.Context, ownerID string, id uuid.UUID, summary string, summarizedThrough int) error {
	query := `
		UPDATE chat_threads
		SET summary = $3,
		    summarized_through = $4,
		    updated_at = $5
		WHERE owner_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, ownerID, id, summary, summarizedThrough, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save thread summary: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrThreadNotFound
	}

	r.logger.Debug("thread summary saved",
		zap.String("id", id.String()),
		zap.Int("summarized_through", summarizedThrough))
	return nil
}

// Delete removes one of the owner's threads
func (r *ThreadRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	query := `DELETE FROM chat_threads WHERE owner_id = $1 AND id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrThreadNotFound
	}

	r.logger.Debug("thread deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *ThreadRepository) WithTx(tx repositories.Transaction) repositories.ThreadRepository {
	return &ThreadRepository{
		db:     r.db,
		logger: r.logger,
	}
}
