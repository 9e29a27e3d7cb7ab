package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/repositories"
)

// MessageRepository implements the repositories.MessageRepository interface
type MessageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB, logger *zap.Logger) repositories.MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a message
func (r *MessageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, thread_id, owner_id, role, text, "references", reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var references interface{}
	if len(msg.References) > 0 {
		references = []byte(msg.References)
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		msg.ID,
		msg.ThreadID,
		msg.OwnerID,
		msg.Role,
		msg.Text,
		references,
		msg.Reasoning,
		msg.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	r.logger.Debug("message created",
		zap.String("id", msg.ID.String()),
		zap.String("thread_id", msg.ThreadID.String()),
		zap.String("role", string(msg.Role)))
	return nil
}

// GetByThread retrieves a thread's messages in chronological order
func (r *MessageRepository) GetByThread(ctx context.Context, ownerID string, threadID uuid.UUID) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, thread_id, owner_id, role, text, "references", reasoning, created_at
		FROM chat_messages
		WHERE owner_id = $1 AND thread_id = $2
		ORDER BY created_at ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		var references []byte
		err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.OwnerID,
			&msg.Role,
			&msg.Text,
			&references,
			&msg.Reasoning,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(references) > 0 {
			msg.References = references
		}
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return msgs, nil
}

// DeleteByThread removes all messages of a thread
func (r *MessageRepository) DeleteByThread(ctx context.Context, ownerID string, threadID uuid.UUID) error {
	query := `DELETE FROM chat_messages WHERE owner_id = $1 AND thread_id = $2`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, ownerID, threadID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	r.logger.Debug("thread messages deleted", zap.String("thread_id", threadID.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *MessageRepository) WithTx(tx repositories.Transaction) repositories.MessageRepository {
	return &MessageRepository{
		db:     r.db,
		logger: r.logger,
	}
}
