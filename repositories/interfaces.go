package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/upb/ai-tutor/backend/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user account data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// DocumentRepository handles uploaded document metadata
type DocumentRepository interface {
	// Create records a newly uploaded document
	Create(ctx context.Context, doc *models.Document) error

	// GetByFilename retrieves one of the owner's documents by stored filename
	GetByFilename(ctx context.Context, ownerID, filename string) (*models.Document, error)

	// GetByOwner retrieves all of the owner's documents, newest first
	GetByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)

	// MarkIndexed records that the document's passages are in the vector index
	MarkIndexed(ctx context.Context, ownerID, filename string, chunkCount int) error

	// Delete removes one of the owner's documents
	Delete(ctx context.Context, ownerID, filename string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) DocumentRepository
}

// ThreadRepository handles chat thread data operations
type ThreadRepository interface {
	// Create creates a new thread
	Create(ctx context.Context, thread *models.ChatThread) error

	// GetByID retrieves one of the owner's threads
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.ChatThread, error)

	// GetByOwner retrieves all of the owner's threads, most recently updated first
	GetByOwner(ctx context.Context, ownerID string) ([]*models.ChatThread, error)

	// Rename updates a thread's title
	Rename(ctx context.Context, ownerID string, id uuid.UUID, title string) error

	// SaveSummary persists a recomputed rolling summary and its fold point
	SaveSummary(ctx context.Context, ownerID string, id uuid.UUID, summary string, summarizedThrough int) error

	// Delete removes one of the owner's threads
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) ThreadRepository
}

// MessageRepository handles persisted chat turns
type MessageRepository interface {
	// Create persists a message
	Create(ctx context.Context, msg *models.ChatMessage) error

	// GetByThread retrieves a thread's messages in chronological order
	GetByThread(ctx context.Context, ownerID string, threadID uuid.UUID) ([]*models.ChatMessage, error)

	// DeleteByThread removes all messages of a thread
	DeleteByThread(ctx context.Context, ownerID string, threadID uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) MessageRepository
}

// Repositories bundles all repository implementations
type Repositories struct {
	Users     UserRepository
	Documents DocumentRepository
	Threads   ThreadRepository
	Messages  MessageRepository
}
