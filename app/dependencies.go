package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/config"
	"github.com/upb/ai-tutor/backend/handlers"
	"github.com/upb/ai-tutor/backend/middleware"
	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/repositories"
	"github.com/upb/ai-tutor/backend/repositories/postgres"
	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/services/analysis"
	"github.com/upb/ai-tutor/backend/services/doccache"
	"github.com/upb/ai-tutor/backend/services/expansion"
	"github.com/upb/ai-tutor/backend/services/ingest"
	"github.com/upb/ai-tutor/backend/services/memory"
	"github.com/upb/ai-tutor/backend/services/providers"
	"github.com/upb/ai-tutor/backend/services/providers/ollama"
	"github.com/upb/ai-tutor/backend/services/retrieval"
	"github.com/upb/ai-tutor/backend/services/routing"
	"github.com/upb/ai-tutor/backend/services/synthesis"
	"github.com/upb/ai-tutor/backend/services/vectorindex"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	Documents repositories.DocumentRepository
	Threads   repositories.ThreadRepository
	Messages  repositories.MessageRepository
	TxManager repositories.TransactionManager

	// Model backend
	Backend providers.ModelBackend
	Pool    *routing.BackendPool
	Index   *vectorindex.Index

	// Services
	DocCache  *doccache.Cache
	Ingest    *ingest.Service
	Memory    *memory.Service
	Synthesis *synthesis.Service
	Analysis  *analysis.Service
	Auth      *services.AuthService

	// HTTP layer
	AuthMiddleware  *middleware.AuthMiddleware
	AuthHandler     *handlers.AuthHandler
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	AnalysisHandler *handlers.AnalysisHandler
	HealthHandler   *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initBackend(cfg)
	deps.initServices(cfg)
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, factory and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.Documents = repos.Documents
	d.Threads = repos.Threads
	d.Messages = repos.Messages
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initBackend initializes the model backend adapter and endpoint pool
func (d *Dependencies) initBackend(cfg *config.Config) {
	d.Pool = routing.NewBackendPool(cfg.Ollama.Endpoints, d.Logger)
	d.Backend = ollama.NewOllamaAdapter(providers.BackendConfig{
		Model:      cfg.Ollama.Model,
		EmbedModel: cfg.Ollama.EmbedModel,
		Timeout:    cfg.Ollama.RequestTimeout,
	})

	d.Logger.Info("model backend initialized",
		zap.Int("endpoints", d.Pool.Size()),
		zap.String("model", cfg.Ollama.Model),
		zap.String("embed_model", cfg.Ollama.EmbedModel))
}

// initServices wires the retrieval and generation pipeline
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Index = vectorindex.NewIndex(d.Backend, d.Pool, d.Logger)
	if err := d.Index.LoadSnapshot(cfg.Storage.IndexSnapshotDir); err != nil {
		d.Logger.Warn("failed to load index snapshot, starting empty", zap.Error(err))
	}

	d.DocCache = doccache.New(cfg.Storage.DocCacheCapacity)

	provider := ingest.NewFileProvider(cfg.Storage.UploadDir, d.Logger)
	chunker := ingest.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	d.Ingest = ingest.NewService(provider, d.DocCache, chunker, d.Index, d.Documents, cfg.Storage.IndexSnapshotDir, d.Logger)

	store := &chatStoreAdapter{threads: d.Threads, messages: d.Messages}

	tok := memory.NewTokenizer(cfg.Memory.TokenizerEncoding, d.Logger)
	d.Memory = memory.NewService(store, d.Backend, d.Pool, tok, cfg.Memory.SummaryTokenLimit, d.Logger)

	expander := expansion.NewExpander(d.Backend, d.Pool, d.Logger)
	merger := retrieval.NewMerger(d.Index, cfg.RAG.FetchKMultiplier, d.Logger)

	d.Synthesis = synthesis.NewService(
		expander,
		merger,
		d.Memory,
		store,
		d.Backend,
		d.Pool,
		synthesis.Params{
			MultiQueryCount: cfg.RAG.MultiQueryCount,
			ChunkK:          cfg.RAG.ChunkK,
		},
		d.Logger,
	)

	d.Analysis = analysis.NewService(d.Ingest, d.Backend, d.Pool, cfg.RAG.AnalysisMaxContext, d.Logger)
	d.Auth = services.NewAuthService(d.Users, cfg.Auth, d.Logger)

	d.Logger.Info("services initialized")
}

// initHTTP wires middleware and handlers
func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Auth, d.Logger)

	d.AuthHandler = handlers.NewAuthHandler(d.Auth, cfg.Auth.TokenTTL, d.Logger)
	d.DocumentHandler = handlers.NewDocumentHandler(d.Documents, d.Ingest, cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes, d.Logger)
	d.ChatHandler = handlers.NewChatHandler(d.Synthesis, d.Threads, d.Messages, d.TxManager, d.Logger)
	d.AnalysisHandler = handlers.NewAnalysisHandler(d.Analysis, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Index, d.Pool, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Persist the index so indexed documents survive restarts
	if d.Index != nil {
		if err := d.Index.SaveSnapshot(d.Config.Storage.IndexSnapshotDir); err != nil {
			errs = append(errs, fmt.Errorf("failed to save index snapshot: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

// chatStoreAdapter maps the synthesis and memory store interfaces onto the
// thread and message repositories.
type chatStoreAdapter struct {
	threads  repositories.ThreadRepository
	messages repositories.MessageRepository
}

func (a *chatStoreAdapter) GetThread(ctx context.Context, ownerID string, threadID uuid.UUID) (*models.ChatThread, error) {
	return a.threads.GetByID(ctx, ownerID, threadID)
}

func (a *chatStoreAdapter) CreateThread(ctx context.Context, thread *models.ChatThread) error {
	return a.threads.Create(ctx, thread)
}

func (a *chatStoreAdapter) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	return a.messages.Create(ctx, msg)
}

func (a *chatStoreAdapter) SaveThreadSummary(ctx context.Context, ownerID string, threadID uuid.UUID, summary string, summarizedThrough int) error {
	return a.threads.SaveSummary(ctx, ownerID, threadID, summary, summarizedThrough)
}

func (a *chatStoreAdapter) GetMessages(ctx context.Context, ownerID string, threadID uuid.UUID) ([]*models.ChatMessage, error) {
	return a.messages.GetByThread(ctx, ownerID, threadID)
}
