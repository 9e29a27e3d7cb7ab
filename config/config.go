package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Ollama      OllamaConfig
	RAG         RAGConfig
	Memory      MemoryConfig
	Storage     StorageConfig
	LogLevel    string
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// OllamaConfig holds the model-serving pool configuration
type OllamaConfig struct {
	Endpoints      []string // round-robin pool of base URLs
	Model          string
	EmbedModel     string
	RequestTimeout time.Duration
}

// RAGConfig holds retrieval pipeline tuning knobs
type RAGConfig struct {
	ChunkK             int // final passages per answer
	SearchKPerQuery    int // base k per expanded sub-query
	MultiQueryCount    int // sub-queries generated per question
	FetchKMultiplier   int // over-fetch factor before dedupe, minimum 3
	ChunkSize          int
	ChunkOverlap       int
	AnalysisMaxContext int // character cap on document text fed to analysis prompts
}

// MemoryConfig holds conversation memory configuration
type MemoryConfig struct {
	SummaryTokenLimit int // token budget for summary + verbatim turns
	TokenizerEncoding string
}

// StorageConfig holds on-disk state locations and cache sizing
type StorageConfig struct {
	UploadDir        string
	IndexSnapshotDir string
	DocCacheCapacity int
	MaxUploadBytes   int64
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env when run from backend/)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getEnvAsDuration("JWT_TOKEN_TTL", 24*time.Hour),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
		},
		Ollama: OllamaConfig{
			Endpoints:      getEnvAsList("OLLAMA_ENDPOINTS", []string{"http://localhost:11434"}),
			Model:          getEnv("OLLAMA_MODEL", "mistral:7b-instruct"),
			EmbedModel:     getEnv("OLLAMA_EMBED_MODEL", "mxbai-embed-large:latest"),
			RequestTimeout: getEnvAsDuration("OLLAMA_REQUEST_TIMEOUT", 180*time.Second),
		},
		RAG: RAGConfig{
			ChunkK:             getEnvAsInt("RAG_CHUNK_K", 15),
			SearchKPerQuery:    getEnvAsInt("RAG_SEARCH_K_PER_QUERY", 3),
			MultiQueryCount:    getEnvAsInt("RAG_MULTI_QUERY_COUNT", 3),
			FetchKMultiplier:   getEnvAsInt("RAG_FETCH_K_MULTIPLIER", 3),
			ChunkSize:          getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:       getEnvAsInt("RAG_CHUNK_OVERLAP", 150),
			AnalysisMaxContext: getEnvAsInt("ANALYSIS_MAX_CONTEXT_LENGTH", 10000),
		},
		Memory: MemoryConfig{
			SummaryTokenLimit: getEnvAsInt("SUMMARY_BUFFER_TOKEN_LIMIT", 800),
			TokenizerEncoding: getEnv("TOKENIZER_ENCODING", "cl100k_base"),
		},
		Storage: StorageConfig{
			UploadDir:        getEnv("UPLOAD_DIR", "data/uploads"),
			IndexSnapshotDir: getEnv("INDEX_SNAPSHOT_DIR", "data/index"),
			DocCacheCapacity: getEnvAsInt("DOC_CACHE_CAPACITY", 32),
			MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_BYTES", 25*1024*1024)),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if len(c.Ollama.Endpoints) == 0 {
		return fmt.Errorf("at least one model endpoint is required: set OLLAMA_ENDPOINTS")
	}
	for _, endpoint := range c.Ollama.Endpoints {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid model endpoint %q: %w", endpoint, err)
		}
	}

	if c.RAG.FetchKMultiplier < 3 {
		return fmt.Errorf("RAG_FETCH_K_MULTIPLIER must be at least 3, got %d", c.RAG.FetchKMultiplier)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("RAG_CHUNK_OVERLAP (%d) must be smaller than RAG_CHUNK_SIZE (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}

	if c.Memory.SummaryTokenLimit <= 0 {
		return fmt.Errorf("SUMMARY_BUFFER_TOKEN_LIMIT must be positive")
	}

	// JWT secret required in production
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "tutor"),
		Password:        getEnv("DB_PASSWORD", "tutor_password"),
		Database:        getEnv("DB_NAME", "tutor"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList parses a comma-separated env var, trimming whitespace and
// dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
