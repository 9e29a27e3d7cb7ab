package providers

import (
	"context"
	"time"
)

// ModelBackend is the capability surface the engine needs from a
// model-serving runtime. Every call is bound to one endpoint chosen by
// the caller (normally from the round-robin pool) so that load balancing
// stays outside the adapter.
type ModelBackend interface {
	// Name returns the backend name (e.g., "ollama")
	Name() string

	// Generate produces a completion for the prompt
	Generate(ctx context.Context, endpoint, prompt string) (string, error)

	// GenerateStream produces a completion, invoking onChunk for each
	// partial piece of output as it arrives
	GenerateStream(ctx context.Context, endpoint, prompt string, onChunk StreamCallback) (string, error)

	// Embed returns the embedding vector for the text
	Embed(ctx context.Context, endpoint, text string) ([]float32, error)
}

// StreamCallback is called for each chunk in a streaming generation.
// Returning an error aborts the stream.
type StreamCallback func(chunk string) error

// BackendConfig holds common configuration for model backends
type BackendConfig struct {
	// Model used for generation
	Model string

	// EmbedModel used for embeddings
	EmbedModel string

	// Timeout for a single request; the only bound on call latency
	Timeout time.Duration
}

// DefaultBackendConfig returns a sensible default configuration
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Model:      "mistral:7b-instruct",
		EmbedModel: "mxbai-embed-large:latest",
		Timeout:    180 * time.Second,
	}
}

// BackendError represents an error from a model backend
type BackendError struct {
	// Backend that generated the error
	Backend string

	// Endpoint the call was bound to
	Endpoint string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Timeout indicates the request exceeded its deadline
	Timeout bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a new backend error
func NewBackendError(backend, endpoint, message string, statusCode int, cause error) *BackendError {
	return &BackendError{
		Backend:    backend,
		Endpoint:   endpoint,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// IsTimeout checks if an error is a backend timeout
func IsTimeout(err error) bool {
	if backendErr, ok := err.(*BackendError); ok {
		return backendErr.Timeout
	}
	return false
}
