package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/upb/ai-tutor/backend/services/providers"
)

// OllamaAdapter implements the ModelBackend interface for Ollama servers.
// The adapter is endpoint-agnostic: every call receives the base URL of
// the server it must talk to.
type OllamaAdapter struct {
	config     providers.BackendConfig
	httpClient *http.Client
}

// NewOllamaAdapter creates a new Ollama adapter
func NewOllamaAdapter(config providers.BackendConfig) *OllamaAdapter {
	if config.Timeout == 0 {
		config.Timeout = providers.DefaultBackendConfig().Timeout
	}

	return &OllamaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the backend name
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// Generate produces a completion for the prompt
func (a *OllamaAdapter) Generate(ctx context.Context, endpoint, prompt string) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  a.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", providers.NewBackendError(a.Name(), endpoint, "failed to marshal request", 0, err)
	}

	respBody, err := a.post(ctx, endpoint, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", providers.NewBackendError(a.Name(), endpoint, "failed to unmarshal response", 0, err)
	}

	return genResp.Response, nil
}

// GenerateStream produces a completion, draining the NDJSON stream and
// invoking onChunk per partial response. Returns the accumulated text.
func (a *OllamaAdapter) GenerateStream(ctx context.Context, endpoint, prompt string, onChunk providers.StreamCallback) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  a.config.Model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return "", providers.NewBackendError(a.Name(), endpoint, "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(endpoint, "/")+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", providers.NewBackendError(a.Name(), endpoint, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", a.wrapTransportError(endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return "", a.handleErrorResponse(endpoint, httpResp.StatusCode, body)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", providers.NewBackendError(a.Name(), endpoint, "failed to unmarshal stream chunk", 0, err)
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if onChunk != nil {
				if err := onChunk(chunk.Response); err != nil {
					return full.String(), err
				}
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", a.wrapTransportError(endpoint, err)
	}

	return full.String(), nil
}

// Embed returns the embedding vector for the text
func (a *OllamaAdapter) Embed(ctx context.Context, endpoint, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbeddingsRequest{
		Model:  a.config.EmbedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, providers.NewBackendError(a.Name(), endpoint, "failed to marshal request", 0, err)
	}

	respBody, err := a.post(ctx, endpoint, "/api/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var embResp ollamaEmbeddingsResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, providers.NewBackendError(a.Name(), endpoint, "failed to unmarshal response", 0, err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, providers.NewBackendError(a.Name(), endpoint, "empty embedding returned", 0, nil)
	}

	return embResp.Embedding, nil
}

// post executes a JSON POST against one endpoint and returns the body
func (a *OllamaAdapter) post(ctx context.Context, endpoint, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(endpoint, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewBackendError(a.Name(), endpoint, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, a.wrapTransportError(endpoint, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewBackendError(a.Name(), endpoint, "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.handleErrorResponse(endpoint, httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

// wrapTransportError classifies connection and deadline failures
func (a *OllamaAdapter) wrapTransportError(endpoint string, err error) error {
	backendErr := providers.NewBackendError(a.Name(), endpoint, "request failed", 0, err)
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		backendErr.Message = fmt.Sprintf("request timed out after %s", a.config.Timeout)
		backendErr.Timeout = true
	}
	return backendErr
}

// handleErrorResponse handles Ollama error responses
func (a *OllamaAdapter) handleErrorResponse(endpoint string, statusCode int, body []byte) error {
	var errResp ollamaErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return providers.NewBackendError(a.Name(), endpoint, fmt.Sprintf("unexpected status %d", statusCode), statusCode, nil)
	}
	return providers.NewBackendError(a.Name(), endpoint, errResp.Error, statusCode, nil)
}

// Ollama-specific request/response types

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}
