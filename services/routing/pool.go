package routing

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/services"
)

// Endpoint is one model-serving base URL from the configured pool.
type Endpoint struct {
	URL string
}

// BackendPool distributes calls across equivalent model-serving endpoints
// in round-robin order. The pool does not probe endpoint health; a dead
// endpoint fails at call time and the caller handles it. One call, one
// endpoint, no retries here.
type BackendPool struct {
	endpoints []Endpoint
	cursor    atomic.Uint64
	logger    *zap.Logger
}

// NewBackendPool creates a pool over the configured endpoint URLs.
func NewBackendPool(urls []string, logger *zap.Logger) *BackendPool {
	endpoints := make([]Endpoint, 0, len(urls))
	for _, u := range urls {
		endpoints = append(endpoints, Endpoint{URL: u})
	}
	return &BackendPool{
		endpoints: endpoints,
		logger:    logger,
	}
}

// Next returns the next endpoint in round-robin order. Safe for
// concurrent use; the cursor is a single shared atomic counter.
func (p *BackendPool) Next() (Endpoint, error) {
	if len(p.endpoints) == 0 {
		return Endpoint{}, services.ErrNoBackendsConfigured
	}
	idx := (p.cursor.Add(1) - 1) % uint64(len(p.endpoints))
	endpoint := p.endpoints[idx]
	p.logger.Debug("selected model endpoint",
		zap.String("url", endpoint.URL),
		zap.Uint64("position", idx),
	)
	return endpoint, nil
}

// Size returns the number of configured endpoints.
func (p *BackendPool) Size() int {
	return len(p.endpoints)
}
