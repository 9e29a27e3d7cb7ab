package handlers

import (
	"context"
	"path/filepath"

	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/middleware"
	"github.com/upb/ai-tutor/backend/services/analysis"
	"github.com/upb/ai-tutor/backend/utils"
)

// AnalysisResponse is the response body for a generated analysis
type AnalysisResponse struct {
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
	Truncated bool   `json:"truncated"`
}

// Analyzer generates a derived view of one document
type Analyzer interface {
	Analyze(ctx context.Context, ownerID, filename string, kind analysis.Kind) (analysis.Result, error)
}

// AnalysisHandler handles document analysis requests
type AnalysisHandler struct {
	analyzer Analyzer
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(analyzer Analyzer, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// HandleAnalyze handles POST /api/v1/documents/{filename}/analysis/{kind}
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	filename := filepath.Base(chi.URLParam(r, "filename"))
	if filename == "" || filename == "." {
		_ = utils.WriteBadRequest(w, "Invalid filename", nil)
		return
	}

	kind, err := analysis.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("generating analysis",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.String("kind", string(kind)))

	result, err := h.analyzer.Analyze(ctx, ownerID, filename, kind)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, AnalysisResponse{
		Kind:      string(kind),
		Content:   result.Content,
		Reasoning: result.Reasoning,
		Truncated: result.Truncated,
	})
}
