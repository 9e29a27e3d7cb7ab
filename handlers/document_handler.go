package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/middleware"
	"github.com/upb/ai-tutor/backend/models"
	"github.com/upb/ai-tutor/backend/services"
	"github.com/upb/ai-tutor/backend/utils"
)

// DocumentStore defines the document persistence operations the handler needs
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByFilename(ctx context.Context, ownerID, filename string) (*models.Document, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	Delete(ctx context.Context, ownerID, filename string) error
}

// Ingestor defines the indexing operations the handler needs
type Ingestor interface {
	IndexDocument(ctx context.Context, ownerID, filename string) (int, error)
	RemoveDocument(ownerID, filename string) int
}

// DocumentResponse is the public view of an uploaded document
type DocumentResponse struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
	SizeBytes        int64  `json:"size_bytes"`
	Indexed          bool   `json:"indexed"`
	ChunkCount       int    `json:"chunk_count"`
}

// UploadResponse is the response body for a successful upload
type UploadResponse struct {
	Document   DocumentResponse `json:"document"`
	ChunkCount int              `json:"chunk_count"`
}

// DocumentHandler handles document upload, listing and removal
type DocumentHandler struct {
	store     DocumentStore
	ingestor  Ingestor
	uploadDir string
	maxBytes  int64
	logger    *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(store DocumentStore, ingestor Ingestor, uploadDir string, maxBytes int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:     store,
		ingestor:  ingestor,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// HandleUpload handles POST /api/v1/documents. The uploaded file is written
// under the owner's directory, recorded, then chunked and indexed. Uploading
// a file with an existing name replaces its content and index entries.
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.logger.Warn("failed to parse multipart form", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid or oversized upload", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Missing file field", nil)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == ".." {
		_ = utils.WriteBadRequest(w, "Invalid filename", nil)
		return
	}

	ownerDir := filepath.Join(h.uploadDir, ownerID)
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		h.logger.Error("failed to create upload directory", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to store document")
		return
	}

	path := filepath.Join(ownerDir, filename)
	size, err := writeFile(path, file)
	if err != nil {
		h.logger.Error("failed to write uploaded file",
			zap.String("path", path),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to store document")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// An upload under an existing name replaces the stored file; the
	// document row is only created on first upload.
	existing, err := h.store.GetByFilename(ctx, ownerID, filename)
	if err != nil && !services.IsNotFoundError(err) {
		HandleServiceError(w, err, h.logger)
		return
	}

	doc := existing
	if doc == nil {
		doc = models.NewDocument(ownerID, filename, header.Filename, contentType, size)
		if err := h.store.Create(ctx, doc); err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
	}

	chunkCount, err := h.ingestor.IndexDocument(ctx, ownerID, filename)
	if err != nil {
		h.logger.Warn("indexing failed after upload",
			zap.String("owner_id", ownerID),
			zap.String("filename", filename),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	doc.MarkIndexed(chunkCount)

	h.logger.Info("document uploaded and indexed",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.Int64("size_bytes", size),
		zap.Int("chunk_count", chunkCount))

	_ = utils.WriteCreated(w, UploadResponse{
		Document:   documentResponse(doc),
		ChunkCount: chunkCount,
	})
}

// HandleList handles GET /api/v1/documents
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == "" {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	docs, err := h.store.GetByOwner(ctx, ownerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, documentResponse(doc))
	}

	_ = utils.WriteOK(w, responses)
}

// HandleDelete handles DELETE /api/v1/documents/{filename}. The database row,
// index vectors, cached text and stored file are all removed.
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.store.Delete(ctx, ownerID, filename); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	removed := h.ingestor.RemoveDocument(ownerID, filename)

	path := filepath.Join(h.uploadDir, ownerID, filename)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.logger.Warn("failed to remove stored file",
			zap.String("path", path),
			zap.Error(err))
	}

	h.logger.Info("document deleted",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.Int("vectors_removed", removed))

	utils.WriteNoContent(w)
}

func documentResponse(doc *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID.String(),
		Filename:         doc.Filename,
		OriginalFilename: doc.OriginalFilename,
		ContentType:      doc.ContentType,
		SizeBytes:        doc.SizeBytes,
		Indexed:          doc.Indexed,
		ChunkCount:       doc.ChunkCount,
	}
}

func writeFile(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	return io.Copy(dst, src)
}
