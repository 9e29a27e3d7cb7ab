package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/ai-tutor/backend/services"
)

// ExtractionStatus tags the outcome of a text extraction
type ExtractionStatus int

const (
	// ExtractionOK means the full document text was recovered
	ExtractionOK ExtractionStatus = iota
	// ExtractionDegraded means text was recovered with losses (e.g. invalid bytes dropped)
	ExtractionDegraded
	// ExtractionFailed means no usable text could be recovered
	ExtractionFailed
)

func (s ExtractionStatus) String() string {
	switch s {
	case ExtractionOK:
		return "ok"
	case ExtractionDegraded:
		return "degraded"
	case ExtractionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExtractionResult carries extracted document text plus how complete it is
type ExtractionResult struct {
	Text   string
	Status ExtractionStatus
	Detail string
}

// DocumentProvider yields the extracted text of a stored document
type DocumentProvider interface {
	GetText(ctx context.Context, ownerID, filename string) (ExtractionResult, error)
}

// FileProvider reads extracted document text from per-owner directories on disk
type FileProvider struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileProvider creates a FileProvider rooted at baseDir
func NewFileProvider(baseDir string, logger *zap.Logger) *FileProvider {
	return &FileProvider{
		baseDir: baseDir,
		logger:  logger,
	}
}

// GetText reads and sanitizes the stored text for one owner's document
func (p *FileProvider) GetText(ctx context.Context, ownerID, filename string) (ExtractionResult, error) {
	// Reject path traversal in user-supplied filenames
	if filename != filepath.Base(filename) || filename == "." || filename == "" {
		return ExtractionResult{Status: ExtractionFailed}, services.ErrInvalidInput
	}

	path := filepath.Join(p.baseDir, ownerID, filename)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ExtractionResult{Status: ExtractionFailed}, services.ErrDocumentNotFound
		}
		return ExtractionResult{Status: ExtractionFailed}, services.WrapInternal("failed to read document file", err)
	}

	if isEncryptedPDF(raw) {
		return ExtractionResult{Status: ExtractionFailed}, services.ErrPasswordProtected
	}

	text := string(raw)
	sanitized := strings.ToValidUTF8(text, "")
	result := ExtractionResult{Text: sanitized, Status: ExtractionOK}
	if sanitized != text {
		result.Status = ExtractionDegraded
		result.Detail = "invalid byte sequences removed"
		p.logger.Warn("Document text degraded during extraction",
			zap.String("owner_id", ownerID),
			zap.String("filename", filename))
	}
	return result, nil
}

// isEncryptedPDF reports whether raw looks like a password-protected PDF
func isEncryptedPDF(raw []byte) bool {
	if len(raw) < 5 || string(raw[:5]) != "%PDF-" {
		return false
	}
	return strings.Contains(string(raw), "/Encrypt")
}
