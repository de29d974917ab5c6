// Package extract turns uploaded course documents into cleaned text.
//
// Extraction never fails for a recognized container: unreadable, encrypted or
// empty documents degrade to a descriptive placeholder and the cause is kept on
// the Result.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"go.uber.org/zap"
)

// Kind is the container format detected for a document.
type Kind string

const (
	KindText     Kind = "text"
	KindPDF      Kind = "pdf"
	KindWorkbook Kind = "workbook"
	KindUnknown  Kind = "unknown"
)

type Config struct {
	MaxPages     int
	MinLineChars int
}

func DefaultConfig() Config {
	return Config{MaxPages: 20, MinLineChars: 3}
}

// Result is the outcome of one extraction.
type Result struct {
	Text     string
	Kind     Kind
	Pages    int
	Degraded bool
	Cause    error // *domain.ExtractionError when Degraded
}

type Extractor struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Extractor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	if cfg.MinLineChars < 0 {
		cfg.MinLineChars = 0
	}
	return &Extractor{cfg: cfg, logger: logger.OrNop(log)}
}

var textTypes = map[string]bool{
	"text/plain":       true,
	"text/markdown":    true,
	"text/x-markdown":  true,
	"text/csv":         true,
	"application/json": true,
	"application/xml":  true,
	"text/xml":         true,
}

var textExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".json": true, ".xml": true,
}

// Extract reads data according to its sniffed format, falling back to the declared type.
func (e *Extractor) Extract(filename, mimeType string, data []byte) Result {
	mimeType = normalizeMime(mimeType)
	kind := Detect(filename, mimeType, data)

	var (
		text  string
		pages int
		err   error
	)

	switch kind {
	case KindPDF:
		text, pages, err = readPDF(data, e.cfg.MaxPages)
		if err == nil {
			text = Clean(text, e.cfg.MinLineChars)
		}
	case KindWorkbook:
		text, pages, err = readWorkbook(data, e.cfg.MaxPages)
		if err == nil {
			text = Clean(text, e.cfg.MinLineChars)
		}
	case KindText:
		text = strings.TrimPrefix(string(data), "\uFEFF")
		if !utf8.ValidString(text) {
			text = strings.ToValidUTF8(text, "")
		}
	default:
		err = fmt.Errorf("unsupported document type")
	}

	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("document contains no extractable text")
	}

	if err != nil {
		cause := &domain.ExtractionError{Filename: filename, MimeType: mimeType, Err: err}
		e.logger.Warn("extraction degraded to placeholder",
			zap.String("filename", filename),
			zap.String("mime_type", mimeType),
			zap.String("kind", string(kind)),
			zap.Int("size_bytes", len(data)),
			zap.Error(err),
		)
		return Result{
			Text:     Placeholder(filename, mimeType, len(data)),
			Kind:     kind,
			Pages:    pages,
			Degraded: true,
			Cause:    cause,
		}
	}

	return Result{Text: text, Kind: kind, Pages: pages}
}

// Detect sniffs magic bytes first, then trusts the declared type and extension.
func Detect(filename, mimeType string, data []byte) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	mimeType = normalizeMime(mimeType)

	switch {
	case isPDF(data):
		return KindPDF
	case isZip(data) && isWorkbook(data):
		return KindWorkbook
	case mimeType == "application/pdf" || ext == ".pdf":
		// declared PDF without the header: let the reader fail and degrade
		return KindPDF
	case mimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" || ext == ".xlsx":
		return KindWorkbook
	case textTypes[mimeType] || strings.HasPrefix(mimeType, "text/") || textExts[ext]:
		return KindText
	case len(data) > 0 && utf8.Valid(data) && !strings.ContainsRune(string(data), 0):
		return KindText
	}
	return KindUnknown
}

// Placeholder describes a document whose text could not be read.
func Placeholder(filename, mimeType string, size int) string {
	if filename == "" {
		filename = "unnamed document"
	}
	if mimeType == "" {
		mimeType = "unknown type"
	}
	return fmt.Sprintf("[Document %q (%s, %d bytes) could not be read. Its text content is unavailable.]", filename, mimeType, size)
}

func normalizeMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
