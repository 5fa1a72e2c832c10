// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

const (
	DefaultMaxAttachmentBytes = 5_000_000
	DefaultMaxTextChars       = 15_000
)

// AttachmentExtractor implements ports.ContentExtractor.
// It never returns an error: failures yield nil content for that one attachment.
type AttachmentExtractor struct {
	fetcher  ports.ContentFetcher
	maxBytes int64
	maxChars int
	log      *zap.Logger
}

// NewAttachmentExtractor creates an extractor. Non-positive limits fall back to the defaults.
func NewAttachmentExtractor(fetcher ports.ContentFetcher, maxBytes int64, maxChars int, log *zap.Logger) *AttachmentExtractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AttachmentExtractor{
		fetcher:  fetcher,
		maxBytes: maxBytes,
		maxChars: maxChars,
		log:      log,
	}
}

// Extract returns bounded textual content for one file, or nil when it is unavailable.
func (e *AttachmentExtractor) Extract(ctx context.Context, url, mimeType, fileName string, sizeBytes int64) *string {
	if sizeBytes > e.maxBytes {
		return textPtr(fmt.Sprintf("[File %q is too large to read (%.1f MB). Only files up to %.0f MB can be read.]",
			fileName, float64(sizeBytes)/1_000_000, float64(e.maxBytes)/1_000_000))
	}

	res, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.log.Warn("attachment fetch failed", zap.String("file", fileName), zap.Error(err))
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		e.log.Warn("attachment fetch returned non-success status",
			zap.String("file", fileName), zap.Int("status", res.StatusCode))
		return nil
	}

	mime := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case strings.HasPrefix(mime, "text/"):
		return e.readText(res.Body, fileName)
	case mime == "application/pdf":
		return textPtr(fmt.Sprintf("[PDF document %q is attached. Its text cannot be extracted automatically; "+
			"ask the user to paste the passages they need help with.]", fileName))
	case isSpreadsheet(mime, ext):
		return textPtr(fmt.Sprintf("[Spreadsheet %q is attached. Spreadsheet cells cannot be read automatically; "+
			"ask the user to paste the relevant rows.]", fileName))
	case isWordDocument(mime, ext):
		return textPtr(fmt.Sprintf("[Word document %q is attached. Word documents cannot be read automatically; "+
			"ask the user to paste the relevant sections.]", fileName))
	case strings.HasPrefix(mime, "image/"):
		return textPtr(fmt.Sprintf("[Image file %q is attached. Image content cannot be analyzed.]", fileName))
	default:
		return textPtr(fmt.Sprintf("[File %q has an unsupported type (%s) and cannot be read.]", fileName, mimeType))
	}
}

// readText reads a text body and truncates it to maxChars code points.
func (e *AttachmentExtractor) readText(body io.Reader, fileName string) *string {
	data, err := io.ReadAll(io.LimitReader(body, e.maxBytes+1))
	if err != nil {
		e.log.Warn("attachment read failed", zap.String("file", fileName), zap.Error(err))
		return nil
	}

	text := string(data)
	total := utf8.RuneCountInString(text)
	if total <= e.maxChars {
		return textPtr(fmt.Sprintf("Content of %s:\n\n%s", fileName, text))
	}

	runes := []rune(text)
	remaining := total - e.maxChars
	return textPtr(fmt.Sprintf("Content of %s:\n\n%s\n\n[... content truncated: %d more character(s) not shown]",
		fileName, string(runes[:e.maxChars]), remaining))
}

func isSpreadsheet(mime, ext string) bool {
	return strings.Contains(mime, "spreadsheet") || strings.Contains(mime, "excel") ||
		ext == ".xlsx" || ext == ".xls"
}

func isWordDocument(mime, ext string) bool {
	return strings.Contains(mime, "msword") || strings.Contains(mime, "wordprocessingml") ||
		ext == ".docx" || ext == ".doc"
}

func textPtr(s string) *string {
	return &s
}
