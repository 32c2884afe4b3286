// Package extract produces plain text from stored documents. Format-specific
// parsing is delegated to external libraries behind the Extractor interface;
// the dispatcher selects an implementation by file extension.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat means the file extension maps to no known extractor.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractionError wraps a parse failure for a specific file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor produces plain text from a stored file. The result is trimmed of
// leading and trailing whitespace; an empty result is valid, not an error.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Dispatcher routes extraction to a format-specific extractor keyed by the
// lowercased file extension.
type Dispatcher struct {
	byExt map[string]Extractor
}

// NewDispatcher creates a dispatcher with the built-in extractors registered
// for .pdf, .docx, .doc and .txt.
func NewDispatcher() *Dispatcher {
	word := &DocxExtractor{}
	return &Dispatcher{
		byExt: map[string]Extractor{
			".pdf":  &PDFExtractor{},
			".docx": word,
			".doc":  word,
			".txt":  &TextExtractor{},
		},
	}
}

// Register adds or replaces the extractor for an extension. Adding a format
// is a registration, not a deeper branch.
func (d *Dispatcher) Register(ext string, e Extractor) {
	d.byExt[strings.ToLower(ext)] = e
}

// Extract selects the extractor for the file's extension and returns the
// trimmed text.
func (d *Dispatcher) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := d.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	text, err := e.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
