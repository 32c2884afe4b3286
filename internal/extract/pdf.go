package extract

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts text from PDF documents.
type PDFExtractor struct{}

// Extract reads the whole document's plain text. Encrypted or corrupt files
// surface as an ExtractionError.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return buf.String(), nil
}
