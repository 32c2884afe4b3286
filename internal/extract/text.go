package extract

import (
	"context"
	"os"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// TextExtractor reads plain-text files. The byte encoding is detected before
// decoding; nothing is assumed about the input charset.
type TextExtractor struct{}

func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	if len(raw) == 0 {
		return "", nil
	}

	detected, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil {
		// Undetectable content is treated as UTF-8 rather than rejected.
		return string(raw), nil
	}

	enc, err := htmlindex.Get(strings.ToLower(detected.Charset))
	if err != nil || enc == nil {
		return string(raw), nil
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return string(decoded), nil
}
