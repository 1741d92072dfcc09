package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrExtractionFailed marks a model call that failed. The result returned with
// it is empty but usable, so callers can fall back to manual correction.
var ErrExtractionFailed = errors.New("bill extraction failed")

// Extractor turns an uploaded bill into an ExtractionResult
type Extractor struct {
	scanner Scanner
}

// NewExtractor creates an Extractor backed by the given scanner
func NewExtractor(scanner Scanner) *Extractor {
	return &Extractor{scanner: scanner}
}

// Extract normalizes the upload, asks the model to read it and parses the reply.
//
// An undecodable upload returns a nil result and an error wrapping
// ErrUnsupportedFormat. A failed model call returns an empty result together
// with an error wrapping ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*ExtractionResult, error) {
	img, err := Normalize(data, contentType)
	if err != nil {
		return nil, err
	}

	text, err := e.scanner.Scan(ctx, img.Data, img.ContentType)
	if err != nil {
		slog.Error("Failed to scan bill",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return emptyResult(), fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	result := Parse(text)
	slog.Debug("Parsed bill",
		"total_amount", result.TotalAmount,
		"date", result.Date,
		"items", len(result.Items),
	)
	return result, nil
}

func emptyResult() *ExtractionResult {
	return &ExtractionResult{
		TotalAmount: 0.0,
		Items:       []Item{},
	}
}
