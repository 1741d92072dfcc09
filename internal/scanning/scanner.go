package scanning

import "context"

// Item is a single purchased item read from a bill
type Item struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

// ExtractionResult contains the structured information read from a bill.
// It is never persisted; callers turn it into ledger entries.
type ExtractionResult struct {
	RawText     string  `json:"raw_text"`
	TotalAmount float64 `json:"total_amount"`
	Date        string  `json:"date,omitempty"` // YYYY-MM-DD, empty when not found
	Items       []Item  `json:"items"`
}

// Scanner defines the interface for the vision model that reads a bill image
type Scanner interface {
	// Scan sends a normalized image to the model and returns its raw reply
	Scan(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// GenerationConfig holds the sampling parameters sent with every scan
type GenerationConfig struct {
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultGenerationConfig keeps replies short and close to the template
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.1,
	MaxOutputTokens: 1024,
}
