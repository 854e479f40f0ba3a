package gemini

import (
	"context"
)

// Servicer defines the interface for Gemini service operations
type Servicer interface {
	// Generate sends a generateContent request to the Gemini API
	Generate(ctx context.Context, prompt string, opts CompletionOptions) (*GenerateResponse, error)

	// GetContent is a helper that returns just the text of the first candidate
	GetContent(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// Ensure Service implements Servicer
var _ Servicer = (*Service)(nil)
