// Package summarize generates word-capped document summaries through a
// configurable LLM provider.
package summarize

import (
	"context"
	"fmt"
)

// Service turns document text into a summary. maxWords caps the requested
// length and temperature controls randomness (0.0-1.0).
type Service interface {
	Summarize(ctx context.Context, text, prompt string, maxWords int, temperature float64) (string, error)
}

// DefaultMaxWords is used when a caller passes a non-positive word cap.
const DefaultMaxWords = 100

func buildPrompt(text, prompt string, maxWords int) string {
	return fmt.Sprintf("%s\n\nText to summarize (keep under %d words):\n\n%s", prompt, maxWords, text)
}
