package summarize

import (
	"context"
	"fmt"
	"strings"
)

type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds the configured provider. An empty provider selects OpenAI.
func New(ctx context.Context, opts Options) (Service, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		return NewOpenAISummarizer(opts.APIKey, opts.Model, opts.BaseURL), nil
	case "gemini":
		return NewGeminiSummarizer(ctx, opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %s", opts.Provider)
	}
}
