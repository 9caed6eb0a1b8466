// Package llm provides chat completion clients behind a single Completer
// interface.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for a single JSON object.
	JSONMode bool
}

// Completer produces a completion for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts Options) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider   string // "openai" or "anthropic"
	Model      string
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

// New creates a Completer from config.
func New(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for %s", cfg.Provider)
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
