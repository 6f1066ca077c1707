package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator turns a prompt into generated text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects and configures a provider
type Config struct {
	Provider     string // anthropic, gemini or none
	Model        string
	AnthropicKey string
	GeminiKey    string
	GeminiURL    string
	MaxTokens    int
}

// New creates the generator named by cfg.Provider. It returns nil without
// an error when AI features are disabled.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropic(cfg.AnthropicKey, cfg.Model, cfg.MaxTokens), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return NewGemini(cfg.GeminiKey, cfg.Model, cfg.GeminiURL), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
