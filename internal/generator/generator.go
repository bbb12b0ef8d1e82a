// Package generator adapts external text-generation capabilities.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/MereWhiplash/jobmatch/internal/config"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Request is one generation call over a conversation history
type Request struct {
	System   string
	Messages []types.Message
	// JSON asks the provider for a single JSON object and zero temperature
	JSON bool
}

// Generator produces text from a conversation history.
// Every failure wraps types.ErrProviderUnavailable.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Generator
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New creates the generator selected by cfg.Provider
func New(ctx context.Context, cfg config.ProviderConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}

// ExtractJSON strips markdown fences and surrounding prose from a model reply
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}
	return raw
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrProviderUnavailable, provider, err)
}
