// Package embedder adapts external text-embedding capabilities.
package embedder

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/MereWhiplash/jobmatch/internal/config"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Embedder turns text into a fixed-length vector.
// Every failure wraps types.ErrProviderUnavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Func adapts a plain function to Embedder
type Func func(ctx context.Context, text string) ([]float32, error)

// Embed calls f
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// New creates the embedder selected by cfg.Provider
func New(ctx context.Context, cfg config.ProviderConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		return NewOllama(cfg.BaseURL, cfg.Model, cfg.Dimension), nil
	case "openai":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimension)
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrProviderUnavailable, provider, err)
}

// checkVector rejects empty, wrongly sized or non-finite embeddings
func checkVector(provider string, vec []float32, dim int) ([]float32, error) {
	if len(vec) == 0 {
		return nil, unavailable(provider, fmt.Errorf("empty embedding"))
	}
	if dim > 0 && len(vec) != dim {
		return nil, unavailable(provider, fmt.Errorf("expected %d dimensions, got %d", dim, len(vec)))
	}
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, unavailable(provider, fmt.Errorf("invalid value at index %d: %v", i, v))
		}
	}
	return vec, nil
}
