package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements Embedder using the Ollama API
type Ollama struct {
	baseURL string
	model   string
	dim     int
	http    *http.Client
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllama creates a new Ollama embedder. dim <= 0 disables the dimension check.
func NewOllama(baseURL, model string, dim int) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dim:     dim,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Embed implements Embedder. Jobs and candidates are both documents, so
// nomic models always get the document prefix.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if o.model == "nomic-embed-text" {
		text = "search_document: " + text
	}

	jsonBody, err := json.Marshal(embeddingRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, unavailable("ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, unavailable("ollama", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, unavailable("ollama", fmt.Errorf("failed to decode response: %w", err))
	}

	return checkVector("ollama", embResp.Embedding, o.dim)
}
