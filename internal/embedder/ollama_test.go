package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

func ollamaServer(t *testing.T, dim int, prompt *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if prompt != nil {
			*prompt = req.Prompt
		}

		emb := make([]float32, dim)
		for i := range emb {
			emb[i] = 0.1
		}
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: emb})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOllama_Embed(t *testing.T) {
	server := ollamaServer(t, 768, nil)

	client := NewOllama(server.URL, "nomic-embed-text", 768)
	emb, err := client.Embed(context.Background(), "test content")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(emb) != 768 {
		t.Errorf("expected 768 dimensions, got %d", len(emb))
	}
}

func TestOllama_NomicPrefix(t *testing.T) {
	var receivedPrompt string
	server := ollamaServer(t, 8, &receivedPrompt)

	client := NewOllama(server.URL, "nomic-embed-text", 0)
	if _, err := client.Embed(context.Background(), "senior go engineer"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	expected := "search_document: senior go engineer"
	if receivedPrompt != expected {
		t.Errorf("expected prompt %q, got %q", expected, receivedPrompt)
	}
}

func TestOllama_NonNomicModel(t *testing.T) {
	var receivedPrompt string
	server := ollamaServer(t, 8, &receivedPrompt)

	client := NewOllama(server.URL, "mxbai-embed-large", 0)
	if _, err := client.Embed(context.Background(), "test query"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if receivedPrompt != "test query" {
		t.Errorf("expected no prefix, got %q", receivedPrompt)
	}
}

func TestOllama_DimensionMismatch(t *testing.T) {
	server := ollamaServer(t, 4, nil)

	client := NewOllama(server.URL, "nomic-embed-text", 768)
	_, err := client.Embed(context.Background(), "test")
	if !errors.Is(err, types.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOllama_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllama(server.URL, "nomic-embed-text", 0)
	_, err := client.Embed(context.Background(), "test")
	if !errors.Is(err, types.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOllama_OllamaDown(t *testing.T) {
	client := NewOllama("http://localhost:99999", "nomic-embed-text", 0)
	_, err := client.Embed(context.Background(), "test content")

	if !errors.Is(err, types.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable when Ollama is down, got %v", err)
	}
}
