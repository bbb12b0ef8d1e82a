package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAI implements Embedder against an OpenAI-compatible /v1/embeddings endpoint
type OpenAI struct {
	client *resty.Client
	model  string
	dim    int
}

// NewOpenAI creates an OpenAI embedder
func NewOpenAI(baseURL, apiKey, model string, dim int) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &OpenAI{client: client, model: model, dim: dim}, nil
}

// Embed implements Embedder
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"model": o.model,
		"input": text,
	}
	if o.dim > 0 && strings.HasPrefix(o.model, "text-embedding-3") {
		body["dimensions"] = o.dim
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/embeddings")
	if err != nil {
		return nil, unavailable("openai", err)
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		return nil, unavailable("openai", fmt.Errorf("status %d: %s", resp.StatusCode(), msg))
	}

	values := gjson.GetBytes(resp.Body(), "data.0.embedding").Array()
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v.Float())
	}

	return checkVector("openai", vec, o.dim)
}
