package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAI implements Generator against an OpenAI-compatible chat completions endpoint
type OpenAI struct {
	client *resty.Client
	model  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewOpenAI creates an OpenAI generator
func NewOpenAI(baseURL, apiKey, model string) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultOpenAIModel
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)

	return &OpenAI{client: client, model: model}, nil
}

// Generate implements Generator
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body := map[string]any{
		"model":    o.model,
		"messages": messages,
	}
	if req.JSON {
		body["temperature"] = 0
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/chat/completions")
	if err != nil {
		return "", unavailable("openai", err)
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		return "", unavailable("openai", fmt.Errorf("status %d: %s", resp.StatusCode(), msg))
	}

	text := strings.TrimSpace(gjson.GetBytes(resp.Body(), "choices.0.message.content").String())
	if text == "" {
		return "", unavailable("openai", errors.New("empty response"))
	}
	return text, nil
}
