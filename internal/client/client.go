// Package client is an HTTP client for the jobmatch API
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MereWhiplash/jobmatch/internal/apitypes"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Client is an HTTP client for the jobmatch API
type Client struct {
	http *resty.Client
}

// APIError is a non-2xx response. It unwraps to the matching types sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case apitypes.CodeValidation:
		return types.ErrValidation
	case apitypes.CodeNotFound:
		return types.ErrNotFound
	case apitypes.CodeConflict:
		return types.ErrConflict
	case apitypes.CodeProviderUnavailable:
		return types.ErrProviderUnavailable
	}
	return nil
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(90*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// do sends body (if any) and decodes a 2xx response into out (if any)
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var errResp apitypes.ErrorResponse
	req := c.http.R().SetContext(ctx).SetError(&errResp)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{Status: resp.StatusCode(), Code: errResp.Code, Message: msg}
	}
	return nil
}

// Health returns index sizes and cache counters
func (c *Client) Health(ctx context.Context) (*apitypes.HealthResponse, error) {
	var out apitypes.HealthResponse
	if err := c.do(ctx, "GET", "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommend ranks the opposite side of the market for a profile
func (c *Client) Recommend(ctx context.Context, p types.Profile, topK int, filters types.HardFilters) ([]types.MatchResult, error) {
	var out apitypes.RecommendResponse
	req := apitypes.RecommendRequest{Profile: p, TopK: topK, Filters: filters}
	if err := c.do(ctx, "POST", "/v1/match/recommend", req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Analyze extracts structured attributes from text
func (c *Client) Analyze(ctx context.Context, text string) (*types.JobAnalysis, error) {
	var out apitypes.AnalyzeResponse
	if err := c.do(ctx, "POST", "/v1/match/analyze", apitypes.AnalyzeRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Analysis, nil
}

// Explain fetches the explanation of a recent match result
func (c *Client) Explain(ctx context.Context, matchID string) (string, error) {
	var out apitypes.ExplanationResponse
	path := "/v1/match/results/" + url.PathEscape(matchID) + "/explanation"
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return "", err
	}
	return out.Explanation, nil
}

// PutJob indexes a job posting under j.ID
func (c *Client) PutJob(ctx context.Context, j types.JobPosting) (bool, error) {
	var out apitypes.IndexResponse
	if err := c.do(ctx, "PUT", "/v1/jobs/"+url.PathEscape(j.ID), j, &out); err != nil {
		return false, err
	}
	return out.Changed, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/v1/jobs/"+url.PathEscape(id), nil, nil)
}

// PutCandidate indexes a candidate profile under p.ID
func (c *Client) PutCandidate(ctx context.Context, p types.CandidateProfile) (bool, error) {
	var out apitypes.IndexResponse
	if err := c.do(ctx, "PUT", "/v1/candidates/"+url.PathEscape(p.ID), p, &out); err != nil {
		return false, err
	}
	return out.Changed, nil
}

func (c *Client) DeleteCandidate(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/v1/candidates/"+url.PathEscape(id), nil, nil)
}

// Chat sends one message. An empty conversationID starts a new conversation.
func (c *Client) Chat(ctx context.Context, userID, conversationID, message string) (*apitypes.ChatResponse, error) {
	var out apitypes.ChatResponse
	req := apitypes.ChatRequest{UserID: userID, ConversationID: conversationID, Message: message}
	if err := c.do(ctx, "POST", "/v1/conversations/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CloseConversation(ctx context.Context, userID, conversationID string) (*types.Session, error) {
	var out apitypes.ConversationResponse
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/close"
	if err := c.do(ctx, "POST", path, apitypes.ConversationRequest{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

// RecommendForConversation matches jobs against the conversation's preferences
func (c *Client) RecommendForConversation(ctx context.Context, userID, conversationID string, topK int) ([]types.MatchResult, error) {
	var out apitypes.RecommendResponse
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/recommend"
	if err := c.do(ctx, "POST", path, apitypes.ConversationRequest{UserID: userID, TopK: topK}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) ListConversations(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	var out apitypes.ListConversationsResponse
	if err := c.do(ctx, "GET", "/v1/users/"+url.PathEscape(userID)+"/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (c *Client) GetConversation(ctx context.Context, userID, conversationID string) (*types.Session, error) {
	var out apitypes.ConversationResponse
	path := "/v1/users/" + url.PathEscape(userID) + "/conversations/" + url.PathEscape(conversationID)
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

func (c *Client) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	path := "/v1/users/" + url.PathEscape(userID) + "/conversations/" + url.PathEscape(conversationID)
	return c.do(ctx, "DELETE", path, nil, nil)
}
