// Package apitypes holds the HTTP request and response bodies shared by the
// API server and its client. It has no CGO dependencies.
package apitypes

import "github.com/MereWhiplash/jobmatch/internal/types"

// ErrorResponse is returned for every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes carried in ErrorResponse.Code
const (
	CodeValidation          = "validation"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeProviderUnavailable = "provider_unavailable"
	CodeInternal            = "internal"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status     string     `json:"status"`
	Jobs       int        `json:"jobs"`
	Candidates int        `json:"candidates"`
	Cache      CacheStats `json:"cache"`
}

// CacheStats are the embedding cache counters
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
}

// RecommendRequest is the body of POST /v1/match/recommend
type RecommendRequest struct {
	Profile types.Profile     `json:"profile"`
	TopK    int               `json:"top_k,omitempty"`
	Filters types.HardFilters `json:"filters"`
}

// RecommendResponse carries ranked results, best first
type RecommendResponse struct {
	Results []types.MatchResult `json:"results"`
}

// AnalyzeRequest is the body of POST /v1/match/analyze
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse carries the extracted analysis
type AnalyzeResponse struct {
	Analysis *types.JobAnalysis `json:"analysis"`
}

// ExplanationResponse is returned by GET /v1/match/results/{id}/explanation
type ExplanationResponse struct {
	ID          string `json:"id"`
	Explanation string `json:"explanation"`
}

// IndexResponse is returned by PUT /v1/jobs/{id} and PUT /v1/candidates/{id}
type IndexResponse struct {
	ID      string `json:"id"`
	Changed bool   `json:"changed"`
}

// ChatRequest is the body of POST /v1/conversations/chat.
// An empty ConversationID starts a new conversation.
type ChatRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the outcome of one turn
type ChatResponse struct {
	ConversationID string             `json:"conversation_id"`
	Reply          string             `json:"reply"`
	Preferences    types.Preferences  `json:"preferences"`
	State          types.SessionState `json:"state"`
	Version        int64              `json:"version"`
	// Recommendations is set once the conversation reaches confirming
	Recommendations []types.MatchResult `json:"recommendations,omitempty"`
}

// ConversationRequest identifies the caller for conversation operations
type ConversationRequest struct {
	UserID string `json:"user_id"`
	TopK   int    `json:"top_k,omitempty"`
}

// ConversationResponse carries one full conversation
type ConversationResponse struct {
	Conversation *types.Session `json:"conversation"`
}

// ListConversationsResponse carries conversation summaries, newest first
type ListConversationsResponse struct {
	Conversations []types.SessionSummary `json:"conversations"`
}
