// Package mcptypes contains shared MCP tool input/output types.
// These are used by both the direct MCP server (tools) and the remote proxy (shim).
package mcptypes

import (
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// RecommendInput defines the input schema for jm_recommend
type RecommendInput struct {
	Kind       string            `json:"kind" jsonschema:"who is searching: candidate (finds jobs) or job (finds candidates)"`
	ID         string            `json:"id,omitempty" jsonschema:"id of the searching profile, echoed into results"`
	Text       string            `json:"text" jsonschema:"free text describing the profile"`
	Attributes types.Attributes  `json:"attributes,omitempty" jsonschema:"structured attributes of the profile"`
	TopK       int               `json:"top_k,omitempty" jsonschema:"maximum number of results"`
	Filters    types.HardFilters `json:"filters,omitempty" jsonschema:"hard filters every result must satisfy"`
}

// Profile converts the input to a query profile
func (in RecommendInput) Profile() types.Profile {
	return types.Profile{Kind: types.EntityKind(in.Kind), ID: in.ID, Text: in.Text, Attributes: in.Attributes}
}

// RecommendOutput defines the output schema for jm_recommend
type RecommendOutput struct {
	Results []types.MatchResult `json:"results"`
}

// NewRecommendOutput wraps results. Results is never nil, since the output
// schema requires an array even on error.
func NewRecommendOutput(results []types.MatchResult) RecommendOutput {
	if results == nil {
		results = []types.MatchResult{}
	}
	return RecommendOutput{Results: results}
}

// AnalyzeInput defines the input schema for jm_analyze
type AnalyzeInput struct {
	Text string `json:"text" jsonschema:"job posting or resume text to analyze"`
}

// AnalyzeOutput defines the output schema for jm_analyze
type AnalyzeOutput struct {
	Analysis *types.JobAnalysis `json:"analysis"`
}

// ExplainInput defines the input schema for jm_explain
type ExplainInput struct {
	MatchID string `json:"match_id" jsonschema:"id of a result returned by jm_recommend"`
}

// ExplainOutput defines the output schema for jm_explain
type ExplainOutput struct {
	Explanation string `json:"explanation"`
}

// ChatInput defines the input schema for jm_chat
type ChatInput struct {
	UserID         string `json:"user_id" jsonschema:"id of the job seeker"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to continue; omit to start a new one"`
	Message        string `json:"message" jsonschema:"what the user said"`
}

// ChatOutput defines the output schema for jm_chat
type ChatOutput struct {
	ConversationID string            `json:"conversation_id"`
	Reply          string            `json:"reply"`
	State          string            `json:"state"`
	Preferences    types.Preferences `json:"preferences"`
	Version        int64             `json:"version"`

	Recommendations []types.MatchResult `json:"recommendations,omitempty"`
}

// ListConversationsInput defines the input schema for jm_list_conversations
type ListConversationsInput struct {
	UserID string `json:"user_id" jsonschema:"id of the job seeker"`
}

// ConversationSummary is one row of jm_list_conversations
type ConversationSummary struct {
	ID           string            `json:"id"`
	State        string            `json:"state"`
	MessageCount int               `json:"message_count"`
	Preferences  types.Preferences `json:"preferences"`
	UpdatedAt    string            `json:"updated_at"`
}

// ListConversationsOutput defines the output schema for jm_list_conversations
type ListConversationsOutput struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// NewListConversationsOutput converts summaries; Conversations is never nil
func NewListConversationsOutput(in []types.SessionSummary) ListConversationsOutput {
	return ListConversationsOutput{Conversations: Summaries(in)}
}

// Summaries converts session summaries, keeping their order
func Summaries(in []types.SessionSummary) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(in))
	for _, s := range in {
		out = append(out, ConversationSummary{
			ID:           s.ID,
			State:        string(s.State),
			MessageCount: s.MessageCount,
			Preferences:  s.Preferences,
			UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// DeleteConversationInput defines the input schema for jm_delete_conversation
type DeleteConversationInput struct {
	UserID         string `json:"user_id" jsonschema:"id of the job seeker"`
	ConversationID string `json:"conversation_id" jsonschema:"conversation to delete"`
}

// DeleteConversationOutput defines the output schema for jm_delete_conversation
type DeleteConversationOutput struct {
	Message string `json:"message"`
}

// FormatMatches renders results as a numbered list naming the entity of the
// opposite kind to queryKind
func FormatMatches(queryKind string, results []types.MatchResult) string {
	if len(results) == 0 {
		return "No matches found."
	}
	var b strings.Builder
	for i, r := range results {
		other := r.JobID
		if queryKind == string(types.KindJob) {
			other = r.CandidateID
		}
		fmt.Fprintf(&b, "%d. %s (score %.3f, match id %s)\n   %s\n", i+1, other, r.Score, r.ID, r.Explanation)
	}
	return b.String()
}

// ChatText renders a reply with its conversation footer
func ChatText(out ChatOutput) string {
	text := fmt.Sprintf("%s\n\n[conversation %s, state %s]", out.Reply, out.ConversationID, out.State)
	if len(out.Recommendations) > 0 {
		text += "\n\nRecommended jobs:\n" + FormatMatches(string(types.KindCandidate), out.Recommendations)
	}
	return text
}

// TextResult creates a successful MCP result with text content
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ErrorResult creates an error MCP result
func ErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// Tool definitions (shared between server and shim)
var (
	RecommendTool = &mcp.Tool{
		Name:        "jm_recommend",
		Description: "Rank jobs for a candidate or candidates for a job by semantic similarity, after hard filters",
	}

	AnalyzeTool = &mcp.Tool{
		Name:        "jm_analyze",
		Description: "Extract title, seniority, location, salary and skills from a job posting or resume",
	}

	ExplainTool = &mcp.Tool{
		Name:        "jm_explain",
		Description: "Explain why a recent recommendation matched",
	}

	ChatTool = &mcp.Tool{
		Name:        "jm_chat",
		Description: "Send one message in a job-search conversation that gathers the user's preferences",
	}

	ListConversationsTool = &mcp.Tool{
		Name:        "jm_list_conversations",
		Description: "List a user's conversations, most recent first",
	}

	DeleteConversationTool = &mcp.Tool{
		Name:        "jm_delete_conversation",
		Description: "Delete a conversation (succeeds if it is already gone)",
	}
)
