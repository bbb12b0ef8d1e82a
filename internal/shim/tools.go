// Package shim serves the jm_* MCP tools by proxying them to a remote jobmatch API
package shim

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/jobmatch/internal/apitypes"
	"github.com/MereWhiplash/jobmatch/internal/mcptypes"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// APIClient is the subset of client.Client the shim needs
type APIClient interface {
	Recommend(ctx context.Context, p types.Profile, topK int, filters types.HardFilters) ([]types.MatchResult, error)
	Analyze(ctx context.Context, text string) (*types.JobAnalysis, error)
	Explain(ctx context.Context, matchID string) (string, error)
	Chat(ctx context.Context, userID, conversationID, message string) (*apitypes.ChatResponse, error)
	ListConversations(ctx context.Context, userID string) ([]types.SessionSummary, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

// Handler holds shim dependencies
type Handler struct {
	client APIClient
}

// NewHandler creates a new shim handler
func NewHandler(c APIClient) *Handler {
	return &Handler{client: c}
}

// Register adds all jm_* tools to the MCP server
func Register(server *mcp.Server, h *Handler) {
	mcp.AddTool(server, mcptypes.RecommendTool, h.Recommend)
	mcp.AddTool(server, mcptypes.AnalyzeTool, h.Analyze)
	mcp.AddTool(server, mcptypes.ExplainTool, h.Explain)
	mcp.AddTool(server, mcptypes.ChatTool, h.Chat)
	mcp.AddTool(server, mcptypes.ListConversationsTool, h.ListConversations)
	mcp.AddTool(server, mcptypes.DeleteConversationTool, h.DeleteConversation)
}

func (h *Handler) Recommend(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.RecommendInput) (*mcp.CallToolResult, mcptypes.RecommendOutput, error) {
	if input.Text == "" {
		return mcptypes.ErrorResult("text is required"), mcptypes.NewRecommendOutput(nil), nil
	}

	results, err := h.client.Recommend(ctx, input.Profile(), input.TopK, input.Filters)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to recommend: %v", err)), mcptypes.NewRecommendOutput(nil), nil
	}
	return mcptypes.TextResult(mcptypes.FormatMatches(input.Kind, results)), mcptypes.NewRecommendOutput(results), nil
}

func (h *Handler) Analyze(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.AnalyzeInput) (*mcp.CallToolResult, mcptypes.AnalyzeOutput, error) {
	if input.Text == "" {
		return mcptypes.ErrorResult("text is required"), mcptypes.AnalyzeOutput{}, nil
	}

	analysis, err := h.client.Analyze(ctx, input.Text)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to analyze: %v", err)), mcptypes.AnalyzeOutput{}, nil
	}

	result, _ := json.MarshalIndent(analysis, "", "  ")
	return mcptypes.TextResult(string(result)), mcptypes.AnalyzeOutput{Analysis: analysis}, nil
}

func (h *Handler) Explain(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ExplainInput) (*mcp.CallToolResult, mcptypes.ExplainOutput, error) {
	if input.MatchID == "" {
		return mcptypes.ErrorResult("match_id is required"), mcptypes.ExplainOutput{}, nil
	}

	text, err := h.client.Explain(ctx, input.MatchID)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to explain: %v", err)), mcptypes.ExplainOutput{}, nil
	}
	return mcptypes.TextResult(text), mcptypes.ExplainOutput{Explanation: text}, nil
}

func (h *Handler) Chat(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ChatInput) (*mcp.CallToolResult, mcptypes.ChatOutput, error) {
	if input.UserID == "" || input.Message == "" {
		return mcptypes.ErrorResult("user_id and message are required"), mcptypes.ChatOutput{}, nil
	}

	resp, err := h.client.Chat(ctx, input.UserID, input.ConversationID, input.Message)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("chat failed: %v", err)), mcptypes.ChatOutput{}, nil
	}

	out := mcptypes.ChatOutput{
		ConversationID: resp.ConversationID,
		Reply:          resp.Reply,
		State:          string(resp.State),
		Preferences:    resp.Preferences,
		Version:        resp.Version,

		Recommendations: resp.Recommendations,
	}
	return mcptypes.TextResult(mcptypes.ChatText(out)), out, nil
}

func (h *Handler) ListConversations(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ListConversationsInput) (*mcp.CallToolResult, mcptypes.ListConversationsOutput, error) {
	if input.UserID == "" {
		return mcptypes.ErrorResult("user_id is required"), mcptypes.NewListConversationsOutput(nil), nil
	}

	list, err := h.client.ListConversations(ctx, input.UserID)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to list: %v", err)), mcptypes.NewListConversationsOutput(nil), nil
	}

	out := mcptypes.NewListConversationsOutput(list)
	if len(list) == 0 {
		return mcptypes.TextResult("No conversations found."), out, nil
	}

	result, _ := json.MarshalIndent(out.Conversations, "", "  ")
	return mcptypes.TextResult(string(result)), out, nil
}

func (h *Handler) DeleteConversation(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.DeleteConversationInput) (*mcp.CallToolResult, mcptypes.DeleteConversationOutput, error) {
	if input.UserID == "" || input.ConversationID == "" {
		return mcptypes.ErrorResult("user_id and conversation_id are required"), mcptypes.DeleteConversationOutput{}, nil
	}

	if err := h.client.DeleteConversation(ctx, input.UserID, input.ConversationID); err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to delete: %v", err)), mcptypes.DeleteConversationOutput{}, nil
	}

	msg := fmt.Sprintf("Conversation %s has been deleted.", input.ConversationID)
	return mcptypes.TextResult(msg), mcptypes.DeleteConversationOutput{Message: msg}, nil
}
