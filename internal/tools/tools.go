// Package tools exposes the service as MCP tools
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/jobmatch/internal/mcptypes"
	"github.com/MereWhiplash/jobmatch/internal/service"
)

// Handler holds dependencies for tool handlers
type Handler struct {
	svc *service.Service
}

// Register adds all jm_* tools to the MCP server
func Register(server *mcp.Server, svc *service.Service) {
	h := &Handler{svc: svc}

	mcp.AddTool(server, mcptypes.RecommendTool, h.Recommend)
	mcp.AddTool(server, mcptypes.AnalyzeTool, h.Analyze)
	mcp.AddTool(server, mcptypes.ExplainTool, h.Explain)
	mcp.AddTool(server, mcptypes.ChatTool, h.Chat)
	mcp.AddTool(server, mcptypes.ListConversationsTool, h.ListConversations)
	mcp.AddTool(server, mcptypes.DeleteConversationTool, h.DeleteConversation)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcptypes.TextResult(string(out)), nil
}

func (h *Handler) Recommend(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.RecommendInput) (*mcp.CallToolResult, mcptypes.RecommendOutput, error) {
	results, err := h.svc.Recommend(ctx, input.Profile(), input.TopK, input.Filters)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to recommend: %v", err)), mcptypes.NewRecommendOutput(nil), nil
	}

	return mcptypes.TextResult(mcptypes.FormatMatches(input.Kind, results)), mcptypes.NewRecommendOutput(results), nil
}

func (h *Handler) Analyze(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.AnalyzeInput) (*mcp.CallToolResult, mcptypes.AnalyzeOutput, error) {
	analysis, err := h.svc.Analyze(ctx, input.Text)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to analyze: %v", err)), mcptypes.AnalyzeOutput{}, nil
	}

	result, err := jsonResult(analysis)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to format response: %v", err)), mcptypes.AnalyzeOutput{}, nil
	}
	return result, mcptypes.AnalyzeOutput{Analysis: analysis}, nil
}

func (h *Handler) Explain(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ExplainInput) (*mcp.CallToolResult, mcptypes.ExplainOutput, error) {
	if input.MatchID == "" {
		return mcptypes.ErrorResult("match_id is required"), mcptypes.ExplainOutput{}, nil
	}

	text, err := h.svc.Explain(ctx, input.MatchID)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to explain: %v", err)), mcptypes.ExplainOutput{}, nil
	}
	return mcptypes.TextResult(text), mcptypes.ExplainOutput{Explanation: text}, nil
}

func (h *Handler) Chat(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ChatInput) (*mcp.CallToolResult, mcptypes.ChatOutput, error) {
	turn, err := h.svc.Chat(ctx, input.UserID, input.ConversationID, input.Message)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("chat failed: %v", err)), mcptypes.ChatOutput{}, nil
	}

	out := mcptypes.ChatOutput{
		ConversationID: turn.SessionID,
		Reply:          turn.Reply,
		State:          string(turn.State),
		Preferences:    turn.Preferences,
		Version:        turn.Version,

		Recommendations: turn.Recommendations,
	}
	return mcptypes.TextResult(mcptypes.ChatText(out)), out, nil
}

func (h *Handler) ListConversations(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ListConversationsInput) (*mcp.CallToolResult, mcptypes.ListConversationsOutput, error) {
	list, err := h.svc.ListConversations(ctx, input.UserID)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to list: %v", err)), mcptypes.NewListConversationsOutput(nil), nil
	}

	out := mcptypes.NewListConversationsOutput(list)
	if len(list) == 0 {
		return mcptypes.TextResult("No conversations found."), out, nil
	}

	result, err := jsonResult(out.Conversations)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to format response: %v", err)), mcptypes.NewListConversationsOutput(nil), nil
	}
	return result, out, nil
}

func (h *Handler) DeleteConversation(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.DeleteConversationInput) (*mcp.CallToolResult, mcptypes.DeleteConversationOutput, error) {
	if input.UserID == "" || input.ConversationID == "" {
		return mcptypes.ErrorResult("user_id and conversation_id are required"), mcptypes.DeleteConversationOutput{}, nil
	}

	if err := h.svc.DeleteConversation(ctx, input.UserID, input.ConversationID); err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to delete: %v", err)), mcptypes.DeleteConversationOutput{}, nil
	}

	msg := fmt.Sprintf("Conversation %s has been deleted.", input.ConversationID)
	return mcptypes.TextResult(msg), mcptypes.DeleteConversationOutput{Message: msg}, nil
}
