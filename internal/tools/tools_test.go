package tools_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/jobmatch/internal/config"
	"github.com/MereWhiplash/jobmatch/internal/embedder"
	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/service"
	"github.com/MereWhiplash/jobmatch/internal/storage"
	"github.com/MereWhiplash/jobmatch/internal/tools"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// mockEmbedder maps texts mentioning kotlin to one axis and everything else to another
var mockEmbedder = embedder.Func(func(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "kotlin") {
		return []float32{1, 0.05}, nil
	}
	return []float32{0.05, 1}, nil
})

var mockGenerator = generator.Func(func(_ context.Context, req generator.Request) (string, error) {
	if req.JSON {
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "Senior") {
			return `{"title": "Senior Kotlin Developer", "seniority": "senior", "location": "Lisbon", "skills": ["Kotlin", "Android"]}`, nil
		}
		return `{"location": "remote"}`, nil
	}
	return "Which skills should I look for?", nil
})

func newTestSession(t *testing.T) (*mcp.ClientSession, *service.Service) {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		Matching:        config.MatchingConfig{DefaultTopK: 5, MaxTopK: 20, RecentResults: 32, IndexWorkers: 2},
		Conversation:    config.ConversationConfig{RequiredFields: []string{"location", "skills"}},
		ProviderTimeout: time.Second,
	}
	svc, err := service.Build(ctx, cfg, service.Deps{
		Storage: storage.NewMemory(), Embedder: mockEmbedder, Generator: mockGenerator,
	}, nil)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "0.0.1"}, nil)
	tools.Register(server, svc)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		svc.Close()
	})
	return session, svc
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("%s: CallTool failed: %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("%s: empty content", name)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("%s: expected text content, got %T", name, res.Content[0])
	}
	return text.Text, res.IsError
}

func TestListTools(t *testing.T) {
	session, _ := newTestSession(t)

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"jm_recommend", "jm_analyze", "jm_explain", "jm_chat", "jm_list_conversations", "jm_delete_conversation"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestRecommendAndExplain(t *testing.T) {
	session, svc := newTestSession(t)
	ctx := context.Background()

	if _, err := svc.IndexJob(ctx, types.JobPosting{ID: "android", Title: "Kotlin developer", Description: "Android apps"}); err != nil {
		t.Fatalf("IndexJob failed: %v", err)
	}
	if _, err := svc.IndexJob(ctx, types.JobPosting{ID: "chef", Title: "Chef", Description: "Kitchen"}); err != nil {
		t.Fatalf("IndexJob failed: %v", err)
	}

	text, isErr := call(t, session, "jm_recommend", map[string]any{
		"kind":  "candidate",
		"id":    "c1",
		"text":  "kotlin engineer",
		"top_k": 1,
	})
	if isErr {
		t.Fatalf("jm_recommend returned error: %s", text)
	}
	if !strings.Contains(text, "android") || strings.Contains(text, "chef") {
		t.Errorf("expected only the android job, got %q", text)
	}

	text, isErr = call(t, session, "jm_explain", map[string]any{"match_id": types.MatchID("android", "c1")})
	if isErr {
		t.Fatalf("jm_explain returned error: %s", text)
	}
	if !strings.Contains(text, "semantic match") {
		t.Errorf("unexpected explanation %q", text)
	}

	_, isErr = call(t, session, "jm_explain", map[string]any{"match_id": "nope"})
	if !isErr {
		t.Error("expected error for unknown match id")
	}
}

func TestRecommend_Validation(t *testing.T) {
	session, _ := newTestSession(t)

	_, isErr := call(t, session, "jm_recommend", map[string]any{"kind": "robot", "text": "x"})
	if !isErr {
		t.Error("expected error for invalid kind")
	}
}

func TestErrorsReachClientAsToolErrors(t *testing.T) {
	session, _ := newTestSession(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"recommend blank text", "jm_recommend", map[string]any{"kind": "candidate", "text": "  "}, "failed to recommend"},
		{"list without user", "jm_list_conversations", map[string]any{"user_id": ""}, "failed to list"},
		{"chat without message", "jm_chat", map[string]any{"user_id": "u1", "message": ""}, "chat failed"},
		{"analyze blank text", "jm_analyze", map[string]any{"text": ""}, "failed to analyze"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, session, tt.tool, tt.args)
			if !isErr {
				t.Fatalf("expected tool error, got %q", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("expected %q in %q", tt.want, text)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	session, _ := newTestSession(t)

	text, isErr := call(t, session, "jm_analyze", map[string]any{"text": "Senior Kotlin Developer in Lisbon"})
	if isErr {
		t.Fatalf("jm_analyze returned error: %s", text)
	}
	if !strings.Contains(text, "kotlin") || !strings.Contains(text, "Lisbon") {
		t.Errorf("unexpected analysis %q", text)
	}
}

func TestChatListDelete(t *testing.T) {
	session, svc := newTestSession(t)
	ctx := context.Background()

	text, isErr := call(t, session, "jm_chat", map[string]any{"user_id": "u1", "message": "remote only please"})
	if isErr {
		t.Fatalf("jm_chat returned error: %s", text)
	}
	if !strings.Contains(text, "state eliciting") {
		t.Errorf("expected eliciting state, got %q", text)
	}

	list, err := svc.ListConversations(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 conversation, got %d (%v)", len(list), err)
	}
	id := list[0].ID

	text, isErr = call(t, session, "jm_list_conversations", map[string]any{"user_id": "u1"})
	if isErr || !strings.Contains(text, id) {
		t.Errorf("expected list to contain %s, got %q", id, text)
	}

	for i := 0; i < 2; i++ {
		text, isErr = call(t, session, "jm_delete_conversation", map[string]any{"user_id": "u1", "conversation_id": id})
		if isErr {
			t.Fatalf("delete %d returned error: %s", i+1, text)
		}
	}

	text, _ = call(t, session, "jm_list_conversations", map[string]any{"user_id": "u1"})
	if text != "No conversations found." {
		t.Errorf("expected empty list, got %q", text)
	}
}
