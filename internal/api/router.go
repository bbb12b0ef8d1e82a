package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig configures the middleware stack
type RouterConfig struct {
	// RateLimit is requests per minute per IP; zero disables limiting
	RateLimit   int
	CORSOrigins []string
	Timeout     time.Duration
	Log         *zap.Logger
}

// NewRouter mounts every route on a chi router
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Log != nil {
		r.Use(RequestLogger(cfg.Log))
	}
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	r.Use(MaxBodySize)
	if cfg.RateLimit > 0 {
		r.Use(NewRateLimiter(cfg.RateLimit, time.Minute).Middleware)
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(cfg.CORSOrigins))
	}

	r.Get("/health", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/match/recommend", h.Recommend)
		r.Post("/match/analyze", h.Analyze)
		r.Get("/match/results/{id}/explanation", h.Explanation)

		r.Put("/jobs/{id}", h.PutJob)
		r.Delete("/jobs/{id}", h.DeleteJob)
		r.Put("/candidates/{id}", h.PutCandidate)
		r.Delete("/candidates/{id}", h.DeleteCandidate)

		r.Post("/conversations/chat", h.Chat)
		r.Post("/conversations/{conversationID}/close", h.CloseConversation)
		r.Post("/conversations/{conversationID}/recommend", h.RecommendForConversation)

		r.Get("/users/{userID}/conversations", h.ListConversations)
		r.Get("/users/{userID}/conversations/{conversationID}", h.GetConversation)
		r.Delete("/users/{userID}/conversations/{conversationID}", h.DeleteConversation)
	})

	return r
}
