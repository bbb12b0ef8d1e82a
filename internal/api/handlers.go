// Package api is the HTTP surface over the service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/apitypes"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/service"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Handlers holds HTTP handler dependencies
type Handlers struct {
	svc *service.Service
	log *zap.Logger
}

// NewHandlers creates new API handlers
func NewHandlers(svc *service.Service, log *zap.Logger) *Handlers {
	return &Handlers{svc: svc, log: logger.OrNop(log)}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to write response", zap.Error(err))
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, code, msg string) {
	h.respondJSON(w, status, apitypes.ErrorResponse{Error: msg, Code: code})
}

// respondErr maps the error taxonomy onto status codes
func (h *Handlers) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		h.respondError(w, http.StatusBadRequest, apitypes.CodeValidation, err.Error())
	case errors.Is(err, types.ErrNotFound):
		h.respondError(w, http.StatusNotFound, apitypes.CodeNotFound, err.Error())
	case errors.Is(err, types.ErrConflict):
		h.respondError(w, http.StatusConflict, apitypes.CodeConflict, err.Error())
	case errors.Is(err, types.ErrProviderUnavailable):
		h.log.Warn("provider unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, apitypes.CodeProviderUnavailable, err.Error())
	default:
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, apitypes.CodeInternal, "internal error")
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, apitypes.CodeValidation, "invalid request body")
		return false
	}
	return true
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Stats()
	h.respondJSON(w, http.StatusOK, apitypes.HealthResponse{
		Status:     "ok",
		Jobs:       st.Jobs,
		Candidates: st.Candidates,
		Cache: apitypes.CacheStats{
			Hits:     st.Cache.Hits,
			Misses:   st.Cache.Misses,
			Computes: st.Cache.Computes,
		},
	})
}

// Recommend handles POST /v1/match/recommend
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req apitypes.RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := h.svc.Recommend(r.Context(), req.Profile, req.TopK, req.Filters)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.RecommendResponse{Results: results})
}

// Analyze handles POST /v1/match/analyze
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req apitypes.AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	analysis, err := h.svc.Analyze(r.Context(), req.Text)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.AnalyzeResponse{Analysis: analysis})
}

// Explanation handles GET /v1/match/results/{id}/explanation
func (h *Handlers) Explanation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	text, err := h.svc.Explain(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.ExplanationResponse{ID: id, Explanation: text})
}

// PutJob handles PUT /v1/jobs/{id}. The path id wins over the body.
func (h *Handlers) PutJob(w http.ResponseWriter, r *http.Request) {
	var job types.JobPosting
	if !h.decode(w, r, &job) {
		return
	}
	job.ID = chi.URLParam(r, "id")

	changed, err := h.svc.IndexJob(r.Context(), job)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.IndexResponse{ID: job.ID, Changed: changed})
}

// DeleteJob handles DELETE /v1/jobs/{id}
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutCandidate handles PUT /v1/candidates/{id}
func (h *Handlers) PutCandidate(w http.ResponseWriter, r *http.Request) {
	var c types.CandidateProfile
	if !h.decode(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")

	changed, err := h.svc.IndexCandidate(r.Context(), c)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.IndexResponse{ID: c.ID, Changed: changed})
}

// DeleteCandidate handles DELETE /v1/candidates/{id}
func (h *Handlers) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveCandidate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chat handles POST /v1/conversations/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req apitypes.ChatRequest
	if !h.decode(w, r, &req) {
		return
	}

	turn, err := h.svc.Chat(r.Context(), req.UserID, req.ConversationID, req.Message)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.ChatResponse{
		ConversationID: turn.SessionID,
		Reply:          turn.Reply,
		Preferences:    turn.Preferences,
		State:          turn.State,
		Version:        turn.Version,

		Recommendations: turn.Recommendations,
	})
}

// CloseConversation handles POST /v1/conversations/{conversationID}/close
func (h *Handlers) CloseConversation(w http.ResponseWriter, r *http.Request) {
	var req apitypes.ConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.CloseConversation(r.Context(), req.UserID, chi.URLParam(r, "conversationID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.ConversationResponse{Conversation: sess})
}

// RecommendForConversation handles POST /v1/conversations/{conversationID}/recommend
func (h *Handlers) RecommendForConversation(w http.ResponseWriter, r *http.Request) {
	var req apitypes.ConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := h.svc.RecommendForConversation(r.Context(), req.UserID, chi.URLParam(r, "conversationID"), req.TopK)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.RecommendResponse{Results: results})
}

// ListConversations handles GET /v1/users/{userID}/conversations
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListConversations(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.ListConversationsResponse{Conversations: list})
}

// GetConversation handles GET /v1/users/{userID}/conversations/{conversationID}
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetConversation(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "conversationID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.ConversationResponse{Conversation: sess})
}

// DeleteConversation handles DELETE /v1/users/{userID}/conversations/{conversationID}
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteConversation(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "conversationID")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
