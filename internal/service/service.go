// Package service is the facade the HTTP, MCP and CLI surfaces call into.
// It applies the provider timeout and owns the backend's lifetime.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/conversation"
	"github.com/MereWhiplash/jobmatch/internal/embedcache"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/matching"
	"github.com/MereWhiplash/jobmatch/internal/storage"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Service contains the operations exposed to callers
type Service struct {
	matcher *matching.Engine
	chats   *conversation.Engine
	cache   *embedcache.Cache
	storage storage.Storage
	timeout time.Duration
	log     *zap.Logger

	closers []func() error
}

// Stats is a point-in-time view for health checks
type Stats struct {
	Jobs       int              `json:"jobs"`
	Candidates int              `json:"candidates"`
	Cache      embedcache.Stats `json:"cache"`
}

// New creates a new Service. A zero timeout leaves provider calls unbounded.
func New(matcher *matching.Engine, chats *conversation.Engine, cache *embedcache.Cache, store storage.Storage, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{
		matcher: matcher,
		chats:   chats,
		cache:   cache,
		storage: store,
		timeout: timeout,
		log:     logger.OrNop(log),
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// deadline maps an expired provider timeout to ErrProviderUnavailable
func deadline(err error) error {
	if err == nil || errors.Is(err, types.ErrProviderUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
	}
	return err
}

// Recommend ranks the opposite side of the market for a profile
func (s *Service) Recommend(ctx context.Context, p types.Profile, topK int, filters types.HardFilters) ([]types.MatchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.matcher.Recommend(ctx, p, topK, filters)
	return res, deadline(err)
}

// Analyze extracts structured attributes from a posting or résumé
func (s *Service) Analyze(ctx context.Context, text string) (*types.JobAnalysis, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	a, err := s.matcher.Analyze(ctx, text)
	return a, deadline(err)
}

// Explain returns the explanation of a recently returned match result
func (s *Service) Explain(ctx context.Context, matchID string) (string, error) {
	return s.matcher.ExplainByID(ctx, matchID)
}

// IndexJob embeds and stores a posting. changed is false when nothing was re-embedded.
func (s *Service) IndexJob(ctx context.Context, j types.JobPosting) (changed bool, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	changed, err = s.matcher.IndexJob(ctx, j)
	return changed, deadline(err)
}

// IndexCandidate embeds and stores a candidate profile
func (s *Service) IndexCandidate(ctx context.Context, c types.CandidateProfile) (changed bool, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	changed, err = s.matcher.IndexCandidate(ctx, c)
	return changed, deadline(err)
}

// IndexJobs bulk-indexes postings. The provider timeout does not apply to the batch.
func (s *Service) IndexJobs(ctx context.Context, jobs []types.JobPosting) (int, error) {
	n, err := s.matcher.IndexJobs(ctx, jobs)
	return n, deadline(err)
}

func (s *Service) RemoveJob(ctx context.Context, id string) error {
	return s.matcher.RemoveJob(ctx, id)
}

func (s *Service) RemoveCandidate(ctx context.Context, id string) error {
	return s.matcher.RemoveCandidate(ctx, id)
}

// Chat runs one conversation turn. An empty conversationID starts a new conversation.
func (s *Service) Chat(ctx context.Context, userID, conversationID, message string) (*conversation.TurnResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.chats.HandleTurn(ctx, userID, conversationID, message)
	return res, deadline(err)
}

// CloseConversation moves a conversation to its terminal state
func (s *Service) CloseConversation(ctx context.Context, userID, conversationID string) (*types.Session, error) {
	return s.chats.Close(ctx, userID, conversationID)
}

// RecommendForConversation matches jobs against the preferences gathered so far
func (s *Service) RecommendForConversation(ctx context.Context, userID, conversationID string, topK int) ([]types.MatchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.chats.Recommend(ctx, userID, conversationID, topK)
	return res, deadline(err)
}

func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*types.Session, error) {
	return s.chats.Get(ctx, userID, conversationID)
}

func (s *Service) ListConversations(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	return s.chats.List(ctx, userID)
}

// DeleteConversation is idempotent
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return s.chats.Delete(ctx, userID, conversationID)
}

// Stats reports index sizes and cache counters
func (s *Service) Stats() Stats {
	jobs, candidates := s.matcher.IndexSizes()
	st := Stats{Jobs: jobs, Candidates: candidates}
	if s.cache != nil {
		st.Cache = s.cache.Stats()
	}
	return st
}

// Close cleans up resources
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}
