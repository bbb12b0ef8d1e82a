// Package matching ranks jobs against candidates (and back) by embedding similarity
// under structured hard filters.
package matching

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MereWhiplash/jobmatch/internal/embedcache"
	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/index"
	"github.com/MereWhiplash/jobmatch/internal/keylock"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

const (
	DefaultTopK          = 10
	DefaultMaxTopK       = 100
	DefaultRecentResults = 1024
	DefaultIndexWorkers  = 4
	DefaultAnalysisMemo  = 1024
)

// Embeddings returns the vector of a text, memoized by content
type Embeddings interface {
	GetOrCompute(ctx context.Context, text string) (types.Vector, error)
}

// Engine is the matching engine. Construct it with New; it holds no globals.
type Engine struct {
	embeddings Embeddings
	jobs       index.Index
	candidates index.Index
	gen        generator.Generator
	log        *zap.Logger

	defaultTopK int
	maxTopK     int
	workers     int
	now         func() time.Time

	recent *recentResults
	writes *keylock.Map

	analyses  *bounded[types.JobAnalysis]
	analyzing singleflight.Group
}

// Option configures an Engine
type Option func(*Engine)

// WithTopK sets the default and maximum result counts
func WithTopK(def, maximum int) Option {
	return func(e *Engine) {
		if def > 0 {
			e.defaultTopK = def
		}
		if maximum > 0 {
			e.maxTopK = maximum
		}
	}
}

// WithRecentResults bounds how many results ExplainByID can serve
func WithRecentResults(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recent = newRecentResults(n)
		}
	}
}

// WithAnalysisMemo bounds how many analyses stay memoized
func WithAnalysisMemo(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.analyses = newBounded[types.JobAnalysis](n)
		}
	}
}

// WithIndexWorkers bounds IndexJobs parallelism
func WithIndexWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock overrides time.Now for index timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a matching engine. gen may be nil when Analyze is not used.
func New(embeddings Embeddings, jobs, candidates index.Index, gen generator.Generator, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		embeddings:  embeddings,
		jobs:        jobs,
		candidates:  candidates,
		gen:         gen,
		log:         logger.OrNop(log),
		defaultTopK: DefaultTopK,
		maxTopK:     DefaultMaxTopK,
		workers:     DefaultIndexWorkers,
		now:         time.Now,
		recent:      newRecentResults(DefaultRecentResults),
		writes:      keylock.New(),
		analyses:    newBounded[types.JobAnalysis](DefaultAnalysisMemo),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxTopK < e.defaultTopK {
		e.maxTopK = e.defaultTopK
	}
	return e
}

// Recommend returns at most topK entities of the opposite kind that satisfy every
// hard filter, best first. topK <= 0 uses the default; larger values are clamped.
func (e *Engine) Recommend(ctx context.Context, p types.Profile, topK int, filters types.HardFilters) ([]types.MatchResult, error) {
	if err := p.Kind.Validate(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: profile text is empty", types.ErrValidation)
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	topK = e.clampTopK(topK)

	queryID := p.ID
	if queryID == "" {
		queryID = "q-" + embedcache.Key(text)[:12]
	}

	vec, err := e.embeddings.GetOrCompute(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed profile: %w", err)
	}

	hits, err := e.indexFor(p.Kind.Opposite()).Query(ctx, vec, topK, func(en *types.IndexEntry) bool {
		return filters.Match(en.Attributes)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	profileSkills := types.NormalizeSkills(p.Attributes.Skills)
	results := make([]types.MatchResult, 0, len(hits))
	for _, h := range hits {
		r := types.MatchResult{Score: h.Score}
		if p.Kind == types.KindCandidate {
			r.JobID, r.CandidateID = h.ID, queryID
		} else {
			r.JobID, r.CandidateID = queryID, h.ID
		}
		r.ID = types.MatchID(r.JobID, r.CandidateID)
		r.Matched, r.Failed = evaluate(filters, profileSkills, h.Attributes)
		r.Explanation = Explain(r)

		e.recent.put(r.ID, r)
		results = append(results, r)
	}

	e.log.Debug("recommend",
		zap.String("kind", string(p.Kind)),
		zap.String("query", queryID),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))

	return results, nil
}

// ExplainByID explains a result returned by a recent Recommend call
func (e *Engine) ExplainByID(_ context.Context, id string) (string, error) {
	r, ok := e.recent.get(id)
	if !ok {
		return "", fmt.Errorf("%w: match result %s", types.ErrNotFound, id)
	}
	return Explain(r), nil
}

// IndexJob embeds and indexes a posting. It reports false when the stored
// snapshot already matches.
func (e *Engine) IndexJob(ctx context.Context, j types.JobPosting) (bool, error) {
	return e.indexEntity(ctx, e.jobs, types.KindJob, j.ID, j.EmbeddingText(), j.Attributes)
}

// IndexCandidate embeds and indexes a candidate profile
func (e *Engine) IndexCandidate(ctx context.Context, c types.CandidateProfile) (bool, error) {
	return e.indexEntity(ctx, e.candidates, types.KindCandidate, c.ID, c.EmbeddingText(), c.Attributes)
}

// IndexJobs indexes postings in parallel and returns how many changed
func (e *Engine) IndexJobs(ctx context.Context, jobs []types.JobPosting) (int, error) {
	var changed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, j := range jobs {
		g.Go(func() error {
			ok, err := e.IndexJob(gctx, j)
			if err != nil {
				return fmt.Errorf("job %s: %w", j.ID, err)
			}
			if ok {
				changed.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(changed.Load()), err
}

// RemoveJob drops a posting from the index
func (e *Engine) RemoveJob(ctx context.Context, id string) error {
	return e.removeEntity(ctx, e.jobs, types.KindJob, id)
}

// RemoveCandidate drops a candidate from the index
func (e *Engine) RemoveCandidate(ctx context.Context, id string) error {
	return e.removeEntity(ctx, e.candidates, types.KindCandidate, id)
}

// IndexSizes returns the number of indexed jobs and candidates
func (e *Engine) IndexSizes() (jobs, candidates int) {
	return e.jobs.Len(), e.candidates.Len()
}

func (e *Engine) indexEntity(ctx context.Context, idx index.Index, kind types.EntityKind, id, text string, attrs types.Attributes) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, fmt.Errorf("%w: %s id is required", types.ErrValidation, kind)
	}
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("%w: %s %s has no text", types.ErrValidation, kind, id)
	}

	// Writes for one id run one at a time, so a slow embed of older text
	// cannot land after a newer one.
	unlock, err := e.writes.Lock(ctx, writeKey(kind, id))
	if err != nil {
		return false, err
	}
	defer unlock()

	attrs = attrs.Normalized()
	hash := embedcache.Key(text)
	if existing, err := idx.Get(ctx, id); err == nil && existing.TextHash == hash && existing.Attributes.Equal(attrs) {
		return false, nil
	}

	vec, err := e.embeddings.GetOrCompute(ctx, text)
	if err != nil {
		return false, fmt.Errorf("failed to embed %s %s: %w", kind, id, err)
	}

	err = idx.Upsert(ctx, types.IndexEntry{
		Kind:       kind,
		ID:         id,
		Vector:     vec,
		Attributes: attrs,
		TextHash:   hash,
		UpdatedAt:  e.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to index %s %s: %w", kind, id, err)
	}
	return true, nil
}

func (e *Engine) removeEntity(ctx context.Context, idx index.Index, kind types.EntityKind, id string) error {
	unlock, err := e.writes.Lock(ctx, writeKey(kind, id))
	if err != nil {
		return err
	}
	defer unlock()
	return idx.Remove(ctx, id)
}

func writeKey(kind types.EntityKind, id string) string {
	return string(kind) + "\x00" + id
}

func (e *Engine) indexFor(kind types.EntityKind) index.Index {
	if kind == types.KindCandidate {
		return e.candidates
	}
	return e.jobs
}

func (e *Engine) clampTopK(k int) int {
	if k <= 0 {
		return e.defaultTopK
	}
	if k > e.maxTopK {
		return e.maxTopK
	}
	return k
}
