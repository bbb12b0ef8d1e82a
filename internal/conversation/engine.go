// Package conversation drives multi-turn preference elicitation as an explicit
// state machine: started → eliciting → confirming → closed.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/generator"
	"github.com/MereWhiplash/jobmatch/internal/keylock"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// DefaultRequiredFields must be present before a session can reach confirming
var DefaultRequiredFields = []types.PreferenceField{types.FieldLocation, types.FieldSkills}

// Store persists sessions keyed by (user id, session id)
type Store interface {
	GetSession(ctx context.Context, userID, id string) (*types.Session, error)
	ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error)
	SaveSession(ctx context.Context, s *types.Session) error
	DeleteSession(ctx context.Context, userID, id string) error
}

// Matcher is the part of the matching engine a conversation hands off to
type Matcher interface {
	Recommend(ctx context.Context, p types.Profile, topK int, filters types.HardFilters) ([]types.MatchResult, error)
}

// TurnResult is what a caller gets back from one chat turn
type TurnResult struct {
	SessionID   string             `json:"conversation_id"`
	Reply       string             `json:"reply"`
	Preferences types.Preferences  `json:"preferences"`
	State       types.SessionState `json:"state"`
	Version     int64              `json:"version"`
	// Recommendations is filled once the turn reaches confirming and a
	// matcher is configured
	Recommendations []types.MatchResult `json:"recommendations,omitempty"`
}

// Engine runs chat turns. Turns for one session are serialized; different
// sessions run in parallel.
type Engine struct {
	store    Store
	gen      generator.Generator
	matcher  Matcher
	log      *zap.Logger
	required []types.PreferenceField
	turnTopK int
	locks    *keylock.Map
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine
type Option func(*Engine)

// WithRequiredFields overrides DefaultRequiredFields
func WithRequiredFields(fields ...types.PreferenceField) Option {
	return func(e *Engine) {
		if len(fields) > 0 {
			e.required = fields
		}
	}
}

// WithMatcher enables Recommend and attaches recommendations to turns that
// reach confirming
func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithTurnTopK sets how many recommendations a confirming turn carries.
// Zero uses the matcher's default.
func WithTurnTopK(k int) Option {
	return func(e *Engine) { e.turnTopK = k }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the uuid session id generator
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New creates a conversation engine
func New(store Store, gen generator.Generator, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		gen:      gen,
		log:      logger.OrNop(log),
		required: DefaultRequiredFields,
		locks:    keylock.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleTurn records message, re-extracts preferences from the whole history,
// merges them, replies and saves before returning. An empty sessionID starts
// a new session.
//
// On a provider failure the session is saved with only the user message
// appended and the error wraps types.ErrProviderUnavailable.
func (e *Engine) HandleTurn(ctx context.Context, userID, sessionID, message string) (*TurnResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", types.ErrValidation)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", types.ErrValidation)
	}
	if sessionID == "" {
		sessionID = e.newID()
	}

	unlock, err := e.locks.Lock(ctx, lockKey(userID, sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := e.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State == types.StateClosed {
		return nil, fmt.Errorf("%w: conversation %s is closed", types.ErrValidation, sessionID)
	}

	log := e.log.With(zap.String(logger.FieldUser, userID), zap.String(logger.FieldSession, sessionID))

	now := e.now().UTC()
	working := sess.Clone()
	working.Messages = append(working.Messages, types.Message{Role: types.RoleUser, Content: message, Timestamp: now})

	ext, err := e.extract(ctx, working.Messages)
	if err != nil {
		return nil, e.recordFailure(ctx, log, sess, working.Messages[len(working.Messages)-1], err)
	}

	merged := Merge(working.Preferences, ext)
	next := NextState(working.State, merged.Preferences, merged.Contradiction, e.required)
	missing := Missing(merged.Preferences, e.required)

	reply, err := e.gen.Generate(ctx, generator.Request{
		System:   replySystem(merged.Preferences, next, missing),
		Messages: working.Messages,
	})
	if err != nil {
		return nil, e.recordFailure(ctx, log, sess, working.Messages[len(working.Messages)-1], providerErr(err))
	}

	working.Messages = append(working.Messages, types.Message{Role: types.RoleAssistant, Content: reply, Timestamp: e.now().UTC()})
	working.Preferences = merged.Preferences
	working.State = next
	working.Version++
	working.UpdatedAt = e.now().UTC()

	if err := e.store.SaveSession(ctx, working); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	log.Info("turn handled",
		zap.String("state", string(next)),
		zap.Int("messages", len(working.Messages)),
		zap.Any("changed", merged.Changed),
		zap.Any("retracted", merged.Retracted))

	res := &TurnResult{
		SessionID:   working.ID,
		Reply:       reply,
		Preferences: working.Preferences.Clone(),
		State:       working.State,
		Version:     working.Version,
	}

	// The turn is already saved; a failed search only leaves it without results.
	if e.matcher != nil && next == types.StateConfirming {
		recs, err := e.recommend(ctx, userID, working.Preferences, e.turnTopK)
		if err != nil {
			log.Warn("turn recommendations failed", zap.Error(err))
		} else {
			res.Recommendations = recs
		}
	}
	return res, nil
}

// Close ends a session. Closing a closed session is a no-op.
func (e *Engine) Close(ctx context.Context, userID, sessionID string) (*types.Session, error) {
	unlock, err := e.locks.Lock(ctx, lockKey(userID, sessionID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State == types.StateClosed {
		return sess, nil
	}

	sess.State = types.StateClosed
	sess.Version++
	sess.UpdatedAt = e.now().UTC()
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	return sess, nil
}

// Get returns a session or types.ErrNotFound
func (e *Engine) Get(ctx context.Context, userID, sessionID string) (*types.Session, error) {
	return e.store.GetSession(ctx, userID, sessionID)
}

// List returns the user's sessions, most recently updated first
func (e *Engine) List(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", types.ErrValidation)
	}
	return e.store.ListSessions(ctx, userID)
}

// Delete removes a session. Deleting a missing session succeeds.
func (e *Engine) Delete(ctx context.Context, userID, sessionID string) error {
	unlock, err := e.locks.Lock(ctx, lockKey(userID, sessionID))
	if err != nil {
		return err
	}
	defer unlock()
	return e.store.DeleteSession(ctx, userID, sessionID)
}

// Recommend searches jobs with the session's current preferences. Skills and
// category shape the query text; location, salary floor, employment type and
// exclusions become hard filters.
func (e *Engine) Recommend(ctx context.Context, userID, sessionID string, topK int) ([]types.MatchResult, error) {
	if e.matcher == nil {
		return nil, errors.New("conversation engine has no matcher")
	}
	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return e.recommend(ctx, userID, sess.Preferences, topK)
}

func (e *Engine) recommend(ctx context.Context, userID string, prefs types.Preferences, topK int) ([]types.MatchResult, error) {
	profile := types.Profile{
		Kind:       types.KindCandidate,
		ID:         userID,
		Text:       prefs.QueryText(),
		Attributes: types.Attributes{Skills: prefs.Skills},
	}
	return e.matcher.Recommend(ctx, profile, topK, prefs.Filters())
}

func (e *Engine) load(ctx context.Context, userID, sessionID string) (*types.Session, error) {
	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	now := e.now().UTC()
	return &types.Session{
		ID:        sessionID,
		UserID:    userID,
		State:     types.StateStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (e *Engine) extract(ctx context.Context, history []types.Message) (Extraction, error) {
	out, err := e.gen.Generate(ctx, generator.Request{
		System:   extractionPrompt,
		Messages: history,
		JSON:     true,
	})
	if err != nil {
		return Extraction{}, providerErr(err)
	}
	return parseExtraction(out)
}

// recordFailure saves the original session plus the user message only, so the
// failed turn leaves preferences and state exactly as they were. The save
// outlives ctx, which may be the deadline that caused the failure.
func (e *Engine) recordFailure(ctx context.Context, log *zap.Logger, sess *types.Session, msg types.Message, cause error) error {
	failed := sess.Clone()
	failed.Messages = append(failed.Messages, msg)
	failed.Version++
	failed.UpdatedAt = e.now().UTC()

	log.Warn("turn failed", zap.Error(cause))
	if err := e.store.SaveSession(context.WithoutCancel(ctx), failed); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to save conversation: %w", err))
	}
	return cause
}

func providerErr(err error) error {
	if errors.Is(err, types.ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
}

func lockKey(userID, sessionID string) string {
	return userID + "\x00" + sessionID
}
