package storage

import (
	"context"
	"sync"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

type sessionKey struct{ userID, id string }

type entryKey struct {
	kind types.EntityKind
	id   string
}

// Memory implements Storage in process. Nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*types.Session
	entries  map[entryKey]types.IndexEntry
}

// NewMemory creates an empty in-memory storage
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[sessionKey]*types.Session),
		entries:  make(map[entryKey]types.IndexEntry),
	}
}

func (m *Memory) GetSession(_ context.Context, userID, id string) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionKey{userID, id}]
	if !ok {
		return nil, notFound(userID, id)
	}
	return s.Clone(), nil
}

func (m *Memory) ListSessions(_ context.Context, userID string) ([]types.SessionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []types.SessionSummary{}
	for k, s := range m.sessions {
		if k.userID == userID {
			out = append(out, s.Summary())
		}
	}
	types.SortSummaries(out)
	return out, nil
}

func (m *Memory) SaveSession(_ context.Context, s *types.Session) error {
	if err := validateSession(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{s.UserID, s.ID}
	if stored, ok := m.sessions[key]; ok {
		if err := checkVersion(s, stored.Version); err != nil {
			return err
		}
	}
	m.sessions[key] = s.Clone()
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey{userID, id})
	return nil
}

func (m *Memory) UpsertEntry(_ context.Context, e types.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey{e.Kind, e.ID}] = e.Clone()
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, kind types.EntityKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entryKey{kind, id})
	return nil
}

func (m *Memory) ListEntries(_ context.Context, kind types.EntityKind) ([]types.IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.IndexEntry
	for k, e := range m.entries {
		if k.kind == kind {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
