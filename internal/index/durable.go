package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/keylock"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Durable keeps a Memory index in step with a persistence backend.
// Writes go to the backend first so memory never holds what was not persisted.
// Writes to one id are serialized so backend and memory agree on the last one.
type Durable struct {
	*Memory
	kind   types.EntityKind
	store  Store
	writes *keylock.Map
	log    *zap.Logger
}

// NewDurable wraps a fresh Memory index for one entity kind
func NewDurable(kind types.EntityKind, store Store, log *zap.Logger) *Durable {
	return &Durable{
		Memory: NewMemory(),
		kind:   kind,
		store:  store,
		writes: keylock.New(),
		log:    logger.OrNop(log),
	}
}

// Load rebuilds the in-memory index from the backend
func (d *Durable) Load(ctx context.Context) error {
	entries, err := d.store.ListEntries(ctx, d.kind)
	if err != nil {
		return fmt.Errorf("failed to load %s entries: %w", d.kind, err)
	}
	for _, e := range entries {
		if err := d.Memory.Upsert(ctx, e); err != nil {
			d.log.Warn("skipping stored entry", zap.String("id", e.ID), zap.Error(err))
		}
	}
	d.log.Info("index loaded", zap.String("kind", string(d.kind)), zap.Int("entries", d.Len()))
	return nil
}

// Upsert persists then indexes e
func (d *Durable) Upsert(ctx context.Context, e types.IndexEntry) error {
	e.Kind = d.kind
	if err := d.Check(e); err != nil {
		return err
	}
	unlock, err := d.writes.Lock(ctx, e.ID)
	if err != nil {
		return err
	}
	defer unlock()
	if err := d.store.UpsertEntry(ctx, e); err != nil {
		return fmt.Errorf("failed to persist entry: %w", err)
	}
	return d.Memory.Upsert(ctx, e)
}

// Remove deletes from the backend then from memory
func (d *Durable) Remove(ctx context.Context, id string) error {
	unlock, err := d.writes.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	if err := d.store.DeleteEntry(ctx, d.kind, id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return d.Memory.Remove(ctx, id)
}
