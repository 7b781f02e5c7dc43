// Package engine composes the stores, the remote contract and the pure
// folder derivations into the optimistic collection engine the UI layer
// consumes. Mutations apply locally first, then confirm or roll back against
// the remote authority.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"loom-engine/internal/apperrors"
	"loom-engine/internal/store"
	"loom-engine/pkg/observability"
)

// RemoteOps is the mutation slice of a remote endpoint, generic over record
// and patch shape. Both entity kinds satisfy it.
type RemoteOps[R store.Record[R], P any] interface {
	Create(ctx context.Context, rec R) (R, error)
	Update(ctx context.Context, ownerID, id string, patch P) (R, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Coordinator wraps create/update/delete with the optimistic discipline:
// snapshot, apply locally, call remote, then reconcile or restore the exact
// snapshot. At most one mutation may be in flight per record; overlapping
// mutations are rejected rather than left to race their rollbacks.
type Coordinator[R store.Record[R], P any] struct {
	entity  string
	store   *store.Store[R]
	remote  RemoteOps[R, P]
	apply   func(R, P) R
	logger  *zap.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoordinator builds a coordinator for one entity kind. apply must return
// a patched copy without mutating its input, so snapshots stay pristine.
func NewCoordinator[R store.Record[R], P any](
	entity string,
	s *store.Store[R],
	remote RemoteOps[R, P],
	apply func(R, P) R,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Coordinator[R, P] {
	return &Coordinator[R, P]{
		entity:   entity,
		store:    s,
		remote:   remote,
		apply:    apply,
		logger:   logger,
		metrics:  metrics,
		inflight: make(map[string]struct{}),
	}
}

// Create inserts rec (carrying a provisional id) optimistically and calls
// the remote create. The record only enters the store when it matches the
// caller's active filter predicate, so the list never shows an entry that
// would vanish on the next refetch. On confirmation the provisional record
// is replaced in place by the server-issued one; on failure it is removed.
func (c *Coordinator[R, P]) Create(ctx context.Context, rec R, matches func(R) bool) (R, error) {
	var zero R
	provisionalID := rec.GetID()
	if !c.acquire(provisionalID) {
		return zero, c.inflightError(provisionalID)
	}
	defer c.release(provisionalID)

	visible := matches == nil || matches(rec)
	if visible {
		c.store.Upsert(rec)
	}
	c.metrics.Applied("create")

	confirmed, err := c.remote.Create(ctx, rec)
	if err != nil {
		if visible {
			c.store.Remove(provisionalID)
		}
		c.metrics.RolledBack("create")
		c.logger.Warn("optimistic create rolled back",
			zap.String("entity", c.entity),
			zap.String("id", provisionalID),
			zap.Error(err),
		)
		return zero, err
	}

	if visible {
		c.store.Replace(provisionalID, confirmed)
	} else if matches != nil && matches(confirmed) {
		c.store.Upsert(confirmed)
	}
	c.metrics.Confirmed("create")
	return confirmed, nil
}

// Update snapshots the record, applies the patch locally, and calls the
// remote update. A failure restores the exact snapshot rather than a partial
// merge; success replaces local state with the server-returned record.
func (c *Coordinator[R, P]) Update(ctx context.Context, id string, patch P) (R, error) {
	var zero R
	if !c.acquire(id) {
		return zero, c.inflightError(id)
	}
	defer c.release(id)

	before, ok := c.store.Get(id)
	if !ok {
		return zero, apperrors.NotFound("TARGET_MISSING", "mutation target no longer exists").
			WithResource(id).Build()
	}

	c.store.Upsert(c.apply(before, patch))
	c.metrics.Applied("update")

	after, err := c.remote.Update(ctx, before.GetOwnerID(), id, patch)
	if err != nil {
		c.store.Upsert(before)
		c.metrics.RolledBack("update")
		c.logger.Warn("optimistic update rolled back",
			zap.String("entity", c.entity),
			zap.String("id", id),
			zap.Error(err),
		)
		return zero, err
	}

	c.store.Upsert(after)
	c.metrics.Confirmed("update")
	return after, nil
}

// Delete removes the record locally, runs the optional cascade (which must
// return an undo restoring whatever it removed), and calls the remote
// delete. On failure the snapshot and the cascade are both restored.
func (c *Coordinator[R, P]) Delete(ctx context.Context, id string, cascade func() (undo func())) error {
	if !c.acquire(id) {
		return c.inflightError(id)
	}
	defer c.release(id)

	before, index, ok := c.store.Take(id)
	if !ok {
		return apperrors.NotFound("TARGET_MISSING", "mutation target no longer exists").
			WithResource(id).Build()
	}

	var undo func()
	if cascade != nil {
		undo = cascade()
	}
	c.metrics.Applied("delete")

	if err := c.remote.Delete(ctx, before.GetOwnerID(), id); err != nil {
		// The cascade removed records after the target, so it unwinds
		// first; then the target slots back into its original position.
		if undo != nil {
			undo()
		}
		c.store.RestoreAt(index, before)
		c.metrics.RolledBack("delete")
		c.logger.Warn("optimistic delete rolled back",
			zap.String("entity", c.entity),
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	c.metrics.Confirmed("delete")
	return nil
}

func (c *Coordinator[R, P]) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Coordinator[R, P]) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

func (c *Coordinator[R, P]) inflightError(id string) error {
	return apperrors.Conflict("OPERATION_IN_FLIGHT", "another mutation on this record is still pending").
		WithResource(id).Build()
}
