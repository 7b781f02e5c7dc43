package engine

import (
	"context"

	"go.uber.org/zap"

	"loom-engine/internal/domain/folder"
	"loom-engine/internal/domain/item"
	"loom-engine/internal/remote"
	"loom-engine/internal/store"
	"loom-engine/pkg/observability"
)

// Reconciler applies server-pushed change events to the local stores through
// the same idempotent upsert/remove path the coordinator uses for its own
// confirmations. An echo of a mutation this engine just confirmed is
// harmless: the upsert is keyed by id and converges to the same record.
type Reconciler struct {
	feed    remote.ChangeFeed
	folders *store.Store[*folder.Folder]
	items   *store.Store[*item.Item]
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewReconciler wires a change feed to the two entity stores.
func NewReconciler(
	feed remote.ChangeFeed,
	folders *store.Store[*folder.Folder],
	items *store.Store[*item.Item],
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Reconciler {
	return &Reconciler{
		feed:    feed,
		folders: folders,
		items:   items,
		logger:  logger,
		metrics: metrics,
	}
}

// Run consumes the feed until the context ends or the feed closes.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.feed.Events():
			if !ok {
				r.logger.Info("change feed closed")
				return
			}
			r.apply(ev)
		}
	}
}

func (r *Reconciler) apply(ev remote.ChangeEvent) {
	switch ev.Entity {
	case remote.EntityFolder:
		if ev.Folder == nil {
			r.logger.Warn("folder change event without record", zap.String("op", string(ev.Op)))
			return
		}
		if ev.Op == remote.OpDelete {
			r.folders.Remove(ev.Folder.ID)
		} else {
			r.folders.Upsert(ev.Folder)
		}
	case remote.EntityItem:
		if ev.Item == nil {
			r.logger.Warn("item change event without record", zap.String("op", string(ev.Op)))
			return
		}
		if ev.Op == remote.OpDelete {
			r.items.Remove(ev.Item.ID)
		} else {
			r.items.Upsert(ev.Item)
		}
	default:
		r.logger.Warn("change event for unknown entity", zap.String("entity", string(ev.Entity)))
		return
	}
	r.metrics.EventApplied(string(ev.Entity), string(ev.Op))
}
