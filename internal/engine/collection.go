package engine

import (
	"context"

	"go.uber.org/zap"

	"loom-engine/internal/apperrors"
	"loom-engine/internal/domain/folder"
	"loom-engine/internal/domain/item"
	"loom-engine/internal/remote"
	"loom-engine/internal/store"
	"loom-engine/pkg/observability"
)

// FolderCollection is the facade the UI layer talks to for folder intents.
// It owns the folder store, its mutation coordinator, and the pure
// derivations over the forest.
type FolderCollection struct {
	ownerID string
	store   *store.Store[*folder.Folder]
	items   *store.Store[*item.Item]
	coord   *Coordinator[*folder.Folder, folder.Patch]
	api     remote.FolderAPI
	logger  *zap.Logger
}

// Refresh rebuilds the local folder set from server truth.
func (c *FolderCollection) Refresh(ctx context.Context) error {
	folders, err := c.api.List(ctx, c.ownerID)
	if err != nil {
		return err
	}
	c.store.Reset()
	c.store.UpsertMany(folders)
	return nil
}

// All returns the flat folder set in store order.
func (c *FolderCollection) All() []*folder.Folder {
	return c.store.All()
}

// Get returns one folder by id.
func (c *FolderCollection) Get(id string) (*folder.Folder, bool) {
	return c.store.Get(id)
}

// Tree derives the current forest with depths and paths.
func (c *FolderCollection) Tree() *folder.Forest {
	return folder.BuildForest(c.store.All())
}

// Search filters folders by name, keeping every ancestor of a match.
func (c *FolderCollection) Search(query string) []*folder.Folder {
	return folder.Filter(c.store.All(), query)
}

// Create makes a new folder under parentID (nil for root), optimistically.
func (c *FolderCollection) Create(ctx context.Context, name string, parentID *string) (*folder.Folder, error) {
	if parentID != nil {
		if _, ok := c.store.Get(*parentID); !ok {
			return nil, apperrors.NotFound("PARENT_NOT_FOUND", "target parent does not exist").
				WithResource(*parentID).Build()
		}
	}
	f, err := folder.New(c.ownerID, name, parentID)
	if err != nil {
		return nil, err
	}
	// Folders are never filtered out of the tree, so every create is visible.
	return c.coord.Create(ctx, f, nil)
}

// Rename changes a folder's name.
func (c *FolderCollection) Rename(ctx context.Context, id, name string) (*folder.Folder, error) {
	p := folder.Patch{Name: &name}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.coord.Update(ctx, id, p)
}

// Move re-parents a folder. The cycle guard runs first; a rejected move
// never touches local or remote state.
func (c *FolderCollection) Move(ctx context.Context, id string, newParentID *string) (*folder.Folder, error) {
	if err := folder.CanReparent(c.store.All(), id, newParentID); err != nil {
		return nil, err
	}
	p := folder.Patch{ParentID: newParentID, MoveToRoot: newParentID == nil}
	return c.coord.Update(ctx, id, p)
}

// Delete removes a folder. The server cascades to descendants and contained
// items; the same cascade is mirrored locally so the view converges without
// waiting for change events, and the whole snapshot is restored on failure.
func (c *FolderCollection) Delete(ctx context.Context, id string) error {
	return c.coord.Delete(ctx, id, func() func() {
		removed := descendantSet(c.store.All(), id)

		// Each removal records its list position; unwinding in reverse
		// puts every record back exactly where it was.
		var undos []func()
		for fid := range removed {
			if fid == id {
				continue // the coordinator already removed the target itself
			}
			if f, index, ok := c.store.Take(fid); ok {
				undos = append(undos, func() { c.store.RestoreAt(index, f) })
			}
		}
		for _, it := range c.items.All() {
			if removed[it.FolderID] {
				if rec, index, ok := c.items.Take(it.ID); ok {
					undos = append(undos, func() { c.items.RestoreAt(index, rec) })
				}
			}
		}

		return func() {
			for i := len(undos) - 1; i >= 0; i-- {
				undos[i]()
			}
		}
	})
}

// descendantSet returns id plus every transitive descendant, computed over
// parent links so it works whether or not the root record is still present.
func descendantSet(folders []*folder.Folder, id string) map[string]bool {
	set := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, f := range folders {
			if f.ParentID != nil && set[*f.ParentID] && !set[f.ID] {
				set[f.ID] = true
				changed = true
			}
		}
	}
	return set
}

// ItemCollection is the facade for bookmark/prompt intents plus the
// paginated query over them.
type ItemCollection struct {
	ownerID string
	store   *store.Store[*item.Item]
	folders *store.Store[*folder.Folder]
	coord   *Coordinator[*item.Item, item.Patch]
	query   *ItemQuery
	logger  *zap.Logger
}

// Query exposes the paginated, filterable list state.
func (c *ItemCollection) Query() *ItemQuery {
	return c.query
}

// Items returns the loaded list in store order.
func (c *ItemCollection) Items() []*item.Item {
	return c.store.All()
}

// Get returns one item by id.
func (c *ItemCollection) Get(id string) (*item.Item, bool) {
	return c.store.Get(id)
}

// Create adds an item optimistically. The provisional record only shows up
// when it matches the active filters.
func (c *ItemCollection) Create(ctx context.Context, in item.CreateInput) (*item.Item, error) {
	if _, ok := c.folders.Get(in.FolderID); !ok {
		return nil, apperrors.NotFound("FOLDER_NOT_FOUND", "target folder does not exist").
			WithResource(in.FolderID).Build()
	}
	it, err := item.New(c.ownerID, in)
	if err != nil {
		return nil, err
	}
	filters := c.query.Filters()
	return c.coord.Create(ctx, it, filters.Matches)
}

// Edit applies a partial update to an item.
func (c *ItemCollection) Edit(ctx context.Context, id string, p item.Patch) (*item.Item, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.FolderID != nil {
		if _, ok := c.folders.Get(*p.FolderID); !ok {
			return nil, apperrors.NotFound("FOLDER_NOT_FOUND", "target folder does not exist").
				WithResource(*p.FolderID).Build()
		}
	}
	return c.coord.Update(ctx, id, p)
}

// Delete removes an item.
func (c *ItemCollection) Delete(ctx context.Context, id string) error {
	return c.coord.Delete(ctx, id, nil)
}

// Engine bundles both collections and the change-event reconciler for one
// authenticated session.
type Engine struct {
	ownerID    string
	Folders    *FolderCollection
	Items      *ItemCollection
	reconciler *Reconciler
	logger     *zap.Logger
}

// Options tunes engine construction.
type Options struct {
	// PageSize for item queries; defaults to DefaultPageSize.
	PageSize int
	// Metrics may be nil to run without instrumentation.
	Metrics *observability.Metrics
}

// New builds an engine for one owner. feed may be nil when no realtime
// transport is attached; Start then only serves the collections.
func New(ownerID string, folderAPI remote.FolderAPI, itemAPI remote.ItemAPI, feed remote.ChangeFeed, logger *zap.Logger, opts Options) *Engine {
	folderStore := store.New[*folder.Folder](ownerID)
	itemStore := store.New[*item.Item](ownerID)

	folderCoord := NewCoordinator("folder", folderStore, folderAPI,
		func(f *folder.Folder, p folder.Patch) *folder.Folder { return p.Apply(f) },
		logger, opts.Metrics)
	itemCoord := NewCoordinator("item", itemStore, itemAPI,
		func(it *item.Item, p item.Patch) *item.Item { return p.Apply(it) },
		logger, opts.Metrics)

	e := &Engine{
		ownerID: ownerID,
		logger:  logger,
		Folders: &FolderCollection{
			ownerID: ownerID,
			store:   folderStore,
			items:   itemStore,
			coord:   folderCoord,
			api:     folderAPI,
			logger:  logger,
		},
		Items: &ItemCollection{
			ownerID: ownerID,
			store:   itemStore,
			folders: folderStore,
			coord:   itemCoord,
			query:   NewItemQuery(itemAPI, itemStore, opts.PageSize, logger, opts.Metrics),
			logger:  logger,
		},
	}
	if feed != nil {
		e.reconciler = NewReconciler(feed, folderStore, itemStore, logger, opts.Metrics)
	}
	return e
}

// Start launches the reconciler, if a feed was attached. It returns
// immediately; the reconciler stops with the context.
func (e *Engine) Start(ctx context.Context) {
	if e.reconciler != nil {
		go e.reconciler.Run(ctx)
	}
}

// Reset clears all local state. Called on sign-out; stores are rebuilt on
// the next sign-in or refresh.
func (e *Engine) Reset() {
	e.Folders.store.Reset()
	e.Items.store.Reset()
	e.Items.query.Reset()
	e.logger.Info("engine state reset", zap.String("owner", e.ownerID))
}
