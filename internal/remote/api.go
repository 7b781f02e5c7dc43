// Package remote defines the contract with the authoritative store and its
// Supabase/PostgREST implementation. The engine treats the remote as correct
// and convergent: every mutation is confirmed or rolled back against what it
// returns, and its change feed is reconciled into local state.
package remote

import (
	"context"

	"loom-engine/internal/domain/folder"
	"loom-engine/internal/domain/item"
)

// ListQuery scopes an item list request. The zero value lists everything the
// owner has, newest first.
type ListQuery struct {
	FolderID  *string
	Search    string // substring match on title/notes
	Label     *string
	Platform  *string
	Page      int // 1-based
	Limit     int
	Ascending bool // default false: created_at descending
}

// FolderAPI is the remote contract for the folder entity kind. Folder sets
// are small, so the list endpoint returns the whole owner-scoped set.
type FolderAPI interface {
	List(ctx context.Context, ownerID string) ([]*folder.Folder, error)
	Create(ctx context.Context, f *folder.Folder) (*folder.Folder, error)
	Update(ctx context.Context, ownerID, id string, p folder.Patch) (*folder.Folder, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// ItemAPI is the remote contract for the item entity kind.
type ItemAPI interface {
	List(ctx context.Context, ownerID string, q ListQuery) ([]*item.Item, error)
	Create(ctx context.Context, it *item.Item) (*item.Item, error)
	Update(ctx context.Context, ownerID, id string, p item.Patch) (*item.Item, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Op is the kind of change carried by a feed event.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entity names the record kind a change event refers to.
type Entity string

const (
	EntityFolder Entity = "folder"
	EntityItem   Entity = "item"
)

// ChangeEvent is a server-pushed create/update/delete for the authenticated
// owner. Exactly one of Folder or Item is set, matching Entity. For deletes
// only the record id is guaranteed to be populated.
type ChangeEvent struct {
	Entity Entity
	Op     Op
	Folder *folder.Folder
	Item   *item.Item
}

// ChangeFeed is a subscription to the owner's change events. The channel is
// closed when the feed ends.
type ChangeFeed interface {
	Events() <-chan ChangeEvent
	Close() error
}
