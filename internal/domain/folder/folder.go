// Package folder contains the folder record and the pure derivations over a
// user's folder forest: tree building, re-parent validation, and
// ancestor-preserving search.
package folder

import (
	"time"

	"loom-engine/internal/apperrors"
	"loom-engine/internal/domain/shared"
)

// MaxNameLength bounds folder names the same way the remote schema does.
const MaxNameLength = 100

// Folder is a user-owned, possibly nested container for items.
// The set of folders owned by one user always forms a forest: ParentID, when
// present, references another folder of the same owner and no folder is ever
// its own ancestor.
type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a folder in the provisional id space, ready for an optimistic
// create. The remote store replaces the id on confirmation.
func New(ownerID, name string, parentID *string) (*Folder, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("EMPTY_OWNER", "owner id cannot be empty").Build()
	}
	if name == "" {
		return nil, apperrors.Validation("EMPTY_NAME", "folder name cannot be empty").Build()
	}
	if len(name) > MaxNameLength {
		return nil, apperrors.Validation("NAME_TOO_LONG", "folder name exceeds maximum length").Build()
	}

	return &Folder{
		ID:        shared.NewProvisionalID(),
		OwnerID:   ownerID,
		Name:      name,
		ParentID:  cloneParent(parentID),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Patch describes a partial update to a folder. Nil fields are left
// untouched; MoveToRoot clears the parent explicitly since a nil ParentID
// means "unchanged".
type Patch struct {
	Name       *string
	ParentID   *string
	MoveToRoot bool
}

// Apply returns a copy of f with the patch applied. The receiver is never
// mutated so pre-mutation snapshots stay intact.
func (p Patch) Apply(f *Folder) *Folder {
	next := f.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.MoveToRoot {
		next.ParentID = nil
	} else if p.ParentID != nil {
		next.ParentID = cloneParent(p.ParentID)
	}
	return next
}

// Validate checks the patch against the same rules as New.
func (p Patch) Validate() error {
	if p.Name != nil {
		if *p.Name == "" {
			return apperrors.Validation("EMPTY_NAME", "folder name cannot be empty").Build()
		}
		if len(*p.Name) > MaxNameLength {
			return apperrors.Validation("NAME_TOO_LONG", "folder name exceeds maximum length").Build()
		}
	}
	if p.MoveToRoot && p.ParentID != nil {
		return apperrors.Validation("AMBIGUOUS_MOVE", "cannot set a parent and move to root at once").Build()
	}
	return nil
}

// ValidateInvariants ensures the record is in a consistent state.
func (f *Folder) ValidateInvariants() error {
	if f.ID == "" {
		return apperrors.Validation("EMPTY_ID", "folder must have an id").Build()
	}
	if f.OwnerID == "" {
		return apperrors.Validation("EMPTY_OWNER", "folder must have an owner").Build()
	}
	if f.Name == "" {
		return apperrors.Validation("EMPTY_NAME", "folder must have a name").Build()
	}
	if f.ParentID != nil && *f.ParentID == f.ID {
		return apperrors.Validation("SELF_PARENT", "folder cannot be its own parent").Build()
	}
	return nil
}

// GetID returns the record id.
func (f *Folder) GetID() string { return f.ID }

// GetOwnerID returns the owning user's id.
func (f *Folder) GetOwnerID() string { return f.OwnerID }

// Clone returns a deep copy.
func (f *Folder) Clone() *Folder {
	next := *f
	next.ParentID = cloneParent(f.ParentID)
	return &next
}

func cloneParent(parentID *string) *string {
	if parentID == nil {
		return nil
	}
	v := *parentID
	return &v
}
