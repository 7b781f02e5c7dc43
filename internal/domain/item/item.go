// Package item contains the item record shared by bookmarks and prompts.
// The two kinds differ only in what the content field holds (a URL vs. a
// reusable text snippet), so one record type serves both collections.
package item

import (
	"time"

	"github.com/go-playground/validator/v10"

	"loom-engine/internal/apperrors"
	"loom-engine/internal/domain/shared"
)

// Kind discriminates the two item flavors stored in folders.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindPrompt   Kind = "prompt"
)

// Item is a user-owned record living inside exactly one folder.
type Item struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	FolderID  string    `json:"folder_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Content   string    `json:"url_or_content"`
	Label     *string   `json:"label,omitempty"`
	Platform  *string   `json:"platform,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput carries the user-supplied fields for a new item.
type CreateInput struct {
	FolderID string  `validate:"required"`
	Kind     Kind    `validate:"required,oneof=bookmark prompt"`
	Title    string  `validate:"required,max=200"`
	Content  string  `validate:"required,max=10000"`
	Label    *string `validate:"omitempty,max=50"`
	Platform *string `validate:"omitempty,max=50"`
	Notes    *string `validate:"omitempty,max=2000"`
}

var validate = validator.New()

// New creates an item in the provisional id space from validated input.
func New(ownerID string, in CreateInput) (*Item, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("EMPTY_OWNER", "owner id cannot be empty").Build()
	}
	if err := validate.Struct(in); err != nil {
		return nil, apperrors.Validation("INVALID_ITEM", "item fields failed validation").
			WithCause(err).Build()
	}

	return &Item{
		ID:        shared.NewProvisionalID(),
		OwnerID:   ownerID,
		FolderID:  in.FolderID,
		Kind:      in.Kind,
		Title:     in.Title,
		Content:   in.Content,
		Label:     cloneOpt(in.Label),
		Platform:  cloneOpt(in.Platform),
		Notes:     cloneOpt(in.Notes),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Patch describes a partial edit. Nil fields are left untouched; optional
// fields set to an empty string are cleared.
type Patch struct {
	FolderID *string
	Title    *string
	Content  *string
	Label    *string
	Platform *string
	Notes    *string
}

// Apply returns a copy of it with the patch applied.
func (p Patch) Apply(it *Item) *Item {
	next := it.Clone()
	if p.FolderID != nil {
		next.FolderID = *p.FolderID
	}
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Content != nil {
		next.Content = *p.Content
	}
	next.Label = applyOpt(next.Label, p.Label)
	next.Platform = applyOpt(next.Platform, p.Platform)
	next.Notes = applyOpt(next.Notes, p.Notes)
	return next
}

// Validate checks the patch fields against the create rules.
func (p Patch) Validate() error {
	if p.FolderID != nil && *p.FolderID == "" {
		return apperrors.Validation("EMPTY_FOLDER", "item must belong to a folder").Build()
	}
	if p.Title != nil && (*p.Title == "" || len(*p.Title) > 200) {
		return apperrors.Validation("INVALID_TITLE", "title must be 1-200 characters").Build()
	}
	if p.Content != nil && *p.Content == "" {
		return apperrors.Validation("EMPTY_CONTENT", "item content cannot be empty").Build()
	}
	return nil
}

// GetID returns the record id.
func (it *Item) GetID() string { return it.ID }

// GetOwnerID returns the owning user's id.
func (it *Item) GetOwnerID() string { return it.OwnerID }

// Clone returns a deep copy.
func (it *Item) Clone() *Item {
	next := *it
	next.Label = cloneOpt(it.Label)
	next.Platform = cloneOpt(it.Platform)
	next.Notes = cloneOpt(it.Notes)
	return &next
}

func cloneOpt(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func applyOpt(current, patch *string) *string {
	if patch == nil {
		return current
	}
	if *patch == "" {
		return nil
	}
	return cloneOpt(patch)
}
