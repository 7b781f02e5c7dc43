package folder

import "loom-engine/internal/apperrors"

// CanReparent validates a proposed move of folderID under newParentID
// (nil means move to root). It must run before any optimistic mutation: a
// rejected move never touches local or remote state.
//
// Rejections:
//   - SELF_PARENT: the folder would become its own parent
//   - WOULD_CREATE_CYCLE: the new parent is a descendant of the folder
//   - NO_OP_MOVE: the folder already has that parent
func CanReparent(folders []*Folder, folderID string, newParentID *string) error {
	index := make(map[string]*Folder, len(folders))
	for _, f := range folders {
		index[f.ID] = f
	}

	f, ok := index[folderID]
	if !ok {
		return apperrors.NotFound("FOLDER_NOT_FOUND", "folder does not exist").
			WithResource(folderID).Build()
	}

	if newParentID == nil {
		if f.ParentID == nil {
			return apperrors.Validation("NO_OP_MOVE", "folder is already at root").Build()
		}
		return nil
	}

	if *newParentID == folderID {
		return apperrors.Validation("SELF_PARENT", "folder cannot be its own parent").Build()
	}
	if _, ok := index[*newParentID]; !ok {
		return apperrors.NotFound("PARENT_NOT_FOUND", "target parent does not exist").
			WithResource(*newParentID).Build()
	}
	if f.ParentID != nil && *f.ParentID == *newParentID {
		return apperrors.Validation("NO_OP_MOVE", "folder is already under that parent").Build()
	}

	// Walk upward from the proposed parent; meeting the moved folder means
	// the parent is one of its descendants.
	for _, ancestor := range ancestorIDs(index, *newParentID) {
		if ancestor == folderID {
			return apperrors.Validation("WOULD_CREATE_CYCLE", "cannot move a folder under its own descendant").Build()
		}
	}
	return nil
}
