package folder

import "strings"

// Filter returns the folders whose name contains query (case-insensitive),
// plus every ancestor of a match, preserving the input's relative order.
// Keeping ancestors means a tree view never strands a match with no visible
// path to it. An empty query returns the input unchanged.
func Filter(folders []*Folder, query string) []*Folder {
	if query == "" {
		return folders
	}

	index := make(map[string]*Folder, len(folders))
	for _, f := range folders {
		index[f.ID] = f
	}

	needle := strings.ToLower(query)
	keep := make(map[string]bool, len(folders))
	for _, f := range folders {
		if !strings.Contains(strings.ToLower(f.Name), needle) {
			continue
		}
		keep[f.ID] = true
		for _, ancestor := range ancestorIDs(index, f.ID) {
			keep[ancestor] = true
		}
	}

	out := make([]*Folder, 0, len(keep))
	for _, f := range folders {
		if keep[f.ID] {
			out = append(out, f)
		}
	}
	return out
}
