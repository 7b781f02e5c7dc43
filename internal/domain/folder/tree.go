package folder

import (
	"sort"
	"strings"
)

// MaxAncestorHops caps every upward walk through parent links. The cap is a
// guard against a corrupted or cyclic record that slipped past validation on
// server-originated data; it keeps the derivation from hanging but is never
// the mechanism that produces correct results.
const MaxAncestorHops = 20

// Node is a derived view of one folder inside the forest. Nodes are never
// persisted; the forest is recomputed from the flat record set on every
// structural change.
type Node struct {
	Folder   *Folder  `json:"folder"`
	Children []*Node  `json:"children"`
	Depth    int      `json:"depth"`
	Path     []string `json:"path"` // Ancestor names, ending with this folder
}

// Forest is the derived parent/child view over a flat folder set.
type Forest struct {
	Roots []*Node
	byID  map[string]*Node
}

// Node returns the derived node for a folder id, if present.
func (f *Forest) Node(id string) (*Node, bool) {
	n, ok := f.byID[id]
	return n, ok
}

// BuildForest derives the forest from a flat folder sequence. Folders with an
// absent or dangling parent become roots. Children are ordered by name
// (case-insensitive), ties broken by creation time, for stable ordering.
func BuildForest(folders []*Folder) *Forest {
	index := make(map[string]*Folder, len(folders))
	for _, f := range folders {
		index[f.ID] = f
	}

	nodes := make(map[string]*Node, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &Node{
			Folder: f,
			Depth:  depthOf(index, f),
			Path:   pathOf(index, f),
		}
	}

	forest := &Forest{byID: nodes}
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID != nil {
			if parent, ok := nodes[*f.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		forest.Roots = append(forest.Roots, node)
	}

	sortChildren(forest.Roots)
	for _, n := range nodes {
		sortChildren(n.Children)
	}
	return forest
}

// depthOf computes a folder's depth with a bounded iterative walk: roots are
// depth 0, each resolvable parent hop adds one.
func depthOf(index map[string]*Folder, f *Folder) int {
	depth := 0
	current := f
	for hops := 0; hops < MaxAncestorHops; hops++ {
		if current.ParentID == nil {
			break
		}
		parent, ok := index[*current.ParentID]
		if !ok {
			break // dangling parent, treat as root
		}
		depth++
		current = parent
	}
	return depth
}

// pathOf computes the ordered ancestor-name path ending with the folder
// itself, walking upward with the same bounded loop as depthOf.
func pathOf(index map[string]*Folder, f *Folder) []string {
	path := []string{f.Name}
	current := f
	for hops := 0; hops < MaxAncestorHops; hops++ {
		if current.ParentID == nil {
			break
		}
		parent, ok := index[*current.ParentID]
		if !ok {
			break
		}
		path = append([]string{parent.Name}, path...)
		current = parent
	}
	return path
}

// ancestorIDs returns the ids encountered walking upward from the folder with
// the given id, excluding the folder itself, bounded by MaxAncestorHops.
func ancestorIDs(index map[string]*Folder, id string) []string {
	var out []string
	current, ok := index[id]
	if !ok {
		return out
	}
	for hops := 0; hops < MaxAncestorHops; hops++ {
		if current.ParentID == nil {
			break
		}
		parent, exists := index[*current.ParentID]
		if !exists {
			break
		}
		out = append(out, parent.ID)
		current = parent
	}
	return out
}

func sortChildren(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a := strings.ToLower(nodes[i].Folder.Name)
		b := strings.ToLower(nodes[j].Folder.Name)
		if a != b {
			return a < b
		}
		return nodes[i].Folder.CreatedAt.Before(nodes[j].Folder.CreatedAt)
	})
}
