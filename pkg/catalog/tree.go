package catalog

import (
	"sort"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// FolderNode is one folder in an assembled forest, with its direct
// children attached.
type FolderNode struct {
	*models.Folder

	Children []*FolderNode `json:"children,omitempty"`
}

// AssembleFolderForest builds the folder forest from a flat folder list
// in a single pass. The input MUST be sorted ascending by path so every
// parent precedes its children; rows whose parent id has not been seen
// (volume roots, or rows whose parent the input omits) become forest
// roots. Each input folder appears in the forest exactly once.
//
// Roots are ordered by their volume's position in volumes, with the path
// as a stable tiebreak. Roots of volumes missing from the slice sort
// last.
func AssembleFolderForest(folders []*models.Folder, volumes []*models.Volume) []*FolderNode {
	nodes := make(map[string]*FolderNode, len(folders))
	roots := make([]*FolderNode, 0)

	for _, folder := range folders {
		node := &FolderNode{Folder: folder}
		nodes[folder.ID] = node

		if parent, ok := nodes[folder.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	volumeRank := make(map[string]int, len(volumes))
	for i, vol := range volumes {
		volumeRank[vol.ID] = i
	}
	rankOf := func(node *FolderNode) int {
		if rank, ok := volumeRank[node.VolumeID]; ok {
			return rank
		}
		return len(volumes)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		ri, rj := rankOf(roots[i]), rankOf(roots[j])
		if ri != rj {
			return ri < rj
		}
		return roots[i].Path < roots[j].Path
	})

	return roots
}

// Walk visits the node and every descendant depth-first in child order.
// Traversal stops early when visit returns false.
func (n *FolderNode) Walk(visit func(node *FolderNode) bool) bool {
	if !visit(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}
