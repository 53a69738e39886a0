package catalog

import (
	"testing"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

func testTreeFolder(id, parentID, volumeID, path string) *models.Folder {
	return &models.Folder{ID: id, ParentID: parentID, VolumeID: volumeID, Path: path}
}

func TestAssembleFolderForest(t *testing.T) {
	vol := &models.Volume{ID: "v1", Name: "media", SortOrder: 0}

	t.Run("attaches children to parents", func(t *testing.T) {
		// Path-ascending, so parents precede children.
		folders := []*models.Folder{
			testTreeFolder("a", models.RootParentID, "v1", "a/"),
			testTreeFolder("ab", "a", "v1", "a/b/"),
			testTreeFolder("abc", "ab", "v1", "a/b/c/"),
			testTreeFolder("ax", "a", "v1", "a/x/"),
			testTreeFolder("z", models.RootParentID, "v1", "z/"),
		}

		roots := AssembleFolderForest(folders, []*models.Volume{vol})
		if len(roots) != 2 {
			t.Fatalf("expected 2 roots, got %d", len(roots))
		}
		if roots[0].ID != "a" || roots[1].ID != "z" {
			t.Fatalf("expected roots [a z], got [%s %s]", roots[0].ID, roots[1].ID)
		}
		if len(roots[0].Children) != 2 {
			t.Fatalf("expected 2 children under a, got %d", len(roots[0].Children))
		}
		if roots[0].Children[0].ID != "ab" || roots[0].Children[1].ID != "ax" {
			t.Errorf("unexpected children under a: %s, %s",
				roots[0].Children[0].ID, roots[0].Children[1].ID)
		}
		if len(roots[0].Children[0].Children) != 1 || roots[0].Children[0].Children[0].ID != "abc" {
			t.Error("expected abc nested under ab")
		}
	})

	t.Run("unseen parent becomes a root", func(t *testing.T) {
		// A filtered input can omit a row's parent; the row still lands
		// in the forest, as a root.
		folders := []*models.Folder{
			testTreeFolder("leaf", "not-in-input", "v1", "missing/leaf/"),
		}
		roots := AssembleFolderForest(folders, []*models.Volume{vol})
		if len(roots) != 1 || roots[0].ID != "leaf" {
			t.Fatalf("expected the leaf as root, got %+v", roots)
		}
	})

	t.Run("roots follow volume sort order", func(t *testing.T) {
		first := &models.Volume{ID: "v-first", SortOrder: 0}
		second := &models.Volume{ID: "v-second", SortOrder: 1}

		// Path order interleaves the volumes; volume rank must win.
		folders := []*models.Folder{
			testTreeFolder("alpha", models.RootParentID, "v-second", "alpha/"),
			testTreeFolder("beta", models.RootParentID, "v-first", "beta/"),
			testTreeFolder("gamma", models.RootParentID, "v-first", "gamma/"),
		}

		roots := AssembleFolderForest(folders, []*models.Volume{first, second})
		got := []string{roots[0].ID, roots[1].ID, roots[2].ID}
		want := []string{"beta", "gamma", "alpha"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected root order %v, got %v", want, got)
			}
		}
	})

	t.Run("unknown volume sorts last", func(t *testing.T) {
		folders := []*models.Folder{
			testTreeFolder("known", models.RootParentID, "v1", "known/"),
			testTreeFolder("stray", models.RootParentID, "v-unknown", "aaa/"),
		}
		roots := AssembleFolderForest(folders, []*models.Volume{vol})
		if roots[0].ID != "known" || roots[1].ID != "stray" {
			t.Errorf("expected unknown-volume root last, got [%s %s]", roots[0].ID, roots[1].ID)
		}
	})

	t.Run("empty input yields empty forest", func(t *testing.T) {
		roots := AssembleFolderForest(nil, []*models.Volume{vol})
		if len(roots) != 0 {
			t.Errorf("expected no roots, got %d", len(roots))
		}
	})
}

func TestFolderNodeWalk(t *testing.T) {
	folders := []*models.Folder{
		testTreeFolder("a", models.RootParentID, "v1", "a/"),
		testTreeFolder("ab", "a", "v1", "a/b/"),
		testTreeFolder("abc", "ab", "v1", "a/b/c/"),
		testTreeFolder("ax", "a", "v1", "a/x/"),
	}
	roots := AssembleFolderForest(folders, nil)
	if len(roots) != 1 {
		t.Fatalf("expected a single root, got %d", len(roots))
	}

	var visited []string
	roots[0].Walk(func(node *FolderNode) bool {
		visited = append(visited, node.ID)
		return true
	})
	want := []string{"a", "ab", "abc", "ax"}
	if len(visited) != len(want) {
		t.Fatalf("expected %v, got %v", want, visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("expected depth-first order %v, got %v", want, visited)
		}
	}

	var stopped []string
	roots[0].Walk(func(node *FolderNode) bool {
		stopped = append(stopped, node.ID)
		return node.ID != "ab"
	})
	if len(stopped) != 2 {
		t.Errorf("expected traversal to stop at ab, visited %v", stopped)
	}
}
