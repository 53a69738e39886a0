package models

import (
	"strings"
	"time"
)

// RootParentID is the parent id sentinel marking a volume root folder.
// The empty string is used instead of NULL so the composite unique index
// on (volume_id, parent_id, name) enforces sibling uniqueness for roots
// too (SQL NULLs never compare equal).
const RootParentID = ""

// Folder is a hierarchical metadata container with a materialized path.
// Folders form a forest per volume: one or more roots, each subtree
// consistent with the invariant that a parent's path is a prefix of all
// of its descendants' paths.
type Folder struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ParentID string `gorm:"size:36;not null;index;uniqueIndex:idx_folders_sibling_name" json:"parent_id"`
	VolumeID string `gorm:"not null;size:36;uniqueIndex:idx_folders_sibling_name;uniqueIndex:idx_folders_volume_path" json:"volume_id"`
	Name     string `gorm:"not null;size:255;uniqueIndex:idx_folders_sibling_name" json:"name"`

	// Path is the "/"-terminated materialized path reflecting the full
	// ancestry, e.g. "a/b/". Unique per volume and used as the
	// prefix-match key for descendant queries.
	Path string `gorm:"not null;size:1024;uniqueIndex:idx_folders_volume_path" json:"path"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Folder.
func (Folder) TableName() string {
	return "folders"
}

// IsRoot reports whether the folder is a volume root.
func (f *Folder) IsRoot() bool {
	return f.ParentID == RootParentID
}

// NormalizeFolderPath canonicalizes a materialized path: forward slashes,
// no leading slash, no empty segments, exactly one trailing slash. The
// empty path stays empty.
func NormalizeFolderPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	segments := strings.Split(path, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "/") + "/"
}

// SplitFolderPath splits a normalized materialized path into the parent
// path and the leaf folder name. A single-segment path yields an empty
// parent path.
func SplitFolderPath(path string) (parentPath, name string) {
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", trimmed
	}
	return trimmed[:idx+1], trimmed[idx+1:]
}
