package catalog

import "github.com/marmos91/vaultfs/pkg/catalog/models"

// FolderCache memoizes folder lookups by id for the duration of one
// logical operation or request. It also remembers misses, so a folder
// that is known to be absent is not re-queried.
//
// The cache is an explicit collaborator: callers that span several
// service calls create one and pass it along, callers that do not care
// pass nil and get an operation-private cache. It is not safe for
// concurrent use; scope one per request, never share one across
// goroutines and never hang one off a long-lived object.
type FolderCache struct {
	// entries maps folder id to the cached row. A nil value records a
	// known-absent id.
	entries map[string]*models.Folder
}

// NewFolderCache returns an empty folder cache.
func NewFolderCache() *FolderCache {
	return &FolderCache{entries: make(map[string]*models.Folder)}
}

// Get returns the cached folder for id. The second return value reports
// whether the cache holds any knowledge about the id at all; a (nil,
// true) result means the folder is known to be absent.
func (c *FolderCache) Get(id string) (*models.Folder, bool) {
	folder, known := c.entries[id]
	return folder, known
}

// Put records a folder under its id.
func (c *FolderCache) Put(folder *models.Folder) {
	if folder == nil || folder.ID == "" {
		return
	}
	c.entries[folder.ID] = folder
}

// PutAbsent records that no folder exists for id.
func (c *FolderCache) PutAbsent(id string) {
	if id == "" {
		return
	}
	c.entries[id] = nil
}

// Invalidate drops all knowledge about the given ids. Write paths call
// this for every folder they touched.
func (c *FolderCache) Invalidate(ids ...string) {
	for _, id := range ids {
		delete(c.entries, id)
	}
}

// Reset drops every entry.
func (c *FolderCache) Reset() {
	c.entries = make(map[string]*models.Folder)
}

// Len returns the number of entries, absent markers included.
func (c *FolderCache) Len() int {
	return len(c.entries)
}
