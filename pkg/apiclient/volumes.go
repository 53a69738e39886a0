package apiclient

import (
	"net/url"
	"time"
)

// Volume represents a storage volume registered with the catalog.
type Volume struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Backend   string         `json:"backend"`
	Config    map[string]any `json:"config,omitempty"`
	SortOrder int            `json:"sort_order"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateVolumeRequest is the request to register a volume.
type CreateVolumeRequest struct {
	Name      string         `json:"name"`
	Backend   string         `json:"backend"`
	Config    map[string]any `json:"config,omitempty"`
	SortOrder int            `json:"sort_order,omitempty"`
}

// FolderNode is one node of a folder tree: the folder itself plus its
// child subtrees.
type FolderNode struct {
	Folder
	Children []*FolderNode `json:"children,omitempty"`
}

// ListVolumes returns all volumes ordered by sort order.
func (c *Client) ListVolumes() ([]Volume, error) {
	return listResources[Volume](c, "/api/v1/volumes")
}

// GetVolume returns a volume by id.
func (c *Client) GetVolume(id string) (*Volume, error) {
	return getResource[Volume](c, resourcePath("/api/v1/volumes/%s", url.PathEscape(id)))
}

// CreateVolume registers a new volume.
func (c *Client) CreateVolume(req *CreateVolumeRequest) (*Volume, error) {
	return createResource[Volume](c, "/api/v1/volumes", req)
}

// DeleteVolume removes a volume. Volumes that still index folders or
// assets are rejected with a conflict.
func (c *Client) DeleteVolume(id string) error {
	return deleteResource(c, resourcePath("/api/v1/volumes/%s", url.PathEscape(id)))
}

// VolumeTree returns the folder hierarchy of one volume as nested nodes.
func (c *Client) VolumeTree(id string) ([]*FolderNode, error) {
	return listResources[*FolderNode](c, resourcePath("/api/v1/volumes/%s/tree", url.PathEscape(id)))
}

// Forest returns the folder hierarchies of every volume, ordered by
// volume sort order.
func (c *Client) Forest() ([]*FolderNode, error) {
	return listResources[*FolderNode](c, "/api/v1/volumes/tree")
}
