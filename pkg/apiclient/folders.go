package apiclient

import (
	"net/url"
	"time"
)

// Folder represents one folder of a volume's hierarchy.
type Folder struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	VolumeID  string    `json:"volume_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateFolderRequest is the request to create a folder. An empty
// ParentID creates a volume root.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	VolumeID string `json:"volume_id"`

	// CreatePhysical provisions the folder's directory on the volume
	// backend as well.
	CreatePhysical bool `json:"create_physical,omitempty"`
}

// EnsuredFolder is the id and normalized path of a folder resolved by
// EnsureFolder.
type EnsuredFolder struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// DeleteFoldersRequest is the request to delete folders by id. Removal
// cascades to descendant folders and their assets.
type DeleteFoldersRequest struct {
	IDs []string `json:"ids"`

	// Strictness picks the physical-removal failure mode: "strict",
	// "best_effort", or empty for the server default.
	Strictness string `json:"strictness,omitempty"`

	// DeletePhysical removes the folders' directory trees from their
	// volume backends before the metadata cascade.
	DeletePhysical bool `json:"delete_physical,omitempty"`
}

// CreateFolder creates a single folder under an existing parent.
func (c *Client) CreateFolder(req *CreateFolderRequest) (*Folder, error) {
	return createResource[Folder](c, "/api/v1/folders", req)
}

// EnsureFolder resolves the folder at the given path inside a volume,
// creating it and any missing ancestors on demand. Idempotent.
func (c *Client) EnsureFolder(volumeID, path string) (*EnsuredFolder, error) {
	req := struct {
		Path     string `json:"path"`
		VolumeID string `json:"volume_id"`
	}{
		Path:     path,
		VolumeID: volumeID,
	}
	return createResource[EnsuredFolder](c, "/api/v1/folders/ensure", req)
}

// GetFolder returns a folder by id.
func (c *Client) GetFolder(id string) (*Folder, error) {
	return getResource[Folder](c, resourcePath("/api/v1/folders/%s", url.PathEscape(id)))
}

// DeleteFolders deletes folders and their subtrees.
func (c *Client) DeleteFolders(req *DeleteFoldersRequest) error {
	return c.delete("/api/v1/folders", req, nil)
}

// ListFolderAssets returns the assets directly inside a folder.
func (c *Client) ListFolderAssets(folderID string) ([]Asset, error) {
	return listResources[Asset](c, resourcePath("/api/v1/folders/%s/assets", url.PathEscape(folderID)))
}
