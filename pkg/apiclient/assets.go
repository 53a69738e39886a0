package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Asset represents one indexed file.
type Asset struct {
	ID           string    `json:"id"`
	VolumeID     string    `json:"volume_id"`
	FolderID     string    `json:"folder_id"`
	Filename     string    `json:"filename"`
	Kind         string    `json:"kind"`
	Size         int64     `json:"size"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	DateModified time.Time `json:"date_modified"`
	ElementID    string    `json:"element_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Element      *Element  `json:"element,omitempty"`
}

// Element carries an asset's display metadata.
type Element struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Locale string `json:"locale,omitempty"`
	Title  string `json:"title"`
}

// UploadAssetRequest describes a multipart asset upload.
type UploadAssetRequest struct {
	FolderID string // destination folder, required
	VolumeID string // optional override, defaults to the folder's volume
	Filename string // filename for the uploaded content, required
	Title    string // optional display title
}

// DeleteAssetsRequest is the request to delete assets by id. Ids that no
// longer resolve are skipped.
type DeleteAssetsRequest struct {
	IDs []string `json:"ids"`

	// DeletePhysical removes the backing objects from their volume
	// backends as well.
	DeletePhysical bool `json:"delete_physical,omitempty"`
}

// UploadAsset uploads content as a new asset. The request is sent as
// multipart/form-data with the content in a "file" part, so the whole
// body is buffered in memory first.
func (c *Client) UploadAsset(req *UploadAssetRequest, content io.Reader) (*Asset, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to buffer upload content: %w", err)
	}

	fields := [][2]string{
		{"folder_id", req.FolderID},
		{"volume_id", req.VolumeID},
		{"title", req.Title},
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("failed to build multipart form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/assets", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	var asset Asset
	if err := c.send(httpReq, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetAsset returns an asset by id.
func (c *Client) GetAsset(id string) (*Asset, error) {
	return getResource[Asset](c, resourcePath("/api/v1/assets/%s", url.PathEscape(id)))
}

// RenameAsset renames an asset's file and returns the asset as stored
// afterwards.
func (c *Client) RenameAsset(id, filename string) (*Asset, error) {
	req := struct {
		Filename string `json:"filename"`
	}{
		Filename: filename,
	}
	return createResource[Asset](c, resourcePath("/api/v1/assets/%s/rename", url.PathEscape(id)), req)
}

// DeleteAssets deletes assets in bulk.
func (c *Client) DeleteAssets(req *DeleteAssetsRequest) error {
	return c.delete("/api/v1/assets", req, nil)
}

// DeleteAsset deletes a single asset. Unlike DeleteAssets, an unknown id
// is an error. With deletePhysical the backing object is removed as well.
func (c *Client) DeleteAsset(id string, deletePhysical bool) error {
	path := resourcePath("/api/v1/assets/%s", url.PathEscape(id))
	if deletePhysical {
		path += "?delete_physical=true"
	}
	return c.delete(path, nil, nil)
}
