package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/vaultfs/pkg/catalog"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
	"github.com/marmos91/vaultfs/pkg/catalog/store"
)

// defaultMaxUploadBytes caps the multipart request body for asset uploads
// when no limit is configured.
const defaultMaxUploadBytes = 1 << 30 // 1 GiB

// multipartMemoryBytes is the in-memory threshold for multipart parsing;
// larger parts spill to disk.
const multipartMemoryBytes = 32 << 20 // 32 MiB

// AssetHandler handles asset endpoints.
type AssetHandler struct {
	service   *catalog.Service
	maxUpload int64
}

// NewAssetHandler creates a new AssetHandler. maxUploadBytes caps the
// multipart request body for uploads; zero or negative selects the 1 GiB
// default.
func NewAssetHandler(service *catalog.Service, maxUploadBytes int64) *AssetHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &AssetHandler{service: service, maxUpload: maxUploadBytes}
}

// Upload handles POST /api/v1/assets.
//
// The request is multipart/form-data with a "file" part carrying the
// content and form fields folder_id (required), volume_id, filename and
// title (all optional). The uploaded content is spooled to a temporary
// file so the save pipeline can read it twice, once for the dimension
// probe and once for the physical upload.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		BadRequest(w, "Invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	folderID := r.FormValue("folder_id")
	if folderID == "" {
		BadRequest(w, "folder_id is required")
		return
	}

	if err := h.service.RequireFolderPermission(r.Context(), nil, folderID, catalog.PermissionEdit); err != nil {
		WriteCatalogError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, `A file part named "file" is required`)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "vaultfs-upload-*")
	if err != nil {
		InternalServerError(w, "Failed to stage upload")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		InternalServerError(w, "Failed to stage upload")
		return
	}
	if err := tmp.Close(); err != nil {
		InternalServerError(w, "Failed to stage upload")
		return
	}

	filename := r.FormValue("filename")
	if filename == "" {
		filename = header.Filename
	}

	asset := &models.Asset{
		VolumeID: r.FormValue("volume_id"),
		FolderID: folderID,
		Filename: filename,
	}
	if title := r.FormValue("title"); title != "" {
		asset.Element = &models.Element{Type: models.ElementTypeAsset, Title: title}
	}

	err = h.service.SaveAsset(r.Context(), asset, catalog.SaveOptions{
		SourcePath: tmp.Name(),
	})
	if err != nil {
		WriteCatalogError(w, err)
		return
	}

	WriteJSONCreated(w, asset)
}

// Get handles GET /api/v1/assets/{id}.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RequireAssetPermission(r.Context(), nil, id, catalog.PermissionView); err != nil {
		WriteCatalogError(w, err)
		return
	}

	asset, err := h.service.Store().GetAssetByID(r.Context(), nil, id)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			NotFound(w, "Asset not found")
			return
		}
		InternalServerError(w, "Failed to fetch asset")
		return
	}
	WriteJSONOK(w, asset)
}

// ListByFolder handles GET /api/v1/folders/{id}/assets.
func (h *AssetHandler) ListByFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")

	if err := h.service.RequireFolderPermission(r.Context(), nil, folderID, catalog.PermissionView); err != nil {
		WriteCatalogError(w, err)
		return
	}

	assets, err := h.service.Store().ListAssets(r.Context(), store.AssetQuery{FolderID: folderID})
	if err != nil {
		InternalServerError(w, "Failed to list assets")
		return
	}
	WriteJSONOK(w, assets)
}

// RenameAssetRequest is the request body for POST /api/v1/assets/{id}/rename.
type RenameAssetRequest struct {
	Filename string `json:"filename"`
}

// Rename handles POST /api/v1/assets/{id}/rename.
// Returns the asset as stored afterwards; when the physical rename could
// not be applied the metadata keeps the old filename.
func (h *AssetHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RenameAssetRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Filename == "" {
		BadRequest(w, "filename is required")
		return
	}

	if err := h.service.RequireAssetPermission(r.Context(), nil, id, catalog.PermissionEdit); err != nil {
		WriteCatalogError(w, err)
		return
	}

	if err := h.service.RenameAsset(r.Context(), id, req.Filename, nil); err != nil {
		WriteCatalogError(w, err)
		return
	}

	asset, err := h.service.Store().GetAssetByID(r.Context(), nil, id)
	if err != nil {
		InternalServerError(w, "Failed to fetch asset")
		return
	}
	WriteJSONOK(w, asset)
}

// DeleteAssetsRequest is the request body for DELETE /api/v1/assets.
type DeleteAssetsRequest struct {
	IDs []string `json:"ids"`

	// DeletePhysical removes the backing objects from their volume
	// backends as well.
	DeletePhysical bool `json:"delete_physical,omitempty"`
}

// DeleteBulk handles DELETE /api/v1/assets.
// Best-effort: ids that no longer resolve are skipped.
func (h *AssetHandler) DeleteBulk(w http.ResponseWriter, r *http.Request) {
	var req DeleteAssetsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		BadRequest(w, "At least one asset id is required")
		return
	}

	err := h.service.DeleteAssets(r.Context(), req.IDs, catalog.DeleteAssetOptions{
		DeletePhysical: req.DeletePhysical,
	})
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	WriteNoContent(w)
}

// DeleteOne handles DELETE /api/v1/assets/{id}.
// Unlike the bulk endpoint an unknown id is a 404. The delete_physical
// query parameter removes the backing object as well.
func (h *AssetHandler) DeleteOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deletePhysical := false
	if raw := r.URL.Query().Get("delete_physical"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(w, "Invalid delete_physical value: "+raw)
			return
		}
		deletePhysical = parsed
	}

	if err := h.service.RequireAssetPermission(r.Context(), nil, id, catalog.PermissionDelete); err != nil {
		WriteCatalogError(w, err)
		return
	}

	err := h.service.DeleteAssets(r.Context(), []string{id}, catalog.DeleteAssetOptions{
		DeletePhysical: deletePhysical,
	})
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	WriteNoContent(w)
}
