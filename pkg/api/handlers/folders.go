package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/vaultfs/pkg/catalog"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// FolderHandler handles folder endpoints.
type FolderHandler struct {
	service *catalog.Service
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(service *catalog.Service) *FolderHandler {
	return &FolderHandler{service: service}
}

// CreateFolderRequest is the request body for POST /api/v1/folders.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	VolumeID string `json:"volume_id"`

	// CreatePhysical provisions the folder's directory on the volume
	// backend as well.
	CreatePhysical bool `json:"create_physical,omitempty"`
}

// Create handles POST /api/v1/folders.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	folder := &models.Folder{
		Name:     req.Name,
		ParentID: req.ParentID,
		VolumeID: req.VolumeID,
	}
	err := h.service.CreateFolder(r.Context(), folder, catalog.CreateFolderOptions{
		CreatePhysical: req.CreatePhysical,
	})
	if err != nil {
		WriteCatalogError(w, err)
		return
	}

	WriteJSONCreated(w, folder)
}

// EnsureFolderRequest is the request body for POST /api/v1/folders/ensure.
type EnsureFolderRequest struct {
	Path     string `json:"path"`
	VolumeID string `json:"volume_id"`
}

// EnsureFolderResponse carries the id of the folder at the requested
// path, created on demand together with any missing ancestors.
type EnsureFolderResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Ensure handles POST /api/v1/folders/ensure.
// Idempotent: repeating the call with the same path returns the same id.
func (h *FolderHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req EnsureFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	id, err := h.service.EnsureFolderPath(r.Context(), nil, req.Path, req.VolumeID)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}

	WriteJSONOK(w, EnsureFolderResponse{
		ID:   id,
		Path: models.NormalizeFolderPath(req.Path),
	})
}

// Get handles GET /api/v1/folders/{id}.
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RequireFolderPermission(r.Context(), nil, id, catalog.PermissionView); err != nil {
		WriteCatalogError(w, err)
		return
	}

	folder, err := h.service.Store().GetFolderByID(r.Context(), nil, id)
	if err != nil {
		if errors.Is(err, models.ErrFolderNotFound) {
			NotFound(w, "Folder not found")
			return
		}
		InternalServerError(w, "Failed to fetch folder")
		return
	}
	WriteJSONOK(w, folder)
}

// DeleteFoldersRequest is the request body for DELETE /api/v1/folders.
type DeleteFoldersRequest struct {
	IDs []string `json:"ids"`

	// Strictness picks the physical-removal failure mode: "strict",
	// "best_effort", or empty for the default (strict for a single id).
	Strictness string `json:"strictness,omitempty"`

	// DeletePhysical removes the folders' directory trees from their
	// volume backends before the metadata cascade.
	DeletePhysical bool `json:"delete_physical,omitempty"`
}

// Delete handles DELETE /api/v1/folders.
// Removal cascades to descendant folders and their assets. Ids that no
// longer resolve are skipped.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteFoldersRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		BadRequest(w, "At least one folder id is required")
		return
	}
	strictness, ok := parseStrictness(req.Strictness)
	if !ok {
		BadRequest(w, "Unknown strictness: "+req.Strictness)
		return
	}

	err := h.service.DeleteFolders(r.Context(), req.IDs, catalog.DeleteFolderOptions{
		Strictness:     strictness,
		DeletePhysical: req.DeletePhysical,
	})
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	WriteNoContent(w)
}

func parseStrictness(s string) (catalog.Strictness, bool) {
	switch s {
	case "":
		return catalog.StrictnessDefault, true
	case "strict":
		return catalog.StrictnessStrict, true
	case "best_effort":
		return catalog.StrictnessBestEffort, true
	}
	return catalog.StrictnessDefault, false
}
