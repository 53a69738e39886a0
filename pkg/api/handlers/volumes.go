package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/vaultfs/pkg/catalog"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
	"github.com/marmos91/vaultfs/pkg/volume"
)

// VolumeHandler handles volume management endpoints.
type VolumeHandler struct {
	service *catalog.Service
}

// NewVolumeHandler creates a new VolumeHandler.
func NewVolumeHandler(service *catalog.Service) *VolumeHandler {
	return &VolumeHandler{service: service}
}

// CreateVolumeRequest is the request body for POST /api/v1/volumes.
type CreateVolumeRequest struct {
	Name      string         `json:"name"`
	Backend   string         `json:"backend"`
	Config    map[string]any `json:"config,omitempty"`
	SortOrder int            `json:"sort_order,omitempty"`
}

// List handles GET /api/v1/volumes.
// Returns every volume ordered by sort order.
func (h *VolumeHandler) List(w http.ResponseWriter, r *http.Request) {
	volumes, err := h.service.Store().ListVolumes(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list volumes")
		return
	}
	WriteJSONOK(w, volumes)
}

// Create handles POST /api/v1/volumes.
// Registers a new volume for a known backend type.
func (h *VolumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVolumeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Name == "" {
		BadRequest(w, "Volume name is required")
		return
	}
	if !slices.Contains(volume.Backends(), req.Backend) {
		BadRequest(w, "Unknown backend type: "+req.Backend)
		return
	}

	vol := &models.Volume{
		Name:      req.Name,
		Backend:   req.Backend,
		SortOrder: req.SortOrder,
	}
	if req.Config != nil {
		if err := vol.SetConfig(req.Config); err != nil {
			BadRequest(w, "Invalid backend configuration")
			return
		}
	}

	if _, err := h.service.Store().CreateVolume(r.Context(), vol); err != nil {
		if errors.Is(err, models.ErrDuplicateVolume) {
			Conflict(w, "A volume with this name already exists")
			return
		}
		InternalServerError(w, "Failed to create volume")
		return
	}

	WriteJSONCreated(w, vol)
}

// Get handles GET /api/v1/volumes/{id}.
func (h *VolumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	vol, err := h.service.Store().GetVolumeByID(r.Context(), nil, id)
	if err != nil {
		if errors.Is(err, models.ErrVolumeNotFound) {
			NotFound(w, "Volume not found")
			return
		}
		InternalServerError(w, "Failed to fetch volume")
		return
	}
	WriteJSONOK(w, vol)
}

// Delete handles DELETE /api/v1/volumes/{id}.
// Volumes that still index folders or assets cannot be removed.
func (h *VolumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Store().DeleteVolume(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, models.ErrVolumeNotFound):
			NotFound(w, "Volume not found")
		case errors.Is(err, models.ErrVolumeInUse):
			Conflict(w, "Volume still indexes folders or assets")
		default:
			InternalServerError(w, "Failed to delete volume")
		}
		return
	}

	// Drop any cached backend so a recreated volume opens fresh.
	h.service.Volumes().Invalidate(id)

	WriteNoContent(w)
}

// Tree handles GET /api/v1/volumes/{id}/tree.
// Returns the volume's folder hierarchy as nested nodes.
func (h *VolumeHandler) Tree(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	roots, err := h.service.VolumeTree(r.Context(), id)
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	WriteJSONOK(w, roots)
}

// Forest handles GET /api/v1/volumes/tree.
// Returns the folder hierarchies of every volume, ordered by volume
// sort order.
func (h *VolumeHandler) Forest(w http.ResponseWriter, r *http.Request) {
	roots, err := h.service.Forest(r.Context())
	if err != nil {
		WriteCatalogError(w, err)
		return
	}
	WriteJSONOK(w, roots)
}
