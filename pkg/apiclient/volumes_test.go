package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListVolumes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/volumes", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode([]Volume{
			{ID: "vol-1", Name: "originals", Backend: "fs", SortOrder: 1},
			{ID: "vol-2", Name: "archive", Backend: "s3", SortOrder: 2},
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	volumes, err := client.ListVolumes()

	require.NoError(t, err)
	require.Len(t, volumes, 2)
	assert.Equal(t, "originals", volumes[0].Name)
	assert.Equal(t, "s3", volumes[1].Backend)
}

func TestCreateVolume(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/volumes", r.URL.Path)

		var req CreateVolumeRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "originals", req.Name)
		assert.Equal(t, "fs", req.Backend)
		assert.Equal(t, "/srv/media", req.Config["root"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Volume{
			ID:      "vol-1",
			Name:    req.Name,
			Backend: req.Backend,
			Config:  req.Config,
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	vol, err := client.CreateVolume(&CreateVolumeRequest{
		Name:    "originals",
		Backend: "fs",
		Config:  map[string]any{"root": "/srv/media"},
	})

	require.NoError(t, err)
	assert.Equal(t, "vol-1", vol.ID)
	assert.Equal(t, "originals", vol.Name)
}

func TestCreateVolume_Duplicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":  "Conflict",
			"status": 409,
			"detail": "A volume with this name already exists",
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	vol, err := client.CreateVolume(&CreateVolumeRequest{Name: "originals", Backend: "fs"})

	assert.Nil(t, vol)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsConflict())
}

func TestDeleteVolume(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/volumes/vol-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	err := client.DeleteVolume("vol-1")
	require.NoError(t, err)
}

func TestVolumeTree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/volumes/vol-1/tree", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[
			{
				"id": "root-1", "parent_id": "", "volume_id": "vol-1",
				"name": "photos", "path": "photos/",
				"children": [
					{"id": "child-1", "parent_id": "root-1", "volume_id": "vol-1",
					 "name": "2024", "path": "photos/2024/"}
				]
			}
		]`))
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	roots, err := client.VolumeTree("vol-1")

	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "photos", roots[0].Name)
	assert.Equal(t, "photos/", roots[0].Path)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "2024", roots[0].Children[0].Name)
	assert.Equal(t, "photos/2024/", roots[0].Children[0].Path)
}

func TestForest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/volumes/tree", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id": "r1", "name": "a", "path": "a/"}, {"id": "r2", "name": "b", "path": "b/"}]`))
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	roots, err := client.Forest()

	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "a", roots[0].Name)
	assert.Equal(t, "b", roots[1].Name)
}
