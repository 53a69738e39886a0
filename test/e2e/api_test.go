//go:build e2e

package e2e

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/vaultfs/pkg/apiclient"
)

// tinyPNG is a valid 1x1 transparent PNG, used to verify dimension
// probing on upload.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// loginClient logs a user in and returns a client carrying its access
// token.
func loginClient(t *testing.T, serverURL, username, password string) *apiclient.Client {
	t.Helper()

	client := apiclient.New(serverURL)
	tokens, err := client.Login(username, password)
	require.NoError(t, err, "Login as %s should succeed", username)

	return client.WithToken(tokens.AccessToken)
}

// asAPIError unwraps err into an APIError, failing the test otherwise.
func asAPIError(t *testing.T, err error) *apiclient.APIError {
	t.Helper()

	require.Error(t, err)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr, "Error should be an API error, got: %v", err)
	return apiErr
}

// TestAuthenticationFlow exercises login, token refresh and identity
// lookup against a running server.
func TestAuthenticationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping authentication tests in short mode")
	}

	sp := StartServerProcess(t)
	t.Cleanup(sp.ForceKill)

	client := apiclient.New(sp.APIURL())

	t.Run("login rejects bad credentials", func(t *testing.T) {
		_, err := client.Login("admin", "definitely-wrong")
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsAuthError(), "Bad credentials should yield an auth error, got %d", apiErr.StatusCode)
	})

	t.Run("login rejects unknown users", func(t *testing.T) {
		_, err := client.Login("nobody", "whatever")
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsAuthError())
	})

	t.Run("login returns a token pair", func(t *testing.T) {
		tokens, err := client.Login("admin", AdminPassword)
		require.NoError(t, err, "Login with valid credentials should succeed")

		assert.NotEmpty(t, tokens.AccessToken, "Access token should be set")
		assert.NotEmpty(t, tokens.RefreshToken, "Refresh token should be set")
		assert.Equal(t, "Bearer", tokens.TokenType)
		assert.Equal(t, "admin", tokens.Username)
		assert.Equal(t, "admin", tokens.Role)
		assert.Positive(t, tokens.ExpiresIn, "Token lifetime should be positive")
	})

	t.Run("me reports the authenticated identity", func(t *testing.T) {
		editor := loginClient(t, sp.APIURL(), "editor", EditorPassword)

		identity, err := editor.Me()
		require.NoError(t, err)
		assert.Equal(t, "editor", identity.Username)
		assert.Equal(t, "editor", identity.Role)
	})

	t.Run("refresh rotates the access token", func(t *testing.T) {
		tokens, err := client.Login("viewer", ViewerPassword)
		require.NoError(t, err)

		refreshed, err := client.RefreshToken(tokens.RefreshToken)
		require.NoError(t, err, "Refresh with a valid refresh token should succeed")
		assert.NotEmpty(t, refreshed.AccessToken)

		identity, err := apiclient.New(sp.APIURL()).WithToken(refreshed.AccessToken).Me()
		require.NoError(t, err, "Refreshed access token should be usable")
		assert.Equal(t, "viewer", identity.Username)
	})

	t.Run("refresh rejects an access token", func(t *testing.T) {
		tokens, err := client.Login("viewer", ViewerPassword)
		require.NoError(t, err)

		_, err = client.RefreshToken(tokens.AccessToken)
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsAuthError(), "Access tokens must not pass as refresh tokens")
	})

	t.Run("requests without a token are rejected", func(t *testing.T) {
		_, err := apiclient.New(sp.APIURL()).Me()
		apiErr := asAPIError(t, err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

// TestVolumeAPI exercises volume management over the REST API, including
// the admin-only gate on writes.
func TestVolumeAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping volume API tests in short mode")
	}

	sp := StartServerProcess(t)
	t.Cleanup(sp.ForceKill)

	admin := loginClient(t, sp.APIURL(), "admin", AdminPassword)
	editor := loginClient(t, sp.APIURL(), "editor", EditorPassword)

	t.Run("declared volumes are registered on startup", func(t *testing.T) {
		volumes, err := admin.ListVolumes()
		require.NoError(t, err)
		require.Len(t, volumes, 2, "Config declares two volumes")

		// ListVolumes orders by sort order: scratch (0) before media (1).
		assert.Equal(t, "scratch", volumes[0].Name)
		assert.Equal(t, "memory", volumes[0].Backend)
		assert.Equal(t, "media", volumes[1].Name)
		assert.Equal(t, "fs", volumes[1].Backend)
		assert.Equal(t, 1, volumes[1].SortOrder)
	})

	t.Run("create get delete round trip", func(t *testing.T) {
		created, err := admin.CreateVolume(&apiclient.CreateVolumeRequest{
			Name:      "staging",
			Backend:   "memory",
			SortOrder: 7,
		})
		require.NoError(t, err, "Volume creation should succeed")
		require.NotEmpty(t, created.ID)

		got, err := admin.GetVolume(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "staging", got.Name)
		assert.Equal(t, "memory", got.Backend)
		assert.Equal(t, 7, got.SortOrder)

		require.NoError(t, admin.DeleteVolume(created.ID))

		_, err = admin.GetVolume(created.ID)
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsNotFound(), "Deleted volume should be gone")
	})

	t.Run("duplicate volume names are rejected", func(t *testing.T) {
		_, err := admin.CreateVolume(&apiclient.CreateVolumeRequest{
			Name:    "media",
			Backend: "memory",
		})
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsConflict(), "Duplicate name should yield a conflict, got %d", apiErr.StatusCode)
	})

	t.Run("unknown backend types are rejected", func(t *testing.T) {
		_, err := admin.CreateVolume(&apiclient.CreateVolumeRequest{
			Name:    "bogus",
			Backend: "tape",
		})
		apiErr := asAPIError(t, err)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("volumes with folders cannot be deleted", func(t *testing.T) {
		vol, err := admin.CreateVolume(&apiclient.CreateVolumeRequest{
			Name:    "doomed",
			Backend: "memory",
		})
		require.NoError(t, err)

		folder, err := admin.EnsureFolder(vol.ID, "keep")
		require.NoError(t, err)

		err = admin.DeleteVolume(vol.ID)
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsConflict(), "Volume still indexing folders should refuse deletion")

		// Emptying the volume unblocks the delete.
		require.NoError(t, admin.DeleteFolders(&apiclient.DeleteFoldersRequest{IDs: []string{folder.ID}}))
		require.NoError(t, admin.DeleteVolume(vol.ID))
	})

	t.Run("volume writes require the admin role", func(t *testing.T) {
		_, err := editor.CreateVolume(&apiclient.CreateVolumeRequest{
			Name:    "forbidden",
			Backend: "memory",
		})
		apiErr := asAPIError(t, err)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

		// Reads stay open to every authenticated role.
		_, err = editor.ListVolumes()
		assert.NoError(t, err)
	})
}

// TestCatalogWorkflow walks the full folder and asset lifecycle on the
// fs-backed media volume: ensure a nested hierarchy, upload, rename,
// inspect the tree and tear everything down again.
func TestCatalogWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping catalog workflow tests in short mode")
	}

	sp := StartServerProcess(t)
	t.Cleanup(sp.ForceKill)

	admin := loginClient(t, sp.APIURL(), "admin", AdminPassword)
	editor := loginClient(t, sp.APIURL(), "editor", EditorPassword)
	viewer := loginClient(t, sp.APIURL(), "viewer", ViewerPassword)

	media := findVolume(t, admin, "media")

	summer, err := admin.EnsureFolder(media.ID, "photos/2024/summer")
	require.NoError(t, err, "Ensuring a nested path should succeed")
	summerID := summer.ID

	t.Run("ensure normalizes paths and is idempotent", func(t *testing.T) {
		again, err := editor.EnsureFolder(media.ID, "/photos/2024/summer/")
		require.NoError(t, err)
		assert.Equal(t, summerID, again.ID, "Re-ensuring should resolve the existing folder")
		assert.Equal(t, "photos/2024/summer/", again.Path)
	})

	t.Run("create folder rejects duplicate siblings", func(t *testing.T) {
		photos, err := editor.EnsureFolder(media.ID, "photos")
		require.NoError(t, err)

		raw, err := editor.CreateFolder(&apiclient.CreateFolderRequest{
			Name:     "raw",
			ParentID: photos.ID,
			VolumeID: media.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "photos/raw/", raw.Path)

		_, err = editor.CreateFolder(&apiclient.CreateFolderRequest{
			Name:     "raw",
			ParentID: photos.ID,
			VolumeID: media.ID,
		})
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsConflict(), "Sibling name collision should conflict")
	})

	var trip *apiclient.Asset

	t.Run("upload stores content and derives metadata", func(t *testing.T) {
		content := "postcard from the beach"

		var err error
		trip, err = editor.UploadAsset(&apiclient.UploadAssetRequest{
			FolderID: summerID,
			Filename: "summer_trip.txt",
		}, strings.NewReader(content))
		require.NoError(t, err, "Upload should succeed")

		assert.NotEmpty(t, trip.ID)
		assert.Equal(t, media.ID, trip.VolumeID, "Volume should default to the folder's")
		assert.Equal(t, summerID, trip.FolderID)
		assert.Equal(t, "summer_trip.txt", trip.Filename)
		assert.Equal(t, "text", trip.Kind, "Kind should be derived from the extension")
		assert.Equal(t, int64(len(content)), trip.Size)

		require.NotNil(t, trip.Element, "Upload should attach a display element")
		assert.Equal(t, "summer trip", trip.Element.Title, "Default title should come from the filename")
	})

	t.Run("upload with an explicit title keeps it", func(t *testing.T) {
		asset, err := editor.UploadAsset(&apiclient.UploadAssetRequest{
			FolderID: summerID,
			Filename: "notes.txt",
			Title:    "Packing list",
		}, strings.NewReader("sunscreen"))
		require.NoError(t, err)

		require.NotNil(t, asset.Element)
		assert.Equal(t, "Packing list", asset.Element.Title)
	})

	t.Run("image uploads record pixel dimensions", func(t *testing.T) {
		png, err := base64.StdEncoding.DecodeString(tinyPNG)
		require.NoError(t, err)

		asset, err := editor.UploadAsset(&apiclient.UploadAssetRequest{
			FolderID: summerID,
			Filename: "pixel.png",
		}, bytes.NewReader(png))
		require.NoError(t, err)

		assert.Equal(t, "image", asset.Kind)
		assert.Equal(t, 1, asset.Width)
		assert.Equal(t, 1, asset.Height)
	})

	t.Run("duplicate filenames in a folder are rejected", func(t *testing.T) {
		_, err := editor.UploadAsset(&apiclient.UploadAssetRequest{
			FolderID: summerID,
			Filename: "summer_trip.txt",
		}, strings.NewReader("other content"))
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsConflict(), "Filename collision should conflict, got %d", apiErr.StatusCode)
	})

	t.Run("get returns the asset with its element", func(t *testing.T) {
		got, err := viewer.GetAsset(trip.ID)
		require.NoError(t, err, "Viewers can read assets")

		assert.Equal(t, trip.Filename, got.Filename)
		require.NotNil(t, got.Element)
		assert.Equal(t, "summer trip", got.Element.Title)
	})

	t.Run("list folder assets orders by filename", func(t *testing.T) {
		assets, err := viewer.ListFolderAssets(summerID)
		require.NoError(t, err)
		require.Len(t, assets, 3)

		names := make([]string, 0, len(assets))
		for _, a := range assets {
			names = append(names, a.Filename)
		}
		assert.Equal(t, []string{"notes.txt", "pixel.png", "summer_trip.txt"}, names)
	})

	t.Run("rename asset", func(t *testing.T) {
		renamed, err := editor.RenameAsset(trip.ID, "beach_day.txt")
		require.NoError(t, err, "Rename should succeed")
		assert.Equal(t, "beach_day.txt", renamed.Filename)

		_, err = editor.RenameAsset(trip.ID, "notes.txt")
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsConflict(), "Renaming onto an existing filename should conflict")
	})

	t.Run("volume tree nests the hierarchy", func(t *testing.T) {
		roots, err := viewer.VolumeTree(media.ID)
		require.NoError(t, err)
		require.Len(t, roots, 1, "Media volume has a single root folder")

		photos := roots[0]
		assert.Equal(t, "photos", photos.Name)
		require.Len(t, photos.Children, 2)

		// Children come back in path order.
		assert.Equal(t, "2024", photos.Children[0].Name)
		assert.Equal(t, "raw", photos.Children[1].Name)

		year := photos.Children[0]
		require.Len(t, year.Children, 1)
		assert.Equal(t, "summer", year.Children[0].Name)
	})

	t.Run("forest spans all volumes", func(t *testing.T) {
		roots, err := viewer.Forest()
		require.NoError(t, err)

		// The scratch volume has no folders, so only media contributes.
		require.Len(t, roots, 1)
		assert.Equal(t, media.ID, roots[0].VolumeID)
	})

	t.Run("viewers cannot write", func(t *testing.T) {
		_, err := viewer.UploadAsset(&apiclient.UploadAssetRequest{
			FolderID: summerID,
			Filename: "sneaky.txt",
		}, strings.NewReader("nope"))
		apiErr := asAPIError(t, err)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

		_, err = viewer.EnsureFolder(media.ID, "viewer-made")
		apiErr = asAPIError(t, err)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("editors cannot delete", func(t *testing.T) {
		err := editor.DeleteAsset(trip.ID, false)
		apiErr := asAPIError(t, err)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

		err = editor.DeleteFolders(&apiclient.DeleteFoldersRequest{IDs: []string{summerID}})
		apiErr = asAPIError(t, err)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("delete asset removes it from the index", func(t *testing.T) {
		require.NoError(t, admin.DeleteAsset(trip.ID, true))

		_, err := viewer.GetAsset(trip.ID)
		apiErr := asAPIError(t, err)
		assert.True(t, apiErr.IsNotFound())
	})

	t.Run("folder deletion cascades through the subtree", func(t *testing.T) {
		photos, err := admin.EnsureFolder(media.ID, "photos")
		require.NoError(t, err)

		err = admin.DeleteFolders(&apiclient.DeleteFoldersRequest{
			IDs:            []string{photos.ID},
			DeletePhysical: true,
		})
		require.NoError(t, err, "Subtree deletion should succeed")

		roots, err := admin.VolumeTree(media.ID)
		require.NoError(t, err)
		assert.Empty(t, roots, "Tree should be empty after the cascade")

		assets, err := admin.ListFolderAssets(summerID)
		if err != nil {
			apiErr := asAPIError(t, err)
			assert.True(t, apiErr.IsNotFound(), "Deleted folder should be gone")
		} else {
			assert.Empty(t, assets)
		}
	})
}

// findVolume resolves a volume by name via the list endpoint.
func findVolume(t *testing.T, client *apiclient.Client, name string) *apiclient.Volume {
	t.Helper()

	volumes, err := client.ListVolumes()
	require.NoError(t, err)

	for i := range volumes {
		if volumes[i].Name == name {
			return &volumes[i]
		}
	}

	t.Fatalf("Volume %q not found", name)
	return nil
}
