//go:build integration

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/marmos91/vaultfs/pkg/catalog/errors"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
	"github.com/marmos91/vaultfs/pkg/catalog/store"
	"github.com/marmos91/vaultfs/pkg/transform"
	"github.com/marmos91/vaultfs/pkg/volume"
	"github.com/marmos91/vaultfs/pkg/volume/memory"
)

// testEnv wires a service against an in-memory store and an in-memory
// volume backend.
type testEnv struct {
	service *Service
	store   *store.GORMStore
	backend *memory.Backend
	volume  *models.Volume
	hooks   *HookBus
}

func newTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	st, err := store.New(&store.Config{
		Type: store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestEnv(t *testing.T, localBackend bool, opts ...func(*ServiceConfig)) *testEnv {
	t.Helper()
	st := newTestStore(t)
	ctx := context.Background()

	vol := &models.Volume{Name: "test-volume", Backend: "memory"}
	if _, err := st.CreateVolume(ctx, vol); err != nil {
		t.Fatalf("failed to create volume: %v", err)
	}

	backend := memory.New(memory.Config{Local: localBackend})
	mgr := volume.NewManager()
	mgr.Put(vol.ID, backend)

	hooks := NewHookBus()
	cfg := ServiceConfig{Store: st, Volumes: mgr, Hooks: hooks}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return &testEnv{service: svc, store: st, backend: backend, volume: vol, hooks: hooks}
}

// ensureFolder resolves a path to its folder row, creating it on demand.
func (e *testEnv) ensureFolder(t *testing.T, path string) *models.Folder {
	t.Helper()
	ctx := context.Background()
	id, err := e.service.EnsureFolderPath(ctx, nil, path, e.volume.ID)
	if err != nil {
		t.Fatalf("failed to ensure folder %q: %v", path, err)
	}
	folder, err := e.store.GetFolderByID(ctx, nil, id)
	if err != nil {
		t.Fatalf("failed to load folder %q: %v", path, err)
	}
	return folder
}

func countRows(t *testing.T, st *store.GORMStore, model any) int64 {
	t.Helper()
	var n int64
	if err := st.DB().Model(model).Count(&n).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}
	return path
}

func writePNGSource(t *testing.T, width, height int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "source.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write png: %v", err)
	}
	return path
}

// failingElementService simulates an element persistence outage.
type failingElementService struct{}

func (failingElementService) SaveElement(ctx context.Context, uow *store.UnitOfWork, element *models.Element, validate bool) error {
	return errors.New("element service unavailable")
}

func (failingElementService) ElementByID(ctx context.Context, id, elementType, locale string) (*models.Element, error) {
	return nil, models.ErrElementNotFound
}

func (failingElementService) DeleteElementByID(ctx context.Context, uow *store.UnitOfWork, id string) error {
	return nil
}

// failingDeleteBackend wraps the memory backend with a broken DeleteDir.
type failingDeleteBackend struct {
	*memory.Backend
}

func (b *failingDeleteBackend) DeleteDir(ctx context.Context, path string) error {
	return errors.New("simulated backend outage")
}

// staticAuthorizer answers every check the same way.
type staticAuthorizer struct {
	allow bool
	err   error
	calls int
}

func (a *staticAuthorizer) CheckPermission(ctx context.Context, permission, volumeID string) (bool, error) {
	a.calls++
	return a.allow, a.err
}

// ============================================================================
// Save pipeline
// ============================================================================

func TestSaveAssetUploadsNewAsset(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "photos/2026/")

	src := writePNGSource(t, 640, 480)
	asset := &models.Asset{
		FolderID: folder.ID,
		Filename: "uploads/vacation_photo.png", // path prefix must be stripped
	}

	if err := env.service.SaveAsset(ctx, asset, SaveOptions{SourcePath: src}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if asset.ID == "" {
		t.Error("expected an assigned asset id")
	}
	if asset.Filename != "vacation_photo.png" {
		t.Errorf("expected normalized filename, got %q", asset.Filename)
	}
	if asset.VolumeID != env.volume.ID {
		t.Errorf("expected inherited volume id %s, got %s", env.volume.ID, asset.VolumeID)
	}
	if asset.Kind != models.KindImage {
		t.Errorf("expected image kind, got %q", asset.Kind)
	}
	if asset.Size <= 0 {
		t.Errorf("expected derived size, got %d", asset.Size)
	}
	if asset.Width != 640 || asset.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", asset.Width, asset.Height)
	}
	if asset.DateModified.IsZero() {
		t.Error("expected derived modification time")
	}

	if !env.backend.FileExists("photos/2026/vacation_photo.png") {
		t.Error("expected the physical object on the backend")
	}

	stored, err := env.store.GetAssetByID(ctx, nil, asset.ID)
	if err != nil {
		t.Fatalf("failed to reload asset: %v", err)
	}
	if stored.Element == nil {
		t.Fatal("expected an attached element")
	}
	if stored.Element.Title != "vacation photo" {
		t.Errorf("expected default title %q, got %q", "vacation photo", stored.Element.Title)
	}
}

func TestSaveAssetPreconditions(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	t.Run("nil asset", func(t *testing.T) {
		err := env.service.SaveAsset(ctx, nil, SaveOptions{})
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
	})

	t.Run("new asset needs a source or the indexing flag", func(t *testing.T) {
		err := env.service.SaveAsset(ctx, &models.Asset{
			FolderID: folder.ID,
			Filename: "report.pdf",
		}, SaveOptions{})
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
	})

	t.Run("missing folder id", func(t *testing.T) {
		err := env.service.SaveAsset(ctx, &models.Asset{
			Filename:           "report.pdf",
			IndexingInProgress: true,
		}, SaveOptions{})
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
	})

	t.Run("unresolvable folder id", func(t *testing.T) {
		err := env.service.SaveAsset(ctx, &models.Asset{
			FolderID:           "no-such-folder",
			Filename:           "report.pdf",
			IndexingInProgress: true,
		}, SaveOptions{})
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
	})

	t.Run("no rows were written", func(t *testing.T) {
		if n := countRows(t, env.store, &models.Asset{}); n != 0 {
			t.Errorf("expected zero asset rows, got %d", n)
		}
	})
}

func TestSaveAssetValidationAggregates(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	hookFired := false
	env.hooks.OnBeforeSave(func(ctx context.Context, e *Event) (bool, error) {
		hookFired = true
		return true, nil
	})
	env.hooks.OnAfterSave(func(ctx context.Context, e *Event) { hookFired = true })

	asset := &models.Asset{
		FolderID:           folder.ID,
		Filename:           "", // required
		Size:               -5, // gte=0
		IndexingInProgress: true,
	}

	err := env.service.SaveAsset(ctx, asset, SaveOptions{})
	if !errs.IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var cerr *errs.CatalogError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a CatalogError, got %T", err)
	}
	if len(cerr.Fields) < 2 {
		t.Errorf("expected at least 2 aggregated violations, got %v", cerr.Fields)
	}

	if hookFired {
		t.Error("expected zero hook firings on validation failure")
	}
	if n := countRows(t, env.store, &models.Asset{}); n != 0 {
		t.Errorf("expected zero asset rows, got %d", n)
	}
	if n := countRows(t, env.store, &models.Element{}); n != 0 {
		t.Errorf("expected zero element rows, got %d", n)
	}
}

func TestSaveAssetSiblingConflict(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	first := &models.Asset{
		FolderID: folder.ID,
		Filename: "report.pdf",
		Size:     10,
	}
	if err := env.service.SaveAsset(ctx, first, SaveOptions{
		SourcePath: writeSource(t, "report.pdf", "v1"),
	}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	t.Run("same location different asset", func(t *testing.T) {
		err := env.service.SaveAsset(ctx, &models.Asset{
			FolderID:           folder.ID,
			Filename:           "report.pdf",
			IndexingInProgress: true,
		}, SaveOptions{})
		if !errs.IsConflictError(err) {
			t.Errorf("expected ConflictError, got %v", err)
		}
	})

	t.Run("updating the owner is not a conflict", func(t *testing.T) {
		first.Width = 100
		if err := env.service.SaveAsset(ctx, first, SaveOptions{}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if n := countRows(t, env.store, &models.Asset{}); n != 1 {
			t.Errorf("expected a single asset row, got %d", n)
		}
	})
}

func TestSaveAssetBackendConflict(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	// The object exists physically but no index row points at it.
	if err := env.backend.CreateFile(ctx, "docs/ghost.txt", bytes.NewReader([]byte("stale"))); err != nil {
		t.Fatalf("failed to seed backend: %v", err)
	}

	err := env.service.SaveAsset(ctx, &models.Asset{
		FolderID: folder.ID,
		Filename: "ghost.txt",
	}, SaveOptions{SourcePath: writeSource(t, "ghost.txt", "new content")})

	if !errs.IsBackendConflictError(err) {
		t.Fatalf("expected BackendConflictError, got %v", err)
	}
	if n := countRows(t, env.store, &models.Asset{}); n != 0 {
		t.Errorf("expected zero asset rows, got %d", n)
	}
}

func TestSaveAssetReplacesOwnContent(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	asset := &models.Asset{FolderID: folder.ID, Filename: "notes.txt"}
	if err := env.service.SaveAsset(ctx, asset, SaveOptions{
		SourcePath: writeSource(t, "notes.txt", "first"),
	}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	if err := env.service.SaveAsset(ctx, asset, SaveOptions{
		SourcePath: writeSource(t, "notes.txt", "second version"),
	}); err != nil {
		t.Fatalf("content replace failed: %v", err)
	}

	data, ok := env.backend.FileData("docs/notes.txt")
	if !ok {
		t.Fatal("expected the physical object to exist")
	}
	if string(data) != "second version" {
		t.Errorf("expected replaced content, got %q", data)
	}
	if asset.Size != int64(len("second version")) {
		t.Errorf("expected size refresh, got %d", asset.Size)
	}
}

func TestSaveAssetHookVeto(t *testing.T) {
	ctx := context.Background()

	t.Run("before-save veto rolls back", func(t *testing.T) {
		env := newTestEnv(t, true)
		folder := env.ensureFolder(t, "docs/")
		env.hooks.OnBeforeSave(func(ctx context.Context, e *Event) (bool, error) {
			return false, nil
		})

		err := env.service.SaveAsset(ctx, &models.Asset{
			FolderID:           folder.ID,
			Filename:           "vetoed.txt",
			IndexingInProgress: true,
		}, SaveOptions{})
		if !errs.IsCancelledError(err) {
			t.Fatalf("expected CancelledError, got %v", err)
		}
		if n := countRows(t, env.store, &models.Asset{}); n != 0 {
			t.Errorf("expected zero asset rows, got %d", n)
		}
		if n := countRows(t, env.store, &models.Element{}); n != 0 {
			t.Errorf("expected zero element rows after rollback, got %d", n)
		}
	})

	t.Run("before-upload veto stops the upload", func(t *testing.T) {
		env := newTestEnv(t, true)
		folder := env.ensureFolder(t, "docs/")
		env.hooks.OnBeforeUpload(func(ctx context.Context, e *Event) (bool, error) {
			return false, nil
		})

		err := env.service.SaveAsset(ctx, &models.Asset{
			FolderID: folder.ID,
			Filename: "vetoed.txt",
		}, SaveOptions{SourcePath: writeSource(t, "vetoed.txt", "data")})
		if !errs.IsCancelledError(err) {
			t.Fatalf("expected CancelledError, got %v", err)
		}
		if env.backend.FileCount() != 0 {
			t.Error("expected no physical object after an upload veto")
		}
	})
}

func TestSaveAssetElementFailure(t *testing.T) {
	env := newTestEnv(t, true, func(cfg *ServiceConfig) {
		cfg.Elements = failingElementService{}
	})
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	err := env.service.SaveAsset(ctx, &models.Asset{
		FolderID:           folder.ID,
		Filename:           "report.pdf",
		IndexingInProgress: true,
	}, SaveOptions{})

	if !errs.IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if n := countRows(t, env.store, &models.Asset{}); n != 0 {
		t.Errorf("expected rollback to remove the asset row, got %d rows", n)
	}
}

func TestSaveAssetJoinsUnitOfWork(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	sentinel := errors.New("caller aborts")
	err := env.store.RunInUnitOfWork(ctx, nil, func(uow *store.UnitOfWork) error {
		asset := &models.Asset{
			FolderID:           folder.ID,
			Filename:           "draft.txt",
			IndexingInProgress: true,
		}
		if serr := env.service.SaveAsset(ctx, asset, SaveOptions{UnitOfWork: uow}); serr != nil {
			t.Fatalf("save inside unit of work failed: %v", serr)
		}

		// The uncommitted row is visible inside the boundary.
		if _, gerr := env.store.GetAssetByID(ctx, uow, asset.ID); gerr != nil {
			t.Fatalf("expected the row inside the boundary: %v", gerr)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the sentinel error, got %v", err)
	}

	// The outer rollback undid the pipeline's writes.
	if n := countRows(t, env.store, &models.Asset{}); n != 0 {
		t.Errorf("expected zero asset rows after outer rollback, got %d", n)
	}
	if n := countRows(t, env.store, &models.Element{}); n != 0 {
		t.Errorf("expected zero element rows after outer rollback, got %d", n)
	}
}

func TestSaveAssetStagesTransformSource(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "transform-cache")
	transforms, err := transform.NewLocalSourceCache(cacheDir)
	if err != nil {
		t.Fatalf("failed to create transform cache: %v", err)
	}

	// A non-local backend triggers the post-commit working copy.
	env := newTestEnv(t, false, func(cfg *ServiceConfig) {
		cfg.Transforms = transforms
	})
	ctx := context.Background()
	folder := env.ensureFolder(t, "photos/")

	asset := &models.Asset{FolderID: folder.ID, Filename: "shot.png"}
	if err := env.service.SaveAsset(ctx, asset, SaveOptions{
		SourcePath: writePNGSource(t, 8, 8),
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	staged := filepath.Join(cacheDir, asset.ID+".png")
	if _, err := os.Stat(staged); err != nil {
		t.Errorf("expected staged working copy at %s: %v", staged, err)
	}
	if transforms.Pending() != 1 {
		t.Errorf("expected the copy queued for cleanup, pending=%d", transforms.Pending())
	}
}

func TestSaveAssetLocalVolumeSkipsStaging(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "transform-cache")
	transforms, err := transform.NewLocalSourceCache(cacheDir)
	if err != nil {
		t.Fatalf("failed to create transform cache: %v", err)
	}

	env := newTestEnv(t, true, func(cfg *ServiceConfig) {
		cfg.Transforms = transforms
	})
	ctx := context.Background()
	folder := env.ensureFolder(t, "photos/")

	asset := &models.Asset{FolderID: folder.ID, Filename: "shot.png"}
	if err := env.service.SaveAsset(ctx, asset, SaveOptions{
		SourcePath: writePNGSource(t, 8, 8),
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if transforms.Pending() != 0 {
		t.Errorf("expected no staging for a local volume, pending=%d", transforms.Pending())
	}
}

// ============================================================================
// Folders
// ============================================================================

func TestEnsureFolderPath(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	svc := env.service

	t.Run("creates a root folder", func(t *testing.T) {
		id, err := svc.EnsureFolderPath(ctx, nil, "media", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		folder, err := env.store.GetFolderByID(ctx, nil, id)
		if err != nil {
			t.Fatalf("failed to load folder: %v", err)
		}
		if folder.Path != "media/" {
			t.Errorf("expected normalized path media/, got %q", folder.Path)
		}
		if folder.ParentID != models.RootParentID {
			t.Errorf("expected the sentinel parent, got %q", folder.ParentID)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := svc.EnsureFolderPath(ctx, nil, "media/", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		second, err := svc.EnsureFolderPath(ctx, nil, "/media/", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		if first != second {
			t.Errorf("expected the same id, got %s and %s", first, second)
		}
		n, err := env.store.CountFolders(ctx, store.ByPaths(env.volume.ID, "media/"))
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected one row, got %d", n)
		}
	})

	t.Run("attaches to an existing parent", func(t *testing.T) {
		parentID, err := svc.EnsureFolderPath(ctx, nil, "media/", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		childID, err := svc.EnsureFolderPath(ctx, nil, "media/2026/", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		child, err := env.store.GetFolderByID(ctx, nil, childID)
		if err != nil {
			t.Fatalf("failed to load folder: %v", err)
		}
		if child.ParentID != parentID {
			t.Errorf("expected parent %s, got %s", parentID, child.ParentID)
		}
	})

	t.Run("creates missing ancestors", func(t *testing.T) {
		before, err := env.store.CountFolders(ctx, store.FolderQuery{VolumeID: env.volume.ID})
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}

		id, err := svc.EnsureFolderPath(ctx, nil, "q/r/", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		parent, err := env.store.FindFolder(ctx, nil, store.ByPaths(env.volume.ID, "q/"))
		if err != nil {
			t.Fatalf("expected the ancestor row to exist: %v", err)
		}
		if parent.ParentID != models.RootParentID {
			t.Errorf("expected the ancestor to be a root, got parent %q", parent.ParentID)
		}
		leaf, err := env.store.GetFolderByID(ctx, nil, id)
		if err != nil {
			t.Fatalf("failed to load folder: %v", err)
		}
		if leaf.ParentID != parent.ID {
			t.Errorf("expected leaf parent %s, got %s", parent.ID, leaf.ParentID)
		}

		again, err := svc.EnsureFolderPath(ctx, nil, "q/r/", env.volume.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}
		if again != id {
			t.Errorf("expected the same id, got %s and %s", id, again)
		}
		after, err := env.store.CountFolders(ctx, store.FolderQuery{VolumeID: env.volume.ID})
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if after != before+2 {
			t.Errorf("expected exactly two new rows, got %d", after-before)
		}
	})

	t.Run("sibling collision without path ownership surfaces as conflict", func(t *testing.T) {
		// A drifted row holds the sibling slot (volume, root, "b") under a
		// different path, so the disambiguating path lookup cannot adopt it.
		drifted := &models.Folder{
			VolumeID: env.volume.ID,
			ParentID: models.RootParentID,
			Name:     "b",
			Path:     "bee/",
		}
		if _, err := env.store.CreateFolder(ctx, nil, drifted); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		_, err := svc.EnsureFolderPath(ctx, nil, "b/", env.volume.ID)
		if !errs.IsConflictError(err) {
			t.Errorf("expected ConflictError, got %v", err)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := svc.EnsureFolderPath(ctx, nil, "", env.volume.ID)
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
		_, err = svc.EnsureFolderPath(ctx, nil, "///", env.volume.ID)
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError for a slash-only path, got %v", err)
		}
	})

	t.Run("missing volume id", func(t *testing.T) {
		_, err := svc.EnsureFolderPath(ctx, nil, "media/", "")
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
	})
}

func TestCreateFolder(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	svc := env.service

	t.Run("root folder", func(t *testing.T) {
		folder := &models.Folder{VolumeID: env.volume.ID, Name: "projects"}
		if err := svc.CreateFolder(ctx, folder, CreateFolderOptions{}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if folder.Path != "projects/" {
			t.Errorf("expected path projects/, got %q", folder.Path)
		}
	})

	t.Run("child composes the parent path", func(t *testing.T) {
		parent, err := env.store.FindFolder(ctx, nil, store.ByPaths(env.volume.ID, "projects/"))
		if err != nil {
			t.Fatalf("failed to load parent: %v", err)
		}
		child := &models.Folder{VolumeID: env.volume.ID, ParentID: parent.ID, Name: "alpha"}
		if err := svc.CreateFolder(ctx, child, CreateFolderOptions{}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if child.Path != "projects/alpha/" {
			t.Errorf("expected path projects/alpha/, got %q", child.Path)
		}
	})

	t.Run("sibling conflict", func(t *testing.T) {
		err := svc.CreateFolder(ctx, &models.Folder{VolumeID: env.volume.ID, Name: "projects"}, CreateFolderOptions{})
		if !errs.IsConflictError(err) {
			t.Errorf("expected ConflictError, got %v", err)
		}
	})

	t.Run("name with a slash", func(t *testing.T) {
		err := svc.CreateFolder(ctx, &models.Folder{VolumeID: env.volume.ID, Name: "a/b"}, CreateFolderOptions{})
		if !errs.IsLogicError(err) {
			t.Errorf("expected LogicError, got %v", err)
		}
	})

	t.Run("physical provisioning", func(t *testing.T) {
		folder := &models.Folder{VolumeID: env.volume.ID, Name: "staging"}
		if err := svc.CreateFolder(ctx, folder, CreateFolderOptions{CreatePhysical: true}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if !env.backend.DirExists("staging/") {
			t.Error("expected the physical directory on the backend")
		}
	})
}

func TestVolumeTreeAndForest(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	// A second volume that sorts before the first.
	early := &models.Volume{Name: "early", Backend: "memory", SortOrder: -1}
	if _, err := env.store.CreateVolume(ctx, early); err != nil {
		t.Fatalf("failed to create volume: %v", err)
	}
	env.service.Volumes().Put(early.ID, memory.New(memory.Config{Local: true}))

	if _, err := env.service.EnsureFolderPath(ctx, nil, "zeta/", early.ID); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if _, err := env.service.EnsureFolderPath(ctx, nil, "alpha/", env.volume.ID); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if _, err := env.service.EnsureFolderPath(ctx, nil, "alpha/inner/", env.volume.ID); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	t.Run("volume tree", func(t *testing.T) {
		roots, err := env.service.VolumeTree(ctx, env.volume.ID)
		if err != nil {
			t.Fatalf("tree failed: %v", err)
		}
		if len(roots) != 1 || roots[0].Path != "alpha/" {
			t.Fatalf("expected the alpha root, got %+v", roots)
		}
		if len(roots[0].Children) != 1 || roots[0].Children[0].Path != "alpha/inner/" {
			t.Error("expected alpha/inner/ attached under alpha/")
		}
	})

	t.Run("missing volume", func(t *testing.T) {
		_, err := env.service.VolumeTree(ctx, "no-such-volume")
		if !errs.IsMissingEntityError(err) {
			t.Errorf("expected MissingEntityError, got %v", err)
		}
	})

	t.Run("forest follows volume sort order", func(t *testing.T) {
		roots, err := env.service.Forest(ctx)
		if err != nil {
			t.Fatalf("forest failed: %v", err)
		}
		if len(roots) != 2 {
			t.Fatalf("expected 2 roots, got %d", len(roots))
		}
		if roots[0].Path != "zeta/" || roots[1].Path != "alpha/" {
			t.Errorf("expected the early volume's root first, got [%s %s]",
				roots[0].Path, roots[1].Path)
		}
	})
}

// ============================================================================
// Rename
// ============================================================================

func TestRenameAsset(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	asset := &models.Asset{FolderID: folder.ID, Filename: "old.txt"}
	if err := env.service.SaveAsset(ctx, asset, SaveOptions{
		SourcePath: writeSource(t, "old.txt", "content"),
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	blocker := &models.Asset{FolderID: folder.ID, Filename: "taken.txt"}
	if err := env.service.SaveAsset(ctx, blocker, SaveOptions{
		SourcePath: writeSource(t, "taken.txt", "other"),
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	t.Run("missing asset", func(t *testing.T) {
		err := env.service.RenameAsset(ctx, "no-such-asset", "new.txt", nil)
		if !errs.IsMissingEntityError(err) {
			t.Errorf("expected MissingEntityError, got %v", err)
		}
	})

	t.Run("sibling conflict leaves everything unchanged", func(t *testing.T) {
		err := env.service.RenameAsset(ctx, asset.ID, "taken.txt", nil)
		if !errs.IsConflictError(err) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if !env.backend.FileExists("docs/old.txt") {
			t.Error("expected the physical object untouched")
		}
		reloaded, _ := env.store.GetAssetByID(ctx, nil, asset.ID)
		if reloaded.Filename != "old.txt" {
			t.Errorf("expected metadata untouched, got %q", reloaded.Filename)
		}
	})

	t.Run("successful rename moves object and metadata", func(t *testing.T) {
		if err := env.service.RenameAsset(ctx, asset.ID, "new.txt", nil); err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		if env.backend.FileExists("docs/old.txt") {
			t.Error("expected the old object gone")
		}
		if !env.backend.FileExists("docs/new.txt") {
			t.Error("expected the new object present")
		}
		reloaded, _ := env.store.GetAssetByID(ctx, nil, asset.ID)
		if reloaded.Filename != "new.txt" {
			t.Errorf("expected renamed metadata, got %q", reloaded.Filename)
		}
	})

	t.Run("backend failure is a silent no-op", func(t *testing.T) {
		// Removing the physical object makes the backend rename fail.
		if err := env.backend.DeleteFile(ctx, "docs/new.txt"); err != nil {
			t.Fatalf("failed to remove object: %v", err)
		}
		if err := env.service.RenameAsset(ctx, asset.ID, "renamed-again.txt", nil); err != nil {
			t.Fatalf("expected a silent no-op, got %v", err)
		}
		reloaded, _ := env.store.GetAssetByID(ctx, nil, asset.ID)
		if reloaded.Filename != "new.txt" {
			t.Errorf("expected metadata to keep the old name, got %q", reloaded.Filename)
		}
	})

	t.Run("renaming to the same name is a no-op", func(t *testing.T) {
		if err := env.service.RenameAsset(ctx, blocker.ID, "taken.txt", nil); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})
}

// ============================================================================
// Bulk delete
// ============================================================================

func TestDeleteAssets(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	folder := env.ensureFolder(t, "docs/")

	var assets []*models.Asset
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("file-%d.txt", i)
		a := &models.Asset{FolderID: folder.ID, Filename: name}
		if err := env.service.SaveAsset(ctx, a, SaveOptions{
			SourcePath: writeSource(t, name, "data"),
		}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		assets = append(assets, a)
	}

	var beforeCount, afterCount int
	env.hooks.OnBeforeDelete(func(ctx context.Context, e *Event) { beforeCount++ })
	env.hooks.OnAfterDelete(func(ctx context.Context, e *Event) { afterCount++ })

	err := env.service.DeleteAssets(ctx,
		[]string{assets[0].ID, "no-such-id", assets[1].ID},
		DeleteAssetOptions{DeletePhysical: true})
	if err != nil {
		t.Fatalf("bulk delete failed: %v", err)
	}

	if n := countRows(t, env.store, &models.Asset{}); n != 1 {
		t.Errorf("expected one surviving asset row, got %d", n)
	}
	if n := countRows(t, env.store, &models.Element{}); n != 1 {
		t.Errorf("expected one surviving element row, got %d", n)
	}
	if env.backend.FileExists("docs/file-0.txt") || env.backend.FileExists("docs/file-1.txt") {
		t.Error("expected the physical objects removed")
	}
	if !env.backend.FileExists("docs/file-2.txt") {
		t.Error("expected the surviving object untouched")
	}
	if beforeCount != 2 || afterCount != 2 {
		t.Errorf("expected 2 before/after notifications, got %d/%d", beforeCount, afterCount)
	}
}

func TestDeleteFoldersCascade(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	root := env.ensureFolder(t, "a/")
	child := env.ensureFolder(t, "a/b/")
	prefixSibling := env.ensureFolder(t, "ab/")

	for _, loc := range []struct {
		folder *models.Folder
		name   string
	}{
		{root, "r.txt"},
		{child, "c.txt"},
		{prefixSibling, "s.txt"},
	} {
		a := &models.Asset{FolderID: loc.folder.ID, Filename: loc.name}
		if err := env.service.SaveAsset(ctx, a, SaveOptions{
			SourcePath: writeSource(t, loc.name, "data"),
		}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	if err := env.service.DeleteFolders(ctx, []string{root.ID}, DeleteFolderOptions{
		DeletePhysical: true,
	}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// a/ and a/b/ fell in the cascade, ab/ must survive.
	if _, err := env.store.GetFolderByID(ctx, nil, root.ID); !errors.Is(err, models.ErrFolderNotFound) {
		t.Errorf("expected the root gone, got %v", err)
	}
	if _, err := env.store.GetFolderByID(ctx, nil, child.ID); !errors.Is(err, models.ErrFolderNotFound) {
		t.Errorf("expected the child gone, got %v", err)
	}
	if _, err := env.store.GetFolderByID(ctx, nil, prefixSibling.ID); err != nil {
		t.Errorf("expected the prefix sibling to survive, got %v", err)
	}

	if n := countRows(t, env.store, &models.Asset{}); n != 1 {
		t.Errorf("expected one surviving asset, got %d", n)
	}
	if n := countRows(t, env.store, &models.Element{}); n != 1 {
		t.Errorf("expected cascaded elements cleaned up, got %d rows", n)
	}
	if !env.backend.FileExists("ab/s.txt") {
		t.Error("expected the sibling's object untouched")
	}
	if env.backend.FileExists("a/r.txt") || env.backend.FileExists("a/b/c.txt") {
		t.Error("expected the cascade's objects removed")
	}
}

func TestDeleteFoldersStrictness(t *testing.T) {
	ctx := context.Background()

	newBrokenEnv := func(t *testing.T) (*testEnv, *models.Folder) {
		env := newTestEnv(t, true)
		broken := &failingDeleteBackend{Backend: memory.New(memory.Config{Local: true})}
		env.service.Volumes().Put(env.volume.ID, broken)
		folder := env.ensureFolder(t, "doomed/")
		return env, folder
	}

	t.Run("single id is strict by default", func(t *testing.T) {
		env, folder := newBrokenEnv(t)
		err := env.service.DeleteFolders(ctx, []string{folder.ID}, DeleteFolderOptions{
			DeletePhysical: true,
		})
		if !errs.IsVolumeError(err) {
			t.Fatalf("expected VolumeError, got %v", err)
		}
		if _, gerr := env.store.GetFolderByID(ctx, nil, folder.ID); gerr != nil {
			t.Errorf("expected the metadata row intact, got %v", gerr)
		}
	})

	t.Run("batch swallows backend failures", func(t *testing.T) {
		env, folder := newBrokenEnv(t)
		other := env.ensureFolder(t, "other/")

		err := env.service.DeleteFolders(ctx, []string{folder.ID, other.ID}, DeleteFolderOptions{
			DeletePhysical: true,
		})
		if err != nil {
			t.Fatalf("expected the batch to swallow the failure, got %v", err)
		}
		if _, gerr := env.store.GetFolderByID(ctx, nil, folder.ID); !errors.Is(gerr, models.ErrFolderNotFound) {
			t.Errorf("expected best-effort metadata removal, got %v", gerr)
		}
	})

	t.Run("explicit strict flag overrides the batch rule", func(t *testing.T) {
		env, folder := newBrokenEnv(t)

		// A second folder on a healthy volume shows the batch continues
		// past the failure.
		healthy := &models.Volume{Name: "healthy", Backend: "memory"}
		if _, err := env.store.CreateVolume(ctx, healthy); err != nil {
			t.Fatalf("failed to create volume: %v", err)
		}
		env.service.Volumes().Put(healthy.ID, memory.New(memory.Config{Local: true}))
		otherID, err := env.service.EnsureFolderPath(ctx, nil, "other/", healthy.ID)
		if err != nil {
			t.Fatalf("ensure failed: %v", err)
		}

		err = env.service.DeleteFolders(ctx, []string{folder.ID, otherID}, DeleteFolderOptions{
			Strictness:     StrictnessStrict,
			DeletePhysical: true,
		})
		if !errs.IsVolumeError(err) {
			t.Fatalf("expected VolumeError, got %v", err)
		}
		if _, gerr := env.store.GetFolderByID(ctx, nil, folder.ID); gerr != nil {
			t.Errorf("expected the failing folder's metadata intact, got %v", gerr)
		}
		// The rest of the batch still proceeded.
		if _, gerr := env.store.GetFolderByID(ctx, nil, otherID); !errors.Is(gerr, models.ErrFolderNotFound) {
			t.Errorf("expected the other folder removed, got %v", gerr)
		}
	})

	t.Run("explicit best-effort flag overrides the single rule", func(t *testing.T) {
		env, folder := newBrokenEnv(t)
		err := env.service.DeleteFolders(ctx, []string{folder.ID}, DeleteFolderOptions{
			Strictness:     StrictnessBestEffort,
			DeletePhysical: true,
		})
		if err != nil {
			t.Fatalf("expected best-effort to swallow the failure, got %v", err)
		}
		if _, gerr := env.store.GetFolderByID(ctx, nil, folder.ID); !errors.Is(gerr, models.ErrFolderNotFound) {
			t.Errorf("expected the metadata removed, got %v", gerr)
		}
	})

	t.Run("absent ids skip silently", func(t *testing.T) {
		env := newTestEnv(t, true)
		if err := env.service.DeleteFolders(ctx, []string{"no-such-id"}, DeleteFolderOptions{}); err != nil {
			t.Errorf("expected silence for absent ids, got %v", err)
		}
	})
}

// ============================================================================
// Permission guards
// ============================================================================

func TestPermissionGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("nil authorizer allows everything", func(t *testing.T) {
		env := newTestEnv(t, true)
		folder := env.ensureFolder(t, "open/")
		if err := env.service.RequireFolderPermission(ctx, nil, folder.ID, PermissionEdit); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("denial and missing entities", func(t *testing.T) {
		auth := &staticAuthorizer{allow: false}
		env := newTestEnv(t, true, func(cfg *ServiceConfig) {
			cfg.Authorizer = auth
		})
		folder := env.ensureFolder(t, "guarded/")

		asset := &models.Asset{FolderID: folder.ID, Filename: "secret.txt", IndexingInProgress: true}
		if err := env.service.SaveAsset(ctx, asset, SaveOptions{}); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if err := env.service.RequireFolderPermission(ctx, nil, folder.ID, PermissionView); !errs.IsPermissionError(err) {
			t.Errorf("expected PermissionError, got %v", err)
		}
		if err := env.service.RequireAssetPermission(ctx, nil, asset.ID, PermissionDelete); !errs.IsPermissionError(err) {
			t.Errorf("expected PermissionError, got %v", err)
		}
		if err := env.service.RequireFolderPermission(ctx, nil, "no-such-folder", PermissionView); !errs.IsMissingEntityError(err) {
			t.Errorf("expected MissingEntityError, got %v", err)
		}
		if err := env.service.RequireAssetPermission(ctx, nil, "no-such-asset", PermissionView); !errs.IsMissingEntityError(err) {
			t.Errorf("expected MissingEntityError, got %v", err)
		}

		if env.service.HasFolderPermission(ctx, nil, folder.ID, PermissionView) {
			t.Error("expected Has to collapse denial into false")
		}
		if env.service.HasAssetPermission(ctx, nil, "no-such-asset", PermissionView) {
			t.Error("expected Has to collapse missing entity into false")
		}
	})

	t.Run("allowed", func(t *testing.T) {
		auth := &staticAuthorizer{allow: true}
		env := newTestEnv(t, true, func(cfg *ServiceConfig) {
			cfg.Authorizer = auth
		})
		folder := env.ensureFolder(t, "guarded/")

		if err := env.service.RequireFolderPermission(ctx, nil, folder.ID, PermissionView); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if !env.service.HasFolderPermission(ctx, nil, folder.ID, PermissionView) {
			t.Error("expected true")
		}
		if auth.calls == 0 {
			t.Error("expected the authorizer to be consulted")
		}
	})

	t.Run("authorizer failure surfaces as PermissionError", func(t *testing.T) {
		auth := &staticAuthorizer{allow: true, err: errors.New("idp unreachable")}
		env := newTestEnv(t, true, func(cfg *ServiceConfig) {
			cfg.Authorizer = auth
		})
		folder := env.ensureFolder(t, "guarded/")

		err := env.service.RequireFolderPermission(ctx, nil, folder.ID, PermissionView)
		if !errs.IsPermissionError(err) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})
}
