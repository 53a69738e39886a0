// Package catalog implements the hierarchical asset catalog: folders and
// assets indexed in a relational store, physical content living on
// pluggable volume backends.
//
// The Service is the single write path. It coordinates the metadata
// store, the volume backends, the element persistence service, the hook
// bus, and the permission authorizer:
//
//	svc, err := catalog.NewService(catalog.ServiceConfig{
//	    Store:   st,
//	    Volumes: volume.NewManager(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cache := catalog.NewFolderCache()
//	folderID, err := svc.EnsureFolderPath(ctx, cache, "photos/2026/", volumeID)
//	...
//	err = svc.SaveAsset(ctx, asset, catalog.SaveOptions{
//	    SourcePath: "/tmp/upload-123",
//	    Cache:      cache,
//	})
//
// Reads that only need rows go straight to the store; the service adds
// the behavior that spans collaborators (uploads, cascades, hooks,
// permissions).
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/internal/telemetry"
	errs "github.com/marmos91/vaultfs/pkg/catalog/errors"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
	"github.com/marmos91/vaultfs/pkg/catalog/store"
	"github.com/marmos91/vaultfs/pkg/transform"
	"github.com/marmos91/vaultfs/pkg/volume"
)

// Permission names the guards understand. The Authorizer receives them
// verbatim together with the owning volume id.
const (
	PermissionView   = "view"
	PermissionEdit   = "edit"
	PermissionDelete = "delete"
)

// Authorizer answers permission checks for catalog entities. Checks are
// volume-scoped: the guards resolve an entity to its owning volume
// before asking.
type Authorizer interface {
	CheckPermission(ctx context.Context, permission, volumeID string) (bool, error)
}

// ElementService persists the identity and content records attached to
// assets. The catalog delegates element writes so an external content
// system can own identity assignment; the store-backed implementation
// returned by NewStoreElementService is the default.
type ElementService interface {
	SaveElement(ctx context.Context, uow *store.UnitOfWork, element *models.Element, validate bool) error
	ElementByID(ctx context.Context, id, elementType, locale string) (*models.Element, error)
	DeleteElementByID(ctx context.Context, uow *store.UnitOfWork, id string) error
}

// storeElementService adapts the GORM store to the ElementService
// contract.
type storeElementService struct {
	store *store.GORMStore
}

// NewStoreElementService returns an ElementService backed by the catalog
// store itself.
func NewStoreElementService(st *store.GORMStore) ElementService {
	return &storeElementService{store: st}
}

func (s *storeElementService) SaveElement(ctx context.Context, uow *store.UnitOfWork, element *models.Element, validate bool) error {
	return s.store.SaveElement(ctx, uow, element, validate)
}

func (s *storeElementService) ElementByID(ctx context.Context, id, elementType, locale string) (*models.Element, error) {
	return s.store.GetElementByID(ctx, nil, id, elementType, locale)
}

func (s *storeElementService) DeleteElementByID(ctx context.Context, uow *store.UnitOfWork, id string) error {
	return s.store.DeleteElementByID(ctx, uow, id)
}

// ServiceConfig wires the service's collaborators. Store is required;
// every other field has a working default or is optional.
type ServiceConfig struct {
	// Store is the metadata index. Required.
	Store *store.GORMStore

	// Volumes caches volume backends per volume id. A fresh manager is
	// created when nil.
	Volumes *volume.Manager

	// Elements persists element records. Defaults to the store-backed
	// implementation.
	Elements ElementService

	// Authorizer answers permission checks. A nil authorizer allows
	// everything.
	Authorizer Authorizer

	// Hooks receives extension callbacks. A fresh empty bus is created
	// when nil.
	Hooks *HookBus

	// Transforms is the local source cache for derivative generation.
	// Nil disables the post-commit working-copy step.
	Transforms *transform.LocalSourceCache

	// Metrics receives operation measurements. Nil disables
	// instrumentation.
	Metrics Metrics
}

// Service is the catalog write path. Create one with NewService and
// share it; all methods are safe for concurrent use as long as each
// caller keeps its FolderCache to itself.
type Service struct {
	store      *store.GORMStore
	volumes    *volume.Manager
	elements   ElementService
	auth       Authorizer
	hooks      *HookBus
	transforms *transform.LocalSourceCache
	metrics    Metrics
	validate   *validator.Validate
}

// NewService creates a catalog service from the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog service requires a store")
	}
	if cfg.Volumes == nil {
		cfg.Volumes = volume.NewManager()
	}
	if cfg.Elements == nil {
		cfg.Elements = NewStoreElementService(cfg.Store)
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NewHookBus()
	}

	v := validator.New()
	// Report violations under the wire-facing field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Service{
		store:      cfg.Store,
		volumes:    cfg.Volumes,
		elements:   cfg.Elements,
		auth:       cfg.Authorizer,
		hooks:      cfg.Hooks,
		transforms: cfg.Transforms,
		metrics:    cfg.Metrics,
		validate:   v,
	}, nil
}

// Store returns the underlying metadata store for plain reads.
func (s *Service) Store() *store.GORMStore {
	return s.store
}

// Volumes returns the backend manager, mainly so owners can close it on
// shutdown.
func (s *Service) Volumes() *volume.Manager {
	return s.volumes
}

// Hooks returns the hook bus for callback registration.
func (s *Service) Hooks() *HookBus {
	return s.hooks
}

// Elements returns the element persistence service.
func (s *Service) Elements() ElementService {
	return s.elements
}

// Transforms returns the local source cache, or nil when derivative
// staging is disabled. Owners drive its periodic Sweep.
func (s *Service) Transforms() *transform.LocalSourceCache {
	return s.transforms
}

// ============================================================================
// Folders
// ============================================================================

// CreateFolderOptions carries the optional inputs of CreateFolder.
type CreateFolderOptions struct {
	// CreatePhysical provisions the folder's directory on the volume
	// backend after the metadata row is written. A physical failure is
	// returned but leaves the row in place.
	CreatePhysical bool

	// Cache is the per-request folder cache; nil means operation-private.
	Cache *FolderCache
}

// CreateFolder creates a single folder row under an existing parent (or
// as a volume root when ParentID is the sentinel) and fills in the
// materialized path. Sibling name collisions return a ConflictError.
func (s *Service) CreateFolder(ctx context.Context, folder *models.Folder, opts CreateFolderOptions) error {
	start := time.Now()
	err := s.createFolder(ctx, folder, opts)
	s.observe("create_folder", start, err)
	return err
}

func (s *Service) createFolder(ctx context.Context, folder *models.Folder, opts CreateFolderOptions) error {
	if folder == nil {
		return errs.NewLogicError("folder must not be nil")
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewFolderCache()
	}

	folder.Name = strings.TrimSpace(folder.Name)
	switch {
	case folder.VolumeID == "":
		return errs.NewLogicError("folder %q has no volume id", folder.Name)
	case folder.Name == "":
		return errs.NewLogicError("folder name cannot be empty")
	case strings.Contains(folder.Name, "/"):
		return errs.NewLogicError("folder name %q cannot contain a slash", folder.Name)
	}

	if folder.ParentID == models.RootParentID {
		folder.Path = folder.Name + "/"
	} else {
		parent, err := s.folderByID(ctx, nil, cache, folder.ParentID)
		if err != nil {
			if errors.Is(err, models.ErrFolderNotFound) {
				return errs.NewLogicError("parent folder %s could not be resolved", folder.ParentID)
			}
			return err
		}
		if parent.VolumeID != folder.VolumeID {
			return errs.NewLogicError("parent folder %s belongs to volume %s, not %s",
				parent.ID, parent.VolumeID, folder.VolumeID)
		}
		folder.Path = parent.Path + folder.Name + "/"
	}

	if _, err := s.store.CreateFolder(ctx, nil, folder); err != nil {
		if errors.Is(err, models.ErrDuplicateFolder) {
			return errs.NewConflictError(folder.Name, folder.Path)
		}
		return fmt.Errorf("failed to create folder %q: %w", folder.Path, err)
	}
	cache.Put(folder)

	if opts.CreatePhysical {
		_, backend, err := s.backendForVolume(ctx, nil, folder.VolumeID)
		if err != nil {
			return err
		}
		if err := backend.CreateDir(ctx, folder.Path); err != nil && !errors.Is(err, volume.ErrAlreadyExists) {
			return errs.NewVolumeError("mkdir", folder.Path, err)
		}
	}

	logger.InfoCtx(ctx, "folder created",
		logger.FolderID(folder.ID), logger.Path(folder.Path), logger.VolumeID(folder.VolumeID))
	return nil
}

// EnsureFolderPath resolves a materialized path to a folder id, creating
// the folder row and every missing ancestor row along the way. The path
// is normalized first; repeated calls with the same inputs return the
// same id and add no further rows.
func (s *Service) EnsureFolderPath(ctx context.Context, cache *FolderCache, path, volumeID string) (string, error) {
	start := time.Now()
	id, err := s.ensureFolderPath(ctx, cache, path, volumeID)
	s.observe("ensure_folder_path", start, err)
	return id, err
}

func (s *Service) ensureFolderPath(ctx context.Context, cache *FolderCache, path, volumeID string) (string, error) {
	if cache == nil {
		cache = NewFolderCache()
	}

	norm := models.NormalizeFolderPath(path)
	if norm == "" {
		return "", errs.NewLogicError("folder path cannot be empty")
	}
	if volumeID == "" {
		return "", errs.NewLogicError("folder path %q has no volume id", norm)
	}

	ctx, span := telemetry.StartSpan(ctx, "catalog.ensure_folder_path",
		trace.WithAttributes(attribute.String(telemetry.AttrPath, norm)))
	defer span.End()

	return s.ensureFolderLevel(ctx, cache, norm, volumeID)
}

// ensureFolderLevel resolves one normalized path, recursing into the
// parent path first so ancestors exist before their children. Depth is
// bounded by the segment count of the requested path.
func (s *Service) ensureFolderLevel(ctx context.Context, cache *FolderCache, norm, volumeID string) (string, error) {
	existing, err := s.store.FindFolder(ctx, nil, store.ByPaths(volumeID, norm))
	if err == nil {
		cache.Put(existing)
		return existing.ID, nil
	}
	if !errors.Is(err, models.ErrFolderNotFound) {
		return "", fmt.Errorf("failed to look up folder %q: %w", norm, err)
	}

	parentPath, name := models.SplitFolderPath(norm)
	parentID := models.RootParentID
	if parentPath != "" {
		pid, perr := s.ensureFolderLevel(ctx, cache, parentPath, volumeID)
		if perr != nil {
			return "", perr
		}
		parentID = pid
	}

	folder := &models.Folder{
		VolumeID: volumeID,
		ParentID: parentID,
		Name:     name,
		Path:     norm,
	}
	if _, cerr := s.store.CreateFolder(ctx, nil, folder); cerr != nil {
		if errors.Is(cerr, models.ErrDuplicateFolder) {
			// Either we lost a create race on the same path, or the
			// sibling-name index collided with a row whose path differs.
			// The path lookup disambiguates.
			winner, werr := s.store.FindFolder(ctx, nil, store.ByPaths(volumeID, norm))
			if werr == nil {
				cache.Put(winner)
				return winner.ID, nil
			}
			return "", errs.NewConflictError(name, norm)
		}
		return "", fmt.Errorf("failed to ensure folder %q: %w", norm, cerr)
	}
	cache.Put(folder)

	logger.DebugCtx(ctx, "folder ensured",
		logger.FolderID(folder.ID), logger.Path(norm), logger.VolumeID(volumeID))
	return folder.ID, nil
}

// VolumeTree returns the assembled folder forest of one volume.
func (s *Service) VolumeTree(ctx context.Context, volumeID string) ([]*FolderNode, error) {
	vol, err := s.store.GetVolumeByID(ctx, nil, volumeID)
	if err != nil {
		if errors.Is(err, models.ErrVolumeNotFound) {
			return nil, errs.NewMissingEntityError("volume", volumeID)
		}
		return nil, fmt.Errorf("failed to load volume %s: %w", volumeID, err)
	}

	folders, err := s.store.FindFolders(ctx, nil, store.FolderQuery{VolumeID: volumeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders of volume %s: %w", volumeID, err)
	}
	return AssembleFolderForest(folders, []*models.Volume{vol}), nil
}

// Forest returns the assembled folder forest across every volume, with
// roots ordered by volume sort order.
func (s *Service) Forest(ctx context.Context) ([]*FolderNode, error) {
	volumes, err := s.store.ListVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}
	folders, err := s.store.FindFolders(ctx, nil, store.FolderQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return AssembleFolderForest(folders, volumes), nil
}

// ============================================================================
// Asset save pipeline
// ============================================================================

// SaveOptions carries the optional inputs of SaveAsset.
type SaveOptions struct {
	// SourcePath points at a local file whose content becomes the
	// asset's physical object. Required for new assets unless the
	// indexing-in-progress flag is set.
	SourcePath string

	// UnitOfWork joins the caller's transactional boundary. The
	// pipeline participates flat: only the outermost owner commits or
	// rolls back. Nil opens a scoped transaction.
	UnitOfWork *store.UnitOfWork

	// Cache is the per-request folder cache; nil means operation-private.
	Cache *FolderCache
}

// SaveAsset runs the full save pipeline for one asset: filename
// normalization, sibling conflict check, volume resolution, optional
// physical upload, then the transactional part (validation, default
// title, before-save hook, element persistence, the metadata row,
// after-save notifications).
//
// Physical conflicts the index does not know about surface as
// BackendConflictError so callers can reconcile instead of retrying.
// Failures inside the transactional boundary roll back metadata but
// leave an already uploaded object in place.
func (s *Service) SaveAsset(ctx context.Context, asset *models.Asset, opts SaveOptions) error {
	if asset == nil {
		return errs.NewLogicError("asset must not be nil")
	}
	isNew := asset.IsNew()

	ctx, span := telemetry.StartSpan(ctx, "catalog.save_asset",
		trace.WithAttributes(attribute.Bool(telemetry.AttrNewAsset, isNew)))
	defer span.End()

	start := time.Now()
	err := s.saveAsset(ctx, asset, isNew, opts)
	s.observe("save_asset", start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordAssetSaved(string(asset.Kind), asset.Size)
	}
	logger.InfoCtx(ctx, "asset saved",
		logger.AssetID(asset.ID),
		logger.Filename(asset.Filename),
		logger.FolderID(asset.FolderID),
		logger.DurationMs(start))
	return nil
}

func (s *Service) saveAsset(ctx context.Context, asset *models.Asset, isNew bool, opts SaveOptions) error {
	cache := opts.Cache
	if cache == nil {
		cache = NewFolderCache()
	}

	// Preconditions fail before any side effect.
	if isNew && opts.SourcePath == "" && !asset.IndexingInProgress {
		return errs.NewLogicError("a new asset needs a source file or the indexing-in-progress flag")
	}
	if asset.FolderID == "" {
		return errs.NewLogicError("asset %q has no folder id", asset.Filename)
	}

	// Step 1: normalize the filename.
	asset.Filename = NormalizeFilename(asset.Filename)

	folder, err := s.folderByID(ctx, opts.UnitOfWork, cache, asset.FolderID)
	if err != nil {
		if errors.Is(err, models.ErrFolderNotFound) {
			return errs.NewLogicError("folder %s could not be resolved", asset.FolderID)
		}
		return err
	}

	// Step 2: sibling conflict check. Finding the asset's own row means
	// an update, not a conflict.
	ownsLocation := false
	existing, err := s.store.FindAssetByLocation(ctx, opts.UnitOfWork, folder.ID, asset.Filename)
	switch {
	case err == nil:
		if existing.ID != asset.ID {
			return errs.NewConflictError(asset.Filename, folder.Path)
		}
		ownsLocation = true
	case !errors.Is(err, models.ErrAssetNotFound):
		return fmt.Errorf("failed sibling conflict check for %q: %w", asset.Filename, err)
	}

	// Step 3: resolve the owning volume, inheriting the folder's when
	// unset.
	if asset.VolumeID == "" {
		asset.VolumeID = folder.VolumeID
	}
	vol, backend, err := s.backendForVolume(ctx, opts.UnitOfWork, asset.VolumeID)
	if err != nil {
		return err
	}
	telemetry.SetAttributes(ctx,
		attribute.String(telemetry.AttrVolumeID, vol.ID),
		attribute.String(telemetry.AttrVolumeBackend, vol.Backend))

	event := &Event{Asset: asset, Folder: folder, Volume: vol}

	// Step 4: physical upload.
	var (
		src      *os.File
		uploaded bool
	)
	if opts.SourcePath != "" {
		src, err = os.Open(opts.SourcePath)
		if err != nil {
			return errs.NewFileAccessError(opts.SourcePath, err)
		}
		defer src.Close()

		if herr := s.runDecision(ctx, "before-upload", s.hooks.DecideBeforeUpload, event); herr != nil {
			return herr
		}

		physicalPath := folder.Path + asset.Filename
		if cerr := backend.CreateFile(ctx, physicalPath, src); cerr != nil {
			switch {
			case !errors.Is(cerr, volume.ErrAlreadyExists):
				return errs.NewVolumeError("create", physicalPath, cerr)
			case !ownsLocation:
				// The object exists but the index does not attribute
				// the location to this asset. Never swallowed: callers
				// reconcile instead of retrying.
				return errs.NewBackendConflictError(physicalPath, cerr)
			default:
				// Content replace for an indexed update.
				if derr := backend.DeleteFile(ctx, physicalPath); derr != nil {
					return errs.NewVolumeError("replace", physicalPath, derr)
				}
				if _, serr := src.Seek(0, io.SeekStart); serr != nil {
					return errs.NewFileAccessError(opts.SourcePath, serr)
				}
				if rerr := backend.CreateFile(ctx, physicalPath, src); rerr != nil {
					return errs.NewVolumeError("replace", physicalPath, rerr)
				}
			}
		}
		uploaded = true

		info, serr := src.Stat()
		if serr != nil {
			return errs.NewFileAccessError(opts.SourcePath, serr)
		}
		asset.Size = info.Size()
		asset.DateModified = info.ModTime()
		asset.Kind = models.KindForFilename(asset.Filename)

		if asset.Kind == models.KindImage {
			if w, h, perr := probeImageDimensions(src); perr == nil {
				asset.Width, asset.Height = w, h
			} else {
				logger.DebugCtx(ctx, "image dimension probe failed",
					logger.Filename(asset.Filename), logger.Err(perr))
			}
		}
	}
	if asset.Kind == "" {
		asset.Kind = models.KindForFilename(asset.Filename)
	}

	element := asset.Element
	if element == nil {
		element = &models.Element{Type: models.ElementTypeAsset}
	}

	// Steps 5-12: the transactional boundary. A caller-supplied unit of
	// work is joined; otherwise this opens its own.
	err = s.store.RunInUnitOfWork(ctx, opts.UnitOfWork, func(uow *store.UnitOfWork) error {
		// Step 6: validate, aggregating every violation. No hook has
		// fired inside the boundary and no row is written yet.
		if verr := s.validateAsset(asset); verr != nil {
			return verr
		}

		// Step 7: default title for new assets.
		if isNew && element.Title == "" {
			element.Title = DefaultTitle(asset.Filename)
		}

		// Step 8: cancellable before-save hook.
		if herr := s.runDecision(ctx, "before-save", s.hooks.DecideBeforeSave, event); herr != nil {
			return herr
		}

		// Step 9: element persistence assigns identity.
		if perr := s.elements.SaveElement(ctx, uow, element, false); perr != nil {
			return errs.NewPersistenceError(perr)
		}
		asset.ElementID = element.ID
		asset.Element = element

		// Step 10: the metadata row.
		if isNew {
			if _, cerr := s.store.CreateAsset(ctx, uow, asset); cerr != nil {
				if errors.Is(cerr, models.ErrDuplicateAsset) {
					return errs.NewConflictError(asset.Filename, folder.Path)
				}
				return fmt.Errorf("failed to create asset %q: %w", asset.Filename, cerr)
			}
		} else {
			if uerr := s.store.UpdateAsset(ctx, uow, asset); uerr != nil {
				switch {
				case errors.Is(uerr, models.ErrAssetNotFound):
					return errs.NewMissingEntityError("asset", asset.ID)
				case errors.Is(uerr, models.ErrDuplicateAsset):
					return errs.NewConflictError(asset.Filename, folder.Path)
				}
				return fmt.Errorf("failed to update asset %s: %w", asset.ID, uerr)
			}
		}

		// Step 11: after-save notifications, still inside the boundary.
		// The commit that follows is step 12 and happens regardless of
		// what the hooks changed elsewhere.
		s.hooks.NotifyAfterSave(ctx, event)
		return nil
	})
	if err != nil {
		if uploaded {
			logger.WarnCtx(ctx, "metadata save failed after upload, physical object kept",
				logger.Path(folder.Path+asset.Filename), logger.Err(err))
		}
		return err
	}

	// Step 13: post-commit working copy for derivative generation.
	if uploaded && isNew && !backend.Local() && asset.Kind == models.KindImage && s.transforms != nil {
		if cerr := s.stageTransformSource(ctx, asset, src); cerr != nil {
			logger.WarnCtx(ctx, "failed to stage transform source",
				logger.AssetID(asset.ID), logger.Err(cerr))
		}
	}

	return nil
}

// stageTransformSource copies the just-uploaded source into the local
// transform cache and queues the copy for cleanup.
func (s *Service) stageTransformSource(ctx context.Context, asset *models.Asset, src *os.File) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	local, err := s.transforms.StoreLocalSource(ctx, asset.ID, filepath.Ext(asset.Filename), src)
	if err != nil {
		return err
	}
	s.transforms.QueueForCleanup(local)
	return nil
}

// validateAsset checks the asset's metadata fields and aggregates every
// violation into a single ValidationError.
func (s *Service) validateAsset(asset *models.Asset) error {
	err := s.validate.Struct(asset)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate asset: %w", err)
	}

	fields := make([]errs.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errs.FieldViolation{
			Field:   fe.Field(),
			Message: violationMessage(fe),
		})
	}
	return errs.NewValidationError(fields)
}

// violationMessage renders one validator violation, keeping the rule name
// visible so operators can match it to the model tags.
func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("exceeds max length %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be gte %s", fe.Param())
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}

// runDecision fires a cancellable hook and maps a veto to CancelledError.
func (s *Service) runDecision(ctx context.Context, hook string, decide func(context.Context, *Event) (bool, error), event *Event) error {
	allowed, err := decide(ctx, event)
	if err != nil {
		return fmt.Errorf("%s hook failed: %w", hook, err)
	}
	if !allowed {
		if s.metrics != nil {
			s.metrics.RecordHookVeto(hook)
		}
		return errs.NewCancelledError(hook)
	}
	return nil
}

// ============================================================================
// Rename
// ============================================================================

// RenameAsset renames an asset's physical object and, only when the
// backend reports success, its metadata row. A backend failure is a
// silent no-op apart from a warning log: the index keeps the old name
// and the caller sees no error.
func (s *Service) RenameAsset(ctx context.Context, assetID, newFilename string, cache *FolderCache) error {
	start := time.Now()
	err := s.renameAsset(ctx, assetID, newFilename, cache)
	s.observe("rename_asset", start, err)
	return err
}

func (s *Service) renameAsset(ctx context.Context, assetID, newFilename string, cache *FolderCache) error {
	if cache == nil {
		cache = NewFolderCache()
	}

	asset, err := s.store.GetAssetByID(ctx, nil, assetID)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return errs.NewMissingEntityError("asset", assetID)
		}
		return fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}

	normalized := NormalizeFilename(newFilename)
	if normalized == "" {
		return errs.NewLogicError("new filename cannot be empty")
	}
	if normalized == asset.Filename {
		return nil
	}

	folder, err := s.folderByID(ctx, nil, cache, asset.FolderID)
	if err != nil {
		if errors.Is(err, models.ErrFolderNotFound) {
			return errs.NewLogicError("folder %s could not be resolved", asset.FolderID)
		}
		return err
	}

	existing, err := s.store.FindAssetByLocation(ctx, nil, asset.FolderID, normalized)
	switch {
	case err == nil:
		if existing.ID != asset.ID {
			return errs.NewConflictError(normalized, folder.Path)
		}
	case !errors.Is(err, models.ErrAssetNotFound):
		return fmt.Errorf("failed sibling conflict check for %q: %w", normalized, err)
	}

	_, backend, err := s.backendForVolume(ctx, nil, asset.VolumeID)
	if err != nil {
		return err
	}

	oldPath := folder.Path + asset.Filename
	newPath := folder.Path + normalized
	if rerr := backend.RenameFile(ctx, oldPath, newPath); rerr != nil {
		logger.WarnCtx(ctx, "physical rename failed, metadata unchanged",
			logger.AssetID(asset.ID), logger.Path(oldPath), logger.Err(rerr))
		return nil
	}

	if uerr := s.store.UpdateAssetFilename(ctx, asset.ID, normalized, time.Now()); uerr != nil {
		return fmt.Errorf("failed to rename asset %s: %w", asset.ID, uerr)
	}

	logger.InfoCtx(ctx, "asset renamed",
		logger.AssetID(asset.ID), logger.Path(newPath))
	return nil
}

// ============================================================================
// Bulk delete
// ============================================================================

// DeleteAssetOptions carries the optional inputs of DeleteAssets.
type DeleteAssetOptions struct {
	// DeletePhysical removes the backing object from the volume backend.
	// Physical failures are logged and ignored.
	DeletePhysical bool

	// Cache is the per-request folder cache; nil means operation-private.
	Cache *FolderCache
}

// DeleteAssets removes assets best-effort: absent ids skip silently and
// one item's failure never stops the batch. Each deletion fires the
// before-delete and after-delete notifications and removes the metadata
// row together with its element.
func (s *Service) DeleteAssets(ctx context.Context, ids []string, opts DeleteAssetOptions) error {
	ctx, span := telemetry.StartSpan(ctx, "catalog.delete_assets",
		trace.WithAttributes(attribute.Int(telemetry.AttrCount, len(ids))))
	defer span.End()

	start := time.Now()
	cache := opts.Cache
	if cache == nil {
		cache = NewFolderCache()
	}

	deleted := 0
	for _, id := range ids {
		if s.deleteAsset(ctx, cache, id, opts.DeletePhysical) {
			deleted++
		}
	}

	if s.metrics != nil && deleted > 0 {
		s.metrics.RecordAssetsDeleted(deleted)
	}
	s.observe("delete_assets", start, nil)
	logger.InfoCtx(ctx, "assets deleted", logger.Count(deleted), logger.DurationMs(start))
	return nil
}

// deleteAsset removes one asset and reports whether a row went away.
func (s *Service) deleteAsset(ctx context.Context, cache *FolderCache, id string, deletePhysical bool) bool {
	asset, err := s.store.GetAssetByID(ctx, nil, id)
	if err != nil {
		if !errors.Is(err, models.ErrAssetNotFound) {
			logger.WarnCtx(ctx, "failed to load asset during bulk delete",
				logger.AssetID(id), logger.Err(err))
		}
		return false
	}

	event := &Event{Asset: asset}
	folder, ferr := s.folderByID(ctx, nil, cache, asset.FolderID)
	if ferr == nil {
		event.Folder = folder
	}

	s.hooks.NotifyBeforeDelete(ctx, event)

	if deletePhysical && folder != nil {
		vol, backend, berr := s.backendForVolume(ctx, nil, asset.VolumeID)
		if berr != nil {
			logger.WarnCtx(ctx, "backend unavailable for physical delete",
				logger.VolumeID(asset.VolumeID), logger.Err(berr))
		} else {
			event.Volume = vol
			physicalPath := folder.Path + asset.Filename
			if derr := backend.DeleteFile(ctx, physicalPath); derr != nil {
				logger.WarnCtx(ctx, "physical delete failed, removing metadata anyway",
					logger.Path(physicalPath), logger.Err(derr))
			}
		}
	}

	err = s.store.RunInUnitOfWork(ctx, nil, func(uow *store.UnitOfWork) error {
		if derr := s.store.DeleteAsset(ctx, uow, asset.ID); derr != nil && !errors.Is(derr, models.ErrAssetNotFound) {
			return derr
		}
		if asset.ElementID != "" {
			if eerr := s.elements.DeleteElementByID(ctx, uow, asset.ElementID); eerr != nil {
				return eerr
			}
		}
		return nil
	})
	if err != nil {
		logger.WarnCtx(ctx, "failed to delete asset metadata",
			logger.AssetID(asset.ID), logger.Err(err))
		return false
	}

	s.hooks.NotifyAfterDelete(ctx, event)
	return true
}

// Strictness selects how DeleteFolders treats physical removal failures.
type Strictness int

const (
	// StrictnessDefault resolves to strict when exactly one id was
	// requested and to best-effort otherwise.
	StrictnessDefault Strictness = iota

	// StrictnessStrict keeps a folder's metadata when its physical
	// removal fails and reports the failure.
	StrictnessStrict

	// StrictnessBestEffort removes metadata regardless of physical
	// failures.
	StrictnessBestEffort
)

// DeleteFolderOptions carries the optional inputs of DeleteFolders.
type DeleteFolderOptions struct {
	// Strictness picks the failure mode for physical removal; see the
	// Strictness constants.
	Strictness Strictness

	// DeletePhysical removes the folder's directory tree from the
	// volume backend before the metadata cascade.
	DeletePhysical bool

	// Cache is the per-request folder cache; nil means operation-private.
	Cache *FolderCache
}

// DeleteFolders removes folders best-effort: absent ids skip silently.
// Metadata removal cascades to descendant folders and their assets in
// one transaction per requested id; element rows of cascaded assets are
// cleaned up afterwards. Folder deletion fires no hooks.
//
// In strict mode a physical removal failure keeps that folder's metadata
// and surfaces as a VolumeError; by default strictness applies only when
// exactly one id was requested.
func (s *Service) DeleteFolders(ctx context.Context, ids []string, opts DeleteFolderOptions) error {
	ctx, span := telemetry.StartSpan(ctx, "catalog.delete_folders",
		trace.WithAttributes(attribute.Int(telemetry.AttrCount, len(ids))))
	defer span.End()

	start := time.Now()
	strict := opts.Strictness == StrictnessStrict ||
		(opts.Strictness == StrictnessDefault && len(ids) == 1)
	cache := opts.Cache
	if cache == nil {
		cache = NewFolderCache()
	}

	var firstErr error
	foldersDeleted := 0

	for _, id := range ids {
		folder, err := s.store.GetFolderByID(ctx, nil, id)
		if err != nil {
			if !errors.Is(err, models.ErrFolderNotFound) {
				logger.WarnCtx(ctx, "failed to load folder during bulk delete",
					logger.FolderID(id), logger.Err(err))
				if strict && firstErr == nil {
					firstErr = fmt.Errorf("failed to load folder %s: %w", id, err)
				}
			}
			continue
		}

		if opts.DeletePhysical {
			_, backend, berr := s.backendForVolume(ctx, nil, folder.VolumeID)
			if berr == nil {
				berr = backend.DeleteDir(ctx, folder.Path)
			}
			if berr != nil {
				if strict {
					logger.WarnCtx(ctx, "physical folder delete failed, metadata kept",
						logger.Path(folder.Path), logger.Err(berr))
					if firstErr == nil {
						firstErr = errs.NewVolumeError("delete", folder.Path, berr)
					}
					continue
				}
				logger.WarnCtx(ctx, "physical folder delete failed, removing metadata anyway",
					logger.Path(folder.Path), logger.Err(berr))
			}
		}

		removed, removedIDs, err := s.store.DeleteFolderTree(ctx, folder)
		if err != nil {
			if errors.Is(err, models.ErrFolderNotFound) {
				continue
			}
			logger.WarnCtx(ctx, "failed to delete folder tree",
				logger.FolderID(folder.ID), logger.Err(err))
			if strict && firstErr == nil {
				firstErr = fmt.Errorf("failed to delete folder %s: %w", folder.ID, err)
			}
			continue
		}

		cache.Invalidate(removedIDs...)
		foldersDeleted += len(removedIDs)

		for _, a := range removed {
			if a.ElementID == "" {
				continue
			}
			if eerr := s.elements.DeleteElementByID(ctx, nil, a.ElementID); eerr != nil {
				logger.WarnCtx(ctx, "failed to clean up element",
					logger.AssetID(a.ID), logger.Err(eerr))
			}
		}

		logger.InfoCtx(ctx, "folder tree deleted",
			logger.FolderID(folder.ID),
			logger.Path(folder.Path),
			logger.Count(len(removedIDs)))
	}

	if s.metrics != nil && foldersDeleted > 0 {
		s.metrics.RecordFoldersDeleted(foldersDeleted)
	}
	s.observe("delete_folders", start, firstErr)
	if firstErr != nil {
		telemetry.RecordError(ctx, firstErr)
	}
	return firstErr
}

// ============================================================================
// Permission guards
// ============================================================================

// RequireFolderPermission resolves the folder to its owning volume and
// asks the authorizer for the permission. An unresolvable id returns
// MissingEntityError, a denial PermissionError.
func (s *Service) RequireFolderPermission(ctx context.Context, cache *FolderCache, folderID, permission string) error {
	if cache == nil {
		cache = NewFolderCache()
	}
	folder, err := s.folderByID(ctx, nil, cache, folderID)
	if err != nil {
		if errors.Is(err, models.ErrFolderNotFound) {
			return errs.NewMissingEntityError("folder", folderID)
		}
		return err
	}
	return s.checkPermission(ctx, permission, folder.VolumeID)
}

// RequireAssetPermission resolves the asset to its owning volume and
// asks the authorizer for the permission. An unresolvable id returns
// MissingEntityError, a denial PermissionError.
func (s *Service) RequireAssetPermission(ctx context.Context, cache *FolderCache, assetID, permission string) error {
	if cache == nil {
		cache = NewFolderCache()
	}
	asset, err := s.store.GetAssetByID(ctx, nil, assetID)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			return errs.NewMissingEntityError("asset", assetID)
		}
		return fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}

	volumeID := asset.VolumeID
	if volumeID == "" {
		if folder, ferr := s.folderByID(ctx, nil, cache, asset.FolderID); ferr == nil {
			volumeID = folder.VolumeID
		}
	}
	return s.checkPermission(ctx, permission, volumeID)
}

// HasFolderPermission collapses RequireFolderPermission into a boolean.
func (s *Service) HasFolderPermission(ctx context.Context, cache *FolderCache, folderID, permission string) bool {
	return s.RequireFolderPermission(ctx, cache, folderID, permission) == nil
}

// HasAssetPermission collapses RequireAssetPermission into a boolean.
func (s *Service) HasAssetPermission(ctx context.Context, cache *FolderCache, assetID, permission string) bool {
	return s.RequireAssetPermission(ctx, cache, assetID, permission) == nil
}

func (s *Service) checkPermission(ctx context.Context, permission, volumeID string) error {
	if s.auth == nil {
		return nil
	}
	allowed, err := s.auth.CheckPermission(ctx, permission, volumeID)
	if err != nil {
		perr := errs.NewPermissionError(permission, volumeID)
		perr.Err = err
		return perr
	}
	if !allowed {
		return errs.NewPermissionError(permission, volumeID)
	}
	return nil
}

// ============================================================================
// Shared lookups
// ============================================================================

// folderByID loads a folder through the cache, recording absent ids so
// they are not re-queried within the same operation.
func (s *Service) folderByID(ctx context.Context, uow *store.UnitOfWork, cache *FolderCache, id string) (*models.Folder, error) {
	if folder, known := cache.Get(id); known {
		if folder == nil {
			return nil, models.ErrFolderNotFound
		}
		return folder, nil
	}

	folder, err := s.store.GetFolderByID(ctx, uow, id)
	if err != nil {
		if errors.Is(err, models.ErrFolderNotFound) {
			cache.PutAbsent(id)
			return nil, err
		}
		return nil, fmt.Errorf("failed to load folder %s: %w", id, err)
	}
	cache.Put(folder)
	return folder, nil
}

// backendForVolume resolves a volume row and its opened backend. An
// unknown volume id is a LogicError; a backend that cannot open is a
// VolumeError. The volume read joins uow so callers holding a unit of
// work never fall back to a second connection.
func (s *Service) backendForVolume(ctx context.Context, uow *store.UnitOfWork, volumeID string) (*models.Volume, volume.Backend, error) {
	vol, err := s.store.GetVolumeByID(ctx, uow, volumeID)
	if err != nil {
		if errors.Is(err, models.ErrVolumeNotFound) {
			return nil, nil, errs.NewLogicError("volume %s could not be resolved", volumeID)
		}
		return nil, nil, fmt.Errorf("failed to load volume %s: %w", volumeID, err)
	}

	backend, err := s.volumes.Backend(ctx, vol)
	if err != nil {
		return nil, nil, errs.NewVolumeError("open", "", err)
	}
	return vol, backend, nil
}
