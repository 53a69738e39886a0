package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// AssetQuery selects assets by typed fields, mirroring FolderQuery.
type AssetQuery struct {
	IDs      []string
	VolumeID string
	FolderID string
	Filename string
	Kind     models.AssetKind
	Limit    int
	Offset   int
}

func (q AssetQuery) apply(db *gorm.DB) *gorm.DB {
	if len(q.IDs) > 0 {
		db = db.Where("id IN ?", q.IDs)
	}
	if q.VolumeID != "" {
		db = db.Where("volume_id = ?", q.VolumeID)
	}
	if q.FolderID != "" {
		db = db.Where("folder_id = ?", q.FolderID)
	}
	if q.Filename != "" {
		db = db.Where("filename = ?", q.Filename)
	}
	if q.Kind != "" {
		db = db.Where("kind = ?", q.Kind)
	}

	db = db.Order("filename ASC")

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	return db
}

// CreateAsset inserts an asset row, assigning an ID when absent. An
// existing asset with the same filename in the same folder maps to
// ErrDuplicateAsset.
func (s *GORMStore) CreateAsset(ctx context.Context, uow *UnitOfWork, asset *models.Asset) (string, error) {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}

	now := time.Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	if err := s.conn(ctx, uow).Omit("Element").Create(asset).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateAsset
		}
		return "", err
	}

	return asset.ID, nil
}

// UpdateAsset updates an existing asset's indexed fields.
func (s *GORMStore) UpdateAsset(ctx context.Context, uow *UnitOfWork, asset *models.Asset) error {
	result := s.conn(ctx, uow).
		Model(&models.Asset{}).
		Where("id = ?", asset.ID).
		Updates(map[string]any{
			"volume_id":     asset.VolumeID,
			"folder_id":     asset.FolderID,
			"filename":      asset.Filename,
			"kind":          asset.Kind,
			"size":          asset.Size,
			"width":         asset.Width,
			"height":        asset.Height,
			"date_modified": asset.DateModified,
			"element_id":    asset.ElementID,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.ErrDuplicateAsset
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrAssetNotFound
	}
	return nil
}

// UpdateAssetFilename renames an asset in place, refreshing the modified
// timestamp recorded from the backend.
func (s *GORMStore) UpdateAssetFilename(ctx context.Context, id, filename string, dateModified time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"filename":      filename,
			"date_modified": dateModified,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.ErrDuplicateAsset
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrAssetNotFound
	}
	return nil
}

// GetAssetByID retrieves an asset with its element preloaded.
func (s *GORMStore) GetAssetByID(ctx context.Context, uow *UnitOfWork, id string) (*models.Asset, error) {
	var asset models.Asset
	err := s.conn(ctx, uow).
		Preload("Element").
		First(&asset, "id = ?", id).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrAssetNotFound)
	}
	return &asset, nil
}

// FindAssetByLocation retrieves the asset indexed under a folder with the
// given filename.
func (s *GORMStore) FindAssetByLocation(ctx context.Context, uow *UnitOfWork, folderID, filename string) (*models.Asset, error) {
	var asset models.Asset
	err := s.conn(ctx, uow).
		Preload("Element").
		Where("folder_id = ? AND filename = ?", folderID, filename).
		First(&asset).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrAssetNotFound)
	}
	return &asset, nil
}

// ListAssets returns all assets matching the query.
func (s *GORMStore) ListAssets(ctx context.Context, q AssetQuery) ([]*models.Asset, error) {
	var assets []*models.Asset
	err := q.apply(s.db.WithContext(ctx).Model(&models.Asset{}).Preload("Element")).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// DeleteAsset removes an asset row.
func (s *GORMStore) DeleteAsset(ctx context.Context, uow *UnitOfWork, id string) error {
	result := s.conn(ctx, uow).Delete(&models.Asset{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrAssetNotFound
	}
	return nil
}
