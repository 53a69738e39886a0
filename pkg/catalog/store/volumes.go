package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// CreateVolume creates a new volume registration.
func (s *GORMStore) CreateVolume(ctx context.Context, volume *models.Volume) (string, error) {
	if volume.ID == "" {
		volume.ID = uuid.New().String()
	}

	now := time.Now()
	volume.CreatedAt = now
	volume.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(volume).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateVolume
		}
		return "", err
	}

	return volume.ID, nil
}

// GetVolumeByID retrieves a volume by its ID.
func (s *GORMStore) GetVolumeByID(ctx context.Context, uow *UnitOfWork, id string) (*models.Volume, error) {
	var volume models.Volume
	err := s.conn(ctx, uow).First(&volume, "id = ?", id).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrVolumeNotFound)
	}
	return &volume, nil
}

// GetVolumeByName retrieves a volume by its unique name.
func (s *GORMStore) GetVolumeByName(ctx context.Context, name string) (*models.Volume, error) {
	var volume models.Volume
	err := s.db.WithContext(ctx).First(&volume, "name = ?", name).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrVolumeNotFound)
	}
	return &volume, nil
}

// ListVolumes returns all volumes ordered by their configured sort order,
// then by name for a stable tie-break.
func (s *GORMStore) ListVolumes(ctx context.Context) ([]*models.Volume, error) {
	var volumes []*models.Volume
	err := s.db.WithContext(ctx).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&volumes).Error
	if err != nil {
		return nil, err
	}
	return volumes, nil
}

// UpdateVolume updates a volume's mutable fields.
func (s *GORMStore) UpdateVolume(ctx context.Context, volume *models.Volume) error {
	result := s.db.WithContext(ctx).
		Model(&models.Volume{}).
		Where("id = ?", volume.ID).
		Updates(map[string]any{
			"name":       volume.Name,
			"backend":    volume.Backend,
			"config":     volume.Config,
			"sort_order": volume.SortOrder,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.ErrDuplicateVolume
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrVolumeNotFound
	}
	return nil
}

// DeleteVolume removes a volume registration. Volumes that still index
// folders or assets cannot be deleted.
func (s *GORMStore) DeleteVolume(ctx context.Context, id string) error {
	var folderCount, assetCount int64
	if err := s.db.WithContext(ctx).Model(&models.Folder{}).Where("volume_id = ?", id).Count(&folderCount).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("volume_id = ?", id).Count(&assetCount).Error; err != nil {
		return err
	}
	if folderCount > 0 || assetCount > 0 {
		return models.ErrVolumeInUse
	}

	result := s.db.WithContext(ctx).Delete(&models.Volume{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrVolumeNotFound
	}
	return nil
}
