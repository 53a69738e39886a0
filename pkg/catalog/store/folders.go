package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// FolderQuery selects folders by typed fields. Zero values mean "no
// constraint"; ParentID is a pointer so the root sentinel (empty string)
// can be matched explicitly.
type FolderQuery struct {
	IDs      []string
	VolumeID string
	ParentID *string
	Name     string
	Paths    []string
	OrderBy  FolderOrder
	Limit    int
	Offset   int
}

// FolderOrder enumerates the supported sort orders for folder queries.
type FolderOrder string

const (
	// FolderOrderPath sorts by materialized path, which yields parents
	// before children (every folder path is a strict prefix of its
	// descendants' paths).
	FolderOrderPath FolderOrder = "path ASC"

	// FolderOrderName sorts by folder name.
	FolderOrderName FolderOrder = "name ASC"

	// FolderOrderCreated sorts oldest first.
	FolderOrderCreated FolderOrder = "created_at ASC"
)

// ByParent matches the direct children of a parent folder within a volume.
func ByParent(volumeID, parentID string) FolderQuery {
	return FolderQuery{VolumeID: volumeID, ParentID: &parentID}
}

// ByPaths matches folders by exact materialized paths within a volume.
func ByPaths(volumeID string, paths ...string) FolderQuery {
	return FolderQuery{VolumeID: volumeID, Paths: paths}
}

// apply composes the query's constraints onto a GORM handle. It is a pure
// translation: every field maps to a parameterized condition, so values
// containing separators or wildcards need no escaping by callers.
func (q FolderQuery) apply(db *gorm.DB) *gorm.DB {
	if len(q.IDs) > 0 {
		db = db.Where("id IN ?", q.IDs)
	}
	if q.VolumeID != "" {
		db = db.Where("volume_id = ?", q.VolumeID)
	}
	if q.ParentID != nil {
		db = db.Where("parent_id = ?", *q.ParentID)
	}
	if q.Name != "" {
		db = db.Where("name = ?", q.Name)
	}
	if len(q.Paths) > 0 {
		db = db.Where("path IN ?", q.Paths)
	}

	order := q.OrderBy
	if order == "" {
		order = FolderOrderPath
	}
	db = db.Order(string(order))

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	return db
}

// CreateFolder inserts a folder row, assigning an ID when absent. A
// sibling with the same name or an existing folder at the same path maps
// to ErrDuplicateFolder.
func (s *GORMStore) CreateFolder(ctx context.Context, uow *UnitOfWork, folder *models.Folder) (string, error) {
	if folder.ID == "" {
		folder.ID = uuid.New().String()
	}

	now := time.Now()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	if err := s.conn(ctx, uow).Create(folder).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateFolder
		}
		return "", err
	}

	return folder.ID, nil
}

// GetFolderByID retrieves a folder by its ID.
func (s *GORMStore) GetFolderByID(ctx context.Context, uow *UnitOfWork, id string) (*models.Folder, error) {
	var folder models.Folder
	err := s.conn(ctx, uow).First(&folder, "id = ?", id).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrFolderNotFound)
	}
	return &folder, nil
}

// FindFolders returns all folders matching the query.
func (s *GORMStore) FindFolders(ctx context.Context, uow *UnitOfWork, q FolderQuery) ([]*models.Folder, error) {
	var folders []*models.Folder
	err := q.apply(s.conn(ctx, uow).Model(&models.Folder{})).Find(&folders).Error
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// FindFolder returns the single folder matching the query, or
// ErrFolderNotFound when no row matches.
func (s *GORMStore) FindFolder(ctx context.Context, uow *UnitOfWork, q FolderQuery) (*models.Folder, error) {
	q.Limit = 1
	folders, err := s.FindFolders(ctx, uow, q)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, models.ErrFolderNotFound
	}
	return folders[0], nil
}

// CountFolders counts folders matching the query, ignoring pagination.
func (s *GORMStore) CountFolders(ctx context.Context, q FolderQuery) (int64, error) {
	q.Limit = 0
	q.Offset = 0
	var count int64
	err := q.apply(s.db.WithContext(ctx).Model(&models.Folder{})).Count(&count).Error
	return count, err
}

// DescendantFolders returns the folder itself plus every descendant,
// ordered by path so parents always precede children. Descendants are
// matched by path prefix against the materialized path.
func (s *GORMStore) DescendantFolders(ctx context.Context, uow *UnitOfWork, folder *models.Folder) ([]*models.Folder, error) {
	var folders []*models.Folder
	prefix := escapeLike(folder.Path)
	err := s.conn(ctx, uow).
		Where("volume_id = ?", folder.VolumeID).
		Where(`path LIKE ? ESCAPE '\'`, prefix+"%").
		Order("path ASC").
		Find(&folders).Error
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// DeleteFolderTree removes a folder, its descendant folders, and every
// asset indexed under any of them in a single transaction. It returns the
// removed assets and the removed folder ids so callers can release backend
// files, elements, and cache entries afterwards.
func (s *GORMStore) DeleteFolderTree(ctx context.Context, folder *models.Folder) ([]*models.Asset, []string, error) {
	var (
		removed   []*models.Asset
		folderIDs []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prefix := escapeLike(folder.Path)

		err := tx.Model(&models.Folder{}).
			Where("volume_id = ?", folder.VolumeID).
			Where(`path LIKE ? ESCAPE '\'`, prefix+"%").
			Pluck("id", &folderIDs).Error
		if err != nil {
			return err
		}
		if len(folderIDs) == 0 {
			return models.ErrFolderNotFound
		}

		if err := tx.Where("folder_id IN ?", folderIDs).Find(&removed).Error; err != nil {
			return err
		}

		if len(removed) > 0 {
			if err := tx.Where("folder_id IN ?", folderIDs).Delete(&models.Asset{}).Error; err != nil {
				return fmt.Errorf("failed to delete indexed assets: %w", err)
			}
		}

		if err := tx.Where("id IN ?", folderIDs).Delete(&models.Folder{}).Error; err != nil {
			return fmt.Errorf("failed to delete folders: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return removed, folderIDs, nil
}
