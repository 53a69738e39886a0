package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// SaveElement inserts the element when it has no ID yet and updates it
// otherwise. Validation is optional so pipelines that already validated
// upstream can skip it.
func (s *GORMStore) SaveElement(ctx context.Context, uow *UnitOfWork, element *models.Element, validate bool) error {
	if validate {
		if element.Type == "" {
			return fmt.Errorf("element type is required")
		}
		if element.Title == "" {
			return fmt.Errorf("element title is required")
		}
	}

	now := time.Now()

	if element.ID == "" {
		element.ID = uuid.New().String()
		element.CreatedAt = now
		element.UpdatedAt = now
		return s.conn(ctx, uow).Create(element).Error
	}

	result := s.conn(ctx, uow).
		Model(&models.Element{}).
		Where("id = ?", element.ID).
		Updates(map[string]any{
			"type":       element.Type,
			"locale":     element.Locale,
			"title":      element.Title,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrElementNotFound
	}
	element.UpdatedAt = now
	return nil
}

// GetElementByID retrieves an element, optionally constrained to a type
// and locale when those arguments are non-empty.
func (s *GORMStore) GetElementByID(ctx context.Context, uow *UnitOfWork, id, elementType, locale string) (*models.Element, error) {
	db := s.conn(ctx, uow).Where("id = ?", id)
	if elementType != "" {
		db = db.Where("type = ?", elementType)
	}
	if locale != "" {
		db = db.Where("locale = ?", locale)
	}

	var element models.Element
	if err := db.First(&element).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrElementNotFound)
	}
	return &element, nil
}

// DeleteElementByID removes an element row. A missing row is not an
// error: element cleanup runs best-effort after asset deletion.
func (s *GORMStore) DeleteElementByID(ctx context.Context, uow *UnitOfWork, id string) error {
	return s.conn(ctx, uow).Delete(&models.Element{}, "id = ?", id).Error
}
