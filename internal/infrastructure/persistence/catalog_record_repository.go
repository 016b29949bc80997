package persistence

import (
	"context"
	"errors"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ensure GormCatalogRecordRepository implements CatalogRecordRepository
var _ catalog.CatalogRecordRepository = (*GormCatalogRecordRepository)(nil)

// GormCatalogRecordRepository implements catalog.CatalogRecordRepository using GORM
type GormCatalogRecordRepository struct {
	db *gorm.DB
}

// NewGormCatalogRecordRepository creates a new GormCatalogRecordRepository
func NewGormCatalogRecordRepository(db *gorm.DB) *GormCatalogRecordRepository {
	return &GormCatalogRecordRepository{db: db}
}

// FindByHandle returns the most recently synced record for handle
func (r *GormCatalogRecordRepository) FindByHandle(ctx context.Context, ownerID uuid.UUID, handle string) (*catalog.CatalogRecord, error) {
	var model models.CatalogRecordModel
	err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		Where("handle = ?", handle).
		Order("synced_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts on (owner_id, remote_product_id)
func (r *GormCatalogRecordRepository) Save(ctx context.Context, record *catalog.CatalogRecord) error {
	model := models.CatalogRecordModelFromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "remote_product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"handle", "title", "status", "variant_ids", "image_count", "snapshot", "synced_at", "updated_at",
			}),
		}).
		Create(model).Error
}
