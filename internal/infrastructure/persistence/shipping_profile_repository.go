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

// Ensure GormShippingProfileRepository implements ShippingProfileRepository
var _ catalog.ShippingProfileRepository = (*GormShippingProfileRepository)(nil)

// GormShippingProfileRepository implements catalog.ShippingProfileRepository using GORM
type GormShippingProfileRepository struct {
	db *gorm.DB
}

// NewGormShippingProfileRepository creates a new GormShippingProfileRepository
func NewGormShippingProfileRepository(db *gorm.DB) *GormShippingProfileRepository {
	return &GormShippingProfileRepository{db: db}
}

// FindByShortID resolves a spreadsheet short id to its remote profile
func (r *GormShippingProfileRepository) FindByShortID(ctx context.Context, ownerID uuid.UUID, shortID string) (*catalog.ShippingProfile, error) {
	var model models.ShippingProfileModel
	err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		Where("short_id = ?", shortID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts on (owner_id, short_id)
func (r *GormShippingProfileRepository) Save(ctx context.Context, profile *catalog.ShippingProfile) error {
	model := &models.ShippingProfileModel{}
	model.FromDomain(profile)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "short_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "remote_profile_id", "updated_at"}),
		}).
		Create(model).Error
}
