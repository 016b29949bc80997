package models

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the columns shared by every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Entity returns the domain identity stored in the row
func (m BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func baseModelOf(e shared.BaseEntity) BaseModel {
	return BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// OwnedAggregateModel adds the optimistic-lock version and owner column
type OwnedAggregateModel struct {
	BaseModel
	Version int       `gorm:"not null;default:1"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// Aggregate returns the domain aggregate header stored in the row
func (m OwnedAggregateModel) Aggregate() shared.OwnedAggregateRoot {
	return shared.OwnedAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.Entity(), Version: m.Version},
		OwnerID:           m.OwnerID,
	}
}

func ownedModelOf(o shared.OwnedAggregateRoot) OwnedAggregateModel {
	return OwnedAggregateModel{
		BaseModel: baseModelOf(o.BaseEntity),
		Version:   o.Version,
		OwnerID:   o.OwnerID,
	}
}
