package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps of a persisted record
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh ID stamped with the current time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot is an entity whose Version guards concurrent writers
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// Touch records a state change made at now
func (a *BaseAggregateRoot) Touch(now time.Time) {
	a.UpdatedAt = now
	a.Version++
}

// OwnedAggregateRoot is an aggregate that belongs to a single account.
// The owner is fixed at creation.
type OwnedAggregateRoot struct {
	BaseAggregateRoot
	OwnerID uuid.UUID
}

// NewOwnedAggregateRoot starts a version 1 aggregate owned by ownerID
func NewOwnedAggregateRoot(ownerID uuid.UUID) OwnedAggregateRoot {
	return OwnedAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1},
		OwnerID:           ownerID,
	}
}

// OwnedBy reports whether ownerID owns the aggregate. uuid.Nil owns nothing.
func (o *OwnedAggregateRoot) OwnedBy(ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && o.OwnerID == ownerID
}
