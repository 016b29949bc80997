package catalog

import (
	"context"
	"strings"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ShippingProfile links the short id used in spreadsheets to a remote delivery profile
type ShippingProfile struct {
	shared.BaseEntity
	OwnerID         uuid.UUID
	ShortID         string
	Name            string
	RemoteProfileID string
}

// NewShippingProfile validates and builds a profile mapping
func NewShippingProfile(ownerID uuid.UUID, shortID, name, remoteProfileID string) (*ShippingProfile, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	shortID = strings.TrimSpace(shortID)
	if shortID == "" {
		return nil, shared.NewDomainError("INVALID_SHORT_ID", "Shipping profile short ID cannot be empty")
	}
	if strings.TrimSpace(remoteProfileID) == "" {
		return nil, shared.NewDomainError("INVALID_REMOTE_ID", "Remote profile ID cannot be empty")
	}
	return &ShippingProfile{
		BaseEntity:      shared.NewBaseEntity(),
		OwnerID:         ownerID,
		ShortID:         shortID,
		Name:            strings.TrimSpace(name),
		RemoteProfileID: strings.TrimSpace(remoteProfileID),
	}, nil
}

// ShippingProfileRepository defines the interface for shipping profile lookups
type ShippingProfileRepository interface {
	// FindByShortID returns shared.ErrNotFound when unknown
	FindByShortID(ctx context.Context, ownerID uuid.UUID, shortID string) (*ShippingProfile, error)

	Save(ctx context.Context, profile *ShippingProfile) error
}
