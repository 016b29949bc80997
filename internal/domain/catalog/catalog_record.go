package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CatalogRecord is the local copy of a product last written to the remote
// catalog. It is looked up by (owner, handle) to decide between create and update.
type CatalogRecord struct {
	shared.BaseEntity
	OwnerID         uuid.UUID
	Handle          string
	RemoteProductID int64
	Title           string
	Status          Status
	VariantIDs      []int64
	ImageCount      int
	Snapshot        string // JSON of the re-fetched remote product
	SyncedAt        time.Time
}

// NewCatalogRecord validates and builds a record
func NewCatalogRecord(ownerID uuid.UUID, handle string, remoteProductID int64) (*CatalogRecord, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, shared.NewDomainError("INVALID_HANDLE", "Handle cannot be empty")
	}
	if remoteProductID <= 0 {
		return nil, shared.NewDomainError("INVALID_REMOTE_ID", "Remote product ID must be positive")
	}
	return &CatalogRecord{
		BaseEntity:      shared.NewBaseEntity(),
		OwnerID:         ownerID,
		Handle:          handle,
		RemoteProductID: remoteProductID,
		VariantIDs:      make([]int64, 0),
	}, nil
}

// CatalogRecordRepository defines the interface for catalog record persistence
type CatalogRecordRepository interface {
	// FindByHandle returns shared.ErrNotFound when the owner has no record for handle
	FindByHandle(ctx context.Context, ownerID uuid.UUID, handle string) (*CatalogRecord, error)

	// Save upserts by (owner, remote product id)
	Save(ctx context.Context, record *CatalogRecord) error
}
