package models

import (
	"encoding/json"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// CatalogRecord
// ---------------------------------------------------------------------------

// CatalogRecordModel is the persistence model for a synced remote product
type CatalogRecordModel struct {
	BaseModel
	OwnerID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_catalog_records_owner_remote,priority:1;index:idx_catalog_records_owner_handle,priority:1"`
	Handle          string         `gorm:"type:varchar(255);not null;index:idx_catalog_records_owner_handle,priority:2"`
	RemoteProductID int64          `gorm:"not null;uniqueIndex:idx_catalog_records_owner_remote,priority:2"`
	Title           string         `gorm:"type:varchar(255);not null;default:''"`
	Status          catalog.Status `gorm:"type:varchar(20);not null;default:'draft'"`
	VariantIDs      string         `gorm:"type:text;not null;default:'[]'"`
	ImageCount      int            `gorm:"not null;default:0"`
	Snapshot        string         `gorm:"type:text;not null;default:'{}'"`
	SyncedAt        time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogRecordModel) TableName() string {
	return "catalog_records"
}

// ToDomain converts the persistence model to a domain CatalogRecord
func (m *CatalogRecordModel) ToDomain() *catalog.CatalogRecord {
	record := &catalog.CatalogRecord{
		BaseEntity:      m.Entity(),
		OwnerID:         m.OwnerID,
		Handle:          m.Handle,
		RemoteProductID: m.RemoteProductID,
		Title:           m.Title,
		Status:          m.Status,
		VariantIDs:      make([]int64, 0),
		ImageCount:      m.ImageCount,
		Snapshot:        m.Snapshot,
		SyncedAt:        m.SyncedAt,
	}
	if m.VariantIDs != "" {
		_ = json.Unmarshal([]byte(m.VariantIDs), &record.VariantIDs)
	}
	return record
}

// FromDomain populates the persistence model from a domain CatalogRecord
func (m *CatalogRecordModel) FromDomain(r *catalog.CatalogRecord) {
	m.BaseModel = baseModelOf(r.BaseEntity)
	m.OwnerID = r.OwnerID
	m.Handle = r.Handle
	m.RemoteProductID = r.RemoteProductID
	m.Title = r.Title
	m.Status = r.Status
	m.ImageCount = r.ImageCount
	m.Snapshot = r.Snapshot
	m.SyncedAt = r.SyncedAt

	m.VariantIDs = "[]"
	if len(r.VariantIDs) > 0 {
		if data, err := json.Marshal(r.VariantIDs); err == nil {
			m.VariantIDs = string(data)
		}
	}
	if m.Snapshot == "" {
		m.Snapshot = "{}"
	}
}

// CatalogRecordModelFromDomain creates a new persistence model from a domain CatalogRecord
func CatalogRecordModelFromDomain(r *catalog.CatalogRecord) *CatalogRecordModel {
	m := &CatalogRecordModel{}
	m.FromDomain(r)
	return m
}

// ---------------------------------------------------------------------------
// Category
// ---------------------------------------------------------------------------

// CategoryModel is the persistence model for the Category aggregate
type CategoryModel struct {
	OwnedAggregateModel
	Name     string     `gorm:"type:varchar(100);not null"`
	Tag      string     `gorm:"type:varchar(255);not null"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
	Path     string     `gorm:"type:varchar(500);not null;index"`
	Level    int        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		OwnedAggregateRoot: m.Aggregate(),
		Name:               m.Name,
		Tag:                m.Tag,
		ParentID:           m.ParentID,
		Path:               m.Path,
		Level:              m.Level,
	}
}

// FromDomain populates the persistence model from a domain Category
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.OwnedAggregateModel = ownedModelOf(c.OwnedAggregateRoot)
	m.Name = c.Name
	m.Tag = c.Tag
	m.ParentID = c.ParentID
	m.Path = c.Path
	m.Level = c.Level
}

// CategoryModelFromDomain creates a new persistence model from a domain Category
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}

// ---------------------------------------------------------------------------
// ShippingProfile
// ---------------------------------------------------------------------------

// ShippingProfileModel maps a spreadsheet short id to a remote delivery profile
type ShippingProfileModel struct {
	BaseModel
	OwnerID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shipping_profiles_owner_short,priority:1"`
	ShortID         string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_shipping_profiles_owner_short,priority:2"`
	Name            string    `gorm:"type:varchar(255);not null;default:''"`
	RemoteProfileID string    `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (ShippingProfileModel) TableName() string {
	return "shipping_profiles"
}

// ToDomain converts the persistence model to a domain ShippingProfile
func (m *ShippingProfileModel) ToDomain() *catalog.ShippingProfile {
	return &catalog.ShippingProfile{
		BaseEntity:      m.Entity(),
		OwnerID:         m.OwnerID,
		ShortID:         m.ShortID,
		Name:            m.Name,
		RemoteProfileID: m.RemoteProfileID,
	}
}

// FromDomain populates the persistence model from a domain ShippingProfile
func (m *ShippingProfileModel) FromDomain(p *catalog.ShippingProfile) {
	m.BaseModel = baseModelOf(p.BaseEntity)
	m.OwnerID = p.OwnerID
	m.ShortID = p.ShortID
	m.Name = p.Name
	m.RemoteProfileID = p.RemoteProfileID
}
