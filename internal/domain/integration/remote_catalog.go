package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ownerTagPrefix marks the tag that records which owner imported a product
const ownerTagPrefix = "catalogsync-owner:"

// OwnerTag returns the tag written on every product imported for ownerID
func OwnerTag(ownerID uuid.UUID) string {
	return ownerTagPrefix + ownerID.String()
}

// ---------------------------------------------------------------------------
// Remote Catalog Errors
// ---------------------------------------------------------------------------

var (
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformRejected        = errors.New("integration: platform rejected request")
)

// RemoteRequestError is returned when the platform answers with a non-success status
type RemoteRequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RemoteRequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote catalog: %s %s returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("remote catalog: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the platform
func IsNotFound(err error) bool {
	var reqErr *RemoteRequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

// ---------------------------------------------------------------------------
// ProductStatus
// ---------------------------------------------------------------------------

// ProductStatus is the publication state of a remote product
type ProductStatus string

const (
	ProductStatusActive ProductStatus = "active"
	ProductStatusDraft  ProductStatus = "draft"
)

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// RemoteProduct is a product as returned by the platform
type RemoteProduct struct {
	ID          int64
	Handle      string
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Status      ProductStatus
	Tags        string
	Options     []RemoteOption
	Variants    []RemoteVariant
	Images      []RemoteImage
}

// RemoteOption is one product option with its values
type RemoteOption struct {
	ID       int64
	Name     string
	Position int
	Values   []string
}

// RemoteVariant is a purchasable variant with its server-assigned ids
type RemoteVariant struct {
	ID                  int64
	InventoryItemID     int64
	SKU                 string
	Barcode             string
	Price               decimal.Decimal
	CompareAtPrice      *decimal.Decimal
	Option1             string
	Option2             string
	Option3             string
	InventoryManagement string
	InventoryQuantity   int
	Weight              decimal.Decimal
	WeightUnit          string
	RequiresShipping    bool
	Taxable             bool
}

// RemoteImage is an image attached to a remote product
type RemoteImage struct {
	ID         int64
	Src        string
	Alt        string
	Position   int
	VariantIDs []int64
}

// InventoryLevel is the stock of one inventory item at one location
type InventoryLevel struct {
	InventoryItemID int64
	LocationID      int64
	Available       int
}

// VariantIDs returns the ids of all variants in order
func (p *RemoteProduct) VariantIDs() []int64 {
	ids := make([]int64, 0, len(p.Variants))
	for _, v := range p.Variants {
		ids = append(ids, v.ID)
	}
	return ids
}

// HasTag reports whether tag is in the comma-separated tag list
func (p *RemoteProduct) HasTag(tag string) bool {
	for _, t := range strings.Split(p.Tags, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// OwnedBy reports whether the product carries the owner tag of ownerID
func (p *RemoteProduct) OwnedBy(ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && p.HasTag(OwnerTag(ownerID))
}

// VariantByOptions finds the variant carrying the given option values
func (p *RemoteProduct) VariantByOptions(option1, option2, option3 string) *RemoteVariant {
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.Option1 == option1 && v.Option2 == option2 && v.Option3 == option3 {
			return v
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Write inputs
// ---------------------------------------------------------------------------

// ProductInput carries every field written by an upsert. Options, variants,
// tags and status are sent in a single request.
type ProductInput struct {
	Handle      string
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Status      ProductStatus
	Tags        []string
	Options     []OptionInput
	Variants    []VariantInput
}

// OptionInput is an option name with its ordered values
type OptionInput struct {
	Name   string
	Values []string
}

// VariantInput describes one variant to create or replace. A zero ID
// creates a new variant; a known ID keeps its inventory item.
type VariantInput struct {
	ID               int64
	SKU              string
	Barcode          string
	Price            decimal.Decimal
	CompareAtPrice   *decimal.Decimal
	Option1          string
	Option2          string
	Option3          string
	TrackQuantity    bool
	Weight           decimal.Decimal
	WeightUnit       string
	RequiresShipping bool
	Taxable          bool
}

// MetafieldInput is a namespaced custom attribute
type MetafieldInput struct {
	Namespace string
	Key       string
	Value     string
	Type      string
}

// ImageInput is an image to attach by source URL
type ImageInput struct {
	Src        string
	Alt        string
	VariantIDs []int64
}

// ---------------------------------------------------------------------------
// RemoteCatalog Port
// ---------------------------------------------------------------------------

// RemoteCatalog is the set of Admin API operations the import pipeline drives.
// Every method returns *RemoteRequestError on a non-success HTTP status.
type RemoteCatalog interface {
	// FindProductByHandle returns the product with handle that carries the
	// owner tag of ownerID, or nil when the owner has none
	FindProductByHandle(ctx context.Context, ownerID uuid.UUID, handle string) (*RemoteProduct, error)

	// UpsertProduct creates the product when productID is zero, otherwise replaces it
	UpsertProduct(ctx context.Context, productID int64, input ProductInput) (*RemoteProduct, error)

	CreateMetafield(ctx context.Context, productID int64, metafield MetafieldInput) error

	ListInventoryLevels(ctx context.Context, inventoryItemID int64) ([]InventoryLevel, error)
	SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error

	// AttachShippingProfile associates variants with a delivery profile
	AttachShippingProfile(ctx context.Context, profileID string, variantIDs []int64) error

	ListProductImages(ctx context.Context, productID int64) ([]RemoteImage, error)
	DeleteProductImage(ctx context.Context, productID, imageID int64) error
	CreateProductImage(ctx context.Context, productID int64, image ImageInput) (*RemoteImage, error)

	// FetchFullProduct re-reads a product with all server-assigned ids
	FetchFullProduct(ctx context.Context, productID int64) (*RemoteProduct, error)
}
