package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Admin API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorBodySize bounds the response body kept on a RemoteRequestError
const maxErrorBodySize = 2048

const (
	metafieldTextType     = "single_line_text_field"
	trackedInventory      = "shopify"
	deliveryProfileGIDFmt = "gid://shopify/DeliveryProfile/%s"
	variantGIDFmt         = "gid://shopify/ProductVariant/%d"
)

const deliveryProfileUpdateMutation = `mutation deliveryProfileUpdate($id: ID!, $profile: DeliveryProfileInput!) {
  deliveryProfileUpdate(id: $id, profile: $profile) {
    profile { id }
    userErrors { field message }
  }
}`

// Ensure ShopifyAdapter implements RemoteCatalog
var _ integration.RemoteCatalog = (*ShopifyAdapter)(nil)

// ShopifyAdapter implements RemoteCatalog against the Shopify Admin API.
// Calls are spaced by a fixed minimum interval and never retried.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ShopifyOption is a functional option for configuring ShopifyAdapter
type ShopifyOption func(*ShopifyAdapter)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) ShopifyOption {
	return func(a *ShopifyAdapter) {
		a.httpClient = client
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) ShopifyOption {
	return func(a *ShopifyAdapter) {
		a.logger = logger
	}
}

// NewShopifyAdapter creates a new adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, opts ...ShopifyOption) (*ShopifyAdapter, error) {
	if config == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if config.MinRequestInterval > 0 {
		limit = rate.Every(config.MinRequestInterval)
	}

	a := &ShopifyAdapter{
		config:  config,
		baseURL: config.APIBaseURL(),
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// FindProductByHandle returns the product with handle only when it carries the
// owner tag. A product another owner imported under the same handle is ignored.
func (a *ShopifyAdapter) FindProductByHandle(ctx context.Context, ownerID uuid.UUID, handle string) (*integration.RemoteProduct, error) {
	query := url.Values{}
	query.Set("handle", handle)

	var resp productsEnvelope
	if err := a.doJSON(ctx, http.MethodGet, "/products.json", query, nil, &resp); err != nil {
		return nil, err
	}
	for _, p := range resp.Products {
		if p.Handle != handle {
			continue
		}
		product := toRemoteProduct(p)
		if !product.OwnedBy(ownerID) {
			a.logger.Debug("Ignoring product owned by another importer",
				zap.String("handle", handle),
				zap.Int64("product_id", product.ID),
			)
			return nil, nil
		}
		return &product, nil
	}
	return nil, nil
}

// UpsertProduct creates the product when productID is zero, otherwise replaces it
func (a *ShopifyAdapter) UpsertProduct(ctx context.Context, productID int64, input integration.ProductInput) (*integration.RemoteProduct, error) {
	body := productEnvelope{Product: fromProductInput(input)}

	method, path := http.MethodPost, "/products.json"
	if productID != 0 {
		body.Product.ID = productID
		method, path = http.MethodPut, productPath(productID)
	}

	var resp productEnvelope
	if err := a.doJSON(ctx, method, path, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Product.ID == 0 {
		return nil, fmt.Errorf("%w: product id missing from %s %s", integration.ErrPlatformInvalidResponse, method, path)
	}
	product := toRemoteProduct(resp.Product)
	return &product, nil
}

// FetchFullProduct re-reads a product with variants and images
func (a *ShopifyAdapter) FetchFullProduct(ctx context.Context, productID int64) (*integration.RemoteProduct, error) {
	var resp productEnvelope
	if err := a.doJSON(ctx, http.MethodGet, productPath(productID), nil, nil, &resp); err != nil {
		return nil, err
	}
	product := toRemoteProduct(resp.Product)
	return &product, nil
}

// CreateMetafield attaches a custom attribute to a product
func (a *ShopifyAdapter) CreateMetafield(ctx context.Context, productID int64, m integration.MetafieldInput) error {
	if m.Type == "" {
		m.Type = metafieldTextType
	}
	body := metafieldEnvelope{Metafield: shopifyMetafield{
		Namespace: m.Namespace,
		Key:       m.Key,
		Value:     m.Value,
		Type:      m.Type,
	}}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	return a.doJSON(ctx, http.MethodPost, path, nil, body, nil)
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// ListInventoryLevels returns the item's stock per location
func (a *ShopifyAdapter) ListInventoryLevels(ctx context.Context, inventoryItemID int64) ([]integration.InventoryLevel, error) {
	query := url.Values{}
	query.Set("inventory_item_ids", strconv.FormatInt(inventoryItemID, 10))

	var resp inventoryLevelsEnvelope
	if err := a.doJSON(ctx, http.MethodGet, "/inventory_levels.json", query, nil, &resp); err != nil {
		return nil, err
	}

	levels := make([]integration.InventoryLevel, 0, len(resp.InventoryLevels))
	for _, l := range resp.InventoryLevels {
		level := integration.InventoryLevel{InventoryItemID: l.InventoryItemID, LocationID: l.LocationID}
		if l.Available != nil {
			level.Available = *l.Available
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// SetInventoryLevel sets the available quantity at a location
func (a *ShopifyAdapter) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error {
	body := inventorySetRequest{
		LocationID:      locationID,
		InventoryItemID: inventoryItemID,
		Available:       available,
	}
	return a.doJSON(ctx, http.MethodPost, "/inventory_levels/set.json", nil, body, nil)
}

// ---------------------------------------------------------------------------
// Shipping
// ---------------------------------------------------------------------------

// AttachShippingProfile associates variants with a delivery profile.
// profileID may be numeric or a full gid.
func (a *ShopifyAdapter) AttachShippingProfile(ctx context.Context, profileID string, variantIDs []int64) error {
	if len(variantIDs) == 0 {
		return nil
	}
	if !strings.HasPrefix(profileID, "gid://") {
		profileID = fmt.Sprintf(deliveryProfileGIDFmt, profileID)
	}
	variants := make([]string, 0, len(variantIDs))
	for _, id := range variantIDs {
		variants = append(variants, fmt.Sprintf(variantGIDFmt, id))
	}

	req := graphQLRequest{
		Query: deliveryProfileUpdateMutation,
		Variables: map[string]any{
			"id":      profileID,
			"profile": map[string]any{"variantsToAssociate": variants},
		},
	}

	var resp deliveryProfileUpdateResponse
	if err := a.doJSON(ctx, http.MethodPost, "/graphql.json", nil, req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("%w: deliveryProfileUpdate: %s", integration.ErrPlatformRejected, resp.Errors[0].Message)
	}
	if userErrors := resp.Data.DeliveryProfileUpdate.UserErrors; len(userErrors) > 0 {
		msgs := make([]string, 0, len(userErrors))
		for _, ue := range userErrors {
			msgs = append(msgs, ue.Message)
		}
		return fmt.Errorf("%w: deliveryProfileUpdate: %s", integration.ErrPlatformRejected, strings.Join(msgs, "; "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// ListProductImages returns the images attached to a product
func (a *ShopifyAdapter) ListProductImages(ctx context.Context, productID int64) ([]integration.RemoteImage, error) {
	var resp imagesEnvelope
	path := fmt.Sprintf("/products/%d/images.json", productID)
	if err := a.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	images := make([]integration.RemoteImage, 0, len(resp.Images))
	for _, img := range resp.Images {
		images = append(images, toRemoteImage(img))
	}
	return images, nil
}

// DeleteProductImage removes one image from a product
func (a *ShopifyAdapter) DeleteProductImage(ctx context.Context, productID, imageID int64) error {
	path := fmt.Sprintf("/products/%d/images/%d.json", productID, imageID)
	return a.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

// CreateProductImage attaches an image by source URL
func (a *ShopifyAdapter) CreateProductImage(ctx context.Context, productID int64, image integration.ImageInput) (*integration.RemoteImage, error) {
	variantIDs := image.VariantIDs
	if variantIDs == nil {
		variantIDs = []int64{}
	}
	body := imageEnvelope{Image: shopifyImage{Src: image.Src, Alt: image.Alt, VariantIDs: variantIDs}}

	var resp imageEnvelope
	path := fmt.Sprintf("/products/%d/images.json", productID)
	if err := a.doJSON(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, err
	}
	created := toRemoteImage(resp.Image)
	return &created, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// doJSON encodes payload, performs the call and decodes into out when non-nil
func (a *ShopifyAdapter) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	body, err := a.doRequest(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", integration.ErrPlatformInvalidResponse, method, path, err)
	}
	return nil
}

func (a *ShopifyAdapter) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("shopify: rate limiter: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("shopify: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	a.logger.Debug("shopify request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &integration.RemoteRequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBodySize),
		}
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

func productPath(productID int64) string {
	return fmt.Sprintf("/products/%d.json", productID)
}

func fromProductInput(input integration.ProductInput) shopifyProduct {
	p := shopifyProduct{
		Handle:      input.Handle,
		Title:       input.Title,
		BodyHTML:    input.BodyHTML,
		Vendor:      input.Vendor,
		ProductType: input.ProductType,
		Status:      string(input.Status),
		Tags:        strings.Join(input.Tags, ", "),
		Options:     make([]shopifyOption, 0, len(input.Options)),
		Variants:    make([]shopifyVariant, 0, len(input.Variants)),
	}
	for i, o := range input.Options {
		p.Options = append(p.Options, shopifyOption{Name: o.Name, Position: i + 1, Values: o.Values})
	}
	for _, v := range input.Variants {
		sv := shopifyVariant{
			ID:               v.ID,
			SKU:              v.SKU,
			Barcode:          v.Barcode,
			Price:            v.Price.StringFixed(2),
			Option1:          v.Option1,
			Option2:          v.Option2,
			Option3:          v.Option3,
			Weight:           v.Weight.InexactFloat64(),
			WeightUnit:       v.WeightUnit,
			RequiresShipping: v.RequiresShipping,
			Taxable:          v.Taxable,
		}
		if v.CompareAtPrice != nil {
			s := v.CompareAtPrice.StringFixed(2)
			sv.CompareAtPrice = &s
		}
		if v.TrackQuantity {
			tracked := trackedInventory
			sv.InventoryManagement = &tracked
		}
		p.Variants = append(p.Variants, sv)
	}
	return p
}

func toRemoteProduct(p shopifyProduct) integration.RemoteProduct {
	product := integration.RemoteProduct{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		BodyHTML:    p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Status:      integration.ProductStatus(p.Status),
		Tags:        p.Tags,
		Options:     make([]integration.RemoteOption, 0, len(p.Options)),
		Variants:    make([]integration.RemoteVariant, 0, len(p.Variants)),
		Images:      make([]integration.RemoteImage, 0, len(p.Images)),
	}
	for _, o := range p.Options {
		product.Options = append(product.Options, integration.RemoteOption{
			ID: o.ID, Name: o.Name, Position: o.Position, Values: o.Values,
		})
	}
	for _, v := range p.Variants {
		rv := integration.RemoteVariant{
			ID:                v.ID,
			InventoryItemID:   v.InventoryItemID,
			SKU:               v.SKU,
			Barcode:           v.Barcode,
			Price:             parseMoney(v.Price),
			Option1:           v.Option1,
			Option2:           v.Option2,
			Option3:           v.Option3,
			InventoryQuantity: v.InventoryQuantity,
			Weight:            decimal.NewFromFloat(v.Weight),
			WeightUnit:        v.WeightUnit,
			RequiresShipping:  v.RequiresShipping,
			Taxable:           v.Taxable,
		}
		if v.CompareAtPrice != nil && *v.CompareAtPrice != "" {
			compareAt := parseMoney(*v.CompareAtPrice)
			rv.CompareAtPrice = &compareAt
		}
		if v.InventoryManagement != nil {
			rv.InventoryManagement = *v.InventoryManagement
		}
		product.Variants = append(product.Variants, rv)
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, toRemoteImage(img))
	}
	return product
}

func toRemoteImage(img shopifyImage) integration.RemoteImage {
	return integration.RemoteImage{
		ID:         img.ID,
		Src:        img.Src,
		Alt:        img.Alt,
		Position:   img.Position,
		VariantIDs: img.VariantIDs,
	}
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
