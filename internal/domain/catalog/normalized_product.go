package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxOptions is the platform limit on options per product
	MaxOptions = 3
	// MaxMetafields is the number of Custom Label/Value column pairs
	MaxMetafields = 4
	// MaxVariantImages is the number of Variant Image N columns
	MaxVariantImages = 5

	DefaultOptionName  = "Title"
	DefaultOptionValue = "Default Title"
)

// Status is the requested publication state of a product
type Status string

const (
	StatusActive Status = "active"
	StatusDraft  Status = "draft"
)

// ParseStatus maps a spreadsheet Status cell; anything but "active" is draft
func ParseStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusActive)) {
		return StatusActive
	}
	return StatusDraft
}

// Option is a product option with its ordered, distinct values
type Option struct {
	Name   string
	Values []string
}

// AddValue appends v unless it is blank or already present
func (o *Option) AddValue(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	for _, existing := range o.Values {
		if existing == v {
			return
		}
	}
	o.Values = append(o.Values, v)
}

// VariantKey identifies a variant within one product by its option values
type VariantKey string

// NewVariantKey builds the key for an option tuple
func NewVariantKey(option1, option2, option3 string) VariantKey {
	return VariantKey(option1 + "\x1f" + option2 + "\x1f" + option3)
}

// Variant is one purchasable option combination
type Variant struct {
	SKU              string
	Barcode          string
	Price            decimal.Decimal
	CompareAtPrice   *decimal.Decimal
	TrackQuantity    bool
	Quantity         int
	Weight           decimal.Decimal
	WeightUnit       string
	RequiresShipping bool
	Taxable          bool
	Option1          string
	Option2          string
	Option3          string
}

// Key returns the variant's option tuple key
func (v Variant) Key() VariantKey {
	return NewVariantKey(v.Option1, v.Option2, v.Option3)
}

// Metafield is a custom attribute from a Custom Label/Value column pair
type Metafield struct {
	Key   string
	Label string
	Value string
}

// ImageMap maps each distinct image URL to the variants that reference it,
// keeping first-seen URL order.
type ImageMap struct {
	urls     []string
	variants map[string][]VariantKey
}

// Ensure adds url with no associated variants if it is not present
func (m *ImageMap) Ensure(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	if m.variants == nil {
		m.variants = make(map[string][]VariantKey)
	}
	if _, ok := m.variants[url]; !ok {
		m.urls = append(m.urls, url)
		m.variants[url] = nil
	}
}

// Associate adds url if needed and links it to key once
func (m *ImageMap) Associate(url string, key VariantKey) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	m.Ensure(url)
	for _, existing := range m.variants[url] {
		if existing == key {
			return
		}
	}
	m.variants[url] = append(m.variants[url], key)
}

// URLs returns the distinct URLs in first-seen order
func (m *ImageMap) URLs() []string {
	out := make([]string, len(m.urls))
	copy(out, m.urls)
	return out
}

// VariantsFor returns the variant keys linked to url
func (m *ImageMap) VariantsFor(url string) []VariantKey {
	return m.variants[url]
}

// Len returns the number of distinct URLs
func (m *ImageMap) Len() int {
	return len(m.urls)
}

// NormalizedProduct is the canonical form of one handle's rows
type NormalizedProduct struct {
	Handle             string
	Title              string
	Description        string
	Vendor             string
	ProductType        string
	Status             Status
	Options            []Option
	Variants           []Variant
	Metafields         []Metafield
	CategoryRefs       []string
	Images             ImageMap
	ShippingProfileRef string
}

// HasVariant reports whether a variant with key already exists
func (p *NormalizedProduct) HasVariant(key VariantKey) bool {
	for _, v := range p.Variants {
		if v.Key() == key {
			return true
		}
	}
	return false
}

// AddVariant appends v unless its option tuple is taken; first occurrence wins
func (p *NormalizedProduct) AddVariant(v Variant) bool {
	if p.HasVariant(v.Key()) {
		return false
	}
	p.Variants = append(p.Variants, v)
	return true
}

// IsPhysical is true when a shipping profile was requested
func (p *NormalizedProduct) IsPhysical() bool {
	return p.ShippingProfileRef != ""
}

// TracksQuantity reports whether inventory is tracked for the product
func (p *NormalizedProduct) TracksQuantity() bool {
	return len(p.Variants) > 0 && p.Variants[0].TrackQuantity
}

// PublishStatus is active only when active was requested and at least one
// image exists; imageless products stay draft.
func (p *NormalizedProduct) PublishStatus() Status {
	if p.Status == StatusActive && p.Images.Len() > 0 {
		return StatusActive
	}
	return StatusDraft
}
