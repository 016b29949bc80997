package importapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/catalog"
	sheetimport "github.com/catalogsync/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultWeightUnit = "kg"

var weightUnits = map[string]string{
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg",
	"g": "g", "gr": "g", "gram": "g", "grams": "g",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
}

// Normalizer turns one handle's rows into a NormalizedProduct
type Normalizer struct {
	categories CategoryResolver
	logger     *zap.Logger
}

// NewNormalizer creates a normalizer. categories may be nil, in which case
// the Categories column is ignored.
func NewNormalizer(categories CategoryResolver, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{categories: categories, logger: logger}
}

type optionColumn struct {
	index int
	name  string
}

// Normalize builds the canonical product for group. Row-level defects are
// logged and skipped; product-level defects return *bulk.NormalizationError.
func (n *Normalizer) Normalize(ctx context.Context, ownerID uuid.UUID, group sheetimport.Group) (*catalog.NormalizedProduct, error) {
	if len(group.Rows) == 0 {
		return nil, &bulk.NormalizationError{Handle: group.Key, Reason: "no rows"}
	}

	handle := NormalizeHandle(group.Key)
	if handle == "" {
		return nil, &bulk.NormalizationError{Handle: group.Key, Reason: "Product URL does not yield a handle"}
	}

	first := group.Rows[0]
	product := &catalog.NormalizedProduct{
		Handle:             handle,
		Title:              firstValue(group.Rows, ColTitle),
		Description:        firstValue(group.Rows, ColDescription),
		Vendor:             firstValue(group.Rows, ColVendor),
		ProductType:        firstValue(group.Rows, ColProductType),
		Status:             catalog.ParseStatus(firstValue(group.Rows, ColStatus)),
		ShippingProfileRef: first.Get(ColShippingProfileID),
	}
	if product.Title == "" {
		return nil, &bulk.NormalizationError{Handle: handle, Reason: "missing Title"}
	}

	trackQuantity := parseBool(first.Get(ColTrackQuantity))
	columns := optionColumns(first)
	if len(columns) == 0 {
		product.Options = []catalog.Option{{
			Name:   catalog.DefaultOptionName,
			Values: []string{catalog.DefaultOptionValue},
		}}
	} else {
		product.Options = make([]catalog.Option, len(columns))
		for i, col := range columns {
			product.Options[i].Name = col.name
			for _, row := range group.Rows {
				product.Options[i].AddValue(row.Get(colOptionValue(col.index)))
			}
		}
	}

	for _, row := range group.Rows {
		key, hasKey, err := n.addRowVariant(product, columns, row, trackQuantity)
		if err != nil {
			return nil, err
		}
		addRowImages(product, row, key, hasKey)
	}
	if len(product.Variants) == 0 {
		return nil, &bulk.NormalizationError{Handle: handle, Reason: "no row has a value for the first option"}
	}

	product.Metafields = collectMetafields(group.Rows)

	if n.categories != nil {
		if paths := splitCategories(firstValue(group.Rows, ColCategories)); len(paths) > 0 {
			tags, err := n.categories.Resolve(ctx, ownerID, paths)
			if err != nil {
				return nil, err
			}
			product.CategoryRefs = tags
		}
	}

	return product, nil
}

// addRowVariant builds the row's variant. It returns the row's variant key
// and whether the row maps to a variant at all.
func (n *Normalizer) addRowVariant(product *catalog.NormalizedProduct, columns []optionColumn, row *sheetimport.Row, trackQuantity bool) (catalog.VariantKey, bool, error) {
	values := [catalog.MaxOptions]string{}
	if len(columns) == 0 {
		values[0] = catalog.DefaultOptionValue
	} else {
		for i, col := range columns {
			values[i] = row.Get(colOptionValue(col.index))
		}
		if values[0] == "" {
			n.logger.Warn("row has no value for first option, skipping",
				zap.String("handle", product.Handle),
				zap.Int("row", row.LineNumber))
			return "", false, nil
		}
	}

	key := catalog.NewVariantKey(values[0], values[1], values[2])
	if product.HasVariant(key) {
		if len(columns) > 0 {
			n.logger.Warn("duplicate variant options, keeping first occurrence",
				zap.String("handle", product.Handle),
				zap.Int("row", row.LineNumber))
		}
		return key, true, nil
	}

	variant, err := buildVariant(product, row, values, trackQuantity)
	if err != nil {
		return "", false, err
	}
	product.AddVariant(variant)
	return key, true, nil
}

func buildVariant(product *catalog.NormalizedProduct, row *sheetimport.Row, values [catalog.MaxOptions]string, trackQuantity bool) (catalog.Variant, error) {
	v := catalog.Variant{
		SKU:           row.Get(ColSKU),
		Barcode:       row.Get(ColBarcode),
		TrackQuantity: trackQuantity,
		Option1:       values[0],
		Option2:       values[1],
		Option3:       values[2],
	}

	price, err := parseDecimal(row.Get(ColPrice))
	if err != nil {
		return v, rowError(product.Handle, row, ColPrice, err)
	}
	v.Price = price

	if raw := row.Get(ColCompareAtPrice); raw != "" {
		compareAt, err := parseDecimal(raw)
		if err != nil {
			return v, rowError(product.Handle, row, ColCompareAtPrice, err)
		}
		v.CompareAtPrice = &compareAt
	}

	if raw := row.Get(ColInventoryQty); raw != "" {
		qty, err := parseDecimal(raw)
		if err != nil {
			return v, rowError(product.Handle, row, ColInventoryQty, err)
		}
		v.Quantity = int(qty.IntPart())
	}

	if product.IsPhysical() {
		weight, err := parseDecimal(row.Get(ColWeight))
		if err != nil {
			return v, rowError(product.Handle, row, ColWeight, err)
		}
		v.Weight = weight
		v.WeightUnit = parseWeightUnit(row.Get(ColWeightUnit))
		v.RequiresShipping = true
		v.Taxable = true
	}

	return v, nil
}

func addRowImages(product *catalog.NormalizedProduct, row *sheetimport.Row, key catalog.VariantKey, hasKey bool) {
	urls := make([]string, 0, catalog.MaxVariantImages+1)
	urls = append(urls, row.Get(ColFeaturedImage))
	for i := 1; i <= catalog.MaxVariantImages; i++ {
		urls = append(urls, row.Get(colVariantImage(i)))
	}
	urls = append(urls, splitURLList(row.Get(ColVariantGroupedImages))...)

	for _, u := range urls {
		if hasKey {
			product.Images.Associate(u, key)
		} else {
			product.Images.Ensure(u)
		}
	}
}

func collectMetafields(rows []*sheetimport.Row) []catalog.Metafield {
	fields := make([]catalog.Metafield, 0, catalog.MaxMetafields)
	for i := 1; i <= catalog.MaxMetafields; i++ {
		label := firstValue(rows, colCustomLabel(i))
		value := firstValue(rows, colCustomValue(i))
		key := metafieldKey(label)
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, catalog.Metafield{Key: key, Label: label, Value: value})
	}
	return fields
}

// optionColumns returns the option columns named on the first row
func optionColumns(first *sheetimport.Row) []optionColumn {
	columns := make([]optionColumn, 0, catalog.MaxOptions)
	for i := 1; i <= catalog.MaxOptions; i++ {
		if name := first.Get(colOptionName(i)); name != "" {
			columns = append(columns, optionColumn{index: i, name: name})
		}
	}
	return columns
}

// firstValue returns the first non-blank value of column in rows
func firstValue(rows []*sheetimport.Row, column string) string {
	for _, row := range rows {
		if v := row.Get(column); v != "" {
			return v
		}
	}
	return ""
}

func rowError(handle string, row *sheetimport.Row, column string, err error) error {
	return &bulk.NormalizationError{
		Handle: handle,
		Reason: fmt.Sprintf("row %d, column %q: %v", row.LineNumber, column, err),
	}
}

// parseDecimal accepts "", "19.99", "$1,299.00"; blank is zero
func parseDecimal(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		if r == ',' || r == '$' || r == '€' || r == '£' || r == ' ' {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative number %q", raw)
	}
	return d, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "x":
		return true
	}
	return false
}

func parseWeightUnit(raw string) string {
	if unit, ok := weightUnits[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return unit
	}
	return defaultWeightUnit
}

func splitURLList(cell string) []string {
	return strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '\n'
	})
}
