package importapp

import (
	"context"
	"errors"
	"testing"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/catalog"
	sheetimport "github.com/catalogsync/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubCategoryResolver struct {
	tags  []string
	err   error
	paths []string
}

func (s *stubCategoryResolver) Resolve(_ context.Context, _ uuid.UUID, paths []string) ([]string, error) {
	s.paths = paths
	return s.tags, s.err
}

func sheetRow(line int, data map[string]string) *sheetimport.Row {
	return &sheetimport.Row{LineNumber: line, Data: data}
}

func group(key string, rows ...*sheetimport.Row) sheetimport.Group {
	return sheetimport.Group{Key: key, Rows: rows}
}

func TestNormalizer_RedShirtScenario(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	g := group("red-shirt",
		sheetRow(2, map[string]string{
			ColProductURL: "red-shirt", ColTitle: "Red Shirt", ColStatus: "active",
			"Option1 Name": "Color", "Option1 Value": "Red",
			ColFeaturedImage: "img.png", ColPrice: "19.99",
		}),
		sheetRow(3, map[string]string{
			ColProductURL: "red-shirt", "Option1 Value": "Blue",
			ColFeaturedImage: "img.png", ColPrice: "21.00",
		}),
	)

	p, err := n.Normalize(context.Background(), uuid.New(), g)
	require.NoError(t, err)

	assert.Equal(t, "red-shirt", p.Handle)
	assert.Equal(t, "Red Shirt", p.Title)
	assert.Equal(t, catalog.StatusActive, p.Status)
	require.Len(t, p.Options, 1)
	assert.Equal(t, catalog.Option{Name: "Color", Values: []string{"Red", "Blue"}}, p.Options[0])
	require.Len(t, p.Variants, 2)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Variants[0].Price))

	assert.Equal(t, 1, p.Images.Len())
	assert.Equal(t, []string{"img.png"}, p.Images.URLs())
	assert.Equal(t, []catalog.VariantKey{
		catalog.NewVariantKey("Red", "", ""),
		catalog.NewVariantKey("Blue", "", ""),
	}, p.Images.VariantsFor("img.png"))
	assert.Equal(t, catalog.StatusActive, p.PublishStatus())
}

func TestNormalizer_DefaultTitleVariant(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	g := group("mug",
		sheetRow(2, map[string]string{ColTitle: "Mug", ColSKU: "MUG-1", ColPrice: "8"}),
		sheetRow(3, map[string]string{ColSKU: "MUG-2", ColPrice: "9"}),
	)

	p, err := n.Normalize(context.Background(), uuid.New(), g)
	require.NoError(t, err)

	require.Len(t, p.Options, 1)
	assert.Equal(t, "Title", p.Options[0].Name)
	assert.Equal(t, []string{"Default Title"}, p.Options[0].Values)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "MUG-1", p.Variants[0].SKU)
	assert.Equal(t, "Default Title", p.Variants[0].Option1)
	assert.Equal(t, catalog.StatusDraft, p.Status)
}

func TestNormalizer_SkipsRowsAndDuplicates(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	g := group("tee",
		sheetRow(2, map[string]string{
			ColTitle: "Tee", "Option1 Name": "Color", "Option2 Name": "Size",
			"Option1 Value": "Red", "Option2 Value": "S", ColSKU: "A",
			"Variant Image 1": "red.png",
		}),
		sheetRow(3, map[string]string{"Option1 Value": "", "Option2 Value": "M", ColSKU: "B", "Variant Image 1": "orphan.png"}),
		sheetRow(4, map[string]string{"Option1 Value": "Red", "Option2 Value": "S", ColSKU: "C", "Variant Image 1": "red-2.png"}),
		sheetRow(5, map[string]string{"Option1 Value": "Blue", "Option2 Value": "S", ColSKU: "D", "Variant Image 1": "red.png"}),
	)

	p, err := n.Normalize(context.Background(), uuid.New(), g)
	require.NoError(t, err)

	require.Len(t, p.Variants, 2)
	assert.Equal(t, "A", p.Variants[0].SKU, "first occurrence wins")
	assert.Equal(t, "D", p.Variants[1].SKU)

	seen := map[catalog.VariantKey]bool{}
	for _, v := range p.Variants {
		assert.False(t, seen[v.Key()], "variant option tuples are unique")
		seen[v.Key()] = true
	}

	assert.Equal(t, []string{"Red", "Blue"}, p.Options[0].Values)
	assert.Equal(t, []string{"S", "M"}, p.Options[1].Values)

	redKey := catalog.NewVariantKey("Red", "S", "")
	blueKey := catalog.NewVariantKey("Blue", "S", "")
	assert.Equal(t, []string{"red.png", "orphan.png", "red-2.png"}, p.Images.URLs())
	assert.Equal(t, []catalog.VariantKey{redKey, blueKey}, p.Images.VariantsFor("red.png"))
	assert.Empty(t, p.Images.VariantsFor("orphan.png"))
	assert.Equal(t, []catalog.VariantKey{redKey}, p.Images.VariantsFor("red-2.png"))
}

func TestNormalizer_ImageDeduplication(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	g := group("hat",
		sheetRow(2, map[string]string{
			ColTitle: "Hat", "Option1 Name": "Size", "Option1 Value": "S",
			ColFeaturedImage: "a.png", "Variant Image 1": "a.png", "Variant Image 2": "b.png",
			ColVariantGroupedImages: "c.png; b.png",
		}),
		sheetRow(3, map[string]string{
			"Option1 Value": "M", ColFeaturedImage: "a.png", "Variant Image 5": "c.png",
		}),
	)

	p, err := n.Normalize(context.Background(), uuid.New(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, p.Images.URLs())
	assert.Len(t, p.Images.VariantsFor("c.png"), 2)
}

func TestNormalizer_PhysicalFields(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	t.Run("with shipping profile", func(t *testing.T) {
		g := group("box", sheetRow(2, map[string]string{
			ColTitle: "Box", ColShippingProfileID: "STD", ColWeight: "1.5", ColWeightUnit: "LBS",
			ColTrackQuantity: "Yes", ColInventoryQty: "12",
		}))
		p, err := n.Normalize(context.Background(), uuid.New(), g)
		require.NoError(t, err)
		v := p.Variants[0]
		assert.True(t, v.RequiresShipping)
		assert.True(t, v.Taxable)
		assert.Equal(t, "lb", v.WeightUnit)
		assert.True(t, decimal.RequireFromString("1.5").Equal(v.Weight))
		assert.True(t, v.TrackQuantity)
		assert.Equal(t, 12, v.Quantity)
		assert.Equal(t, "STD", p.ShippingProfileRef)
	})

	t.Run("without shipping profile", func(t *testing.T) {
		g := group("ebook", sheetRow(2, map[string]string{
			ColTitle: "Ebook", ColWeight: "1.5", ColWeightUnit: "kg",
		}))
		p, err := n.Normalize(context.Background(), uuid.New(), g)
		require.NoError(t, err)
		v := p.Variants[0]
		assert.False(t, v.RequiresShipping)
		assert.False(t, v.Taxable)
		assert.True(t, v.Weight.IsZero())
		assert.Empty(t, v.WeightUnit)
		assert.False(t, p.TracksQuantity())
	})

	t.Run("track quantity read from first row only", func(t *testing.T) {
		g := group("pen",
			sheetRow(2, map[string]string{ColTitle: "Pen", "Option1 Name": "Ink", "Option1 Value": "Blue"}),
			sheetRow(3, map[string]string{"Option1 Value": "Black", ColTrackQuantity: "true"}),
		)
		p, err := n.Normalize(context.Background(), uuid.New(), g)
		require.NoError(t, err)
		for _, v := range p.Variants {
			assert.False(t, v.TrackQuantity)
		}
	})
}

func TestNormalizer_Metafields(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	g := group("sock", sheetRow(2, map[string]string{
		ColTitle:         "Sock",
		"Custom Label 1": "Care Instructions", "Custom Value 1": "Cold wash",
		"Custom Label 2": "Material", "Custom Value 2": "",
		"Custom Label 3": "", "Custom Value 3": "orphan",
		"Custom Label 4": "Fit", "Custom Value 4": "Regular",
	}))

	p, err := n.Normalize(context.Background(), uuid.New(), g)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Metafield{
		{Key: "care_instructions", Label: "Care Instructions", Value: "Cold wash"},
		{Key: "fit", Label: "Fit", Value: "Regular"},
	}, p.Metafields)
}

func TestNormalizer_Categories(t *testing.T) {
	resolver := &stubCategoryResolver{tags: []string{"apparel", "apparel-shirts"}}
	n := NewNormalizer(resolver, zaptest.NewLogger(t))

	g := group("tee", sheetRow(2, map[string]string{ColTitle: "Tee", ColCategories: "Apparel > Shirts, Sale"}))
	p, err := n.Normalize(context.Background(), uuid.New(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apparel > Shirts", "Sale"}, resolver.paths)
	assert.Equal(t, []string{"apparel", "apparel-shirts"}, p.CategoryRefs)

	resolver.err = errors.New("db down")
	_, err = n.Normalize(context.Background(), uuid.New(), g)
	assert.Error(t, err)
}

func TestNormalizer_Errors(t *testing.T) {
	n := NewNormalizer(nil, zaptest.NewLogger(t))

	tests := []struct {
		name  string
		group sheetimport.Group
	}{
		{"missing title", group("x", sheetRow(2, map[string]string{ColSKU: "A"}))},
		{"unusable handle", group("???", sheetRow(2, map[string]string{ColTitle: "X"}))},
		{"invalid price", group("x", sheetRow(2, map[string]string{ColTitle: "X", ColPrice: "abc"}))},
		{"no first option values", group("x", sheetRow(2, map[string]string{ColTitle: "X", "Option1 Name": "Size"}))},
		{"empty group", group("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), uuid.New(), tt.group)
			var normErr *bulk.NormalizationError
			assert.True(t, errors.As(err, &normErr), "got %v", err)
		})
	}
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"red-shirt", "red-shirt"},
		{"  Red Shirt  ", "red-shirt"},
		{"https://shop.example.com/products/Crème-Brûlée?variant=1", "creme-brulee"},
		{"/products/blue_hat/", "blue-hat"},
		{"Café  Noir!!", "cafe-noir"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHandle(tt.in))
		})
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := parseDecimal("$1,299.50")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1299.50").Equal(d))

	d, err = parseDecimal("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDecimal("12abc")
	assert.Error(t, err)
	_, err = parseDecimal("-1")
	assert.Error(t, err)
}
