package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	ownerID := uuid.New()

	t.Run("creates root category", func(t *testing.T) {
		c, err := NewCategory(ownerID, " Apparel ", "apparel")
		require.NoError(t, err)
		assert.Equal(t, ownerID, c.OwnerID)
		assert.Equal(t, "Apparel", c.Name)
		assert.Equal(t, "apparel", c.Tag)
		assert.True(t, c.IsRoot())
		assert.Equal(t, c.ID.String(), c.Path)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewCategory(ownerID, "", "tag")
		assert.Error(t, err)
	})

	t.Run("rejects separator in name", func(t *testing.T) {
		_, err := NewCategory(ownerID, "A > B", "tag")
		assert.Error(t, err)
	})

	t.Run("rejects empty tag", func(t *testing.T) {
		_, err := NewCategory(ownerID, "Apparel", " ")
		assert.Error(t, err)
	})
}

func TestNewChildCategory(t *testing.T) {
	root, err := NewCategory(uuid.New(), "Apparel", "apparel")
	require.NoError(t, err)

	child, err := NewChildCategory("Shirts", "apparel-shirts", root)
	require.NoError(t, err)
	assert.Equal(t, root.OwnerID, child.OwnerID)
	assert.Equal(t, &root.ID, child.ParentID)
	assert.Equal(t, 1, child.Level)
	assert.Equal(t, root.Path+"/"+child.ID.String(), child.Path)

	_, err = NewChildCategory("Orphan", "orphan", nil)
	assert.Error(t, err)

	deep := root
	for i := 1; i < MaxCategoryDepth; i++ {
		deep, err = NewChildCategory("Level", "level", deep)
		require.NoError(t, err)
	}
	_, err = NewChildCategory("TooDeep", "too-deep", deep)
	assert.Error(t, err)
}

func TestSplitCategoryPath(t *testing.T) {
	assert.Equal(t, []string{"Apparel", "Shirts"}, SplitCategoryPath("Apparel > Shirts"))
	assert.Equal(t, []string{"Apparel"}, SplitCategoryPath(" Apparel >  "))
	assert.Empty(t, SplitCategoryPath(""))
}

func TestNewCatalogRecordAndShippingProfile(t *testing.T) {
	owner := uuid.New()

	rec, err := NewCatalogRecord(owner, " red-shirt ", 42)
	require.NoError(t, err)
	assert.Equal(t, "red-shirt", rec.Handle)
	assert.Equal(t, int64(42), rec.RemoteProductID)

	_, err = NewCatalogRecord(owner, "red-shirt", 0)
	assert.Error(t, err)
	_, err = NewCatalogRecord(uuid.Nil, "red-shirt", 1)
	assert.Error(t, err)

	profile, err := NewShippingProfile(owner, "STD", "Standard", "gid://shopify/DeliveryProfile/1")
	require.NoError(t, err)
	assert.Equal(t, "STD", profile.ShortID)

	_, err = NewShippingProfile(owner, "", "Standard", "gid://shopify/DeliveryProfile/1")
	assert.Error(t, err)
}
