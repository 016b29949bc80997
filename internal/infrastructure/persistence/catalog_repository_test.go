package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCatalogRecordRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCatalogRecordRepository(newSQLiteDB(t))
	ownerID := uuid.New()

	record, err := catalog.NewCatalogRecord(ownerID, "shirt", 1001)
	require.NoError(t, err)
	record.Title = "Shirt"
	record.Status = catalog.StatusActive
	record.VariantIDs = []int64{11, 12}
	record.SyncedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, record))

	t.Run("find by handle", func(t *testing.T) {
		found, err := repo.FindByHandle(ctx, ownerID, "shirt")
		require.NoError(t, err)
		assert.Equal(t, int64(1001), found.RemoteProductID)
		assert.Equal(t, []int64{11, 12}, found.VariantIDs)
		assert.Equal(t, "{}", found.Snapshot)
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		_, err := repo.FindByHandle(ctx, uuid.New(), "shirt")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save upserts by remote product id", func(t *testing.T) {
		again, err := catalog.NewCatalogRecord(ownerID, "shirt", 1001)
		require.NoError(t, err)
		again.Title = "Shirt v2"
		again.Status = catalog.StatusActive
		again.VariantIDs = []int64{11, 12, 13}
		again.SyncedAt = record.SyncedAt.Add(time.Hour)
		require.NoError(t, repo.Save(ctx, again))

		found, err := repo.FindByHandle(ctx, ownerID, "shirt")
		require.NoError(t, err)
		assert.Equal(t, "Shirt v2", found.Title)
		assert.Equal(t, []int64{11, 12, 13}, found.VariantIDs)

		var count int64
		require.NoError(t, repo.db.Table("catalog_records").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCategoryRepository(newSQLiteDB(t))
	ownerID := uuid.New()

	root, err := catalog.NewCategory(ownerID, "Apparel", "apparel")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, root))

	child, err := catalog.NewChildCategory("Shirts", "apparel-shirts", root)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, child))

	t.Run("root lookup is case insensitive", func(t *testing.T) {
		found, err := repo.FindChildByName(ctx, ownerID, nil, " apparel ")
		require.NoError(t, err)
		assert.Equal(t, root.ID, found.ID)
		assert.Nil(t, found.ParentID)
	})

	t.Run("child lookup under parent", func(t *testing.T) {
		found, err := repo.FindChildByName(ctx, ownerID, &root.ID, "SHIRTS")
		require.NoError(t, err)
		assert.Equal(t, child.ID, found.ID)
		assert.Equal(t, 1, found.Level)
	})

	t.Run("child name is not a root", func(t *testing.T) {
		_, err := repo.FindChildByName(ctx, ownerID, nil, "Shirts")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("owner scoped", func(t *testing.T) {
		_, err := repo.FindChildByName(ctx, uuid.New(), nil, "Apparel")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormShippingProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormShippingProfileRepository(newSQLiteDB(t))
	ownerID := uuid.New()

	profile, err := catalog.NewShippingProfile(ownerID, "STD", "Standard", "gid://shopify/DeliveryProfile/1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, profile))

	found, err := repo.FindByShortID(ctx, ownerID, "STD")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/DeliveryProfile/1", found.RemoteProfileID)

	updated, err := catalog.NewShippingProfile(ownerID, "STD", "Standard", "gid://shopify/DeliveryProfile/2")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, updated))

	found, err = repo.FindByShortID(ctx, ownerID, "STD")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/DeliveryProfile/2", found.RemoteProfileID)

	_, err = repo.FindByShortID(ctx, ownerID, "EXPRESS")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
