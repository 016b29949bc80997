package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newMiniredisStore(t *testing.T) (*RedisLeaseStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisLeaseStoreWithClient(client, "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisLeaseStore(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire is exclusive until ttl", func(t *testing.T) {
		store, mr := newMiniredisStore(t)

		ok, err := store.TryAcquire(ctx, "worker", "a", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "a", mustGet(t, mr, "test:worker"))

		ok, err = store.TryAcquire(ctx, "worker", "b", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		mr.FastForward(2 * time.Minute)

		ok, err = store.TryAcquire(ctx, "worker", "b", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release only by holder", func(t *testing.T) {
		store, mr := newMiniredisStore(t)

		_, err := store.TryAcquire(ctx, "worker", "a", time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Release(ctx, "worker", "b"))
		assert.True(t, mr.Exists("test:worker"))

		require.NoError(t, store.Release(ctx, "worker", "a"))
		assert.False(t, mr.Exists("test:worker"))
	})

	t.Run("renew only by holder", func(t *testing.T) {
		store, mr := newMiniredisStore(t)

		_, err := store.TryAcquire(ctx, "worker", "a", time.Minute)
		require.NoError(t, err)
		mr.FastForward(50 * time.Second)

		held, err := store.Renew(ctx, "worker", "a", time.Minute)
		require.NoError(t, err)
		assert.True(t, held)
		assert.Equal(t, time.Minute, mr.TTL("test:worker"))

		held, err = store.Renew(ctx, "worker", "b", time.Minute)
		require.NoError(t, err)
		assert.False(t, held)

		mr.FastForward(2 * time.Minute)
		held, err = store.Renew(ctx, "worker", "a", time.Minute)
		require.NoError(t, err)
		assert.False(t, held, "an expired lease cannot be renewed")
	})

	t.Run("server errors surface", func(t *testing.T) {
		store, mr := newMiniredisStore(t)
		mr.SetError("LOADING")

		_, err := store.TryAcquire(ctx, "worker", "a", time.Minute)
		assert.Error(t, err)
	})
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestInMemoryLeaseStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryLeaseStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ok, err := store.TryAcquire(ctx, "worker", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryAcquire(ctx, "worker", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "worker", "b"))
	ok, _ = store.TryAcquire(ctx, "worker", "b", time.Minute)
	assert.False(t, ok, "release by a non-holder keeps the lease")

	now = now.Add(2 * time.Minute)
	ok, _ = store.TryAcquire(ctx, "worker", "b", time.Minute)
	assert.True(t, ok, "expired lease can be taken")

	now = now.Add(50 * time.Second)
	held, err := store.Renew(ctx, "worker", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, held)
	now = now.Add(50 * time.Second)
	ok, _ = store.TryAcquire(ctx, "worker", "c", time.Minute)
	assert.False(t, ok, "renewed lease is still held")

	held, err = store.Renew(ctx, "worker", "c", time.Minute)
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, store.Release(ctx, "worker", "b"))
	ok, _ = store.TryAcquire(ctx, "worker", "c", time.Minute)
	assert.True(t, ok)
	assert.NoError(t, store.Close())
}

func TestLeaseStoreFactory(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		store, err := NewLeaseStoreFactory(config.RedisConfig{}).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLeaseStore{}, store)
	})

	t.Run("redis reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mustPort(t, mr)}

		store, err := NewLeaseStoreFactory(cfg).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &RedisLeaseStore{}, store)
	})

	t.Run("fallback logs a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := NewLeaseStoreFactory(config.RedisConfig{Enabled: true, Host: "localhost", Port: 1}, WithLogger(zap.New(core)))
		f.connect = func(RedisConfig) (shared.LeaseStore, error) { return nil, errors.New("dial refused") }

		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryLeaseStore{}, store)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("fallback disabled", func(t *testing.T) {
		f := NewLeaseStoreFactory(config.RedisConfig{Enabled: true}, WithInMemoryFallback(false))
		f.connect = func(RedisConfig) (shared.LeaseStore, error) { return nil, errors.New("dial refused") }

		_, err := f.CreateStore()
		assert.Error(t, err)
	})
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}
