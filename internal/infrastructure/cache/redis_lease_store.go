package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultLeasePrefix = "catalogsync:lease:"

// releaseScript deletes the key only when the caller still holds it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript moves the expiry forward only for the current holder
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLeaseStore implements shared.LeaseStore with SET NX PX.
// It is shared by every process pointing at the same Redis.
type RedisLeaseStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisLeaseStore connects to Redis and verifies the connection
func NewRedisLeaseStore(cfg RedisConfig) (*RedisLeaseStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLeaseStoreWithClient(client, ""), nil
}

// NewRedisLeaseStoreWithClient wraps an existing client
func NewRedisLeaseStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisLeaseStore {
	if keyPrefix == "" {
		keyPrefix = defaultLeasePrefix
	}
	return &RedisLeaseStore{client: client, keyPrefix: keyPrefix}
}

// TryAcquire sets the lease key only if it does not exist
func (s *RedisLeaseStore) TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	return ok, nil
}

// Renew resets the TTL of the lease when holder still owns it
func (s *RedisLeaseStore) Renew(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, s.client, []string{s.keyPrefix + key}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to renew lease %s: %w", key, err)
	}
	return n == 1, nil
}

// Release deletes the lease key when holder still owns it
func (s *RedisLeaseStore) Release(ctx context.Context, key, holder string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, holder).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisLeaseStore) Close() error {
	return s.client.Close()
}

var _ shared.LeaseStore = (*RedisLeaseStore)(nil)
