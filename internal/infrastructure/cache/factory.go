package cache

import (
	"fmt"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LeaseStoreFactory creates lease stores based on configuration
type LeaseStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(RedisConfig) (shared.LeaseStore, error)
}

// LeaseStoreFactoryOption is a functional option for configuring the factory
type LeaseStoreFactoryOption func(*LeaseStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LeaseStoreFactoryOption {
	return func(f *LeaseStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to an in-process store.
// Default is true.
func WithInMemoryFallback(allow bool) LeaseStoreFactoryOption {
	return func(f *LeaseStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLeaseStoreFactory creates a new factory
func NewLeaseStoreFactory(cfg config.RedisConfig, opts ...LeaseStoreFactoryOption) *LeaseStoreFactory {
	f := &LeaseStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect: func(c RedisConfig) (shared.LeaseStore, error) {
			return NewRedisLeaseStore(c)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// falling back to an in-memory store otherwise
func (f *LeaseStoreFactory) CreateStore() (shared.LeaseStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory lease store")
		return NewInMemoryLeaseStore(), nil
	}

	store, err := f.connect(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis lease store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for worker leases but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory lease store; leases are per process",
		zap.Error(err),
	)
	return NewInMemoryLeaseStore(), nil
}
