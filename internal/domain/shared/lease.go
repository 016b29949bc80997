package shared

import (
	"context"
	"time"
)

// LeaseStore grants short-lived exclusive leases keyed by name.
// A lease is held by one holder until it is released or its TTL passes.
type LeaseStore interface {
	// TryAcquire takes the lease for holder. It returns false when another
	// holder owns an unexpired lease on key.
	TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)

	// Renew extends the lease by ttl. It returns false when holder no longer
	// owns it.
	Renew(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)

	// Release drops the lease if holder still owns it
	Release(ctx context.Context, key, holder string) error

	// Close releases resources held by the store
	Close() error
}
