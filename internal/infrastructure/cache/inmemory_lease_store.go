package cache

import (
	"context"
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
)

type lease struct {
	holder    string
	expiresAt time.Time
}

// InMemoryLeaseStore implements shared.LeaseStore inside one process.
// Leases are not visible to other instances.
type InMemoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewInMemoryLeaseStore creates an empty store
func NewInMemoryLeaseStore() *InMemoryLeaseStore {
	return &InMemoryLeaseStore{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// TryAcquire takes the lease when it is free or expired
func (s *InMemoryLeaseStore) TryAcquire(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if current, ok := s.leases[key]; ok && now.Before(current.expiresAt) {
		return false, nil
	}
	s.leases[key] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// Renew extends an unexpired lease owned by holder
func (s *InMemoryLeaseStore) Renew(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	current, ok := s.leases[key]
	if !ok || current.holder != holder || !now.Before(current.expiresAt) {
		return false, nil
	}
	s.leases[key] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lease if holder owns it
func (s *InMemoryLeaseStore) Release(_ context.Context, key, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.leases[key]; ok && current.holder == holder {
		delete(s.leases, key)
	}
	return nil
}

// Close is a no-op
func (s *InMemoryLeaseStore) Close() error {
	return nil
}

var _ shared.LeaseStore = (*InMemoryLeaseStore)(nil)
