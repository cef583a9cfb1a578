package cache

import (
	"context"
	"sync"
	"time"
)

// MockCache provides an in-memory implementation for tests and for running
// without a Redis instance.
type MockCache struct {
	mu     sync.Mutex
	claims map[string]bool
	marks  map[string]bool
}

var _ Cache = (*MockCache)(nil)

func NewMockCache() *MockCache {
	return &MockCache{
		claims: make(map[string]bool),
		marks:  make(map[string]bool),
	}
}

func (m *MockCache) Close() error {
	return nil
}

func (m *MockCache) AcquireRunClaim(ctx context.Context, date string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[date] {
		return false, nil
	}
	m.claims[date] = true
	return true, nil
}

func (m *MockCache) ReleaseRunClaim(ctx context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, date)
	return nil
}

func (m *MockCache) IsClassified(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks[hash], nil
}

func (m *MockCache) MarkClassified(ctx context.Context, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[hash] = true
	return nil
}
