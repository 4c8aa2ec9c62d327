// Package mocks provides test doubles shared across packages.
package mocks

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory implementation of cache.Cache for tests that do
// not need a Redis server.
type MockCache struct {
	data map[string]string
	mu   sync.RWMutex

	Sets    int
	Deletes int
}

// NewMockCache creates a new mock cache instance
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

// Get retrieves a value, returning an empty string for a missing key like Redis.
func (m *MockCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

// Set stores a value. Expiration is ignored.
func (m *MockCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	}
	m.Sets++
	return nil
}

// Del deletes keys.
func (m *MockCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
	}
	m.Deletes++
	return nil
}

// Has reports whether key is present.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// Clear resets the mock cache (useful for tests)
func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
}
