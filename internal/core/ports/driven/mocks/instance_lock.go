package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockInstanceLock is a mock implementation of InstanceLock for testing.
// It simulates lock behavior with in-memory state and supports custom
// behavior injection.
type MockInstanceLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry

	// Custom behavior hooks (optional)
	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
}

type lockEntry struct {
	expiry time.Time
}

// NewMockInstanceLock creates a new mock instance lock.
func NewMockInstanceLock() *MockInstanceLock {
	return &MockInstanceLock{
		locks: make(map[string]lockEntry),
	}
}

func (m *MockInstanceLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.locks[name]; exists && time.Now().Before(entry.expiry) {
		return false, nil
	}
	m.locks[name] = lockEntry{expiry: time.Now().Add(ttl)}
	return true, nil
}

func (m *MockInstanceLock) Release(ctx context.Context, name string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, name)
	return nil
}

func (m *MockInstanceLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.locks[name]; !exists {
		return fmt.Errorf("lock %s not held", name)
	}
	m.locks[name] = lockEntry{expiry: time.Now().Add(ttl)}
	return nil
}

func (m *MockInstanceLock) Ping(ctx context.Context) error {
	return nil
}

// Held reports whether a named lock is currently held.
func (m *MockInstanceLock) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, exists := m.locks[name]
	return exists && time.Now().Before(entry.expiry)
}
