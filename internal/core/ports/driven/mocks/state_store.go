package mocks

import (
	"context"
	"sync"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// MockStateStore is an in-memory StateStore for testing.
type MockStateStore struct {
	mu    sync.Mutex
	state *domain.SessionState

	SaveErr  error
	LoadErr  error
	ClearErr error

	SaveCalls  int
	ClearCalls int
}

// NewMockStateStore creates a new MockStateStore.
func NewMockStateStore() *MockStateStore {
	return &MockStateStore{}
}

func (m *MockStateStore) Save(ctx context.Context, state *domain.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *state
	m.state = &cp
	return nil
}

func (m *MockStateStore) Load(ctx context.Context) (*domain.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.state == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.state
	return &cp, nil
}

func (m *MockStateStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.state = nil
	return nil
}

func (m *MockStateStore) Ping(ctx context.Context) error {
	return nil
}

// Current returns the currently persisted state, or nil.
func (m *MockStateStore) Current() *domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	cp := *m.state
	return &cp
}

// Seed pre-populates the store with a persisted state.
func (m *MockStateStore) Seed(state *domain.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.state = &cp
}
