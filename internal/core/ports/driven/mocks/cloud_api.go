package mocks

import (
	"context"
	"sync"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// MockCloudAPI is a mock implementation of CloudAPI for testing.
// It records every call and supports custom behavior injection per method.
type MockCloudAPI struct {
	mu sync.Mutex

	Token string

	// Pending requests keyed by "filial:caixa"
	Pending map[string][]domain.SyncRequest

	// Recorded calls
	StatusUpdates   []domain.RequestStatusUpdate
	InitialRequests []domain.InitialRequest
	Uploads         [][]domain.OrderPayload
	LoginCalls      int

	// Custom behavior hooks (optional)
	LoginFn  func(email, password string) (string, error)
	UploadFn func(orders []domain.OrderPayload) error

	// Error injection
	PendingErr error
	UpdateErr  error
	InitialErr error
}

// NewMockCloudAPI creates a new MockCloudAPI.
func NewMockCloudAPI() *MockCloudAPI {
	return &MockCloudAPI{
		Pending: make(map[string][]domain.SyncRequest),
	}
}

func (m *MockCloudAPI) Login(ctx context.Context, email, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoginCalls++
	if m.LoginFn != nil {
		return m.LoginFn(email, password)
	}
	return "mock-token", nil
}

func (m *MockCloudAPI) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = token
}

func (m *MockCloudAPI) PendingRequests(ctx context.Context, filial, caixa string) ([]domain.SyncRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PendingErr != nil {
		return nil, m.PendingErr
	}
	return m.Pending[filial+":"+caixa], nil
}

func (m *MockCloudAPI) UpdateRequestStatus(ctx context.Context, upd domain.RequestStatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.StatusUpdates = append(m.StatusUpdates, upd)
	return nil
}

func (m *MockCloudAPI) RegisterInitialRequest(ctx context.Context, req domain.InitialRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InitialErr != nil {
		return m.InitialErr
	}
	m.InitialRequests = append(m.InitialRequests, req)
	return nil
}

func (m *MockCloudAPI) UploadOrders(ctx context.Context, orders []domain.OrderPayload) error {
	m.mu.Lock()
	uploadFn := m.UploadFn
	m.mu.Unlock()
	if uploadFn != nil {
		if err := uploadFn(orders); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads = append(m.Uploads, orders)
	return nil
}

// Helper methods for testing

// SetPending sets the pending requests for a terminal.
func (m *MockCloudAPI) SetPending(filial, caixa string, reqs []domain.SyncRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pending[filial+":"+caixa] = reqs
}

// Updates returns a copy of the recorded status updates.
func (m *MockCloudAPI) Updates() []domain.RequestStatusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RequestStatusUpdate, len(m.StatusUpdates))
	copy(out, m.StatusUpdates)
	return out
}

// UploadedBatches returns a copy of the recorded upload batches.
func (m *MockCloudAPI) UploadedBatches() [][]domain.OrderPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]domain.OrderPayload, len(m.Uploads))
	copy(out, m.Uploads)
	return out
}

// Logins returns the number of Login invocations so far.
func (m *MockCloudAPI) Logins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LoginCalls
}

// CurrentToken returns the last token set via SetToken.
func (m *MockCloudAPI) CurrentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Token
}
