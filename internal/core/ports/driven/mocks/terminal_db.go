package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

// MockTerminalDB is a mock implementation of TerminalDB for testing.
type MockTerminalDB struct {
	mu sync.Mutex

	// ConnectErr makes Connect fail when set
	ConnectErr error

	// Conn is the connection handed out by Connect. When nil, a fresh
	// MockTerminalConn is created per call.
	Conn *MockTerminalConn

	// ConnectCalls counts Connect invocations
	ConnectCalls int
}

// NewMockTerminalDB creates a new MockTerminalDB.
func NewMockTerminalDB() *MockTerminalDB {
	return &MockTerminalDB{}
}

func (m *MockTerminalDB) Connect(ctx context.Context, cfg domain.TerminalConfig) (driven.TerminalConn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectCalls++
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}
	if m.Conn != nil {
		return m.Conn, nil
	}
	return NewMockTerminalConn(), nil
}

// Calls returns the number of Connect invocations so far.
func (m *MockTerminalDB) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ConnectCalls
}

// FailConnects makes the next Connect calls fail.
func (m *MockTerminalDB) FailConnects(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectErr = err
}

// MockTerminalConn is a mock implementation of TerminalConn for testing.
// Rows are keyed by sale date.
type MockTerminalConn struct {
	mu sync.Mutex

	Sales   map[string][]domain.SaleLine
	Cancels map[string][]domain.CancellationLine

	PingErr  error
	QueryErr error

	PingCalls  int
	QueryCalls int
	Closed     bool
}

// NewMockTerminalConn creates a new MockTerminalConn.
func NewMockTerminalConn() *MockTerminalConn {
	return &MockTerminalConn{
		Sales:   make(map[string][]domain.SaleLine),
		Cancels: make(map[string][]domain.CancellationLine),
	}
}

func (m *MockTerminalConn) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingCalls++
	return m.PingErr
}

func (m *MockTerminalConn) SaleLines(ctx context.Context, date, filial, caixa string) ([]domain.SaleLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.Sales[date], nil
}

func (m *MockTerminalConn) CancellationLines(ctx context.Context, date, filial, caixa string) ([]domain.CancellationLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.Cancels[date], nil
}

func (m *MockTerminalConn) CountLines(ctx context.Context, date, filial, caixa string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryErr != nil {
		return 0, m.QueryErr
	}
	return len(m.Sales[date]), nil
}

func (m *MockTerminalConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return fmt.Errorf("already closed")
	}
	m.Closed = true
	return nil
}

// FailQueries makes subsequent queries fail with the given error.
func (m *MockTerminalConn) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryErr = err
}

// FailPings makes subsequent pings fail with the given error.
func (m *MockTerminalConn) FailPings(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingErr = err
}

// SetSales sets the sale rows returned for a date.
func (m *MockTerminalConn) SetSales(date string, lines []domain.SaleLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sales[date] = lines
}

// SetCancels sets the cancellation rows returned for a date.
func (m *MockTerminalConn) SetCancels(date string, lines []domain.CancellationLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancels[date] = lines
}

// Queries returns the number of query invocations so far.
func (m *MockTerminalConn) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QueryCalls
}
