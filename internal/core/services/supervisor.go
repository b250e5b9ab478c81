package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/looplab/fsm"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

const defaultRetryInterval = 5 * time.Second

// TerminalSupervisor owns one terminal's database connection and drives
// its state machine:
//
//	disconnected -(connect)-> connecting -(established)-> connected
//	connected -(lost)-> disconnected -(retry)-> reconnecting -(established)-> connected
//
// On connection loss it immediately attempts one reconnect, then keeps
// retrying on a fixed interval until connected. At most one retry loop
// runs per terminal at any time; a second loss trigger while reconnecting
// is a no-op. Dependent operations short-circuit with ErrNotConnected
// rather than block - the supervisor never queues callers.
type TerminalSupervisor struct {
	cfg    domain.TerminalConfig
	db     driven.TerminalDB
	logger *slog.Logger

	retryInterval time.Duration

	mu          sync.Mutex
	machine     *fsm.FSM
	conn        driven.TerminalConn
	retrying    bool
	retryCancel context.CancelFunc
	retryDone   chan struct{}
}

// SupervisorConfig holds configuration for a terminal supervisor.
type SupervisorConfig struct {
	Terminal      domain.TerminalConfig
	DB            driven.TerminalDB
	Logger        *slog.Logger
	RetryInterval time.Duration // Fixed reconnect interval (default: 5s)
}

// NewTerminalSupervisor creates a supervisor for one terminal.
func NewTerminalSupervisor(cfg SupervisorConfig) *TerminalSupervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("caixa_id", cfg.Terminal.ID, "filial", cfg.Terminal.Filial, "caixa", cfg.Terminal.Caixa)

	interval := cfg.RetryInterval
	if interval == 0 {
		interval = defaultRetryInterval
	}

	s := &TerminalSupervisor{
		cfg:           cfg.Terminal,
		db:            cfg.DB,
		logger:        logger,
		retryInterval: interval,
	}

	s.machine = fsm.NewFSM(
		string(domain.ConnectionDisconnected),
		fsm.Events{
			{Name: "connect", Src: []string{string(domain.ConnectionDisconnected)}, Dst: string(domain.ConnectionConnecting)},
			{Name: "established", Src: []string{string(domain.ConnectionConnecting), string(domain.ConnectionReconnecting)}, Dst: string(domain.ConnectionConnected)},
			{Name: "lost", Src: []string{string(domain.ConnectionConnected), string(domain.ConnectionConnecting)}, Dst: string(domain.ConnectionDisconnected)},
			{Name: "retry", Src: []string{string(domain.ConnectionDisconnected)}, Dst: string(domain.ConnectionReconnecting)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("connection state changed", "from", e.Src, "to", e.Dst)
			},
		},
	)

	return s
}

// Config returns the terminal's immutable configuration.
func (s *TerminalSupervisor) Config() domain.TerminalConfig {
	return s.cfg
}

// State returns the current connection state.
func (s *TerminalSupervisor) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ConnectionState(s.machine.Current())
}

// Connected reports whether the terminal database is currently usable.
func (s *TerminalSupervisor) Connected() bool {
	return s.State() == domain.ConnectionConnected
}

// Connect performs the initial connection attempt. Unlike ConnectionLost
// it does not arm the retry loop on failure; session start decides what a
// failed initial connect means.
func (s *TerminalSupervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if !s.machine.Is(string(domain.ConnectionDisconnected)) {
		s.mu.Unlock()
		return nil
	}
	_ = s.machine.Event(ctx, "connect")
	s.mu.Unlock()

	conn, err := s.db.Connect(ctx, s.cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		_ = s.machine.Event(ctx, "lost")
		return err
	}
	s.conn = conn
	_ = s.machine.Event(ctx, "established")
	s.logger.Info("caixa connected")
	return nil
}

// ConnectionLost transitions the terminal to disconnected and starts the
// retry loop. Safe to call from any state; concurrent triggers while a
// reconnect is already in flight produce no duplicate loops.
func (s *TerminalSupervisor) ConnectionLost(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retrying {
		return
	}
	if s.machine.Is(string(domain.ConnectionConnected)) || s.machine.Is(string(domain.ConnectionConnecting)) {
		_ = s.machine.Event(ctx, "lost")
	}
	if !s.machine.Is(string(domain.ConnectionDisconnected)) {
		return
	}

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	s.logger.Warn("caixa connection lost, starting reconnect loop", "interval", s.retryInterval)
	s.startRetryLoopLocked()
}

// startRetryLoopLocked arms the fixed-interval reconnect loop.
// Caller must hold s.mu.
func (s *TerminalSupervisor) startRetryLoopLocked() {
	_ = s.machine.Event(context.Background(), "retry")
	s.retrying = true

	rctx, cancel := context.WithCancel(context.Background())
	s.retryCancel = cancel
	done := make(chan struct{})
	s.retryDone = done

	go func() {
		defer close(done)

		policy := backoff.WithContext(backoff.NewConstantBackOff(s.retryInterval), rctx)
		err := backoff.RetryNotify(
			func() error { return s.tryReconnect(rctx) },
			policy,
			func(err error, next time.Duration) {
				s.logger.Warn("reconnect attempt failed", "error", err, "next_retry", next)
			},
		)

		s.mu.Lock()
		s.retrying = false
		s.retryCancel = nil
		s.retryDone = nil
		if err != nil && s.machine.Is(string(domain.ConnectionReconnecting)) {
			// Loop cancelled before the connection came back
			_ = s.machine.Event(context.Background(), "lost")
		}
		s.mu.Unlock()

		if err == nil {
			s.logger.Info("caixa connection restored")
		}
	}()
}

// tryReconnect performs a single reconnect attempt.
func (s *TerminalSupervisor) tryReconnect(ctx context.Context) error {
	conn, err := s.db.Connect(ctx, s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	_ = s.machine.Event(ctx, "established")
	return nil
}

// CheckHealth runs the liveness query against the current connection.
// A failed check transitions the terminal to disconnected and arms the
// retry loop. Returns the post-check connected state.
func (s *TerminalSupervisor) CheckHealth(ctx context.Context) bool {
	s.mu.Lock()
	conn := s.conn
	connected := s.machine.Is(string(domain.ConnectionConnected))
	s.mu.Unlock()

	if !connected || conn == nil {
		return false
	}
	if err := conn.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.ConnectionLost(ctx)
		return false
	}
	return true
}

// SaleLines reads the raw sale rows for a date, short-circuiting when the
// terminal is not connected. A connection-loss error triggers the
// reconnect loop before being returned to the caller.
func (s *TerminalSupervisor) SaleLines(ctx context.Context, date string) ([]domain.SaleLine, error) {
	conn, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := conn.SaleLines(ctx, date, s.cfg.Filial, s.cfg.Caixa)
	if err != nil {
		s.handleQueryError(ctx, err)
		return nil, err
	}
	return rows, nil
}

// CancellationLines reads the raw cancellation rows for a date.
func (s *TerminalSupervisor) CancellationLines(ctx context.Context, date string) ([]domain.CancellationLine, error) {
	conn, err := s.current()
	if err != nil {
		return nil, err
	}
	rows, err := conn.CancellationLines(ctx, date, s.cfg.Filial, s.cfg.Caixa)
	if err != nil {
		s.handleQueryError(ctx, err)
		return nil, err
	}
	return rows, nil
}

// CountLines counts the sale rows available for a date.
func (s *TerminalSupervisor) CountLines(ctx context.Context, date string) (int, error) {
	conn, err := s.current()
	if err != nil {
		return 0, err
	}
	n, err := conn.CountLines(ctx, date, s.cfg.Filial, s.cfg.Caixa)
	if err != nil {
		s.handleQueryError(ctx, err)
		return 0, err
	}
	return n, nil
}

func (s *TerminalSupervisor) current() (driven.TerminalConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.machine.Is(string(domain.ConnectionConnected)) || s.conn == nil {
		return nil, domain.ErrNotConnected
	}
	return s.conn, nil
}

func (s *TerminalSupervisor) handleQueryError(ctx context.Context, err error) {
	if errors.Is(err, domain.ErrConnectionLost) {
		s.ConnectionLost(ctx)
	}
}

// Stop cancels any in-flight reconnect loop and closes the connection.
func (s *TerminalSupervisor) Stop() {
	s.mu.Lock()
	cancel := s.retryCancel
	done := s.retryDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.machine.Is(string(domain.ConnectionConnected)) {
		_ = s.machine.Event(context.Background(), "lost")
	}
	s.logger.Info("caixa supervisor stopped")
}
