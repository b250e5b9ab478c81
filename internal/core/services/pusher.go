package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

const defaultPushInterval = 10 * time.Second

// PushScheduler periodically re-aggregates and re-uploads the current
// day's data across all connected terminals, independent of explicit
// sync requests. This is a catch-up path: it never marks any remote
// request status, and a failed cycle only logs and waits for the next.
type PushScheduler struct {
	uploader    *BatchUploader
	supervisors []*TerminalSupervisor
	logger      *slog.Logger

	interval time.Duration
	now      func() time.Time

	// onCycle is invoked after every push cycle so the owner can persist
	// session state.
	onCycle func(ctx context.Context, cycleID string)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// PushConfig holds configuration for the push scheduler.
type PushConfig struct {
	Uploader     *BatchUploader
	Supervisors  []*TerminalSupervisor
	Logger       *slog.Logger
	PushInterval time.Duration // Push period (default: 10s)
	OnCycle      func(ctx context.Context, cycleID string)
	Now          func() time.Time // Injectable clock for tests
}

// NewPushScheduler creates a new push scheduler.
func NewPushScheduler(cfg PushConfig) *PushScheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PushInterval
	if interval == 0 {
		interval = defaultPushInterval
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &PushScheduler{
		uploader:    cfg.Uploader,
		supervisors: cfg.Supervisors,
		logger:      logger,
		interval:    interval,
		now:         now,
		onCycle:     cfg.OnCycle,
	}
}

// Start begins the push loop, running one cycle immediately.
func (p *PushScheduler) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	p.logger.Info("push scheduler starting", "interval", p.interval)

	go func() {
		defer close(doneCh)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		// Run immediately on start
		p.RunCycle(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				p.RunCycle(ctx)
			}
		}
	}()
}

// Stop stops the push loop. An in-flight cycle finishes naturally.
func (p *PushScheduler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("push scheduler stopped")
}

// RunCycle aggregates the current date across all connected terminals,
// merges every terminal's orders into one batch and uploads it.
func (p *PushScheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	date := p.now().Format("2006-01-02")
	logger := p.logger.With("cycle_id", cycleID, "date", date)

	orders := p.collect(ctx, date, logger)

	if err := p.uploader.Upload(ctx, orders); err != nil {
		logger.Error("push cycle upload failed", "error", err)
	}

	if p.onCycle != nil {
		p.onCycle(ctx, cycleID)
	}
}

// collect gathers the current date's orders from every connected
// terminal. A disconnected or failing terminal is skipped; its failure
// never interrupts the other terminals' share of the cycle.
func (p *PushScheduler) collect(ctx context.Context, date string, logger *slog.Logger) []*domain.Order {
	var merged []*domain.Order

	for _, sup := range p.supervisors {
		if !sup.Connected() {
			continue
		}

		sales, err := sup.SaleLines(ctx, date)
		if err != nil {
			logger.Warn("push cycle skipping caixa", "caixa_id", sup.Config().ID, "error", err)
			continue
		}
		cancels, err := sup.CancellationLines(ctx, date)
		if err != nil {
			logger.Warn("push cycle skipping caixa", "caixa_id", sup.Config().ID, "error", err)
			continue
		}

		merged = append(merged, Aggregate(sup.Config().Filial, sup.Config().Caixa, date, sales, cancels)...)
	}

	return merged
}
