package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

const defaultPollInterval = 3 * time.Second

// RequestPoller periodically asks the cloud API what sync work is pending
// for each terminal and drives every returned request through its
// pending→processing→completed|error lifecycle.
//
// Requests for the same terminal are processed strictly sequentially, in
// the order received; requests across different terminals proceed
// concurrently. A terminal still busy with the previous cycle is skipped,
// never queued behind.
type RequestPoller struct {
	api         driven.CloudAPI
	auth        *AuthManager
	uploader    *BatchUploader
	supervisors []*TerminalSupervisor
	logger      *slog.Logger

	interval time.Duration

	mu      sync.Mutex
	running bool
	busy    map[string]bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// PollerConfig holds configuration for the request poller.
type PollerConfig struct {
	API          driven.CloudAPI
	Auth         *AuthManager
	Uploader     *BatchUploader
	Supervisors  []*TerminalSupervisor
	Logger       *slog.Logger
	PollInterval time.Duration // How often to check for pending requests (default: 3s)
}

// NewRequestPoller creates a new request poller.
func NewRequestPoller(cfg PollerConfig) *RequestPoller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}

	return &RequestPoller{
		api:         cfg.API,
		auth:        cfg.Auth,
		uploader:    cfg.Uploader,
		supervisors: cfg.Supervisors,
		logger:      logger,
		interval:    interval,
		busy:        make(map[string]bool),
	}
}

// Start begins the poll loop. It runs until Stop is called or the
// context is cancelled.
func (p *RequestPoller) Start(ctx context.Context) {
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

	p.logger.Info("request poller starting", "interval", p.interval, "caixas", len(p.supervisors))

	go func() {
		defer close(doneCh)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				p.pollAll(ctx)
			}
		}
	}()
}

// Stop stops the poll loop. In-flight request processing is allowed to
// finish or fail naturally.
func (p *RequestPoller) Stop() {
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

	p.logger.Info("request poller stopped")
}

// pollAll fans one poll cycle out across all terminals.
func (p *RequestPoller) pollAll(ctx context.Context) {
	for _, sup := range p.supervisors {
		sup := sup

		p.mu.Lock()
		if p.busy[sup.Config().ID] {
			p.mu.Unlock()
			continue
		}
		p.busy[sup.Config().ID] = true
		p.mu.Unlock()

		go func() {
			defer func() {
				p.mu.Lock()
				p.busy[sup.Config().ID] = false
				p.mu.Unlock()
			}()
			p.PollTerminal(ctx, sup)
		}()
	}
}

// PollTerminal fetches and processes the pending requests of a single
// terminal, strictly in the order received.
func (p *RequestPoller) PollTerminal(ctx context.Context, sup *TerminalSupervisor) {
	cfg := sup.Config()
	logger := p.logger.With("caixa_id", cfg.ID)

	// Liveness check on the poll cadence, so a silently dead connection
	// is detected between queries and not only when one fails.
	sup.CheckHealth(ctx)

	p.auth.Count(CallCheckRequests)
	var requests []domain.SyncRequest
	err := p.auth.Do(ctx, func(ctx context.Context) error {
		var err error
		requests, err = p.api.PendingRequests(ctx, cfg.Filial, cfg.Caixa)
		return err
	})
	if err != nil {
		logger.Error("failed to fetch pending requests", "error", err)
		return
	}

	for _, req := range requests {
		p.processRequest(ctx, sup, req, logger)
	}
}

// processRequest runs one sync request end to end and reports the
// outcome back to the cloud side. Errors never escape: the remote status
// update is the only externally observable failure signal.
func (p *RequestPoller) processRequest(ctx context.Context, sup *TerminalSupervisor, req domain.SyncRequest, logger *slog.Logger) {
	logger = logger.With("request_id", req.ID, "data_vendas", req.DataVendas)
	logger.Info("processing sync request")

	if !sup.Connected() {
		logger.Warn("caixa not connected, rejecting request")
		p.updateStatus(ctx, domain.ErrorUpdate(req.ID, domain.ErrNotConnected.Error()), logger)
		return
	}

	p.updateStatus(ctx, domain.ProcessingUpdate(req.ID), logger)

	sales, err := sup.SaleLines(ctx, req.DataVendas)
	if err != nil {
		p.updateStatus(ctx, domain.ErrorUpdate(req.ID, err.Error()), logger)
		return
	}
	cancels, err := sup.CancellationLines(ctx, req.DataVendas)
	if err != nil {
		p.updateStatus(ctx, domain.ErrorUpdate(req.ID, err.Error()), logger)
		return
	}

	orders := Aggregate(sup.Config().Filial, sup.Config().Caixa, req.DataVendas, sales, cancels)

	if err := p.uploader.Upload(ctx, orders); err != nil {
		p.updateStatus(ctx, domain.ErrorUpdate(req.ID, err.Error()), logger)
		return
	}

	p.updateStatus(ctx, domain.CompletedUpdate(req.ID, len(orders)), logger)
	logger.Info("sync request completed", "orders", len(orders))
}

func (p *RequestPoller) updateStatus(ctx context.Context, upd domain.RequestStatusUpdate, logger *slog.Logger) {
	p.auth.Count(CallUpdateStatus)
	err := p.auth.Do(ctx, func(ctx context.Context) error {
		return p.api.UpdateRequestStatus(ctx, upd)
	})
	if err != nil {
		logger.Error("failed to report request status", "request_id", upd.ID, "error", err)
	}
}
