package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

const (
	sessionLockName = "session"
	defaultLockTTL  = 60 * time.Second
)

// Coordinator fans connection, polling and push responsibilities out
// across N terminals and owns the session lifecycle: it connects every
// terminal concurrently, performs the initial login, starts the poller,
// the push scheduler and the token refresh as independently cancellable
// tasks, and persists session state so a process restart can resume
// without manual re-configuration.
type Coordinator struct {
	global domain.GlobalConfig
	db     driven.TerminalDB
	api    driven.CloudAPI
	store  driven.StateStore
	lock   driven.InstanceLock // optional
	logger *slog.Logger

	lockTTL time.Duration

	auth     *AuthManager
	uploader *BatchUploader

	mu          sync.Mutex
	running     bool
	startedAt   time.Time
	configs     []domain.TerminalConfig
	supervisors []*TerminalSupervisor
	poller      *RequestPoller
	pusher      *PushScheduler
	lockStopCh  chan struct{}
	lockDoneCh  chan struct{}
}

// CoordinatorConfig holds dependencies for the coordinator.
type CoordinatorConfig struct {
	Global  domain.GlobalConfig
	DB      driven.TerminalDB
	API     driven.CloudAPI
	Store   driven.StateStore
	Lock    driven.InstanceLock // Optional: prevents two instances driving the same fleet
	Logger  *slog.Logger
	LockTTL time.Duration // TTL for the instance lock (default: 60s)
}

// NewCoordinator creates a new multi-terminal coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = defaultLockTTL
	}

	auth := NewAuthManager(AuthConfig{
		API:      cfg.API,
		Email:    cfg.Global.APIUser,
		Password: cfg.Global.APIPassword,
		Logger:   logger,
	})

	return &Coordinator{
		global:   cfg.Global,
		db:       cfg.DB,
		api:      cfg.API,
		store:    cfg.Store,
		lock:     cfg.Lock,
		logger:   logger,
		lockTTL:  lockTTL,
		auth:     auth,
		uploader: NewBatchUploader(cfg.API, auth, logger),
	}
}

// Auth exposes the session's auth manager (token, API-call counters).
func (c *Coordinator) Auth() *AuthManager {
	return c.auth
}

// Running reports whether a session is active.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Supervisors returns the supervisors of the active session.
func (c *Coordinator) Supervisors() []*TerminalSupervisor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supervisors
}

// Start begins a sync session over the given terminals. Partial success
// is allowed - at least one connected terminal is sufficient to proceed,
// zero is a hard failure. Terminals that failed the initial connect keep
// retrying in the background.
func (c *Coordinator) Start(ctx context.Context, terminals []domain.TerminalConfig) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.lock != nil {
		acquired, err := c.lock.Acquire(ctx, sessionLockName, c.lockTTL)
		if err != nil {
			c.logger.Warn("failed to acquire session lock", "error", err)
		} else if !acquired {
			return domain.ErrLockHeld
		}
	}

	supervisors := make([]*TerminalSupervisor, 0, len(terminals))
	for _, t := range terminals {
		supervisors = append(supervisors, NewTerminalSupervisor(SupervisorConfig{
			Terminal: t,
			DB:       c.db,
			Logger:   c.logger,
		}))
	}

	// Connect every terminal concurrently
	var wg sync.WaitGroup
	for _, sup := range supervisors {
		wg.Add(1)
		go func(sup *TerminalSupervisor) {
			defer wg.Done()
			if err := sup.Connect(ctx); err != nil {
				c.logger.Error("initial connect failed",
					"caixa_id", sup.Config().ID,
					"error", err,
				)
				// Keep retrying in the background; the session can still
				// proceed on the terminals that did connect.
				sup.ConnectionLost(ctx)
			}
		}(sup)
	}
	wg.Wait()

	connected := 0
	for _, sup := range supervisors {
		if sup.Connected() {
			connected++
		}
	}
	if connected == 0 {
		for _, sup := range supervisors {
			sup.Stop()
		}
		if c.lock != nil {
			_ = c.lock.Release(ctx, sessionLockName)
		}
		return domain.ErrNoTerminals
	}

	c.logger.Info("terminals connected", "connected", connected, "total", len(terminals))

	// Initial login. A failure is logged, not fatal: calls requiring auth
	// fail fast until the next refresh succeeds.
	if err := c.auth.Login(ctx); err != nil {
		c.logger.Warn("initial login failed, continuing without token", "error", err)
	}

	c.registerInitialRequests(ctx, supervisors)

	pollInterval := minCheckInterval(c.global, terminals)
	pushInterval := minSyncInterval(c.global, terminals)

	poller := NewRequestPoller(PollerConfig{
		API:          c.api,
		Auth:         c.auth,
		Uploader:     c.uploader,
		Supervisors:  supervisors,
		Logger:       c.logger,
		PollInterval: pollInterval,
	})
	pusher := NewPushScheduler(PushConfig{
		Uploader:     c.uploader,
		Supervisors:  supervisors,
		Logger:       c.logger,
		PushInterval: pushInterval,
		OnCycle: func(ctx context.Context, cycleID string) {
			c.persist(ctx, cycleID)
		},
	})

	c.mu.Lock()
	c.running = true
	c.startedAt = time.Now()
	c.configs = terminals
	c.supervisors = supervisors
	c.poller = poller
	c.pusher = pusher
	c.mu.Unlock()

	// The push scheduler runs its first cycle immediately on start, so
	// the session state is persisted right away as well.
	pusher.Start(ctx)
	poller.Start(ctx)
	c.auth.StartRefresh(ctx)
	c.startLockRefresh(ctx)

	c.logger.Info("sync session started",
		"caixas", len(terminals),
		"poll_interval", pollInterval,
		"push_interval", pushInterval,
	)
	return nil
}

// Stop ends the session: schedulers are cancelled, terminals are
// disconnected concurrently, the token is cleared and persisted state is
// removed. In-flight queries and uploads finish or fail naturally.
func (c *Coordinator) Stop(ctx context.Context) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	poller, pusher := c.poller, c.pusher
	supervisors := c.supervisors
	c.running = false
	c.mu.Unlock()

	poller.Stop()
	pusher.Stop()
	c.auth.StopRefresh()
	c.stopLockRefresh()

	var wg sync.WaitGroup
	for _, sup := range supervisors {
		wg.Add(1)
		go func(sup *TerminalSupervisor) {
			defer wg.Done()
			sup.Stop()
		}(sup)
	}
	wg.Wait()

	c.auth.Clear()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear persisted state", "error", err)
	}
	if c.lock != nil {
		if err := c.lock.Release(ctx, sessionLockName); err != nil {
			c.logger.Warn("failed to release session lock", "error", err)
		}
	}

	c.mu.Lock()
	c.supervisors = nil
	c.poller = nil
	c.pusher = nil
	c.configs = nil
	c.mu.Unlock()

	c.logger.Info("sync session stopped")
}

// RestoreFromPersistedState resumes a previously-running session from the
// persisted document. Returns true when a session was restored.
func (c *Coordinator) RestoreFromPersistedState(ctx context.Context) (bool, error) {
	state, err := c.store.Load(ctx)
	if err != nil {
		if err != domain.ErrNotFound {
			c.logger.Warn("failed to load persisted state", "error", err)
		}
		return false, nil
	}
	if !state.IsActive || len(state.CaixasConfigs) == 0 {
		return false, nil
	}

	c.logger.Info("restoring previous session",
		"caixas", len(state.CaixasConfigs),
		"started_at", state.StartedAt,
	)

	c.auth.RestoreToken(state.Token)

	if err := c.Start(ctx, state.CaixasConfigs); err != nil {
		return false, err
	}
	return true, nil
}

// registerInitialRequests records one-off initial catch-up bookkeeping
// entries for every connected terminal, capped at NRegistros rows.
func (c *Coordinator) registerInitialRequests(ctx context.Context, supervisors []*TerminalSupervisor) {
	today := time.Now().Format("2006-01-02")

	for _, sup := range supervisors {
		if !sup.Connected() {
			continue
		}
		cfg := sup.Config()

		count, err := sup.CountLines(ctx, today)
		if err != nil {
			c.logger.Warn("failed to count initial rows", "caixa_id", cfg.ID, "error", err)
			continue
		}
		if c.global.NRegistros > 0 && count > c.global.NRegistros {
			count = c.global.NRegistros
		}

		c.auth.Count(CallInsertRequest)
		err = c.auth.Do(ctx, func(ctx context.Context) error {
			return c.api.RegisterInitialRequest(ctx, domain.InitialRequest{
				Filial:     cfg.Filial,
				Caixa:      cfg.Caixa,
				DataVendas: today,
				Initial:    true,
				Message:    "sincronização inicial",
				NRegistros: count,
				Completed:  true,
			})
		})
		if err != nil {
			c.logger.Warn("failed to register initial request", "caixa_id", cfg.ID, "error", err)
		}
	}
}

// persist writes the session document. Failures are logged; the session
// continues in-memory.
func (c *Coordinator) persist(ctx context.Context, cycleID string) {
	c.mu.Lock()
	state := &domain.SessionState{
		IsActive:      c.running,
		StartedAt:     c.startedAt,
		CaixasConfigs: c.configs,
		GlobalConfig:  c.global,
		LastSyncCycle: time.Now(),
		LastCycleID:   cycleID,
	}
	supervisors := c.supervisors
	c.mu.Unlock()

	for _, sup := range supervisors {
		if sup.Connected() {
			state.ConnectedCaixas = append(state.ConnectedCaixas, sup.Config().ID)
		}
	}
	state.APIStats = c.auth.Stats()
	state.Token = c.auth.Token()

	if err := c.store.Save(ctx, state); err != nil {
		c.logger.Warn("failed to persist session state", "error", err)
	}
}

// startLockRefresh keeps the instance lock alive while the session runs.
func (c *Coordinator) startLockRefresh(ctx context.Context) {
	if c.lock == nil {
		return
	}

	c.mu.Lock()
	c.lockStopCh = make(chan struct{})
	c.lockDoneCh = make(chan struct{})
	stopCh, doneCh := c.lockStopCh, c.lockDoneCh
	c.mu.Unlock()

	go func() {
		defer close(doneCh)

		ticker := time.NewTicker(c.lockTTL / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				if err := c.lock.Extend(ctx, sessionLockName, c.lockTTL); err != nil {
					c.logger.Warn("failed to extend session lock", "error", err)
				}
			}
		}
	}()
}

func (c *Coordinator) stopLockRefresh() {
	c.mu.Lock()
	stopCh, doneCh := c.lockStopCh, c.lockDoneCh
	c.lockStopCh, c.lockDoneCh = nil, nil
	c.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

// minCheckInterval returns the smallest effective poll interval across
// the fleet.
func minCheckInterval(global domain.GlobalConfig, terminals []domain.TerminalConfig) time.Duration {
	min := global.CheckInterval
	if min == 0 {
		min = defaultPollInterval
	}
	for _, t := range terminals {
		if eff := t.CheckInterval(min); eff < min {
			min = eff
		}
	}
	return min
}

// minSyncInterval returns the smallest effective push interval across
// the fleet.
func minSyncInterval(global domain.GlobalConfig, terminals []domain.TerminalConfig) time.Duration {
	min := global.SyncInterval
	if min == 0 {
		min = defaultPushInterval
	}
	for _, t := range terminals {
		if eff := t.SyncInterval(min); eff < min {
			min = eff
		}
	}
	return min
}
