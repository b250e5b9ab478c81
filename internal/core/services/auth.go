package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

const defaultRefreshInterval = 10 * time.Minute

// APICall identifies the call type for the cumulative API-call counters.
type APICall string

const (
	CallLogin         APICall = "login"
	CallCheckRequests APICall = "checkRequests"
	CallSendPedidos   APICall = "sendPedidos"
	CallUpdateStatus  APICall = "updateStatus"
	CallInsertRequest APICall = "insertRequest"
)

// AuthManager owns the short-lived bearer token shared by all terminals'
// concurrent operations. It performs login, transparently retries a
// request exactly once after a 401, and proactively refreshes the token
// on a fixed timer independent of observed failures.
type AuthManager struct {
	api      driven.CloudAPI
	email    string
	password string
	logger   *slog.Logger

	refreshInterval time.Duration

	mu    sync.Mutex
	token string
	stats domain.APIStats

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// AuthConfig holds configuration for the auth manager.
type AuthConfig struct {
	API             driven.CloudAPI
	Email           string
	Password        string
	Logger          *slog.Logger
	RefreshInterval time.Duration // Proactive token refresh period (default: 10m)
}

// NewAuthManager creates a new auth manager.
func NewAuthManager(cfg AuthConfig) *AuthManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.RefreshInterval
	if interval == 0 {
		interval = defaultRefreshInterval
	}

	return &AuthManager{
		api:             cfg.API,
		email:           cfg.Email,
		password:        cfg.Password,
		logger:          logger,
		refreshInterval: interval,
		stats:           domain.APIStats{LastReset: time.Now()},
	}
}

// Login exchanges the configured credentials for a fresh token. A failed
// login leaves the previous token (if any) untouched and is logged; it
// never crashes the process.
func (a *AuthManager) Login(ctx context.Context) error {
	a.Count(CallLogin)

	token, err := a.api.Login(ctx, a.email, a.password)
	if err != nil {
		a.logger.Error("login failed", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}

	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	a.api.SetToken(token)

	a.logTokenExpiry(token)
	a.logger.Info("login succeeded")
	return nil
}

// logTokenExpiry inspects the exp claim of the (unverified) token so an
// imminent server-side expiry shows up in the logs before it bites.
func (a *AuthManager) logTokenExpiry(token string) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return // opaque token, nothing to report
	}
	if claims.ExpiresAt == nil {
		return
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < a.refreshInterval {
		a.logger.Warn("token expires before next scheduled refresh", "expires_in", remaining)
	} else {
		a.logger.Debug("token acquired", "expires_in", remaining)
	}
}

// Token returns the current bearer token ("" when absent).
func (a *AuthManager) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// EnsureToken performs a login only when no token is present.
func (a *AuthManager) EnsureToken(ctx context.Context) error {
	if a.Token() != "" {
		return nil
	}
	return a.Login(ctx)
}

// Do invokes fn with the current token. When the remote call fails with
// 401 the token is cleared, a fresh login is performed synchronously, and
// fn is retried exactly once; a second 401 is surfaced as a terminal
// failure for that call.
func (a *AuthManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if !errors.Is(err, domain.ErrUnauthorized) {
		return err
	}

	a.logger.Warn("call rejected with 401, renewing token")
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()

	if loginErr := a.Login(ctx); loginErr != nil {
		return loginErr
	}

	err = fn(ctx)
	if errors.Is(err, domain.ErrUnauthorized) {
		return fmt.Errorf("rejected again after token renewal: %w", err)
	}
	return err
}

// Count bumps the counter for one call type plus the overall total.
func (a *AuthManager) Count(call APICall) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Total++
	switch call {
	case CallLogin:
		a.stats.Login++
	case CallCheckRequests:
		a.stats.CheckRequests++
	case CallSendPedidos:
		a.stats.SendPedidos++
	case CallUpdateStatus:
		a.stats.UpdateStatus++
	case CallInsertRequest:
		a.stats.InsertRequest++
	}
}

// Stats returns a snapshot of the cumulative API-call counters.
func (a *AuthManager) Stats() domain.APIStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// ResetStats zeroes the counters and stamps the reset time.
func (a *AuthManager) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = domain.APIStats{LastReset: time.Now()}
}

// RestoreToken seeds the token from persisted state without a login.
func (a *AuthManager) RestoreToken(token string) {
	if token == "" {
		return
	}
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	a.api.SetToken(token)
}

// Clear drops the current token.
func (a *AuthManager) Clear() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
	a.api.SetToken("")
}

// StartRefresh begins the proactive token refresh loop.
func (a *AuthManager) StartRefresh(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	stopCh, doneCh := a.stopCh, a.doneCh
	a.mu.Unlock()

	a.logger.Info("token refresh loop starting", "interval", a.refreshInterval)

	go func() {
		defer close(doneCh)

		ticker := time.NewTicker(a.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				if err := a.Login(ctx); err != nil {
					a.logger.Warn("scheduled token refresh failed", "error", err)
				}
			}
		}
	}()
}

// StopRefresh stops the refresh loop.
func (a *AuthManager) StopRefresh() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	doneCh := a.doneCh
	a.mu.Unlock()

	<-doneCh

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}
