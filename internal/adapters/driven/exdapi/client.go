// Package exdapi implements the cloud API consumed by the sync engine.
package exdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CloudAPI = (*Client)(nil)

// Client is the HTTP client for the cloud API. All bodies are JSON and
// every endpoint except login carries the bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// Config holds cloud API connection configuration.
type Config struct {
	// BaseURL is the API endpoint (e.g., https://api.exd.example)
	BaseURL string

	// Timeout bounds every request so a hung remote endpoint cannot
	// wedge a terminal's cycle indefinitely
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewClient creates a new cloud API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetToken sets the bearer token used by subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login exchanges credentials for a bearer token. The token is returned,
// not stored - token ownership belongs to the auth manager.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/login.php", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: empty token in login response", domain.ErrAuthFailed)
	}
	return resp.Token, nil
}

// PendingRequests returns the sync work pending for one terminal, in the
// order it should be processed.
func (c *Client) PendingRequests(ctx context.Context, filial, caixa string) ([]domain.SyncRequest, error) {
	body := map[string]string{"filial": filial, "caixa": caixa}

	var requests []domain.SyncRequest
	if err := c.post(ctx, "/request_index.php", body, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateRequestStatus reports a request lifecycle transition.
func (c *Client) UpdateRequestStatus(ctx context.Context, upd domain.RequestStatusUpdate) error {
	return c.post(ctx, "/request_update.php", upd, nil)
}

// RegisterInitialRequest records a one-off initial-sync bookkeeping entry.
func (c *Client) RegisterInitialRequest(ctx context.Context, req domain.InitialRequest) error {
	return c.post(ctx, "/request_initial.php", req, nil)
}

// UploadOrders posts the full order list as one batch request.
func (c *Client) UploadOrders(ctx context.Context, orders []domain.OrderPayload) error {
	body := struct {
		Pedidos []domain.OrderPayload `json:"pedidos"`
	}{Pedidos: orders}

	return c.post(ctx, "/pedidos_register_batch.php", body, nil)
}

// post sends one JSON request and decodes the response into out (when
// non-nil). A 401 is wrapped in domain.ErrUnauthorized so the auth
// manager can apply its single-retry rule; any other failure is logged
// with full response diagnostics and returned without retrying.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", path, domain.ErrUnauthorized)
	}
	if resp.StatusCode >= 400 {
		c.logger.Error("cloud API call failed",
			"path", path,
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response from %s: %w", path, err)
		}
	}
	return nil
}
