package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateStore = (*StateStore)(nil)

const stateKey = "caixasync:session:state"

// StateStore persists the session document in Redis under a single key,
// with no TTL so it survives process restarts. When a cipher is
// configured the document is sealed before being written, because it
// carries terminal credentials and the bearer token.
type StateStore struct {
	client *redis.Client
	cipher *StateCipher // optional
	logger *slog.Logger
}

// NewStateStore creates a Redis-backed StateStore. cipher may be nil
// for plain-JSON persistence (development mode).
func NewStateStore(client *redis.Client, cipher *StateCipher, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{client: client, cipher: cipher, logger: logger}
}

// Save writes the session document, replacing any previous one.
func (s *StateStore) Save(ctx context.Context, state *domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	if s.cipher != nil {
		data, err = s.cipher.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to seal session state: %w", err)
		}
	}

	if err := s.client.Set(ctx, stateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// Load reads the persisted session document. A corrupted document is
// logged and treated as absent state, never as a fatal error.
func (s *StateStore) Load(ctx context.Context) (*domain.SessionState, error) {
	data, err := s.client.Get(ctx, stateKey).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	if s.cipher != nil {
		data, err = s.cipher.Open(data)
		if err != nil {
			s.logger.Warn("persisted state could not be opened, treating as absent", "error", err)
			return nil, domain.ErrNotFound
		}
	}

	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("persisted state is corrupted, treating as absent", "error", err)
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Clear removes the persisted session document.
func (s *StateStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, stateKey).Err(); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
