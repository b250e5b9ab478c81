package driven

import (
	"context"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// StateStore persists the session document across process restarts.
// A save/load failure is never fatal: the session continues in-memory
// and a corrupted persisted document is treated as absent state.
type StateStore interface {
	// Save writes the session document, replacing any previous one
	Save(ctx context.Context, state *domain.SessionState) error

	// Load reads the persisted session document.
	// Returns domain.ErrNotFound when no (or corrupted) state exists.
	Load(ctx context.Context) (*domain.SessionState, error)

	// Clear removes the persisted session document
	Clear(ctx context.Context) error

	// Ping checks if the store backend is healthy
	Ping(ctx context.Context) error
}
