package driven

import (
	"context"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// TerminalDB opens connections to terminal databases.
type TerminalDB interface {
	// Connect establishes a connection to one terminal's local database.
	// It verifies the connection with a ping before returning.
	Connect(ctx context.Context, cfg domain.TerminalConfig) (TerminalConn, error)
}

// TerminalConn is a live handle to one terminal's local database. The
// handle is owned exclusively by that terminal's reconnection supervisor;
// it must tolerate interleaved queries from the poller and the push
// scheduler, but it never retries internally - retry is the supervisor's
// responsibility.
//
// A query failure caused by a lost connection is reported wrapped in
// domain.ErrConnectionLost, distinct from a data/query error, because
// callers branch on this.
type TerminalConn interface {
	// Ping executes a trivial no-op query to verify liveness
	Ping(ctx context.Context) error

	// SaleLines returns the raw sale-item rows for a date/branch/register
	// triple, in the order defined by the query (date ascending, order
	// number descending).
	SaleLines(ctx context.Context, date, filial, caixa string) ([]domain.SaleLine, error)

	// CancellationLines returns the raw cancelled-item rows for a
	// date/branch/register triple, in query-defined order.
	CancellationLines(ctx context.Context, date, filial, caixa string) ([]domain.CancellationLine, error)

	// CountLines returns the number of sale rows available for a
	// date/branch/register triple (used for initial catch-up bookkeeping).
	CountLines(ctx context.Context, date, filial, caixa string) (int, error)

	// Close releases the connection
	Close() error
}
