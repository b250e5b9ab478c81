package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.TerminalDB   = (*Driver)(nil)
	_ driven.TerminalConn = (*Conn)(nil)
)

// Driver opens connections to terminal databases.
type Driver struct {
	logger *slog.Logger

	// ConnectTimeout bounds the initial ping
	ConnectTimeout time.Duration
}

// NewDriver creates a terminal database driver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		logger:         logger,
		ConnectTimeout: 10 * time.Second,
	}
}

// Connect establishes a connection to one terminal's local database and
// verifies it with a ping. The pool is kept tiny: the poller and the
// push scheduler may interleave queries, but nothing else ever shares a
// terminal's connection.
func (d *Driver) Connect(ctx context.Context, cfg domain.TerminalConfig) (driven.TerminalConn, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, d.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		if IsCredentialError(err) {
			d.logger.Warn("terminal database rejected credentials (will keep retrying)",
				"caixa_id", cfg.ID, "error", err)
		}
		return nil, fmt.Errorf("failed to ping terminal database: %w", err)
	}

	return &Conn{db: db, logger: d.logger.With("caixa_id", cfg.ID)}, nil
}

// Conn is a live handle to one terminal's database.
type Conn struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ping executes the liveness no-op query.
func (c *Conn) Ping(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return c.classify(err)
	}
	return nil
}

// SaleLines reads the raw sale-item rows for a date/branch/register
// triple, in the order defined by the query.
func (c *Conn) SaleLines(ctx context.Context, date, filial, caixa string) ([]domain.SaleLine, error) {
	rows, err := c.db.QueryContext(ctx, saleLinesQuery, date, filial, caixa)
	if err != nil {
		return nil, c.classify(err)
	}
	defer rows.Close()

	var lines []domain.SaleLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, c.classify(err)
	}
	return lines, nil
}

// CancellationLines reads the raw cancelled-item rows for a
// date/branch/register triple, in query-defined order.
func (c *Conn) CancellationLines(ctx context.Context, date, filial, caixa string) ([]domain.CancellationLine, error) {
	rows, err := c.db.QueryContext(ctx, cancellationLinesQuery, date, filial, caixa)
	if err != nil {
		return nil, c.classify(err)
	}
	defer rows.Close()

	var lines []domain.CancellationLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cancellation line: %w", err)
		}
		lines = append(lines, domain.CancellationLine(line))
	}
	if err := rows.Err(); err != nil {
		return nil, c.classify(err)
	}
	return lines, nil
}

// CountLines counts the sale rows available for a date/branch/register
// triple.
func (c *Conn) CountLines(ctx context.Context, date, filial, caixa string) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, countLinesQuery, date, filial, caixa).Scan(&n); err != nil {
		return 0, c.classify(err)
	}
	return n, nil
}

// Close releases the connection.
func (c *Conn) Close() error {
	return c.db.Close()
}

// classify wraps connection-loss failures in domain.ErrConnectionLost so
// callers can branch on them; everything else passes through as a plain
// query error. Queries never retry here - retry belongs to the
// supervisor.
func (c *Conn) classify(err error) error {
	if IsConnectionError(err) {
		if IsCredentialError(err) {
			c.logger.Warn("query rejected for credentials, treating as connection loss", "error", err)
		}
		return fmt.Errorf("%w: %v", domain.ErrConnectionLost, err)
	}
	return err
}

// StringPtr converts sql.NullString to a string pointer.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
