package driven

import (
	"context"
	"time"
)

// InstanceLock prevents two agent processes from driving the same
// terminal fleet concurrently. The coordinator acquires a named lock on
// start, keeps extending it while the session runs, and releases it on
// stop. Locks auto-expire after TTL so a crashed instance does not wedge
// the fleet forever.
type InstanceLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Safe to call even if the lock is
	// not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	// Returns error if the lock is not held by this instance.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
