package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrNotConnected indicates the terminal database is not currently
	// connected. Dependent operations short-circuit with this error
	// instead of blocking behind a reconnect.
	ErrNotConnected = errors.New("caixa não disponível")

	// ErrConnectionLost indicates a query failed because the underlying
	// database connection was lost. Callers branch on this to trigger
	// reconnection instead of treating it as a data error.
	ErrConnectionLost = errors.New("connection lost")

	// ErrUnauthorized indicates the cloud API rejected the bearer token (HTTP 401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthFailed indicates login against the cloud API was rejected
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNoTerminals indicates a session start could not connect a single terminal
	ErrNoTerminals = errors.New("no terminals connected")

	// ErrLockHeld indicates another agent instance already holds the session lock
	ErrLockHeld = errors.New("session lock held by another instance")
)
