package postgres

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// connLossSignatures are message fragments that mark a query failure as a
// lost connection rather than a data error. The generic "connection" text
// match is deliberately last and deliberately broad, inherited from the
// systems this agent replaces; keeping the check isolated here means it
// can be swapped for a structured code check without touching callers.
var connLossSignatures = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"bad connection",
	"unexpected eof",
	"i/o timeout",
	"terminating connection",
	"the database system is",
	"connection",
}

// IsConnectionError reports whether a database error means the
// connection to the terminal was lost (or could not be established).
// Credential rejections are classified the same way: both retry
// identically, the caller only logs them differently.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08": // connection exception
			return true
		case "57": // operator intervention (shutdown, crash)
			return true
		case "28": // invalid authorization
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range connLossSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsCredentialError reports whether the failure looks like rejected
// credentials rather than an unreachable host. Both cases retry on the
// same interval, but a permanent misconfiguration deserves a distinct
// log line so it is not silently masked.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "28"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password authentication failed") ||
		strings.Contains(msg, "invalid_password") ||
		strings.Contains(msg, "role") && strings.Contains(msg, "does not exist")
}
