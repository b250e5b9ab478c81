package domain

import (
	"fmt"
	"net/url"
	"time"
)

// ConnectionState represents the lifecycle state of a terminal's
// database connection.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
)

// TerminalConfig holds identity and connection parameters for one physical
// point-of-sale terminal. It is immutable once a sync session starts.
type TerminalConfig struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"nome" yaml:"nome"`
	Filial string `json:"filial" yaml:"filial"`
	Caixa  string `json:"caixa" yaml:"caixa"`

	// Database connection parameters for the terminal's local database
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"porta" yaml:"porta"`
	Database string `json:"banco" yaml:"banco"`
	User     string `json:"usuario" yaml:"usuario"`
	Password string `json:"senha" yaml:"senha"`
	SSLMode  string `json:"sslmode,omitempty" yaml:"sslmode"`

	// Optional per-terminal overrides for the global intervals (milliseconds).
	// Zero means "use the global value".
	CheckIntervalMs int `json:"checkIntervalMs,omitempty" yaml:"check_interval_ms"`
	SyncIntervalMs  int `json:"syncIntervalMs,omitempty" yaml:"sync_interval_ms"`
}

// DSN builds the connection string for the terminal database.
func (c TerminalConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, port, c.Database, sslMode)
}

// SyncInterval returns the effective push interval for this terminal.
func (c TerminalConfig) SyncInterval(global time.Duration) time.Duration {
	if c.SyncIntervalMs > 0 {
		return time.Duration(c.SyncIntervalMs) * time.Millisecond
	}
	return global
}

// CheckInterval returns the effective poll interval for this terminal.
func (c TerminalConfig) CheckInterval(global time.Duration) time.Duration {
	if c.CheckIntervalMs > 0 {
		return time.Duration(c.CheckIntervalMs) * time.Millisecond
	}
	return global
}

// GlobalConfig holds the session-wide configuration shared by every terminal.
type GlobalConfig struct {
	APIURL      string `json:"apiUrl"`
	APIUser     string `json:"apiUser"`
	APIPassword string `json:"-"`

	// CheckInterval is the request-poll period; SyncInterval the periodic
	// push period. Per-terminal overrides may shorten the effective value.
	CheckInterval time.Duration `json:"checkInterval"`
	SyncInterval  time.Duration `json:"syncInterval"`

	// NRegistros caps the number of rows covered by an initial catch-up sync
	NRegistros int `json:"nregistros"`
}
