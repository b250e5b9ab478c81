package domain

import "time"

// APIStats holds cumulative API-call counters by call type. Counters are
// shared mutable state across all terminals' concurrent operations; the
// auth manager guards updates with its own mutex.
type APIStats struct {
	Total         int64     `json:"total"`
	Login         int64     `json:"login"`
	CheckRequests int64     `json:"checkRequests"`
	SendPedidos   int64     `json:"sendPedidos"`
	UpdateStatus  int64     `json:"updateStatus"`
	InsertRequest int64     `json:"insertRequest"`
	LastReset     time.Time `json:"lastReset"`
}

// SessionState is the process-wide session document persisted to durable
// storage after every push cycle and on start/stop, so a restart can
// resume without re-deriving which terminals were active.
type SessionState struct {
	IsActive        bool             `json:"isActive"`
	StartedAt       time.Time        `json:"startedAt"`
	CaixasConfigs   []TerminalConfig `json:"caixasConfigs"`
	GlobalConfig    GlobalConfig     `json:"globalConfig"`
	ConnectedCaixas []string         `json:"connectedCaixas"`
	LastSyncCycle   time.Time        `json:"lastSyncCycle"`
	LastCycleID     string           `json:"lastCycleId,omitempty"`
	APIStats        APIStats         `json:"apiStats"`
	Token           string           `json:"token,omitempty"`
}
