package device

import (
	"context"
	"time"
)

// Source values recorded with each history entry. Reports come from the
// device over the cloud channel, commands are optimistic bridge writes,
// and mqtt marks changes requested over the broker.
const (
	StateHistorySourceReport  = "report"
	StateHistorySourceCommand = "command"
	StateHistorySourceMQTT    = "mqtt"
)

// StateSnapshot is the fan state captured by a history entry. The JSON
// shape matches the bridge's published state so history rows and retained
// MQTT payloads read the same.
type StateSnapshot struct {
	Power        bool `json:"power"`
	SpeedPercent int  `json:"speed_percent"`
	Oscillating  bool `json:"oscillating"`
}

// StateHistoryEntry is one recorded state transition. Entries store the
// full snapshot, not a delta, so each row stands on its own and the
// history stays readable when the time-series database is down.
type StateHistoryEntry struct {
	ID         int64         `json:"id"`
	Serial     string        `json:"serial"`
	State      StateSnapshot `json:"state"`
	Source     string        `json:"source"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// StateHistoryRepository persists fan state transitions for the status
// API. Implementations must be safe for concurrent use and store UTC
// timestamps.
type StateHistoryRepository interface {
	// RecordStateChange appends one entry for the fan.
	RecordStateChange(ctx context.Context, serial string, state StateSnapshot, source string) error

	// GetHistory returns up to limit entries for the fan, newest first.
	// Implementations may clamp limit; a missing serial yields an empty
	// slice, not an error.
	GetHistory(ctx context.Context, serial string, limit int) ([]StateHistoryEntry, error)
}
