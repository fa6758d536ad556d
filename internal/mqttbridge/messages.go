package mqttbridge

import (
	"encoding/json"
	"time"
)

// Command actions accepted on the command topic.
const (
	ActionPower     = "power"
	ActionSpeed     = "speed"
	ActionOscillate = "oscillate"
)

// Ack statuses.
const (
	StatusAccepted = "accepted"
	StatusFailed   = "failed"
)

// Command is an inbound command payload.
//
// Wire shape:
//
//	{"id":"6f1c...","action":"speed","value":60}
//
// Value is a bool for power and oscillate, an integer percent for speed.
// ID is optional; the bridge mints one when absent so every ack carries a
// correlation ID.
type Command struct {
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value"`
}

// Ack is published to the ack topic for every command, accepted or not.
type Ack struct {
	ID        string `json:"id"`
	Serial    string `json:"serial"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// newAck builds an ack stamped with the current wall clock.
func newAck(id, serial, action string, err error) Ack {
	ack := Ack{
		ID:        id,
		Serial:    serial,
		Action:    action,
		Status:    StatusAccepted,
		Timestamp: time.Now().UnixMilli(),
	}
	if err != nil {
		ack.Status = StatusFailed
		ack.Error = err.Error()
	}
	return ack
}

// statePayload is published retained to the state topic on every state
// cache transition.
type statePayload struct {
	Serial       string `json:"serial"`
	Power        bool   `json:"power"`
	SpeedPercent int    `json:"speed_percent"`
	Oscillating  bool   `json:"oscillating"`
	Source       string `json:"source"`
	Timestamp    int64  `json:"timestamp"`
}
