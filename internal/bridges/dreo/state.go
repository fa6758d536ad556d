package dreo

import "sync"

// State is a snapshot of the last-known device state. It is a value type;
// readers get a copy and never observe partial writes.
type State struct {
	// Power is the last-known power switch position.
	Power bool `json:"power"`

	// SpeedPercent is the consumer-facing normalized speed in [0,100].
	SpeedPercent int `json:"speed_percent"`

	// Oscillating is the last-known oscillation flag. Meaningful only when
	// the device descriptor declares oscillation support.
	Oscillating bool `json:"oscillating"`
}

// Field identifies which state register a change touched.
type Field string

// State fields.
const (
	FieldPower       Field = "power"
	FieldSpeed       Field = "speed"
	FieldOscillation Field = "oscillation"
)

// ChangeSource identifies which write path produced a state change.
type ChangeSource string

// Write paths into the state cache.
const (
	// SourceCommand marks the optimistic write-through path (speed only).
	SourceCommand ChangeSource = "command"

	// SourceReport marks writes applied from inbound report traffic.
	SourceReport ChangeSource = "report"
)

// StateChange describes a single state cache transition, delivered to the
// bridge's change callback.
type StateChange struct {
	Serial string
	Field  Field
	Source ChangeSource
	State  State
}

// stateCache holds the canonical last-known values for one device.
//
// It performs no I/O and no validation; callers clamp values before
// writing. Writers are serialized by the owning bridge, the cache's own
// lock only protects snapshot reads from torn writes.
type stateCache struct {
	mu    sync.RWMutex
	state State
}

func newStateCache(initial State) *stateCache {
	initial.SpeedPercent = ClampPercent(initial.SpeedPercent)
	return &stateCache{state: initial}
}

// Snapshot returns the current values. Always succeeds, never blocks on
// the network.
func (c *stateCache) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *stateCache) setPower(on bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Power = on
	return c.state
}

func (c *stateCache) setSpeedPercent(percent int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SpeedPercent = percent
	return c.state
}

func (c *stateCache) setOscillating(on bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Oscillating = on
	return c.state
}
