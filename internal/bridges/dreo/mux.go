package dreo

import "sync"

// Mux routes inbound channel frames to per-device bridges by serial
// number. One channel carries traffic for every device on the account, so
// the mux owns the channel's single message callback for the channel's
// whole lifetime. Reconnects happen below it, and bridges are never
// re-registered on reconnect.
//
// Thread Safety: all methods are safe for concurrent use.
type Mux struct {
	mu      sync.RWMutex
	bridges map[string]*Bridge

	logger Logger
}

// NewMux creates an empty mux.
func NewMux(logger Logger) *Mux {
	return &Mux{
		bridges: make(map[string]*Bridge),
		logger:  logger,
	}
}

// Register adds a bridge to the routing table.
//
// Returns:
//   - error: ErrDuplicateSerial if a bridge with the same serial exists
func (m *Mux) Register(b *Bridge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	serial := b.Serial()
	if _, exists := m.bridges[serial]; exists {
		return ErrDuplicateSerial
	}
	m.bridges[serial] = b
	return nil
}

// Lookup returns the bridge for a serial, if registered.
func (m *Mux) Lookup(serial string) (*Bridge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bridges[serial]
	return b, ok
}

// Bridges returns all registered bridges.
func (m *Mux) Bridges() []*Bridge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Bridge, 0, len(m.bridges))
	for _, b := range m.bridges {
		out = append(out, b)
	}
	return out
}

// HandleMessage is the channel's message callback. One malformed or
// unwanted frame never breaks delivery of subsequent frames: parse
// failures and unknown serials are dropped with at most a diagnostic log,
// and a panicking bridge callback is contained here so one device cannot
// take down the others sharing the channel.
func (m *Mux) HandleMessage(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Error("panic in report handler recovered", "panic", r)
			}
		}
	}()

	msg, err := ParseReportMessage(payload)
	if err != nil {
		if m.logger != nil {
			m.logger.Debug("dropping malformed frame", "error", err)
		}
		return
	}

	m.mu.RLock()
	b, ok := m.bridges[msg.Serial]
	m.mu.RUnlock()

	if !ok {
		// Traffic for a device we don't manage; the channel is shared.
		return
	}

	b.handleReport(msg)
}
