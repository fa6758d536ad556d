package dreo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fanbridge/fanbridge/internal/device"
)

// sendTimeout bounds a single control send on the channel. Sends are
// fire-and-forget; there is no retry and no wait for acknowledgment.
const sendTimeout = 5 * time.Second

// Channel is the bidirectional message channel to the cloud. The transport
// (connection, authentication, reconnection) is owned by the implementation;
// the bridge only sends frames and never sees the socket.
type Channel interface {
	// Send writes one JSON frame to the channel. It returns as soon as the
	// frame is handed to the transport. A closed or unavailable channel
	// must return an error rather than silently dropping the frame.
	Send(ctx context.Context, payload []byte) error

	// IsConnected reports the last-known transport state.
	IsConnected() bool
}

// Logger is the minimal logging interface the bridge needs. Compatible
// with logging.Logger and slog.Logger. May be nil.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Descriptor is the immutable device identity and capabilities.
	Descriptor device.Descriptor

	// Channel is the open message channel shared by all devices.
	Channel Channel

	// Initial seeds the state cache from the snapshot fetched at startup.
	Initial State

	// Logger is optional structured logging.
	Logger Logger
}

// Bridge is the per-device sync engine: it holds the state cache, turns
// Set operations into outbound control frames, and applies inbound report
// deltas routed to it by the Mux.
//
// Thread Safety: all methods are safe for concurrent use.
type Bridge struct {
	desc    device.Descriptor
	channel Channel
	cache   *stateCache

	// opMu serializes the two writer call sites (Set operations and the
	// inbound report handler) so read-then-decide-then-write sequences on
	// the cache cannot interleave.
	opMu sync.Mutex

	// onChange is invoked after every cache transition, outside opMu.
	onChange   func(StateChange)
	onChangeMu sync.RWMutex

	ctx       context.Context
	ctxCancel context.CancelFunc

	logger Logger
}

// NewBridge creates a bridge for one device. The state cache lives for the
// lifetime of the bridge; it is seeded once from opts.Initial and after
// that written only by the Set operations and the inbound report path.
func NewBridge(opts Options) (*Bridge, error) {
	if err := opts.Descriptor.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if opts.Channel == nil {
		return nil, ErrChannelRequired
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		desc:      opts.Descriptor,
		channel:   opts.Channel,
		cache:     newStateCache(opts.Initial),
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    opts.Logger,
	}, nil
}

// Close aborts any in-flight sends. The bridge holds no other resources.
func (b *Bridge) Close() {
	b.ctxCancel()
}

// Descriptor returns the device's immutable descriptor.
func (b *Bridge) Descriptor() device.Descriptor {
	return b.desc
}

// Serial returns the device serial number.
func (b *Bridge) Serial() string {
	return b.desc.Serial
}

// State returns a snapshot of the state cache. Never performs I/O.
func (b *Bridge) State() State {
	return b.cache.Snapshot()
}

// Power returns the cached power value. Never performs I/O.
func (b *Bridge) Power() bool {
	return b.cache.Snapshot().Power
}

// Speed returns the cached speed percent. Never performs I/O.
func (b *Bridge) Speed() int {
	return b.cache.Snapshot().SpeedPercent
}

// Oscillating returns the cached oscillation flag. Never performs I/O.
func (b *Bridge) Oscillating() bool {
	return b.cache.Snapshot().Oscillating
}

// SetOnStateChange registers the callback invoked on every cache
// transition. Register once at wiring time; the callback runs on the
// writer's goroutine and should not block.
func (b *Bridge) SetOnStateChange(callback func(StateChange)) {
	b.onChangeMu.Lock()
	b.onChange = callback
	b.onChangeMu.Unlock()
}

// SetPower requests the given power state.
//
// Wait-for-echo policy: the cache is not touched here. If the cache
// already matches the request the send is suppressed entirely; the device
// may already be converging, or the request is redundant. Otherwise one
// control frame is sent and the cache is updated later by the inbound
// report path.
func (b *Bridge) SetPower(on bool) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.cache.Snapshot().Power == on {
		return nil
	}

	return b.send(ControlParams{Power: &on})
}

// SetSpeed requests the given speed percent (0-100).
//
// The requested percent is scaled to a device-native level, quantized onto
// the snap-point table, and compared with the level implied by the cached
// percent; matching levels suppress the send, as does a computed level of
// 0 (never a legal device speed). A nonzero level is sent together with
// power:true so the device cannot reject the speed while powered off.
//
// Write-through policy: the raw requested percent is cached even when the
// send was suppressed, because the device does not reliably echo speed
// changes and the consumer surface must reflect the last request. A
// transport failure is different from a suppressed send: it returns the
// error and leaves the cache unchanged.
func (b *Bridge) SetSpeed(percent int) error {
	percent = ClampPercent(percent)

	b.opMu.Lock()

	current := LevelFromPercent(b.cache.Snapshot().SpeedPercent, b.desc.MaxLevel)
	requested := QuantizeLevel(LevelFromPercent(percent, b.desc.MaxLevel))

	if requested != current && requested != 0 {
		on := true
		level := requested
		if err := b.send(ControlParams{Power: &on, Level: &level}); err != nil {
			b.opMu.Unlock()
			return err
		}
	}

	state := b.cache.setSpeedPercent(percent)
	b.opMu.Unlock()

	b.notify(StateChange{
		Serial: b.desc.Serial,
		Field:  FieldSpeed,
		Source: SourceCommand,
		State:  state,
	})
	return nil
}

// SetOscillation requests the given oscillation state. Same wait-for-echo
// pattern as SetPower. On devices without oscillation support the
// operation fails with ErrOscillationUnsupported; consumer surfaces should
// not register an oscillation handler for such devices in the first place.
func (b *Bridge) SetOscillation(on bool) error {
	if !b.desc.SupportsOscillation {
		return ErrOscillationUnsupported
	}

	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.cache.Snapshot().Oscillating == on {
		return nil
	}

	return b.send(ControlParams{Oscillation: &on})
}

// send marshals and writes one control frame. Called with opMu held.
func (b *Bridge) send(params ControlParams) error {
	msg := NewControlMessage(b.desc.Serial, params)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrSendFailed, err)
	}

	ctx, cancel := context.WithTimeout(b.ctx, sendTimeout)
	defer cancel()

	if err := b.channel.Send(ctx, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	b.logDebug("control sent",
		"serial", b.desc.Serial,
		"params", string(payload))
	return nil
}

// handleReport applies one inbound report delta to the state cache. Called
// by the mux after serial routing; msg.Serial already matches this device.
//
// Exactly one field changes per frame. Level deltas are applied only for
// the unsolicited "report" method: control echoes are skipped because the
// cache was already written optimistically on send, and re-deriving from
// the echo could overwrite a newer user request with a stale value.
func (b *Bridge) handleReport(msg ReportMessage) {
	if !IsReportMethod(msg.Method) {
		b.logDebug("ignoring unknown method", "serial", b.desc.Serial, "method", msg.Method)
		return
	}

	b.opMu.Lock()

	var (
		change StateChange
		ok     bool
	)

	for key, raw := range msg.Reported {
		switch key {
		case KeyPower:
			var on bool
			if err := json.Unmarshal(raw, &on); err != nil {
				b.logWarn("bad power value in report", "serial", b.desc.Serial, "error", err)
				break
			}
			change = StateChange{Field: FieldPower, State: b.cache.setPower(on)}
			ok = true

		case KeyLevel:
			if msg.Method != MethodReport {
				break
			}
			var level int
			if err := json.Unmarshal(raw, &level); err != nil {
				b.logWarn("bad level value in report", "serial", b.desc.Serial, "error", err)
				break
			}
			percent := PercentFromLevel(level, b.desc.MaxLevel)
			change = StateChange{Field: FieldSpeed, State: b.cache.setSpeedPercent(percent)}
			ok = true

		case KeyOscillation:
			var on bool
			if err := json.Unmarshal(raw, &on); err != nil {
				b.logWarn("bad oscillation value in report", "serial", b.desc.Serial, "error", err)
				break
			}
			change = StateChange{Field: FieldOscillation, State: b.cache.setOscillating(on)}
			ok = true

		default:
			b.logDebug("ignoring unknown report key", "serial", b.desc.Serial, "key", key)
		}
	}

	b.opMu.Unlock()

	if ok {
		change.Serial = b.desc.Serial
		change.Source = SourceReport
		b.notify(change)
	}
}

// notify delivers a change to the registered callback, if any. Runs
// outside opMu so the callback may call back into the bridge.
func (b *Bridge) notify(change StateChange) {
	b.onChangeMu.RLock()
	callback := b.onChange
	b.onChangeMu.RUnlock()

	if callback != nil {
		callback(change)
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
