package mqttbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
	"github.com/fanbridge/fanbridge/internal/infrastructure/mqtt"
)

// Client is the subset of the broker client the bridge needs. Satisfied
// by *mqtt.Client.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the minimal logging interface the bridge needs. May be nil.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds configuration for creating the MQTT surface.
type Options struct {
	// Client is the connected broker client.
	Client Client

	// Mux routes commands to per-device sync engines by serial.
	Mux *dreo.Mux

	// QoS applies to all publishes and the command subscription.
	QoS byte

	// Logger is optional structured logging.
	Logger Logger
}

// Bridge is the MQTT surface: it mirrors every state cache transition to
// a retained state topic, executes commands arriving on the command
// topics, and acknowledges each one on the ack topic.
//
// Thread Safety: all methods are safe for concurrent use; the underlying
// broker client serializes nothing, so handlers stay re-entrant.
type Bridge struct {
	client Client
	mux    *dreo.Mux
	qos    byte
	topics mqtt.Topics
	logger Logger
}

// New creates the MQTT surface. Call Start to begin receiving commands.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, ErrClientRequired
	}
	if opts.Mux == nil {
		return nil, ErrMuxRequired
	}

	return &Bridge{
		client: opts.Client,
		mux:    opts.Mux,
		qos:    opts.QoS,
		logger: opts.Logger,
	}, nil
}

// Start subscribes to the command topics for all serials. The underlying
// client restores the subscription automatically after broker reconnects.
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.topics.AllFanCommands(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("mqttbridge: subscribe commands: %w", err)
	}
	return nil
}

// PublishState mirrors one state cache transition to the device's
// retained state topic. Intended as (part of) the sync engine's state
// change callback.
//
// Publish failures are logged and dropped; the next transition republishes
// the full snapshot anyway.
func (b *Bridge) PublishState(change dreo.StateChange) {
	payload := statePayload{
		Serial:       change.Serial,
		Power:        change.State.Power,
		SpeedPercent: change.State.SpeedPercent,
		Oscillating:  change.State.Oscillating,
		Source:       string(change.Source),
		Timestamp:    time.Now().UnixMilli(),
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		b.logError("encode state payload", "serial", change.Serial, "error", err)
		return
	}

	topic := b.topics.FanState(change.Serial)
	if err := b.client.Publish(topic, encoded, b.qos, true); err != nil {
		b.logError("publish state", "serial", change.Serial, "error", err)
	}
}

// handleCommand parses and executes one command, then acks it. It always
// returns nil: a malformed or failed command produces a failed ack, not a
// broker-level redelivery.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	serial := serialFromTopic(topic)

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logWarn("invalid command payload", "topic", topic, "error", err)
		b.publishAck(newAck(uuid.NewString(), serial, "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)))
		return nil
	}

	// Every ack carries a correlation ID even when the sender omitted one.
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	err := b.execute(serial, cmd)
	if err != nil {
		b.logWarn("command failed", "serial", serial, "action", cmd.Action, "error", err)
	}
	b.publishAck(newAck(cmd.ID, serial, cmd.Action, err))
	return nil
}

// execute dispatches one command onto the device's sync engine.
func (b *Bridge) execute(serial string, cmd Command) error {
	bridge, ok := b.mux.Lookup(serial)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSerial, serial)
	}

	switch cmd.Action {
	case ActionPower:
		on, err := boolValue(cmd.Value)
		if err != nil {
			return err
		}
		return bridge.SetPower(on)

	case ActionSpeed:
		percent, err := intValue(cmd.Value)
		if err != nil {
			return err
		}
		return bridge.SetSpeed(percent)

	case ActionOscillate:
		on, err := boolValue(cmd.Value)
		if err != nil {
			return err
		}
		return bridge.SetOscillation(on)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

func (b *Bridge) publishAck(ack Ack) {
	encoded, err := json.Marshal(ack)
	if err != nil {
		b.logError("encode ack", "serial", ack.Serial, "error", err)
		return
	}
	if err := b.client.Publish(b.topics.FanAck(ack.Serial), encoded, b.qos, false); err != nil {
		b.logError("publish ack", "serial", ack.Serial, "error", err)
	}
}

// serialFromTopic extracts the serial segment from a command topic
// ("fanbridge/command/{serial}").
func serialFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 {
		return topic
	}
	return topic[idx+1:]
}

func boolValue(raw json.RawMessage) (bool, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("%w: want boolean value: %w", ErrInvalidCommand, err)
	}
	return v, nil
}

func intValue(raw json.RawMessage) (int, error) {
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: want integer value: %w", ErrInvalidCommand, err)
	}
	return v, nil
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
