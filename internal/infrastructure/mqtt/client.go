package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
)

// Client is the broker connection used by the MQTT surface. It wraps a
// paho client and adds the pieces paho leaves to the caller: subscription
// restore after a reconnect, panic recovery around handlers, online and
// offline status publishing, and a small health interface.
//
// All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	// subs is the set of live subscriptions, keyed by topic pattern.
	// Replayed against the broker every time the session is re-established.
	subs  map[string]sub
	subMu sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger receives handler errors and recovered panics. logging.Logger
// satisfies it; a nil logger silences both.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler processes one inbound message. Paho invokes handlers on
// its own goroutines, so a slow handler stalls delivery for its topic.
// A returned error is logged and the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

type sub struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Connect dials the broker described by cfg and returns a ready client.
// The connection carries a retained LWT on the system status topic, so
// subscribers can tell a crashed bridge from a gracefully stopped one.
// Paho's auto-reconnect is enabled; a client that comes back re-announces
// itself and replays its subscriptions.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]sub),
	}

	opts := brokerOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: no broker response within %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler fires asynchronously. Mark connected here so
	// IsConnected is true as soon as Connect returns.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

func (c *Client) sessionUp() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.replaySubscriptions()
	c.announce(statusOnline, "")

	c.callbackMu.RLock()
	cb := c.onConnect
	c.callbackMu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) sessionDown(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	cb := c.onDisconnect
	c.callbackMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

func (c *Client) replaySubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	// Failures here are transient; the next reconnect replays again.
	for _, s := range c.subs {
		c.paho.Subscribe(s.topic, s.qos, c.recoverHandler(s.handler))
	}
}

// announce publishes a retained status message on the system topic.
func (c *Client) announce(status, reason string) {
	payload := statusPayload(status, c.cfg.Broker.ClientID, reason)
	c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close announces a graceful shutdown and disconnects. The offline message
// it publishes replaces the LWT reason, so a clean stop never looks like a
// crash. Safe to call on a client that already lost its connection.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		payload := statusPayload(statusOffline, c.cfg.Broker.ClientID, reasonShutdown)
		token := c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(publishTimeout)
	}

	c.paho.Disconnect(disconnectQuiesceMs)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck reports whether the broker session is currently up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.paho.IsConnected()
}

// SetOnConnect registers a callback invoked on the initial connection and
// after every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the session drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger routes handler errors and recovered panics to the given logger.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// recoverHandler adapts a MessageHandler to paho's callback shape. A panic
// in a handler is contained to that one message.
func (c *Client) recoverHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if l := c.getLogger(); l != nil {
					l.Error("mqtt handler panicked", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if l := c.getLogger(); l != nil {
				l.Warn("mqtt handler error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
