package cloud

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
)

// Ensure Channel satisfies the sync engine's channel contract.
var _ dreo.Channel = (*Channel)(nil)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and intervals for the websocket channel.
const (
	// channelPath is the websocket endpoint on the regional API host.
	channelPath = "/websocket"

	// defaultConnectTimeout is the maximum time to wait for the dial and
	// handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout is the timeout for a single frame write.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection
	// attempts.
	defaultReconnectInterval = 5 * time.Second

	// defaultMaxReconnectInterval is the cap on the reconnection backoff.
	defaultMaxReconnectInterval = 2 * time.Minute

	// pongWait is how long a connection may stay silent before the read
	// side considers it dead. Pongs and data frames both reset the clock.
	pongWait = 90 * time.Second

	// pingPeriod is the interval between outbound pings. Must be shorter
	// than pongWait.
	pingPeriod = 30 * time.Second

	// maxFrameSize caps inbound frames (64KB). Report frames are tiny;
	// anything bigger is a broken peer.
	maxFrameSize = 64 * 1024
)

// ChannelConfig holds websocket channel configuration.
type ChannelConfig struct {
	// Server is the regional API host. A value containing "://" is used
	// verbatim as the websocket URL.
	Server string

	// TokenSource returns the current access token, queried on every
	// (re)connect so a refreshed token is picked up without a restart.
	TokenSource func() string

	// ConnectTimeout is the maximum time for the dial and handshake.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration

	// MaxReconnectInterval is the backoff cap.
	// Default: 2 minutes.
	MaxReconnectInterval time.Duration
}

// ChannelStats holds operational statistics.
type ChannelStats struct {
	FramesTx        uint64
	FramesRx        uint64
	ErrorsTotal     uint64
	ReconnectsTotal uint64 // Successful reconnections
	LastActivity    time.Time
	Connected       bool
	Reconnecting    bool // True if currently attempting to reconnect
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Channel is the persistent websocket connection to the cloud. One channel
// carries the traffic for every device on the account.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The message callback is invoked from the read loop, one frame at a
//     time, in arrival order.
//
// Auto-Reconnection:
//   - When the connection is lost, the channel automatically redials.
//   - Uses exponential backoff starting at ReconnectInterval (default 5s)
//     up to MaxReconnectInterval (default 2min).
//   - The message callback survives reconnects; it is registered once for
//     the channel's lifetime.
//   - Reconnection stops only when Close() is called.
type Channel struct {
	cfg ChannelConfig

	conn      *websocket.Conn
	connMu    sync.RWMutex
	connected bool

	// writeMu serializes frame writes and pings; the websocket permits
	// only one concurrent writer.
	writeMu sync.Mutex

	// Reconnection state
	reconnecting   atomic.Bool
	reconnectCount atomic.Int32

	// Message handler callback
	onMessage  func([]byte)
	callbackMu sync.RWMutex

	// Shutdown coordination (closeOnce prevents double-close panics)
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	framesTx        atomic.Uint64
	framesRx        atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64 // Unix timestamp
}

// DialChannel establishes the websocket connection and starts the read
// and ping loops.
//
// Parameters:
//   - ctx: Context for cancellation (used for the initial dial)
//   - cfg: Channel configuration
//
// Returns:
//   - *Channel: Connected channel ready for use
//   - error: ErrInvalidConfig or ErrConnectionFailed
func DialChannel(ctx context.Context, cfg ChannelConfig) (*Channel, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("%w: server is required", ErrInvalidConfig)
	}
	if cfg.TokenSource == nil {
		return nil, fmt.Errorf("%w: token source is required", ErrInvalidConfig)
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.MaxReconnectInterval == 0 {
		cfg.MaxReconnectInterval = defaultMaxReconnectInterval
	}

	ch := &Channel{
		cfg:  cfg,
		done: newCloseOnce(),
	}
	ch.lastActivity.Store(time.Now().Unix())

	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	conn, err := ch.dial(dialCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	ch.installConn(conn)

	ch.wg.Add(1)
	go ch.readLoop()

	ch.wg.Add(1)
	go ch.pingLoop()

	return ch, nil
}

// channelURL builds the websocket URL with the current token. Bare hosts
// get the wss scheme; values that already carry a scheme pass through so
// tests can point the channel at a local server.
func (c *Channel) channelURL() string {
	base := c.cfg.Server
	if !strings.Contains(base, "://") {
		base = "wss://" + base + channelPath
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "accessToken=" + c.cfg.TokenSource() +
		"&timestamp=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// dial performs one websocket dial and handshake.
func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.ConnectTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.channelURL(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}

	conn.SetReadLimit(maxFrameSize)
	return conn, nil
}

// installConn swaps in a fresh connection and marks the channel connected.
func (c *Channel) installConn(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		c.lastActivity.Store(time.Now().Unix())
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.connMu.Lock()
	c.conn = conn
	c.connected = true
	c.connMu.Unlock()
}

// readLoop continuously reads frames from the channel.
// On connection loss, it automatically attempts reconnection with
// exponential backoff.
func (c *Channel) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		if conn == nil {
			if !c.reconnect() {
				return
			}
			continue
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}

			c.errorsTotal.Add(1)
			c.handleDisconnect(err)

			if !c.reconnect() {
				return
			}
			continue
		}

		c.framesRx.Add(1)
		c.lastActivity.Store(time.Now().Unix())
		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck

		c.deliver(payload)
	}
}

// deliver invokes the message callback with panic recovery.
func (c *Channel) deliver(payload []byte) {
	c.callbackMu.RLock()
	callback := c.onMessage
	c.callbackMu.RUnlock()

	if callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logError("message callback panic", fmt.Errorf("%v", r))
		}
	}()
	callback(payload)
}

// pingLoop sends periodic pings so half-open connections are detected
// within pongWait instead of lingering until the next send.
func (c *Channel) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done.Done():
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			connected := c.connected
			c.connMu.RUnlock()

			if !connected || conn == nil {
				continue
			}

			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteTimeout))
			c.writeMu.Unlock()

			if err != nil {
				c.logError("ping failed", err)
				c.errorsTotal.Add(1)
			}
		}
	}
}

// handleDisconnect handles connection loss and logs the transition once.
func (c *Channel) handleDisconnect(err error) {
	c.connMu.Lock()
	wasConnected := c.connected
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	if wasConnected {
		c.logInfo("connection lost, will attempt reconnection", "error", err.Error())
	}
}

// reconnect attempts to re-establish the websocket with exponential
// backoff. Returns true if reconnection succeeded, false if shutdown was
// signalled.
func (c *Channel) reconnect() bool {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return c.waitForReconnection()
	}
	defer c.reconnecting.Store(false)

	backoff := c.cfg.ReconnectInterval

	for {
		if c.isClosed() {
			return false
		}

		attempt := c.reconnectCount.Add(1)
		c.logInfo("attempting reconnection", "attempt", attempt, "backoff", backoff.String())

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
		conn, err := c.dial(ctx)
		cancel()

		if err != nil {
			c.logError("reconnect: dial failed", err)
			c.errorsTotal.Add(1)

			select {
			case <-c.done.Done():
				return false
			case <-time.After(backoff):
			}

			// Exponential backoff with cap
			backoff = time.Duration(float64(backoff) * 1.5)
			if backoff > c.cfg.MaxReconnectInterval {
				backoff = c.cfg.MaxReconnectInterval
			}
			continue
		}

		c.installConn(conn)
		c.reconnectCount.Store(0)
		c.reconnectsTotal.Add(1)
		c.lastActivity.Store(time.Now().Unix())

		c.logInfo("reconnection successful", "total_reconnects", c.reconnectsTotal.Load())
		return true
	}
}

// waitForReconnection waits for another goroutine to complete reconnection.
func (c *Channel) waitForReconnection() bool {
	for c.reconnecting.Load() && !c.isClosed() {
		time.Sleep(100 * time.Millisecond)
	}
	return !c.isClosed() && c.IsConnected()
}

// isClosed returns true if the channel has been closed.
func (c *Channel) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Send writes one frame to the channel.
//
// Sends are fire-and-forget: the call returns once the frame is handed to
// the transport, with no retry and no wait for acknowledgment.
//
// Parameters:
//   - ctx: Context for cancellation
//   - payload: JSON frame bytes
//
// Returns:
//   - error: ErrNotConnected while disconnected, ErrSendFailed on write failure
func (c *Channel) Send(ctx context.Context, payload []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSendFailed, ctx.Err())
	default:
	}

	c.connMu.RLock()
	conn := c.conn
	connected := c.connected
	c.connMu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrSendFailed, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: write: %w", ErrSendFailed, err)
	}

	c.framesTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// SetOnMessage sets the callback for received frames.
//
// Register exactly once, before traffic starts; the registration survives
// reconnects for the channel's whole lifetime. The callback is invoked
// from the read loop in frame arrival order, panics are recovered and
// logged.
//
// Parameters:
//   - callback: Function to call with each raw frame
func (c *Channel) SetOnMessage(callback func([]byte)) {
	c.callbackMu.Lock()
	c.onMessage = callback
	c.callbackMu.Unlock()
}

// SetLogger sets the logger for this channel.
func (c *Channel) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// IsConnected returns true if the websocket is currently established.
func (c *Channel) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Stats returns current operational statistics.
func (c *Channel) Stats() ChannelStats {
	return ChannelStats{
		FramesTx:        c.framesTx.Load(),
		FramesRx:        c.framesRx.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		ReconnectsTotal: c.reconnectsTotal.Load(),
		LastActivity:    time.Unix(c.lastActivity.Load(), 0),
		Connected:       c.IsConnected(),
		Reconnecting:    c.reconnecting.Load(),
	}
}

// HealthCheck verifies the channel is connected.
func (c *Channel) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close gracefully closes the channel.
//
// It signals the read and ping loops to stop and closes the underlying
// connection. Safe to call multiple times.
//
// Returns:
//   - error: nil (closing is best-effort)
func (c *Channel) Close() error {
	c.done.Close()

	c.connMu.Lock()
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
	}

	c.wg.Wait()

	c.logInfo("channel closed")
	return nil
}

// logInfo logs an info message if logger is set.
func (c *Channel) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (c *Channel) logError(msg string, err error) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
