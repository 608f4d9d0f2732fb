package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Default timeouts and intervals for the hub session.
const (
	// defaultHandshakeTimeout bounds the WebSocket upgrade.
	defaultHandshakeTimeout = 10 * time.Second

	// defaultAuthTimeout bounds the auth_required/auth/auth_ok exchange.
	defaultAuthTimeout = 10 * time.Second

	// defaultRequestTimeout is the per-request response timeout.
	defaultRequestTimeout = 10 * time.Second

	// defaultKeepaliveInterval is how often an application-level ping is
	// sent on an idle connection.
	defaultKeepaliveInterval = 30 * time.Second

	// defaultPongTimeout is how long a ping waits for its pong before the
	// socket is forced closed.
	defaultPongTimeout = 5 * time.Second

	// defaultReconnectDelay is the fixed delay between reconnection
	// attempts after an unexpected close.
	defaultReconnectDelay = 5 * time.Second

	// defaultMaxRetries bounds consecutive failed reconnection attempts
	// before the client gives up until an explicit Connect.
	defaultMaxRetries = 10

	// defaultWriteTimeout bounds a single frame write.
	defaultWriteTimeout = 5 * time.Second

	// defaultCloseGrace is how long Close waits for the hub to confirm the
	// polite close before tearing the socket down.
	defaultCloseGrace = 3 * time.Second
)

// Config holds hub connection configuration.
type Config struct {
	// URL is the hub WebSocket endpoint, e.g. "ws://hub.local:8123/api/websocket".
	URL string

	// Token is the long-lived access token presented during the auth
	// handshake.
	Token string

	// RequestTimeout is the per-request response timeout. Default: 10s.
	RequestTimeout time.Duration

	// KeepaliveInterval is the ping cadence. Default: 30s.
	KeepaliveInterval time.Duration

	// PongTimeout is the window a ping waits for its pong. Default: 5s.
	PongTimeout time.Duration

	// ReconnectDelay is the fixed delay between reconnection attempts.
	// Default: 5s.
	ReconnectDelay time.Duration

	// MaxRetries bounds consecutive failed reconnection attempts.
	// Default: 10. Zero means the default; negative disables reconnection.
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = defaultKeepaliveInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = defaultPongTimeout
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ConnEventKind identifies a connection lifecycle transition.
type ConnEventKind string

// Connection lifecycle events emitted by the client.
const (
	ConnEventSocketOpened ConnEventKind = "socket_opened"
	ConnEventConnected    ConnEventKind = "connected"
	ConnEventSocketClosed ConnEventKind = "socket_closed"
	ConnEventDisconnected ConnEventKind = "disconnected"
	ConnEventError        ConnEventKind = "error"
)

// ConnEvent is a typed connection lifecycle notification.
type ConnEvent struct {
	Kind ConnEventKind
	Err  error // set for ConnEventError
}

// PushHandler receives asynchronous event pushes in receipt order.
type PushHandler func(eventType string, data json.RawMessage)

// Stats holds operational statistics for the hub session.
type Stats struct {
	FramesTx         uint64
	FramesRx         uint64
	ReconnectsTotal  uint64
	RequestsTimedOut uint64
	LastActivity     time.Time
	Connected        bool
	Reconnecting     bool
}

// result settles a pending request: either a raw result payload or an error.
type result struct {
	raw json.RawMessage
	err error
}

// pendingRequest is one entry in the pending request table. The channel is
// buffered so settle never blocks; the timer is stopped on settle so it
// cannot fire after the request is resolved.
type pendingRequest struct {
	ch    chan result
	timer *time.Timer
}

// Client maintains one authenticated WebSocket session to the hub.
//
// Request ids are unique and monotonically increasing per connection;
// responses are matched purely by id, independent of arrival order. On an
// unexpected close the client settles every in-flight request with
// ErrTransport and schedules reconnection attempts at a fixed delay until
// MaxRetries is exceeded, after which an explicit Connect is required.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	cfg Config

	// Connection state. gen increments on every established session so
	// that keepalive timers from a previous connection can never act on
	// the current one.
	connMu     sync.Mutex
	conn       *websocket.Conn
	connected  bool
	connecting bool
	gen        uint64
	hubVersion string

	// keepaliveStop is closed when the current session ends.
	keepaliveStop chan struct{}

	writeMu sync.Mutex

	nextID atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]*pendingRequest

	// Reconnection state.
	reconnectMu    sync.Mutex
	reconnectTimer *time.Timer
	retryCount     int
	reconnecting   bool

	closed atomic.Bool

	cbMu        sync.RWMutex
	onPush      PushHandler
	onConnEvent func(ConnEvent)

	logger   Logger
	loggerMu sync.RWMutex

	wg sync.WaitGroup

	// Statistics.
	framesTx         atomic.Uint64
	framesRx         atomic.Uint64
	reconnectsTotal  atomic.Uint64
	requestsTimedOut atomic.Uint64
	lastActivity     atomic.Int64
}

// NewClient creates a hub client. Call Connect to establish the session.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		pending: make(map[uint64]*pendingRequest),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) log() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// SetOnPush sets the handler invoked for every asynchronous event push.
// The handler runs on the read loop so pushes are observed in receipt
// order; it must not block.
func (c *Client) SetOnPush(handler PushHandler) {
	c.cbMu.Lock()
	c.onPush = handler
	c.cbMu.Unlock()
}

// SetOnConnEvent sets the handler for connection lifecycle events.
func (c *Client) SetOnConnEvent(handler func(ConnEvent)) {
	c.cbMu.Lock()
	c.onConnEvent = handler
	c.cbMu.Unlock()
}

func (c *Client) emit(ev ConnEvent) {
	c.cbMu.RLock()
	handler := c.onConnEvent
	c.cbMu.RUnlock()
	if handler != nil {
		handler(ev)
	}
}

// Connect opens the socket, performs the challenge/response auth handshake
// and starts keepalive. It returns the hub's reported version.
//
// A concurrent Connect while a session is open (or being opened) fails
// fast with ErrAlreadyConnected. An explicit Connect supersedes any armed
// reconnection attempt, and a successful one resets the retry counter.
func (c *Client) Connect(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}

	c.connMu.Lock()
	if c.connected || c.connecting {
		c.connMu.Unlock()
		return "", ErrAlreadyConnected
	}
	c.connecting = true
	c.connMu.Unlock()

	// Cancel a pending reconnect so the timer cannot open a second
	// session alongside this one. connecting is already set, so a
	// callback that has passed Stop still bails out at its own guard.
	c.reconnectMu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnecting = false
	c.reconnectMu.Unlock()

	version, err := c.dial(ctx)

	c.connMu.Lock()
	c.connecting = false
	c.connMu.Unlock()

	if err != nil {
		return "", err
	}

	c.reconnectMu.Lock()
	c.retryCount = 0
	c.reconnectMu.Unlock()

	return version, nil
}

// dial establishes one session: socket, auth, loops, events.
func (c *Client) dial(ctx context.Context) (string, error) {
	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, c.cfg.URL, err)
	}
	c.emit(ConnEvent{Kind: ConnEventSocketOpened})

	version, err := c.authenticate(conn)
	if err != nil {
		conn.Close()
		c.emit(ConnEvent{Kind: ConnEventSocketClosed})
		return "", err
	}

	stop := make(chan struct{})

	c.connMu.Lock()
	c.conn = conn
	c.connected = true
	c.gen++
	gen := c.gen
	c.hubVersion = version
	c.keepaliveStop = stop
	c.connMu.Unlock()

	c.lastActivity.Store(time.Now().Unix())

	c.wg.Add(2)
	go c.readLoop(conn, gen)
	go c.keepaliveLoop(gen, stop)

	c.emit(ConnEvent{Kind: ConnEventConnected})
	c.log().Info("hub session established", "version", version)
	return version, nil
}

// authenticate performs the auth_required/auth/auth_ok exchange on a fresh
// socket.
func (c *Client) authenticate(conn *websocket.Conn) (string, error) {
	deadline := time.Now().Add(defaultAuthTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
	}

	var challenge serverMessage
	if err := conn.ReadJSON(&challenge); err != nil {
		return "", fmt.Errorf("%w: reading auth challenge: %w", ErrConnectionFailed, err)
	}
	if challenge.Type != msgTypeAuthRequired {
		return "", fmt.Errorf("%w: expected %s, got %q", ErrConnectionFailed, msgTypeAuthRequired, challenge.Type)
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return "", fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
	}
	auth := map[string]string{"type": msgTypeAuth, "access_token": c.cfg.Token}
	if err := conn.WriteJSON(auth); err != nil {
		return "", fmt.Errorf("%w: sending auth: %w", ErrConnectionFailed, err)
	}

	var verdict serverMessage
	if err := conn.ReadJSON(&verdict); err != nil {
		return "", fmt.Errorf("%w: reading auth result: %w", ErrConnectionFailed, err)
	}

	switch verdict.Type {
	case msgTypeAuthOK:
		// Clear the handshake deadline; the read loop manages liveness
		// through the application-level keepalive from here on.
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return "", fmt.Errorf("%w: clear deadline: %w", ErrConnectionFailed, err)
		}
		if err := conn.SetWriteDeadline(time.Time{}); err != nil {
			return "", fmt.Errorf("%w: clear deadline: %w", ErrConnectionFailed, err)
		}
		return verdict.HubVersion, nil
	case msgTypeAuthInvalid:
		return "", fmt.Errorf("%w: %s", ErrAuthFailed, verdict.Message)
	default:
		return "", fmt.Errorf("%w: unexpected auth frame %q", ErrConnectionFailed, verdict.Type)
	}
}

// readLoop reads frames until the socket closes, routing results to the
// pending table and pushes to the push handler in receipt order.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleSocketClosed(gen, err)
			return
		}

		c.framesRx.Add(1)
		c.lastActivity.Store(time.Now().Unix())

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log().Warn("dropping unparseable frame", "error", err)
			continue
		}

		switch msg.Type {
		case msgTypeResult:
			c.settle(msg.ID, resultFrom(&msg))
		case msgTypePong:
			c.settle(msg.ID, result{})
		case msgTypePing:
			// Hub-initiated application ping: answer with the same id.
			if err := c.writeFrame(map[string]any{"id": msg.ID, "type": msgTypePong}); err != nil {
				c.log().Debug("pong write failed", "error", err)
			}
		case msgTypeEvent:
			if msg.Event != nil {
				c.dispatchPush(msg.Event)
			}
		default:
			c.log().Debug("unhandled frame type", "type", msg.Type)
		}
	}
}

// resultFrom converts a result frame into a settlement value.
func resultFrom(msg *serverMessage) result {
	if msg.Success {
		return result{raw: msg.Result}
	}
	reqErr := &RequestError{Code: "unknown", Message: "request failed"}
	if msg.Error != nil {
		reqErr.Code = msg.Error.Code
		reqErr.Message = msg.Error.Message
	}
	return result{err: reqErr}
}

// dispatchPush hands a push event to the registered handler. Runs on the
// read loop so event order is preserved.
func (c *Client) dispatchPush(ev *PushEvent) {
	c.cbMu.RLock()
	handler := c.onPush
	c.cbMu.RUnlock()
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.log().Error("push handler panic", "event_type", ev.EventType, "panic", r)
		}
	}()
	handler(ev.EventType, ev.Data)
}

// keepaliveLoop sends an application-level ping every interval. A missing
// pong within PongTimeout, or a socket found closed at tick time, forces
// the socket closed and hands control to the reconnection policy.
func (c *Client) keepaliveLoop(gen uint64, stop chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.IsConnected() {
				c.forceClose(gen, ErrNotConnected)
				return
			}
			// The pong settles the pending entry and cancels its timer;
			// the timer firing settles it with ErrRequestTimeout instead.
			if _, _, err := c.send(msgTypePing, nil, c.cfg.PongTimeout); err != nil {
				if c.closed.Load() {
					return
				}
				c.log().Warn("keepalive ping unanswered, forcing close", "error", err)
				c.forceClose(gen, err)
				return
			}
		}
	}
}

// forceClose tears down the socket of the given connection generation. The
// read loop observes the closed socket and performs the actual state
// transition, so there is exactly one close path.
func (c *Client) forceClose(gen uint64, cause error) {
	c.connMu.Lock()
	if gen != c.gen || !c.connected {
		c.connMu.Unlock()
		return
	}
	conn := c.conn
	c.connMu.Unlock()

	c.log().Warn("forcing socket close", "cause", cause)
	if conn != nil {
		conn.Close()
	}
}

// handleSocketClosed transitions out of the connected state once per
// session, settles in-flight requests and schedules reconnection.
func (c *Client) handleSocketClosed(gen uint64, cause error) {
	c.connMu.Lock()
	if gen != c.gen {
		c.connMu.Unlock()
		return
	}
	wasConnected := c.connected
	c.connected = false
	conn := c.conn
	c.conn = nil
	stop := c.keepaliveStop
	c.keepaliveStop = nil
	c.connMu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if stop != nil {
		close(stop)
	}

	// In-flight calls are rejected, never silently dropped.
	c.failPending(fmt.Errorf("%w: connection lost: %v", ErrTransport, cause))

	c.emit(ConnEvent{Kind: ConnEventSocketClosed})
	if wasConnected {
		c.emit(ConnEvent{Kind: ConnEventDisconnected})
	}

	if c.closed.Load() {
		return
	}
	c.log().Info("hub connection lost", "cause", cause)
	c.scheduleReconnect()
}

// scheduleReconnect arms one reconnection attempt after the fixed delay.
// Exceeding MaxRetries gives up permanently until an explicit Connect.
func (c *Client) scheduleReconnect() {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	if c.closed.Load() || c.reconnectTimer != nil || c.cfg.MaxRetries < 0 {
		return
	}

	if c.retryCount >= c.cfg.MaxRetries {
		c.reconnecting = false
		c.log().Error("reconnection retries exhausted, manual reconnect required",
			"attempts", c.retryCount)
		c.emit(ConnEvent{Kind: ConnEventError, Err: ErrRetriesExhausted})
		return
	}

	c.retryCount++
	c.reconnecting = true
	attempt := c.retryCount
	c.log().Info("scheduling reconnection", "attempt", attempt, "delay", c.cfg.ReconnectDelay.String())

	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.reconnectMu.Lock()
		c.reconnectTimer = nil
		c.reconnectMu.Unlock()

		if c.closed.Load() {
			return
		}

		// An explicit Connect may have beaten the timer; there is only
		// ever one session, so stand down rather than dial again.
		c.connMu.Lock()
		if c.connected || c.connecting {
			c.connMu.Unlock()
			c.reconnectMu.Lock()
			c.reconnecting = false
			c.reconnectMu.Unlock()
			return
		}
		c.connecting = true
		c.connMu.Unlock()

		_, err := c.dial(context.Background())

		c.connMu.Lock()
		c.connecting = false
		c.connMu.Unlock()

		if err != nil {
			c.log().Warn("reconnection attempt failed", "attempt", attempt, "error", err)
			c.scheduleReconnect()
			return
		}

		c.reconnectMu.Lock()
		c.retryCount = 0
		c.reconnecting = false
		c.reconnectMu.Unlock()
		c.reconnectsTotal.Add(1)
	})
}

// Send writes a request frame and waits for the matching response or the
// request timeout. The payload keys are merged into the frame next to the
// assigned id and type. Send never retries; callers decide retry policy.
func (c *Client) Send(msgType string, payload map[string]any) (json.RawMessage, error) {
	_, raw, err := c.send(msgType, payload, c.cfg.RequestTimeout)
	return raw, err
}

// send assigns the next request id, registers it with a timeout and writes
// the frame. It returns the id so subscription requests can hand it out.
func (c *Client) send(msgType string, payload map[string]any, timeout time.Duration) (uint64, json.RawMessage, error) {
	if c.closed.Load() {
		return 0, nil, ErrClosed
	}
	if !c.IsConnected() {
		return 0, nil, ErrNotConnected
	}

	id := c.nextID.Add(1)

	frame := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		frame[k] = v
	}
	frame["id"] = id
	frame["type"] = msgType

	p := &pendingRequest{ch: make(chan result, 1)}
	c.pendingMu.Lock()
	c.pending[id] = p
	p.timer = time.AfterFunc(timeout, func() {
		c.requestsTimedOut.Add(1)
		c.settle(id, result{err: fmt.Errorf("%w: %s (id %d) after %s", ErrRequestTimeout, msgType, id, timeout)})
	})
	c.pendingMu.Unlock()

	if err := c.writeFrame(frame); err != nil {
		c.settle(id, result{err: fmt.Errorf("%w: write: %w", ErrTransport, err)})
	}

	res := <-p.ch
	return id, res.raw, res.err
}

// settle resolves a pending request exactly once: the entry is removed
// from the table and its timer stopped under the lock, so a response and
// its timeout can never both deliver.
func (c *Client) settle(id uint64, res result) {
	c.pendingMu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	c.pendingMu.Unlock()

	if !ok {
		c.log().Debug("response for unknown or settled request", "id", id)
		return
	}
	p.ch <- res
}

// failPending settles every outstanding request with the given error.
func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]*pendingRequest)
	c.pendingMu.Unlock()

	for _, p := range pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.ch <- result{err: err}
	}
}

// writeFrame marshals and writes one frame. Writes are serialised; the
// gorilla connection allows a single concurrent writer.
func (c *Client) writeFrame(frame map[string]any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}

	c.framesTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// SubscribeEvents subscribes to pushes, optionally filtered to one event
// type (empty subscribes to all). The returned id identifies the
// subscription for UnsubscribeEvents.
func (c *Client) SubscribeEvents(eventType string) (uint64, error) {
	payload := map[string]any{}
	if eventType != "" {
		payload["event_type"] = eventType
	}
	id, _, err := c.send(msgTypeSubscribeEvents, payload, c.cfg.RequestTimeout)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UnsubscribeEvents cancels a subscription created by SubscribeEvents.
func (c *Client) UnsubscribeEvents(subscription uint64) error {
	_, err := c.Send(msgTypeUnsubscribeEvents, map[string]any{"subscription": subscription})
	return err
}

// Close stops keepalive and reconnection, settles every pending request
// with ErrClosed, sends a polite close if the socket is open and resolves
// once the socket is confirmed closed or the grace timeout elapses.
// Safe to call multiple times.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.reconnectMu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnecting = false
	c.reconnectMu.Unlock()

	c.failPending(ErrClosed)

	c.connMu.Lock()
	conn := c.conn
	open := c.connected
	c.connMu.Unlock()

	if conn != nil && open {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down")
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.log().Debug("polite close failed", "error", err)
		}

		// Wait for the read loop to observe the close, or force it.
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(defaultCloseGrace):
			conn.Close()
		}
	}

	c.wg.Wait()
	c.log().Info("hub client closed")
	return nil
}

// IsConnected reports whether an authenticated session is open.
func (c *Client) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected
}

// HubVersion returns the version reported by the hub during the last
// successful auth handshake.
func (c *Client) HubVersion() string {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.hubVersion
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	c.reconnectMu.Lock()
	reconnecting := c.reconnecting
	c.reconnectMu.Unlock()

	return Stats{
		FramesTx:         c.framesTx.Load(),
		FramesRx:         c.framesRx.Load(),
		ReconnectsTotal:  c.reconnectsTotal.Load(),
		RequestsTimedOut: c.requestsTimedOut.Load(),
		LastActivity:     time.Unix(c.lastActivity.Load(), 0),
		Connected:        c.IsConnected(),
		Reconnecting:     reconnecting,
	}
}
