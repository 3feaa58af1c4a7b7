package kitchenos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

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

// Timeouts and intervals for the push gateway connection.
const (
	// defaultPushURL is the production KitchenOS push gateway.
	defaultPushURL = "wss://api.fresco-kitchenos.com/notifications"

	// handshakeTimeout bounds the WebSocket upgrade.
	handshakeTimeout = 15 * time.Second

	// connectTimeout bounds one token-refresh-plus-dial attempt.
	connectTimeout = 30 * time.Second

	// readTimeout is the idle read limit. Pongs and data frames extend it.
	readTimeout = 90 * time.Second

	// pingInterval is how often the keepalive ping is sent.
	pingInterval = 30 * time.Second

	// pingWriteTimeout bounds each ping write.
	pingWriteTimeout = 10 * time.Second

	// initialReconnectDelay is the backoff after the first failure. It
	// doubles per consecutive failure up to maxReconnectDelay.
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second

	// maxFrameBytes caps a single push frame.
	maxFrameBytes = 1 << 20
)

// IdentityTokenSource supplies fresh identity tokens for the push gateway.
type IdentityTokenSource interface {
	IdentityToken(ctx context.Context) (string, error)
}

// Ensure TokenManager satisfies IdentityTokenSource.
var _ IdentityTokenSource = (*TokenManager)(nil)

// NotificationsConfig configures the push gateway connection.
type NotificationsConfig struct {
	// URL is the push gateway endpoint (ws or wss scheme).
	// Default: the production gateway.
	URL string

	// Tokens supplies identity tokens for the connection handshake.
	// Required.
	Tokens IdentityTokenSource

	// Dialer overrides the WebSocket dialer. Optional, used in tests.
	Dialer *websocket.Dialer

	// Logger for connection lifecycle events. Optional.
	Logger Logger
}

// pushFrame is the wire shape of a gateway frame. Advisory frames carry only
// a message (the gateway sends {"message":"Forbidden"} when the token goes
// stale mid-session); state frames carry the device fields.
type pushFrame struct {
	Message     string           `json:"message"`
	DeviceID    string           `json:"device_id"`
	DeviceState string           `json:"device_state"`
	Capability  *CapabilityState `json:"capability"`
}

// Notifications mirrors appliance state pushed by the KitchenOS gateway over
// a single WebSocket connection.
//
// Lifecycle:
//   - Start launches a pump goroutine that authenticates, dials, reads and
//     dispatches frames.
//   - A lost connection marks every seen device unavailable, then reconnects
//     with doubling backoff (1s up to 30s). A successful dial resets the
//     backoff.
//   - Stop tears the pump down and waits for it; no listener is invoked
//     after Stop returns.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Listeners run on the pump goroutine, one frame at a time, so each
//     listener observes its device's frames in arrival order.
type Notifications struct {
	cfg    NotificationsConfig
	dialer *websocket.Dialer

	mu             sync.RWMutex
	running        bool
	connected      bool
	everConnected  bool
	connectedSince time.Time
	conn           *websocket.Conn
	snapshots      map[string]Snapshot
	available      map[string]bool
	listeners      map[string]map[int]ListenerFunc
	nextListenerID int

	// Shutdown coordination (closeOnce prevents double-close panics)
	done *closeOnce
	wg   sync.WaitGroup

	// Statistics (atomic for performance)
	framesReceived  atomic.Uint64
	framesDropped   atomic.Uint64
	advisoryFrames  atomic.Uint64
	listenerPanics  atomic.Uint64
	reconnectsTotal atomic.Uint64
}

// NewNotifications creates a push gateway client. It does not connect;
// call Start.
func NewNotifications(cfg NotificationsConfig) (*Notifications, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("kitchenos: notifications token source is required")
	}
	if cfg.URL == "" {
		cfg.URL = defaultPushURL
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("kitchenos: invalid push gateway url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("kitchenos: push gateway url must use ws or wss scheme, got %q", u.Scheme)
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}

	return &Notifications{
		cfg:       cfg,
		dialer:    dialer,
		snapshots: make(map[string]Snapshot),
		available: make(map[string]bool),
		listeners: make(map[string]map[int]ListenerFunc),
		done:      newCloseOnce(),
	}, nil
}

// Start launches the connection pump. Safe to call multiple times; a no-op
// after Stop.
func (n *Notifications) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running || n.isClosed() {
		return
	}
	n.running = true

	n.wg.Add(1)
	go n.pump()
}

// Stop shuts the pump down and waits for it to exit. Seen devices are
// reported unavailable to their listeners before Stop returns, and no
// listener is invoked afterwards. Safe to call multiple times.
func (n *Notifications) Stop() {
	n.done.Close()

	// Closing the live connection unblocks a pending read.
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn != nil {
		conn.Close()
	}

	n.wg.Wait()

	n.mu.Lock()
	n.running = false
	n.mu.Unlock()
}

// Running reports whether the pump has been started and not yet stopped.
func (n *Notifications) Running() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.running && !n.isClosed()
}

// AddListener registers fn for state updates of one device. If a snapshot
// for the device already exists it is delivered to fn before AddListener
// returns. The returned closure removes the registration and is safe to
// call multiple times.
func (n *Notifications) AddListener(deviceID string, fn ListenerFunc) func() {
	n.mu.Lock()
	if n.listeners[deviceID] == nil {
		n.listeners[deviceID] = make(map[int]ListenerFunc)
	}
	id := n.nextListenerID
	n.nextListenerID++
	n.listeners[deviceID][id] = fn
	snap, replay := n.snapshots[deviceID]
	n.mu.Unlock()

	if replay && !n.isClosed() {
		n.invoke(fn, snap)
	}

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if m := n.listeners[deviceID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(n.listeners, deviceID)
			}
		}
	}
}

// State returns the last snapshot received for a device.
func (n *Notifications) State(deviceID string) (Snapshot, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	snap, ok := n.snapshots[deviceID]
	return snap, ok
}

// Available reports whether a device is reachable through the cloud.
//
// A device that has never appeared in a push frame is reported available
// while the pump is running, so freshly configured appliances stay
// controllable before their first frame arrives.
func (n *Notifications) Available(deviceID string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	avail, seen := n.available[deviceID]
	if !seen {
		return n.running && !n.isClosed()
	}
	return avail
}

// Devices returns the IDs of every device seen in a push frame.
func (n *Notifications) Devices() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]string, 0, len(n.snapshots))
	for id := range n.snapshots {
		ids = append(ids, id)
	}
	return ids
}

// Stats returns current operational statistics.
func (n *Notifications) Stats() NotificationStats {
	n.mu.RLock()
	running := n.running && !n.isClosed()
	connected := n.connected
	var since *time.Time
	if connected && !n.connectedSince.IsZero() {
		t := n.connectedSince
		since = &t
	}
	devices := len(n.snapshots)
	n.mu.RUnlock()

	return NotificationStats{
		Running:         running,
		Connected:       connected,
		ConnectedSince:  since,
		FramesReceived:  n.framesReceived.Load(),
		FramesDropped:   n.framesDropped.Load(),
		AdvisoryFrames:  n.advisoryFrames.Load(),
		ListenerPanics:  n.listenerPanics.Load(),
		ReconnectsTotal: n.reconnectsTotal.Load(),
		DevicesSeen:     devices,
	}
}

// pump is the connection loop: connect, read until failure, mark devices
// unavailable, back off, repeat.
func (n *Notifications) pump() {
	defer n.wg.Done()

	failures := 0
	for {
		if n.isClosed() {
			return
		}

		dialled := n.runConnection()
		n.markAllUnavailable()

		if n.isClosed() {
			return
		}

		// A successful dial resets the backoff; the disconnection that
		// ended it counts as the first failure of the next sequence.
		if dialled {
			failures = 1
		} else {
			failures++
		}

		delay := reconnectDelay(failures)
		n.logInfo("push gateway reconnect scheduled", "failures", failures, "delay", delay.String())

		select {
		case <-n.done.Done():
			return
		case <-time.After(delay):
		}
	}
}

// reconnectDelay returns the backoff after n consecutive failures:
// 1s, 2s, 4s, ... capped at maxReconnectDelay.
func reconnectDelay(failures int) time.Duration {
	delay := initialReconnectDelay
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= maxReconnectDelay {
			return maxReconnectDelay
		}
	}
	return delay
}

// runConnection performs one connect/read cycle. The return value reports
// whether the dial succeeded, which resets the reconnect backoff.
func (n *Notifications) runConnection() bool {
	conn, err := n.connect()
	if err != nil {
		if !n.isClosed() {
			n.logWarn("push gateway connect failed", "error", err)
		}
		return false
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()

	// Stop may have missed the connection while it was still dialling;
	// the done channel is authoritative.
	if n.isClosed() {
		conn.Close()
		return true
	}

	n.markConnected()
	n.logInfo("push gateway connected", "url", n.cfg.URL)

	err = n.readLoop(conn)

	n.mu.Lock()
	n.conn = nil
	n.mu.Unlock()
	conn.Close()

	if !n.isClosed() {
		n.logWarn("push gateway connection lost", "error", err)
	}
	return true
}

// connect obtains a fresh identity token and dials the gateway. The token
// travels in the URL query, so the assembled URL must never be logged.
func (n *Notifications) connect() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	go func() {
		select {
		case <-n.done.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	token, err := n.cfg.Tokens.IdentityToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: account has no identity token", ErrAuthFailed)
	}

	endpoint, err := pushURL(n.cfg.URL, token)
	if err != nil {
		return nil, err
	}

	conn, resp, err := n.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial push gateway: status %d: %w", ErrTransport, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: dial push gateway: %w", ErrTransport, err)
	}
	return conn, nil
}

// pushURL appends the identity token to the gateway URL as a query parameter.
func pushURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse push gateway url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop consumes frames until the connection fails. A per-connection
// goroutine sends keepalive pings; pongs and data frames both extend the
// read deadline.
func (n *Notifications) readLoop(conn *websocket.Conn) error {
	connDone := make(chan struct{})
	defer close(connDone)

	conn.SetReadLimit(maxFrameBytes)
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	n.wg.Add(1)
	go n.pingLoop(conn, connDone)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		//nolint:errcheck // Best-effort deadline reset; failures surface on the next read
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n.handleFrame(frame)
	}
}

// pingLoop sends keepalive pings until the connection or the pump ends.
// A failed write closes the connection to break the read loop out early.
func (n *Notifications) pingLoop(conn *websocket.Conn, connDone <-chan struct{}) {
	defer n.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.done.Done():
			return
		case <-connDone:
			return
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; the write error below is what matters
			conn.SetWriteDeadline(time.Now().Add(pingWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// handleFrame classifies and dispatches one gateway frame.
func (n *Notifications) handleFrame(frame []byte) {
	n.framesReceived.Add(1)

	var msg pushFrame
	if err := json.Unmarshal(frame, &msg); err != nil {
		n.framesDropped.Add(1)
		n.logDebug("dropping undecodable push frame", "frame", excerpt(frame))
		return
	}

	if msg.Message != "" {
		// Advisory, not device state. "Forbidden" means the token went
		// stale; the gateway closes shortly after and the reconnect picks
		// up a fresh token.
		n.advisoryFrames.Add(1)
		n.logDebug("push gateway advisory", "message", msg.Message)
		return
	}

	if msg.DeviceID == "" {
		n.framesDropped.Add(1)
		n.logDebug("dropping push frame without device_id")
		return
	}

	snap := Snapshot{
		DeviceID:    msg.DeviceID,
		DeviceState: msg.DeviceState,
		Capability:  msg.Capability,
		ReceivedAt:  time.Now().UTC(),
	}

	n.mu.Lock()
	n.snapshots[snap.DeviceID] = snap
	n.available[snap.DeviceID] = true
	fns := n.listenersFor(snap.DeviceID)
	n.mu.Unlock()

	for _, fn := range fns {
		n.invoke(fn, snap)
	}
}

// markConnected records the live connection and restores availability of
// previously seen devices without dispatching; their next frame or an API
// read reflects the change.
func (n *Notifications) markConnected() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.connected = true
	n.connectedSince = time.Now().UTC()
	if n.everConnected {
		n.reconnectsTotal.Add(1)
	}
	n.everConnected = true

	for id := range n.available {
		n.available[id] = true
	}
}

// markAllUnavailable flips every seen device to unavailable and notifies its
// listeners with the last snapshot. Devices already unavailable are skipped,
// so repeated failed reconnects do not re-notify.
func (n *Notifications) markAllUnavailable() {
	type pending struct {
		fns  []ListenerFunc
		snap Snapshot
	}
	var queue []pending

	n.mu.Lock()
	n.connected = false
	n.connectedSince = time.Time{}
	for id, avail := range n.available {
		if !avail {
			continue
		}
		n.available[id] = false
		queue = append(queue, pending{fns: n.listenersFor(id), snap: n.snapshots[id]})
	}
	n.mu.Unlock()

	for _, p := range queue {
		for _, fn := range p.fns {
			n.invoke(fn, p.snap)
		}
	}
}

// listenersFor copies the listener set for a device. Callers must hold mu.
func (n *Notifications) listenersFor(deviceID string) []ListenerFunc {
	m := n.listeners[deviceID]
	if len(m) == 0 {
		return nil
	}
	fns := make([]ListenerFunc, 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

// invoke runs one listener with panic recovery so a failing listener cannot
// take down the pump or starve other listeners.
func (n *Notifications) invoke(fn ListenerFunc, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			n.listenerPanics.Add(1)
			n.logError("state listener panic", fmt.Errorf("%v", r), "device_id", snap.DeviceID)
		}
	}()
	fn(snap)
}

// isClosed returns true once Stop has been called.
func (n *Notifications) isClosed() bool {
	select {
	case <-n.done.Done():
		return true
	default:
		return false
	}
}

func (n *Notifications) logDebug(msg string, keysAndValues ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Debug(msg, keysAndValues...)
	}
}

func (n *Notifications) logInfo(msg string, keysAndValues ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Info(msg, keysAndValues...)
	}
}

func (n *Notifications) logWarn(msg string, keysAndValues ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Warn(msg, keysAndValues...)
	}
}

func (n *Notifications) logError(msg string, err error, keysAndValues ...any) {
	if n.cfg.Logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		n.cfg.Logger.Error(msg, args...)
	}
}
