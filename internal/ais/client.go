// Package ais keeps a single subscription to the upstream AIS position
// stream alive and emits validated vessel fixes.
package ais

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/bronvakt/bronvakt/internal/bridges"
)

const (
	// DefaultURL is the aisstream.io streaming endpoint.
	DefaultURL = "wss://stream.aisstream.io/v0/stream"

	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second

	// The upstream forgets idle subscriptions; re-send ours on a cadence.
	subscribeInterval = 60 * time.Second

	maxReconnectAttempts = 20
)

// backoffTable holds the reconnect delays; attempts beyond the table reuse
// the last entry. A small jitter is added to each.
var backoffTable = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// StatusKind enumerates connection lifecycle events.
type StatusKind int

const (
	StatusConnected StatusKind = iota
	StatusDisconnected
	StatusMaxReconnectsReached
)

// StatusEvent is emitted on connection state changes.
type StatusEvent struct {
	Kind StatusKind
	Err  error
}

// ConnectionStats is the client's observable state.
type ConnectionStats struct {
	Connected         bool
	ReconnectAttempts int
	LastMessageTime   time.Time
	Uptime            time.Duration
	InvalidDropped    uint64
	IgnoredFrames     uint64
}

// Config configures the stream client.
type Config struct {
	URL    string
	APIKey string
}

// Client owns the websocket and its reconnection state. Fixes and status
// changes are delivered on channels; both are closed by Close.
type Client struct {
	cfg Config

	fixes  chan Fix
	status chan StatusEvent

	connMu sync.RWMutex
	conn   *websocket.Conn

	mu                sync.Mutex
	connected         bool
	connectedSince    time.Time
	reconnectAttempts int
	lastMessage       time.Time
	invalidDropped    uint64
	ignoredFrames     uint64
	closed            bool

	done chan struct{}

	// Invalid frames arrive in bursts; keep the log readable.
	dropLog *rate.Limiter
}

// New creates a client. Connect must be called to start it.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return &Client{
		cfg:     cfg,
		fixes:   make(chan Fix, 256),
		status:  make(chan StatusEvent, 16),
		done:    make(chan struct{}),
		dropLog: rate.NewLimiter(rate.Every(10*time.Second), 3),
	}
}

// Fixes returns the channel of validated position reports.
func (c *Client) Fixes() <-chan Fix { return c.fixes }

// Status returns the channel of connection lifecycle events.
func (c *Client) Status() <-chan StatusEvent { return c.status }

// Connect dials the stream and starts the read and keep-alive loops. A
// transport failure on the initial dial is returned as *ConnectionError;
// later failures are handled by the reconnect loop.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	if err := c.dial(ctx); err != nil {
		return err
	}
	go c.readLoop(ctx)
	go c.keepAliveLoop(ctx)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	if err := c.writeSubscription(conn); err != nil {
		conn.Close()
		return &ConnectionError{Err: err}
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.mu.Lock()
	c.connected = true
	c.connectedSince = time.Now()
	c.reconnectAttempts = 0
	c.mu.Unlock()

	c.emitStatus(StatusEvent{Kind: StatusConnected})
	slog.Info("ais stream connected", "url", c.cfg.URL)
	return nil
}

// subscription is the upstream wire frame: the API key plus the fixed
// bounding box covering the canal.
type subscription struct {
	APIKey        string         `json:"APIKey"`
	BoundingBoxes [][][2]float64 `json:"BoundingBoxes"`
}

func (c *Client) writeSubscription(conn *websocket.Conn) error {
	sub := subscription{
		APIKey: c.cfg.APIKey,
		BoundingBoxes: [][][2]float64{{
			bridges.BoundingBox[0],
			bridges.BoundingBox[1],
		}},
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(subscribeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn == nil {
				continue
			}
			if err := c.writeSubscription(conn); err != nil {
				slog.Warn("ais keep-alive subscription failed", "error", err)
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(ctx, err)
			return
		}

		c.mu.Lock()
		c.lastMessage = time.Now()
		c.mu.Unlock()

		fix, err := parseFrame(message, time.Now())
		if err != nil {
			c.mu.Lock()
			c.invalidDropped++
			c.mu.Unlock()
			if c.dropLog.Allow() {
				slog.Debug("ais frame dropped", "error", err)
			}
			continue
		}
		if fix == nil {
			c.mu.Lock()
			c.ignoredFrames++
			c.mu.Unlock()
			continue
		}

		select {
		case c.fixes <- *fix:
		case <-c.done:
			return
		}
	}
}

// handleClose is the only place a Disconnected event is emitted, so a
// failing connection can never double-report.
func (c *Client) handleClose(ctx context.Context, cause error) {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	closed := c.closed
	c.mu.Unlock()

	if wasConnected {
		c.emitStatus(StatusEvent{Kind: StatusDisconnected, Err: cause})
	}
	if closed || websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
		// Normal close: do not reconnect.
		return
	}

	slog.Warn("ais stream lost", "error", cause)
	go c.reconnect(ctx)
}

func (c *Client) reconnect(ctx context.Context) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.reconnectAttempts++
		attempt := c.reconnectAttempts
		c.mu.Unlock()

		if attempt > maxReconnectAttempts {
			slog.Error("ais stream reconnect budget exhausted")
			c.emitStatus(StatusEvent{Kind: StatusMaxReconnectsReached, Err: ErrMaxReconnectAttempts})
			return
		}

		delay := backoffTable[len(backoffTable)-1]
		if attempt-1 < len(backoffTable) {
			delay = backoffTable[attempt-1]
		}
		// ±20% jitter so restarting fleets don't thunder in step.
		jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(delay))
		delay += jitter

		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		slog.Info("ais stream reconnecting", "attempt", attempt, "delay", delay.Round(time.Millisecond))
		if err := c.dial(ctx); err != nil {
			continue
		}
		go c.readLoop(ctx)
		return
	}
}

func (c *Client) emitStatus(ev StatusEvent) {
	select {
	case c.status <- ev:
	default:
		// A slow consumer must not stall the read loop.
	}
}

// Stats returns a snapshot of the connection state.
func (c *Client) Stats() ConnectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := ConnectionStats{
		Connected:         c.connected,
		ReconnectAttempts: c.reconnectAttempts,
		LastMessageTime:   c.lastMessage,
		InvalidDropped:    c.invalidDropped,
		IgnoredFrames:     c.ignoredFrames,
	}
	if c.connected {
		stats.Uptime = time.Since(c.connectedSince)
	}
	return stats
}

// Close shuts the client down. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}
	return nil
}
