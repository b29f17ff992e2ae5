package stream

import (
	"context"
	"math"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/protocol"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosing      State = "closing"
)

// TokenProvider supplies the session bearer token. It is consulted on
// every connection attempt so a token change takes effect on reconnect.
type TokenProvider interface {
	Token() (string, error)
}

// Dispatch receives decoded inbound frames in arrival order, on the
// single read-loop goroutine of the live connection.
type Dispatch func(msg *protocol.Inbound)

// Client owns the one persistent WebSocket to the copy-trade backend:
// lifecycle, heartbeat and reconnection with exponential backoff.
//
// A generation counter invalidates everything belonging to an older
// connection: a stale backoff timer, a cancelled dial or a read loop
// that outlived Disconnect all become no-ops.
type Client struct {
	cfg      Config
	tokens   TokenProvider
	dispatch Dispatch

	mu             sync.Mutex
	conn           *websocket.Conn
	state          State
	attempt        int
	generation     uint64
	dialCancel     context.CancelFunc
	heartbeatStop  chan struct{}
	reconnectTimer *time.Timer
}

func NewClient(cfg Config, tokens TokenProvider, dispatch Dispatch) *Client {
	return &Client{
		cfg:      cfg,
		tokens:   tokens,
		dispatch: dispatch,
		state:    StateDisconnected,
	}
}

// Connect starts a connection attempt. Calling it while connecting or
// open is a no-op.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	c.mu.Unlock()

	go c.run(gen, ctx)
}

// Disconnect tears the connection down and cancels the heartbeat, any
// scheduled reconnection and any in-flight dial. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.stopHeartbeatLocked()
	if c.conn != nil {
		c.state = StateClosing
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	c.attempt = 0
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) ReconnectAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Send writes one outbound frame. Frames are silently dropped while the
// connection is not open; the post-reconnect snapshot covers the loss.
func (c *Client) Send(msg protocol.Outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen || c.conn == nil {
		logger.WithField("type", msg.Type).Debug("Stream not open, dropping frame")
		return false
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.WithError(err).WithField("type", msg.Type).Warn("Stream write failed")
		return false
	}
	return true
}

func (c *Client) run(gen uint64, ctx context.Context) {
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		logger.WithError(err).Warn("No session token available, abandoning connection attempt")
		c.mu.Lock()
		if c.generation == gen {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return
	}

	endpoint := c.cfg.URL + "?token=" + url.QueryEscape(token)
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		fields := logger.Fields{"url": c.cfg.URL}
		if resp != nil {
			fields["status"] = resp.StatusCode
		}
		logger.WithError(err).WithFields(fields).Warn("Stream dial failed")
		c.handleClosed(gen)
		return
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempt = 0
	hbStop := make(chan struct{})
	c.heartbeatStop = hbStop
	c.mu.Unlock()

	logger.WithField("connId", uuid.NewString()).Info("Stream connected")

	go c.heartbeat(hbStop)

	// Ask for a fresh snapshot so anything missed while offline is
	// replayed authoritatively.
	c.Send(protocol.GetPending())

	c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.generation != gen
			c.mu.Unlock()
			if !stale {
				logger.WithError(err).Warn("Stream read failed")
			}
			c.handleClosed(gen)
			return
		}

		msg, err := protocol.Decode(raw)
		if err != nil {
			logger.WithError(err).Debug("Dropping malformed frame")
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Send(protocol.Ping())
		}
	}
}

// handleClosed runs after any close or transport error. Unless the close
// was requested or the retry budget is spent, it schedules a
// reconnection with exponential backoff and jitter.
func (c *Client) handleClosed(gen uint64) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	wasClosing := c.state == StateClosing
	c.state = StateDisconnected

	if wasClosing {
		c.mu.Unlock()
		return
	}
	if c.attempt >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		logger.WithField("attempts", c.cfg.MaxReconnectAttempts).
			Error("Reconnect attempts exhausted, staying disconnected")
		return
	}

	delay := c.backoffDelay(c.attempt)
	c.attempt++
	attempt := c.attempt
	c.reconnectTimer = time.AfterFunc(delay, func() { c.retry(gen) })
	c.mu.Unlock()

	logger.WithFields(logger.Fields{
		"attempt": attempt,
		"delay":   delay,
	}).Info("Reconnect scheduled")
}

func (c *Client) retry(gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.state = StateConnecting
	c.generation++
	newGen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	c.mu.Unlock()

	go c.run(newGen, ctx)
}

// backoffDelay computes min(cap, base*2^attempt) + random(0, jitter).
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := float64(c.cfg.BackoffBase) * math.Pow(2, float64(attempt))
	if delay > float64(c.cfg.BackoffCap) {
		delay = float64(c.cfg.BackoffCap)
	}
	if c.cfg.BackoffJitter > 0 {
		delay += float64(rand.Int63n(int64(c.cfg.BackoffJitter)))
	}
	return time.Duration(delay)
}

func (c *Client) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}
