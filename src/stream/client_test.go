package stream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"copyexecutor/src/protocol"
)

type staticToken string

func (t staticToken) Token() (string, error) { return string(t), nil }

type failingToken struct{}

func (failingToken) Token() (string, error) { return "", errors.New("login failed") }

func testConfig(url string) Config {
	return Config{
		URL:                  url,
		HeartbeatPeriod:      20 * time.Millisecond,
		HandshakeTimeout:     time.Second,
		WriteTimeout:         time.Second,
		BackoffBase:          10 * time.Millisecond,
		BackoffCap:           50 * time.Millisecond,
		BackoffJitter:        0,
		MaxReconnectAttempts: 3,
	}
}

// streamServer upgrades each request and hands the connection to accept.
// Tokens seen in the query string are recorded.
type streamServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	tokens []string
	conns  chan *websocket.Conn
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{conns: make(chan *websocket.Conn, 8)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.tokens = append(s.tokens, r.URL.Query().Get("token"))
		s.mu.Unlock()

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
	}))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *streamServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *streamServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection arrived")
		return nil
	}
}

func (s *streamServer) seenTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// readFrame reads one outbound client frame from the server side.
func readFrame(t *testing.T, conn *websocket.Conn) protocol.Outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.Outbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("server read failed: %v", err)
	}
	return msg
}

func collectDispatch() (Dispatch, chan *protocol.Inbound) {
	got := make(chan *protocol.Inbound, 16)
	return func(msg *protocol.Inbound) { got <- msg }, got
}

func waitForState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, still %s", want, c.State())
}

func TestConnectRequestsSnapshotAndDispatchesInOrder(t *testing.T) {
	server := newStreamServer(t)
	dispatch, got := collectDispatch()
	client := NewClient(testConfig(server.wsURL()), staticToken("tok-123"), dispatch)
	defer client.Disconnect()

	client.Connect()
	conn := server.waitConn(t)

	first := readFrame(t, conn)
	assert.Equal(t, protocol.TypeGetPending, first.Type)
	assert.Equal(t, []string{"tok-123"}, server.seenTokens())

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pending_trades","trades":[{"id":"T1","size":"1","price":"0.5","status":"pending"},{"id":"T2","size":"2","price":"0.5","status":"pending"}]}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"trade_status","trade_id":"T1","status":"executed"}`))

	msg := <-got
	assert.Equal(t, protocol.TypePendingTrades, msg.Type)
	if assert.Len(t, msg.Trades, 2) {
		assert.Equal(t, "T1", msg.Trades[0].ID)
		assert.Equal(t, "T2", msg.Trades[1].ID)
	}

	msg = <-got
	assert.Equal(t, protocol.TypeTradeStatus, msg.Type)
	assert.Equal(t, "T1", msg.TradeID)

	assert.Equal(t, StateOpen, client.State())
}

func TestMalformedFramesAreDropped(t *testing.T) {
	server := newStreamServer(t)
	dispatch, got := collectDispatch()
	client := NewClient(testConfig(server.wsURL()), staticToken("tok"), dispatch)
	defer client.Disconnect()

	client.Connect()
	conn := server.waitConn(t)
	readFrame(t, conn) // get_pending

	conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"no_type":true}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))

	msg := <-got
	assert.Equal(t, protocol.TypeHeartbeat, msg.Type, "only the valid frame reaches dispatch")
	assert.Empty(t, got)
}

func TestHeartbeatPings(t *testing.T) {
	server := newStreamServer(t)
	dispatch, _ := collectDispatch()
	client := NewClient(testConfig(server.wsURL()), staticToken("tok"), dispatch)
	defer client.Disconnect()

	client.Connect()
	conn := server.waitConn(t)
	readFrame(t, conn) // get_pending

	msg := readFrame(t, conn)
	assert.Equal(t, protocol.TypePing, msg.Type)
}

func TestSendWhileDisconnectedDropsFrame(t *testing.T) {
	dispatch, _ := collectDispatch()
	client := NewClient(testConfig("ws://localhost:1"), staticToken("tok"), dispatch)

	assert.False(t, client.Send(protocol.Ping()))
	assert.Equal(t, StateDisconnected, client.State())
}

func TestNoTokenAbandonsAttempt(t *testing.T) {
	server := newStreamServer(t)
	dispatch, _ := collectDispatch()
	client := NewClient(testConfig(server.wsURL()), failingToken{}, dispatch)

	client.Connect()
	waitForState(t, client, StateDisconnected)

	assert.Empty(t, server.seenTokens(), "no dial should happen without a token")
	assert.Equal(t, 0, client.ReconnectAttempt())
}

func TestReconnectsAfterUncleanClose(t *testing.T) {
	server := newStreamServer(t)
	dispatch, _ := collectDispatch()
	client := NewClient(testConfig(server.wsURL()), staticToken("tok"), dispatch)
	defer client.Disconnect()

	client.Connect()
	first := server.waitConn(t)
	readFrame(t, first)

	// Drop the connection without a close frame.
	first.UnderlyingConn().Close()

	second := server.waitConn(t)
	msg := readFrame(t, second)
	assert.Equal(t, protocol.TypeGetPending, msg.Type, "reconnect re-requests the snapshot")

	waitForState(t, client, StateOpen)
	assert.Equal(t, 0, client.ReconnectAttempt(), "attempt counter resets on success")
}

func TestDisconnectCancelsScheduledReconnect(t *testing.T) {
	server := newStreamServer(t)
	dispatch, _ := collectDispatch()

	cfg := testConfig(server.wsURL())
	cfg.BackoffBase = 100 * time.Millisecond
	client := NewClient(cfg, staticToken("tok"), dispatch)

	client.Connect()
	conn := server.waitConn(t)
	readFrame(t, conn)

	conn.UnderlyingConn().Close()
	client.Disconnect()

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, StateDisconnected, client.State())
	select {
	case <-server.conns:
		t.Fatal("a cancelled reconnect still dialed")
	default:
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	// A plain HTTP handler rejects every upgrade.
	reject := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer reject.Close()

	dispatch, _ := collectDispatch()
	cfg := testConfig("ws" + strings.TrimPrefix(reject.URL, "http"))
	cfg.MaxReconnectAttempts = 2
	client := NewClient(cfg, staticToken("tok"), dispatch)

	client.Connect()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.ReconnectAttempt() >= cfg.MaxReconnectAttempts && client.State() == StateDisconnected {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, cfg.MaxReconnectAttempts, client.ReconnectAttempt())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateDisconnected, client.State())
}

func TestConnectWhileOpenIsNoop(t *testing.T) {
	server := newStreamServer(t)
	dispatch, _ := collectDispatch()
	client := NewClient(testConfig(server.wsURL()), staticToken("tok"), dispatch)
	defer client.Disconnect()

	client.Connect()
	server.waitConn(t)
	waitForState(t, client, StateOpen)

	client.Connect()
	time.Sleep(50 * time.Millisecond)

	select {
	case <-server.conns:
		t.Fatal("second Connect opened another connection")
	default:
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	client := NewClient(Config{
		BackoffBase:   time.Second,
		BackoffCap:    30 * time.Second,
		BackoffJitter: time.Second,
	}, staticToken("tok"), nil)

	cases := []struct {
		attempt int
		floor   time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped
		{10, 30 * time.Second}, // still capped
	}
	for _, tc := range cases {
		for i := 0; i < 20; i++ {
			delay := client.backoffDelay(tc.attempt)
			if delay < tc.floor || delay >= tc.floor+time.Second {
				t.Fatalf("attempt %d: delay %s outside [%s, %s)", tc.attempt, delay, tc.floor, tc.floor+time.Second)
			}
		}
	}
}
