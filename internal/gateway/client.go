package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// client pairs one authenticated user with one websocket connection and
// pumps frames in both directions.
//
// The send queue is guarded by mu: bus delivery can race disconnect
// teardown (Lookup before unregister, Send after), so Send must observe
// the closed flag under the same lock teardown takes before closing the
// channel.
type client struct {
	userID string
	conn   *websocket.Conn
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(userID string, conn *websocket.Conn, log *slog.Logger) *client {
	return &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 32),
		log:    log,
	}
}

// Send enqueues an encoded frame for delivery. Signaling events are small
// and idempotent to miss; a slow client gets frames dropped rather than
// stalling the hub, and a frame arriving after teardown is dropped rather
// than panicking on the closed queue.
func (c *client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("dropping frame to slow websocket client", "user", c.userID)
	}
}

// shutdown closes the send queue exactly once so writePump terminates
// with a close frame. Safe to call concurrently with Send.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// inboundMessage is the client->server signaling envelope.
type inboundMessage struct {
	Type string      `json:"type"`
	Data inboundData `json:"data"`
}

// inboundData tolerates the three peer-field spellings clients send:
// cancel-call names calleeId, decline-call names callerId, end-call names
// peerId.
type inboundData struct {
	CallID   string `json:"callId"`
	PeerID   string `json:"peerId"`
	CallerID string `json:"callerId"`
	CalleeID string `json:"calleeId"`
}

func (d inboundData) peer() string {
	switch {
	case d.PeerID != "":
		return d.PeerID
	case d.CallerID != "":
		return d.CallerID
	default:
		return d.CalleeID
	}
}

// outboundFrame is the server->client event envelope.
type outboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readPump consumes inbound frames until the connection dies, handing
// signaling messages to handle. Malformed frames are logged and dropped;
// they never cost the client its connection.
func (c *client) readPump(handle func(*client, inboundMessage)) {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", "user", c.userID, "err", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.log.Warn("dropping malformed websocket message", "user", c.userID)
			continue
		}
		handle(c, msg)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. Closing the send channel terminates it with a close frame.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
