package signal

import (
	"sync"
	"time"

	"campuslive/internal/core/domain"

	"github.com/gorilla/websocket"
)

// client is one connected participant: the WebSocket connection plus a
// single ordered outbound queue. All writes to the connection go through
// writePump, so delivery order per target matches enqueue order.
type client struct {
	id    domain.ParticipantID
	label string

	conn *websocket.Conn

	// mu guards send and closed together: broadcast goroutines may still
	// hold a reference to this client after cleanup removed it from the
	// server map, so enqueue must observe the close instead of racing it.
	mu     sync.Mutex
	send   chan Envelope
	closed bool
}

func newClient(id domain.ParticipantID, label string, conn *websocket.Conn, buffer int) *client {
	return &client{
		id:    id,
		label: label,
		conn:  conn,
		send:  make(chan Envelope, buffer),
	}
}

// enqueue places a message on the outbound queue without blocking. A full
// queue means the consumer has stalled; the caller decides what to do.
// Returns false after close.
func (c *client) enqueue(env Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// close shuts the outbound queue down exactly once. writePump drains what is
// already queued and then closes the connection.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump is the single writer for the connection. It also owns the ping
// ticker; pongs are handled on the read side.
func (c *client) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
