package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection. It implements player.Connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// done is closed by Close; send is never closed, so Emit can race a
	// disconnect safely.
	done      chan struct{}
	closeOnce sync.Once

	// Guarded by hub.mu
	rooms map[string]bool
}

// ID returns the connection's unique id.
func (c *Client) ID() string { return c.id }

// JoinRoom adds the client to a broadcast room.
func (c *Client) JoinRoom(room string) { c.hub.joinRoom(c, room) }

// LeaveRoom removes the client from a broadcast room.
func (c *Client) LeaveRoom(room string) { c.hub.leaveRoom(c, room) }

// Close asks the write pump to close the connection. It is safe to call
// more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// enqueue queues a frame without blocking. A full buffer closes the client.
func (c *Client) enqueue(data []byte) bool {
	if c.closed() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.hub.logger.Warn("Client send buffer full, closing", "conn_id", c.id)
		c.Close()
		return false
	}
}

// sendMessage queues a message for this client only.
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to marshal message", "conn_id", c.id, "event", msg.Event, "error", err)
		return
	}
	c.enqueue(data)
}

// writePump pumps queued frames to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush whatever else is queued, one frame per message
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
