package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cueboard/cueboard/server/internal/registry"
)

// client is one connected WebSocket client. It implements registry.Conn.
type client struct {
	conn         *websocket.Conn
	encode       encoder
	writeTimeout time.Duration

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, enc encoder, opts Options) *client {
	return &client{
		conn:         conn,
		encode:       enc,
		writeTimeout: opts.WriteTimeout,
		send:         make(chan []byte, opts.SendBuffer),
	}
}

// Send queues m for the write pump. It never blocks: a full queue means the
// client is not keeping up and is reported as registry.ErrSlowClient.
// Messages the negotiated protocol cannot carry are skipped.
func (c *client) Send(m registry.Message) error {
	data, ok, err := c.encode(m)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return registry.ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return registry.ErrSlowClient
	}
}

// Close stops the write pump, which sends a close frame and closes the
// connection. Safe to call more than once.
func (c *client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// write sends one frame, bounded by the client's write timeout. A client
// that misses the deadline gets an error, and the pump closes it.
func (c *client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)) //nolint:errcheck
	return c.conn.WriteMessage(messageType, data)
}

// writePump owns all writes to the connection: queued messages, keepalive
// pings, and the close frame once Close has been called. Closing the
// connection on exit makes readPump return, which deregisters the client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards incoming frames and keeps the read deadline fresh on
// every pong. It returns once the peer goes away or stops answering pings.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
