package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/cueboard/cueboard/server/internal/registry"
)

const (
	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames. Clients only send keepalives.
	maxMessageSize = 512
)

// Options configures a Hub.
type Options struct {
	// WriteTimeout is the deadline for a single write to a client.
	WriteTimeout time.Duration

	// SendBuffer is the per-client outgoing message queue depth.
	SendBuffer int
}

// Hub upgrades HTTP requests to WebSocket connections and hands them to the
// registry for their whole lifetime.
type Hub struct {
	reg      *registry.Registry
	opts     Options
	upgrader websocket.Upgrader
}

// New creates a Hub that registers connections with reg.
func New(reg *registry.Registry, opts Options) *Hub {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	return &Hub{
		reg:  reg,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{ProtocolV2, ProtocolV1},
			// Viewers are phones and TVs on the local network; accept any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.reg.CloseAll()
}

// ServeHTTP upgrades the connection, registers it under the role taken from
// the {role} route variable, and serves it until it closes. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := registry.ParseRole(mux.Vars(r)["role"])

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	enc := encoderFor(conn.Subprotocol())
	c := newClient(conn, enc, h.opts)
	slog.Debug("ws: client connected",
		"role", role.String(), "remote", r.RemoteAddr, "protocol", conn.Subprotocol())

	go c.writePump()
	h.reg.Register(c, role)
	defer h.reg.Deregister(c)

	c.readPump() // blocks until connection closes
	slog.Debug("ws: client disconnected", "role", role.String(), "remote", r.RemoteAddr)
}
