package registry

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrClosed is returned by Conn.Send after the connection was closed.
	ErrClosed = errors.New("registry: connection closed")

	// ErrSlowClient is returned by Conn.Send when the client's outgoing
	// queue is full.
	ErrSlowClient = errors.New("registry: client send queue full")
)

// Conn is one live client link owned by the Registry.
//
// Send must not block on network I/O; implementations queue the message and
// bound the actual write with their own deadline. A non-nil error marks the
// connection as dead. Close must be idempotent.
type Conn interface {
	Send(Message) error
	Close()
}

// Observer is notified of membership changes and broadcast outcomes.
// Calls are made without the registry lock held.
type Observer interface {
	ClientAdded(Role)
	ClientRemoved(Role)
	Delivered(kind Kind, sent, failed int)
}

// State is the shared selection state. Empty strings mean "none".
type State struct {
	Resource       string
	DisplayURL     string
	Background     string
	JournalVisible bool
}

// Selected reports whether a resource is currently selected.
func (s State) Selected() bool { return s.Resource != "" }

// Option configures a Registry.
type Option func(*Registry)

// WithObserver adds an Observer to the Registry.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observers = append(r.observers, o) }
}

// Registry holds the live connection set and the shared selection state.
//
// mu guards conns and state and is never held across a Send. fanout
// serializes whole delivery passes so messages reach clients in the order
// they were triggered, and so a snapshot pushed on Register cannot overtake
// an in-flight broadcast.
type Registry struct {
	fanout sync.Mutex

	mu    sync.Mutex
	conns map[Conn]Role
	state State

	observers []Observer
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{conns: make(map[Conn]Role)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds c to the live set. If a resource is selected and role
// follows redirects, c immediately receives one redirect to the current
// display URL. A failed push drops c exactly like a broadcast failure.
func (r *Registry) Register(c Conn, role Role) {
	r.fanout.Lock()
	defer r.fanout.Unlock()

	r.mu.Lock()
	r.conns[c] = role
	st := r.state
	n := len(r.conns)
	r.mu.Unlock()

	slog.Info("registry: client registered", "role", role.String(), "clients", n)
	for _, o := range r.observers {
		o.ClientAdded(role)
	}

	if !st.Selected() || !role.Receives(KindRedirect) {
		return
	}
	if err := c.Send(Redirect(st.DisplayURL)); err != nil {
		slog.Warn("registry: snapshot push failed", "role", role.String(), "err", err)
		r.drop([]Conn{c})
	}
}

// Deregister removes c from the live set and closes it. Removing a
// connection that is not registered is a no-op.
func (r *Registry) Deregister(c Conn) {
	r.drop([]Conn{c})
}

// Broadcast delivers m to every registered connection whose role receives
// m.Kind. A failed delivery never affects the others; failed connections are
// removed once the whole pass is done.
func (r *Registry) Broadcast(m Message) {
	r.fanout.Lock()
	defer r.fanout.Unlock()
	r.deliver(m)
}

// Update applies fn to the shared state and broadcasts the message fn
// returns. The mutation and the start of delivery are one step with respect
// to other updates and registrations. Update returns the new state.
func (r *Registry) Update(fn func(s *State) Message) State {
	r.fanout.Lock()
	defer r.fanout.Unlock()

	r.mu.Lock()
	m := fn(&r.state)
	st := r.state
	r.mu.Unlock()

	r.deliver(m)
	return st
}

// Snapshot returns a copy of the shared selection state.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Counts returns the number of live connections per role.
func (r *Registry) Counts() map[Role]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[Role]int{RoleViewer: 0, RoleManager: 0}
	for _, role := range r.conns {
		out[role]++
	}
	return out
}

// CloseAll removes and closes every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		all = append(all, c)
	}
	r.mu.Unlock()
	r.drop(all)
}

// --- internal ---------------------------------------------------------------

// deliver sends m to a copy of the target set. Caller holds fanout.
func (r *Registry) deliver(m Message) {
	r.mu.Lock()
	targets := make([]Conn, 0, len(r.conns))
	for c, role := range r.conns {
		if role.Receives(m.Kind) {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	var failed []Conn
	for _, c := range targets {
		if err := c.Send(m); err != nil {
			slog.Debug("registry: delivery failed", "kind", m.Kind, "err", err)
			failed = append(failed, c)
		}
	}

	if len(failed) > 0 {
		r.drop(failed)
	}

	slog.Debug("registry: broadcast complete",
		"kind", m.Kind, "targets", len(targets), "failed", len(failed))
	for _, o := range r.observers {
		o.Delivered(m.Kind, len(targets)-len(failed), len(failed))
	}
}

// drop removes the given connections from the set and closes the ones that
// were still present.
func (r *Registry) drop(conns []Conn) {
	type removed struct {
		c    Conn
		role Role
	}
	var gone []removed

	r.mu.Lock()
	for _, c := range conns {
		if role, ok := r.conns[c]; ok {
			delete(r.conns, c)
			gone = append(gone, removed{c, role})
		}
	}
	n := len(r.conns)
	r.mu.Unlock()

	for _, g := range gone {
		g.c.Close()
		slog.Info("registry: client removed", "role", g.role.String(), "clients", n)
		for _, o := range r.observers {
			o.ClientRemoved(g.role)
		}
	}
}
