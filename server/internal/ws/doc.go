// Package ws implements the WebSocket transport for cueboard.
//
// New(registry, opts) creates a Hub. Hub.ServeHTTP upgrades a request on
// /ws/{role}, registers the connection with the registry under that role and
// keeps it alive with ping/pong until it closes. Hub.Run(ctx) blocks until ctx
// is cancelled, then closes all active connections.
//
// Each client owns a buffered send queue drained by its own write pump, so the
// registry never blocks on the network. A full queue, or a write that misses
// Options.WriteTimeout, drops the client.
//
// Message format (subprotocol cueboard.v2, the default):
//
//	{"kind": "redirect",      "url": "/display/<token>"}
//	{"kind": "background",    "path": "Backgrounds/sky.jpg"}
//	{"kind": "journal_state", "visible": true}
//	{"kind": "library",       "files": ["demo.png", ...]}   (manager only)
//
// Legacy viewers negotiate cueboard.v1 and receive only redirects, each as the
// bare URL string.
package ws
