// Package websocket provides the shared transport for the relay.
//
// The websocket package implements:
//   - One accept point for engine and spectator connections alike
//   - Per-connection read/write pumps
//   - Best-effort fan-out of broadcasts to every open connection
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns the
// connection set. Each connection gets a read pump that feeds inbound
// messages to the installed MessageHandler in arrival order, and a
// write pump that drains a buffered send queue.
//
// Fan-out semantics:
//
// Broadcast delivers to the set of connections open when the hub loop
// picks the message up. A connection whose send queue is full or whose
// peer is gone is dropped; the remaining connections still receive the
// message. There is no delivery confirmation and no retry.
//
// Keepalive:
//
// Ping/pong and read deadlines are disabled by default, matching the
// game engine's long-lived silent connection, and can be enabled
// through Options.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.Options{})
//	hub.OnMessage(coordinator.HandleMessage)
//	go hub.Run()
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r)
//	})
package websocket
