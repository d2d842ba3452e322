// Package api provides the operator-facing HTTP surface of the relay.
//
// The api package implements:
//   - POST /api/swap       re-arm the automatic camera swap
//   - POST /api/spectate   switch the camera to a player or a POI
//   - GET  /api/players    current roster
//   - GET  /api/status     latch state, roster size, open connections
//   - GET  /healthz        liveness probe
//   - /ws                  the shared telemetry/control WebSocket
//
// Spectate requests by name go through the same fuzzy resolution as
// on-socket changeCam commands, so a chat bot can say "wrath" and the
// camera lands on "wraith". An unmatched name returns 404 and nothing
// is broadcast.
package api
