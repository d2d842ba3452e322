// Package relay implements the message-routing and state-coordination
// core of the spectator-cam relay.
//
// The relay package implements:
//   - Classification of inbound payloads into telemetry and control
//   - The player roster, rebuilt every match
//   - The one-shot swap-arming latch driving automatic camera switches
//   - Approximate resolution of operator spectate requests
//   - Emission of camera directives to all connected clients
//
// Architecture:
//
// A single Coordinator owns all shared mutable state. Connections feed
// it raw payloads through HandleMessage; the decoded message is
// dispatched to the telemetry or control handler, which may mutate the
// roster or the latch and may emit exactly one broadcast through the
// injected Broadcaster.
//
// State model:
//
// The roster is a set of lower-cased player names. playerConnected
// events add to it, matchStateEnd clears it. The latch starts ARMED;
// the first damage event with a non-empty attacker hash broadcasts a
// changeCam directive for the attacker and disarms it, and it stays
// disarmed until a swapCam command (wire or operator API) re-arms it.
//
// Concurrency:
//
// Each connection delivers messages from its own goroutine. Roster and
// latch mutations all pass through one mutex inside the Coordinator, so
// interleaved connections cannot lose updates. Handlers never block on
// delivery; the Broadcaster hands messages off to per-connection send
// queues.
//
// Error handling:
//
// Decode and shape failures surface as errors from HandleMessage and
// are logged at the connection loop; a bad message never terminates its
// connection or affects the next message. Resolution misses and dead
// receivers are not errors.
package relay
