package relay

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/speccam/speccam/protocol"
	"github.com/speccam/speccam/relay/match"
)

// DefaultCutoff is the minimum similarity a spectate request must reach
// against the roster before it is broadcast.
const DefaultCutoff = 0.4

var (
	ErrMissingAttacker = errors.New("damage event has no attacker")
	ErrMissingPlayer   = errors.New("connect event has no player")
	ErrInvalidPOI      = errors.New("poi out of range")
)

// POILabels names the engine's fixed camera points of interest.
var POILabels = map[int]string{
	1: "Next player",
	2: "Previous player",
	3: "Kill leader",
	4: "Closest enemy",
	5: "Closest player",
	6: "Last attacker",
}

// Broadcaster delivers one message to every currently open connection.
// Implementations must tolerate individual dead connections.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Coordinator routes decoded messages to the telemetry and control
// handlers and owns the only shared mutable state in the process: the
// roster of known player names and the swap-arming latch. All mutations
// funnel through a single mutex so concurrent connections cannot lose
// updates.
type Coordinator struct {
	broadcaster Broadcaster
	cutoff      float64

	mu    sync.Mutex
	names map[string]struct{}
	armed bool
}

// New creates a coordinator with an empty roster and the latch armed,
// so the first qualifying damage event swaps the camera immediately.
func New(b Broadcaster, cutoff float64) *Coordinator {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	return &Coordinator{
		broadcaster: b,
		cutoff:      cutoff,
		names:       make(map[string]struct{}),
		armed:       true,
	}
}

// HandleMessage processes one raw inbound payload from a connection.
// Decode and shape failures are returned to the caller, which logs and
// moves on to the next message; they never terminate the connection.
func (c *Coordinator) HandleMessage(data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		return err
	}

	switch msg.Kind {
	case protocol.KindTelemetry:
		return c.handleTelemetry(msg.Telemetry)
	case protocol.KindControl:
		return c.handleControl(msg.Control)
	}
	return nil
}

// handleTelemetry reacts to game-engine events. Unknown categories are
// no-ops so new engine event types cannot break the relay.
func (c *Coordinator) handleTelemetry(t *protocol.Telemetry) error {
	switch t.Category {
	case protocol.CategoryPlayerDamaged:
		return c.playerDamaged(t)

	case protocol.CategoryPlayerConnected:
		if t.Player == nil {
			return ErrMissingPlayer
		}
		name := strings.ToLower(t.Player.Name)
		c.mu.Lock()
		c.names[name] = struct{}{}
		c.mu.Unlock()
		return nil

	case protocol.CategoryMatchStateEnd:
		c.mu.Lock()
		c.names = make(map[string]struct{})
		c.mu.Unlock()
		log.Printf("[RELAY] match ended, roster cleared")
		return nil
	}
	return nil
}

// playerDamaged performs the one-shot automatic swap. An empty nucleus
// hash marks self-damage and never touches the latch. The attacker name
// comes from the engine and is broadcast verbatim, not resolved.
func (c *Coordinator) playerDamaged(t *protocol.Telemetry) error {
	if t.Attacker == nil {
		return ErrMissingAttacker
	}
	if t.Attacker.NucleusHash == "" {
		return nil
	}

	c.mu.Lock()
	if !c.armed {
		c.mu.Unlock()
		return nil
	}
	c.armed = false
	c.mu.Unlock()

	out, err := protocol.EncodeCameraName(t.Attacker.Name)
	if err != nil {
		return err
	}
	log.Printf("[RELAY] damage event, swapping camera to attacker %q", t.Attacker.Name)
	c.broadcaster.Broadcast(out)
	return nil
}

// handleControl reacts to operator commands. swapCam re-arms the latch
// and is never re-broadcast. changeCam with a name is resolved against
// the roster and dropped silently on a miss; changeCam without a name
// (the POI form) passes through verbatim. Anything else is ignored.
func (c *Coordinator) handleControl(ctl *protocol.Control) error {
	if ctl.SwapCam {
		c.mu.Lock()
		c.armed = true
		c.mu.Unlock()
		log.Printf("[RELAY] swap armed, next damage event switches camera")
		return nil
	}

	cam := ctl.ChangeCam
	if cam == nil {
		return nil
	}

	if cam.Name != nil {
		resolved, ok := c.resolve(*cam.Name)
		if !ok {
			log.Printf("[RELAY] no roster match for %q, dropping spectate request", *cam.Name)
			return nil
		}
		out, err := ctl.EncodeWithName(resolved)
		if err != nil {
			return err
		}
		log.Printf("[RELAY] spectate %q resolved to %q", *cam.Name, resolved)
		c.broadcaster.Broadcast(out)
		return nil
	}

	out, err := ctl.Encode()
	if err != nil {
		return err
	}
	c.broadcaster.Broadcast(out)
	return nil
}

// resolve maps a requested name onto the closest roster entry.
func (c *Coordinator) resolve(name string) (string, bool) {
	hits := match.Closest(strings.ToLower(name), c.Players(), 1, c.cutoff)
	if len(hits) == 0 {
		return "", false
	}
	return hits[0], true
}

// Swap arms the latch, same as a swapCam message on the wire. Used by
// the operator API.
func (c *Coordinator) Swap() {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
	log.Printf("[RELAY] swap armed via operator API")
}

// SpectateName resolves name against the roster and, on a hit,
// broadcasts a camera directive for the resolved player. It reports the
// resolved name and whether anything was broadcast.
func (c *Coordinator) SpectateName(name string) (string, bool) {
	resolved, ok := c.resolve(name)
	if !ok {
		return "", false
	}
	out, err := protocol.EncodeCameraName(resolved)
	if err != nil {
		return "", false
	}
	log.Printf("[RELAY] operator spectate %q resolved to %q", name, resolved)
	c.broadcaster.Broadcast(out)
	return resolved, true
}

// SpectatePOI broadcasts a camera directive for one of the engine's
// fixed points of interest and returns its label.
func (c *Coordinator) SpectatePOI(poi int) (string, error) {
	label, ok := POILabels[poi]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidPOI, poi)
	}
	out, err := protocol.EncodeCameraPOI(poi)
	if err != nil {
		return "", err
	}
	log.Printf("[RELAY] operator spectate POI %d (%s)", poi, label)
	c.broadcaster.Broadcast(out)
	return label, nil
}

// Players returns the current roster, sorted.
func (c *Coordinator) Players() []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	c.mu.Unlock()

	sort.Strings(names)
	return names
}

// Armed reports the latch state.
func (c *Coordinator) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}
