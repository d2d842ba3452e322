// Package protocol defines the wire messages shared by the game engine
// and control clients. Two message families share the same socket:
// game-engine events always carry a "category" field, operator/control
// payloads never do. Classification happens once, at decode time, so
// the handlers never re-probe keys.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyPayload = errors.New("empty payload")

// Telemetry event categories the relay reacts to. Anything else decodes
// fine and is ignored downstream.
const (
	CategoryPlayerDamaged   = "playerDamaged"
	CategoryPlayerConnected = "playerConnected"
	CategoryMatchStateEnd   = "matchStateEnd"
)

// Kind tags a decoded message with its family.
type Kind int

const (
	KindTelemetry Kind = iota + 1
	KindControl
)

// Player identifies a participant in a telemetry event. NucleusHash is
// the engine's account identifier; damage events with an empty hash are
// self-damage sentinels.
type Player struct {
	Name        string `json:"name" jsonschema:"description=Display name as reported by the game engine"`
	NucleusHash string `json:"nucleusHash,omitempty" jsonschema:"description=Engine account hash; empty marks self-inflicted damage"`
}

// Telemetry is a game-engine event. Only the fields the relay consumes
// are modeled; the engine sends many more, which decode ignores.
type Telemetry struct {
	Category string  `json:"category" jsonschema:"description=Event category emitted by the game engine"`
	Attacker *Player `json:"attacker,omitempty" jsonschema:"description=Damage source on playerDamaged events"`
	Player   *Player `json:"player,omitempty" jsonschema:"description=Subject of playerConnected events"`
}

// CameraTarget is the payload of a changeCam directive. Name is a
// pointer so handlers can tell an absent name from an empty one; POI
// addresses one of the engine's fixed points of interest.
type CameraTarget struct {
	Name *string `json:"name,omitempty" jsonschema:"description=Player to spectate"`
	POI  int     `json:"poi,omitempty" jsonschema:"description=Point-of-interest slot (1-6)"`
}

// CameraCommand is the single outbound shape the relay broadcasts.
type CameraCommand struct {
	ChangeCam CameraTarget `json:"changeCam"`
}

// Control is an operator command. SwapCam and ChangeCam reflect key
// presence on the wire; fields keeps the raw payload so re-broadcasts
// preserve keys the relay does not model.
type Control struct {
	SwapCam   bool
	ChangeCam *CameraTarget

	fields map[string]json.RawMessage
}

// Message is the tagged union produced by Decode. Exactly one of
// Telemetry and Control is set, matching Kind.
type Message struct {
	Kind      Kind
	Telemetry *Telemetry
	Control   *Control
}

// Decode parses one wire payload and classifies it. A payload with a
// "category" key is telemetry regardless of the category's value; all
// other payloads are control commands. Malformed JSON is returned as an
// error for the caller's per-message boundary.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}

	if _, ok := fields["category"]; ok {
		var t Telemetry
		if err := json.Unmarshal(data, &t); err != nil {
			return Message{}, fmt.Errorf("decode telemetry: %w", err)
		}
		return Message{Kind: KindTelemetry, Telemetry: &t}, nil
	}

	ctl := &Control{fields: fields}
	if _, ok := fields["swapCam"]; ok {
		ctl.SwapCam = true
	}
	if raw, ok := fields["changeCam"]; ok {
		var target CameraTarget
		if err := json.Unmarshal(raw, &target); err != nil {
			return Message{}, fmt.Errorf("decode changeCam: %w", err)
		}
		ctl.ChangeCam = &target
	}
	return Message{Kind: KindControl, Control: ctl}, nil
}

// Encode re-serializes the control payload as received.
func (c *Control) Encode() ([]byte, error) {
	return json.Marshal(c.fields)
}

// EncodeWithName re-serializes the control payload with changeCam.name
// replaced by the resolved registry entry. All other keys, including
// ones the relay does not model, pass through untouched.
func (c *Control) EncodeWithName(name string) ([]byte, error) {
	raw, ok := c.fields["changeCam"]
	if !ok {
		return nil, errors.New("control payload has no changeCam")
	}

	var cam map[string]json.RawMessage
	if err := json.Unmarshal(raw, &cam); err != nil {
		return nil, fmt.Errorf("re-encode changeCam: %w", err)
	}

	quoted, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	cam["name"] = quoted

	amended, err := json.Marshal(cam)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	out["changeCam"] = amended
	return json.Marshal(out)
}

// EncodeCameraName builds the outbound directive pointing the camera at
// a player by name.
func EncodeCameraName(name string) ([]byte, error) {
	return json.Marshal(CameraCommand{ChangeCam: CameraTarget{Name: &name}})
}

// EncodeCameraPOI builds the outbound directive pointing the camera at
// a fixed point of interest.
func EncodeCameraPOI(poi int) ([]byte, error) {
	return json.Marshal(CameraCommand{ChangeCam: CameraTarget{POI: poi}})
}
