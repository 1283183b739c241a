// Package lobby implements the pre-game TCP registrar: a host accepts
// player registrations until a local start trigger fires, then ships a
// frozen Tracker snapshot to every registrant so the game FSM can begin.
// Grounded on original_source/game/lobby/lobby.py and tracker.py.
package lobby

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jabolina/daonet/internal/packet"
	"github.com/jabolina/daonet/internal/tracker"
)

// Type tags a lobby-phase message. These are distinct from packet.Type:
// the lobby wire format carries no sender or created_at field, only
// {data, packet_type}, so it gets its own narrower envelope rather than
// reusing packet.Packet.
type Type string

const (
	Register   Type = "lobby_register"
	Deregister Type = "lobby_deregister"
	Ack        Type = "lobby_ack"
	Nak        Type = "lobby_nak"
	Start      Type = "lobby_start"
	Shutdown   Type = "lobby_shutdown"
)

// Envelope is the lobby wire message: {data, packet_type}.
type Envelope struct {
	PacketType Type            `json:"packet_type"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// RegisterData is the payload of a lobby_register/lobby_deregister message.
type RegisterData struct {
	PlayerID  string `json:"player_id"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
}

// NakData is the payload of a lobby_nak message.
type NakData struct {
	Message string `json:"message"`
}

// StartData is the payload of a lobby_start message: the frozen tracker
// snapshot every registrant needs to begin the game.
type StartData struct {
	Players []string                    `json:"players"`
	Tracker map[string]tracker.Endpoint `json:"tracker"`
}

// ErrMalformedFrame is returned by decode when a frame holds nothing but
// NUL padding.
var ErrMalformedFrame = errors.New("lobby: malformed frame")

func newEnvelope(t Type, data interface{}) (Envelope, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("lobby: marshal data: %w", err)
		}
		raw = encoded
	}
	return Envelope{PacketType: t, Data: raw}, nil
}

// encode renders the envelope as a NUL-padded packet.FrameSize frame,
// reusing the in-game frame size but without the hash prefix the
// in-game codec prepends (lobby.send in the original is a bare
// `packet.ljust(chunksize, b"\0")`).
func encode(e Envelope) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("lobby: marshal envelope: %w", err)
	}
	if len(body) > packet.FrameSize {
		return nil, fmt.Errorf("lobby: envelope exceeds frame size")
	}
	padded := make([]byte, packet.FrameSize)
	copy(padded, body)
	return padded, nil
}

func decode(frame []byte) (Envelope, error) {
	trimmed := bytes.TrimRight(frame, "\x00")
	if len(trimmed) == 0 {
		return Envelope{}, ErrMalformedFrame
	}
	var e Envelope
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return Envelope{}, fmt.Errorf("lobby: unmarshal envelope: %w", err)
	}
	return e, nil
}
