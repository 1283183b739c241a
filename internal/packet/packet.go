// Package packet defines the wire envelope exchanged between peers: a
// tagged message with a stable dedup hash, framed into fixed 1024-byte
// chunks.
package packet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/jabolina/daonet/internal/player"
)

// Type tags the kind of envelope being carried.
type Type string

const (
	ConnectionReq    Type = "connection_req"
	ConnectionEstab  Type = "connection_estab"
	PeeringCompleted Type = "peering_completed"
	SyncReq          Type = "sync_req"
	SyncAck          Type = "sync_ack"
	PeerSyncAck      Type = "peer_sync_ack"
	UpdateLeader     Type = "update_leader"
	ReadyToStart     Type = "ready_to_start"
	AckStart         Type = "ack_start"
	Action           Type = "action"
	Ack              Type = "ack"
	Nak              Type = "nak"
	SatDown          Type = "sat_down"
	Vote             Type = "vote"
	FrameSync        Type = "frame_sync"
	AcquireMaster    Type = "acquire_master"
	UpdateMaster     Type = "update_master"
	EndGame          Type = "end_game"
)

// FrameSize is the fixed chunk size every packet is padded to on the
// wire; Encode rejects a packet that would not fit rather than truncating.
const FrameSize = 1024

// MaxBodyBytes is the hard JSON body size limit enforced before framing;
// packets whose body exceeds this are dropped with a logged warning.
const MaxBodyBytes = 1000

// ErrBodyTooLarge is returned by Encode when the marshaled body would not
// fit within MaxBodyBytes.
var ErrBodyTooLarge = errors.New("packet: body exceeds maximum wire size")

// ErrMalformedFrame is returned by Decode when a frame cannot be split
// into hash and body.
var ErrMalformedFrame = errors.New("packet: malformed frame")

// Packet is the envelope carried between peers. Data is left as a raw
// JSON value since its shape varies per Type (a seat letter, a frame
// number, a player name being voted out, or nothing at all), mirroring
// the original's untyped `data` field.
type Packet struct {
	PacketType Type            `json:"packet_type"`
	Sender     player.Player   `json:"player"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  int64           `json:"created_at"` // unix nanoseconds
	// RoundNumber is only meaningful for SyncAck/PeerSyncAck, where it
	// participates in the dedup hash instead of CreatedAt (see Hash).
	RoundNumber int `json:"round_number,omitempty"`
}

// New builds a Packet with the given type, sender and raw JSON data.
func New(t Type, sender player.Player, data interface{}, createdAt int64) (Packet, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return Packet{}, fmt.Errorf("packet: marshal data: %w", err)
		}
		raw = encoded
	}
	return Packet{
		PacketType: t,
		Sender:     sender,
		Data:       raw,
		CreatedAt:  createdAt,
	}, nil
}

// hashesWithTime are the packet types whose dedup hash folds in
// CreatedAt, matching each subclass's overridden __hash__ in
// original_source/game/transport/packet.py.
var hashesWithTime = map[Type]bool{
	Action:           true,
	Ack:              true,
	Nak:              true,
	PeeringCompleted: true,
	SatDown:          true,
	FrameSync:        true,
	AcquireMaster:    true,
	UpdateMaster:     true,
	Vote:             true,
}

// hashesWithRound are SyncAck/PeerSyncAck, whose original __hash__ folds
// in round_number instead of data or created_at.
var hashesWithRound = map[Type]bool{
	SyncAck:     true,
	PeerSyncAck: true,
}

// Hash computes the stable dedup key over (type, sender name, data,
// created_at). Unlike the original, which relies on the builtin,
// per-process-salted hash() and so would never actually collide across
// two different peer processes, this uses FNV-1a over the same field
// composition, so retransmissions from the same sender genuinely
// collide everywhere and novel sends don't.
func (p Packet) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(p.PacketType))
	h.Write([]byte(p.Sender.Name))
	switch {
	case hashesWithRound[p.PacketType]:
		h.Write([]byte(strconv.Itoa(p.RoundNumber)))
	case hashesWithTime[p.PacketType]:
		h.Write(p.Data)
		h.Write([]byte(strconv.FormatInt(p.CreatedAt, 10)))
	default:
		h.Write(p.Data)
	}
	return h.Sum64()
}

// Encode renders the packet as a NUL-delimited, NUL-padded 1024-byte
// frame: decimal_hash + "\x00" + json_body + padding.
func (p Packet) Encode() ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("packet: marshal: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	hashPrefix := strconv.FormatUint(p.Hash(), 10)
	frame := make([]byte, 0, FrameSize)
	frame = append(frame, hashPrefix...)
	frame = append(frame, 0)
	frame = append(frame, body...)
	if len(frame) > FrameSize {
		return nil, ErrBodyTooLarge
	}
	padded := make([]byte, FrameSize)
	copy(padded, frame)
	return padded, nil
}

// Decode parses a fixed 1024-byte frame back into (hash, Packet).
func Decode(frame []byte) (hashStr string, p Packet, err error) {
	trimmed := bytes.TrimRight(frame, "\x00")
	parts := bytes.SplitN(trimmed, []byte{0}, 2)
	if len(parts) != 2 {
		return "", Packet{}, ErrMalformedFrame
	}
	hashStr = string(parts[0])
	if err := json.Unmarshal(parts[1], &p); err != nil {
		return "", Packet{}, fmt.Errorf("packet: unmarshal: %w", err)
	}
	return hashStr, p, nil
}

// DataString unmarshals Data as a plain string (seat letters, player
// names being voted out).
func (p Packet) DataString() (string, error) {
	if len(p.Data) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(p.Data, &s); err != nil {
		return "", err
	}
	return s, nil
}

// DataFloat unmarshals Data as a float64 (delay measurements).
func (p Packet) DataFloat() (float64, error) {
	var f float64
	if err := json.Unmarshal(p.Data, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// DataInt unmarshals Data as an int (frame numbers, round numbers).
func (p Packet) DataInt() (int, error) {
	var i int
	if err := json.Unmarshal(p.Data, &i); err != nil {
		return 0, err
	}
	return i, nil
}
