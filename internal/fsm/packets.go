package fsm

import (
	"time"

	"github.com/jabolina/daonet/internal/packet"
)

// Local aliases keep the per-state files reading close to the original's
// packet class names (PeeringCompleted, ReadyToStart, ...) while still
// spelling out the shared packet.Type underneath.
const (
	peeringCompletedType = packet.PeeringCompleted
	updateLeaderType     = packet.UpdateLeader
	readyToStartType     = packet.ReadyToStart
	ackStartType         = packet.AckStart
	actionType           = packet.Action
	ackType              = packet.Ack
	nakType              = packet.Nak
	satDownType          = packet.SatDown
	voteType             = packet.Vote
	frameSyncType        = packet.FrameSync
	acquireMasterType    = packet.AcquireMaster
	updateMasterType     = packet.UpdateMaster
	endGameType          = packet.EndGame
	syncReqType          = packet.SyncReq
	syncAckType          = packet.SyncAck
	peerSyncAckType      = packet.PeerSyncAck
)

// newPacket builds a packet.Packet from f's own identity with the
// current timestamp, the common case for every broadcast/reply below.
func newPacket(f *FSM, t packet.Type, data interface{}) (packet.Packet, error) {
	return packet.New(t, f.myself, data, time.Now().UnixNano())
}

// sendTo delays briefly and writes pkt directly to peer, logging on
// failure rather than propagating, matching the original's fire-and-
// forget style where transport errors are swallowed or printed.
func (f *FSM) sendTo(pkt packet.Packet, peer string) {
	if err := f.transport.Send(pkt, peer); err != nil {
		f.log.Warnf("send %s to %s: %v", pkt.PacketType, peer, err)
	}
}
