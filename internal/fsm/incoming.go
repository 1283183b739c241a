package fsm

import (
	"time"

	"github.com/jabolina/daonet/internal/packet"
	"github.com/jabolina/daonet/internal/player"
	"github.com/jabolina/daonet/internal/telemetry"
)

// incomingAction is the decoded payload of an action(seat) packet,
// passed to handleAction.
type incomingAction struct {
	seat      string
	sender    string
	createdAt int64
}

// drainIncoming pulls every packet currently queued on the transport and
// dispatches it by type, mirroring
// Client._checkTransportLayerForIncomingData. Unlike the original, which
// calls receive() once per state-handler invocation, this drains the
// whole queue each tick so a slow consumer never falls behind a fast
// producer within one loop iteration.
func (f *FSM) drainIncoming() {
	for {
		pkt, ok := f.transport.Receive()
		if !ok {
			return
		}
		f.handlePacket(pkt)
	}
}

func (f *FSM) handlePacket(pkt packet.Packet) {
	switch pkt.PacketType {
	case actionType:
		f.handleIncomingActionPacket(pkt)
	case nakType:
		f.mu.Lock()
		if f.isSelectingSeat {
			f.nakCount++
		}
		f.mu.Unlock()
	case ackType:
		f.mu.Lock()
		if f.isSelectingSeat {
			f.ackCount++
		}
		f.mu.Unlock()
	case peeringCompletedType:
		f.log.Infof("peering completed at %s", pkt.Sender.Name)
	case readyToStartType:
		f.handleReadyToStart(pkt)
	case ackStartType:
		f.handleAckStart(pkt)
	case satDownType:
		f.handleSatDown(pkt)
	case voteType:
		f.handleVote(pkt)
	case updateMasterType:
		f.handleUpdateMaster(pkt)
	case acquireMasterType:
		f.handleAcquireMaster(pkt)
	case frameSyncType:
		f.handleFrameSync(pkt)
	case endGameType:
		f.handleRemoteEndGame(pkt)
	case syncReqType:
		f.handleSyncReq(pkt)
	case syncAckType:
		f.handleSyncAck(pkt)
	case peerSyncAckType:
		f.handlePeerSyncAck(pkt)
	case updateLeaderType:
		f.handleUpdateLeader()
	}
}

func (f *FSM) handleIncomingActionPacket(pkt packet.Packet) {
	now := time.Now().UnixNano()
	rtt := now - pkt.CreatedAt
	f.log.WithFields(telemetry.Fields{
		"Logger Name": "ACTION PACKET INFO-RECEIVE",
		"Packet Type": pkt.PacketType,
		"RTT":         rtt,
	}).Debug("received action packet")

	if f.State() == Spectator {
		return
	}
	seat, err := pkt.DataString()
	if err != nil {
		return
	}
	f.handleAction(incomingAction{seat: seat, sender: pkt.Sender.Name, createdAt: pkt.CreatedAt})
}

func (f *FSM) handleReadyToStart(pkt packet.Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roundStarted {
		return
	}
	name := pkt.Sender.Name
	f.roundReady[name] = true
	f.players[name] = player.Player{Name: name}
}

func (f *FSM) handleAckStart(pkt packet.Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roundStarted {
		return
	}
	f.roundAckStart[pkt.Sender.Name] = true
}

func (f *FSM) handleSatDown(pkt packet.Packet) {
	seat, err := pkt.DataString()
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.satDownCount++
	f.roundInputs[seat] = pkt.Sender.Name
}

func (f *FSM) handleVote(pkt packet.Packet) {
	candidate, err := pkt.DataString()
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votekick[candidate]++
}

func (f *FSM) handleUpdateMaster(pkt packet.Packet) {
	newMasterName, err := pkt.DataString()
	if err != nil {
		return
	}
	current := f.clock.Master()
	if current == nil || pkt.Sender.Name == current.Name {
		f.clock.UpdateMaster(player.Player{Name: newMasterName}, pkt.Sender)
		f.log.Infof("frame master updated to %s", newMasterName)
	}
}

func (f *FSM) handleAcquireMaster(pkt packet.Packet) {
	if f.clock.IfMasterEmitNewMaster() {
		newMaster, _ := newPacket(f, updateMasterType, pkt.Sender.Name)
		f.transport.SendAll(newMaster, false)
	}
	f.clock.UpdateMaster(pkt.Sender, f.myself)
}

func (f *FSM) handleFrameSync(pkt packet.Packet) {
	frame, err := pkt.DataInt()
	if err != nil {
		return
	}
	f.clock.UpdateFrame(pkt.Sender.Name, frame)

	master := f.clock.Master()
	if master == nil || master.Name != pkt.Sender.Name {
		return
	}

	myFrame := f.clock.Frame()
	f.mu.Lock()
	alpha := f.alpha
	threshold := f.frameDeltaThreshold
	f.mu.Unlock()

	switch {
	case myFrame > frame+threshold:
		f.log.Infof("slowing down, ahead by %d frames", myFrame-frame)
		time.Sleep(time.Duration(float64(loopInterval) * float64(myFrame-frame) * alpha))
	case frame > myFrame:
		f.log.Infof("requesting master, behind by %d frames", frame-myFrame)
		acquire, _ := newPacket(f, acquireMasterType, nil)
		f.sendTo(acquire, master.Name)
	}
}

func (f *FSM) handleRemoteEndGame(pkt packet.Packet) {
	if f.State() == Spectator {
		f.log.Infof("%s has won the game", pkt.Sender.Name)
		printSystem("%s has won the game", pkt.Sender.Name)
		f.setState(EndGame)
	}
}

func (f *FSM) handleSyncReq(pkt packet.Packet) {
	now := time.Now().UnixNano()
	delay := float64(now-pkt.CreatedAt) / float64(time.Second)
	ack, _ := newPacket(f, syncAckType, delay)
	ack.RoundNumber = f.roundNumber
	f.sendTo(ack, pkt.Sender.Name)
}

func (f *FSM) handleSyncAck(pkt packet.Packet) {
	delay, err := pkt.DataFloat()
	if err != nil {
		return
	}
	f.transport.Sync.RecordDelay(pkt.Sender.Name, delay)
	f.transport.CancelSyncTimer(pkt.Sender.Name)

	now := time.Now().UnixNano()
	peerDelay := float64(now-pkt.CreatedAt) / float64(time.Second)
	reply, _ := newPacket(f, peerSyncAckType, peerDelay)
	reply.RoundNumber = f.roundNumber
	f.sendTo(reply, pkt.Sender.Name)
}

func (f *FSM) handlePeerSyncAck(pkt packet.Packet) {
	delay, err := pkt.DataFloat()
	if err != nil {
		return
	}
	f.transport.Sync.RecordDelay(pkt.Sender.Name, delay)
}

func (f *FSM) handleUpdateLeader() {
	f.transport.Sync.NextLeader()
}
