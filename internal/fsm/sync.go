package fsm

import "github.com/jabolina/daonet/internal/telemetry"

// syncClock drives the rotating-leader delay probe until every peer has
// a recorded delay, then broadcasts update_leader and rotates
// (original's Client.sync_clock).
func (f *FSM) syncClock() {
	f.drainIncoming()
	if !f.transport.Sync.Done() {
		f.transport.Syncing(f.roundNumber)
		return
	}

	waits, _ := f.transport.Sync.WaitTimes()
	f.log.WithFields(telemetry.Fields{
		"Logger Name":  "WAIT LIST",
		"Round Number": f.roundNumber,
		"Logging Data": waits,
	}).Info("sync wait list computed")

	pkt, _ := newPacket(f, updateLeaderType, f.roundNumber)
	f.transport.SendAll(pkt, false)
	f.transport.Sync.NextLeader()
	f.setState(AwaitSyncEnd)
}

// awaitSyncEnd waits for the rotation to exhaust every leader, then stops
// the sync_req retransmission timers and proceeds to INIT (round 1) or
// straight back into the keypress loop.
func (f *FSM) awaitSyncEnd() {
	f.drainIncoming()
	if !f.transport.Sync.NoMoreLeader() {
		return
	}
	f.transport.StopTimers()
	f.mu.Lock()
	round := f.roundNumber
	f.mu.Unlock()
	if round == 1 {
		f.setState(Init)
	} else {
		f.setState(AwaitKeypress)
	}
}

// init is the round-1 start barrier: every peer broadcasts
// ready_to_start, waits for N-1 others, then broadcasts ack_start and
// proceeds (original's Client.init).
func (f *FSM) init() {
	f.drainIncoming()

	f.mu.Lock()
	readyCount := len(f.roundReady)
	total := f.totalPlayers
	alreadySent := f.initSendTime != nil
	alreadyAcked := f.initAckStart != nil
	f.mu.Unlock()

	if readyCount < total-1 {
		if !alreadySent {
			f.mu.Lock()
			now := nowPtr()
			f.initSendTime = now
			f.mu.Unlock()
			if f.clock.IfMasterEmitNewMaster() {
				pkt, _ := newPacket(f, updateMasterType, f.myself.Name)
				f.transport.SendAll(pkt, false)
			}
			pkt, _ := newPacket(f, readyToStartType, nil)
			f.transport.SendAll(pkt, false)
		}
		return
	}

	if !alreadyAcked {
		f.mu.Lock()
		f.initAckStart = nowPtr()
		f.mu.Unlock()
		pkt, _ := newPacket(f, ackStartType, nil)
		f.transport.SendAll(pkt, false)
		f.setState(AwaitKeypress)
	}
}
