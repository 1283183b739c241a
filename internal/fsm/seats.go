package fsm

import (
	"time"
)

// allVotedToStart reports whether enough peers have ack_start'd to cross
// the round-1 start barrier (original's _all_voted_to_start).
func (f *FSM) allVotedToStart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.roundAckStart) >= len(f.roundInputs)
}

// awaitKeypress drives the pre-round countdown, local hotkey binding,
// and the seat-selection contention protocol (original's
// Client.await_keypress). The three-way split below mirrors the
// original's `if self._is_selecting_seat: ... elif all(self._round_inputs
// .values()): ... else: ...` structure exactly: the `elif` branch is what
// lets a player whose claim just failed (is_selecting_seat cleared,
// my_keypress cleared) notice every seat is already filled and fall
// through to AWAIT_ROUND_END instead of re-binding hotkeys for a seat
// that no longer exists.
func (f *FSM) awaitKeypress() {
	f.drainIncoming()

	f.mu.Lock()
	spectator := f.amSpectator
	f.mu.Unlock()
	if spectator {
		f.setState(Spectator)
		return
	}

	f.mu.Lock()
	started := f.roundStarted
	f.mu.Unlock()

	if !started {
		if f.allVotedToStart() {
			f.countdown()
			f.mu.Lock()
			f.roundStarted = true
			f.mu.Unlock()
			f.log.Infof("round %d starting, playing as %s", f.roundNumber, f.myself.Name)
		}
		f.mu.Lock()
		started = f.roundStarted
		f.mu.Unlock()
	}

	if !started {
		return
	}

	f.mu.Lock()
	selecting := f.isSelectingSeat
	f.mu.Unlock()

	if selecting {
		f.mu.Lock()
		nak := f.nakCount
		ack := f.ackCount
		threshold := len(f.players) / 2
		quorum := nak+ack >= len(f.players)-1
		f.mu.Unlock()

		if !quorum {
			return
		}

		if nak >= threshold {
			f.log.Info("failed to sit down, picking a new seat")
			f.mu.Lock()
			f.myKeypress = ""
			f.nakCount = 0
			f.ackCount = 0
			f.isSelectingSeat = false
			f.hotkeysAdded = false
			f.mu.Unlock()
		} else {
			f.mu.Lock()
			seat := f.myKeypress
			f.roundInputs[seat] = f.myself.Name
			f.satDownCount++
			f.mu.Unlock()
			pkt, _ := newPacket(f, satDownType, seat)
			f.transport.SendAll(pkt, false)
			f.log.Infof("sat down at seat %s", seat)
			printSeats("%s sat down at seat %s", f.myself.Name, seat)
			f.setState(AwaitRoundEnd)
		}
		return
	}

	if f.allSeatsFilled() {
		f.setState(AwaitRoundEnd)
		return
	}

	f.mu.Lock()
	haveKeypress := f.myKeypress != ""
	hotkeysAdded := f.hotkeysAdded
	f.mu.Unlock()

	if !haveKeypress {
		if !hotkeysAdded {
			f.bindHotkeys()
		}
		f.pollKeypress()
		return
	}

	f.selectingSeats()
}

func (f *FSM) allSeatsFilled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, occupant := range f.roundInputs {
		if occupant == "" {
			return false
		}
	}
	return len(f.roundInputs) > 0
}

// countdown logs and prints the 3-2-1 start countdown, kept as real
// logging (not just prints) so external tooling can reconstruct when the
// round actually began (SPEC_FULL supplement over the original's bare
// print statements).
func (f *FSM) countdown() {
	for remaining := 3; remaining >= 1; remaining-- {
		f.log.Infof("starting game in %d seconds", remaining)
		printSystem("starting game in %d seconds", remaining)
		time.Sleep(time.Second)
	}
}

// bindHotkeys marks hotkeys as armed for the seats still in play. The
// actual key-press delivery comes from f.hotkeys (see pollKeypress); this
// mirrors the original's one-shot keyboard.add_hotkey registration gate.
func (f *FSM) bindHotkeys() {
	f.mu.Lock()
	f.hotkeysAdded = true
	f.mu.Unlock()
}

// pollKeypress checks, non-blocking, whether a seat letter has arrived
// from the hotkey source, and if so records it as the local claim
// (original's _insert_input).
func (f *FSM) pollKeypress() {
	select {
	case letter := <-f.hotkeys.Presses():
		f.mu.Lock()
		f.myKeypress = letter
		f.mu.Unlock()
		f.log.Infof("pressed seat %s", letter)
	default:
	}
}

// selectingSeats broadcasts my claim and enters contention
// (original's _selecting_seats).
func (f *FSM) selectingSeats() {
	f.mu.Lock()
	f.isSelectingSeat = true
	f.ackCount = 0
	f.nakCount = 0
	seat := f.myKeypress
	f.mu.Unlock()

	pkt, _ := newPacket(f, actionType, seat)
	f.mu.Lock()
	f.myKeypressTime = pkt.CreatedAt
	f.mu.Unlock()
	f.log.Infof("claiming seat %s", seat)
	printAction("%s claiming seat %s", f.myself.Name, seat)
	f.transport.SendAll(pkt, true)
}

// handleAction applies the seat-selection contention rule to an incoming
// action(seat) from another peer. The reply is sent after f.mu is
// released so the lock is never held across the transport's artificial
// delay and socket write (spec §5: locks guard map mutations, not I/O).
func (f *FSM) handleAction(pkt incomingAction) {
	seat := pkt.seat
	sender := pkt.sender
	createdAt := pkt.createdAt

	f.mu.Lock()
	occupant, known := f.roundInputs[seat]
	if !known {
		f.mu.Unlock()
		return
	}
	if occupant != "" {
		f.mu.Unlock()
		nakPkt, _ := newPacket(f, nakType, nil)
		f.sendTo(nakPkt, sender)
		return
	}

	if len(f.roundInputs) == 1 && f.myKeypressTime != 0 && createdAt >= f.myKeypressTime {
		f.myKeypressTime = 0
		f.mu.Unlock()
		nakPkt, _ := newPacket(f, nakType, nil)
		f.sendTo(nakPkt, sender)
		return
	}

	f.roundInputs[seat] = sender
	f.mu.Unlock()
	ackPkt, _ := newPacket(f, ackType, nil)
	f.sendTo(ackPkt, sender)
}
