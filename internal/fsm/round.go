package fsm

import "github.com/jabolina/daonet/internal/telemetry"

func spectateBeginFields(name string, frame int) telemetry.Fields {
	return telemetry.Fields{
		"Logger Name": "SPECTATE BEGIN",
		"Name":        name,
		"Frame Count": frame,
	}
}

// awaitRoundEnd tallies votes once every seat is filled, evicting the
// player not holding a seat.
func (f *FSM) awaitRoundEnd() {
	f.drainIncoming()
	if !f.allSeatsFilled() {
		return
	}

	f.mu.Lock()
	doneVoting := f.doneVoting
	f.mu.Unlock()

	if !doneVoting {
		candidate := f.findKickCandidate()
		f.mu.Lock()
		f.doneVoting = true
		f.mu.Unlock()

		if candidate == "" {
			f.log.Info("no player to kick, moving to next round")
			f.setState(EndRound)
			return
		}

		f.log.Infof("voting to kick %s", candidate)
		printVote("%s did not sit down, voting to kick", candidate)
		pkt, _ := newPacket(f, voteType, candidate)
		f.transport.SendAll(pkt, false)
		f.mu.Lock()
		f.votekick[candidate]++
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	total := 0
	for _, v := range f.votekick {
		total += v
	}
	enough := total >= len(f.players)
	f.mu.Unlock()
	if !enough {
		return
	}

	f.tallyVotesAndAdvance()
}

// findKickCandidate returns the one player holding no seat, or "" if
// every current player occupies one.
func (f *FSM) findKickCandidate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	occupied := make(map[string]bool, len(f.roundInputs))
	for _, occupant := range f.roundInputs {
		if occupant != "" {
			occupied[occupant] = true
		}
	}
	for name := range f.players {
		if !occupied[name] {
			return name
		}
	}
	return ""
}

// tallyVotesAndAdvance applies the argmax vote-kick rule: a unique
// maximum removes that player, a tie leaves everyone in and marks the
// round as not having kicked anyone.
func (f *FSM) tallyVotesAndAdvance() {
	f.mu.Lock()
	defer f.mu.Unlock()

	max := 0
	for _, v := range f.votekick {
		if v > max {
			max = v
		}
	}
	var tied []string
	for name, v := range f.votekick {
		if v == max {
			tied = append(tied, name)
		}
	}

	if len(tied) == 1 {
		f.log.Infof("kicking %s", tied[0])
		printVote("%s is eliminated", tied[0])
		delete(f.players, tied[0])
	} else {
		f.voteTied = true
		f.log.Info("vote tied, nobody kicked this round")
		printVote("tie, nobody eliminated this round")
	}
	f.state = EndRound
}

// endRound applies the post-round outcome: elimination, victory, or
// reset into the next round.
func (f *FSM) endRound() {
	f.mu.Lock()
	_, stillIn := f.players[f.myself.Name]
	total := f.totalPlayers
	f.mu.Unlock()

	f.resetRound()

	if !stillIn {
		if total == 2 {
			f.setState(EndGame)
			return
		}
		f.mu.Lock()
		f.totalPlayers--
		f.amSpectator = true
		f.mu.Unlock()
		frame := f.clock.Frame()
		f.log.WithFields(spectateBeginFields(f.myself.Name, frame)).Info("spectating begins")
		f.setState(AwaitKeypress)
		return
	}

	f.mu.Lock()
	seatsLeft := len(f.roundInputs)
	f.mu.Unlock()
	if seatsLeft < 1 {
		f.log.Infof("%s has won the game", f.myself.Name)
		printSystem("%s has won the game", f.myself.Name)
		pkt, _ := newPacket(f, endGameType, nil)
		f.transport.SendAll(pkt, false)
		f.setState(EndGame)
		return
	}

	f.mu.Lock()
	f.totalPlayers--
	f.mu.Unlock()
	f.setState(AwaitKeypress)
}

// resetRound clears per-round state and rebuilds the seat table, shrinking
// it by one letter unless the last vote tied.
func (f *FSM) resetRound() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.roundNumber++
	f.roundReady = map[string]bool{}
	// roundAckStart is deliberately NOT reset here: ack_start is only ever
	// broadcast during round 1's INIT start barrier, so from round 2 on
	// allVotedToStart's len(roundAckStart) >= len(roundInputs) check must
	// keep passing on the same set collected back in round 1, or no later
	// round would ever start (original's _reset_round leaves
	// _round_ackstart untouched for the same reason).
	f.roundStarted = false

	if !f.voteTied && len(f.seatOrder) > 0 {
		f.seatOrder = f.seatOrder[:len(f.seatOrder)-1]
	}
	newInputs := make(map[string]string, len(f.seatOrder))
	for _, letter := range f.seatOrder {
		newInputs[letter] = ""
	}
	f.roundInputs = newInputs

	f.myKeypress = ""
	f.myKeypressTime = 0
	f.nakCount = 0
	f.ackCount = 0
	f.isSelectingSeat = false
	f.hotkeysAdded = false
	f.satDownCount = 0
	f.votekick = map[string]int{}
	f.doneVoting = false
	f.voteTied = false
	f.initSendTime = nil
	f.initAckStart = nil
}

// endGame shuts down the transport and marks the FSM finished
// (original's Client.end_game).
func (f *FSM) endGame() {
	_ = f.transport.Close()
	f.hotkeys.Close()
	f.mu.Lock()
	f.gameOver = true
	f.mu.Unlock()
}

// spectator drains incoming traffic (chiefly end_game) while idle.
func (f *FSM) spectator() {
	f.drainIncoming()
}
