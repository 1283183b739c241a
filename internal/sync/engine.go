// Package sync implements the rotating-leader pairwise delay probe that
// derives per-peer wait times for simultaneous broadcast.
//
// Grounded on original_source/game/clock/sync.py. The package is pure
// state plus the wait-time formula: the actual sending of sync_req /
// sync_ack / peer_sync_ack packets is orchestrated by the transport and
// game FSM layers, exactly as in the original (Sync never touches a
// socket).
package sync

import gosync "sync"

// Engine holds one sync phase's state: which peer currently leads the
// probe, and the delays measured against each peer so far.
type Engine struct {
	mu         gosync.Mutex
	self       string
	leaderList []string
	leaderIdx  int
	delayDict  map[string]float64
}

// New creates an Engine for self using the frozen leader rotation order.
func New(self string, leaderList []string) *Engine {
	return &Engine{
		self:       self,
		leaderList: append([]string(nil), leaderList...),
		delayDict:  make(map[string]float64),
	}
}

// IsLeaderSelf reports whether self is the current phase leader.
func (e *Engine) IsLeaderSelf() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.leaderList) == 0 {
		return false
	}
	return e.leaderList[e.leaderIdx] == e.self
}

// CurrentLeader returns the name of the peer currently leading the
// probe.
func (e *Engine) CurrentLeader() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.leaderList) == 0 {
		return ""
	}
	return e.leaderList[e.leaderIdx]
}

// NextLeader advances leaderIdx by one, clamped at the end of the list:
// leaderIdx is monotone non-decreasing and never exceeds
// len(leaderList)-1.
func (e *Engine) NextLeader() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.leaderIdx < len(e.leaderList)-1 {
		e.leaderIdx++
	}
}

// NoMoreLeader reports whether the phase has visited every leader.
func (e *Engine) NoMoreLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaderIdx == len(e.leaderList)-1
}

// RecordDelay stores the last-reported delay for peer. A repeated
// report (e.g. after a retransmitted sync_req produces a duplicate
// sync_ack) simply overwrites; last value wins.
func (e *Engine) RecordDelay(peer string, delay float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delayDict[peer] = delay
}

// HasDelay reports whether peer already has a recorded delay, used by
// the transport to avoid re-arming a timer for a peer that already
// answered.
func (e *Engine) HasDelay(peer string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.delayDict[peer]
	return ok
}

// Done reports whether every non-self peer has a recorded delay.
func (e *Engine) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.delayDict) == len(e.leaderList)-1
}

type delayEntry struct {
	peer  string
	delay float64
}

// WaitTimes derives, for each peer, the outbound wait applied before a
// synchronized broadcast send: wait(p) = d_max - d_p, where d_max is
// the slowest recorded delay. The slowest peer waits 0; faster peers
// wait longer so that the latest arrival across all recipients is
// minimized. Returns (nil, false) if the delay dict is not yet
// complete, in which case callers should fall back to zero waits for
// every peer.
func (e *Engine) WaitTimes() (map[string]float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	expected := len(e.leaderList) - 1
	if expected < 0 {
		expected = 0
	}
	if len(e.delayDict) != expected {
		return nil, false
	}

	ordered := make([]delayEntry, 0, len(e.delayDict))
	for peer, d := range e.delayDict {
		ordered = append(ordered, delayEntry{peer: peer, delay: d})
	}
	// sort descending by delay (slowest first)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].delay > ordered[j-1].delay; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	waits := make(map[string]float64, len(ordered))
	if len(ordered) == 0 {
		return waits, true
	}
	dMax := ordered[0].delay
	for _, entry := range ordered {
		waits[entry.peer] = dMax - entry.delay
	}
	waits[ordered[0].peer] = 0
	return waits, true
}

// Reset clears delayDict and rewinds leaderIdx to 0, as done at the
// start of every new sync phase.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaderIdx = 0
	e.delayDict = make(map[string]float64)
}

// LeaderList returns a copy of the rotation order.
func (e *Engine) LeaderList() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.leaderList...)
}
