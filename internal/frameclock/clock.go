// Package frameclock implements the single-dynamic-master logical frame
// counter, grounded on original_source/game/clock/clock.py. It is
// deliberately thin: ticking
// happens in the game loop, and emitting frame_sync/acquire_master
// packets is the caller's job (FrameClock only decides what the local
// master pointer should become and exposes the knobs the FSM needs to
// decide when to speed up, slow down, or request mastership).
package frameclock

import (
	"sync"

	"github.com/jabolina/daonet/internal/player"
)

// FrameDeltaThreshold (Δ) and SlowDownAlpha (α) govern when a peer slows
// down to let the frame master catch up.
const (
	FrameDeltaThreshold = 2
	SlowDownAlpha       = 0.1
)

// Clock tracks the local frame counter, the peer-reported frame
// counters, and the current master.
type Clock struct {
	mu     sync.Mutex
	myself player.Player
	master *player.Player
	frames map[string]int
	frame  int
}

// New creates a Clock for myself. initialMaster is non-nil only for the
// lobby host, which self-designates on first entry into the game FSM.
func New(myself player.Player, initialMaster *player.Player) *Clock {
	return &Clock{
		myself: myself,
		master: initialMaster,
		frames: make(map[string]int),
	}
}

// Tick increments the local frame counter by one and returns the new
// value. Called once per game-loop iteration.
func (c *Clock) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame++
	return c.frame
}

// Frame returns the current local frame count.
func (c *Clock) Frame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// IsMaster reports whether myself is currently recognized as master.
func (c *Clock) IsMaster() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.master != nil && c.master.Name == c.myself.Name
}

// Master returns the current master, or nil if none is set yet.
func (c *Clock) Master() *player.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.master == nil {
		return nil
	}
	m := *c.master
	return &m
}

// UpdateFrame records the last frame reported by peer.
func (c *Clock) UpdateFrame(peer string, frame int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames[peer] = frame
}

// PeerFrame returns the last frame reported by peer.
func (c *Clock) PeerFrame(peer string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.frames[peer]
	return f, ok
}

// UpdateMaster is invoked when an update_master packet arrives from
// from_. The new master is only accepted if the local master is unset
// or the report comes from the reigning master; this prevents
// split-mastership. It also has the side effect that the very first
// update_master received by any peer is accepted unconditionally
// (master starts nil on every non-host peer), which is intentional
// rather than an oversight left in place.
func (c *Clock) UpdateMaster(newMaster player.Player, from player.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.master == nil || from.Name == c.master.Name {
		c.master = &newMaster
	}
}

// IfMasterEmitNewMaster reports whether myself is currently master;
// callers use this to decide whether to broadcast update_master(newMaster)
// before locally adopting it. The Clock itself never sends packets: it
// owns no reference to the transport, so the FSM checks IsMaster before
// emitting.
func (c *Clock) IfMasterEmitNewMaster() bool {
	return c.IsMaster()
}
