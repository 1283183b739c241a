package frameclock

import (
	"testing"

	"github.com/jabolina/daonet/internal/player"
)

func TestClock_TickIncrements(t *testing.T) {
	c := New(player.Player{Name: "a"}, nil)
	if got := c.Tick(); got != 1 {
		t.Fatalf("expected first tick to be 1, got %d", got)
	}
	if got := c.Tick(); got != 2 {
		t.Fatalf("expected second tick to be 2, got %d", got)
	}
}

func TestClock_InitialMasterIsSelf(t *testing.T) {
	self := player.Player{Name: "host"}
	c := New(self, &self)
	if !c.IsMaster() {
		t.Fatalf("expected host to be master")
	}
}

func TestClock_UpdateMasterAcceptsFirstReport(t *testing.T) {
	self := player.Player{Name: "a"}
	c := New(self, nil)
	other := player.Player{Name: "b"}
	c.UpdateMaster(other, other)
	if c.IsMaster() {
		t.Fatalf("did not expect self to be master")
	}
	m := c.Master()
	if m == nil || m.Name != "b" {
		t.Fatalf("expected master to be b, got %v", m)
	}
}

func TestClock_UpdateMasterRejectsNonMasterReport(t *testing.T) {
	self := player.Player{Name: "a"}
	b := player.Player{Name: "b"}
	c := New(self, &self)
	// a report from a non-reigning peer should be ignored once a master is set
	intruder := player.Player{Name: "c"}
	c.UpdateMaster(intruder, intruder)
	if !c.IsMaster() {
		t.Fatalf("expected self to remain master, intruder report should be rejected")
	}
	// but a report from the reigning master (self) handing off to b is accepted
	c.UpdateMaster(b, self)
	m := c.Master()
	if m == nil || m.Name != "b" {
		t.Fatalf("expected handoff to b, got %v", m)
	}
}

func TestClock_UpdateFrameAndPeerFrame(t *testing.T) {
	c := New(player.Player{Name: "a"}, nil)
	if _, ok := c.PeerFrame("b"); ok {
		t.Fatalf("expected no frame recorded for b yet")
	}
	c.UpdateFrame("b", 5)
	f, ok := c.PeerFrame("b")
	if !ok || f != 5 {
		t.Fatalf("expected frame 5 for b, got %d ok=%v", f, ok)
	}
}
