package fsm

import (
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/jabolina/daonet/internal/hotkey"
	"github.com/jabolina/daonet/internal/mesh"
	"github.com/jabolina/daonet/internal/player"
	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func botName(i int) string {
	return "bot" + string(rune('0'+i))
}

func newTestFSM(t *testing.T, port int, total int) *FSM {
	t.Helper()
	me := player.New("alice")
	trk := tracker.New()
	trk.Add(me.Name, "127.0.0.1", port)
	for i := 1; i < total; i++ {
		trk.Add(player.New(botName(i)).Name, "127.0.0.1", port+i)
	}
	trk.Freeze()

	var w io.Writer = discardWriter{}
	log := telemetry.New(w)
	transport, err := mesh.New(me, port, trk, log, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	t.Cleanup(func() { _ = transport.Close() })

	noop := hotkey.NewStdinReader(strings.NewReader(""), map[string]int{})
	t.Cleanup(noop.Close)
	f := New(me, trk, transport, log, true, WithHotkeySource(noop))
	return f
}

func TestAllSeatsFilled(t *testing.T) {
	f := newTestFSM(t, 30001, 3)
	if f.allSeatsFilled() {
		t.Fatalf("expected seats not filled initially")
	}
	for letter := range f.roundInputs {
		f.roundInputs[letter] = "someone"
	}
	if !f.allSeatsFilled() {
		t.Fatalf("expected seats filled after assignment")
	}
}

func TestHandleAction_SeatAlreadyTaken(t *testing.T) {
	f := newTestFSM(t, 30011, 3)
	for letter := range f.roundInputs {
		f.roundInputs[letter] = "bob"
		break
	}
	var seat string
	for letter, occ := range f.roundInputs {
		if occ == "bob" {
			seat = letter
		}
	}
	f.handleAction(incomingAction{seat: seat, sender: "carol", createdAt: 1})
	if f.roundInputs[seat] != "bob" {
		t.Fatalf("expected seat to remain held by bob, got %s", f.roundInputs[seat])
	}
}

func TestHandleAction_EmptySeatGetsClaimed(t *testing.T) {
	f := newTestFSM(t, 30021, 3)
	var seat string
	for letter := range f.roundInputs {
		seat = letter
		break
	}
	f.handleAction(incomingAction{seat: seat, sender: "carol", createdAt: 1})
	if f.roundInputs[seat] != "carol" {
		t.Fatalf("expected seat claimed by carol, got %s", f.roundInputs[seat])
	}
}

func TestHandleAction_LastSeatTieBreakFavorsEarlierClaim(t *testing.T) {
	f := newTestFSM(t, 30031, 3)
	// collapse to a single remaining seat
	f.roundInputs = map[string]string{"Q": ""}
	f.myKeypressTime = 100
	// incoming claim with a later timestamp loses the tie
	f.handleAction(incomingAction{seat: "Q", sender: "carol", createdAt: 150})
	if f.roundInputs["Q"] != "" {
		t.Fatalf("expected seat to remain open, my earlier claim should win the tie")
	}
	if f.myKeypressTime != 0 {
		t.Fatalf("expected my claim timestamp to be reset after winning the tie")
	}
}

func TestFindKickCandidate(t *testing.T) {
	f := newTestFSM(t, 30041, 3)
	f.players["bob"] = player.Player{Name: "bob"}
	f.players["carol"] = player.Player{Name: "carol"}
	seats := []string{}
	for letter := range f.roundInputs {
		seats = append(seats, letter)
	}
	f.roundInputs[seats[0]] = "alice"
	if len(seats) > 1 {
		f.roundInputs[seats[1]] = "bob"
	}
	candidate := f.findKickCandidate()
	if candidate != "carol" {
		t.Fatalf("expected carol to be the kick candidate, got %s", candidate)
	}
}

func TestTallyVotesAndAdvance_UniqueMaxKicksPlayer(t *testing.T) {
	f := newTestFSM(t, 30051, 3)
	f.players["bob"] = player.Player{Name: "bob"}
	f.votekick = map[string]int{"bob": 2, "alice": 1}
	f.tallyVotesAndAdvance()
	if _, ok := f.players["bob"]; ok {
		t.Fatalf("expected bob to be removed")
	}
	if f.voteTied {
		t.Fatalf("did not expect a tie")
	}
	if f.state != EndRound {
		t.Fatalf("expected state END_ROUND, got %s", f.state)
	}
}

func TestTallyVotesAndAdvance_TieKicksNobody(t *testing.T) {
	f := newTestFSM(t, 30061, 3)
	f.players["bob"] = player.Player{Name: "bob"}
	f.votekick = map[string]int{"bob": 1, "alice": 1}
	f.tallyVotesAndAdvance()
	if _, ok := f.players["bob"]; !ok {
		t.Fatalf("expected bob to remain after a tie")
	}
	if !f.voteTied {
		t.Fatalf("expected voteTied to be set")
	}
}

func TestResetRound_ShrinksSeatTableUnlessTied(t *testing.T) {
	f := newTestFSM(t, 30071, 4)
	before := len(f.seatOrder)
	f.resetRound()
	if len(f.seatOrder) != before-1 {
		t.Fatalf("expected seat table to shrink by one, had %d now %d", before, len(f.seatOrder))
	}
	if f.roundNumber != 2 {
		t.Fatalf("expected round number to advance to 2, got %d", f.roundNumber)
	}
}

func TestResetRound_KeepsSeatCountOnTie(t *testing.T) {
	f := newTestFSM(t, 30081, 4)
	f.voteTied = true
	before := len(f.seatOrder)
	f.resetRound()
	if len(f.seatOrder) != before {
		t.Fatalf("expected seat table to stay the same size after a tie, had %d now %d", before, len(f.seatOrder))
	}
}

// TestResetRound_PreservesRoundAckStart guards against regressing to
// clearing roundAckStart every round: ack_start is only ever broadcast
// during round 1's INIT barrier, so allVotedToStart must keep passing
// against the set collected there for every later round, or no round
// past the first would ever start.
func TestResetRound_PreservesRoundAckStart(t *testing.T) {
	f := newTestFSM(t, 30091, 4)
	f.roundAckStart = map[string]bool{"bot1": true, "bot2": true, "bot3": true}
	f.resetRound()
	if len(f.roundAckStart) != 3 {
		t.Fatalf("expected roundAckStart to survive resetRound, got %d entries", len(f.roundAckStart))
	}
}

// TestAwaitKeypress_UnseatedPlayerAdvancesOnceSeatsFilled guards against
// regressing to a structure where the all-seats-filled check is only
// reachable while a local keypress is pending: a player whose claim
// already failed (no pending keypress, not selecting) must still notice
// every seat is filled and advance to AWAIT_ROUND_END so it can cast its
// vote, rather than sitting in AWAIT_KEYPRESS re-binding hotkeys for a
// round that has already been decided.
func TestAwaitKeypress_UnseatedPlayerAdvancesOnceSeatsFilled(t *testing.T) {
	f := newTestFSM(t, 30101, 3)
	f.roundStarted = true
	for letter := range f.roundInputs {
		f.roundInputs[letter] = "someone-else"
	}
	f.awaitKeypress()
	if f.state != AwaitRoundEnd {
		t.Fatalf("expected unseated player to advance to AWAIT_ROUND_END, got %s", f.state)
	}
}
