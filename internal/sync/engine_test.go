package sync

import "testing"

func TestEngine_NextLeaderClampsAtEnd(t *testing.T) {
	e := New("a", []string{"a", "b", "c"})
	if !e.IsLeaderSelf() {
		t.Fatalf("expected a to be leader")
	}
	e.NextLeader()
	e.NextLeader()
	if !e.NoMoreLeader() {
		t.Fatalf("expected phase to be done at last leader")
	}
	e.NextLeader() // should clamp
	if e.CurrentLeader() != "c" {
		t.Fatalf("expected leader to stay clamped at c, got %s", e.CurrentLeader())
	}
}

func TestEngine_WaitTimesIncompleteReturnsFalse(t *testing.T) {
	e := New("a", []string{"a", "b", "c"})
	e.RecordDelay("b", 0.05)
	if _, ok := e.WaitTimes(); ok {
		t.Fatalf("expected incomplete delay dict to report not-ok")
	}
}

func TestEngine_WaitTimesFormula(t *testing.T) {
	e := New("a", []string{"a", "b", "c"})
	e.RecordDelay("b", 0.03)
	e.RecordDelay("c", 0.07)
	waits, ok := e.WaitTimes()
	if !ok {
		t.Fatalf("expected complete delay dict")
	}
	if waits["c"] != 0 {
		t.Fatalf("expected slowest peer c to wait 0, got %v", waits["c"])
	}
	if got, want := waits["b"], 0.04; abs(got-want) > 1e-9 {
		t.Fatalf("expected b to wait %v, got %v", want, got)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func TestEngine_RecordDelayLastValueWins(t *testing.T) {
	e := New("a", []string{"a", "b", "c"})
	e.RecordDelay("c", 0.05)
	e.RecordDelay("b", 0.01)
	e.RecordDelay("b", 0.02)
	waits, ok := e.WaitTimes()
	if !ok {
		t.Fatalf("expected complete")
	}
	if got, want := waits["b"], 0.03; abs(got-want) > 1e-9 {
		t.Fatalf("expected b's last delay 0.02 to win (wait %v), got %v", want, got)
	}
}
