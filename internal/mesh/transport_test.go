package mesh

import (
	"math/rand"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/daonet/internal/packet"
	"github.com/jabolina/daonet/internal/player"
	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

func discardLogger() telemetry.Logger {
	return telemetry.New(discardWriter{})
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestTransport_ConnectsFullMesh(t *testing.T) {
	a := player.New("alice")
	b := player.New("bob")

	portA := 29501
	portB := 29502

	trk := tracker.New()
	trk.Add(a.Name, "127.0.0.1", portA)
	trk.Add(b.Name, "127.0.0.1", portB)
	trk.Freeze()

	rng := rand.New(rand.NewSource(1))

	ta, err := New(a, portA, trk, discardLogger(), rng)
	if err != nil {
		t.Fatalf("new transport a: %v", err)
	}
	defer ta.Close()

	tb, err := New(b, portB, trk, discardLogger(), rng)
	if err != nil {
		t.Fatalf("new transport b: %v", err)
	}
	defer tb.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ta.AllConnected() && tb.AllConnected() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ta.AllConnected() || !tb.AllConnected() {
		t.Fatalf("expected both sides fully connected, a=%v b=%v", ta.AllConnected(), tb.AllConnected())
	}
	if _, ok := ta.connectionPool()[b.Name]; !ok {
		t.Fatalf("expected a's pool to contain b")
	}
}

func TestTransport_SendDeduplicatesByHash(t *testing.T) {
	a := player.New("alice")
	b := player.New("bob")
	portA, portB := 29601, 29602

	trk := tracker.New()
	trk.Add(a.Name, "127.0.0.1", portA)
	trk.Add(b.Name, "127.0.0.1", portB)
	trk.Freeze()

	rng := rand.New(rand.NewSource(2))
	ta, err := New(a, portA, trk, discardLogger(), rng)
	if err != nil {
		t.Fatalf("new a: %v", err)
	}
	defer ta.Close()
	tb, err := New(b, portB, trk, discardLogger(), rng)
	if err != nil {
		t.Fatalf("new b: %v", err)
	}
	defer tb.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !(ta.AllConnected() && tb.AllConnected()) {
		time.Sleep(10 * time.Millisecond)
	}

	pkt, err := packet.New(packet.ReadyToStart, a, nil, 42)
	if err != nil {
		t.Fatalf("new packet: %v", err)
	}
	if err := ta.Send(pkt, b.Name); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := ta.Send(pkt, b.Name); err != nil {
		t.Fatalf("resend: %v", err)
	}

	received := 0
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := tb.Receive(); ok {
			received++
		}
		time.Sleep(5 * time.Millisecond)
	}
	if received != 1 {
		t.Fatalf("expected exactly 1 delivery after dedup, got %d", received)
	}
}

// TestTransport_CloseLeavesNoGoroutines guards against the accept loop,
// dial loop, worker pool, and retransmission timers outliving Close.
func TestTransport_CloseLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := player.New("alice")
	b := player.New("bob")
	portA, portB := 29701, 29702

	trk := tracker.New()
	trk.Add(a.Name, "127.0.0.1", portA)
	trk.Add(b.Name, "127.0.0.1", portB)
	trk.Freeze()

	rng := rand.New(rand.NewSource(3))
	ta, err := New(a, portA, trk, discardLogger(), rng)
	if err != nil {
		t.Fatalf("new a: %v", err)
	}
	tb, err := New(b, portB, trk, discardLogger(), rng)
	if err != nil {
		t.Fatalf("new b: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !(ta.AllConnected() && tb.AllConnected()) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := ta.Close(); err != nil {
		t.Fatalf("close a: %v", err)
	}
	if err := tb.Close(); err != nil {
		t.Fatalf("close b: %v", err)
	}
}
