package lobby

import (
	"io"
	"testing"
	"time"

	"github.com/jabolina/daonet/internal/telemetry"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() telemetry.Logger {
	var w io.Writer = discardWriter{}
	return telemetry.New(w)
}

func TestHostAcceptsRegistrationAndStarts(t *testing.T) {
	log := testLogger()
	host, err := NewHost("host", "127.0.0.1", 31001, log)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer host.Close()
	go host.Serve()

	done := make(chan struct{})
	var joinErr error
	go func() {
		_, joinErr = Join("127.0.0.1", 31001, "alice", "127.0.0.1", 31002, log, nil)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for host.Tracker().Count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for registration, have %d players", host.Tracker().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !host.AttemptStart() {
		t.Fatalf("expected AttemptStart to succeed with 2 players")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for join to return")
	}
	if joinErr != nil {
		t.Fatalf("join returned error: %v", joinErr)
	}
}

func TestAttemptStartRefusesBelowTwoPlayers(t *testing.T) {
	log := testLogger()
	host, err := NewHost("host", "127.0.0.1", 31011, log)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer host.Close()

	if host.AttemptStart() {
		t.Fatalf("expected AttemptStart to refuse with only 1 player")
	}
}

func TestJoinCancelSendsDeregister(t *testing.T) {
	log := testLogger()
	host, err := NewHost("host", "127.0.0.1", 31031, log)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer host.Close()
	go host.Serve()

	cancel := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, joinErr := Join("127.0.0.1", 31031, "alice", "127.0.0.1", 31002, log, cancel)
		done <- joinErr
	}()

	deadline := time.Now().Add(2 * time.Second)
	for host.Tracker().Count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for alice to register")
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(cancel)

	select {
	case joinErr := <-done:
		if joinErr != ErrCanceled {
			t.Fatalf("expected ErrCanceled, got %v", joinErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for canceled join to return")
	}

	deadline = time.Now().Add(2 * time.Second)
	for host.Tracker().Count() > 1 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for host to process deregister, still have %d players", host.Tracker().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHostRejectsDuplicateEndpoint(t *testing.T) {
	log := testLogger()
	host, err := NewHost("host", "127.0.0.1", 31021, log)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer host.Close()
	go host.Serve()

	go func() { _, _ = Join("127.0.0.1", 31021, "alice", "127.0.0.1", 31001, log, nil) }()

	deadline := time.Now().Add(2 * time.Second)
	for host.Tracker().Count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for alice to register")
		}
		time.Sleep(10 * time.Millisecond)
	}

	done := make(chan error, 1)
	go func() {
		_, joinErr := Join("127.0.0.1", 31021, "bob", "127.0.0.1", 31001, log, nil)
		done <- joinErr
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected rejection for reused ip+port")
		}
		if _, ok := err.(*ErrRejected); !ok {
			t.Fatalf("expected ErrRejected, got %T: %v", err, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for rejection")
	}
}
