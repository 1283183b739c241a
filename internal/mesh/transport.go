// Package mesh implements the full-mesh TCP transport every peer uses to
// exchange framed packets, grounded on
// original_source/game/transport/transport.py. The connection-pool and
// dedup-history locking is split into separate mutex-guarded fields
// rather than one coarse lock.
package mesh

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/jabolina/daonet/internal/packet"
	"github.com/jabolina/daonet/internal/player"
	syncpkg "github.com/jabolina/daonet/internal/sync"
	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

// syncTimerInterval is how long Transport waits for a sync_ack before
// retransmitting sync_req to a peer that hasn't answered yet
// (original's `threading.Timer(3, ...)`).
const syncTimerInterval = 3 * time.Second

// dialRetryInterval is the fixed interval between outbound dial attempts,
// matching the original's `time.sleep(1)` inside make_connections.
const dialRetryInterval = time.Second

// ErrClosed is returned by Send once the transport has been shut down;
// SendAll returns nothing and sends nothing after shutdown.
var ErrClosed = errors.New("mesh: transport closed")

// Transport owns the connection pool to every other peer, the packet
// dedup history, the artificial delay table, and the sync_req
// retransmission timers. Sync is exported because GameFSM reads and
// feeds it directly, mirroring the original's tight
// `self._transportLayer.sync` coupling.
type Transport struct {
	myself player.Player
	log    telemetry.Logger
	trk    *tracker.Tracker

	listener net.Listener

	poolMu sync.Mutex
	pool   map[string]net.Conn

	histMu  sync.Mutex
	history map[string]bool

	inbound chan packet.Packet

	delays *delayTable
	pool2  *workerPool

	Sync *syncpkg.Engine

	timersMu  sync.Mutex
	timers    map[string]*time.Timer
	sentSync  bool

	closeOnce sync.Once
	closed    chan struct{}
}

// New binds the local listening socket on port and starts the accept and
// dial loops. rng supplies the artificial per-peer delay draws; pass
// rand.New(rand.NewSource(seed)) in tests for determinism.
func New(myself player.Player, port int, trk *tracker.Tracker, log telemetry.Logger, rng *rand.Rand) (*Transport, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("mesh: listen: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	leaderList := trk.LeaderList()
	t := &Transport{
		myself:  myself,
		log:     log,
		trk:     trk,
		listener: ln,
		pool:    make(map[string]net.Conn),
		history: make(map[string]bool),
		inbound: make(chan packet.Packet, 256),
		delays:  newDelayTable(myself.Name, leaderList, rng),
		pool2:   newWorkerPool(4),
		Sync:    syncpkg.New(myself.Name, leaderList),
		timers:  make(map[string]*time.Timer),
		closed:  make(chan struct{}),
	}

	go t.acceptLoop()
	go t.dialLoop()
	t.log.Debug("transport fully initialized")
	return t, nil
}

// AllConnected reports whether the pool holds a connection to every
// other tracked player.
func (t *Transport) AllConnected() bool {
	t.poolMu.Lock()
	defer t.poolMu.Unlock()
	return len(t.pool) == t.trk.Count()-1
}

// connectionPool is exposed for tests only (mirrors get_connection_pool
// in the original source this package is grounded on).
func (t *Transport) connectionPool() map[string]net.Conn {
	t.poolMu.Lock()
	defer t.poolMu.Unlock()
	out := make(map[string]net.Conn, len(t.pool))
	for k, v := range t.pool {
		out[k] = v
	}
	return out
}

func (t *Transport) addConn(name string, conn net.Conn) bool {
	t.poolMu.Lock()
	defer t.poolMu.Unlock()
	if _, ok := t.pool[name]; ok {
		return false
	}
	t.pool[name] = conn
	return true
}

// Send delays by the artificial per-peer jitter and writes one framed
// packet to peer's connection.
func (t *Transport) Send(pkt packet.Packet, peer string) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}
	time.Sleep(t.delays.wait(peer))
	return t.sendNow(pkt, peer)
}

func (t *Transport) sendNow(pkt packet.Packet, peer string) error {
	t.poolMu.Lock()
	conn, ok := t.pool[peer]
	t.poolMu.Unlock()
	if !ok {
		return fmt.Errorf("mesh: no connection to %s", peer)
	}
	frame, err := pkt.Encode()
	if err != nil {
		return fmt.Errorf("mesh: encode: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("mesh: write to %s: %w", peer, err)
	}
	return nil
}

// SendAll broadcasts pkt to every connected peer. When useSync is true,
// each peer's send is delayed by the wait time SyncEngine computed for
// it, dispatched on the four-worker pool so up to four waits overlap
// instead of stacking (see workerpool.go).
func (t *Transport) SendAll(pkt packet.Packet, useSync bool) {
	select {
	case <-t.closed:
		return
	default:
	}

	t.poolMu.Lock()
	peers := make([]string, 0, len(t.pool))
	for name := range t.pool {
		peers = append(peers, name)
	}
	t.poolMu.Unlock()

	if !useSync {
		for _, peer := range peers {
			if err := t.Send(pkt, peer); err != nil {
				t.log.Warnf("sendall to %s: %v", peer, err)
			}
		}
		return
	}

	waits, ok := t.Sync.WaitTimes()
	for _, peer := range peers {
		peer := peer
		wait := time.Duration(0)
		if ok {
			wait = time.Duration(waits[peer] * float64(time.Second))
		}
		t.pool2.submit(func() {
			time.Sleep(wait)
			if err := t.sendNow(pkt, peer); err != nil {
				t.log.Warnf("sendall to %s: %v", peer, err)
			}
		})
	}
}

// Receive drains one packet from the inbound queue, non-blocking.
func (t *Transport) Receive() (packet.Packet, bool) {
	select {
	case p := <-t.inbound:
		return p, true
	default:
		return packet.Packet{}, false
	}
}

// Syncing sends sync_req to, and arms a retransmission timer for, every
// leader-list peer that hasn't answered yet, if self is the current sync
// leader and hasn't already sent this round (original's Transport.syncing).
func (t *Transport) Syncing(roundNumber int) {
	if !t.Sync.IsLeaderSelf() || t.sentSync {
		return
	}
	syncReq, _ := packet.New(packet.SyncReq, t.myself, roundNumber, time.Now().UnixNano())
	syncReq.RoundNumber = roundNumber
	for _, peer := range t.Sync.LeaderList() {
		if peer == t.myself.Name || t.Sync.HasDelay(peer) {
			continue
		}
		peer := peer
		t.pool2.submit(func() {
			if err := t.Send(syncReq, peer); err != nil {
				t.log.Warnf("send sync_req to %s: %v", peer, err)
			}
		})
		t.armTimer(peer, syncReq)
	}
	t.sentSync = true
}

func (t *Transport) armTimer(peer string, pkt packet.Packet) {
	timer := time.AfterFunc(syncTimerInterval, func() {
		select {
		case <-t.closed:
			return
		default:
		}
		t.log.Debugf("sync_req timeout, resending to %s", peer)
		if err := t.sendNow(pkt, peer); err != nil {
			t.log.Warnf("resend sync_req to %s: %v", peer, err)
		}
		t.armTimer(peer, pkt)
	})
	t.timersMu.Lock()
	t.timers[peer] = timer
	t.timersMu.Unlock()
}

// CancelSyncTimer stops the retransmission timer for peer once its
// sync_ack has arrived.
func (t *Transport) CancelSyncTimer(peer string) {
	t.timersMu.Lock()
	defer t.timersMu.Unlock()
	if timer, ok := t.timers[peer]; ok {
		timer.Stop()
		delete(t.timers, peer)
	}
}

// StopTimers cancels every still-armed sync_req timer.
func (t *Transport) StopTimers() {
	t.timersMu.Lock()
	defer t.timersMu.Unlock()
	for peer, timer := range t.timers {
		timer.Stop()
		delete(t.timers, peer)
	}
}

// ResetSync clears SyncEngine's state and the sent_sync flag at the
// start of a new round.
func (t *Transport) ResetSync() {
	t.Sync.Reset()
	t.sentSync = false
}

// Close stops the accept/dial loops, closes every pooled connection, and
// drains the worker pool and timers.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.StopTimers()
		_ = t.listener.Close()
		t.poolMu.Lock()
		for _, conn := range t.pool {
			_ = conn.Close()
		}
		t.poolMu.Unlock()
		t.pool2.close()
	})
	return nil
}
