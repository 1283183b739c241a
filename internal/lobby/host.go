package lobby

import (
	"fmt"
	"net"
	"sync"

	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

// Host accepts player registrations until AttemptStart succeeds, then
// broadcasts the frozen tracker to every registrant. Mirrors the
// original's Lobby.start/thread_handler/handle_host split, one goroutine
// per accepted connection instead of one thread per connection.
type Host struct {
	log telemetry.Logger

	listener net.Listener
	trk      *tracker.Tracker

	mu          sync.Mutex
	connections map[string]net.Conn
	started     bool
}

// NewHost binds hostPort and registers the host itself as the first
// tracker entry, matching Lobby.start's self-registration.
func NewHost(hostName, hostIP string, hostPort int, log telemetry.Logger) (*Host, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", hostPort))
	if err != nil {
		return nil, fmt.Errorf("lobby: listen: %w", err)
	}
	trk := tracker.New()
	trk.Add(hostName, hostIP, hostPort)
	return &Host{
		log:         log,
		listener:    listener,
		trk:         trk,
		connections: make(map[string]net.Conn),
	}, nil
}

// Tracker returns the lobby's live (pre-freeze) tracker.
func (h *Host) Tracker() *tracker.Tracker {
	return h.trk
}

// Serve accepts connections until the host stops listening (Close or a
// successful AttemptStart, which closes the listener to unblock Accept).
// Call in its own goroutine, mirroring Lobby.start's accept loop.
func (h *Host) Serve() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			return
		}
		go h.handleConnection(conn)
	}
}

func (h *Host) handleConnection(conn net.Conn) {
	frame := make([]byte, frameSize)
	for {
		n, err := readFull(conn, frame)
		if err != nil || n == 0 {
			return
		}
		env, err := decode(frame)
		if err != nil {
			h.log.Warnf("lobby: malformed frame from %s: %v", conn.RemoteAddr(), err)
			continue
		}
		h.mu.Lock()
		started := h.started
		h.mu.Unlock()
		if started {
			return
		}
		switch env.PacketType {
		case Register:
			h.handleRegister(env, conn)
		case Deregister:
			h.handleDeregister(env, conn)
			return
		default:
			h.reply(conn, nakEnvelope("unknown payload type: "+string(env.PacketType)))
		}
	}
}

func (h *Host) handleRegister(env Envelope, conn net.Conn) {
	var data RegisterData
	if err := unmarshalData(env, &data); err != nil || data.PlayerID == "" || data.Port == 0 {
		h.reply(conn, nakEnvelope("missing player id or port"))
		return
	}
	if h.trk.IsEndpointUsed(data.IPAddress, data.Port) {
		h.reply(conn, nakEnvelope("ip + port in use by another player"))
		return
	}

	h.mu.Lock()
	h.connections[data.PlayerID] = conn
	h.mu.Unlock()
	h.trk.Add(data.PlayerID, data.IPAddress, data.Port)

	h.log.Infof("player registered: %s", data.PlayerID)
	h.reply(conn, ackEnvelope())
}

func (h *Host) handleDeregister(env Envelope, conn net.Conn) {
	var data RegisterData
	if err := unmarshalData(env, &data); err != nil || data.PlayerID == "" {
		return
	}
	h.mu.Lock()
	delete(h.connections, data.PlayerID)
	h.mu.Unlock()
	h.trk.Remove(data.PlayerID)
	_ = conn.Close()
	h.log.Infof("player left the lobby: %s", data.PlayerID)
}

// AttemptStart fires on the local start trigger (space hotkey in the
// original; SIGUSR1 or an Enter keypress on stdin here, since no
// OS-level global hotkey capture is available). It requires at least
// two registered players, freezes the tracker, and broadcasts
// lobby_start to every connection.
func (h *Host) AttemptStart() bool {
	if h.trk.Count() < 2 {
		h.log.Infof("attempted to start with %d players", h.trk.Count())
		return false
	}

	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return false
	}
	h.started = true
	conns := make(map[string]net.Conn, len(h.connections))
	for name, conn := range h.connections {
		conns[name] = conn
	}
	h.mu.Unlock()

	h.trk.Freeze()
	endpoints, leaderList := h.trk.Snapshot()
	env, err := newEnvelope(Start, StartData{Players: leaderList, Tracker: endpoints})
	if err != nil {
		h.log.Errorf("lobby: encode start: %v", err)
		return false
	}

	for name, conn := range conns {
		if err := h.sendEnvelope(conn, env); err != nil {
			h.log.Warnf("lobby: failed to notify %s of start: %v", name, err)
		}
	}
	h.log.Info("all clients notified of game start")
	_ = h.listener.Close()

	// Matches Lobby.start's `finally: connection.close()` block, which
	// runs once the accept loop exits after game_started flips true: the
	// lobby's job with these sockets is done, so every per-connection
	// handleConnection reader is unblocked rather than left waiting on a
	// frame that will never arrive.
	h.mu.Lock()
	h.connections = make(map[string]net.Conn)
	h.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
	return true
}

// Close shuts every open connection and the listener.
func (h *Host) Close() error {
	h.mu.Lock()
	conns := h.connections
	h.connections = nil
	h.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
	return h.listener.Close()
}

func (h *Host) reply(conn net.Conn, env Envelope) {
	if err := h.sendEnvelope(conn, env); err != nil {
		h.log.Warnf("lobby: reply failed: %v", err)
	}
}

func (h *Host) sendEnvelope(conn net.Conn, env Envelope) error {
	frame, err := encode(env)
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

func ackEnvelope() Envelope {
	env, _ := newEnvelope(Ack, map[string]string{"message": "Success"})
	return env
}

func nakEnvelope(message string) Envelope {
	env, _ := newEnvelope(Nak, NakData{Message: message})
	return env
}
