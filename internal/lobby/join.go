package lobby

import (
	"fmt"
	"net"

	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

// ErrRejected is returned by Join when the host replies lobby_nak.
type ErrRejected struct{ Message string }

func (e *ErrRejected) Error() string { return "lobby: registration rejected: " + e.Message }

// ErrHostExited is returned by Join when the host closes the lobby
// before sending lobby_start (lobby_shutdown).
var ErrHostExited = fmt.Errorf("lobby: host exited before game start")

// ErrCanceled is returned by Join when cancel fires before the host
// starts the game, mirroring Lobby.join's KeyboardInterrupt path.
var ErrCanceled = fmt.Errorf("lobby: registration canceled")

type joinResult struct {
	trk *tracker.Tracker
	err error
}

// Join dials the host, registers playerName at (playerIP, playerPort),
// and blocks until the host either starts the game (returning the frozen
// tracker), rejects/shuts down, or cancel fires, mirroring Lobby.join. A
// cancel firing mid-wait sends lobby_deregister to the host before
// returning ErrCanceled, the same courtesy Lobby.join's
// KeyboardInterrupt handler pays.
func Join(hostIP string, hostPort int, playerName, playerIP string, playerPort int, log telemetry.Logger, cancel <-chan struct{}) (*tracker.Tracker, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", hostIP, hostPort))
	if err != nil {
		return nil, fmt.Errorf("lobby: dial host: %w", err)
	}
	defer conn.Close()

	registerEnv, err := newEnvelope(Register, RegisterData{
		PlayerID:  playerName,
		IPAddress: playerIP,
		Port:      playerPort,
	})
	if err != nil {
		return nil, err
	}
	frame, err := encode(registerEnv)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(frame); err != nil {
		return nil, fmt.Errorf("lobby: send register: %w", err)
	}

	results := make(chan joinResult, 1)
	go func() {
		results <- awaitStart(conn, log)
	}()

	select {
	case res := <-results:
		return res.trk, res.err
	case <-cancel:
		if err := Deregister(conn, playerName, playerIP, playerPort); err != nil {
			log.Warnf("lobby: deregister on cancel: %v", err)
		}
		return nil, ErrCanceled
	}
}

func awaitStart(conn net.Conn, log telemetry.Logger) joinResult {
	buf := make([]byte, frameSize)
	for {
		n, err := readFull(conn, buf)
		if err != nil || n == 0 {
			return joinResult{err: fmt.Errorf("lobby: connection closed before game start: %w", err)}
		}
		env, err := decode(buf)
		if err != nil {
			log.Warnf("lobby: malformed frame from host: %v", err)
			continue
		}
		switch env.PacketType {
		case Ack:
			log.Info("registered with lobby")
		case Nak:
			var data NakData
			_ = unmarshalData(env, &data)
			return joinResult{err: &ErrRejected{Message: data.Message}}
		case Shutdown:
			return joinResult{err: ErrHostExited}
		case Start:
			var data StartData
			if err := unmarshalData(env, &data); err != nil {
				return joinResult{err: &ErrRejected{Message: "malformed start payload: " + err.Error()}}
			}
			log.Infof("game starting with players: %v", data.Players)
			return joinResult{trk: tracker.FromSnapshot(data.Tracker, data.Players)}
		}
	}
}

// Deregister notifies the host that the local player is leaving the
// lobby before the game has started, mirroring Lobby.join's
// KeyboardInterrupt path.
func Deregister(conn net.Conn, playerName, playerIP string, playerPort int) error {
	env, err := newEnvelope(Deregister, RegisterData{
		PlayerID:  playerName,
		IPAddress: playerIP,
		Port:      playerPort,
	})
	if err != nil {
		return err
	}
	frame, err := encode(env)
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}
