// Command daonet is the CLI entry point: parses flags, opens the
// structured log file, runs the pre-game lobby, then drives the game
// FSM to completion. Grounded on original_source/game/main.py and
// logs.py for the flag surface and the log-file naming convention.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/daonet/internal/fsm"
	"github.com/jabolina/daonet/internal/lobby"
	"github.com/jabolina/daonet/internal/mesh"
	"github.com/jabolina/daonet/internal/player"
	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

var (
	mode       = kingpin.Flag("mode", "host or player").Short('m').Default("host").Enum("host", "player")
	hostIP     = kingpin.Flag("host-ip", "lobby host's IP address").Short('i').Default("127.0.0.1").String()
	playerIP   = kingpin.Flag("player-ip", "this player's advertised IP address").Short('p').String()
	hostPort   = kingpin.Flag("host-port", "lobby host's port").Short('o').Default("9999").Int()
	playerPort = kingpin.Flag("player-port", "this player's advertised port").Short('r').Int()
	name       = kingpin.Flag("name", "player name; a two-word name is generated if omitted").Short('n').String()
)

func main() {
	kingpin.Parse()

	if *mode == "player" && (*playerIP == "" || *playerPort == 0) {
		fmt.Fprintln(os.Stderr, "player mode requires --player-ip and --player-port")
		os.Exit(1)
	}

	playerName := *name
	if playerName == "" {
		playerName = generateName(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	role := "PLAYER"
	if *mode == "host" {
		role = "HOST"
	}
	log, err := telemetry.NewFile(logPath(role, playerName, time.Now()))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}

	var trk *tracker.Tracker
	isHost := *mode == "host"

	if isHost {
		trk, err = runHost(playerName, *hostIP, *hostPort, log)
	} else {
		trk, err = runPlayer(playerName, *hostIP, *hostPort, *playerIP, *playerPort, log)
	}
	if err != nil {
		log.Fatalf("lobby failed: %v", err)
	}

	me, _ := trk.Endpoint(playerName)
	myself := player.New(playerName)
	transport, err := mesh.New(myself, me.Port, trk, log, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("failed to start transport: %v", err)
	}

	machine := fsm.New(myself, trk, transport, log, isHost)
	machine.Run()
	os.Exit(0)
}

// runHost drives the lobby as the host: bind, accept registrations, and
// wait for a local start trigger (SIGUSR1 or Enter on stdin, since no
// OS-level global hotkey capture exists in the pack).
func runHost(hostName, ip string, port int, log telemetry.Logger) (*tracker.Tracker, error) {
	host, err := lobby.NewHost(hostName, ip, port, log)
	if err != nil {
		return nil, err
	}
	go host.Serve()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	stdin := make(chan struct{}, 1)
	go waitForEnter(stdin)

	for {
		select {
		case <-sig:
		case <-stdin:
		}
		if host.AttemptStart() {
			return host.Tracker(), nil
		}
	}
}

func waitForEnter(out chan<- struct{}) {
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return
		}
		if buf[0] == '\n' {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

// runPlayer joins the lobby, canceling the registration (and telling the
// host via lobby_deregister) if SIGINT/SIGTERM arrives before the host
// starts the game, mirroring Lobby.join's KeyboardInterrupt handling.
func runPlayer(playerName, hostIP string, hostPort int, playerIP string, playerPort int, log telemetry.Logger) (*tracker.Tracker, error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	cancel := make(chan struct{})
	go func() {
		<-sig
		close(cancel)
	}()

	return lobby.Join(hostIP, hostPort, playerName, playerIP, playerPort, log, cancel)
}

func logPath(role, name string, now time.Time) string {
	return fmt.Sprintf("./logs/%s_%s_%s_DAO-NET.json", role, name, now.Format("15-04-05"))
}
