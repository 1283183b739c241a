// Package fsm implements the per-peer game state machine that drives a
// round of musical chairs once peering and clock synchronization have
// completed, grounded on original_source/game/client.py, the single
// largest source file in the pack, containing the entire FSM in one
// class. Each of that class's logical sections (peering, sync, seat
// contention, voting, round reset, incoming-packet dispatch) gets its
// own file here.
package fsm

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/jabolina/daonet/internal/frameclock"
	"github.com/jabolina/daonet/internal/hotkey"
	"github.com/jabolina/daonet/internal/mesh"
	"github.com/jabolina/daonet/internal/packet"
	"github.com/jabolina/daonet/internal/player"
	"github.com/jabolina/daonet/internal/telemetry"
	"github.com/jabolina/daonet/internal/tracker"
)

// State tags one position in the round lifecycle.
type State string

const (
	Peering           State = "PEERING"
	ResetSync         State = "RESET_SYNC"
	SynchronizeClock  State = "SYNCHRONIZE_CLOCK"
	AwaitSyncEnd      State = "AWAIT_SYNC_END"
	Init              State = "INIT"
	AwaitKeypress     State = "AWAIT_KEYPRESS"
	AwaitRoundEnd     State = "AWAIT_ROUND_END"
	EndRound          State = "END_ROUND"
	EndGame           State = "END_GAME"
	Spectator         State = "SPECTATOR"
)

// loopInterval is the fixed game-loop sleep, matching the original's
// self.loop_interval = 0.5.
const loopInterval = 500 * time.Millisecond

// FSM is the per-peer game state machine. Exactly one runs per process;
// every peer runs the identical machine against its own view of the
// shared protocol state.
type FSM struct {
	mu sync.Mutex

	myself      player.Player
	state       State
	gameOver    bool
	totalPlayers int
	roundNumber int
	amSpectator bool

	players  map[string]player.Player
	votekick map[string]int

	transport *mesh.Transport
	clock     *frameclock.Clock
	log       telemetry.Logger

	osName  string
	hotkeys hotkey.Source

	roundInputs map[string]string // seat letter -> occupant name, "" if empty
	seatOrder   []string          // stable iteration/removal order

	isPeeringCompleted bool

	roundReady    map[string]bool
	roundAckStart map[string]bool
	roundStarted  bool
	initSendTime  *time.Time
	initAckStart  *time.Time

	myKeypress     string
	myKeypressTime int64
	isSelectingSeat bool
	hotkeysAdded    bool
	ackCount        int
	nakCount        int
	satDownCount    int
	doneVoting      bool
	voteTied        bool

	alpha      float64
	frameDeltaThreshold int
}

// Option configures New.
type Option func(*FSM)

// WithHotkeySource overrides the default stdin-based seat-letter source,
// used by tests to inject deterministic key presses.
func WithHotkeySource(src hotkey.Source) Option {
	return func(f *FSM) { f.hotkeys = src }
}

// WithOSName overrides runtime.GOOS detection, used by tests exercising
// the Windows key-code branch on non-Windows build machines.
func WithOSName(name string) Option {
	return func(f *FSM) { f.osName = name }
}

// New builds the FSM for myself. isHost marks the lobby host, which
// self-designates as the initial frame-clock master.
func New(myself player.Player, trk *tracker.Tracker, transport *mesh.Transport, log telemetry.Logger, isHost bool, opts ...Option) *FSM {
	total := trk.Count()
	seatCount := total - 1
	if seatCount < 0 {
		seatCount = 0
	}
	letters := append([]string(nil), hotkey.Letters[:min(len(hotkey.Letters), seatCount)]...)

	roundInputs := make(map[string]string, len(letters))
	for _, l := range letters {
		roundInputs[l] = ""
	}

	players := map[string]player.Player{myself.Name: myself}

	var initialMaster *player.Player
	if isHost {
		initialMaster = &myself
	}

	f := &FSM{
		myself:       myself,
		state:        Peering,
		totalPlayers: total,
		roundNumber:  1,
		players:      players,
		votekick:     map[string]int{},
		transport:    transport,
		clock:        frameclock.New(myself, initialMaster),
		log:          log,
		osName:       runtime.GOOS,
		seatOrder:    letters,
		roundInputs:  roundInputs,
		roundReady:    map[string]bool{},
		roundAckStart: map[string]bool{},
		alpha:               frameclock.SlowDownAlpha,
		frameDeltaThreshold: frameclock.FrameDeltaThreshold,
	}
	if f.osName == "darwin" {
		f.osName = "Darwin"
	} else if f.osName == "windows" {
		f.osName = "Windows"
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.hotkeys == nil {
		f.hotkeys = hotkey.NewStdinReader(os.Stdin, f.currentSeatCodes())
	}
	return f
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// currentSeatCodes returns the OS key-code table restricted to the seat
// letters still in play this round.
func (f *FSM) currentSeatCodes() map[string]int {
	table := hotkey.Table(f.osName)
	out := make(map[string]int, len(f.seatOrder))
	for _, letter := range f.seatOrder {
		if code, ok := table[letter]; ok {
			out[letter] = code
		}
	}
	return out
}

// State returns the current FSM state, for tests and diagnostics.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// GameOver reports whether the FSM has reached END_GAME.
func (f *FSM) GameOver() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gameOver
}

// Run drives the game loop until GameOver, matching Client.start's
// sleep-frame-dispatch cadence. Blocks until the game is over.
func (f *FSM) Run() {
	for !f.GameOver() {
		time.Sleep(loopInterval)

		frame := f.clock.Tick()
		isMaster := f.clock.IsMaster()

		f.log.WithFields(telemetry.Fields{
			"Logger Name": "FRAME COUNT",
			"Frame Count": frame,
			"Player Name": f.myself.Name,
		}).Debug("frame tick")

		if isMaster && frame%10 == 0 {
			pkt, _ := packet.New(packet.FrameSync, f.myself, frame, time.Now().UnixNano())
			f.transport.SendAll(pkt, true)
		}

		f.dispatch()
	}
}

// dispatch runs the handler for the current state, mirroring
// trigger_handler's state-name switch.
func (f *FSM) dispatch() {
	switch f.State() {
	case Peering:
		f.peering()
	case ResetSync:
		f.resetSyncState()
	case SynchronizeClock:
		f.syncClock()
	case AwaitSyncEnd:
		f.awaitSyncEnd()
	case Init:
		f.init()
	case AwaitKeypress:
		f.awaitKeypress()
	case AwaitRoundEnd:
		f.awaitRoundEnd()
	case EndRound:
		f.endRound()
	case EndGame:
		f.endGame()
	case Spectator:
		f.spectator()
	}
}

func (f *FSM) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
