package hotkey

import (
	"bufio"
	"io"
	"strings"
)

// StdinReader implements Source by reading single-letter lines from r,
// uppercasing and filtering to the seats currently in play. It stands in
// for the OS global-hotkey capture the original registers with
// keyboard.add_hotkey; no portable equivalent exists outside a
// per-process terminal read, so that's the substitution made here (see
// DESIGN.md).
type StdinReader struct {
	out  chan string
	done chan struct{}
}

// NewStdinReader starts scanning r in a background goroutine, emitting
// any line whose trimmed, uppercased content is a key of seats. seats is
// captured once at construction: unlike a real OS hotkey table, which the
// FSM would re-bind every round against the shrinking seat letters (see
// FSM.currentSeatCodes), this stand-in keeps accepting a seat letter that
// was removed in a later round. Harmless for a single-player-at-a-time
// terminal input and not worth a rebind plumbing just for the stdin
// substitute, but worth flagging if it's ever swapped for the real thing.
func NewStdinReader(r io.Reader, seats map[string]int) *StdinReader {
	sr := &StdinReader{
		out:  make(chan string),
		done: make(chan struct{}),
	}
	go sr.run(r, seats)
	return sr
}

func (s *StdinReader) run(r io.Reader, seats map[string]int) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		letter := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if _, ok := seats[letter]; !ok {
			continue
		}
		select {
		case s.out <- letter:
		case <-s.done:
			return
		}
	}
}

func (s *StdinReader) Presses() <-chan string { return s.out }

func (s *StdinReader) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
