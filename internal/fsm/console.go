package fsm

import (
	"fmt"

	"github.com/fatih/color"
)

// Game rendering is text logging; the original prints bare `print()`
// lines for every user-visible event. This replaces those with tagged,
// colored console lines using github.com/fatih/color, kept alongside
// (not instead of) the structured JSON logging in internal/telemetry.
var (
	systemTag = color.New(color.FgCyan, color.Bold).SprintFunc()
	voteTag   = color.New(color.FgYellow, color.Bold).SprintFunc()
	seatsTag  = color.New(color.FgGreen, color.Bold).SprintFunc()
	actionTag = color.New(color.FgMagenta, color.Bold).SprintFunc()
)

func printSystem(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", systemTag("[SYSTEM]"), fmt.Sprintf(format, args...))
}

func printVote(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", voteTag("[VOTE]"), fmt.Sprintf(format, args...))
}

func printSeats(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", seatsTag("[SEATS]"), fmt.Sprintf(format, args...))
}

func printAction(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", actionTag("[ACTION]"), fmt.Sprintf(format, args...))
}
