// Package hotkey holds the OS-specific seat-selection key tables,
// grounded on original_source/game/client.py's
// KEYBOARD_MAPPING_MAC/KEYBOARD_MAPPING_WDW tables. No global-hotkey
// capture library exists anywhere in the retrieval pack (this is
// platform-specific OS plumbing, not an ambient concern any example
// repo's dependency stack addresses), so the table is kept as plain
// data and paired with a small Source interface a real capture
// implementation could satisfy.
package hotkey

// Letters is the fixed ordered seat alphabet, largest game supports six
// simultaneous seats.
var Letters = []string{"Q", "W", "E", "R", "T", "Y"}

// macCodes are Carbon virtual key codes for Q W E R T Y.
var macCodes = []int{12, 13, 14, 15, 17, 16}

// windowsCodes are Win32 VK codes for Q W E R T Y.
var windowsCodes = []int{81, 87, 69, 82, 84, 89}

// Table maps each seat letter to its OS-native key code, matching the
// client's key_to_letter/letter_to_key construction.
func Table(osName string) map[string]int {
	codes := macCodes
	if osName == "Windows" {
		codes = windowsCodes
	}
	out := make(map[string]int, len(Letters))
	for i, letter := range Letters {
		if i >= len(codes) {
			break
		}
		out[letter] = codes[i]
	}
	return out
}

// Source delivers seat letters as the player presses them. A real
// implementation wires a global-hotkey library behind this; StdinReader
// (in reader.go) is the stand-in used when no such capture library is
// wired, keeping the game loop exercisable without one.
type Source interface {
	// Presses streams letters as they are pressed, already restricted
	// to the seats currently in play.
	Presses() <-chan string
	Close()
}
