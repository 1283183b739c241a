package mesh

import (
	"math/rand"
	"time"
)

// delayTable holds the artificial per-peer jitter drawn once at
// construction, grounded on
// original_source/game/clock/delay.py's Delay.generate_delays: each peer
// other than self gets one draw of 0.01 * {1..9} seconds, fixed for the
// whole game.
type delayTable struct {
	toPeers map[string]time.Duration
}

func newDelayTable(self string, leaderList []string, rng *rand.Rand) *delayTable {
	d := &delayTable{toPeers: make(map[string]time.Duration)}
	for _, peer := range leaderList {
		if peer == self {
			continue
		}
		millis := 10 * (1 + rng.Intn(9))
		d.toPeers[peer] = time.Duration(millis) * time.Millisecond
	}
	return d
}

func (d *delayTable) wait(peer string) time.Duration {
	return d.toPeers[peer]
}
