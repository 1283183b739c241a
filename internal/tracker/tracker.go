// Package tracker holds the lobby-built directory of players that is
// frozen at game start and shared identically by every peer.
package tracker

import (
	"errors"
	"sync"
)

// ErrUnknownPlayer is returned when looking up a name the tracker
// has never seen.
var ErrUnknownPlayer = errors.New("tracker: unknown player")

// Endpoint is where a player can be dialed.
type Endpoint struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Tracker maps player names to endpoints and carries the leader rotation
// order. It is mutable while the lobby is filling and must be frozen
// before the game FSM starts: every peer ships the same leader_list from
// the lobby's insertion order, so rotation order is identical everywhere.
type Tracker struct {
	mu         sync.Mutex
	endpoints  map[string]Endpoint
	leaderList []string
	frozen     bool
}

// New creates an empty, unfrozen tracker.
func New() *Tracker {
	return &Tracker{endpoints: make(map[string]Endpoint)}
}

// FromSnapshot rebuilds a tracker received from the lobby's lobby_start
// payload. It is frozen immediately: a player never mutates the tracker
// it received.
func FromSnapshot(endpoints map[string]Endpoint, leaderList []string) *Tracker {
	cp := make(map[string]Endpoint, len(endpoints))
	for k, v := range endpoints {
		cp[k] = v
	}
	order := append([]string(nil), leaderList...)
	return &Tracker{
		endpoints:  cp,
		leaderList: order,
		frozen:     true,
	}
}

// Add registers a player at the given endpoint. No-op once frozen.
func (t *Tracker) Add(name, ip string, port int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return
	}
	if _, exists := t.endpoints[name]; !exists {
		t.leaderList = append(t.leaderList, name)
	}
	t.endpoints[name] = Endpoint{IP: ip, Port: port}
}

// Remove deregisters a player. No-op once frozen.
func (t *Tracker) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return
	}
	delete(t.endpoints, name)
	for i, n := range t.leaderList {
		if n == name {
			t.leaderList = append(t.leaderList[:i], t.leaderList[i+1:]...)
			break
		}
	}
}

// Freeze snapshots the current insertion order as the permanent leader
// rotation and prevents further mutation.
func (t *Tracker) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Endpoint returns the (ip, port) registered for name.
func (t *Tracker) Endpoint(name string) (Endpoint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.endpoints[name]
	return e, ok
}

// IsEndpointUsed reports whether some player already registered the
// given (ip, port) pair.
func (t *Tracker) IsEndpointUsed(ip string, port int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.endpoints {
		if e.IP == ip && e.Port == port {
			return true
		}
	}
	return false
}

// Players returns the current player names. Order is not guaranteed to
// match LeaderList; use LeaderList for rotation order.
func (t *Tracker) Players() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.endpoints))
	for name := range t.endpoints {
		out = append(out, name)
	}
	return out
}

// Count returns the number of registered players.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.endpoints)
}

// LeaderList returns the frozen sync-leader rotation order, identical on
// every peer.
func (t *Tracker) LeaderList() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]string(nil), t.leaderList...)
	return out
}

// Snapshot returns the endpoint map and leader list for shipping over the
// wire in a lobby_start payload.
func (t *Tracker) Snapshot() (map[string]Endpoint, []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make(map[string]Endpoint, len(t.endpoints))
	for k, v := range t.endpoints {
		cp[k] = v
	}
	return cp, append([]string(nil), t.leaderList...)
}
