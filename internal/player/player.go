// Package player holds the Player value type shared by every other
// package in daonet.
package player

import "github.com/google/uuid"

// Player identifies a single participant. Name is the routing key used
// throughout the protocol; ID is generated locally and never consulted
// for equality; name uniqueness across the group is an invariant
// established by the lobby.
type Player struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// New creates a Player with a freshly generated opaque id.
func New(name string) Player {
	return Player{
		Name: name,
		ID:   uuid.NewString(),
	}
}

func (p Player) String() string {
	return p.Name
}
