package session

import "github.com/mcoot/parksync/internal/action"

// Simulation is the deterministic world the session keeps in step across
// peers. The session is its only caller once a session has begun.
type Simulation interface {
	// CurrentTick returns the number of completed ticks
	CurrentTick() uint32
	// Advance runs one tick
	Advance()
	// Seed returns the random state after the current tick
	Seed() uint32
	// Checksum fingerprints the whole world state
	Checksum() string
	// Execute applies one action
	Execute(a *action.Action) action.Result
	// Snapshot serializes the world; Load replaces it
	Snapshot() ([]byte, error)
	Load(data []byte) error
	// Objects lists the objects the world requires
	Objects() []string
	HasObject(name string) bool
}
