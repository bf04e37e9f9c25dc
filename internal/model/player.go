package model

import "time"

// PlayerID identifies a connected player. Ids are reused after disconnect.
type PlayerID uint8

const (
	// HostPlayerID is the local player on the server, and the implicit id of
	// the local player on a client before authentication
	HostPlayerID PlayerID = 0

	// MaxPlayerID is the highest assignable id
	MaxPlayerID PlayerID = 254

	// ServerPlayerID is a sentinel for actions issued by the server itself
	ServerPlayerID PlayerID = 255
)

// MaxNameLength bounds player display names
const MaxNameLength = 31

// PlayerFlags carries per-player state bits
type PlayerFlags uint8

const (
	// FlagIsServer marks the host player
	FlagIsServer PlayerFlags = 1 << 0
)

// Player is a participant in a session
type Player struct {
	ID          PlayerID
	Name        string
	KeyHash     string // empty for the host and for clients' view of others
	Group       GroupID
	Flags       PlayerFlags
	Ping        uint16
	MoneySpent  int64
	CommandsRan uint32
	LastAction  uint32 // action type id

	LastActionTime       time.Time
	LastPlaceSceneryTime time.Time
	LastDemolishRideTime time.Time

	// Cooldowns holds the remaining wait per action type id
	Cooldowns map[uint32]time.Duration
}

// NewPlayer creates a player with an empty cooldown map
func NewPlayer(id PlayerID, name string, group GroupID) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Group:     group,
		Cooldowns: make(map[uint32]time.Duration),
	}
}

// IsServer reports whether the player is the host
func (p *Player) IsServer() bool {
	return p.Flags&FlagIsServer != 0
}

// KnownUser is a persisted record of a key hash seen by the server
type KnownUser struct {
	Hash    string   `json:"hash"`
	Name    string   `json:"name"`
	GroupID *GroupID `json:"group,omitempty"`
}
