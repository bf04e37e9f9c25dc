// Package action defines the closed set of world-mutating operations that
// peers exchange and apply in lockstep.
package action

import (
	"fmt"
	"time"

	"github.com/mcoot/parksync/internal/model"
)

// Type identifies an action kind on the wire
type Type uint32

const (
	TypeSetPause Type = iota
	TypeLoadOrQuit
	TypePlaceScenery
	TypeRemoveScenery
	TypeCreateRide
	TypeDemolishRide
	TypeSetParkName
	TypeSetEntranceFee
	TypeTerraform
	TypeModifyTile
	TypeSetScenarioOption
	TypeCheat
	TypeModifyGroup
	TypeSetPlayerGroup
	TypeKickPlayer

	typeCount
)

// Action flags
const (
	// FlagNetworked marks an action that arrived from a peer
	FlagNetworked uint32 = 1 << 31
)

// Rate limits that apply regardless of the per-kind cooldown table
const (
	PlaceSceneryCooldown = 20 * time.Millisecond
	DemolishRideCooldown = 1000 * time.Millisecond
)

type typeInfo struct {
	name       string
	permission model.Permission
	// needsPermission is false for kinds that only the host can issue
	needsPermission bool
	hostOnly        bool
	network         bool
	cooldown        time.Duration
}

var types = [typeCount]typeInfo{
	TypeSetPause:          {name: "SetPause", permission: model.PermissionTogglePause, needsPermission: true, hostOnly: true},
	TypeLoadOrQuit:        {name: "LoadOrQuit", hostOnly: true},
	TypePlaceScenery:      {name: "PlaceScenery", permission: model.PermissionScenery, needsPermission: true},
	TypeRemoveScenery:     {name: "RemoveScenery", permission: model.PermissionScenery, needsPermission: true},
	TypeCreateRide:        {name: "CreateRide", permission: model.PermissionCreateRide, needsPermission: true, cooldown: 250 * time.Millisecond},
	TypeDemolishRide:      {name: "DemolishRide", permission: model.PermissionRemoveRide, needsPermission: true},
	TypeSetParkName:       {name: "SetParkName", permission: model.PermissionParkProperties, needsPermission: true, cooldown: time.Second},
	TypeSetEntranceFee:    {name: "SetEntranceFee", permission: model.PermissionParkFunding, needsPermission: true},
	TypeTerraform:         {name: "Terraform", permission: model.PermissionTerraform, needsPermission: true},
	TypeModifyTile:        {name: "ModifyTile", permission: model.PermissionModifyTile, needsPermission: true},
	TypeSetScenarioOption: {name: "SetScenarioOption", permission: model.PermissionEditScenarioOptions, needsPermission: true},
	TypeCheat:             {name: "Cheat", permission: model.PermissionCheat, needsPermission: true},
	TypeModifyGroup:       {name: "ModifyGroup", permission: model.PermissionModifyGroups, needsPermission: true, network: true},
	TypeSetPlayerGroup:    {name: "SetPlayerGroup", permission: model.PermissionSetPlayerGroup, needsPermission: true, network: true},
	TypeKickPlayer:        {name: "KickPlayer", permission: model.PermissionKickPlayer, needsPermission: true, network: true},
}

// Valid reports whether t is a known kind
func (t Type) Valid() bool {
	return t < typeCount
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Action(%d)", uint32(t))
	}
	return types[t].name
}

// Permission returns the permission a player's group needs to issue t. The
// second result is false for kinds with no grantable permission.
func (t Type) Permission() (model.Permission, bool) {
	if !t.Valid() {
		return 0, false
	}
	return types[t].permission, types[t].needsPermission
}

// HostOnly reports whether t is refused when it arrives from a client
func (t Type) HostOnly() bool {
	return t.Valid() && types[t].hostOnly
}

// IsNetworkAction reports whether t acts on the session registry rather than
// the simulation
func (t Type) IsNetworkAction() bool {
	return t.Valid() && types[t].network
}

// Cooldown returns the per-player wait after issuing t, or zero
func (t Type) Cooldown() time.Duration {
	if !t.Valid() {
		return 0
	}
	return types[t].cooldown
}

// Action is one queued operation: common header plus kind-specific params
type Action struct {
	Flags    uint32
	Player   model.PlayerID
	Callback uint8
	Params   Params
}

// New wraps params in an action with an empty header
func New(p Params) *Action {
	return &Action{Params: p}
}

// Type returns the action kind
func (a *Action) Type() Type {
	return a.Params.Type()
}

func (a *Action) String() string {
	return fmt.Sprintf("%s(player=%d)", a.Type(), a.Player)
}

// Status is the outcome of applying an action
type Status uint8

const (
	StatusOK Status = iota
	StatusDisallowed
	StatusInsufficientFunds
	StatusInvalidParameters
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDisallowed:
		return "disallowed"
	case StatusInsufficientFunds:
		return "insufficient_funds"
	case StatusInvalidParameters:
		return "invalid_parameters"
	case StatusNotFound:
		return "not_found"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Result is returned by the simulation after applying an action
type Result struct {
	Status  Status
	Cost    int64
	Message string
}

// OK reports whether the action took effect
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Success builds an OK result with the given cost
func Success(cost int64) Result {
	return Result{Status: StatusOK, Cost: cost}
}

// Failure builds a failed result
func Failure(status Status, msg string) Result {
	return Result{Status: status, Message: msg}
}
