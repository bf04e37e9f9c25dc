package model

import (
	"encoding/json"
	"fmt"
)

// Permission is one bit of a group's allowed operations
type Permission uint8

const (
	PermissionChat Permission = iota
	PermissionTerraform
	PermissionSetWaterLevel
	PermissionTogglePause
	PermissionCreateRide
	PermissionRemoveRide
	PermissionBuildRide
	PermissionRideProperties
	PermissionScenery
	PermissionPath
	PermissionClearLandscape
	PermissionGuest
	PermissionStaff
	PermissionParkProperties
	PermissionParkFunding
	PermissionKickPlayer
	PermissionModifyGroups
	PermissionSetPlayerGroup
	PermissionCheat
	PermissionToggleSceneryCluster
	PermissionPasswordlessLogin
	PermissionModifyTile
	PermissionEditScenarioOptions

	permissionCount
)

// PermissionBytes is the encoded size of a PermissionSet
const PermissionBytes = (int(permissionCount) + 7) / 8

var permissionNames = [permissionCount]string{
	PermissionChat:                 "PERMISSION_CHAT",
	PermissionTerraform:            "PERMISSION_TERRAFORM",
	PermissionSetWaterLevel:        "PERMISSION_SET_WATER_LEVEL",
	PermissionTogglePause:          "PERMISSION_TOGGLE_PAUSE",
	PermissionCreateRide:           "PERMISSION_CREATE_RIDE",
	PermissionRemoveRide:           "PERMISSION_REMOVE_RIDE",
	PermissionBuildRide:            "PERMISSION_BUILD_RIDE",
	PermissionRideProperties:       "PERMISSION_RIDE_PROPERTIES",
	PermissionScenery:              "PERMISSION_SCENERY",
	PermissionPath:                 "PERMISSION_PATH",
	PermissionClearLandscape:       "PERMISSION_CLEAR_LANDSCAPE",
	PermissionGuest:                "PERMISSION_GUEST",
	PermissionStaff:                "PERMISSION_STAFF",
	PermissionParkProperties:       "PERMISSION_PARK_PROPERTIES",
	PermissionParkFunding:          "PERMISSION_PARK_FUNDING",
	PermissionKickPlayer:           "PERMISSION_KICK_PLAYER",
	PermissionModifyGroups:         "PERMISSION_MODIFY_GROUPS",
	PermissionSetPlayerGroup:       "PERMISSION_SET_PLAYER_GROUP",
	PermissionCheat:                "PERMISSION_CHEAT",
	PermissionToggleSceneryCluster: "PERMISSION_TOGGLE_SCENERY_CLUSTER",
	PermissionPasswordlessLogin:    "PERMISSION_PASSWORDLESS_LOGIN",
	PermissionModifyTile:           "PERMISSION_MODIFY_TILE",
	PermissionEditScenarioOptions:  "PERMISSION_EDIT_SCENARIO_OPTIONS",
}

// Permissions returns every defined permission in bit order
func Permissions() []Permission {
	out := make([]Permission, permissionCount)
	for i := range out {
		out[i] = Permission(i)
	}
	return out
}

// Valid reports whether p is a defined permission
func (p Permission) Valid() bool {
	return p < permissionCount
}

func (p Permission) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PERMISSION(%d)", uint8(p))
	}
	return permissionNames[p]
}

// ParsePermission looks up a permission by its persisted name
func ParsePermission(name string) (Permission, bool) {
	for i, n := range permissionNames {
		if n == name {
			return Permission(i), true
		}
	}
	return 0, false
}

// PermissionSet is a fixed bitset over all permissions
type PermissionSet [PermissionBytes]byte

// AllPermissions returns a set with every bit on
func AllPermissions() PermissionSet {
	var s PermissionSet
	for i := range s {
		s[i] = 0xff
	}
	return s
}

// NewPermissionSet returns a set holding the given permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s.Set(p, true)
	}
	return s
}

// Has reports whether p is allowed
func (s PermissionSet) Has(p Permission) bool {
	if !p.Valid() {
		return false
	}
	return s[p/8]&(1<<(p%8)) != 0
}

// Set turns p on or off
func (s *PermissionSet) Set(p Permission, on bool) {
	if !p.Valid() {
		return
	}
	if on {
		s[p/8] |= 1 << (p % 8)
	} else {
		s[p/8] &^= 1 << (p % 8)
	}
}

// IsAll reports whether every bit is on
func (s PermissionSet) IsAll() bool {
	return s == AllPermissions()
}

// Bytes returns the wire encoding
func (s PermissionSet) Bytes() []byte {
	out := make([]byte, PermissionBytes)
	copy(out, s[:])
	return out
}

// PermissionSetFromBytes decodes a wire set. Missing bytes are treated as
// zero and extra bytes are ignored.
func PermissionSetFromBytes(b []byte) PermissionSet {
	var s PermissionSet
	copy(s[:], b)
	return s
}

// List returns the names of the allowed permissions
func (s PermissionSet) List() []string {
	var names []string
	for _, p := range Permissions() {
		if s.Has(p) {
			names = append(names, p.String())
		}
	}
	return names
}

// MarshalJSON stores the set as a list of permission names
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	names := s.List()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON reads a list of permission names. Unknown names are skipped
// so registries written by newer builds still load.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = PermissionSet{}
	for _, n := range names {
		if p, ok := ParsePermission(n); ok {
			s.Set(p, true)
		}
	}
	return nil
}
