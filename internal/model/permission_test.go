package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type PermissionSuite struct {
	suite.Suite
}

func TestPermissionSuite(t *testing.T) {
	suite.Run(t, new(PermissionSuite))
}

func (s *PermissionSuite) TestSetAndClear() {
	var set PermissionSet
	s.False(set.Has(PermissionScenery))

	set.Set(PermissionScenery, true)
	set.Set(PermissionEditScenarioOptions, true)
	s.True(set.Has(PermissionScenery))
	s.True(set.Has(PermissionEditScenarioOptions))
	s.False(set.Has(PermissionChat))

	set.Set(PermissionScenery, false)
	s.False(set.Has(PermissionScenery))
}

func (s *PermissionSuite) TestUndefinedPermissionNeverHeld() {
	all := AllPermissions()
	s.False(all.Has(Permission(200)))
}

func (s *PermissionSuite) TestWireBytes() {
	set := NewPermissionSet(PermissionChat, PermissionTerraform)
	b := set.Bytes()
	s.Len(b, PermissionBytes)
	s.Equal(byte(0x03), b[0])
	s.Equal(set, PermissionSetFromBytes(b))
	s.Equal(set, PermissionSetFromBytes(b[:1]))
}

func (s *PermissionSuite) TestJSONUsesNames() {
	set := NewPermissionSet(PermissionChat, PermissionKickPlayer)
	data, err := json.Marshal(set)
	s.Require().NoError(err)
	s.JSONEq(`["PERMISSION_CHAT","PERMISSION_KICK_PLAYER"]`, string(data))

	var got PermissionSet
	s.Require().NoError(json.Unmarshal([]byte(`["PERMISSION_CHAT","PERMISSION_FROM_THE_FUTURE"]`), &got))
	s.Equal(NewPermissionSet(PermissionChat), got)
}

func (s *PermissionSuite) TestDefaultGroups() {
	groups := DefaultGroups()
	s.Equal(DefaultGroupID, groups.Default)
	s.Len(groups.Groups, 3)

	s.True(groups.Find(AdminGroupID).Permissions.IsAll())

	spectator := groups.Find(SpectatorGroupID)
	s.True(spectator.Can(PermissionChat))
	s.False(spectator.Can(PermissionScenery))

	user := groups.Find(UserGroupID)
	s.True(user.Can(PermissionScenery))
	s.True(user.Can(PermissionTogglePause))
	for _, p := range []Permission{
		PermissionKickPlayer, PermissionModifyGroups, PermissionSetPlayerGroup, PermissionCheat,
		PermissionPasswordlessLogin, PermissionModifyTile, PermissionEditScenarioOptions,
	} {
		s.False(user.Can(p), p.String())
	}
}

func (s *PermissionSuite) TestEnforceAdmin() {
	groups := &GroupList{Groups: []Group{{ID: AdminGroupID, Name: "Admin"}}}
	groups.EnforceAdmin()
	s.True(groups.Find(AdminGroupID).Permissions.IsAll())

	missing := &GroupList{Groups: []Group{{ID: 3, Name: "Builders"}}}
	missing.EnforceAdmin()
	s.Require().NotNil(missing.Find(AdminGroupID))
	s.True(missing.Find(AdminGroupID).Permissions.IsAll())
}

func (s *PermissionSuite) TestGroupJSONRoundTripThroughEnforce() {
	data, err := json.Marshal(DefaultGroups())
	s.Require().NoError(err)

	var loaded GroupList
	s.Require().NoError(json.Unmarshal(data, &loaded))
	// Names only cover defined bits, so admin is restored to all-ones explicitly
	s.False(loaded.Find(AdminGroupID).Permissions.IsAll())
	loaded.EnforceAdmin()
	s.True(loaded.Find(AdminGroupID).Permissions.IsAll())
}
