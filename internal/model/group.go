package model

// GroupID identifies a permission group
type GroupID uint8

// Built-in group ids
const (
	AdminGroupID     GroupID = 0
	SpectatorGroupID GroupID = 1
	UserGroupID      GroupID = 2

	DefaultGroupID = SpectatorGroupID
)

// Group is a named bundle of permissions
type Group struct {
	ID          GroupID       `json:"id"`
	Name        string        `json:"name"`
	Permissions PermissionSet `json:"permissions"`
}

// Can reports whether members of the group hold p
func (g *Group) Can(p Permission) bool {
	return g.Permissions.Has(p)
}

// GroupList is the persisted group registry
type GroupList struct {
	Default GroupID `json:"default_group"`
	Groups  []Group `json:"groups"`
}

// Find returns the group with the given id, or nil
func (l *GroupList) Find(id GroupID) *Group {
	for i := range l.Groups {
		if l.Groups[i].ID == id {
			return &l.Groups[i]
		}
	}
	return nil
}

// EnforceAdmin makes sure group 0 exists and holds every permission
func (l *GroupList) EnforceAdmin() {
	if g := l.Find(AdminGroupID); g != nil {
		g.Permissions = AllPermissions()
		return
	}
	l.Groups = append([]Group{{ID: AdminGroupID, Name: "Admin", Permissions: AllPermissions()}}, l.Groups...)
}

// Clone returns a deep copy
func (l *GroupList) Clone() *GroupList {
	out := &GroupList{Default: l.Default, Groups: make([]Group, len(l.Groups))}
	copy(out.Groups, l.Groups)
	return out
}

// DefaultGroups returns the built-in Admin, Spectator and User groups
func DefaultGroups() *GroupList {
	user := AllPermissions()
	for _, p := range []Permission{
		PermissionKickPlayer,
		PermissionModifyGroups,
		PermissionSetPlayerGroup,
		PermissionCheat,
		PermissionPasswordlessLogin,
		PermissionModifyTile,
		PermissionEditScenarioOptions,
	} {
		user.Set(p, false)
	}

	return &GroupList{
		Default: DefaultGroupID,
		Groups: []Group{
			{ID: AdminGroupID, Name: "Admin", Permissions: AllPermissions()},
			{ID: SpectatorGroupID, Name: "Spectator", Permissions: NewPermissionSet(PermissionChat)},
			{ID: UserGroupID, Name: "User", Permissions: user},
		},
	}
}
