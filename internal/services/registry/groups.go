package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/parksync/internal/model"
)

// Group operations

// LoadGroups reads the persisted registry, falling back to the built-in
// groups when nothing is stored or the store fails. The admin group is
// restored to full permissions either way.
func (r *Registry) LoadGroups(ctx context.Context) error {
	if r.storage == nil {
		r.SetupDefaultGroups()
		return nil
	}

	groups, err := r.storage.GetGroups(ctx)
	if err != nil {
		r.SetupDefaultGroups()
		if errors.Is(err, model.ErrGroupsNotFound) {
			return r.saveGroups(ctx)
		}
		r.logger.Warn("failed to load groups, using defaults", slog.String("error", err.Error()))
		return fmt.Errorf("load groups: %w", err)
	}

	r.mu.Lock()
	r.groups = normalizeGroups(groups)
	r.mu.Unlock()
	return nil
}

// SetupDefaultGroups replaces the registry with the built-in groups
func (r *Registry) SetupDefaultGroups() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = model.DefaultGroups()
}

// SetGroups installs a group list received from the server
func (r *Registry) SetGroups(groups *model.GroupList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = normalizeGroups(groups.Clone())
}

// Groups returns a copy of the group registry
func (r *Registry) Groups() *model.GroupList {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups.Clone()
}

// GetGroup returns a copy of one group
func (r *Registry) GetGroup(id model.GroupID) (model.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g := r.groups.Find(id); g != nil {
		return *g, true
	}
	return model.Group{}, false
}

// AddGroup creates a group with no permissions. An empty name becomes
// "Group #N".
func (r *Registry) AddGroup(ctx context.Context, requester model.PlayerID, name string) (model.Group, error) {
	r.mu.Lock()
	if !r.canLocked(requester, model.PermissionModifyGroups) {
		r.mu.Unlock()
		return model.Group{}, model.ErrPermissionDenied
	}

	id, ok := r.freeGroupID()
	if !ok {
		r.mu.Unlock()
		return model.Group{}, model.ErrTooManyGroups
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.newGroupName()
	}
	g := model.Group{ID: id, Name: name}
	r.groups.Groups = append(r.groups.Groups, g)
	r.mu.Unlock()

	return g, r.saveGroups(ctx)
}

// RemoveGroup deletes a group that nobody belongs to
func (r *Registry) RemoveGroup(ctx context.Context, requester model.PlayerID, id model.GroupID) error {
	if err := r.checkGroupEdit(requester, id); err != nil {
		return err
	}
	if id == r.Groups().Default {
		return model.ErrCannotRemoveDefault
	}
	if r.groupInUse(ctx, id) {
		return model.ErrGroupInUse
	}

	r.mu.Lock()
	for i, g := range r.groups.Groups {
		if g.ID == id {
			r.groups.Groups = append(r.groups.Groups[:i], r.groups.Groups[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	return r.saveGroups(ctx)
}

// RenameGroup changes a group's display name
func (r *Registry) RenameGroup(ctx context.Context, requester model.PlayerID, id model.GroupID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty group name", model.ErrInvalidName)
	}
	if err := r.checkGroupEdit(requester, id); err != nil {
		return err
	}

	r.mu.Lock()
	r.groups.Find(id).Name = name
	r.mu.Unlock()
	return r.saveGroups(ctx)
}

// SetGroupPermission grants or revokes one permission. Requesters can only
// hand out permissions they hold themselves.
func (r *Registry) SetGroupPermission(ctx context.Context, requester model.PlayerID, id model.GroupID, perm model.Permission, on bool) error {
	if !perm.Valid() {
		return fmt.Errorf("%w: unknown permission %d", model.ErrPermissionDenied, perm)
	}
	if err := r.checkGroupEdit(requester, id); err != nil {
		return err
	}

	r.mu.Lock()
	if !r.canLocked(requester, perm) {
		r.mu.Unlock()
		return model.ErrPermissionDenied
	}
	r.groups.Find(id).Permissions.Set(perm, on)
	r.mu.Unlock()
	return r.saveGroups(ctx)
}

// SetDefaultGroup chooses the group new players join
func (r *Registry) SetDefaultGroup(ctx context.Context, requester model.PlayerID, id model.GroupID) error {
	if err := r.checkGroupEdit(requester, id); err != nil {
		return err
	}

	r.mu.Lock()
	r.groups.Default = id
	r.mu.Unlock()
	return r.saveGroups(ctx)
}

// SetPlayerGroup moves a player to another group and remembers the choice
// for the player's key
func (r *Registry) SetPlayerGroup(ctx context.Context, requester, target model.PlayerID, id model.GroupID) error {
	r.mu.Lock()
	if !r.canLocked(requester, model.PermissionSetPlayerGroup) {
		r.mu.Unlock()
		return model.ErrPermissionDenied
	}
	req, _ := r.find(requester)
	p, ok := r.find(target)
	if !ok {
		r.mu.Unlock()
		return model.ErrPlayerNotFound
	}
	if p.IsServer() {
		r.mu.Unlock()
		return model.ErrCannotChangeHostGroup
	}
	if r.groups.Find(id) == nil {
		r.mu.Unlock()
		return model.ErrGroupNotFound
	}
	// Only admins can promote to or demote from the admin group
	if (id == model.AdminGroupID || p.Group == model.AdminGroupID) && req.Group != model.AdminGroupID {
		r.mu.Unlock()
		return model.ErrPermissionDenied
	}
	p.Group = id
	user := &model.KnownUser{Hash: p.KeyHash, Name: p.Name, GroupID: &id}
	r.mu.Unlock()

	if r.storage == nil || user.Hash == "" {
		return nil
	}
	if err := r.storage.SaveKnownUser(ctx, user); err != nil {
		r.logger.Warn("failed to save known user", slog.String("error", err.Error()))
		return fmt.Errorf("save known user: %w", err)
	}
	return nil
}

// CheckKick reports whether requester may kick target
func (r *Registry) CheckKick(requester, target model.PlayerID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.canLocked(requester, model.PermissionKickPlayer) {
		return model.ErrPermissionDenied
	}
	p, ok := r.find(target)
	if !ok {
		return model.ErrPlayerNotFound
	}
	if p.IsServer() {
		return model.ErrCannotKickHost
	}
	req, _ := r.find(requester)
	if requester == target || (p.Group == model.AdminGroupID && req.Group != model.AdminGroupID) {
		return model.ErrPermissionDenied
	}
	return nil
}

func (r *Registry) checkGroupEdit(requester model.PlayerID, id model.GroupID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.canLocked(requester, model.PermissionModifyGroups) {
		return model.ErrPermissionDenied
	}
	if id == model.AdminGroupID {
		return model.ErrCannotModifyAdmin
	}
	if r.groups.Find(id) == nil {
		return model.ErrGroupNotFound
	}
	return nil
}

func (r *Registry) groupInUse(ctx context.Context, id model.GroupID) bool {
	r.mu.RLock()
	for _, p := range r.players {
		if p.Group == id {
			r.mu.RUnlock()
			return true
		}
	}
	r.mu.RUnlock()

	if r.storage == nil {
		return false
	}
	users, err := r.storage.ListKnownUsers(ctx)
	if err != nil {
		r.logger.Warn("failed to list known users", slog.String("error", err.Error()))
		return true
	}
	for _, u := range users {
		if u.GroupID != nil && *u.GroupID == id {
			return true
		}
	}
	return false
}

func (r *Registry) freeGroupID() (model.GroupID, bool) {
	for id := 1; id <= 255; id++ {
		if r.groups.Find(model.GroupID(id)) == nil {
			return model.GroupID(id), true
		}
	}
	return 0, false
}

func (r *Registry) newGroupName() string {
	for n := len(r.groups.Groups); ; n++ {
		name := fmt.Sprintf("Group #%d", n)
		taken := false
		for _, g := range r.groups.Groups {
			if strings.EqualFold(g.Name, name) {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
	}
}

// saveGroups persists the registry. Failures are logged and returned; the
// in-memory registry stays authoritative.
func (r *Registry) saveGroups(ctx context.Context) error {
	r.mu.Lock()
	r.groups = normalizeGroups(r.groups)
	snapshot := r.groups.Clone()
	r.mu.Unlock()

	if r.storage == nil {
		return nil
	}
	if err := r.storage.SaveGroups(ctx, snapshot); err != nil {
		r.logger.Warn("failed to save groups", slog.String("error", err.Error()))
		return fmt.Errorf("save groups: %w", err)
	}
	return nil
}

// normalizeGroups re-asserts the registry invariants: admin holds every
// permission and the default group exists and is not admin
func normalizeGroups(groups *model.GroupList) *model.GroupList {
	groups.EnforceAdmin()
	if groups.Default == model.AdminGroupID || groups.Find(groups.Default) == nil {
		groups.Default = model.AdminGroupID
		for _, g := range groups.Groups {
			if g.ID != model.AdminGroupID {
				groups.Default = g.ID
				break
			}
		}
	}
	return groups
}
