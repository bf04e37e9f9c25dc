// Package registry tracks connected players and the permission groups they
// belong to.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/dependencies/clock"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/storage"
)

// Registry owns the player and group state of one session. The session's
// update loop is the only writer; the mutex lets status readers take
// consistent snapshots.
type Registry struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	mu      sync.RWMutex
	players []*model.Player // sorted by id
	groups  *model.GroupList
}

// New creates a registry. Storage is nil on clients, which never persist
// groups or known users.
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "registry")),
		groups:  model.DefaultGroups(),
	}
}

// Player operations

// AddPlayer creates a player for an authenticated key. A known key inherits
// its stored name and group; otherwise the player joins the default group
// under a name made unique among active players and known users.
func (r *Registry) AddPlayer(ctx context.Context, name, keyHash string) (*model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrInvalidName
	}

	known := r.knownUser(ctx, keyHash)

	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.freeID()
	if err != nil {
		return nil, err
	}

	group := r.groups.Default
	if known != nil {
		name = known.Name
		if known.GroupID != nil && r.groups.Find(*known.GroupID) != nil {
			group = *known.GroupID
		}
	}

	p := model.NewPlayer(id, r.uniqueName(ctx, name, keyHash), group)
	p.KeyHash = keyHash
	r.insert(p)
	return p, nil
}

// AddHost adds the local host as player 0 in the admin group
func (r *Registry) AddHost(name string) *model.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := model.NewPlayer(model.HostPlayerID, truncateName(name), model.AdminGroupID)
	p.Flags |= model.FlagIsServer
	r.removeLocked(model.HostPlayerID)
	r.insert(p)
	return p
}

// RemovePlayer removes a player and returns it
func (r *Registry) RemovePlayer(id model.PlayerID) (*model.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

// GetPlayer returns the live player record
func (r *Registry) GetPlayer(id model.PlayerID) (*model.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(id)
}

// FindPlayerByName looks up a player case-insensitively
func (r *Registry) FindPlayerByName(name string) (*model.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}

// Players returns copies of all players ordered by id
func (r *Registry) Players() []model.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
		out[i].Cooldowns = nil
	}
	return out
}

// Count returns the number of players, host included
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// ReplacePlayers installs the server's player list on a client
func (r *Registry) ReplacePlayers(players []model.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = r.players[:0]
	for _, p := range players {
		cp := p
		cp.Cooldowns = make(map[uint32]time.Duration)
		r.insert(&cp)
	}
}

// UpdatePlayer replaces or inserts one player on a client
func (r *Registry) UpdatePlayer(p model.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.find(p.ID); ok {
		cooldowns := existing.Cooldowns
		*existing = p
		existing.Cooldowns = cooldowns
		return
	}
	cp := p
	cp.Cooldowns = make(map[uint32]time.Duration)
	r.insert(&cp)
}

// SetPing records a player's round-trip time in milliseconds
func (r *Registry) SetPing(id model.PlayerID, ping uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.find(id); ok {
		p.Ping = ping
	}
}

// RecordAction updates a player's statistics after an applied action
func (r *Registry) RecordAction(id model.PlayerID, t action.Type, cost int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.find(id)
	if !ok {
		return
	}
	p.CommandsRan++
	p.MoneySpent += cost
	p.LastAction = uint32(t)
	p.LastActionTime = r.clock.Now()
}

// MakeNameUnique appends " #N" to name until no active player or known user
// other than keyHash's own record uses it, ignoring case
func (r *Registry) MakeNameUnique(ctx context.Context, name, keyHash string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uniqueName(ctx, name, keyHash)
}

func (r *Registry) uniqueName(ctx context.Context, name, keyHash string) string {
	taken := make(map[string]bool)
	for _, p := range r.players {
		taken[strings.ToLower(p.Name)] = true
	}
	if r.storage != nil {
		users, err := r.storage.ListKnownUsers(ctx)
		if err != nil {
			r.logger.Warn("failed to list known users", slog.String("error", err.Error()))
		}
		for _, u := range users {
			if u.Hash != keyHash {
				taken[strings.ToLower(u.Name)] = true
			}
		}
	}

	candidate := truncateName(name)
	for n := 2; taken[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" #%d", n)
		candidate = truncateBytes(name, model.MaxNameLength-len(suffix)) + suffix
	}
	return candidate
}

func (r *Registry) knownUser(ctx context.Context, keyHash string) *model.KnownUser {
	if r.storage == nil || keyHash == "" {
		return nil
	}
	user, err := r.storage.GetKnownUser(ctx, keyHash)
	if err != nil {
		if !errors.Is(err, model.ErrKnownUserNotFound) {
			r.logger.Warn("failed to look up known user", slog.String("error", err.Error()))
		}
		return nil
	}
	return user
}

// IsKnownKey reports whether keyHash has a stored known-user record
func (r *Registry) IsKnownKey(ctx context.Context, keyHash string) bool {
	return r.knownUser(ctx, keyHash) != nil
}

// ResolveGroup returns the group a key would join with
func (r *Registry) ResolveGroup(ctx context.Context, keyHash string) model.GroupID {
	known := r.knownUser(ctx, keyHash)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if known != nil && known.GroupID != nil && r.groups.Find(*known.GroupID) != nil {
		return *known.GroupID
	}
	return r.groups.Default
}

func (r *Registry) freeID() (model.PlayerID, error) {
	next := model.HostPlayerID
	for _, p := range r.players {
		if p.ID != next {
			break
		}
		if next == model.MaxPlayerID {
			return 0, model.ErrServerFull
		}
		next++
	}
	return next, nil
}

func (r *Registry) insert(p *model.Player) {
	i := sort.Search(len(r.players), func(i int) bool { return r.players[i].ID >= p.ID })
	if i < len(r.players) && r.players[i].ID == p.ID {
		r.players[i] = p
		return
	}
	r.players = append(r.players, nil)
	copy(r.players[i+1:], r.players[i:])
	r.players[i] = p
}

func (r *Registry) find(id model.PlayerID) (*model.Player, bool) {
	i := sort.Search(len(r.players), func(i int) bool { return r.players[i].ID >= id })
	if i < len(r.players) && r.players[i].ID == id {
		return r.players[i], true
	}
	return nil, false
}

func (r *Registry) removeLocked(id model.PlayerID) (*model.Player, bool) {
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

func truncateName(name string) string {
	return truncateBytes(name, model.MaxNameLength)
}

// truncateBytes cuts s to at most n bytes without splitting a rune
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
