package registry

import (
	"time"

	"github.com/mcoot/parksync/internal/action"
	"github.com/mcoot/parksync/internal/model"
)

// Permission checks

// CanPerformAction reports whether the player's group holds perm. A player
// whose group no longer exists is denied.
func (r *Registry) CanPerformAction(id model.PlayerID, perm model.Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canLocked(id, perm)
}

// CanPerformCommand reports whether the player may issue an action kind.
// Kinds without a grantable permission are reserved for the host.
func (r *Registry) CanPerformCommand(id model.PlayerID, t action.Type) bool {
	perm, ok := t.Permission()
	if !ok {
		r.mu.RLock()
		defer r.mu.RUnlock()
		p, found := r.find(id)
		return found && p.IsServer()
	}
	return r.CanPerformAction(id, perm)
}

// GroupCan reports whether a group holds perm
func (r *Registry) GroupCan(id model.GroupID, perm model.Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.groups.Find(id)
	return g != nil && g.Can(perm)
}

func (r *Registry) canLocked(id model.PlayerID, perm model.Permission) bool {
	p, ok := r.find(id)
	if !ok {
		return false
	}
	g := r.groups.Find(p.Group)
	return g != nil && g.Can(perm)
}

// Rate limiting

// CheckRateLimit enforces the fixed placement and demolition intervals and
// the per-kind cooldown table. A passing check starts the relevant timers.
// The host is exempt.
func (r *Registry) CheckRateLimit(id model.PlayerID, t action.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.find(id)
	if !ok {
		return model.ErrPlayerNotFound
	}
	if p.IsServer() {
		return nil
	}

	now := r.clock.Now()
	switch t {
	case action.TypePlaceScenery:
		if !r.canLocked(id, model.PermissionToggleSceneryCluster) {
			if now.Sub(p.LastPlaceSceneryTime) < action.PlaceSceneryCooldown {
				return model.ErrRateLimited
			}
			p.LastPlaceSceneryTime = now
		}
	case action.TypeDemolishRide:
		if now.Sub(p.LastDemolishRideTime) < action.DemolishRideCooldown {
			return model.ErrRateLimited
		}
		p.LastDemolishRideTime = now
	}

	if remaining, ok := p.Cooldowns[uint32(t)]; ok && remaining > 0 {
		return model.ErrRateLimited
	}
	if cd := t.Cooldown(); cd > 0 {
		if p.Cooldowns == nil {
			p.Cooldowns = make(map[uint32]time.Duration)
		}
		p.Cooldowns[uint32(t)] = cd
	}
	return nil
}

// DecayCooldowns subtracts elapsed from every running cooldown and drops the
// ones that have expired
func (r *Registry) DecayCooldowns(elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		for t, remaining := range p.Cooldowns {
			remaining -= elapsed
			if remaining <= 0 {
				delete(p.Cooldowns, t)
			} else {
				p.Cooldowns[t] = remaining
			}
		}
	}
}
