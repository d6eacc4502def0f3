package memory

import (
	"context"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

type CooldownRepo struct {
	store *Store
}

func NewCooldownRepo(store *Store) CooldownRepo {
	return CooldownRepo{store: store}
}

func (r CooldownRepo) NextEligibleAt(_ context.Context, owner forge.PlayerID, npcID forge.NpcID) (time.Time, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	at, ok := r.store.cooldowns[cooldownKey{owner: owner, npc: npcID}]
	if !ok {
		return time.Time{}, ports.ErrNotFound
	}
	return at, nil
}

func (r CooldownRepo) Put(_ context.Context, owner forge.PlayerID, npcID forge.NpcID, nextEligibleAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cooldowns[cooldownKey{owner: owner, npc: npcID}] = nextEligibleAt
	return nil
}

func (r CooldownRepo) PruneExpired(_ context.Context, now time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for k, at := range r.store.cooldowns {
		if !at.After(now) {
			delete(r.store.cooldowns, k)
			n++
		}
	}
	return n, nil
}
