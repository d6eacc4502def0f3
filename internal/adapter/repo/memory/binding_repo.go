package memory

import (
	"context"
	"sort"

	"mythicforge/internal/domain/forge"
)

type BindingRepo struct {
	store *Store
}

func NewBindingRepo(store *Store) BindingRepo {
	return BindingRepo{store: store}
}

func (r BindingRepo) List(_ context.Context) ([]forge.NpcBinding, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]forge.NpcBinding, 0, len(r.store.bindings))
	for _, b := range r.store.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NpcID < out[j].NpcID })
	return out, nil
}

func (r BindingRepo) Upsert(_ context.Context, b forge.NpcBinding) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.bindings[b.NpcID] = b
	return nil
}

func (r BindingRepo) Delete(_ context.Context, npcID forge.NpcID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.bindings, npcID)
	return nil
}
