package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

type bindingSnapshot map[forge.NpcID]forge.NpcBinding

// Bindings resolves npc ids to forge stations. File bindings form the base
// layer; runtime bindings are persisted through the repository and layered on
// top. Reads load the published snapshot without locking.
type Bindings struct {
	snap atomic.Pointer[bindingSnapshot]

	mu      sync.Mutex
	base    map[forge.NpcID]forge.NpcBinding
	runtime map[forge.NpcID]forge.NpcBinding
	removed map[forge.NpcID]struct{}
	repo    ports.BindingRepository

	armed sync.Map
}

func NewBindings(repo ports.BindingRepository) *Bindings {
	b := &Bindings{
		base:    map[forge.NpcID]forge.NpcBinding{},
		runtime: map[forge.NpcID]forge.NpcBinding{},
		removed: map[forge.NpcID]struct{}{},
		repo:    repo,
	}
	empty := bindingSnapshot{}
	b.snap.Store(&empty)
	return b
}

func (b *Bindings) Resolve(npcID forge.NpcID) (forge.NpcBinding, error) {
	binding, ok := (*b.snap.Load())[npcID]
	if !ok {
		return forge.NpcBinding{}, fmt.Errorf("%w: %s", forge.ErrNotBound, npcID)
	}
	return binding, nil
}

func (b *Bindings) List() []forge.NpcBinding {
	snap := *b.snap.Load()
	out := make([]forge.NpcBinding, 0, len(snap))
	for _, binding := range snap {
		out = append(out, binding)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NpcID < out[j].NpcID })
	return out
}

// Bind registers or replaces a binding. Replacement is not retroactive:
// sessions already created keep their snapshot.
func (b *Bindings) Bind(ctx context.Context, binding forge.NpcBinding) error {
	if err := binding.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.repo != nil {
		if err := b.repo.Upsert(ctx, binding); err != nil {
			return fmt.Errorf("persist binding %s: %w", binding.NpcID, err)
		}
	}
	b.runtime[binding.NpcID] = binding
	delete(b.removed, binding.NpcID)
	b.publishLocked()
	return nil
}

// Unbind removes the binding for npcID. It reports whether one existed.
func (b *Bindings) Unbind(ctx context.Context, npcID forge.NpcID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := (*b.snap.Load())[npcID]; !ok {
		return false, nil
	}
	if b.repo != nil {
		if err := b.repo.Delete(ctx, npcID); err != nil {
			return false, fmt.Errorf("delete binding %s: %w", npcID, err)
		}
	}
	delete(b.runtime, npcID)
	b.removed[npcID] = struct{}{}
	b.publishLocked()
	return true, nil
}

// ReplaceBase swaps the file layer. Runtime bindings stay on top; runtime
// removals of file bindings are forgotten.
func (b *Bindings) ReplaceBase(bindings []forge.NpcBinding) error {
	next := make(map[forge.NpcID]forge.NpcBinding, len(bindings))
	for _, binding := range bindings {
		if err := binding.Validate(); err != nil {
			return err
		}
		next[binding.NpcID] = binding
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.base = next
	b.removed = map[forge.NpcID]struct{}{}
	b.publishLocked()
	return nil
}

// LoadRuntime replaces the runtime layer with what the repository holds.
func (b *Bindings) LoadRuntime(ctx context.Context) error {
	if b.repo == nil {
		return nil
	}
	stored, err := b.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list bindings: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runtime = make(map[forge.NpcID]forge.NpcBinding, len(stored))
	for _, binding := range stored {
		b.runtime[binding.NpcID] = binding
	}
	b.publishLocked()
	return nil
}

func (b *Bindings) publishLocked() {
	next := make(bindingSnapshot, len(b.base)+len(b.runtime))
	for id, binding := range b.base {
		if _, gone := b.removed[id]; gone {
			continue
		}
		next[id] = binding
	}
	for id, binding := range b.runtime {
		next[id] = binding
	}
	b.snap.Store(&next)
}

// Arm makes admin's next npc interaction bind that npc to template instead of
// starting a session. Arming again overwrites the template.
func (b *Bindings) Arm(admin forge.PlayerID, template forge.NpcBinding) error {
	template.NpcID = "pending"
	if err := template.Validate(); err != nil {
		return err
	}
	b.armed.Store(admin, template)
	return nil
}

func (b *Bindings) Disarm(admin forge.PlayerID) bool {
	_, ok := b.armed.LoadAndDelete(admin)
	return ok
}

// TakeArmed consumes the armed template for owner, bound to npcID.
func (b *Bindings) TakeArmed(owner forge.PlayerID, npcID forge.NpcID) (forge.NpcBinding, bool) {
	v, ok := b.armed.LoadAndDelete(owner)
	if !ok {
		return forge.NpcBinding{}, false
	}
	template := v.(forge.NpcBinding)
	template.NpcID = npcID
	return template, true
}

// Rearm puts back a template taken by TakeArmed whose bind failed. A template
// armed in the meantime wins.
func (b *Bindings) Rearm(owner forge.PlayerID, template forge.NpcBinding) {
	b.armed.LoadOrStore(owner, template)
}
