package memory

import (
	"context"
	"sync"

	"mythicforge/internal/domain/forge"
)

// Inventory records granted items per owner. Grants are deduplicated by ref.
type Inventory struct {
	mu    sync.Mutex
	items map[forge.PlayerID]map[forge.ItemKind]int
	refs  map[string]struct{}
}

func NewInventory() *Inventory {
	return &Inventory{
		items: make(map[forge.PlayerID]map[forge.ItemKind]int),
		refs:  make(map[string]struct{}),
	}
}

func (i *Inventory) Grant(_ context.Context, owner forge.PlayerID, item forge.ItemStack, ref string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, seen := i.refs[ref]; seen {
		return nil
	}
	bag, ok := i.items[owner]
	if !ok {
		bag = make(map[forge.ItemKind]int)
		i.items[owner] = bag
	}
	bag[item.Kind] += item.Quantity
	i.refs[ref] = struct{}{}
	return nil
}

func (i *Inventory) Count(owner forge.PlayerID, kind forge.ItemKind) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.items[owner][kind]
}
