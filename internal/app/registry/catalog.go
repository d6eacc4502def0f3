package registry

import (
	"fmt"
	"sort"
	"sync/atomic"

	"mythicforge/internal/domain/forge"
)

type catalogSnapshot struct {
	recipes map[forge.RecipeID]forge.Recipe
	sets    map[string][]forge.RecipeID
}

// Catalog holds the recipe definitions as an immutable snapshot that is
// swapped wholesale on update. Reads never lock.
type Catalog struct {
	snap atomic.Pointer[catalogSnapshot]
}

func NewCatalog() *Catalog {
	c := &Catalog{}
	c.snap.Store(&catalogSnapshot{
		recipes: map[forge.RecipeID]forge.Recipe{},
		sets:    map[string][]forge.RecipeID{},
	})
	return c
}

// Replace validates recipes and sets together and publishes them as one
// snapshot. On error the previous snapshot stays in place.
func (c *Catalog) Replace(recipes []forge.Recipe, sets []forge.RecipeSet) error {
	next := &catalogSnapshot{
		recipes: make(map[forge.RecipeID]forge.Recipe, len(recipes)),
		sets:    make(map[string][]forge.RecipeID, len(sets)),
	}
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := next.recipes[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", forge.ErrInvalidRecipe, r.ID)
		}
		next.recipes[r.ID] = r.Clone()
	}
	for _, set := range sets {
		if set.ID == "" || len(set.Recipes) == 0 {
			return fmt.Errorf("%w: recipe set %q is empty", forge.ErrInvalidRecipe, set.ID)
		}
		ids := make([]forge.RecipeID, 0, len(set.Recipes))
		for _, id := range set.Recipes {
			if _, ok := next.recipes[id]; !ok {
				return fmt.Errorf("%w: recipe set %s references unknown recipe %s", forge.ErrInvalidRecipe, set.ID, id)
			}
			ids = append(ids, id)
		}
		next.sets[set.ID] = ids
	}
	c.snap.Store(next)
	return nil
}

func (c *Catalog) Get(id forge.RecipeID) (forge.Recipe, error) {
	r, ok := c.snap.Load().recipes[id]
	if !ok {
		return forge.Recipe{}, fmt.Errorf("%w: %s", forge.ErrRecipeNotFound, id)
	}
	return r.Clone(), nil
}

// Choose picks the recipe an npc offers. An empty id selects the first recipe
// of the set.
func (c *Catalog) Choose(setID string, id forge.RecipeID) (forge.Recipe, error) {
	snap := c.snap.Load()
	ids, ok := snap.sets[setID]
	if !ok || len(ids) == 0 {
		return forge.Recipe{}, fmt.Errorf("%w: recipe set %s", forge.ErrRecipeNotFound, setID)
	}
	if id == "" {
		id = ids[0]
	} else if !containsRecipe(ids, id) {
		return forge.Recipe{}, fmt.Errorf("%w: %s not in %s", forge.ErrRecipeNotOffered, id, setID)
	}
	r, ok := snap.recipes[id]
	if !ok {
		return forge.Recipe{}, fmt.Errorf("%w: %s", forge.ErrRecipeNotFound, id)
	}
	return r.Clone(), nil
}

func (c *Catalog) HasSet(setID string) bool {
	_, ok := c.snap.Load().sets[setID]
	return ok
}

func (c *Catalog) Recipes() []forge.Recipe {
	snap := c.snap.Load()
	out := make([]forge.Recipe, 0, len(snap.recipes))
	for _, r := range snap.recipes {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsRecipe(ids []forge.RecipeID, id forge.RecipeID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
