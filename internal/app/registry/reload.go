package registry

import (
	"context"
	"fmt"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

type Definitions struct {
	Recipes    []forge.Recipe
	RecipeSets []forge.RecipeSet
	Bindings   []forge.NpcBinding
}

type Source interface {
	Load(ctx context.Context) (Definitions, error)
}

// Registry groups the catalog and the bindings behind one reloadable source.
type Registry struct {
	Catalog  *Catalog
	Bindings *Bindings
	source   Source
}

func New(source Source, bindingRepo ports.BindingRepository) *Registry {
	return &Registry{
		Catalog:  NewCatalog(),
		Bindings: NewBindings(bindingRepo),
		source:   source,
	}
}

// Reload re-reads the source and publishes new catalog and binding snapshots.
// Bindings are checked before anything is published, so a bad file leaves the
// previous catalog and bindings in place. Sessions in flight keep the recipe
// they were created with.
func (r *Registry) Reload(ctx context.Context) error {
	if r.source == nil {
		return nil
	}
	defs, err := r.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load forge definitions: %w", err)
	}
	for _, b := range defs.Bindings {
		if err := b.Validate(); err != nil {
			return err
		}
		if !setDefined(defs.RecipeSets, b.RecipeSetID) {
			return fmt.Errorf("%w: %s uses unknown recipe set %s", forge.ErrInvalidBinding, b.NpcID, b.RecipeSetID)
		}
	}
	if err := r.Catalog.Replace(defs.Recipes, defs.RecipeSets); err != nil {
		return err
	}
	if err := r.Bindings.ReplaceBase(defs.Bindings); err != nil {
		return err
	}
	return r.Bindings.LoadRuntime(ctx)
}

func setDefined(sets []forge.RecipeSet, id string) bool {
	for _, s := range sets {
		if s.ID == id {
			return true
		}
	}
	return false
}
