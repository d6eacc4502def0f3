package engine

import (
	"context"
	"fmt"

	"mythicforge/internal/domain/forge"
)

// Bind registers a runtime binding. Sessions already running keep the binding
// they started with.
func (e *Engine) Bind(ctx context.Context, binding forge.NpcBinding) error {
	if !e.Registry.Catalog.HasSet(binding.RecipeSetID) {
		return fmt.Errorf("%w: recipe set %s", forge.ErrRecipeNotFound, binding.RecipeSetID)
	}
	if err := e.Registry.Bindings.Bind(ctx, binding); err != nil {
		return err
	}
	e.Log.Info().Str("npc", string(binding.NpcID)).Str("recipe_set", binding.RecipeSetID).Msg("npc bound")
	return nil
}

// Unbind removes a binding. Sessions on that npc fail on the next tick.
func (e *Engine) Unbind(ctx context.Context, npcID forge.NpcID) error {
	removed, err := e.Registry.Bindings.Unbind(ctx, npcID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", forge.ErrNotBound, npcID)
	}
	e.Log.Info().Str("npc", string(npcID)).Msg("npc unbound")
	return nil
}

func (e *Engine) ArmBinding(admin forge.PlayerID, template forge.NpcBinding) error {
	if admin == "" {
		return fmt.Errorf("%w: admin_id is required", forge.ErrInvalidRequest)
	}
	if !e.Registry.Catalog.HasSet(template.RecipeSetID) {
		return fmt.Errorf("%w: recipe set %s", forge.ErrRecipeNotFound, template.RecipeSetID)
	}
	if err := e.Registry.Bindings.Arm(admin, template); err != nil {
		return err
	}
	e.Log.Info().Str("owner", string(admin)).Str("recipe_set", template.RecipeSetID).Msg("binding armed")
	return nil
}

func (e *Engine) DisarmBinding(admin forge.PlayerID) bool {
	return e.Registry.Bindings.Disarm(admin)
}

func (e *Engine) Bindings() []forge.NpcBinding {
	return e.Registry.Bindings.List()
}

func (e *Engine) Reload(ctx context.Context) error {
	if err := e.Registry.Reload(ctx); err != nil {
		e.Log.Error().Err(err).Msg("reload forge definitions failed")
		return err
	}
	e.Log.Info().
		Int("recipes", len(e.Registry.Catalog.Recipes())).
		Int("bindings", len(e.Registry.Bindings.List())).
		Msg("forge definitions reloaded")
	return nil
}
