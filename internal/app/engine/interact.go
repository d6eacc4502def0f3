package engine

import (
	"context"
	"fmt"
	"strings"

	"mythicforge/internal/domain/forge"
)

// Interact handles a player using an npc. Rejections leave no session behind
// and never move funds.
func (e *Engine) Interact(ctx context.Context, req InteractRequest) (InteractResult, error) {
	req.Owner = forge.PlayerID(strings.TrimSpace(string(req.Owner)))
	req.NpcID = forge.NpcID(strings.TrimSpace(string(req.NpcID)))
	if req.Owner == "" || req.NpcID == "" {
		return InteractResult{}, e.reject(req, fmt.Errorf("%w: owner_id and npc_id are required", forge.ErrInvalidRequest))
	}
	if req.Distance != nil && *req.Distance < 0 {
		return InteractResult{}, e.reject(req, fmt.Errorf("%w: negative distance", forge.ErrInvalidRequest))
	}

	if template, ok := e.Registry.Bindings.TakeArmed(req.Owner, req.NpcID); ok {
		if err := e.Registry.Bindings.Bind(ctx, template); err != nil {
			e.Registry.Bindings.Rearm(req.Owner, template)
			e.Log.Error().Err(err).Str("owner", string(req.Owner)).Str("npc", string(req.NpcID)).Msg("bind armed npc failed")
			return InteractResult{}, err
		}
		e.Log.Info().
			Str("owner", string(req.Owner)).
			Str("npc", string(req.NpcID)).
			Str("recipe_set", template.RecipeSetID).
			Msg("npc bound by admin interaction")
		return InteractResult{Bound: &template}, nil
	}

	binding, err := e.Registry.Bindings.Resolve(req.NpcID)
	if err != nil {
		return InteractResult{}, e.reject(req, err)
	}
	recipe, err := e.Registry.Catalog.Choose(binding.RecipeSetID, req.RecipeID)
	if err != nil {
		return InteractResult{}, e.reject(req, err)
	}
	if req.Distance != nil && !binding.InRange(*req.Distance) {
		return InteractResult{}, e.reject(req, forge.ErrOutOfRange)
	}

	claim, err := e.Store.Claim(req.Owner)
	if err != nil {
		return InteractResult{}, e.reject(req, err)
	}
	committed := false
	defer func() {
		if !committed {
			e.Store.Release(claim)
		}
	}()

	now := e.now()
	if err := e.Cooldowns.Check(ctx, req.Owner, req.NpcID, now); err != nil {
		return InteractResult{}, e.reject(req, err)
	}

	debitRef := "debit:" + claim.SessionID
	if recipe.Cost.IsPositive() {
		if err := e.Economy.Debit(ctx, req.Owner, recipe.Cost, debitRef); err != nil {
			return InteractResult{}, e.reject(req, err)
		}
	}

	created, err := e.Store.Commit(ctx, claim, forge.Session{
		Owner:           req.Owner,
		NpcID:           req.NpcID,
		Recipe:          recipe,
		CooldownSeconds: binding.CooldownSeconds,
		State:           forge.StateReserved,
		FundsHeld:       recipe.Cost,
		CreatedAt:       now,
		LastTickAt:      now,
	})
	committed = true
	if err != nil {
		e.reverseDebit(ctx, req.Owner, claim.SessionID, recipe)
		e.Log.Error().Err(err).Str("owner", string(req.Owner)).Msg("store forge session failed")
		return InteractResult{}, err
	}

	e.metrics().RecordAccepted()
	e.publish(ctx, created, now)
	e.Log.Debug().
		Str("session_id", created.ID).
		Str("owner", string(created.Owner)).
		Str("npc", string(created.NpcID)).
		Str("recipe", string(created.Recipe.ID)).
		Msg("forge session reserved")
	return InteractResult{Session: &created}, nil
}

// reverseDebit returns funds taken for a session that could not be stored.
func (e *Engine) reverseDebit(ctx context.Context, owner forge.PlayerID, sessionID string, recipe forge.Recipe) {
	if !recipe.Cost.IsPositive() {
		return
	}
	if err := e.Economy.Credit(ctx, owner, recipe.Cost, "reversal:"+sessionID); err != nil {
		e.Log.Error().Err(err).
			Str("owner", string(owner)).
			Str("session_id", sessionID).
			Str("amount", recipe.Cost.String()).
			Msg("reverse debit failed")
	}
}

func (e *Engine) reject(req InteractRequest, err error) error {
	code := rejectionCode(err)
	e.metrics().RecordRejected(code)
	e.Log.Debug().
		Str("owner", string(req.Owner)).
		Str("npc", string(req.NpcID)).
		Str("code", code).
		Err(err).
		Msg("interaction rejected")
	return err
}
