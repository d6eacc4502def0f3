package engine

import (
	"context"

	"mythicforge/internal/domain/forge"
)

// Cancel asks to stop the owner's session. A session that is already terminal
// is returned unchanged.
func (e *Engine) Cancel(ctx context.Context, owner forge.PlayerID) (forge.Session, error) {
	s, ok := e.Store.Get(owner)
	if !ok {
		return forge.Session{}, forge.ErrSessionNotFound
	}
	if s.State.Terminal() {
		return s, nil
	}
	now := e.now()
	next, eff, applied, err := e.Store.Transition(ctx, s.ID, forge.TriggerCancel, now)
	if err != nil {
		return forge.Session{}, err
	}
	if !applied {
		return next, nil
	}
	e.afterTransition(ctx, next, eff, now)
	if eff != forge.EffectNone {
		if settled := e.settleSession(ctx, next.ID); settled != nil {
			return *settled, nil
		}
	}
	return next, nil
}

// Drain removes the owner's terminal session once the caller has consumed it.
func (e *Engine) Drain(ctx context.Context, owner forge.PlayerID) (forge.Session, error) {
	s, ok := e.Store.Get(owner)
	if !ok {
		return forge.Session{}, forge.ErrSessionNotFound
	}
	if !s.State.Terminal() {
		return forge.Session{}, forge.ErrSessionActive
	}
	return e.Store.Remove(ctx, s.ID)
}

func (e *Engine) Session(owner forge.PlayerID) (forge.Session, bool) {
	return e.Store.Get(owner)
}

func (e *Engine) Status(owner forge.PlayerID) View {
	s, ok := e.Store.Get(owner)
	if !ok {
		return View{State: StateNone}
	}
	return View{
		State:            string(s.State),
		ProgressFraction: s.ProgressFraction(),
		RecipeName:       s.Recipe.DisplayName(),
		RemainingTicks:   s.RemainingTicks(),
	}
}
