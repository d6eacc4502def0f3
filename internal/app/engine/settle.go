package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/cenkalti/backoff/v5"
)

func obligationFor(s forge.Session, eff forge.Effect, at time.Time) (ports.Obligation, bool) {
	o := ports.Obligation{
		SessionID:     s.ID,
		Owner:         s.Owner,
		NextAttemptAt: at,
		CreatedAt:     at,
	}
	switch eff {
	case forge.EffectRefund:
		o.Kind = ports.ObligationRefund
		o.Amount = s.FundsHeld
	case forge.EffectGrant:
		o.Kind = ports.ObligationGrant
		o.Item = s.Recipe.Output
	default:
		return ports.Obligation{}, false
	}
	return o, true
}

func pendingEffects(s forge.Session) []forge.Effect {
	var out []forge.Effect
	if s.RefundPending {
		out = append(out, forge.EffectRefund)
	}
	if s.GrantPending {
		out = append(out, forge.EffectGrant)
	}
	return out
}

func (e *Engine) enqueue(ctx context.Context, s forge.Session, eff forge.Effect, at time.Time) error {
	o, ok := obligationFor(s, eff, at)
	if !ok {
		return nil
	}
	return e.Obligations.Enqueue(ctx, o)
}

// settleSession tries the session's pending obligations right away. It
// returns the session as stored afterwards, or nil if it is gone.
func (e *Engine) settleSession(ctx context.Context, sessionID string) *forge.Session {
	s, ok := e.Store.GetByID(sessionID)
	if !ok {
		return nil
	}
	now := e.now()
	for _, eff := range pendingEffects(s) {
		o, _ := obligationFor(s, eff, now)
		_ = e.settle(ctx, o)
	}
	s, ok = e.Store.GetByID(sessionID)
	if !ok {
		return nil
	}
	return &s
}

var (
	errSettling       = errors.New("settlement already in flight")
	errAlreadySettled = errors.New("settlement already done")
)

func owes(s forge.Session, kind ports.ObligationKind) bool {
	switch kind {
	case ports.ObligationRefund:
		return s.RefundPending
	case ports.ObligationGrant:
		return s.GrantPending
	}
	return true
}

// settle performs one refund or grant. The session is marked settled before
// the obligation so a crash in between only causes a retry that the ledger
// deduplicates by reference.
func (e *Engine) settle(ctx context.Context, o ports.Obligation) error {
	ref := o.Reference()
	if _, busy := e.inflight.LoadOrStore(ref, struct{}{}); busy {
		return errSettling
	}
	defer e.inflight.Delete(ref)

	// The session flag clears before the obligation row, so a cleared flag
	// means the call already went through and only the row is stale.
	if s, ok := e.Store.GetByID(o.SessionID); ok && !owes(s, o.Kind) {
		if err := e.Obligations.MarkSettled(ctx, o.SessionID, o.Kind, e.now()); err != nil && !errors.Is(err, ports.ErrNotFound) {
			e.Log.Error().Err(err).Str("session_id", o.SessionID).Msg("mark obligation settled failed")
			return err
		}
		return errAlreadySettled
	}

	var err error
	switch o.Kind {
	case ports.ObligationRefund:
		if o.Amount.IsPositive() {
			err = e.Economy.Credit(ctx, o.Owner, o.Amount, ref)
		}
	case ports.ObligationGrant:
		if e.Inventory != nil {
			err = e.Inventory.Grant(ctx, o.Owner, o.Item, ref)
		}
	default:
		err = fmt.Errorf("unknown obligation kind %q", o.Kind)
	}

	now := e.now()
	if err != nil {
		attempt := o.Attempts + 1
		next := now.Add(e.retryDelay(attempt))
		if rerr := e.Obligations.Reschedule(ctx, o.SessionID, o.Kind, attempt, next, err.Error()); rerr != nil {
			e.Log.Error().Err(rerr).Str("session_id", o.SessionID).Msg("reschedule settlement failed")
		}
		e.metrics().RecordSettlement(o.Kind, false)
		e.Log.Warn().Err(err).
			Str("session_id", o.SessionID).
			Str("owner", string(o.Owner)).
			Str("kind", string(o.Kind)).
			Int("attempt", attempt).
			Time("next_attempt_at", next).
			Msg("settlement failed, will retry")
		return err
	}

	if _, err := e.Store.MarkSettled(ctx, o.SessionID, o.Kind); err != nil && !errors.Is(err, forge.ErrSessionNotFound) {
		e.Log.Error().Err(err).Str("session_id", o.SessionID).Msg("mark session settled failed")
		return err
	}
	if err := e.Obligations.MarkSettled(ctx, o.SessionID, o.Kind, now); err != nil {
		e.Log.Error().Err(err).Str("session_id", o.SessionID).Msg("mark obligation settled failed")
		return err
	}
	e.metrics().RecordSettlement(o.Kind, true)
	e.Log.Debug().
		Str("session_id", o.SessionID).
		Str("owner", string(o.Owner)).
		Str("kind", string(o.Kind)).
		Msg("settlement done")
	return nil
}

func (e *Engine) retryDelay(attempt int) time.Duration {
	base, ceiling := e.Settings.RetryBase, e.Settings.RetryMax
	if base <= 0 {
		base = time.Second
	}
	if ceiling < base {
		ceiling = base
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         ceiling,
	}
	b.Reset()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
