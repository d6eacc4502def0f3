package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"golang.org/x/sync/errgroup"
)

// Advance moves every session forward by one interval. It must not be called
// concurrently with itself.
func (e *Engine) Advance(ctx context.Context) (TickReport, error) {
	var report TickReport
	var errs []error
	now := e.now()
	grace := e.Settings.ReservationGrace
	active := 0

	for _, s := range e.Store.List() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if s.State.Terminal() {
			if !s.Settled() {
				for _, eff := range pendingEffects(s) {
					if err := e.enqueue(ctx, s, eff, now); err != nil {
						errs = append(errs, err)
					}
				}
			}
			continue
		}

		trig := forge.TriggerTick
		switch {
		case s.State == forge.StateReserved && grace > 0 && now.Sub(s.CreatedAt) > grace:
			trig = forge.TriggerReservationExpired
		default:
			if _, err := e.Registry.Bindings.Resolve(s.NpcID); errors.Is(err, forge.ErrNotBound) {
				trig = forge.TriggerBindingLost
			}
		}

		next, eff, applied, err := e.Store.Transition(ctx, s.ID, trig, now)
		if err != nil {
			if !errors.Is(err, forge.ErrSessionNotFound) {
				e.Log.Error().Err(err).Str("session_id", s.ID).Str("trigger", string(trig)).Msg("session transition failed")
				errs = append(errs, err)
			}
			continue
		}
		if !applied {
			continue
		}
		switch trig {
		case forge.TriggerReservationExpired:
			report.Expired++
		case forge.TriggerBindingLost:
			report.Invalidated++
		default:
			report.Advanced++
			if next.State == forge.StateCompleted {
				report.Completed++
			}
		}
		if !next.State.Terminal() {
			active++
		}
		e.afterTransition(ctx, next, eff, now)
	}

	settled, failed, err := e.settleDue(ctx)
	report.Settled, report.SettleFailures = settled, failed
	if err != nil {
		errs = append(errs, err)
	}

	report.Removed = e.sweepIdle(ctx)

	pruned, err := e.Cooldowns.Prune(ctx, now)
	if err != nil {
		e.Log.Error().Err(err).Msg("prune cooldowns failed")
		errs = append(errs, err)
	}
	report.Pruned = pruned

	e.metrics().RecordTick(active)
	return report, errors.Join(errs...)
}

func (e *Engine) settleDue(ctx context.Context) (int, int, error) {
	batch := e.Settings.SettleBatch
	if batch <= 0 {
		batch = 128
	}
	due, err := e.Obligations.Due(ctx, e.now(), batch)
	if err != nil {
		e.Log.Error().Err(err).Msg("load due settlements failed")
		return 0, 0, err
	}

	var ok, failed atomic.Int32
	var g errgroup.Group
	limit := e.Settings.SettleConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, o := range due {
		g.Go(func() error {
			switch err := e.settle(ctx, o); {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, errSettling), errors.Is(err, errAlreadySettled):
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load()), int(failed.Load()), nil
}

// sweepIdle removes settled terminal sessions nobody drained in time.
func (e *Engine) sweepIdle(ctx context.Context) int {
	retention := e.Settings.IdleRetention
	if retention <= 0 {
		return 0
	}
	now := e.now()
	removed := 0
	for _, s := range e.Store.List() {
		if !s.Settled() || s.EndedAt == nil || now.Sub(*s.EndedAt) < retention {
			continue
		}
		if _, err := e.Store.Remove(ctx, s.ID); err != nil {
			if !errors.Is(err, forge.ErrSessionNotFound) {
				e.Log.Error().Err(err).Str("session_id", s.ID).Msg("remove idle session failed")
			}
			continue
		}
		removed++
	}
	return removed
}

// Recover restores sessions persisted by a previous process. Pending refunds
// and grants are queued again on the next Advance.
func (e *Engine) Recover(ctx context.Context, repo ports.SessionRepository) (int, error) {
	if repo == nil {
		return 0, nil
	}
	sessions, err := repo.ListRecoverable(ctx)
	if err != nil {
		return 0, err
	}
	n := e.Store.Restore(sessions)
	e.Log.Info().Int("sessions", n).Msg("forge sessions restored")
	return n, nil
}
