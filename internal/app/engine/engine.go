package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"mythicforge/internal/app/cooldown"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/app/registry"
	"mythicforge/internal/app/session"
	"mythicforge/internal/domain/forge"

	"github.com/rs/zerolog"
)

type Settings struct {
	ReservationGrace  time.Duration
	IdleRetention     time.Duration
	RetryBase         time.Duration
	RetryMax          time.Duration
	SettleConcurrency int
	SettleBatch       int
}

func DefaultSettings() Settings {
	return Settings{
		ReservationGrace:  10 * time.Second,
		IdleRetention:     5 * time.Minute,
		RetryBase:         2 * time.Second,
		RetryMax:          2 * time.Minute,
		SettleConcurrency: 4,
		SettleBatch:       128,
	}
}

// Engine runs the forge session state machine. Interactions and cancels come
// in from the bridge; Advance is called once per interval by the scheduler.
type Engine struct {
	Store       *session.Store
	Registry    *registry.Registry
	Economy     ports.Economy
	Inventory   ports.OutputGranter
	Cooldowns   cooldown.Policy
	Obligations ports.ObligationRepository
	TxManager   ports.TxManager
	Events      ports.SessionEventPublisher
	Metrics     ports.ForgeMetrics
	Log         zerolog.Logger
	Settings    Settings
	Now         func() time.Time

	inflight sync.Map
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

type nopMetrics struct{}

func (nopMetrics) RecordAccepted() {}
func (nopMetrics) RecordRejected(string) {}
func (nopMetrics) RecordEnded(forge.State, forge.Reason) {}
func (nopMetrics) RecordSettlement(ports.ObligationKind, bool) {}
func (nopMetrics) RecordTick(int) {}

func (e *Engine) metrics() ports.ForgeMetrics {
	if e.Metrics == nil {
		return nopMetrics{}
	}
	return e.Metrics
}

func (e *Engine) publish(ctx context.Context, s forge.Session, at time.Time) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Publish(ctx, ports.NewSessionEvent(s, at)); err != nil {
		e.Log.Warn().Err(err).
			Str("session_id", s.ID).
			Str("owner", string(s.Owner)).
			Msg("publish session event failed")
	}
}

// afterTransition performs the side effects of a committed transition. The
// session is already terminal in the store when refunds or grants are queued.
// A completed session frees its owner only once the cooldown is written.
func (e *Engine) afterTransition(ctx context.Context, s forge.Session, eff forge.Effect, at time.Time) {
	e.publish(ctx, s, at)
	if !s.State.Terminal() {
		e.Log.Debug().
			Str("session_id", s.ID).
			Str("owner", string(s.Owner)).
			Str("state", string(s.State)).
			Int("progress", s.Progress).
			Msg("forge session advanced")
		return
	}
	e.metrics().RecordEnded(s.State, s.Reason)
	err := e.inTx(ctx, func(ctx context.Context) error {
		if s.State == forge.StateCompleted {
			if err := e.Cooldowns.Record(ctx, s); err != nil {
				return err
			}
		}
		return e.enqueue(ctx, s, eff, at)
	})
	if err != nil {
		e.Log.Error().Err(err).Str("session_id", s.ID).Str("effect", eff.String()).Msg("record session outcome failed")
	}
	if s.State == forge.StateCompleted {
		e.Store.ReleaseOwner(s.ID)
	}
	e.Log.Info().
		Str("session_id", s.ID).
		Str("owner", string(s.Owner)).
		Str("npc", string(s.NpcID)).
		Str("recipe", string(s.Recipe.ID)).
		Str("state", string(s.State)).
		Str("reason", string(s.Reason)).
		Msg("forge session ended")
}

func (e *Engine) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.TxManager == nil {
		return fn(ctx)
	}
	return e.TxManager.RunInTx(ctx, fn)
}

func rejectionCode(err error) string {
	var cd *forge.OnCooldownError
	switch {
	case errors.Is(err, forge.ErrInvalidRequest):
		return "bad_request"
	case errors.Is(err, forge.ErrNotBound):
		return "not_bound"
	case errors.Is(err, forge.ErrAlreadyActive):
		return "already_active"
	case errors.As(err, &cd), errors.Is(err, forge.ErrOnCooldown):
		return "on_cooldown"
	case errors.Is(err, forge.ErrRecipeNotOffered):
		return "recipe_not_offered"
	case errors.Is(err, forge.ErrRecipeNotFound):
		return "recipe_not_found"
	case errors.Is(err, forge.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ports.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ports.ErrLedgerUnavailable):
		return "ledger_unavailable"
	default:
		return "internal_error"
	}
}
