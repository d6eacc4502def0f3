package forge

import (
	"fmt"
	"time"
)

// Trigger drives a Session from one state to the next.
type Trigger string

const (
	TriggerTick               Trigger = "tick"
	TriggerCancel             Trigger = "cancel"
	TriggerBindingLost        Trigger = "binding_lost"
	TriggerReservationExpired Trigger = "reservation_expired"
)

// Effect is the side effect a transition obliges the caller to perform.
type Effect int

const (
	EffectNone Effect = iota
	EffectRefund
	EffectGrant
)

func (e Effect) String() string {
	switch e {
	case EffectRefund:
		return "refund"
	case EffectGrant:
		return "grant"
	default:
		return "none"
	}
}

// Apply returns the session after t fires at now. The boolean is false when
// the trigger does not apply, in which case the session is returned as is.
// Terminal sessions never change.
func (s Session) Apply(t Trigger, now time.Time) (Session, Effect, bool, error) {
	if s.State.Terminal() {
		return s, EffectNone, false, nil
	}
	switch t {
	case TriggerTick:
		next := s
		if next.State == StateReserved {
			next.State = StateInProgress
		}
		if next.Progress < next.Recipe.DurationTicks {
			next.Progress++
		}
		next.LastTickAt = now
		if next.Progress >= next.Recipe.DurationTicks {
			return next.finish(StateCompleted, ReasonCompleted, now), EffectGrant, true, nil
		}
		return next, EffectNone, true, nil
	case TriggerCancel:
		// A cancel racing the final tick loses to completion.
		if s.State == StateInProgress && s.Progress >= s.Recipe.DurationTicks {
			return s.finish(StateCompleted, ReasonCompleted, now), EffectGrant, true, nil
		}
		return s.finish(StateCancelled, ReasonOwnerCancelled, now), EffectRefund, true, nil
	case TriggerBindingLost:
		if s.State == StateReserved {
			return s.finish(StateCancelled, ReasonInteractionInvalid, now), EffectRefund, true, nil
		}
		return s.finish(StateFailed, ReasonBindingInvalidated, now), EffectRefund, true, nil
	case TriggerReservationExpired:
		if s.State != StateReserved {
			return s, EffectNone, false, nil
		}
		return s.finish(StateFailed, ReasonReservationExpired, now), EffectRefund, true, nil
	default:
		return s, EffectNone, false, fmt.Errorf("%w: %q", ErrInvalidTrigger, t)
	}
}

func (s Session) finish(state State, reason Reason, now time.Time) Session {
	s.State = state
	s.Reason = reason
	ended := now
	s.EndedAt = &ended
	switch state {
	case StateCompleted:
		s.Progress = s.Recipe.DurationTicks
		s.GrantPending = true
	default:
		s.RefundPending = true
	}
	return s
}
