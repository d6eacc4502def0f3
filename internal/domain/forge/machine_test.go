package forge

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(duration int) Session {
	return Session{
		ID:    "s-1",
		Owner: "alice",
		NpcID: "smith",
		Recipe: Recipe{
			ID:            "iron_sword",
			Cost:          decimal.NewFromInt(50),
			DurationTicks: duration,
			Output:        ItemStack{Kind: "iron_sword", Quantity: 1},
		},
		State:     StateReserved,
		FundsHeld: decimal.NewFromInt(50),
	}
}

func TestApply_TicksUntilCompleted(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testSession(3)

	s, eff, ok, err := s.Apply(TriggerTick, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateInProgress, s.State)
	assert.Equal(t, 1, s.Progress)
	assert.Equal(t, EffectNone, eff)

	s, _, _, _ = s.Apply(TriggerTick, now.Add(time.Second))
	assert.Equal(t, 2, s.Progress)

	s, eff, ok, err = s.Apply(TriggerTick, now.Add(2*time.Second))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, s.State)
	assert.Equal(t, ReasonCompleted, s.Reason)
	assert.Equal(t, EffectGrant, eff)
	assert.True(t, s.GrantPending)
	assert.False(t, s.RefundPending)
	require.NotNil(t, s.EndedAt)
	assert.Equal(t, 1.0, s.ProgressFraction())
}

func TestApply_ProgressIsMonotonic(t *testing.T) {
	now := time.Now()
	s := testSession(5)
	prev := s.Progress
	for i := 0; i < 10; i++ {
		s, _, _, _ = s.Apply(TriggerTick, now)
		if s.Progress < prev {
			t.Fatalf("progress decreased: got %d want >= %d", s.Progress, prev)
		}
		if s.Progress > s.Recipe.DurationTicks {
			t.Fatalf("progress overflow: got %d want <= %d", s.Progress, s.Recipe.DurationTicks)
		}
		prev = s.Progress
	}
	assert.Equal(t, StateCompleted, s.State)
}

func TestApply_CancelFromReservedAndInProgress(t *testing.T) {
	now := time.Now()

	reserved := testSession(3)
	got, eff, ok, err := reserved.Apply(TriggerCancel, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateCancelled, got.State)
	assert.Equal(t, ReasonOwnerCancelled, got.Reason)
	assert.Equal(t, EffectRefund, eff)
	assert.True(t, got.RefundPending)

	inProgress, _, _, _ := testSession(3).Apply(TriggerTick, now)
	got, eff, _, _ = inProgress.Apply(TriggerCancel, now)
	assert.Equal(t, StateCancelled, got.State)
	assert.Equal(t, EffectRefund, eff)
}

func TestApply_CancelLosesToFinishedWork(t *testing.T) {
	s := testSession(2)
	s.State = StateInProgress
	s.Progress = 2

	got, eff, ok, err := s.Apply(TriggerCancel, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, got.State)
	assert.Equal(t, EffectGrant, eff)
}

func TestApply_BindingLost(t *testing.T) {
	now := time.Now()

	got, eff, _, _ := testSession(3).Apply(TriggerBindingLost, now)
	assert.Equal(t, StateCancelled, got.State)
	assert.Equal(t, ReasonInteractionInvalid, got.Reason)
	assert.Equal(t, EffectRefund, eff)

	inProgress, _, _, _ := testSession(3).Apply(TriggerTick, now)
	got, eff, _, _ = inProgress.Apply(TriggerBindingLost, now)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, ReasonBindingInvalidated, got.Reason)
	assert.Equal(t, EffectRefund, eff)
}

func TestApply_ReservationExpiredOnlyFromReserved(t *testing.T) {
	now := time.Now()

	got, eff, ok, _ := testSession(3).Apply(TriggerReservationExpired, now)
	require.True(t, ok)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, ReasonReservationExpired, got.Reason)
	assert.Equal(t, EffectRefund, eff)

	inProgress, _, _, _ := testSession(3).Apply(TriggerTick, now)
	got, eff, ok, _ = inProgress.Apply(TriggerReservationExpired, now)
	assert.False(t, ok)
	assert.Equal(t, StateInProgress, got.State)
	assert.Equal(t, EffectNone, eff)
}

func TestApply_TerminalIsIdempotent(t *testing.T) {
	now := time.Now()
	cancelled, _, _, _ := testSession(3).Apply(TriggerCancel, now)

	for _, trig := range []Trigger{TriggerTick, TriggerCancel, TriggerBindingLost, TriggerReservationExpired} {
		got, eff, ok, err := cancelled.Apply(trig, now.Add(time.Minute))
		require.NoError(t, err)
		if ok || eff != EffectNone || got.State != StateCancelled {
			t.Fatalf("%s on terminal session: got ok=%v eff=%v state=%s", trig, ok, eff, got.State)
		}
	}
}

func TestApply_UnknownTrigger(t *testing.T) {
	_, _, _, err := testSession(3).Apply(Trigger("explode"), time.Now())
	if !errors.Is(err, ErrInvalidTrigger) {
		t.Fatalf("expected ErrInvalidTrigger, got %v", err)
	}
}

func TestSessionSettled(t *testing.T) {
	s := testSession(1)
	assert.False(t, s.Settled())
	s, _, _, _ = s.Apply(TriggerTick, time.Now())
	assert.False(t, s.Settled())
	s.GrantPending = false
	s.OutputGranted = true
	assert.True(t, s.Settled())
}
