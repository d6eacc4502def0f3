package inmemory

import (
	"testing"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordAccepted()
	r.RecordAccepted()
	r.RecordRejected("on_cooldown")
	r.RecordRejected("not_bound")
	r.RecordRejected("not_bound")
	r.RecordEnded(forge.StateCompleted, forge.ReasonCompleted)
	r.RecordEnded(forge.StateFailed, forge.ReasonReservationExpired)
	r.RecordSettlement(ports.ObligationGrant, true)
	r.RecordSettlement(ports.ObligationRefund, false)
	r.RecordSettlement(ports.ObligationRefund, true)
	r.RecordTick(3)

	s := r.Snapshot()
	if s.InteractionTotal != 5 {
		t.Fatalf("expected total 5, got %d", s.InteractionTotal)
	}
	if s.Rejected != 3 || s.RejectedByCode["not_bound"] != 2 {
		t.Fatalf("expected 3 rejections with 2 not_bound, got %d/%d", s.Rejected, s.RejectedByCode["not_bound"])
	}
	if s.Completed != 1 || s.Failed != 1 || s.Cancelled != 0 {
		t.Fatalf("unexpected ended counts %+v", s)
	}
	if s.EndedByReason[string(forge.ReasonReservationExpired)] != 1 {
		t.Fatalf("expected reservation_expired count 1")
	}
	if s.RefundsSettled != 1 || s.GrantsSettled != 1 || s.SettlementFailure != 1 {
		t.Fatalf("unexpected settlement counts %+v", s)
	}
	if s.Ticks != 1 || s.ActiveSessions != 3 {
		t.Fatalf("expected 1 tick with 3 active, got %d/%d", s.Ticks, s.ActiveSessions)
	}
}
