package inmemory

import (
	"sync"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

type Snapshot struct {
	InteractionTotal  uint64            `json:"interaction_total"`
	Accepted          uint64            `json:"accepted"`
	Rejected          uint64            `json:"rejected"`
	RejectedByCode    map[string]uint64 `json:"rejected_by_code"`
	Completed         uint64            `json:"completed"`
	Cancelled         uint64            `json:"cancelled"`
	Failed            uint64            `json:"failed"`
	EndedByReason     map[string]uint64 `json:"ended_by_reason"`
	RefundsSettled    uint64            `json:"refunds_settled"`
	GrantsSettled     uint64            `json:"grants_settled"`
	SettlementFailure uint64            `json:"settlement_failure"`
	Ticks             uint64            `json:"ticks"`
	ActiveSessions    int               `json:"active_sessions"`
}

type Recorder struct {
	mu         sync.Mutex
	accepted   uint64
	rejected   map[string]uint64
	ended      map[forge.State]uint64
	byReason   map[string]uint64
	refunds    uint64
	grants     uint64
	settleFail uint64
	ticks      uint64
	active     int
}

func NewRecorder() *Recorder {
	return &Recorder{
		rejected: map[string]uint64{},
		ended:    map[forge.State]uint64{},
		byReason: map[string]uint64{},
	}
}

func (r *Recorder) RecordAccepted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted++
}

func (r *Recorder) RecordRejected(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[code]++
}

func (r *Recorder) RecordEnded(state forge.State, reason forge.Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended[state]++
	r.byReason[string(reason)]++
}

func (r *Recorder) RecordSettlement(kind ports.ObligationKind, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !ok:
		r.settleFail++
	case kind == ports.ObligationRefund:
		r.refunds++
	case kind == ports.ObligationGrant:
		r.grants++
	}
}

func (r *Recorder) RecordTick(active int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	r.active = active
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		Accepted:          r.accepted,
		RejectedByCode:    make(map[string]uint64, len(r.rejected)),
		Completed:         r.ended[forge.StateCompleted],
		Cancelled:         r.ended[forge.StateCancelled],
		Failed:            r.ended[forge.StateFailed],
		EndedByReason:     make(map[string]uint64, len(r.byReason)),
		RefundsSettled:    r.refunds,
		GrantsSettled:     r.grants,
		SettlementFailure: r.settleFail,
		Ticks:             r.ticks,
		ActiveSessions:    r.active,
	}
	for k, v := range r.rejected {
		out.RejectedByCode[k] = v
		out.Rejected += v
	}
	for k, v := range r.byReason {
		out.EndedByReason[k] = v
	}
	out.InteractionTotal = out.Accepted + out.Rejected
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
