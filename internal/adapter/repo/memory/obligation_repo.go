package memory

import (
	"context"
	"sort"
	"time"

	"mythicforge/internal/app/ports"
)

type ObligationRepo struct {
	store *Store
}

func NewObligationRepo(store *Store) ObligationRepo {
	return ObligationRepo{store: store}
}

func (r ObligationRepo) Enqueue(_ context.Context, o ports.Obligation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	k := obligationKey{sessionID: o.SessionID, kind: o.Kind}
	if _, exists := r.store.obligations[k]; exists {
		return nil
	}
	r.store.obligations[k] = &obligationRow{Obligation: o}
	return nil
}

func (r ObligationRepo) Due(_ context.Context, now time.Time, limit int) ([]ports.Obligation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]ports.Obligation, 0)
	for _, row := range r.store.obligations {
		if row.settledAt != nil || row.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, row.Obligation)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextAttemptAt.Equal(out[j].NextAttemptAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r ObligationRepo) MarkSettled(_ context.Context, sessionID string, kind ports.ObligationKind, settledAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row, ok := r.store.obligations[obligationKey{sessionID: sessionID, kind: kind}]
	if !ok {
		return ports.ErrNotFound
	}
	at := settledAt
	row.settledAt = &at
	return nil
}

func (r ObligationRepo) Reschedule(_ context.Context, sessionID string, kind ports.ObligationKind, attempts int, next time.Time, lastErr string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row, ok := r.store.obligations[obligationKey{sessionID: sessionID, kind: kind}]
	if !ok {
		return ports.ErrNotFound
	}
	row.Attempts = attempts
	row.NextAttemptAt = next
	row.LastError = lastErr
	return nil
}

func (r ObligationRepo) Pending(_ context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, row := range r.store.obligations {
		if row.settledAt == nil {
			n++
		}
	}
	return n, nil
}
