package memory

import (
	"context"
	"sort"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

type SessionRepo struct {
	store *Store
}

func NewSessionRepo(store *Store) SessionRepo {
	return SessionRepo{store: store}
}

func (r SessionRepo) GetByID(_ context.Context, sessionID string) (forge.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sess, ok := r.store.sessions[sessionID]
	if !ok {
		return forge.Session{}, ports.ErrNotFound
	}
	return sess, nil
}

func (r SessionRepo) SaveWithVersion(_ context.Context, sess forge.Session, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.sessions[sess.ID]
	if !ok {
		if expectedVersion != 0 {
			return ports.ErrConflict
		}
		if !sess.State.Terminal() {
			for _, other := range r.store.sessions {
				if other.Owner == sess.Owner && !other.State.Terminal() {
					return ports.ErrConflict
				}
			}
		}
		r.store.sessions[sess.ID] = sess
		return nil
	}
	if current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.store.sessions[sess.ID] = sess
	return nil
}

func (r SessionRepo) Delete(_ context.Context, sessionID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.sessions[sessionID]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.sessions, sessionID)
	return nil
}

func (r SessionRepo) ListRecoverable(_ context.Context) ([]forge.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]forge.Session, 0)
	for _, sess := range r.store.sessions {
		if !sess.State.Terminal() || !sess.Settled() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
