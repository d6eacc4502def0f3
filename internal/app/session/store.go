package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/google/uuid"
)

// Store is the authoritative holder of forge sessions. The owner map is the
// only place the one-live-session-per-owner rule is enforced; each session
// then has its own lock so transitions of different sessions never contend.
type Store struct {
	mu     sync.Mutex
	live   map[forge.PlayerID]*entry
	latest map[forge.PlayerID]*entry
	byID   map[string]*entry

	repo  ports.SessionRepository
	NewID func() string
}

type entry struct {
	mu       sync.Mutex
	owner    forge.PlayerID
	session  forge.Session
	pending  bool
	removed  bool
	terminal atomic.Bool

	// held is guarded by Store.mu. A completed session keeps the owner slot
	// until ReleaseOwner runs.
	held bool
}

// Claim reserves the owner slot ahead of session creation so slow work such
// as the economy debit can happen outside any lock.
type Claim struct {
	Owner     forge.PlayerID
	SessionID string
	e         *entry
}

// NewStore keeps sessions in memory only when repo is nil.
func NewStore(repo ports.SessionRepository) *Store {
	return &Store{
		live:   make(map[forge.PlayerID]*entry),
		latest: make(map[forge.PlayerID]*entry),
		byID:   make(map[string]*entry),
		repo:   repo,
		NewID:  uuid.NewString,
	}
}

func (s *Store) Claim(owner forge.PlayerID) (Claim, error) {
	if owner == "" {
		return Claim{}, fmt.Errorf("%w: owner is required", forge.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live[owner]; ok && (e.held || !e.terminal.Load()) {
		return Claim{}, forge.ErrAlreadyActive
	}
	e := &entry{owner: owner, pending: true}
	s.live[owner] = e
	return Claim{Owner: owner, SessionID: s.NewID(), e: e}, nil
}

// Release gives the owner slot back when a claim is abandoned.
func (s *Store) Release(c Claim) {
	if c.e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.live[c.Owner]; ok && cur == c.e && c.e.pending {
		delete(s.live, c.Owner)
	}
}

// Commit turns a claim into a stored session. On persistence failure the
// claim is released and nothing is recorded.
func (s *Store) Commit(ctx context.Context, c Claim, sess forge.Session) (forge.Session, error) {
	if c.e == nil || c.Owner != sess.Owner {
		return forge.Session{}, fmt.Errorf("%w: claim does not match session owner", forge.ErrInvalidRequest)
	}
	sess.ID = c.SessionID
	sess.Version = 1

	c.e.mu.Lock()
	if s.repo != nil {
		if err := s.repo.SaveWithVersion(ctx, sess, 0); err != nil {
			c.e.mu.Unlock()
			s.Release(c)
			return forge.Session{}, fmt.Errorf("persist session %s: %w", sess.ID, err)
		}
	}
	c.e.session = sess
	c.e.pending = false
	c.e.terminal.Store(sess.State.Terminal())
	c.e.mu.Unlock()

	s.mu.Lock()
	s.byID[sess.ID] = c.e
	s.latest[sess.Owner] = c.e
	s.mu.Unlock()
	return sess, nil
}

// Create checks for a live session and inserts sess atomically.
func (s *Store) Create(ctx context.Context, sess forge.Session) (forge.Session, error) {
	c, err := s.Claim(sess.Owner)
	if err != nil {
		return forge.Session{}, err
	}
	return s.Commit(ctx, c, sess)
}

// Get returns the owner's live session, or the most recent terminal one that
// has not been removed yet.
func (s *Store) Get(owner forge.PlayerID) (forge.Session, bool) {
	s.mu.Lock()
	e, ok := s.latest[owner]
	s.mu.Unlock()
	if !ok {
		return forge.Session{}, false
	}
	return e.read()
}

func (s *Store) GetByID(id string) (forge.Session, bool) {
	s.mu.Lock()
	e, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return forge.Session{}, false
	}
	return e.read()
}

func (e *entry) read() (forge.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || e.pending {
		return forge.Session{}, false
	}
	return e.session, true
}

// Transition applies trig to the session under its own lock and persists the
// result before publishing it. A trigger that does not apply is reported with
// applied=false and leaves the session untouched. A transition to Completed
// keeps the owner slot taken until ReleaseOwner is called, so the caller can
// record the cooldown before the owner may start again.
func (s *Store) Transition(ctx context.Context, id string, trig forge.Trigger, now time.Time) (sess forge.Session, eff forge.Effect, applied bool, err error) {
	return s.mutate(ctx, id, func(cur forge.Session) (forge.Session, forge.Effect, bool, error) {
		return cur.Apply(trig, now)
	})
}

// MarkSettled records that the refund or grant obligation has been met.
func (s *Store) MarkSettled(ctx context.Context, id string, kind ports.ObligationKind) (forge.Session, error) {
	sess, _, _, err := s.mutate(ctx, id, func(cur forge.Session) (forge.Session, forge.Effect, bool, error) {
		next := cur
		switch kind {
		case ports.ObligationRefund:
			if !cur.RefundPending {
				return cur, forge.EffectNone, false, nil
			}
			next.RefundPending = false
			next.Refunded = true
		case ports.ObligationGrant:
			if !cur.GrantPending {
				return cur, forge.EffectNone, false, nil
			}
			next.GrantPending = false
			next.OutputGranted = true
		default:
			return cur, forge.EffectNone, false, fmt.Errorf("unknown obligation kind %q", kind)
		}
		return next, forge.EffectNone, true, nil
	})
	return sess, err
}

func (s *Store) mutate(ctx context.Context, id string, fn func(forge.Session) (forge.Session, forge.Effect, bool, error)) (forge.Session, forge.Effect, bool, error) {
	s.mu.Lock()
	e, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return forge.Session{}, forge.EffectNone, false, forge.ErrSessionNotFound
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return forge.Session{}, forge.EffectNone, false, forge.ErrSessionNotFound
	}
	cur := e.session
	next, eff, applied, err := fn(cur)
	if err != nil || !applied {
		e.mu.Unlock()
		return cur, forge.EffectNone, false, err
	}
	next.Version = cur.Version + 1
	if s.repo != nil {
		if err := s.repo.SaveWithVersion(ctx, next, cur.Version); err != nil {
			e.mu.Unlock()
			return cur, forge.EffectNone, false, fmt.Errorf("persist session %s: %w", id, err)
		}
	}
	e.session = next
	becameTerminal := next.State.Terminal() && !cur.State.Terminal()
	if becameTerminal {
		e.terminal.Store(true)
	}
	e.mu.Unlock()

	if becameTerminal {
		s.mu.Lock()
		if s.live[next.Owner] == e {
			if next.State == forge.StateCompleted {
				e.held = true
			} else {
				delete(s.live, next.Owner)
			}
		}
		s.mu.Unlock()
	}
	return next, eff, true, nil
}

// ReleaseOwner frees the owner slot a completed session still holds.
func (s *Store) ReleaseOwner(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok || !e.held {
		return
	}
	e.held = false
	if s.live[e.owner] == e {
		delete(s.live, e.owner)
	}
}

// Remove drops a terminal session. Live sessions cannot be removed.
func (s *Store) Remove(ctx context.Context, id string) (forge.Session, error) {
	s.mu.Lock()
	e, ok := s.byID[id]
	held := ok && e.held
	s.mu.Unlock()
	if !ok {
		return forge.Session{}, forge.ErrSessionNotFound
	}
	if held {
		return forge.Session{}, forge.ErrSessionActive
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return forge.Session{}, forge.ErrSessionNotFound
	}
	if !e.session.State.Terminal() {
		e.mu.Unlock()
		return forge.Session{}, forge.ErrSessionActive
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, ports.ErrNotFound) {
			e.mu.Unlock()
			return forge.Session{}, fmt.Errorf("delete session %s: %w", id, err)
		}
	}
	e.removed = true
	sess := e.session
	e.mu.Unlock()

	s.mu.Lock()
	delete(s.byID, id)
	if s.latest[sess.Owner] == e {
		delete(s.latest, sess.Owner)
	}
	s.mu.Unlock()
	return sess, nil
}

// List returns a point-in-time copy of every stored session ordered by
// creation time.
func (s *Store) List() []forge.Session {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]forge.Session, 0, len(entries))
	for _, e := range entries {
		if sess, ok := e.read(); ok {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore loads previously persisted sessions after a restart. It must run
// before the store serves traffic.
func (s *Store) Restore(sessions []forge.Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range sessions {
		if sess.ID == "" || sess.Owner == "" {
			continue
		}
		if _, dup := s.byID[sess.ID]; dup {
			continue
		}
		e := &entry{owner: sess.Owner, session: sess}
		e.terminal.Store(sess.State.Terminal())
		s.byID[sess.ID] = e
		if prev, ok := s.latest[sess.Owner]; !ok || prev.session.CreatedAt.Before(sess.CreatedAt) {
			s.latest[sess.Owner] = e
		}
		if !sess.State.Terminal() {
			s.live[sess.Owner] = e
		}
		n++
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
