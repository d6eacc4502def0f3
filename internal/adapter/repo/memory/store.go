package memory

import (
	"sync"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

type cooldownKey struct {
	owner forge.PlayerID
	npc   forge.NpcID
}

type obligationKey struct {
	sessionID string
	kind      ports.ObligationKind
}

type obligationRow struct {
	ports.Obligation
	settledAt *time.Time
}

type Store struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	sessions    map[string]forge.Session
	cooldowns   map[cooldownKey]time.Time
	obligations map[obligationKey]*obligationRow
	bindings    map[forge.NpcID]forge.NpcBinding
}

func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]forge.Session),
		cooldowns:   make(map[cooldownKey]time.Time),
		obligations: make(map[obligationKey]*obligationRow),
		bindings:    make(map[forge.NpcID]forge.NpcBinding),
	}
}

func (s *Store) SeedSession(sess forge.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}
