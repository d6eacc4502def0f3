package ports

import (
	"context"
	"time"

	"mythicforge/internal/domain/forge"

	"github.com/shopspring/decimal"
)

type SessionRepository interface {
	GetByID(ctx context.Context, sessionID string) (forge.Session, error)
	SaveWithVersion(ctx context.Context, session forge.Session, expectedVersion int64) error
	Delete(ctx context.Context, sessionID string) error
	// ListRecoverable returns non-terminal sessions and terminal sessions
	// that still owe a refund or a grant.
	ListRecoverable(ctx context.Context) ([]forge.Session, error)
}

type CooldownRepository interface {
	// NextEligibleAt returns ErrNotFound when no record exists.
	NextEligibleAt(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID) (time.Time, error)
	Put(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID, nextEligibleAt time.Time) error
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

type BindingRepository interface {
	List(ctx context.Context) ([]forge.NpcBinding, error)
	Upsert(ctx context.Context, binding forge.NpcBinding) error
	Delete(ctx context.Context, npcID forge.NpcID) error
}

type ObligationKind string

const (
	ObligationRefund ObligationKind = "refund"
	ObligationGrant  ObligationKind = "grant"
)

type Obligation struct {
	SessionID     string
	Kind          ObligationKind
	Owner         forge.PlayerID
	Amount        decimal.Decimal
	Item          forge.ItemStack
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

// Reference is the deduplication key handed to the economy or inventory.
func (o Obligation) Reference() string {
	return string(o.Kind) + ":" + o.SessionID
}

type ObligationRepository interface {
	// Enqueue is idempotent per (SessionID, Kind).
	Enqueue(ctx context.Context, obligation Obligation) error
	Due(ctx context.Context, now time.Time, limit int) ([]Obligation, error)
	MarkSettled(ctx context.Context, sessionID string, kind ObligationKind, settledAt time.Time) error
	Reschedule(ctx context.Context, sessionID string, kind ObligationKind, attempts int, next time.Time, lastErr string) error
	Pending(ctx context.Context) (int, error)
}
