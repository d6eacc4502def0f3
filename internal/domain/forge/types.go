package forge

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlayerID string

type NpcID string

type RecipeID string

type ItemKind string

type ItemStack struct {
	Kind     ItemKind `json:"kind" yaml:"kind"`
	Quantity int      `json:"quantity" yaml:"quantity"`
}

type Recipe struct {
	ID            RecipeID        `json:"id"`
	Name          string          `json:"name"`
	Inputs        []ItemStack     `json:"inputs"`
	Cost          decimal.Decimal `json:"cost"`
	DurationTicks int             `json:"duration_ticks"`
	Output        ItemStack       `json:"output"`
}

type RecipeSet struct {
	ID      string     `json:"id"`
	Recipes []RecipeID `json:"recipes"`
}

// NpcBinding is replaced wholesale on reconfiguration, never mutated.
type NpcBinding struct {
	NpcID             NpcID   `json:"npc_id"`
	RecipeSetID       string  `json:"recipe_set_id"`
	InteractionRadius float64 `json:"interaction_radius"`
	CooldownSeconds   int     `json:"cooldown_seconds"`
}

type State string

const (
	StateReserved   State = "reserved"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

func (s State) Valid() bool {
	switch s {
	case StateReserved, StateInProgress, StateCompleted, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

type Reason string

const (
	ReasonNone               Reason = ""
	ReasonCompleted          Reason = "completed"
	ReasonOwnerCancelled     Reason = "owner_cancelled"
	ReasonInteractionInvalid Reason = "interaction_invalid"
	ReasonBindingInvalidated Reason = "binding_invalidated"
	ReasonReservationExpired Reason = "reservation_expired"
)

type Session struct {
	ID              string          `json:"session_id"`
	Owner           PlayerID        `json:"owner_id"`
	NpcID           NpcID           `json:"npc_id"`
	Recipe          Recipe          `json:"recipe"`
	CooldownSeconds int             `json:"cooldown_seconds"`
	State           State           `json:"state"`
	Reason          Reason          `json:"reason,omitempty"`
	FundsHeld       decimal.Decimal `json:"funds_held"`
	Progress        int             `json:"progress"`
	RefundPending   bool            `json:"refund_pending"`
	Refunded        bool            `json:"refunded"`
	GrantPending    bool            `json:"grant_pending"`
	OutputGranted   bool            `json:"output_granted"`
	CreatedAt       time.Time       `json:"created_at"`
	LastTickAt      time.Time       `json:"last_tick_at"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	Version         int64           `json:"version"`
}

// Settled reports whether every funds and output obligation of a terminal
// session has been discharged.
func (s Session) Settled() bool {
	return s.State.Terminal() && !s.RefundPending && !s.GrantPending
}

// ProgressFraction is in [0, 1].
func (s Session) ProgressFraction() float64 {
	if s.State == StateCompleted {
		return 1
	}
	if s.Recipe.DurationTicks <= 0 {
		return 0
	}
	f := float64(s.Progress) / float64(s.Recipe.DurationTicks)
	if f > 1 {
		return 1
	}
	return f
}

func (s Session) RemainingTicks() int {
	if s.State.Terminal() {
		return 0
	}
	n := s.Recipe.DurationTicks - s.Progress
	if n < 0 {
		return 0
	}
	return n
}
