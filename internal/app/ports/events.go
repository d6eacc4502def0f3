package ports

import (
	"context"
	"time"

	"mythicforge/internal/domain/forge"
)

const SessionEventType = "forge.session"

type SessionEvent struct {
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id"`
	Owner      forge.PlayerID `json:"owner"`
	NpcID      forge.NpcID    `json:"npc"`
	RecipeID   forge.RecipeID `json:"recipe"`
	State      forge.State    `json:"state"`
	Progress   int            `json:"progress"`
	Duration   int            `json:"duration"`
	Reason     forge.Reason   `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func NewSessionEvent(s forge.Session, at time.Time) SessionEvent {
	return SessionEvent{
		Type:       SessionEventType,
		SessionID:  s.ID,
		Owner:      s.Owner,
		NpcID:      s.NpcID,
		RecipeID:   s.Recipe.ID,
		State:      s.State,
		Progress:   s.Progress,
		Duration:   s.Recipe.DurationTicks,
		Reason:     s.Reason,
		OccurredAt: at,
	}
}

// SessionEventPublisher is best effort; callers log and drop failures.
type SessionEventPublisher interface {
	Publish(ctx context.Context, event SessionEvent) error
}
