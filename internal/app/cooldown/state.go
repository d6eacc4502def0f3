package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"
)

// RemainingSeconds rounds up so a station is never reported ready early.
func RemainingSeconds(nextEligibleAt, now time.Time) (int, bool) {
	if nextEligibleAt.IsZero() {
		return 0, false
	}
	remaining := nextEligibleAt.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	remainingSeconds := int((remaining + time.Second - 1) / time.Second)
	if remainingSeconds < 1 {
		remainingSeconds = 1
	}
	return remainingSeconds, true
}

type Policy struct {
	Repo ports.CooldownRepository
}

func NewPolicy(repo ports.CooldownRepository) Policy {
	return Policy{Repo: repo}
}

// Check returns *forge.OnCooldownError while the owner must still wait before
// using npcID again.
func (p Policy) Check(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID, now time.Time) error {
	remaining, ok, err := p.Remaining(ctx, owner, npcID, now)
	if err != nil {
		return err
	}
	if ok {
		return &forge.OnCooldownError{NpcID: npcID, RemainingSeconds: remaining}
	}
	return nil
}

func (p Policy) Remaining(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID, now time.Time) (int, bool, error) {
	if p.Repo == nil {
		return 0, false, nil
	}
	next, err := p.Repo.NextEligibleAt(ctx, owner, npcID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read cooldown %s/%s: %w", owner, npcID, err)
	}
	remaining, ok := RemainingSeconds(next, now)
	return remaining, ok, nil
}

// Record writes the cooldown owed by a completed session. Sessions ending in
// any other state, and stations without a cooldown, record nothing.
func (p Policy) Record(ctx context.Context, s forge.Session) error {
	if p.Repo == nil || s.State != forge.StateCompleted || s.CooldownSeconds <= 0 || s.EndedAt == nil {
		return nil
	}
	next := s.EndedAt.Add(time.Duration(s.CooldownSeconds) * time.Second)
	if err := p.Repo.Put(ctx, s.Owner, s.NpcID, next); err != nil {
		return fmt.Errorf("write cooldown %s/%s: %w", s.Owner, s.NpcID, err)
	}
	return nil
}

func (p Policy) Prune(ctx context.Context, now time.Time) (int, error) {
	if p.Repo == nil {
		return 0, nil
	}
	return p.Repo.PruneExpired(ctx, now)
}
