package redisrepo

import (
	"context"
	"strconv"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const cooldownPrefix = "forge:cooldown:"

// CooldownRepo stores one key per (owner, npc) that expires when the
// cooldown elapses, so redis does the pruning.
type CooldownRepo struct {
	client *redis.Client
}

func NewCooldownRepo(client *redis.Client) CooldownRepo {
	return CooldownRepo{client: client}
}

func cooldownKey(owner forge.PlayerID, npcID forge.NpcID) string {
	return cooldownPrefix + string(owner) + ":" + string(npcID)
}

func (r CooldownRepo) NextEligibleAt(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID) (time.Time, error) {
	raw, err := r.client.Get(ctx, cooldownKey(owner, npcID)).Result()
	if err == redis.Nil {
		return time.Time{}, ports.ErrNotFound
	}
	if err != nil {
		return time.Time{}, errors.Wrap(err, "get cooldown")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse cooldown %q", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (r CooldownRepo) Put(ctx context.Context, owner forge.PlayerID, npcID forge.NpcID, nextEligibleAt time.Time) error {
	key := cooldownKey(owner, npcID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, nextEligibleAt.UnixMilli(), 0)
		pipe.PExpireAt(ctx, key, nextEligibleAt)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "put cooldown")
	}
	return nil
}

// PruneExpired is a no-op: expired keys are evicted by redis itself.
func (r CooldownRepo) PruneExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

var _ ports.CooldownRepository = CooldownRepo{}
