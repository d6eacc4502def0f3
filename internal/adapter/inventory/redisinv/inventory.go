package redisinv

import (
	"context"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	bagPrefix = "forge:inventory:"
	refPrefix = "forge:inventory:ref:"
)

var grantScript = redis.NewScript(`
if redis.call('SET', KEYS[2], '1', 'NX', 'EX', ARGV[3]) then
	redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// Inventory is the redis-backed output granter. Each owner's items live in
// one hash keyed by item kind.
type Inventory struct {
	client *redis.Client
	refTTL time.Duration
}

func New(client *redis.Client) *Inventory {
	return &Inventory{client: client, refTTL: 7 * 24 * time.Hour}
}

func (i *Inventory) Grant(ctx context.Context, owner forge.PlayerID, item forge.ItemStack, ref string) error {
	if item.Kind == "" || item.Quantity <= 0 {
		return errors.Errorf("grant %s: invalid item %+v", owner, item)
	}
	keys := []string{bagPrefix + string(owner), refPrefix + ref}
	if err := grantScript.Run(ctx, i.client, keys, string(item.Kind), item.Quantity, int64(i.refTTL/time.Second)).Err(); err != nil {
		return errors.Wrapf(err, "grant %s to %s", item.Kind, owner)
	}
	return nil
}

func (i *Inventory) Count(ctx context.Context, owner forge.PlayerID, kind forge.ItemKind) (int, error) {
	n, err := i.client.HGet(ctx, bagPrefix+string(owner), string(kind)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "count %s for %s", kind, owner)
	}
	return n, nil
}

var _ ports.OutputGranter = (*Inventory)(nil)
