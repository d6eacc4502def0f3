// Package redisledger keeps player balances in redis as integer minor units.
// Debit and credit run as Lua scripts so the balance check, the movement and
// the reference marker are applied atomically.
package redisledger

import (
	"context"
	"strconv"
	"time"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	balancePrefix = "forge:balance:"
	refPrefix     = "forge:ledger:ref:"

	DefaultRefTTL = 7 * 24 * time.Hour
)

const (
	resultInsufficient = 0
	resultApplied      = 1
	resultDuplicate    = 2
)

var debitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 2
end
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
	return 0
end
redis.call('DECRBY', KEYS[1], amount)
redis.call('SET', KEYS[2], '1', 'EX', ARGV[2])
return 1
`)

var creditScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 2
end
redis.call('INCRBY', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], '1', 'EX', ARGV[2])
return 1
`)

type Ledger struct {
	client *redis.Client
	scale  int32
	refTTL time.Duration
}

func New(client *redis.Client, scale int32) *Ledger {
	return &Ledger{client: client, scale: scale, refTTL: DefaultRefTTL}
}

// WithRefTTL overrides how long applied references are remembered.
func (l *Ledger) WithRefTTL(ttl time.Duration) *Ledger {
	l.refTTL = ttl
	return l
}

func balanceKey(owner forge.PlayerID) string { return balancePrefix + string(owner) }
func refKey(ref string) string               { return refPrefix + ref }

func (l *Ledger) toMinor(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(l.scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, errors.Errorf("amount %s has more than %d decimal places", amount, l.scale)
	}
	if amount.IsNegative() {
		return 0, errors.Errorf("negative amount %s", amount)
	}
	return shifted.IntPart(), nil
}

func (l *Ledger) fromMinor(units int64) decimal.Decimal {
	return decimal.New(units, -l.scale)
}

func (l *Ledger) ttlSeconds() string {
	secs := int64(l.refTTL / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func (l *Ledger) Balance(ctx context.Context, owner forge.PlayerID) (decimal.Decimal, error) {
	units, err := l.client.Get(ctx, balanceKey(owner)).Int64()
	if err == redis.Nil {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, errors.Wrapf(ports.ErrLedgerUnavailable, "balance %s: %v", owner, err)
	}
	return l.fromMinor(units), nil
}

func (l *Ledger) Debit(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error {
	units, err := l.toMinor(amount)
	if err != nil {
		return errors.Wrapf(err, "debit %s", owner)
	}
	res, err := debitScript.Run(ctx, l.client, []string{balanceKey(owner), refKey(ref)}, units, l.ttlSeconds()).Int()
	if err != nil {
		return errors.Wrapf(ports.ErrLedgerUnavailable, "debit %s: %v", owner, err)
	}
	if res == resultInsufficient {
		return ports.ErrInsufficientFunds
	}
	return nil
}

func (l *Ledger) Credit(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error {
	units, err := l.toMinor(amount)
	if err != nil {
		return errors.Wrapf(err, "credit %s", owner)
	}
	if _, err := creditScript.Run(ctx, l.client, []string{balanceKey(owner), refKey(ref)}, units, l.ttlSeconds()).Int(); err != nil {
		return errors.Wrapf(ports.ErrLedgerUnavailable, "credit %s: %v", owner, err)
	}
	return nil
}

// Seed overwrites an owner's balance. Used for development fixtures.
func (l *Ledger) Seed(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal) error {
	units, err := l.toMinor(amount)
	if err != nil {
		return errors.Wrapf(err, "seed %s", owner)
	}
	if err := l.client.Set(ctx, balanceKey(owner), units, 0).Err(); err != nil {
		return errors.Wrapf(err, "seed %s", owner)
	}
	return nil
}

var _ ports.Economy = (*Ledger)(nil)
