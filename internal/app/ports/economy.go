package ports

import (
	"context"

	"mythicforge/internal/domain/forge"

	"github.com/shopspring/decimal"
)

// Economy is the gateway to the external balance ledger. Every operation is
// atomic for a single owner. Debit and Credit carry a reference the ledger
// uses to deduplicate retries: replaying a reference is a successful no-op.
type Economy interface {
	Balance(ctx context.Context, owner forge.PlayerID) (decimal.Decimal, error)
	Debit(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error
	Credit(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error
}

// OutputGranter delivers a completed session's output to the owner.
type OutputGranter interface {
	Grant(ctx context.Context, owner forge.PlayerID, item forge.ItemStack, ref string) error
}
