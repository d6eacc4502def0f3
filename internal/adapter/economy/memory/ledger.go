package memory

import (
	"context"
	"fmt"
	"sync"

	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/shopspring/decimal"
)

type Entry struct {
	Ref    string
	Owner  forge.PlayerID
	Amount decimal.Decimal
}

// Ledger is a process-local economy used in development and tests.
type Ledger struct {
	mu       sync.Mutex
	balances map[forge.PlayerID]decimal.Decimal
	refs     map[string]struct{}
	entries  []Entry
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[forge.PlayerID]decimal.Decimal),
		refs:     make(map[string]struct{}),
	}
}

func (l *Ledger) Seed(owner forge.PlayerID, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] = amount
}

func (l *Ledger) Balance(_ context.Context, owner forge.PlayerID) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner], nil
}

func (l *Ledger) Debit(_ context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error {
	if amount.IsNegative() {
		return fmt.Errorf("debit %s: negative amount %s", owner, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.refs[ref]; seen {
		return nil
	}
	if l.balances[owner].LessThan(amount) {
		return ports.ErrInsufficientFunds
	}
	l.balances[owner] = l.balances[owner].Sub(amount)
	l.record(ref, owner, amount.Neg())
	return nil
}

func (l *Ledger) Credit(_ context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit %s: negative amount %s", owner, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.refs[ref]; seen {
		return nil
	}
	l.balances[owner] = l.balances[owner].Add(amount)
	l.record(ref, owner, amount)
	return nil
}

func (l *Ledger) record(ref string, owner forge.PlayerID, amount decimal.Decimal) {
	if ref != "" {
		l.refs[ref] = struct{}{}
	}
	l.entries = append(l.entries, Entry{Ref: ref, Owner: owner, Amount: amount})
}

// Entries returns every applied movement in order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
