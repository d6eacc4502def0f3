package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	econmem "mythicforge/internal/adapter/economy/memory"
	eventmem "mythicforge/internal/adapter/events/memory"
	invmem "mythicforge/internal/adapter/inventory/memory"
	"mythicforge/internal/adapter/metrics/inmemory"
	repomem "mythicforge/internal/adapter/repo/memory"
	"mythicforge/internal/app/cooldown"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/app/registry"
	"mythicforge/internal/app/session"
	"mythicforge/internal/domain/forge"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type staticSource struct {
	defs registry.Definitions
}

func (s staticSource) Load(context.Context) (registry.Definitions, error) {
	return s.defs, nil
}

// flakyEconomy fails the next failCredits credits and every debit while
// failDebits is set.
type flakyEconomy struct {
	ports.Economy
	mu          sync.Mutex
	failCredits int
	failDebits  bool
	credits     int
}

func (f *flakyEconomy) Debit(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error {
	f.mu.Lock()
	fail := f.failDebits
	f.mu.Unlock()
	if fail {
		return ports.ErrLedgerUnavailable
	}
	return f.Economy.Debit(ctx, owner, amount, ref)
}

func (f *flakyEconomy) Credit(ctx context.Context, owner forge.PlayerID, amount decimal.Decimal, ref string) error {
	f.mu.Lock()
	f.credits++
	if f.failCredits > 0 {
		f.failCredits--
		f.mu.Unlock()
		return ports.ErrLedgerUnavailable
	}
	f.mu.Unlock()
	return f.Economy.Credit(ctx, owner, amount, ref)
}

type harness struct {
	eng       *Engine
	clock     *fakeClock
	ledger    *econmem.Ledger
	economy   *flakyEconomy
	inventory *invmem.Inventory
	events    *eventmem.Recorder
	metrics   *inmemory.Recorder
	repoStore *repomem.Store
}

func testDefinitions() registry.Definitions {
	return registry.Definitions{
		Recipes: []forge.Recipe{
			{ID: "iron_sword", Name: "Iron Sword", Cost: decimal.NewFromInt(50), DurationTicks: 3, Output: forge.ItemStack{Kind: "iron_sword", Quantity: 1}},
			{ID: "iron_axe", Name: "Iron Axe", Cost: decimal.NewFromInt(40), DurationTicks: 5, Output: forge.ItemStack{Kind: "iron_axe", Quantity: 1}},
			{ID: "bread", Name: "Bread", Cost: decimal.Zero, DurationTicks: 1, Output: forge.ItemStack{Kind: "bread", Quantity: 2}},
		},
		RecipeSets: []forge.RecipeSet{
			{ID: "smithing", Recipes: []forge.RecipeID{"iron_sword", "iron_axe"}},
			{ID: "baking", Recipes: []forge.RecipeID{"bread"}},
		},
		Bindings: []forge.NpcBinding{
			{NpcID: "smith", RecipeSetID: "smithing", InteractionRadius: 5, CooldownSeconds: 60},
			{NpcID: "baker", RecipeSetID: "baking"},
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := newFakeClock()
	repoStore := repomem.NewStore()
	ledger := econmem.NewLedger()
	economy := &flakyEconomy{Economy: ledger}
	reg := registry.New(staticSource{defs: testDefinitions()}, repomem.NewBindingRepo(repoStore))
	require.NoError(t, reg.Reload(context.Background()))

	h := &harness{
		clock:     clock,
		ledger:    ledger,
		economy:   economy,
		inventory: invmem.NewInventory(),
		events:    eventmem.NewRecorder(),
		metrics:   inmemory.NewRecorder(),
		repoStore: repoStore,
	}
	settings := DefaultSettings()
	settings.RetryBase = time.Second
	settings.RetryMax = time.Second
	h.eng = &Engine{
		Store:       session.NewStore(repomem.NewSessionRepo(repoStore)),
		Registry:    reg,
		Economy:     economy,
		Inventory:   h.inventory,
		Cooldowns:   cooldown.NewPolicy(repomem.NewCooldownRepo(repoStore)),
		Obligations: repomem.NewObligationRepo(repoStore),
		TxManager:   repomem.NewTxManager(repoStore),
		Events:      h.events,
		Metrics:     h.metrics,
		Settings:    settings,
		Now:         clock.Now,
	}
	return h
}

func (h *harness) balance(t *testing.T, owner forge.PlayerID) decimal.Decimal {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), owner)
	require.NoError(t, err)
	return b
}

// tick advances the clock by one interval and runs the engine.
func (h *harness) tick(t *testing.T) TickReport {
	t.Helper()
	h.clock.Advance(time.Second)
	report, err := h.eng.Advance(context.Background())
	require.NoError(t, err)
	return report
}

func interact(owner forge.PlayerID, npc forge.NpcID) InteractRequest {
	return InteractRequest{Owner: owner, NpcID: npc}
}
