package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mythicforge/internal/domain/forge"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	defs Definitions
	err  error
}

func (s *stubSource) Load(context.Context) (Definitions, error) {
	return s.defs, s.err
}

type stubBindingRepo struct {
	mu    sync.Mutex
	items map[forge.NpcID]forge.NpcBinding
	err   error
}

func (r *stubBindingRepo) List(context.Context) ([]forge.NpcBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]forge.NpcBinding, 0, len(r.items))
	for _, b := range r.items {
		out = append(out, b)
	}
	return out, r.err
}

func (r *stubBindingRepo) Upsert(_ context.Context, b forge.NpcBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.items == nil {
		r.items = map[forge.NpcID]forge.NpcBinding{}
	}
	r.items[b.NpcID] = b
	return nil
}

func (r *stubBindingRepo) Delete(_ context.Context, id forge.NpcID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return r.err
}

func sampleDefinitions() Definitions {
	return Definitions{
		Recipes: []forge.Recipe{
			{ID: "iron_sword", Name: "Iron Sword", Cost: decimal.NewFromInt(50), DurationTicks: 3, Output: forge.ItemStack{Kind: "iron_sword", Quantity: 1}},
			{ID: "iron_axe", Name: "Iron Axe", Cost: decimal.NewFromInt(40), DurationTicks: 2, Output: forge.ItemStack{Kind: "iron_axe", Quantity: 1}},
			{ID: "bread", Cost: decimal.Zero, DurationTicks: 1, Output: forge.ItemStack{Kind: "bread", Quantity: 2}},
		},
		RecipeSets: []forge.RecipeSet{
			{ID: "smithing", Recipes: []forge.RecipeID{"iron_sword", "iron_axe"}},
			{ID: "baking", Recipes: []forge.RecipeID{"bread"}},
		},
		Bindings: []forge.NpcBinding{
			{NpcID: "smith", RecipeSetID: "smithing", InteractionRadius: 4, CooldownSeconds: 60},
			{NpcID: "baker", RecipeSetID: "baking"},
		},
	}
}

func TestCatalogChoose(t *testing.T) {
	c := NewCatalog()
	defs := sampleDefinitions()
	require.NoError(t, c.Replace(defs.Recipes, defs.RecipeSets))

	r, err := c.Choose("smithing", "")
	require.NoError(t, err)
	assert.Equal(t, forge.RecipeID("iron_sword"), r.ID)

	r, err = c.Choose("smithing", "iron_axe")
	require.NoError(t, err)
	assert.Equal(t, "Iron Axe", r.DisplayName())

	_, err = c.Choose("smithing", "bread")
	assert.ErrorIs(t, err, forge.ErrRecipeNotOffered)

	_, err = c.Choose("tailoring", "")
	assert.ErrorIs(t, err, forge.ErrRecipeNotFound)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, forge.ErrRecipeNotFound)
}

func TestCatalogReplaceKeepsOldSnapshotOnError(t *testing.T) {
	c := NewCatalog()
	defs := sampleDefinitions()
	require.NoError(t, c.Replace(defs.Recipes, defs.RecipeSets))

	err := c.Replace(defs.Recipes, []forge.RecipeSet{{ID: "broken", Recipes: []forge.RecipeID{"nope"}}})
	require.ErrorIs(t, err, forge.ErrInvalidRecipe)

	_, err = c.Get("iron_sword")
	assert.NoError(t, err)
	assert.Len(t, c.Recipes(), 3)
}

func TestCatalogSnapshotIsolation(t *testing.T) {
	c := NewCatalog()
	defs := sampleDefinitions()
	require.NoError(t, c.Replace(defs.Recipes, defs.RecipeSets))

	held, err := c.Get("iron_sword")
	require.NoError(t, err)

	changed := sampleDefinitions()
	changed.Recipes[0].Cost = decimal.NewFromInt(500)
	require.NoError(t, c.Replace(changed.Recipes, changed.RecipeSets))

	assert.True(t, held.Cost.Equal(decimal.NewFromInt(50)))
	now, _ := c.Get("iron_sword")
	assert.True(t, now.Cost.Equal(decimal.NewFromInt(500)))
}

func TestBindingsBindResolveUnbind(t *testing.T) {
	repo := &stubBindingRepo{}
	b := NewBindings(repo)

	_, err := b.Resolve("smith")
	require.ErrorIs(t, err, forge.ErrNotBound)

	require.NoError(t, b.Bind(context.Background(), forge.NpcBinding{NpcID: "smith", RecipeSetID: "smithing", CooldownSeconds: 30}))
	got, err := b.Resolve("smith")
	require.NoError(t, err)
	assert.Equal(t, 30, got.CooldownSeconds)
	assert.Len(t, repo.items, 1)

	removed, err := b.Unbind(context.Background(), "smith")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = b.Resolve("smith")
	assert.ErrorIs(t, err, forge.ErrNotBound)
	assert.Empty(t, repo.items)

	removed, err = b.Unbind(context.Background(), "smith")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestBindingsBindPersistFailureKeepsSnapshot(t *testing.T) {
	repo := &stubBindingRepo{err: errors.New("db down")}
	b := NewBindings(repo)
	err := b.Bind(context.Background(), forge.NpcBinding{NpcID: "smith", RecipeSetID: "smithing"})
	require.Error(t, err)
	_, err = b.Resolve("smith")
	assert.ErrorIs(t, err, forge.ErrNotBound)
}

func TestArmBindingConsumedOnce(t *testing.T) {
	b := NewBindings(nil)
	require.NoError(t, b.Arm("admin", forge.NpcBinding{RecipeSetID: "smithing", CooldownSeconds: 5}))

	binding, ok := b.TakeArmed("admin", "guard")
	require.True(t, ok)
	assert.Equal(t, forge.NpcID("guard"), binding.NpcID)
	assert.Equal(t, "smithing", binding.RecipeSetID)

	_, ok = b.TakeArmed("admin", "guard")
	assert.False(t, ok)

	require.NoError(t, b.Arm("admin", forge.NpcBinding{RecipeSetID: "smithing"}))
	assert.True(t, b.Disarm("admin"))
	assert.False(t, b.Disarm("admin"))
}

func TestRegistryReloadLayersRuntimeBindings(t *testing.T) {
	src := &stubSource{defs: sampleDefinitions()}
	repo := &stubBindingRepo{items: map[forge.NpcID]forge.NpcBinding{
		"smith": {NpcID: "smith", RecipeSetID: "baking", CooldownSeconds: 1},
		"guard": {NpcID: "guard", RecipeSetID: "smithing"},
	}}
	reg := New(src, repo)
	require.NoError(t, reg.Reload(context.Background()))

	smith, err := reg.Bindings.Resolve("smith")
	require.NoError(t, err)
	assert.Equal(t, "baking", smith.RecipeSetID)
	_, err = reg.Bindings.Resolve("guard")
	assert.NoError(t, err)
	_, err = reg.Bindings.Resolve("baker")
	assert.NoError(t, err)
	assert.Len(t, reg.Bindings.List(), 3)
}

func TestRegistryReloadRejectsUnknownRecipeSet(t *testing.T) {
	defs := sampleDefinitions()
	defs.Bindings = append(defs.Bindings, forge.NpcBinding{NpcID: "tailor", RecipeSetID: "tailoring"})
	reg := New(&stubSource{defs: defs}, nil)

	err := reg.Reload(context.Background())
	require.ErrorIs(t, err, forge.ErrInvalidBinding)
	_, err = reg.Catalog.Get("iron_sword")
	assert.ErrorIs(t, err, forge.ErrRecipeNotFound)
}

func TestRegistryReloadInvalidBindingKeepsPreviousSnapshot(t *testing.T) {
	src := &stubSource{defs: sampleDefinitions()}
	reg := New(src, nil)
	require.NoError(t, reg.Reload(context.Background()))

	next := sampleDefinitions()
	next.Recipes = append(next.Recipes, forge.Recipe{ID: "shield", Cost: decimal.NewFromInt(80), DurationTicks: 4, Output: forge.ItemStack{Kind: "shield", Quantity: 1}})
	next.RecipeSets[0].Recipes = append(next.RecipeSets[0].Recipes, "shield")
	next.Bindings[0].InteractionRadius = -1
	src.defs = next

	err := reg.Reload(context.Background())
	require.ErrorIs(t, err, forge.ErrInvalidBinding)
	_, err = reg.Catalog.Get("shield")
	assert.ErrorIs(t, err, forge.ErrRecipeNotFound)
	smith, err := reg.Bindings.Resolve("smith")
	require.NoError(t, err)
	assert.Equal(t, 4.0, smith.InteractionRadius)
}

func TestRearmDoesNotOverwriteNewerTemplate(t *testing.T) {
	b := NewBindings(nil)
	require.NoError(t, b.Arm("admin", forge.NpcBinding{RecipeSetID: "smithing"}))
	taken, ok := b.TakeArmed("admin", "guard")
	require.True(t, ok)

	b.Rearm("admin", taken)
	again, ok := b.TakeArmed("admin", "smith")
	require.True(t, ok)
	assert.Equal(t, "smithing", again.RecipeSetID)
	assert.Equal(t, forge.NpcID("smith"), again.NpcID)

	require.NoError(t, b.Arm("admin", forge.NpcBinding{RecipeSetID: "baking"}))
	b.Rearm("admin", taken)
	latest, ok := b.TakeArmed("admin", "guard")
	require.True(t, ok)
	assert.Equal(t, "baking", latest.RecipeSetID)
}
