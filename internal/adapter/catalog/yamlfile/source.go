package yamlfile

import (
	"context"
	"os"
	"sort"
	"strings"

	"mythicforge/internal/app/registry"
	"mythicforge/internal/domain/forge"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileDoc struct {
	Recipes    []recipeDoc         `yaml:"recipes"`
	RecipeSets map[string][]string `yaml:"recipe_sets"`
	Bindings   []bindingDoc        `yaml:"bindings"`
}

type recipeDoc struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Cost          string            `yaml:"cost"`
	DurationTicks int               `yaml:"duration_ticks"`
	Inputs        []forge.ItemStack `yaml:"inputs"`
	Output        forge.ItemStack   `yaml:"output"`
}

type bindingDoc struct {
	NpcID             string  `yaml:"npc_id"`
	RecipeSet         string  `yaml:"recipe_set"`
	InteractionRadius float64 `yaml:"interaction_radius"`
	CooldownSeconds   int     `yaml:"cooldown_seconds"`
}

// Source reads recipes, recipe sets and npc bindings from a forge.yaml file.
type Source struct {
	Path string
}

func New(path string) Source {
	return Source{Path: path}
}

func (s Source) Load(_ context.Context) (registry.Definitions, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return registry.Definitions{}, errors.Wrapf(err, "read %s", s.Path)
	}
	return Parse(raw)
}

func Parse(raw []byte) (registry.Definitions, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return registry.Definitions{}, errors.Wrap(err, "decode forge definitions")
	}

	defs := registry.Definitions{
		Recipes:    make([]forge.Recipe, 0, len(doc.Recipes)),
		RecipeSets: make([]forge.RecipeSet, 0, len(doc.RecipeSets)),
		Bindings:   make([]forge.NpcBinding, 0, len(doc.Bindings)),
	}
	for _, r := range doc.Recipes {
		cost := decimal.Zero
		if strings.TrimSpace(r.Cost) != "" {
			c, err := decimal.NewFromString(strings.TrimSpace(r.Cost))
			if err != nil {
				return registry.Definitions{}, errors.Wrapf(err, "recipe %s: invalid cost %q", r.ID, r.Cost)
			}
			cost = c
		}
		defs.Recipes = append(defs.Recipes, forge.Recipe{
			ID:            forge.RecipeID(r.ID),
			Name:          r.Name,
			Cost:          cost,
			DurationTicks: r.DurationTicks,
			Inputs:        r.Inputs,
			Output:        r.Output,
		})
	}

	setIDs := make([]string, 0, len(doc.RecipeSets))
	for id := range doc.RecipeSets {
		setIDs = append(setIDs, id)
	}
	sort.Strings(setIDs)
	for _, id := range setIDs {
		recipes := make([]forge.RecipeID, 0, len(doc.RecipeSets[id]))
		for _, r := range doc.RecipeSets[id] {
			recipes = append(recipes, forge.RecipeID(r))
		}
		defs.RecipeSets = append(defs.RecipeSets, forge.RecipeSet{ID: id, Recipes: recipes})
	}

	for _, b := range doc.Bindings {
		defs.Bindings = append(defs.Bindings, forge.NpcBinding{
			NpcID:             forge.NpcID(b.NpcID),
			RecipeSetID:       b.RecipeSet,
			InteractionRadius: b.InteractionRadius,
			CooldownSeconds:   b.CooldownSeconds,
		})
	}
	return defs, nil
}
