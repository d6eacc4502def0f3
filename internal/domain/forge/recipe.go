package forge

import (
	"fmt"
	"strings"
)

func (r Recipe) Validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecipe)
	}
	if r.Cost.IsNegative() {
		return fmt.Errorf("%w: %s has negative cost", ErrInvalidRecipe, r.ID)
	}
	if r.DurationTicks <= 0 {
		return fmt.Errorf("%w: %s needs positive duration_ticks", ErrInvalidRecipe, r.ID)
	}
	if strings.TrimSpace(string(r.Output.Kind)) == "" || r.Output.Quantity <= 0 {
		return fmt.Errorf("%w: %s has no output", ErrInvalidRecipe, r.ID)
	}
	for _, in := range r.Inputs {
		if strings.TrimSpace(string(in.Kind)) == "" || in.Quantity <= 0 {
			return fmt.Errorf("%w: %s has malformed input %q", ErrInvalidRecipe, r.ID, in.Kind)
		}
	}
	return nil
}

// DisplayName falls back to the id when no name is configured.
func (r Recipe) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return string(r.ID)
}

// Clone returns a copy that shares no slices with r.
func (r Recipe) Clone() Recipe {
	out := r
	if r.Inputs != nil {
		out.Inputs = make([]ItemStack, len(r.Inputs))
		copy(out.Inputs, r.Inputs)
	}
	return out
}

func (b NpcBinding) Validate() error {
	if strings.TrimSpace(string(b.NpcID)) == "" {
		return fmt.Errorf("%w: empty npc id", ErrInvalidBinding)
	}
	if strings.TrimSpace(b.RecipeSetID) == "" {
		return fmt.Errorf("%w: %s has no recipe set", ErrInvalidBinding, b.NpcID)
	}
	if b.InteractionRadius < 0 || b.CooldownSeconds < 0 {
		return fmt.Errorf("%w: %s has negative radius or cooldown", ErrInvalidBinding, b.NpcID)
	}
	return nil
}

// InRange treats a non-positive radius as unlimited.
func (b NpcBinding) InRange(distance float64) bool {
	if b.InteractionRadius <= 0 {
		return true
	}
	return distance <= b.InteractionRadius
}
