package engine

import "mythicforge/internal/domain/forge"

type InteractRequest struct {
	Owner    forge.PlayerID
	NpcID    forge.NpcID
	RecipeID forge.RecipeID
	// Distance is measured by the game server; nil skips the range check.
	Distance *float64
}

type InteractResult struct {
	Session *forge.Session    `json:"session,omitempty"`
	Bound   *forge.NpcBinding `json:"bound,omitempty"`
}

// View is the pull-only summary shown to players.
type View struct {
	State            string  `json:"state"`
	ProgressFraction float64 `json:"progress_fraction"`
	RecipeName       string  `json:"recipe_name"`
	RemainingTicks   int     `json:"remaining_ticks"`
}

const StateNone = "none"

type TickReport struct {
	Advanced       int `json:"advanced"`
	Completed      int `json:"completed"`
	Expired        int `json:"expired"`
	Invalidated    int `json:"invalidated"`
	Settled        int `json:"settled"`
	SettleFailures int `json:"settle_failures"`
	Removed        int `json:"removed"`
	Pruned         int `json:"pruned"`
}
