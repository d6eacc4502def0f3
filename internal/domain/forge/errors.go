package forge

import "errors"

var (
	ErrInvalidRecipe  = errors.New("invalid recipe")
	ErrInvalidBinding = errors.New("invalid npc binding")
	ErrInvalidTrigger = errors.New("invalid session trigger")

	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotBound         = errors.New("npc is not bound to a forge station")
	ErrAlreadyActive    = errors.New("owner already has an active forge session")
	ErrOnCooldown       = errors.New("forge station is on cooldown for this owner")
	ErrRecipeNotFound   = errors.New("recipe not found")
	ErrRecipeNotOffered = errors.New("recipe is not offered by this npc")
	ErrOutOfRange       = errors.New("owner is out of interaction range")
	ErrSessionNotFound  = errors.New("forge session not found")
	ErrSessionActive    = errors.New("forge session is not terminal")
)

type OnCooldownError struct {
	NpcID            NpcID
	RemainingSeconds int
}

func (e *OnCooldownError) Error() string {
	return ErrOnCooldown.Error()
}

func (e *OnCooldownError) Unwrap() error {
	return ErrOnCooldown
}
