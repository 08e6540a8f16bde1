// Package encounter defines the combat encounter entities: the enemy
// roster, win conditions, and the range normalization applied before
// every persistence write.
package encounter

import (
	"strings"

	"github.com/google/uuid"
)

// Status is the encounter lifecycle state.
type Status string

const (
	StatusPrepared  Status = "prepared"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// WinType identifies the rule that ends an encounter as a win.
type WinType string

const (
	// WinDefeatAllEnemies is satisfied when every enemy is at 0 HP.
	WinDefeatAllEnemies WinType = "defeat_all_enemies"
	// WinSurviveRounds is satisfied at the close of an enemy phase once
	// the round number reaches TargetRounds.
	WinSurviveRounds WinType = "survive_rounds"
)

// Enemy stat bounds enforced by Normalize.
const (
	MinArmorClass = 8
	MaxArmorClass = 22
	MinMaxHP      = 1
	MaxMaxHP      = 250
	MinInitBonus  = -2
	MaxInitBonus  = 8
	MinToHitBonus = -2
	MaxToHitBonus = 12
	MinRounds     = 1
	MaxRounds     = 20
)

// WinCondition is the rule that ends an encounter as a win.
type WinCondition struct {
	Type WinType `json:"type"`
	// TargetRounds applies only to WinSurviveRounds, in [MinRounds, MaxRounds].
	TargetRounds int `json:"targetRounds,omitempty"`
}

// Enemy is one entry in an encounter's ordered enemy roster.
type Enemy struct {
	ID              string `json:"enemyId"`
	Name            string `json:"name"`
	ArmorClass      int    `json:"armorClass"`
	MaxHP           int    `json:"maxHp"`
	CurrentHP       int    `json:"currentHp"`
	InitiativeBonus int    `json:"initiativeBonus"`
	ToHitBonus      int    `json:"toHitBonus"`
	Damage          string `json:"damage"`     // dice expression
	AttackName      string `json:"attackName"` // e.g. "rusty blade"
}

// Alive reports whether the enemy can still act.
func (e *Enemy) Alive() bool { return e.CurrentHP > 0 }

// ApplyDamage reduces CurrentHP by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: CurrentHP >= 0.
func (e *Enemy) ApplyDamage(amount int) {
	e.CurrentHP -= amount
	if e.CurrentHP < 0 {
		e.CurrentHP = 0
	}
}

// Encounter is a discrete combat scenario with a fixed enemy roster and
// a win condition. Encounters are created by the generator, mutated
// during combat, and marked completed when a win condition fires or the
// encounter is manually ended.
type Encounter struct {
	ID           string       `json:"encounterId"`
	CampaignName string       `json:"campaignName"`
	Name         string       `json:"name"`
	Status       Status       `json:"status"`
	WinCondition WinCondition `json:"winCondition"`
	Enemies      []*Enemy     `json:"enemies"`
}

// LivingEnemies returns the enemies with CurrentHP > 0, in roster order.
func (e *Encounter) LivingEnemies() []*Enemy {
	var alive []*Enemy
	for _, en := range e.Enemies {
		if en.Alive() {
			alive = append(alive, en)
		}
	}
	return alive
}

// AllDefeated reports whether every enemy is at 0 HP.
//
// Postcondition: Returns true for an empty roster (vacuously), so callers
// must never create an encounter with zero enemies.
func (e *Encounter) AllDefeated() bool {
	for _, en := range e.Enemies {
		if en.Alive() {
			return false
		}
	}
	return true
}

// FindLiving resolves a target reference against the living enemies.
// Resolution order: exact id match, then exact name match, then
// case-insensitive substring match on id or name.
//
// Postcondition: Returns every living enemy matching ref; an empty slice
// means not found, more than one entry means the reference is ambiguous.
func (e *Encounter) FindLiving(ref string) []*Enemy {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)

	for _, en := range e.LivingEnemies() {
		if en.ID == ref {
			return []*Enemy{en}
		}
	}
	var exact []*Enemy
	for _, en := range e.LivingEnemies() {
		if strings.EqualFold(en.Name, ref) {
			exact = append(exact, en)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	var partial []*Enemy
	for _, en := range e.LivingEnemies() {
		if strings.Contains(strings.ToLower(en.ID), lower) || strings.Contains(strings.ToLower(en.Name), lower) {
			partial = append(partial, en)
		}
	}
	return partial
}

// Normalize clamps all enemy stats into their legal ranges, defaults
// missing ids, and repairs the win condition. Called before every
// persistence write so stored documents always round-trip clean.
//
// Postcondition: every enemy satisfies the package range constants;
// CurrentHP in [0, MaxHP]; e.ID and all enemy ids are non-empty.
func (e *Encounter) Normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusPrepared
	}
	if e.WinCondition.Type == "" {
		e.WinCondition.Type = WinDefeatAllEnemies
	}
	if e.WinCondition.Type == WinSurviveRounds {
		e.WinCondition.TargetRounds = clamp(e.WinCondition.TargetRounds, MinRounds, MaxRounds)
	} else {
		e.WinCondition.TargetRounds = 0
	}
	for _, en := range e.Enemies {
		if en.ID == "" {
			en.ID = uuid.NewString()
		}
		en.ArmorClass = clamp(en.ArmorClass, MinArmorClass, MaxArmorClass)
		en.MaxHP = clamp(en.MaxHP, MinMaxHP, MaxMaxHP)
		en.CurrentHP = clamp(en.CurrentHP, 0, en.MaxHP)
		en.InitiativeBonus = clamp(en.InitiativeBonus, MinInitBonus, MaxInitBonus)
		en.ToHitBonus = clamp(en.ToHitBonus, MinToHitBonus, MaxToHitBonus)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
