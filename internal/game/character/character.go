// Package character defines the player-character domain model used by the
// combat engine and the campaign roster.
package character

// Attack is one configured weapon or maneuver on a character sheet.
type Attack struct {
	Name   string `json:"name"`
	ToHit  int    `json:"toHit"`  // flat attack-roll bonus
	Damage string `json:"damage"` // dice expression, e.g. "1d6+2"
}

// Stats is the numeric combat sheet. A Character without Stats is a
// narrative-only participant and cannot act in combat.
type Stats struct {
	ArmorClass      int            `json:"armorClass"`
	MaxHP           int            `json:"maxHp"`
	CurrentHP       int            `json:"currentHp"`
	InitiativeBonus int            `json:"initiativeBonus"`
	Skills          map[string]int `json:"skills,omitempty"` // skill label → bonus
	Saves           map[string]int `json:"saves,omitempty"`  // save label → bonus
	Attacks         []Attack       `json:"attacks,omitempty"`
}

// Character represents one player character inside a campaign.
type Character struct {
	Name string `json:"name"`
	// Stats is nil for characters created through narration only.
	Stats *Stats `json:"stats,omitempty"`
}

// CanFight reports whether this character has a usable combat sheet.
//
// Postcondition: Returns true iff Stats is non-nil and ArmorClass > 0.
func (c *Character) CanFight() bool {
	return c != nil && c.Stats != nil && c.Stats.ArmorClass > 0
}

// ApplyDamage reduces CurrentHP by amount, flooring at zero.
//
// Precondition: amount >= 0; c.Stats must be non-nil.
// Postcondition: Stats.CurrentHP >= 0.
func (c *Character) ApplyDamage(amount int) {
	c.Stats.CurrentHP -= amount
	if c.Stats.CurrentHP < 0 {
		c.Stats.CurrentHP = 0
	}
}

// FirstAttack returns the first configured attack, used by auto-resolve.
//
// Postcondition: Returns (attack, true) when at least one attack is
// configured, or (zero, false) otherwise.
func (c *Character) FirstAttack() (Attack, bool) {
	if c.Stats == nil || len(c.Stats.Attacks) == 0 {
		return Attack{}, false
	}
	return c.Stats.Attacks[0], true
}
