// Package dice provides the dice-expression evaluator for the Tavern
// combat engine: parsing, bounds validation, cryptographically secure
// rolling, and the critical-damage expression transform.
package dice

import "fmt"

// Expression bounds. Expressions outside these ranges are rejected by Parse.
const (
	// MaxCount is the largest die count accepted by Parse.
	MaxCount = 20
	// MinSides is the smallest die accepted by Parse.
	MinSides = 2
	// MaxSides is the largest die accepted by Parse.
	MaxSides = 1000
	// MaxCritCount caps the doubled die count produced by Critical.
	MaxCritCount = 40
)

// RollResult holds the full audit trail for a single dice roll evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // canonical expression string, e.g. "2d6+3"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
//
// Postcondition: return value == sum(r.Dice) + r.Modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// NaturalMax reports whether any single die landed on the given face value.
// Used for natural-maximum attack rolls (e.g. a 20 on a d20).
func (r RollResult) NaturalMax(sides int) bool {
	for _, d := range r.Dice {
		if d == sides {
			return true
		}
	}
	return false
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use. The Source is the only
// resource shared across channel sessions.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
