package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
// Invariant after a successful Parse: 1 <= Count <= MaxCritCount,
// MinSides <= Sides <= MaxSides.
type Expression struct {
	Count    int // number of dice
	Sides    int // faces per die
	Modifier int // flat modifier (may be negative)
}

// Canonical returns the normalized string form, e.g. "2d6+3", "d20", "1d8-1".
// A count of 1 is kept explicit only when the input carried it; Canonical
// always emits it for unambiguous audit lines.
func (e Expression) Canonical() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", e.Count, e.Sides)
	if e.Modifier != 0 {
		fmt.Fprintf(&b, "%+d", e.Modifier)
	}
	return b.String()
}

// Parse parses a dice expression string into an Expression.
//
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2". A bare integer or a
// leading signed integer ("+5", "-1", "12") is normalized to a d20 roll
// with that value as the modifier, matching how players submit ability
// and skill modifiers in chat.
//
// Bounds: count in [1, MaxCount] (default 1 when omitted), sides in
// [MinSides, MaxSides].
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns a valid Expression or a descriptive error; no
// caller state is touched on failure.
func Parse(expr string) (Expression, error) {
	raw := expr
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		// Bare modifier shorthand: "+4", "-1", "12" → d20 with modifier.
		mod, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: expression %q is neither a dice expression nor a modifier", raw)
		}
		return Expression{Count: 1, Sides: 20, Modifier: mod}, nil
	}

	// Count (the part before 'd'); defaults to 1 when omitted.
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
	}
	if count < 1 || count > MaxCount {
		return Expression{}, fmt.Errorf("dice: die count in %q must be between 1 and %d", raw, MaxCount)
	}

	// Sides and optional modifier after 'd'. The first '+' or '-' past
	// position 0 starts the modifier.
	rest := s[dIdx+1:]
	modOffset := -1
	for i := 1; i < len(rest); i++ {
		if rest[i] == '+' || rest[i] == '-' {
			modOffset = i
			break
		}
	}

	sidesStr, modStr := rest, ""
	if modOffset >= 0 {
		sidesStr, modStr = rest[:modOffset], rest[modOffset:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < MinSides || sides > MaxSides {
		return Expression{}, fmt.Errorf("dice: die sides in %q must be between %d and %d", raw, MinSides, MaxSides)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{Count: count, Sides: sides, Modifier: modifier}, nil
}

// Critical rewrites a base damage expression for a critical hit: the die
// count is doubled (clamped to MaxCritCount) and the modifier is left
// unchanged. This is a pure expression transform, not a re-roll.
//
// Precondition: e must come from Parse.
// Postcondition: result.Count == min(2*e.Count, MaxCritCount);
// result.Sides == e.Sides; result.Modifier == e.Modifier.
func Critical(e Expression) Expression {
	doubled := e.Count * 2
	if doubled > MaxCritCount {
		doubled = MaxCritCount
	}
	return Expression{Count: doubled, Sides: e.Sides, Modifier: e.Modifier}
}
