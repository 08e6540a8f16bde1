package combat

import "github.com/mjholt/tavern/internal/game/encounter"

// WinSatisfied reports whether the encounter's win condition holds.
//
// defeat_all_enemies is true iff every enemy's current HP is 0; it may
// fire after any damage application. survive_rounds is evaluated only at
// the close of an enemy phase (enemyPhaseEnded=true), never mid-round,
// and is true iff round >= TargetRounds.
//
// This is a pure function over the encounter snapshot; callers mark the
// encounter completed and reset combat state when it returns true.
func WinSatisfied(enc *encounter.Encounter, round int, enemyPhaseEnded bool) bool {
	switch enc.WinCondition.Type {
	case encounter.WinDefeatAllEnemies:
		return enc.AllDefeated()
	case encounter.WinSurviveRounds:
		return enemyPhaseEnded && round >= enc.WinCondition.TargetRounds
	default:
		return false
	}
}
