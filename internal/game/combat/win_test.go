package combat

import (
	"testing"

	"github.com/mjholt/tavern/internal/game/encounter"
)

func TestWinSatisfied_DefeatAllEnemies(t *testing.T) {
	enc := &encounter.Encounter{
		WinCondition: encounter.WinCondition{Type: encounter.WinDefeatAllEnemies},
		Enemies: []*encounter.Enemy{
			{ID: "a", CurrentHP: 0},
			{ID: "b", CurrentHP: 3},
		},
	}
	if WinSatisfied(enc, 1, false) {
		t.Error("satisfied with a living enemy")
	}
	enc.Enemies[1].CurrentHP = 0
	// Fires at any point, not just phase boundaries.
	if !WinSatisfied(enc, 1, false) {
		t.Error("not satisfied with all enemies down")
	}
}

func TestWinSatisfied_SurviveRounds(t *testing.T) {
	enc := &encounter.Encounter{
		WinCondition: encounter.WinCondition{Type: encounter.WinSurviveRounds, TargetRounds: 3},
		Enemies:      []*encounter.Enemy{{ID: "a", CurrentHP: 5}},
	}
	if WinSatisfied(enc, 3, false) {
		t.Error("survival must never fire mid-round")
	}
	if WinSatisfied(enc, 2, true) {
		t.Error("satisfied before the target round")
	}
	if !WinSatisfied(enc, 3, true) {
		t.Error("not satisfied at the target round's enemy phase close")
	}
	if !WinSatisfied(enc, 4, true) {
		t.Error("not satisfied past the target round")
	}
}
