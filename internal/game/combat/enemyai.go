package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mjholt/tavern/internal/game/character"
	"github.com/mjholt/tavern/internal/game/dice"
	"github.com/mjholt/tavern/internal/game/encounter"
)

// runEnemyPhase resolves every living enemy's attack in roster order and
// then closes the round: win conditions are evaluated at the phase
// boundary, and on survival the next player phase opens with a cleared
// acted set and the turn pointer back at the top of the order.
//
// The whole cascade runs inside the caller's locked operation; EnemyPhase
// is never the state when the operation returns.
func (e *Engine) runEnemyPhase(t Table, rs RoundState) []string {
	t.State.set(EnemyPhase{RoundState: rs})
	lines := []string{fmt.Sprintf("— Enemy phase, round %d —", rs.Number)}
	lines = appendFlavor(lines, e.phaseFlavor(string(KindEnemy), rs.Number))

	for _, en := range t.Enc.Enemies {
		if !en.Alive() {
			continue
		}
		// Retarget before every attack: earlier blows this phase may
		// have changed who is worst off, or dropped the last target.
		uid, target := lowestHPTarget(t.Party)
		if target == nil {
			lines = append(lines, "No one is left standing to fight.")
			break
		}
		lines = append(lines, e.resolveEnemyAttack(t, en, uid, target)...)
	}

	if WinSatisfied(t.Enc, rs.Number, true) {
		return append(lines, e.completeEncounter(t)...)
	}

	rs.Number++
	t.Pending.Clear()
	t.State.set(PlayerPhase{RoundState: rs, TurnIndex: 0, Acted: make(map[string]bool)})
	lines = append(lines, fmt.Sprintf("Round %d — it's %s's turn.", rs.Number, e.displayName(t, rs.Order[0])))
	return lines
}

// resolveEnemyAttack rolls one enemy's attack against target and applies
// damage on a hit. A natural 20 hits regardless of armor class and
// doubles the damage dice.
func (e *Engine) resolveEnemyAttack(t Table, en *encounter.Enemy, uid string, target *character.Character) []string {
	atk := e.roller.Roll(dice.Expression{Count: 1, Sides: 20, Modifier: en.ToHitBonus})
	crit := atk.NaturalMax(20)
	hit := crit || atk.Total() >= target.Stats.ArmorClass
	name := e.displayName(t, uid)
	label := en.AttackName
	if label == "" {
		label = "attack"
	}

	if !hit {
		lines := []string{fmt.Sprintf("%s swings its %s at %s: %s vs AC %d — a miss.",
			en.Name, label, name, atk, target.Stats.ArmorClass)}
		return appendFlavor(lines, e.attackFlavor(en.Name, name, false, false))
	}

	dmgExpr, err := dice.Parse(en.Damage)
	if err != nil {
		// A bad stored expression must not stall the phase.
		e.logger.Warn("enemy has an invalid damage expression, using 1d4",
			zap.String("enemy_id", en.ID),
			zap.String("damage", en.Damage),
			zap.Error(err),
		)
		dmgExpr = dice.Expression{Count: 1, Sides: 4}
	}
	if crit {
		dmgExpr = dice.Critical(dmgExpr)
	}
	dmg := e.roller.Roll(dmgExpr)
	total := dmg.Total()
	if total < 0 {
		total = 0
	}
	target.ApplyDamage(total)

	verdict := "a hit!"
	if crit {
		verdict = "**critical hit!**"
	}
	suffix := fmt.Sprintf("%s takes %d damage (HP %d/%d).", name, total, target.Stats.CurrentHP, target.Stats.MaxHP)
	if target.Stats.CurrentHP == 0 {
		suffix = fmt.Sprintf("%s takes %d damage and goes down!", name, total)
	}
	lines := []string{
		fmt.Sprintf("%s swings its %s at %s: %s vs AC %d — %s", en.Name, label, name, atk, target.Stats.ArmorClass, verdict),
		fmt.Sprintf("%s — %s", dmg, suffix),
	}
	return appendFlavor(lines, e.attackFlavor(en.Name, name, true, crit))
}

// lowestHPTarget picks the conscious PC with the lowest current HP among
// those with a usable sheet (armor class above zero). Ties break by
// ascending user id so the choice is deterministic.
func lowestHPTarget(party Party) (string, *character.Character) {
	var bestID string
	var best *character.Character
	for uid, ch := range party {
		if ch == nil || !ch.CanFight() || ch.Stats.CurrentHP <= 0 {
			continue
		}
		if best == nil ||
			ch.Stats.CurrentHP < best.Stats.CurrentHP ||
			(ch.Stats.CurrentHP == best.Stats.CurrentHP && uid < bestID) {
			best, bestID = ch, uid
		}
	}
	return bestID, best
}
