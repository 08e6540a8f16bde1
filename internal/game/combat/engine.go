package combat

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mjholt/tavern/internal/game/character"
	"github.com/mjholt/tavern/internal/game/dice"
	"github.com/mjholt/tavern/internal/game/encounter"
)

// Party is the engine's view of the player roster: chat user id → PC.
type Party map[string]*character.Character

// Table bundles the mutable objects a single combat operation works on.
// All of them belong to one Session and are only touched while that
// session's channel lock is held.
type Table struct {
	State   *State
	Enc     *encounter.Encounter
	Party   Party
	Pending PendingTracker
}

// FlavorHooks decorates engine output with campaign color. Hooks return
// "" to stay silent and must never error; they cannot affect state.
type FlavorHooks interface {
	OnAttack(attacker, target string, hit, critical bool) string
	OnPhase(phase string, round int) string
}

// Engine adjudicates combat operations. It holds no per-channel state;
// everything mutable arrives through a Table.
//
// Invariant: every operation validates fully before mutating anything,
// so a returned error implies the Table is byte-for-byte unchanged.
type Engine struct {
	roller *dice.Roller
	logger *zap.Logger
	flavor FlavorHooks
	// Clock is the time source for pending-hit expiry. Tests override it.
	Clock func() time.Time
}

// NewEngine creates an Engine rolling with roller and logging to logger.
//
// Precondition: roller and logger must be non-nil.
func NewEngine(roller *dice.Roller, logger *zap.Logger) *Engine {
	return &Engine{roller: roller, logger: logger, Clock: time.Now}
}

// SetFlavor installs optional flavor hooks. A nil value disables them.
func (e *Engine) SetFlavor(f FlavorHooks) { e.flavor = f }

// attackFlavor returns the flavor line for an attack outcome, or "".
func (e *Engine) attackFlavor(attacker, target string, hit, crit bool) string {
	if e.flavor == nil {
		return ""
	}
	return e.flavor.OnAttack(attacker, target, hit, crit)
}

// phaseFlavor returns the flavor line for a phase opening, or "".
func (e *Engine) phaseFlavor(phase string, round int) string {
	if e.flavor == nil {
		return ""
	}
	return e.flavor.OnPhase(phase, round)
}

// appendFlavor appends line to lines when non-empty.
func appendFlavor(lines []string, line string) []string {
	if line == "" {
		return lines
	}
	return append(lines, "_"+line+"_")
}

// StartEncounter activates enc and transitions None → Initiative. Enemy
// initiative totals are rolled immediately for every living enemy; PC
// totals arrive asynchronously via SubmitInitiative.
//
// Postcondition: on success the state is Initiative, enc.Status is
// active, and the returned lines prompt eligible PCs to roll.
func (e *Engine) StartEncounter(t Table) ([]string, error) {
	if t.State.Kind() != KindNone {
		return nil, ErrEncounterInProgress
	}
	if len(t.Enc.Enemies) == 0 {
		return nil, ErrNoEnemies
	}
	eligible := eligiblePCs(t.Party)
	if len(eligible) == 0 {
		return nil, ErrNotEligible
	}

	enemyInits := make(map[string]int, len(t.Enc.Enemies))
	lines := []string{fmt.Sprintf("⚔ Encounter **%s** begins!", t.Enc.Name)}
	for _, en := range t.Enc.Enemies {
		if !en.Alive() {
			continue
		}
		r := e.roller.Roll(dice.Expression{Count: 1, Sides: 20, Modifier: en.InitiativeBonus})
		enemyInits[en.ID] = r.Total()
		lines = append(lines, fmt.Sprintf("%s rolls initiative: %s", en.Name, r))
	}

	t.Enc.Status = encounter.StatusActive
	t.State.set(Initiative{
		EncounterID: t.Enc.ID,
		Eligible:    eligible,
		PCInits:     make(map[string]int),
		EnemyInits:  enemyInits,
	})

	lines = append(lines, fmt.Sprintf("Waiting on initiative from %d player(s) — `!initiative [bonus]` or `!pass`.", len(eligible)))
	e.logger.Info("encounter started",
		zap.String("encounter_id", t.Enc.ID),
		zap.Int("enemies", len(enemyInits)),
		zap.Int("eligible_pcs", len(eligible)),
	)
	return lines, nil
}

// SubmitInitiative records userID's initiative total. An empty expr rolls
// d20 plus the PC's initiative bonus; an explicit expr (including a bare
// "+3") is evaluated as given. Once every eligible PC has a total the
// first round begins — possibly cascading through an enemy phase when
// the enemies win initiative.
func (e *Engine) SubmitInitiative(t Table, userID, expr string) ([]string, error) {
	init, ok := t.State.Current().(Initiative)
	if !ok {
		if t.State.Kind() == KindNone {
			return nil, ErrNoActiveEncounter
		}
		return nil, ErrOutOfTurnOrPhase
	}
	if !contains(init.Eligible, userID) {
		return nil, ErrNotEligible
	}
	if _, done := init.PCInits[userID]; done {
		return nil, ErrInitiativeAlreadySet
	}

	if expr == "" {
		bonus := 0
		if ch := t.Party[userID]; ch != nil && ch.Stats != nil {
			bonus = ch.Stats.InitiativeBonus
		}
		expr = fmt.Sprintf("d20%+d", bonus)
	}
	parsed, err := dice.Parse(expr)
	if err != nil {
		return nil, err
	}
	r := e.roller.Roll(parsed)
	init.PCInits[userID] = r.Total()
	t.State.set(init)

	lines := []string{fmt.Sprintf("%s rolls initiative: %s", e.displayName(t, userID), r)}
	if init.Complete() {
		lines = append(lines, e.beginRounds(t, init)...)
	}
	return lines, nil
}

// Pass is the phase-sensitive skip. During Initiative it records an
// initiative total of 0; during the player phase it consumes the actor's
// turn with no effect.
func (e *Engine) Pass(t Table, userID string) ([]string, error) {
	switch p := t.State.Current().(type) {
	case Initiative:
		if !contains(p.Eligible, userID) {
			return nil, ErrNotEligible
		}
		if _, done := p.PCInits[userID]; done {
			return nil, ErrInitiativeAlreadySet
		}
		p.PCInits[userID] = 0
		t.State.set(p)
		lines := []string{fmt.Sprintf("%s waives initiative (0).", e.displayName(t, userID))}
		if p.Complete() {
			lines = append(lines, e.beginRounds(t, p)...)
		}
		return lines, nil
	case PlayerPhase:
		if _, err := e.playerTurn(t, userID); err != nil {
			return nil, err
		}
		lines := []string{fmt.Sprintf("%s passes.", e.displayName(t, userID))}
		return append(lines, e.consumeTurn(t, userID)...), nil
	default:
		return nil, ErrNoActiveEncounter
	}
}

// DeclareAttack is step one of the manual two-step protocol: an explicit
// attack roll against the target's armor class. A natural maximum die
// face always hits and flags a critical. The outcome is recorded in the
// pending tracker; a hit leaves the turn open for the matching damage
// roll, while a miss consumes the turn.
func (e *Engine) DeclareAttack(t Table, userID, targetRef, expr string) ([]string, error) {
	if _, err := e.playerTurn(t, userID); err != nil {
		return nil, err
	}
	target, err := resolveTarget(t.Enc, targetRef)
	if err != nil {
		return nil, err
	}
	parsed, err := dice.Parse(expr)
	if err != nil {
		return nil, err
	}

	r := e.roller.Roll(parsed)
	crit := r.NaturalMax(parsed.Sides)
	hit := crit || r.Total() >= target.ArmorClass
	t.Pending.Record(userID, t.Enc.ID, target.ID, hit, crit, e.Clock())

	name := e.displayName(t, userID)
	var lines []string
	switch {
	case crit:
		lines = []string{fmt.Sprintf("%s attacks %s: %s vs AC %d — **critical hit!** Roll your damage with `!damage %s <dice>`.",
			name, target.Name, r, target.ArmorClass, target.ID)}
	case hit:
		lines = []string{fmt.Sprintf("%s attacks %s: %s vs AC %d — a hit! Roll your damage with `!damage %s <dice>`.",
			name, target.Name, r, target.ArmorClass, target.ID)}
	default:
		lines = []string{fmt.Sprintf("%s attacks %s: %s vs AC %d — a miss.", name, target.Name, r, target.ArmorClass)}
	}
	lines = appendFlavor(lines, e.attackFlavor(name, target.Name, hit, crit))
	if !hit {
		lines = append(lines, e.consumeTurn(t, userID)...)
	}
	return lines, nil
}

// Damage is step two of the manual protocol: it consumes the matching
// pending hit (same encounter, same target, within PendingTTL), rolls
// the damage expression — with the die count doubled on a critical —
// applies it to the enemy, and consumes the turn.
func (e *Engine) Damage(t Table, userID, targetRef, expr string) ([]string, error) {
	if _, err := e.playerTurn(t, userID); err != nil {
		return nil, err
	}
	target, err := resolveTarget(t.Enc, targetRef)
	if err != nil {
		return nil, err
	}
	parsed, err := dice.Parse(expr)
	if err != nil {
		return nil, err
	}
	ph, err := t.Pending.Consume(userID, t.Enc.ID, target.ID, e.Clock())
	if err != nil {
		return nil, err
	}
	if ph.Critical {
		parsed = dice.Critical(parsed)
	}

	lines := e.applyDamage(t, userID, target, parsed, ph.Critical)
	if t.Enc.Status == encounter.StatusCompleted {
		return lines, nil
	}
	return append(lines, e.consumeTurn(t, userID)...), nil
}

// AutoAttack resolves an attack with no explicit dice: the PC's first
// configured Attack supplies the to-hit bonus and damage expression, and
// both rolls happen atomically in one turn, skipping the pending tracker.
func (e *Engine) AutoAttack(t Table, userID, targetRef string) ([]string, error) {
	if _, err := e.playerTurn(t, userID); err != nil {
		return nil, err
	}
	target, err := resolveTarget(t.Enc, targetRef)
	if err != nil {
		return nil, err
	}
	ch := t.Party[userID]
	if ch == nil || !ch.CanFight() {
		return nil, ErrMissingCombatStats
	}
	atk, ok := ch.FirstAttack()
	if !ok {
		return nil, ErrMissingCombatStats
	}
	dmgExpr, err := dice.Parse(atk.Damage)
	if err != nil {
		return nil, fmt.Errorf("configured attack %q has a bad damage expression: %w", atk.Name, err)
	}

	r := e.roller.Roll(dice.Expression{Count: 1, Sides: 20, Modifier: atk.ToHit})
	crit := r.NaturalMax(20)
	hit := crit || r.Total() >= target.ArmorClass
	name := e.displayName(t, userID)

	var lines []string
	if hit {
		verdict := "a hit!"
		if crit {
			verdict = "**critical hit!**"
		}
		lines = append(lines, fmt.Sprintf("%s strikes at %s with %s: %s vs AC %d — %s",
			name, target.Name, atk.Name, r, target.ArmorClass, verdict))
		lines = appendFlavor(lines, e.attackFlavor(name, target.Name, true, crit))
		if crit {
			dmgExpr = dice.Critical(dmgExpr)
		}
		lines = append(lines, e.applyDamage(t, userID, target, dmgExpr, crit)...)
		if t.Enc.Status == encounter.StatusCompleted {
			return lines, nil
		}
	} else {
		lines = append(lines, fmt.Sprintf("%s strikes at %s with %s: %s vs AC %d — a miss.",
			name, target.Name, atk.Name, r, target.ArmorClass))
		lines = appendFlavor(lines, e.attackFlavor(name, target.Name, false, false))
	}
	return append(lines, e.consumeTurn(t, userID)...), nil
}

// SkillRoll resolves a check or save. When it is the actor's open turn
// in the player phase the roll consumes the turn; otherwise it is a free
// table roll and bypasses turn enforcement entirely. An empty expr rolls
// d20 plus the PC's configured bonus for the label (0 when unset).
//
// Precondition: kind is "check" or "save".
func (e *Engine) SkillRoll(t Table, userID, kind, label, expr string) ([]string, error) {
	if expr == "" {
		bonus := 0
		if ch := t.Party[userID]; ch != nil && ch.Stats != nil {
			switch kind {
			case "save":
				bonus = ch.Stats.Saves[label]
			default:
				bonus = ch.Stats.Skills[label]
			}
		}
		expr = fmt.Sprintf("d20%+d", bonus)
	}
	parsed, err := dice.Parse(expr)
	if err != nil {
		return nil, err
	}
	r := e.roller.Roll(parsed)
	lines := []string{fmt.Sprintf("%s rolls %s %s: %s", e.displayName(t, userID), label, kind, r)}

	if p, ok := t.State.Current().(PlayerPhase); ok && !p.Acted[userID] && p.CurrentActor() == userID {
		lines = append(lines, e.consumeTurn(t, userID)...)
	}
	return lines, nil
}

// SkipAll is the privileged bulk-skip: every remaining PC turn this
// round is forfeited, which immediately hands the round to the enemies.
func (e *Engine) SkipAll(t Table) ([]string, error) {
	p, ok := t.State.Current().(PlayerPhase)
	if !ok {
		if t.State.Kind() == KindNone {
			return nil, ErrNoActiveEncounter
		}
		return nil, ErrOutOfTurnOrPhase
	}
	for _, id := range p.Order {
		p.Acted[id] = true
	}
	t.State.set(p)
	lines := []string{"All remaining player turns are skipped."}
	return append(lines, e.runEnemyPhase(t, p.RoundState)...), nil
}

// End manually ends the active encounter without a winner.
//
// Postcondition: enc.Status is completed, the state is Idle, and all
// pending hits are discarded.
func (e *Engine) End(t Table) ([]string, error) {
	if t.State.Kind() == KindNone {
		return nil, ErrNoActiveEncounter
	}
	t.Enc.Status = encounter.StatusCompleted
	t.State.reset()
	t.Pending.Clear()
	e.logger.Info("encounter ended manually", zap.String("encounter_id", t.Enc.ID))
	return []string{fmt.Sprintf("Encounter **%s** has ended.", t.Enc.Name)}, nil
}

// Describe renders the roster and phase for `!encounter` / `!targets`.
func (e *Engine) Describe(t Table) []string {
	lines := []string{fmt.Sprintf("**%s** (%s)", t.Enc.Name, t.Enc.Status)}
	for _, en := range t.Enc.Enemies {
		status := fmt.Sprintf("HP %d/%d, AC %d", en.CurrentHP, en.MaxHP, en.ArmorClass)
		if !en.Alive() {
			status = "defeated"
		}
		lines = append(lines, fmt.Sprintf("• %s [`%s`] — %s", en.Name, en.ID, status))
	}
	switch p := t.State.Current().(type) {
	case Initiative:
		lines = append(lines, fmt.Sprintf("Phase: initiative (%d/%d rolled)", len(p.PCInits), len(p.Eligible)))
	case PlayerPhase:
		lines = append(lines, fmt.Sprintf("Phase: players, round %d — it's %s's turn.", p.Number, e.displayName(t, p.CurrentActor())))
	}
	return lines
}

// --- internal helpers ---

// playerTurn validates that userID may take a turn-consuming action now.
func (e *Engine) playerTurn(t Table, userID string) (PlayerPhase, error) {
	p, ok := t.State.Current().(PlayerPhase)
	if !ok {
		if t.State.Kind() == KindNone {
			return PlayerPhase{}, ErrNoActiveEncounter
		}
		return PlayerPhase{}, ErrOutOfTurnOrPhase
	}
	if p.Acted[userID] {
		return p, ErrAlreadyActed
	}
	if p.CurrentActor() != userID {
		return p, ErrOutOfTurnOrPhase
	}
	return p, nil
}

// consumeTurn marks userID as acted and advances the turn pointer past
// acted PCs. When every PC has acted the enemy phase runs immediately as
// part of the same locked operation.
func (e *Engine) consumeTurn(t Table, userID string) []string {
	p, ok := t.State.Current().(PlayerPhase)
	if !ok {
		return nil
	}
	p.Acted[userID] = true
	if p.AllActed() {
		t.State.set(p)
		return e.runEnemyPhase(t, p.RoundState)
	}
	for p.Acted[p.Order[p.TurnIndex]] {
		p.TurnIndex = (p.TurnIndex + 1) % len(p.Order)
	}
	t.State.set(p)
	return []string{fmt.Sprintf("It's %s's turn.", e.displayName(t, p.CurrentActor()))}
}

// beginRounds fires once every eligible PC has an initiative total. The
// side with the higher best total acts first; ties favor the players.
func (e *Engine) beginRounds(t Table, init Initiative) []string {
	order := make([]string, len(init.Eligible))
	copy(order, init.Eligible)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if init.PCInits[a] != init.PCInits[b] {
			return init.PCInits[a] > init.PCInits[b]
		}
		return a < b
	})

	playersFirst := bestTotal(init.PCInits) >= bestTotal(init.EnemyInits)
	rs := RoundState{
		EncounterID:  init.EncounterID,
		Number:       1,
		Order:        order,
		PCInits:      init.PCInits,
		EnemyInits:   init.EnemyInits,
		PlayersFirst: playersFirst,
	}

	if playersFirst {
		t.State.set(PlayerPhase{RoundState: rs, TurnIndex: 0, Acted: make(map[string]bool)})
		lines := []string{fmt.Sprintf("Round 1 — players act first. It's %s's turn.", e.displayName(t, order[0]))}
		return appendFlavor(lines, e.phaseFlavor(string(KindPlayer), 1))
	}
	lines := []string{"Round 1 — the enemies seize the initiative!"}
	return append(lines, e.runEnemyPhase(t, rs)...)
}

// applyDamage rolls expr against target, applies the floored result, and
// completes the encounter when the defeat condition fires.
func (e *Engine) applyDamage(t Table, userID string, target *encounter.Enemy, expr dice.Expression, crit bool) []string {
	r := e.roller.Roll(expr)
	dmg := r.Total()
	if dmg < 0 {
		dmg = 0
	}
	target.ApplyDamage(dmg)

	suffix := fmt.Sprintf("%s takes %d damage (HP %d/%d).", target.Name, dmg, target.CurrentHP, target.MaxHP)
	if !target.Alive() {
		suffix = fmt.Sprintf("%s takes %d damage and falls!", target.Name, dmg)
	}
	lines := []string{fmt.Sprintf("%s rolls damage: %s — %s", e.displayName(t, userID), r, suffix)}

	if WinSatisfied(t.Enc, t.State.Round(), false) {
		lines = append(lines, e.completeEncounter(t)...)
	}
	return lines
}

// completeEncounter marks the encounter won and resets combat state.
func (e *Engine) completeEncounter(t Table) []string {
	t.Enc.Status = encounter.StatusCompleted
	t.State.reset()
	t.Pending.Clear()
	e.logger.Info("encounter won", zap.String("encounter_id", t.Enc.ID))
	return []string{fmt.Sprintf("🏆 Victory! Encounter **%s** is complete.", t.Enc.Name)}
}

// displayName resolves a user id to the PC's sheet name, falling back to
// the raw id for statless participants.
func (e *Engine) displayName(t Table, userID string) string {
	if ch := t.Party[userID]; ch != nil && ch.Name != "" {
		return ch.Name
	}
	return userID
}

// eligiblePCs returns the user ids with a combat sheet, sorted ascending
// for a stable prompt order.
func eligiblePCs(party Party) []string {
	var ids []string
	for uid, ch := range party {
		if ch != nil && ch.Stats != nil {
			ids = append(ids, uid)
		}
	}
	sort.Strings(ids)
	return ids
}

// resolveTarget maps a target reference to exactly one living enemy.
func resolveTarget(enc *encounter.Encounter, ref string) (*encounter.Enemy, error) {
	matches := enc.FindLiving(ref)
	switch len(matches) {
	case 0:
		return nil, ErrTargetNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrTargetAmbiguous
	}
}

func bestTotal(m map[string]int) int {
	best := 0
	first := true
	for _, v := range m {
		if first || v > best {
			best = v
			first = false
		}
	}
	return best
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
