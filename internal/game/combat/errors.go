package combat

import "errors"

// Sentinel errors for every engine failure mode. All of them are short,
// user-presentable one-liners; handlers relay them into chat verbatim.
// Callers discriminate with errors.Is. No engine error is fatal to the
// process, and a failed validation never mutates session state.
var (
	// ErrOutOfTurnOrPhase is returned when an action is attempted outside
	// the player phase or by a PC who is not at the current turn index.
	ErrOutOfTurnOrPhase = errors.New("it is not your turn to act")

	// ErrAlreadyActed is returned when a PC who has acted this round
	// attempts another turn-consuming action.
	ErrAlreadyActed = errors.New("you have already acted this round")

	// ErrTargetNotFound is returned when a target reference matches no
	// living enemy.
	ErrTargetNotFound = errors.New("no living enemy matches that target")

	// ErrTargetAmbiguous is returned when a target reference matches more
	// than one living enemy.
	ErrTargetAmbiguous = errors.New("that target matches more than one enemy; use the enemy id")

	// ErrNoActiveEncounter is returned when a combat action arrives with
	// no encounter in progress.
	ErrNoActiveEncounter = errors.New("no encounter is active")

	// ErrPendingHitMissing is returned when a damage roll has no matching
	// declared hit on record.
	ErrPendingHitMissing = errors.New("no attack hit on record; declare an attack first")

	// ErrPendingHitExpired is returned when the declared hit is older than
	// PendingTTL.
	ErrPendingHitExpired = errors.New("your attack roll has expired; declare a new attack")

	// ErrPendingHitMismatch is returned when a damage roll names a
	// different encounter or target than the declared hit.
	ErrPendingHitMismatch = errors.New("your declared attack was against a different target")

	// ErrMissingCombatStats is returned when an auto-resolve action needs
	// a numeric sheet the PC does not have.
	ErrMissingCombatStats = errors.New("your character has no combat stats")

	// ErrEncounterInProgress is returned when starting an encounter while
	// another is already active.
	ErrEncounterInProgress = errors.New("an encounter is already in progress")

	// ErrNoEnemies is returned when starting an encounter whose roster is
	// empty; an encounter is never fought with zero enemies.
	ErrNoEnemies = errors.New("the encounter has no enemies")

	// ErrInitiativeAlreadySet is returned when a PC submits initiative twice.
	ErrInitiativeAlreadySet = errors.New("your initiative is already set")

	// ErrNotEligible is returned when a PC without a combat sheet tries to
	// join initiative or act in combat.
	ErrNotEligible = errors.New("your character cannot act in combat without a stat sheet")
)
