package combat

import (
	"errors"
	"time"
)

// PendingTTL is how long a declared hit stays redeemable for a damage
// roll. Expiry is evaluated lazily at the next access; there is no
// background sweeper, and stale entries are harmless until referenced.
const PendingTTL = 5 * time.Minute

// PendingHit bridges a successful attack roll to its damage roll. It is
// keyed by the acting identity and valid only for the same encounter and
// the same target enemy.
type PendingHit struct {
	EncounterID string    `json:"encounterId"`
	TargetID    string    `json:"targetId"`
	Hit         bool      `json:"hit"`
	Critical    bool      `json:"critical"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PendingTracker records in-flight declared attacks per actor. It is
// owned by a Session and only touched under the channel lock, so it
// needs no locking of its own. The map form round-trips through the
// session JSON document.
type PendingTracker map[string]*PendingHit

// NewPendingTracker returns an empty tracker.
func NewPendingTracker() PendingTracker { return make(PendingTracker) }

// Record stores the outcome of a declared attack for actorID, replacing
// any previous record. Misses are recorded too (with Hit=false) so a
// follow-up damage roll is refused until a new attack is declared.
//
// Precondition: actorID, encounterID, and targetID must be non-empty.
func (t PendingTracker) Record(actorID, encounterID, targetID string, hit, critical bool, now time.Time) {
	t[actorID] = &PendingHit{
		EncounterID: encounterID,
		TargetID:    targetID,
		Hit:         hit,
		Critical:    critical,
		ExpiresAt:   now.Add(PendingTTL),
	}
}

// Consume validates and removes the pending hit for actorID.
//
// Validation order: present → not expired → same encounter and target →
// actually a hit. Expired and mismatched records are discarded; a miss
// record is kept (it blocks damage until a new attack is declared) but
// reported as missing. On success the record is removed exactly once.
//
// Postcondition: Returns the consumed hit, or one of ErrPendingHitMissing,
// ErrPendingHitExpired, ErrPendingHitMismatch.
func (t PendingTracker) Consume(actorID, encounterID, targetID string, now time.Time) (*PendingHit, error) {
	ph, ok := t[actorID]
	if !ok {
		return nil, ErrPendingHitMissing
	}
	if now.After(ph.ExpiresAt) {
		delete(t, actorID)
		return nil, ErrPendingHitExpired
	}
	if ph.EncounterID != encounterID || ph.TargetID != targetID {
		delete(t, actorID)
		return nil, ErrPendingHitMismatch
	}
	if !ph.Hit {
		return nil, ErrPendingHitMissing
	}
	delete(t, actorID)
	return ph, nil
}

// Clear discards every pending record. Called when a round or the
// encounter ends.
func (t PendingTracker) Clear() {
	for k := range t {
		delete(t, k)
	}
}

// IsPendingError reports whether err is one of the declare→damage
// protocol violations.
func IsPendingError(err error) bool {
	return errors.Is(err, ErrPendingHitMissing) ||
		errors.Is(err, ErrPendingHitExpired) ||
		errors.Is(err, ErrPendingHitMismatch)
}
