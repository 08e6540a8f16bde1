package combat

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/mjholt/tavern/internal/game/character"
)

// TestPropertyPending_ConsumeOnce: for any declared outcome, a matching
// in-TTL consume returns the recorded hit exactly once, a miss record
// always reports missing but stays on file, and a consume past the TTL
// always reports expired.
func TestPropertyPending_ConsumeOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		actor := rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(rt, "actor")
		encID := rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(rt, "enc")
		targetID := rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(rt, "target")
		hit := rapid.Bool().Draw(rt, "hit")
		crit := hit && rapid.Bool().Draw(rt, "crit")
		age := time.Duration(rapid.Int64Range(0, int64(PendingTTL)).Draw(rt, "age"))
		expired := rapid.Bool().Draw(rt, "expired")

		now := time.Unix(1_700_000_000, 0)
		tr := NewPendingTracker()
		tr.Record(actor, encID, targetID, hit, crit, now)

		at := now.Add(age)
		if expired {
			at = now.Add(PendingTTL + time.Duration(rapid.Int64Range(1, int64(time.Hour)).Draw(rt, "over")))
		}
		ph, err := tr.Consume(actor, encID, targetID, at)

		switch {
		case expired:
			if err != ErrPendingHitExpired {
				rt.Fatalf("Consume after TTL: err = %v, want ErrPendingHitExpired", err)
			}
			if _, ok := tr[actor]; ok {
				rt.Fatal("expired record was not discarded")
			}
		case !hit:
			if err != ErrPendingHitMissing {
				rt.Fatalf("Consume of a miss: err = %v, want ErrPendingHitMissing", err)
			}
			if _, ok := tr[actor]; !ok {
				rt.Fatal("miss record must stay on file until a new declaration")
			}
		default:
			if err != nil {
				rt.Fatalf("Consume: %v", err)
			}
			if ph.Critical != crit {
				rt.Fatalf("Consume returned Critical=%v, want %v", ph.Critical, crit)
			}
			if _, err := tr.Consume(actor, encID, targetID, at); err != ErrPendingHitMissing {
				rt.Fatalf("second Consume: err = %v, want ErrPendingHitMissing", err)
			}
		}
	})
}

// TestPropertyLowestHPTarget: the chosen target is always a living,
// fightable PC with minimal current HP, with ties broken by the smallest
// user id.
func TestPropertyLowestHPTarget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "pcs")
		party := make(Party, n)
		for i := 0; i < n; i++ {
			uid := fmt.Sprintf("u%d", i)
			hp := rapid.IntRange(0, 30).Draw(rt, uid+"-hp")
			party[uid] = &character.Character{
				Name:  uid,
				Stats: &character.Stats{ArmorClass: 12, MaxHP: 30, CurrentHP: hp},
			}
		}
		// A statless PC must never be chosen.
		party["narrative"] = &character.Character{Name: "narrative"}

		uid, target := lowestHPTarget(party)
		if target == nil {
			for id, ch := range party {
				if ch.CanFight() && ch.Stats.CurrentHP > 0 {
					rt.Fatalf("no target chosen but %s is standing", id)
				}
			}
			return
		}
		if !target.CanFight() || target.Stats.CurrentHP <= 0 {
			rt.Fatalf("chose %s, who cannot fight", uid)
		}
		for id, ch := range party {
			if !ch.CanFight() || ch.Stats.CurrentHP <= 0 {
				continue
			}
			if ch.Stats.CurrentHP < target.Stats.CurrentHP {
				rt.Fatalf("chose %s (HP %d) over %s (HP %d)", uid, target.Stats.CurrentHP, id, ch.Stats.CurrentHP)
			}
			if ch.Stats.CurrentHP == target.Stats.CurrentHP && id < uid {
				rt.Fatalf("tie at HP %d broke to %s, want %s", ch.Stats.CurrentHP, uid, id)
			}
		}
	})
}
