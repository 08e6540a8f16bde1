package combat

import (
	"errors"
	"testing"
	"time"
)

func TestPendingTracker_ConsumeOnce(t *testing.T) {
	now := time.Now()
	tr := NewPendingTracker()
	tr.Record("alice", "enc-1", "gob-1", true, false, now)

	ph, err := tr.Consume("alice", "enc-1", "gob-1", now)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ph.TargetID != "gob-1" || ph.Critical {
		t.Errorf("ph = %+v", ph)
	}
	if _, err := tr.Consume("alice", "enc-1", "gob-1", now); !errors.Is(err, ErrPendingHitMissing) {
		t.Errorf("second consume err = %v, want ErrPendingHitMissing", err)
	}
}

func TestPendingTracker_LazyExpiry(t *testing.T) {
	now := time.Now()
	tr := NewPendingTracker()
	tr.Record("alice", "enc-1", "gob-1", true, false, now)

	// One tick inside the window still consumes.
	if _, err := tr.Consume("alice", "enc-1", "gob-1", now.Add(PendingTTL)); err != nil {
		t.Fatalf("consume at TTL boundary: %v", err)
	}

	tr.Record("alice", "enc-1", "gob-1", true, false, now)
	if _, err := tr.Consume("alice", "enc-1", "gob-1", now.Add(PendingTTL+time.Second)); !errors.Is(err, ErrPendingHitExpired) {
		t.Errorf("expired consume err = %v, want ErrPendingHitExpired", err)
	}
	if len(tr) != 0 {
		t.Error("expired record must be discarded on access")
	}
}

func TestPendingTracker_Mismatch(t *testing.T) {
	now := time.Now()
	tr := NewPendingTracker()
	tr.Record("alice", "enc-1", "gob-1", true, false, now)

	if _, err := tr.Consume("alice", "enc-1", "gob-2", now); !errors.Is(err, ErrPendingHitMismatch) {
		t.Errorf("target mismatch err = %v, want ErrPendingHitMismatch", err)
	}
	if len(tr) != 0 {
		t.Error("mismatched record must be discarded")
	}

	tr.Record("alice", "enc-1", "gob-1", true, false, now)
	if _, err := tr.Consume("alice", "enc-2", "gob-1", now); !errors.Is(err, ErrPendingHitMismatch) {
		t.Errorf("encounter mismatch err = %v, want ErrPendingHitMismatch", err)
	}
}

func TestPendingTracker_MissRecordBlocksDamage(t *testing.T) {
	now := time.Now()
	tr := NewPendingTracker()
	tr.Record("alice", "enc-1", "gob-1", false, false, now)

	if _, err := tr.Consume("alice", "enc-1", "gob-1", now); !errors.Is(err, ErrPendingHitMissing) {
		t.Errorf("miss consume err = %v, want ErrPendingHitMissing", err)
	}
	if _, ok := tr["alice"]; !ok {
		t.Error("miss record must stay until replaced by a new attack")
	}

	// A fresh hit replaces the miss and is consumable.
	tr.Record("alice", "enc-1", "gob-1", true, true, now)
	ph, err := tr.Consume("alice", "enc-1", "gob-1", now)
	if err != nil {
		t.Fatalf("Consume after re-declare: %v", err)
	}
	if !ph.Critical {
		t.Error("replacement record must carry the new critical flag")
	}
}

func TestIsPendingError(t *testing.T) {
	for _, err := range []error{ErrPendingHitMissing, ErrPendingHitExpired, ErrPendingHitMismatch} {
		if !IsPendingError(err) {
			t.Errorf("IsPendingError(%v) = false", err)
		}
	}
	if IsPendingError(ErrAlreadyActed) {
		t.Error("IsPendingError(ErrAlreadyActed) = true")
	}
}
