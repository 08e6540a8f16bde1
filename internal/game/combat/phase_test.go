package combat

import (
	"encoding/json"
	"testing"
)

func TestState_JSONRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		phase Phase
	}{
		{"idle", Idle{}},
		{"initiative", Initiative{
			EncounterID: "enc-1",
			Eligible:    []string{"alice", "bob"},
			PCInits:     map[string]int{"alice": 15},
			EnemyInits:  map[string]int{"gob-1": 12},
		}},
		{"player", PlayerPhase{
			RoundState: RoundState{
				EncounterID:  "enc-1",
				Number:       3,
				Order:        []string{"bob", "alice"},
				PCInits:      map[string]int{"alice": 8, "bob": 14},
				EnemyInits:   map[string]int{"gob-1": 12},
				PlayersFirst: true,
			},
			TurnIndex: 1,
			Acted:     map[string]bool{"bob": true},
		}},
		{"enemy", EnemyPhase{RoundState: RoundState{
			EncounterID: "enc-1",
			Number:      2,
			Order:       []string{"alice"},
			PCInits:     map[string]int{"alice": 8},
			EnemyInits:  map[string]int{"gob-1": 12},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s State
			s.set(tc.phase)
			data, err := json.Marshal(s)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var back State
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back.Kind() != s.Kind() {
				t.Fatalf("kind = %q, want %q", back.Kind(), s.Kind())
			}
			if back.EncounterID() != s.EncounterID() || back.Round() != s.Round() {
				t.Errorf("round trip lost fields: %q/%d vs %q/%d",
					back.EncounterID(), back.Round(), s.EncounterID(), s.Round())
			}
			if p, ok := tc.phase.(PlayerPhase); ok {
				bp := back.Current().(PlayerPhase)
				if bp.TurnIndex != p.TurnIndex || !bp.Acted["bob"] {
					t.Errorf("player phase fields lost: %+v", bp)
				}
			}
		})
	}
}

func TestState_UnknownPhaseRejected(t *testing.T) {
	var s State
	if err := json.Unmarshal([]byte(`{"phase":"twilight"}`), &s); err == nil {
		t.Fatal("unknown discriminator must fail to decode")
	}
}

func TestState_ZeroValueIsIdle(t *testing.T) {
	var s State
	if s.Kind() != KindNone || s.EncounterID() != "" || s.Round() != 0 {
		t.Errorf("zero state: kind=%q enc=%q round=%d", s.Kind(), s.EncounterID(), s.Round())
	}
}
