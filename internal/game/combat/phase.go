// Package combat implements the deterministic combat encounter engine:
// the turn-phase state machine, the declare-attack → roll-damage
// protocol, the enemy AI phase driver, and win-condition evaluation.
// Narrative prose, transports, and persistence are collaborators; the
// engine only adjudicates numeric state.
package combat

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind names a combat phase for logging and persistence.
type Kind string

const (
	KindNone       Kind = "none"
	KindInitiative Kind = "initiative"
	KindPlayer     Kind = "player"
	KindEnemy      Kind = "enemy"
)

// Phase is the closed set of combat phases. Each variant carries exactly
// the fields that are meaningful in that phase, so an illegal state such
// as a turn index outside the player phase is unrepresentable.
type Phase interface {
	Kind() Kind
	// sealed restricts implementations to this package.
	sealed()
}

// Idle is the phase between encounters: no encounter id, round 0.
type Idle struct{}

func (Idle) Kind() Kind { return KindNone }
func (Idle) sealed()    {}

// Initiative is the phase collecting PC initiative totals. Enemy totals
// are rolled up front when the encounter starts; PC totals arrive
// asynchronously until every eligible PC has one.
type Initiative struct {
	EncounterID string
	// Eligible lists the user ids that must submit before combat begins.
	Eligible   []string
	PCInits    map[string]int
	EnemyInits map[string]int
}

func (Initiative) Kind() Kind { return KindInitiative }
func (Initiative) sealed()    {}

// Complete reports whether every eligible PC has an initiative total.
func (p Initiative) Complete() bool {
	for _, id := range p.Eligible {
		if _, ok := p.PCInits[id]; !ok {
			return false
		}
	}
	return true
}

// RoundState carries the per-round fields shared by the player and enemy
// phases.
type RoundState struct {
	EncounterID string
	// Number is the current round, starting at 1.
	Number int
	// Order is the eligible PCs sorted by initiative total descending,
	// ties broken by ascending user id.
	Order      []string
	PCInits    map[string]int
	EnemyInits map[string]int
	// PlayersFirst records which side won initiative (ties favor PCs).
	PlayersFirst bool
}

// PlayerPhase is the phase in which PCs take turns in initiative order.
type PlayerPhase struct {
	RoundState
	// TurnIndex points at the PC in Order whose turn it is.
	TurnIndex int
	// Acted is the set of PCs who have taken their turn this round.
	Acted map[string]bool
}

func (PlayerPhase) Kind() Kind { return KindPlayer }
func (PlayerPhase) sealed()    {}

// CurrentActor returns the user id at the turn pointer.
//
// Precondition: TurnIndex must be within Order.
func (p PlayerPhase) CurrentActor() string { return p.Order[p.TurnIndex] }

// AllActed reports whether every PC in the turn order has acted.
func (p PlayerPhase) AllActed() bool {
	for _, id := range p.Order {
		if !p.Acted[id] {
			return false
		}
	}
	return true
}

// EnemyPhase is the phase in which the AI driver resolves enemy attacks.
// It exists only inside a single locked operation; the driver always
// transitions out before the operation returns.
type EnemyPhase struct {
	RoundState
}

func (EnemyPhase) Kind() Kind { return KindEnemy }
func (EnemyPhase) sealed()    {}

// State wraps the current Phase and gives it a stable JSON document form
// keyed by a phase discriminator.
//
// Invariant: Kind()==KindNone ⇔ EncounterID()=="" ⇔ Round()==0.
type State struct {
	phase Phase
}

// Current returns the active phase, never nil.
func (s *State) Current() Phase {
	if s.phase == nil {
		return Idle{}
	}
	return s.phase
}

// Kind returns the active phase kind.
func (s *State) Kind() Kind { return s.Current().Kind() }

// EncounterID returns the active encounter id, or "" when idle.
func (s *State) EncounterID() string {
	switch p := s.Current().(type) {
	case Initiative:
		return p.EncounterID
	case PlayerPhase:
		return p.EncounterID
	case EnemyPhase:
		return p.EncounterID
	default:
		return ""
	}
}

// Round returns the current round number, or 0 when not in a round.
func (s *State) Round() int {
	switch p := s.Current().(type) {
	case PlayerPhase:
		return p.Number
	case EnemyPhase:
		return p.Number
	default:
		return 0
	}
}

// set replaces the active phase.
func (s *State) set(p Phase) { s.phase = p }

// reset returns the state to Idle.
func (s *State) reset() { s.phase = Idle{} }

// stateDoc is the flat persistence form of State; which fields are
// populated depends on the phase discriminator.
type stateDoc struct {
	Phase        Kind           `json:"phase"`
	EncounterID  string         `json:"encounterId,omitempty"`
	Round        int            `json:"round,omitempty"`
	Eligible     []string       `json:"eligible,omitempty"`
	PCInits      map[string]int `json:"pcInitiatives,omitempty"`
	EnemyInits   map[string]int `json:"enemyInitiatives,omitempty"`
	Order        []string       `json:"order,omitempty"`
	TurnIndex    int            `json:"turnIndex,omitempty"`
	Acted        []string       `json:"acted,omitempty"`
	PlayersFirst bool           `json:"playersFirst,omitempty"`
}

// MarshalJSON encodes the state as a discriminated document.
func (s State) MarshalJSON() ([]byte, error) {
	doc := stateDoc{Phase: KindNone}
	switch p := s.phase.(type) {
	case nil, Idle:
	case Initiative:
		doc = stateDoc{
			Phase:       KindInitiative,
			EncounterID: p.EncounterID,
			Eligible:    p.Eligible,
			PCInits:     p.PCInits,
			EnemyInits:  p.EnemyInits,
		}
	case PlayerPhase:
		acted := make([]string, 0, len(p.Acted))
		for id, ok := range p.Acted {
			if ok {
				acted = append(acted, id)
			}
		}
		sort.Strings(acted)
		doc = stateDoc{
			Phase:        KindPlayer,
			EncounterID:  p.EncounterID,
			Round:        p.Number,
			Order:        p.Order,
			PCInits:      p.PCInits,
			EnemyInits:   p.EnemyInits,
			TurnIndex:    p.TurnIndex,
			Acted:        acted,
			PlayersFirst: p.PlayersFirst,
		}
	case EnemyPhase:
		doc = stateDoc{
			Phase:        KindEnemy,
			EncounterID:  p.EncounterID,
			Round:        p.Number,
			Order:        p.Order,
			PCInits:      p.PCInits,
			EnemyInits:   p.EnemyInits,
			PlayersFirst: p.PlayersFirst,
		}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a discriminated document back into a phase.
func (s *State) UnmarshalJSON(data []byte) error {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	switch doc.Phase {
	case "", KindNone:
		s.phase = Idle{}
	case KindInitiative:
		s.phase = Initiative{
			EncounterID: doc.EncounterID,
			Eligible:    doc.Eligible,
			PCInits:     orEmpty(doc.PCInits),
			EnemyInits:  orEmpty(doc.EnemyInits),
		}
	case KindPlayer:
		acted := make(map[string]bool, len(doc.Acted))
		for _, id := range doc.Acted {
			acted[id] = true
		}
		s.phase = PlayerPhase{
			RoundState: RoundState{
				EncounterID:  doc.EncounterID,
				Number:       doc.Round,
				Order:        doc.Order,
				PCInits:      orEmpty(doc.PCInits),
				EnemyInits:   orEmpty(doc.EnemyInits),
				PlayersFirst: doc.PlayersFirst,
			},
			TurnIndex: doc.TurnIndex,
			Acted:     acted,
		}
	case KindEnemy:
		s.phase = EnemyPhase{RoundState: RoundState{
			EncounterID:  doc.EncounterID,
			Number:       doc.Round,
			Order:        doc.Order,
			PCInits:      orEmpty(doc.PCInits),
			EnemyInits:   orEmpty(doc.EnemyInits),
			PlayersFirst: doc.PlayersFirst,
		}}
	default:
		return fmt.Errorf("combat: unknown phase %q", doc.Phase)
	}
	return nil
}

func orEmpty(m map[string]int) map[string]int {
	if m == nil {
		return make(map[string]int)
	}
	return m
}
