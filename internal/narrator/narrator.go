// Package narrator is the language-model collaborator: it turns the
// engine's mechanical lines into story text and routes freeform player
// utterances to a proposed mechanical action. It never decides hit,
// miss, or damage — the combat engine validates and rolls every proposal
// exactly as it would an explicit command.
package narrator

import "context"

// Intent is a structured action proposal routed from a freeform
// utterance. Tool is "attack" or "pass"; anything else means no action.
type Intent struct {
	Tool       string `json:"tool"`
	Target     string `json:"target,omitempty"`
	AttackName string `json:"attackName,omitempty"`
}

// Context is the textual bundle handed to the model: enough to narrate
// coherently without access to any game state.
type Context struct {
	CampaignName string
	// Roster lines, one per PC ("Alice — HP 9/12, AC 14").
	Roster []string
	// Encounter lines from the engine's Describe output, empty when idle.
	Encounter []string
	// Transcript is the recent-lines ring, oldest first.
	Transcript []string
	// Event is the mechanical outcome to narrate.
	Event string
}

// Narrator produces narration and routes utterances.
type Narrator interface {
	// Narrate returns story text for the event, or "" to stay silent.
	Narrate(ctx context.Context, nc Context) (string, error)
	// Route returns a proposed Intent for the utterance, or nil when the
	// model proposes no action.
	Route(ctx context.Context, nc Context, utterance string) (*Intent, error)
}

// Disabled is the no-op Narrator used when narration is turned off.
type Disabled struct{}

func (Disabled) Narrate(context.Context, Context) (string, error)        { return "", nil }
func (Disabled) Route(context.Context, Context, string) (*Intent, error) { return nil, nil }
