package narrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *Intent
	}{
		{"attack", `{"tool":"attack","target":"gob-1"}`, &Intent{Tool: "attack", Target: "gob-1"}},
		{"attack with name", `{"tool":"attack","target":"Goblin","attackName":"shortsword"}`,
			&Intent{Tool: "attack", Target: "Goblin", AttackName: "shortsword"}},
		{"pass", `{"tool":"pass"}`, &Intent{Tool: "pass"}},
		{"fenced", "```json\n{\"tool\":\"pass\"}\n```", &Intent{Tool: "pass"}},
		{"prose wrapped", `Sure! {"tool":"attack","target":"troll"} there you go`,
			&Intent{Tool: "attack", Target: "troll"}},
		{"none", `{"tool":"none"}`, nil},
		{"attack without target", `{"tool":"attack"}`, nil},
		{"unknown tool", `{"tool":"fireball","target":"gob-1"}`, nil},
		{"not json", `I would attack the goblin`, nil},
		{"empty", ``, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseIntent(tc.raw)
			if tc.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	nc := Context{
		CampaignName: "Greyhollow",
		Roster:       []string{"Alice — HP 9/12, AC 14"},
		Encounter:    []string{"Goblin 1 — HP 7/7, AC 13"},
		Transcript:   []string{"Alice: I draw my sword"},
		Event:        "Alice hits Goblin 1 for 6 damage.",
	}
	prompt := buildPrompt(nc, "I stab the goblin!")

	for _, want := range []string{"Greyhollow", "HP 9/12", "Goblin 1", "draw my sword", "6 damage", "I stab the goblin!"} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q:\n%s", want, prompt)
	}
}

func TestDisabled(t *testing.T) {
	var n Narrator = Disabled{}
	text, err := n.Narrate(context.Background(), Context{Event: "x"})
	require.NoError(t, err)
	assert.Empty(t, text)
	intent, err := n.Route(context.Background(), Context{}, "attack!")
	require.NoError(t, err)
	assert.Nil(t, intent)
}
