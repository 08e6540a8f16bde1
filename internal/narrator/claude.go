package narrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/mjholt/tavern/internal/config"
)

const narrateSystem = `You are the narrator of a tabletop-style adventure.
Given the table state and a mechanical outcome, reply with one or two
sentences of vivid second-person narration. Never change numbers, never
invent mechanical outcomes, never address the players out of character.`

const routeSystem = `You translate a player's freeform message into at most
one mechanical action. Reply with ONLY a JSON object:
{"tool":"attack","target":"<enemy name or id>","attackName":"<optional>"}
or {"tool":"pass"} or {"tool":"none"}.
Propose "attack" only when the message clearly describes attacking a
present enemy. You never decide hit, miss, or damage.`

// Claude narrates through the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *zap.Logger
}

// NewClaude creates a Claude narrator from cfg. The API key is read from
// the environment by the SDK (ANTHROPIC_API_KEY).
//
// Precondition: cfg.Model must be non-empty; cfg.MaxTokens >= 1.
func NewClaude(cfg config.NarratorConfig, logger *zap.Logger) *Claude {
	return &Claude{
		client:    anthropic.NewClient(),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		logger:    logger,
	}
}

// Narrate returns story text for the event in nc.
func (c *Claude) Narrate(ctx context.Context, nc Context) (string, error) {
	text, err := c.complete(ctx, narrateSystem, buildPrompt(nc, ""))
	if err != nil {
		return "", fmt.Errorf("narrating event: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Route proposes a mechanical action for the utterance, or nil.
func (c *Claude) Route(ctx context.Context, nc Context, utterance string) (*Intent, error) {
	text, err := c.complete(ctx, routeSystem, buildPrompt(nc, utterance))
	if err != nil {
		return nil, fmt.Errorf("routing utterance: %w", err)
	}
	intent, ok := parseIntent(text)
	if !ok {
		c.logger.Debug("router returned no usable intent", zap.String("raw", text))
		return nil, nil
	}
	return intent, nil
}

func (c *Claude) complete(ctx context.Context, system, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// buildPrompt renders the context bundle as labeled sections. utterance
// is appended only for routing.
func buildPrompt(nc Context, utterance string) string {
	var sb strings.Builder
	if nc.CampaignName != "" {
		fmt.Fprintf(&sb, "Campaign: %s\n", nc.CampaignName)
	}
	writeSection(&sb, "Party", nc.Roster)
	writeSection(&sb, "Encounter", nc.Encounter)
	writeSection(&sb, "Recent events", nc.Transcript)
	if nc.Event != "" {
		fmt.Fprintf(&sb, "\nOutcome to narrate:\n%s\n", nc.Event)
	}
	if utterance != "" {
		fmt.Fprintf(&sb, "\nPlayer message:\n%s\n", utterance)
	}
	return sb.String()
}

func writeSection(sb *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(sb, "- %s\n", l)
	}
}

// parseIntent extracts the first JSON object from raw and validates the
// tool. Models occasionally wrap JSON in prose or fences; anything not
// parseable as an attack or pass proposal counts as no action.
func parseIntent(raw string) (*Intent, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	var intent Intent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &intent); err != nil {
		return nil, false
	}
	switch intent.Tool {
	case "attack":
		if intent.Target == "" {
			return nil, false
		}
		return &intent, true
	case "pass":
		return &Intent{Tool: "pass"}, true
	default:
		return nil, false
	}
}
