package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mjholt/tavern/internal/game/campaign"
	"github.com/mjholt/tavern/internal/game/character"
	"github.com/mjholt/tavern/internal/game/combat"
	"github.com/mjholt/tavern/internal/game/command"
	"github.com/mjholt/tavern/internal/game/dice"
	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
)

// combatOp runs one engine operation against the session's current
// encounter under the channel lock, persists the encounter, and runs
// narration over the output.
func (b *Bot) combatOp(ctx context.Context, channelID string, op func(combat.Table, *session.Session) ([]string, error)) ([]string, error) {
	var lines []string
	err := b.sessions.With(ctx, channelID, func(s *session.Session) error {
		tab, enc, err := b.table(ctx, s)
		if err != nil {
			return err
		}
		out, err := op(tab, s)
		if err != nil {
			return err
		}
		if err := b.sessions.Store().SaveEncounter(ctx, s.ActiveCampaign, enc); err != nil {
			return err
		}
		lines = b.withNarration(ctx, s, out)
		return nil
	})
	return lines, err
}

func (b *Bot) handleAttack(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	target := p.Arg(0)
	if target == "" {
		return []string{"Usage: `!attack <target> [dice]`"}, nil
	}
	diceExpr := p.Arg(1)
	return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
		if diceExpr != "" {
			return b.engine.DeclareAttack(tab, msg.UserID, target, diceExpr)
		}
		return b.engine.AutoAttack(tab, msg.UserID, target)
	})
}

func (b *Bot) handleDamage(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	target, diceExpr := p.Arg(0), p.Arg(1)
	if target == "" || diceExpr == "" {
		return []string{"Usage: `!damage <target> <dice>`"}, nil
	}
	return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
		return b.engine.Damage(tab, msg.UserID, target, diceExpr)
	})
}

func (b *Bot) handleInitiative(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
		return b.engine.SubmitInitiative(tab, msg.UserID, p.Arg(0))
	})
}

func (b *Bot) handlePass(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	if strings.EqualFold(p.Arg(0), "all") {
		if !b.cfg.Discord.IsGamemaster(msg.UserID) {
			return []string{"`!skip all` is a gamemaster command."}, nil
		}
		return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
			return b.engine.SkipAll(tab)
		})
	}
	return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
		return b.engine.Pass(tab, msg.UserID)
	})
}

// handleSkill runs a check or save. Unlike the other combat commands it
// works with no encounter at all: outside combat it is a free table roll.
func (b *Bot) handleSkill(ctx context.Context, msg InboundMessage, p command.ParseResult, kind string) ([]string, error) {
	label := p.Arg(0)
	if label == "" {
		return []string{fmt.Sprintf("Usage: `!%s <label> [dice]`", kind)}, nil
	}
	var lines []string
	err := b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
		tab, enc, err := b.table(ctx, s)
		if errors.Is(err, combat.ErrNoActiveEncounter) {
			tab = combat.Table{State: &s.Combat, Enc: &encounter.Encounter{}, Party: s.Party(), Pending: s.Pending}
			enc = nil
		} else if err != nil {
			return err
		}
		out, err := b.engine.SkillRoll(tab, msg.UserID, kind, strings.ToLower(label), p.Arg(1))
		if err != nil {
			return err
		}
		if enc != nil {
			if err := b.sessions.Store().SaveEncounter(ctx, s.ActiveCampaign, enc); err != nil {
				return err
			}
		}
		lines = b.withNarration(ctx, s, out)
		return nil
	})
	return lines, err
}

func (b *Bot) handleRoll(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	expr := p.Arg(0)
	if expr == "" {
		return []string{"Usage: `!roll <dice>` e.g. `!roll 2d6+3`"}, nil
	}
	result, err := b.roller.Evaluate(expr)
	if err != nil {
		return nil, err
	}
	line := fmt.Sprintf("%s rolls %s", msg.Username, result)
	err = b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
		s.Transcript.Append("", line)
		return nil
	})
	return []string{line}, err
}

// handleEncounter shows the current encounter, or prepares a fresh one
// from a named template (gamemasters only).
func (b *Bot) handleEncounter(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	if p.Arg(0) == "" {
		var lines []string
		err := b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
			tab, _, err := b.table(ctx, s)
			if errors.Is(err, combat.ErrNoActiveEncounter) {
				lines = append([]string{"No encounter is prepared."}, b.templateList()...)
				return nil
			}
			if err != nil {
				return err
			}
			lines = b.engine.Describe(tab)
			return nil
		})
		return lines, err
	}

	if !b.cfg.Discord.IsGamemaster(msg.UserID) {
		return []string{"Preparing encounters is a gamemaster command."}, nil
	}
	tmpl, ok := b.templates[strings.ToLower(p.Arg(0))]
	if !ok {
		return append([]string{fmt.Sprintf("No encounter template named %q.", p.Arg(0))}, b.templateList()...), nil
	}

	var lines []string
	err := b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
		if s.ActiveCampaign == "" {
			return errors.New("select a campaign first with `!campaign <name>`")
		}
		if s.Combat.Kind() != combat.KindNone {
			return combat.ErrEncounterInProgress
		}
		enc := tmpl.Generate(s.ActiveCampaign, b.roller.Source())
		if err := b.sessions.Store().SaveEncounter(ctx, s.ActiveCampaign, enc); err != nil {
			return err
		}
		s.CurrentEncounterID = enc.ID
		lines = append(lines, fmt.Sprintf("Encounter **%s** prepared with %d enemies. Start it with `!fight`.", enc.Name, len(enc.Enemies)))
		for _, en := range enc.Enemies {
			lines = append(lines, fmt.Sprintf("• %s [`%s`] — AC %d, HP %d", en.Name, en.ID, en.ArmorClass, en.MaxHP))
		}
		return nil
	})
	return lines, err
}

func (b *Bot) handleFight(ctx context.Context, msg InboundMessage) ([]string, error) {
	return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
		return b.engine.StartEncounter(tab)
	})
}

func (b *Bot) handleEnd(ctx context.Context, msg InboundMessage) ([]string, error) {
	return b.combatOp(ctx, msg.ChannelID, func(tab combat.Table, _ *session.Session) ([]string, error) {
		return b.engine.End(tab)
	})
}

func (b *Bot) handleCampaign(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	var lines []string
	err := b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
		if p.RawArgs == "" {
			if s.ActiveCampaign == "" {
				lines = []string{"No active campaign. Select one with `!campaign <name>`."}
				return nil
			}
			c := s.Active()
			lines = []string{fmt.Sprintf("Active campaign: **%s** (%d characters, %d NPCs)",
				c.Name, len(c.Characters), len(c.NPCs))}
			for _, name := range sortedNPCNames(c) {
				lines = append(lines, "• NPC: "+name)
			}
			return nil
		}
		if strings.EqualFold(p.Arg(0), "npc") {
			c := s.Active()
			if c == nil {
				return errors.New("select a campaign first with `!campaign <name>`")
			}
			name := p.Arg(1)
			if name == "" {
				return errors.New("usage: `!campaign npc <name> [description]`")
			}
			c.UpsertNPC(&campaign.NPC{Name: name, Description: strings.Join(p.Args[2:], " ")})
			lines = []string{fmt.Sprintf("NPC **%s** added to %s.", name, c.Name)}
			return nil
		}
		if s.Combat.Kind() != combat.KindNone {
			return combat.ErrEncounterInProgress
		}
		name := strings.TrimSpace(p.RawArgs)
		s.ActiveCampaign = name
		s.Campaign(name)
		s.CurrentEncounterID = ""
		lines = []string{fmt.Sprintf("Switched to campaign **%s**.", name)}
		return nil
	})
	return lines, err
}

var characterUsage = []string{
	"Usage:",
	"• `!character` — show your sheet",
	"• `!character create <name> <ac> <hp> [init]` — create or replace your sheet",
	"• `!character attack <name> <to-hit> <dice>` — add or replace an attack",
	"• `!character skill <label> <bonus>` / `!character save <label> <bonus>`",
}

// handleCharacter shows the caller's sheet or, with a subcommand, edits
// it. Sheet edits are refused while an encounter is running so combat
// state can't shift mid-round.
func (b *Bot) handleCharacter(ctx context.Context, msg InboundMessage, p command.ParseResult) ([]string, error) {
	var lines []string
	err := b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
		if p.Arg(0) == "" {
			lines = b.renderSheet(s, msg.UserID)
			return nil
		}

		c := s.Active()
		if c == nil {
			return errors.New("select a campaign first with `!campaign <name>`")
		}
		if s.Combat.Kind() != combat.KindNone {
			return combat.ErrEncounterInProgress
		}

		switch strings.ToLower(p.Arg(0)) {
		case "create":
			out, err := createSheet(c, msg.UserID, p)
			if err != nil {
				return err
			}
			lines = out
		case "attack", "skill", "save":
			ch, ok := c.Character(msg.UserID)
			if !ok || ch.Stats == nil {
				return errors.New("create a sheet first with `!character create`")
			}
			out, err := editSheet(ch, strings.ToLower(p.Arg(0)), p)
			if err != nil {
				return err
			}
			lines = out
		default:
			lines = characterUsage
		}
		return nil
	})
	return lines, err
}

func (b *Bot) renderSheet(s *session.Session, userID string) []string {
	ch, ok := s.CharacterFor(userID)
	if !ok {
		return append([]string{"You have no character in the active campaign."}, characterUsage...)
	}
	if ch.Stats == nil {
		return []string{fmt.Sprintf("**%s** — narrative only, no combat sheet.", ch.Name)}
	}
	lines := []string{fmt.Sprintf("**%s** — HP %d/%d, AC %d, initiative %+d",
		ch.Name, ch.Stats.CurrentHP, ch.Stats.MaxHP, ch.Stats.ArmorClass, ch.Stats.InitiativeBonus)}
	for _, atk := range ch.Stats.Attacks {
		lines = append(lines, fmt.Sprintf("• %s: %+d to hit, %s damage", atk.Name, atk.ToHit, atk.Damage))
	}
	for _, kind := range []struct {
		label  string
		labels map[string]int
	}{{"checks", ch.Stats.Skills}, {"saves", ch.Stats.Saves}} {
		if len(kind.labels) == 0 {
			continue
		}
		keys := make([]string, 0, len(kind.labels))
		for k := range kind.labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s %+d", k, kind.labels[k])
		}
		lines = append(lines, fmt.Sprintf("• %s: %s", kind.label, strings.Join(parts, ", ")))
	}
	return lines
}

func createSheet(c *campaign.Campaign, userID string, p command.ParseResult) ([]string, error) {
	name := p.Arg(1)
	ac, acErr := strconv.Atoi(p.Arg(2))
	hp, hpErr := strconv.Atoi(p.Arg(3))
	if name == "" || acErr != nil || hpErr != nil || ac <= 0 || hp <= 0 {
		return nil, errors.New("usage: `!character create <name> <ac> <hp> [init]`")
	}
	initBonus := 0
	if raw := p.Arg(4); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("initiative bonus %q is not a number", raw)
		}
		initBonus = v
	}
	c.UpsertCharacter(userID, &character.Character{
		Name: name,
		Stats: &character.Stats{
			ArmorClass:      ac,
			MaxHP:           hp,
			CurrentHP:       hp,
			InitiativeBonus: initBonus,
			Skills:          make(map[string]int),
			Saves:           make(map[string]int),
		},
	})
	return []string{fmt.Sprintf("**%s** joins the party — HP %d/%d, AC %d.", name, hp, hp, ac)}, nil
}

func editSheet(ch *character.Character, sub string, p command.ParseResult) ([]string, error) {
	switch sub {
	case "attack":
		name := p.Arg(1)
		toHit, err := strconv.Atoi(p.Arg(2))
		if name == "" || err != nil {
			return nil, errors.New("usage: `!character attack <name> <to-hit> <dice>`")
		}
		if _, err := dice.Parse(p.Arg(3)); err != nil {
			return nil, err
		}
		atk := character.Attack{Name: name, ToHit: toHit, Damage: p.Arg(3)}
		replaced := false
		for i := range ch.Stats.Attacks {
			if strings.EqualFold(ch.Stats.Attacks[i].Name, name) {
				ch.Stats.Attacks[i] = atk
				replaced = true
				break
			}
		}
		if !replaced {
			ch.Stats.Attacks = append(ch.Stats.Attacks, atk)
		}
		return []string{fmt.Sprintf("%s now has %s: %+d to hit, %s damage.", ch.Name, name, toHit, atk.Damage)}, nil
	case "skill", "save":
		label := strings.ToLower(p.Arg(1))
		bonus, err := strconv.Atoi(p.Arg(2))
		if label == "" || err != nil {
			return nil, fmt.Errorf("usage: `!character %s <label> <bonus>`", sub)
		}
		target := ch.Stats.Skills
		if sub == "save" {
			if ch.Stats.Saves == nil {
				ch.Stats.Saves = make(map[string]int)
			}
			target = ch.Stats.Saves
		} else if ch.Stats.Skills == nil {
			ch.Stats.Skills = make(map[string]int)
			target = ch.Stats.Skills
		}
		target[label] = bonus
		return []string{fmt.Sprintf("%s's %s %s is now %+d.", ch.Name, label, sub, bonus)}, nil
	}
	return nil, fmt.Errorf("unknown character subcommand %q", sub)
}

func (b *Bot) handleHelp() []string {
	byCat := b.registry.CommandsByCategory()
	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	lines := []string{"**Commands**"}
	for _, cat := range cats {
		cmds := byCat[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		lines = append(lines, fmt.Sprintf("__%s__", cat))
		for _, cmd := range cmds {
			lines = append(lines, "• `!"+cmd.Help+"`")
		}
	}
	return lines
}

func sortedNPCNames(c *campaign.Campaign) []string {
	names := make([]string, 0, len(c.NPCs))
	for name := range c.NPCs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// templateList renders the available encounter templates.
func (b *Bot) templateList() []string {
	if len(b.templates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(b.templates))
	for id := range b.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return []string{"Available templates: " + strings.Join(ids, ", ")}
}
