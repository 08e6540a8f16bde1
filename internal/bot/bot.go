package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mjholt/tavern/internal/config"
	"github.com/mjholt/tavern/internal/game/combat"
	"github.com/mjholt/tavern/internal/game/command"
	"github.com/mjholt/tavern/internal/game/dice"
	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
	"github.com/mjholt/tavern/internal/narrator"
)

// Bot glues the transport, the command surface, the session manager, and
// the combat engine together. Every inbound event runs as its own
// logical worker; the per-channel lock inside session.Manager serializes
// same-channel events in arrival order.
type Bot struct {
	cfg       config.Config
	sessions  *session.Manager
	engine    *combat.Engine
	roller    *dice.Roller
	narr      narrator.Narrator
	templates map[string]*encounter.Template
	registry  *command.Registry
	transport Transport
	logger    *zap.Logger
}

// New creates a Bot.
//
// Precondition: all collaborators must be non-nil; pass narrator.Disabled
// when narration is off and an empty template map when none are loaded.
func New(
	cfg config.Config,
	sessions *session.Manager,
	engine *combat.Engine,
	roller *dice.Roller,
	narr narrator.Narrator,
	templates map[string]*encounter.Template,
	transport Transport,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		cfg:       cfg,
		sessions:  sessions,
		engine:    engine,
		roller:    roller,
		narr:      narr,
		templates: templates,
		registry:  command.DefaultRegistry(),
		transport: transport,
		logger:    logger,
	}
}

// HandleMessage processes one inbound chat message end to end: parse,
// run under the channel lock, persist, reply. Errors are relayed to the
// channel as short user-visible text, never crashed on.
func (b *Bot) HandleMessage(ctx context.Context, msg InboundMessage) {
	var reply []string
	var err error

	if command.IsCommand(msg.Content) {
		reply, err = b.dispatch(ctx, msg)
	} else {
		reply, err = b.freeform(ctx, msg)
	}
	if err != nil {
		reply = append(reply, err.Error())
	}
	if len(reply) == 0 {
		return
	}

	if sendErr := b.transport.Send(ctx, msg.ChannelID, strings.Join(reply, "\n")); sendErr != nil {
		b.logger.Error("sending reply",
			zap.String("channel_id", msg.ChannelID),
			zap.Error(sendErr),
		)
	}
}

// dispatch routes a parsed command to its handler.
func (b *Bot) dispatch(ctx context.Context, msg InboundMessage) ([]string, error) {
	p := command.Parse(msg.Content)
	cmd, ok := b.registry.Resolve(p.Verb)
	if !ok {
		return []string{fmt.Sprintf("Unknown command `!%s` — try `!help`.", p.Verb)}, nil
	}
	if cmd.Privileged && !b.cfg.Discord.IsGamemaster(msg.UserID) {
		return []string{fmt.Sprintf("`!%s` is a gamemaster command.", cmd.Name)}, nil
	}

	b.logger.Debug("dispatching command",
		zap.String("channel_id", msg.ChannelID),
		zap.String("user_id", msg.UserID),
		zap.String("verb", cmd.Name),
	)

	switch cmd.Handler {
	case command.HandlerAttack:
		return b.handleAttack(ctx, msg, p)
	case command.HandlerDamage:
		return b.handleDamage(ctx, msg, p)
	case command.HandlerInitiative:
		return b.handleInitiative(ctx, msg, p)
	case command.HandlerPass:
		return b.handlePass(ctx, msg, p)
	case command.HandlerCheck:
		return b.handleSkill(ctx, msg, p, "check")
	case command.HandlerSave:
		return b.handleSkill(ctx, msg, p, "save")
	case command.HandlerRoll:
		return b.handleRoll(ctx, msg, p)
	case command.HandlerEncounter:
		return b.handleEncounter(ctx, msg, p)
	case command.HandlerFight:
		return b.handleFight(ctx, msg)
	case command.HandlerEnd:
		return b.handleEnd(ctx, msg)
	case command.HandlerCampaign:
		return b.handleCampaign(ctx, msg, p)
	case command.HandlerCharacter:
		return b.handleCharacter(ctx, msg, p)
	case command.HandlerHelp:
		return b.handleHelp(), nil
	default:
		return nil, fmt.Errorf("command %q has no handler", cmd.Name)
	}
}

// freeform handles a non-command message: it lands in the transcript,
// and during an active player phase the narrator may route it to a
// proposed action. The engine validates and rolls the proposal exactly
// like an explicit command; a rejected proposal is silently dropped.
func (b *Bot) freeform(ctx context.Context, msg InboundMessage) ([]string, error) {
	var lines []string
	err := b.sessions.With(ctx, msg.ChannelID, func(s *session.Session) error {
		s.Transcript.Append(msg.Username, msg.Content)

		if s.Combat.Kind() != combat.KindPlayer {
			return nil
		}
		intent, err := b.narr.Route(ctx, b.narratorContext(s, ""), msg.Content)
		if err != nil {
			b.logger.Warn("routing failed", zap.Error(err))
			return nil
		}
		if intent == nil {
			return nil
		}

		tab, enc, err := b.table(ctx, s)
		if err != nil {
			return nil
		}
		var out []string
		switch intent.Tool {
		case "attack":
			out, err = b.engine.AutoAttack(tab, msg.UserID, intent.Target)
		case "pass":
			out, err = b.engine.Pass(tab, msg.UserID)
		}
		if err != nil {
			// A proposal the engine rejects is not the player's error.
			b.logger.Debug("routed action rejected", zap.Error(err))
			return nil
		}
		if saveErr := b.sessions.Store().SaveEncounter(ctx, s.ActiveCampaign, enc); saveErr != nil {
			return saveErr
		}
		lines = b.withNarration(ctx, s, out)
		return nil
	})
	return lines, err
}

// table assembles the engine's working set from the session, loading the
// current encounter document.
func (b *Bot) table(ctx context.Context, s *session.Session) (combat.Table, *encounter.Encounter, error) {
	if s.ActiveCampaign == "" || s.CurrentEncounterID == "" {
		return combat.Table{}, nil, combat.ErrNoActiveEncounter
	}
	enc, ok, err := b.sessions.Store().LoadEncounter(ctx, s.ActiveCampaign, s.CurrentEncounterID)
	if err != nil {
		return combat.Table{}, nil, err
	}
	if !ok {
		return combat.Table{}, nil, combat.ErrNoActiveEncounter
	}
	return combat.Table{
		State:   &s.Combat,
		Enc:     enc,
		Party:   s.Party(),
		Pending: s.Pending,
	}, enc, nil
}

// withNarration appends the lines to the transcript and, when narration
// is on, asks the narrator for story text to follow the mechanics.
func (b *Bot) withNarration(ctx context.Context, s *session.Session, lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	event := strings.Join(lines, "\n")
	s.Transcript.Append("", event)

	text, err := b.narr.Narrate(ctx, b.narratorContext(s, event))
	if err != nil {
		b.logger.Warn("narration failed", zap.Error(err))
		return lines
	}
	if text != "" {
		s.Transcript.Append("", text)
		lines = append(lines, "", "*"+text+"*")
	}
	return lines
}

// narratorContext builds the textual bundle for narration and routing.
func (b *Bot) narratorContext(s *session.Session, event string) narrator.Context {
	nc := narrator.Context{
		CampaignName: s.ActiveCampaign,
		Transcript:   s.Transcript.Lines(),
		Event:        event,
	}
	if c := s.Active(); c != nil {
		for _, ch := range c.Characters {
			if ch.Stats != nil {
				nc.Roster = append(nc.Roster, fmt.Sprintf("%s — HP %d/%d, AC %d",
					ch.Name, ch.Stats.CurrentHP, ch.Stats.MaxHP, ch.Stats.ArmorClass))
			} else {
				nc.Roster = append(nc.Roster, ch.Name)
			}
		}
	}
	return nc
}
