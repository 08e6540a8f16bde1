// Package command provides the `!`-prefixed chat command surface: the
// parser, the registry, and the built-in command definitions the bot
// dispatches on.
package command

// Categories for organizing commands in help output.
const (
	CategoryCombat    = "combat"
	CategoryRolls     = "rolls"
	CategoryCampaign  = "campaign"
	CategorySystem    = "system"
	CategoryPrivleged = "gamemaster"
)

// Handler identifiers mapping commands to bot dispatch targets.
const (
	HandlerAttack     = "attack"
	HandlerDamage     = "damage"
	HandlerInitiative = "initiative"
	HandlerPass       = "pass"
	HandlerCheck      = "check"
	HandlerSave       = "save"
	HandlerEncounter  = "encounter"
	HandlerFight      = "fight"
	HandlerEnd        = "end"
	HandlerCampaign   = "campaign"
	HandlerCharacter  = "character"
	HandlerRoll       = "roll"
	HandlerHelp       = "help"
)

// Command defines a player-invocable chat command.
type Command struct {
	// Name is the canonical command verb, without the `!` prefix.
	Name string
	// Aliases are alternate verbs for this command.
	Aliases []string
	// Help is the short usage line shown by !help.
	Help string
	// Category groups the command in help output.
	Category string
	// Handler maps the command to a bot dispatch target.
	Handler string
	// Privileged restricts the command to configured gamemasters.
	Privileged bool
}

// BuiltinCommands returns every built-in command.
func BuiltinCommands() []Command {
	return []Command{
		// Combat
		{Name: "attack", Aliases: []string{"att"}, Help: "attack <target> [dice] — declare an attack roll", Category: CategoryCombat, Handler: HandlerAttack},
		{Name: "damage", Aliases: []string{"dmg"}, Help: "damage <target> <dice> — roll damage for a declared hit", Category: CategoryCombat, Handler: HandlerDamage},
		{Name: "initiative", Aliases: []string{"init"}, Help: "initiative [bonus] — roll initiative", Category: CategoryCombat, Handler: HandlerInitiative},
		{Name: "pass", Aliases: []string{"skip"}, Help: "pass — forfeit your turn (or `skip all` as gamemaster)", Category: CategoryCombat, Handler: HandlerPass},
		{Name: "targets", Aliases: nil, Help: "targets — list living enemies", Category: CategoryCombat, Handler: HandlerEncounter},

		// Rolls
		{Name: "check", Aliases: nil, Help: "check <skill> [dice] — roll a skill check", Category: CategoryRolls, Handler: HandlerCheck},
		{Name: "save", Aliases: nil, Help: "save <label> [dice] — roll a saving throw", Category: CategoryRolls, Handler: HandlerSave},
		{Name: "roll", Aliases: []string{"r"}, Help: "roll <dice> — roll arbitrary dice", Category: CategoryRolls, Handler: HandlerRoll},

		// Campaign
		{Name: "campaign", Aliases: nil, Help: "campaign [name] — show or switch the active campaign (`campaign npc <name>` adds an NPC)", Category: CategoryCampaign, Handler: HandlerCampaign},
		{Name: "character", Aliases: []string{"char"}, Help: "character — show or edit your character sheet", Category: CategoryCampaign, Handler: HandlerCharacter},
		{Name: "encounter", Aliases: []string{"enc"}, Help: "encounter [template] — show or prepare an encounter", Category: CategoryCampaign, Handler: HandlerEncounter},

		// Gamemaster
		{Name: "fight", Aliases: []string{"start"}, Help: "fight — start the prepared encounter", Category: CategoryPrivleged, Handler: HandlerFight, Privileged: true},
		{Name: "end", Aliases: nil, Help: "end — end the active encounter", Category: CategoryPrivleged, Handler: HandlerEnd, Privileged: true},

		// System
		{Name: "help", Aliases: []string{"h"}, Help: "help — list commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}
