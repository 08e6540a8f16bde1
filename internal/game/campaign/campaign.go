// Package campaign defines the campaign aggregate: freeform narrative
// content plus the PC and NPC rosters. Content is opaque to the combat
// engine.
package campaign

import "github.com/mjholt/tavern/internal/game/character"

// NPC is a named non-player character in the campaign roster. NPC
// dialogue is narrated externally; the engine only tracks the roster.
type NPC struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Campaign holds one campaign's narrative content and rosters.
// Campaigns are created lazily on first reference.
type Campaign struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	// Characters maps chat user id → player character.
	Characters map[string]*character.Character `json:"characters,omitempty"`
	// NPCs maps NPC name → NPC.
	NPCs map[string]*NPC `json:"npcs,omitempty"`
}

// New creates an empty Campaign with the given name.
//
// Precondition: name must be non-empty.
func New(name string) *Campaign {
	return &Campaign{
		Name:       name,
		Characters: make(map[string]*character.Character),
		NPCs:       make(map[string]*NPC),
	}
}

// Character returns the PC owned by userID.
//
// Postcondition: Returns (character, true) if found, or (nil, false).
func (c *Campaign) Character(userID string) (*character.Character, bool) {
	ch, ok := c.Characters[userID]
	return ch, ok
}

// UpsertCharacter stores ch as userID's character, replacing any previous one.
//
// Precondition: userID must be non-empty; ch must be non-nil.
func (c *Campaign) UpsertCharacter(userID string, ch *character.Character) {
	if c.Characters == nil {
		c.Characters = make(map[string]*character.Character)
	}
	c.Characters[userID] = ch
}

// UpsertNPC stores npc in the roster keyed by its name.
//
// Precondition: npc must be non-nil with a non-empty Name.
func (c *Campaign) UpsertNPC(npc *NPC) {
	if c.NPCs == nil {
		c.NPCs = make(map[string]*NPC)
	}
	c.NPCs[npc.Name] = npc
}
