// Package session owns the per-channel game state: the Session aggregate
// that every command mutates, and the Manager that serializes access to
// it with one exclusive lock per chat channel.
package session

import (
	"github.com/mjholt/tavern/internal/game/campaign"
	"github.com/mjholt/tavern/internal/game/character"
	"github.com/mjholt/tavern/internal/game/combat"
)

// Session is the complete game state of one chat channel. It is owned
// exclusively by that channel: reads and writes happen only inside
// Manager.With, so the struct itself carries no locking.
type Session struct {
	ChannelID      string `json:"channelId"`
	ActiveCampaign string `json:"activeCampaign,omitempty"`
	// Campaigns maps campaign name → campaign, created lazily on first
	// reference.
	Campaigns map[string]*campaign.Campaign `json:"campaigns,omitempty"`
	// CurrentEncounterID names the prepared or active encounter targeted
	// by combat commands. It survives combat ending so the roster stays
	// inspectable.
	CurrentEncounterID string `json:"currentEncounterId,omitempty"`
	// Combat is the phase state machine, 1:1 with at most one active
	// encounter.
	Combat combat.State `json:"combatState"`
	// Pending holds in-flight declared attacks keyed by user id.
	Pending combat.PendingTracker `json:"pendingHits,omitempty"`
	// Transcript is the recent-lines ring fed to the narrator as context.
	Transcript *Transcript `json:"transcript,omitempty"`
}

// New creates an empty Session for channelID.
func New(channelID string) *Session {
	return &Session{
		ChannelID:  channelID,
		Campaigns:  make(map[string]*campaign.Campaign),
		Pending:    combat.NewPendingTracker(),
		Transcript: NewTranscript(DefaultTranscriptCap),
	}
}

// normalize repairs nil collections after a JSON load so callers never
// need nil checks.
func (s *Session) normalize() {
	if s.Campaigns == nil {
		s.Campaigns = make(map[string]*campaign.Campaign)
	}
	if s.Pending == nil {
		s.Pending = combat.NewPendingTracker()
	}
	if s.Transcript == nil {
		s.Transcript = NewTranscript(DefaultTranscriptCap)
	}
}

// Campaign returns the campaign by name, creating it on first reference.
//
// Precondition: name must be non-empty.
func (s *Session) Campaign(name string) *campaign.Campaign {
	c, ok := s.Campaigns[name]
	if !ok {
		c = campaign.New(name)
		s.Campaigns[name] = c
	}
	return c
}

// Active returns the active campaign, or nil when none is selected.
func (s *Session) Active() *campaign.Campaign {
	if s.ActiveCampaign == "" {
		return nil
	}
	return s.Campaign(s.ActiveCampaign)
}

// Party returns the active campaign's roster in the combat engine's
// shape. The map shares the campaign's Character pointers, so damage
// applied during combat lands on the persisted sheets.
func (s *Session) Party() combat.Party {
	c := s.Active()
	if c == nil {
		return combat.Party{}
	}
	party := make(combat.Party, len(c.Characters))
	for uid, ch := range c.Characters {
		party[uid] = ch
	}
	return party
}

// CharacterFor returns the acting user's PC in the active campaign.
func (s *Session) CharacterFor(userID string) (*character.Character, bool) {
	c := s.Active()
	if c == nil {
		return nil, false
	}
	return c.Character(userID)
}
