// Package memory provides an in-memory session.Store for development
// runs without a database and for tests. Documents round-trip through
// JSON so the behavior matches the jsonb-backed store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
)

// Store keeps serialized documents in maps. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]byte
	encounters map[string][]byte // campaign + "\x00" + encounter id
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions:   make(map[string][]byte),
		encounters: make(map[string][]byte),
	}
}

func encKey(campaignName, encounterID string) string {
	return campaignName + "\x00" + encounterID
}

// LoadSession returns the stored session for channelID, or ok=false.
func (s *Store) LoadSession(_ context.Context, channelID string) (*session.Session, bool, error) {
	s.mu.RLock()
	doc, ok := s.sessions[channelID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	var sess session.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, false, fmt.Errorf("decoding session %q: %w", channelID, err)
	}
	return &sess, true, nil
}

// SaveSession stores a serialized copy of sess.
func (s *Store) SaveSession(_ context.Context, channelID string, sess *session.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %q: %w", channelID, err)
	}
	s.mu.Lock()
	s.sessions[channelID] = doc
	s.mu.Unlock()
	return nil
}

// LoadEncounter returns the stored encounter, or ok=false.
func (s *Store) LoadEncounter(_ context.Context, campaignName, encounterID string) (*encounter.Encounter, bool, error) {
	s.mu.RLock()
	doc, ok := s.encounters[encKey(campaignName, encounterID)]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	var enc encounter.Encounter
	if err := json.Unmarshal(doc, &enc); err != nil {
		return nil, false, fmt.Errorf("decoding encounter %q/%q: %w", campaignName, encounterID, err)
	}
	return &enc, true, nil
}

// SaveEncounter normalizes and stores a serialized copy of enc.
func (s *Store) SaveEncounter(_ context.Context, campaignName string, enc *encounter.Encounter) error {
	enc.Normalize()
	if enc.CampaignName == "" {
		enc.CampaignName = campaignName
	}
	doc, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encoding encounter %q/%q: %w", campaignName, enc.ID, err)
	}
	s.mu.Lock()
	s.encounters[encKey(campaignName, enc.ID)] = doc
	s.mu.Unlock()
	return nil
}
