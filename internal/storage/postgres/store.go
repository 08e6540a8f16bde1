package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
)

// Store persists session and encounter documents as jsonb rows. It
// implements session.Store.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
//
// Precondition: pool must be a valid, open connection pool.
func NewStore(pool *Pool) *Store {
	return &Store{db: pool.DB()}
}

// LoadSession returns the session document for channelID.
//
// Postcondition: Returns (session, true, nil) when present, (nil, false,
// nil) when absent, or a non-nil error.
func (s *Store) LoadSession(ctx context.Context, channelID string) (*session.Session, bool, error) {
	var doc []byte
	err := s.db.QueryRow(ctx,
		`SELECT doc FROM sessions WHERE channel_id = $1`, channelID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading session %q: %w", channelID, err)
	}

	var sess session.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, false, fmt.Errorf("decoding session %q: %w", channelID, err)
	}
	return &sess, true, nil
}

// SaveSession upserts the full session document. Saves are idempotent,
// so a retry after a failed save is always safe.
func (s *Store) SaveSession(ctx context.Context, channelID string, sess *session.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %q: %w", channelID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (channel_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (channel_id) DO UPDATE SET doc = $2, updated_at = now()`,
		channelID, doc,
	)
	if err != nil {
		return fmt.Errorf("saving session %q: %w", channelID, err)
	}
	return nil
}

// LoadEncounter returns the encounter document.
//
// Postcondition: Returns (encounter, true, nil) when present, (nil,
// false, nil) when absent, or a non-nil error.
func (s *Store) LoadEncounter(ctx context.Context, campaignName, encounterID string) (*encounter.Encounter, bool, error) {
	var doc []byte
	err := s.db.QueryRow(ctx,
		`SELECT doc FROM encounters WHERE campaign_name = $1 AND encounter_id = $2`,
		campaignName, encounterID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading encounter %q/%q: %w", campaignName, encounterID, err)
	}

	var enc encounter.Encounter
	if err := json.Unmarshal(doc, &enc); err != nil {
		return nil, false, fmt.Errorf("decoding encounter %q/%q: %w", campaignName, encounterID, err)
	}
	return &enc, true, nil
}

// SaveEncounter normalizes and upserts the encounter document. The store
// owns range clamping and id defaulting on write, so persisted documents
// always round-trip clean.
func (s *Store) SaveEncounter(ctx context.Context, campaignName string, enc *encounter.Encounter) error {
	enc.Normalize()
	if enc.CampaignName == "" {
		enc.CampaignName = campaignName
	}
	doc, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encoding encounter %q/%q: %w", campaignName, enc.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO encounters (campaign_name, encounter_id, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (campaign_name, encounter_id) DO UPDATE SET doc = $3, updated_at = now()`,
		campaignName, enc.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("saving encounter %q/%q: %w", campaignName, enc.ID, err)
	}
	return nil
}
