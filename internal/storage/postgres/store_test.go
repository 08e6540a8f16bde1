package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjholt/tavern/internal/game/character"
	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
	"github.com/mjholt/tavern/internal/storage/postgres"
	"github.com/mjholt/tavern/internal/testutil"
)

func TestStore_SessionRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	store := postgres.NewStore(pc.Pool)
	ctx := context.Background()

	_, found, err := store.LoadSession(ctx, "chan-1")
	require.NoError(t, err)
	assert.False(t, found, "no session before first save")

	s := session.New("chan-1")
	s.ActiveCampaign = "Greyhollow"
	s.Campaign("Greyhollow").UpsertCharacter("alice", &character.Character{
		Name:  "Alice",
		Stats: &character.Stats{ArmorClass: 14, MaxHP: 12, CurrentHP: 9},
	})
	s.Transcript.Append("Alice", "draws her sword")
	require.NoError(t, store.SaveSession(ctx, "chan-1", s))

	back, found, err := store.LoadSession(ctx, "chan-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Greyhollow", back.ActiveCampaign)
	ch, ok := back.Campaign("Greyhollow").Character("alice")
	require.True(t, ok)
	assert.Equal(t, 9, ch.Stats.CurrentHP)

	// Saves are idempotent upserts.
	s.Campaign("Greyhollow").Characters["alice"].Stats.CurrentHP = 4
	require.NoError(t, store.SaveSession(ctx, "chan-1", s))
	back, _, err = store.LoadSession(ctx, "chan-1")
	require.NoError(t, err)
	ch, _ = back.Campaign("Greyhollow").Character("alice")
	assert.Equal(t, 4, ch.Stats.CurrentHP)
}

func TestStore_EncounterRoundTripAndNormalization(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	store := postgres.NewStore(pc.Pool)
	ctx := context.Background()

	enc := &encounter.Encounter{
		Name:         "Warehouse Ambush",
		WinCondition: encounter.WinCondition{Type: encounter.WinSurviveRounds, TargetRounds: 99},
		Enemies: []*encounter.Enemy{
			{Name: "Bandit", ArmorClass: 40, MaxHP: 9000, CurrentHP: 9000, Damage: "1d6"},
		},
	}
	require.NoError(t, store.SaveEncounter(ctx, "Greyhollow", enc))
	assert.NotEmpty(t, enc.ID, "save must default the encounter id")

	back, found, err := store.LoadEncounter(ctx, "Greyhollow", enc.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Greyhollow", back.CampaignName)
	assert.Equal(t, encounter.MaxRounds, back.WinCondition.TargetRounds, "target rounds clamped on write")
	assert.Equal(t, encounter.MaxArmorClass, back.Enemies[0].ArmorClass, "armor class clamped on write")
	assert.Equal(t, encounter.MaxMaxHP, back.Enemies[0].MaxHP)
	assert.NotEmpty(t, back.Enemies[0].ID)

	_, found, err = store.LoadEncounter(ctx, "Greyhollow", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
