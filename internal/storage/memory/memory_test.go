package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjholt/tavern/internal/game/encounter"
	"github.com/mjholt/tavern/internal/game/session"
)

func TestStore_SessionIsolation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	s := session.New("chan-1")
	s.ActiveCampaign = "Greyhollow"
	require.NoError(t, store.SaveSession(ctx, "chan-1", s))

	// Mutating the original after save must not leak into the store.
	s.ActiveCampaign = "Elsewhere"

	back, found, err := store.LoadSession(ctx, "chan-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Greyhollow", back.ActiveCampaign)

	_, found, err = store.LoadSession(ctx, "chan-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_EncounterKeyedByCampaign(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	enc := &encounter.Encounter{
		ID:      "enc-1",
		Name:    "Bridge Troll",
		Enemies: []*encounter.Enemy{{Name: "Troll", ArmorClass: 15, MaxHP: 30, CurrentHP: 30, Damage: "2d6"}},
	}
	require.NoError(t, store.SaveEncounter(ctx, "Greyhollow", enc))

	_, found, err := store.LoadEncounter(ctx, "OtherCampaign", "enc-1")
	require.NoError(t, err)
	assert.False(t, found, "encounters are scoped per campaign")

	back, found, err := store.LoadEncounter(ctx, "Greyhollow", "enc-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Troll", back.Enemies[0].Name)
	assert.Equal(t, "Greyhollow", back.CampaignName, "campaign name defaulted on save")
}
