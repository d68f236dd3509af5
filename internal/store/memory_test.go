package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adreel/adreel/internal/models"
)

func TestMemoryStoreSessionsDoNotAliasCallerSlices(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()

	session := &models.Session{
		ID: uuid.New(),
		Scenes: []models.Scene{
			{ID: 1, VideoURL: "https://media.test/a.mp4", SubVideos: []string{"https://media.test/a-alt.mp4"}},
			{ID: 2, VideoURL: "https://media.test/b.mp4"},
		},
		CharacterCandidates: []models.Candidate{{ID: 1, URL: "https://media.test/c1.png"}},
	}
	require.NoError(t, mem.Save(ctx, session))

	// Mutating the caller's copy after Save must not reach the store.
	session.Scenes[0].VideoURL = "mutated"
	session.Scenes[0].SubVideos[0] = "mutated"
	session.CharacterCandidates[0].Selected = true

	saved, err := mem.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/a.mp4", saved.Scenes[0].VideoURL)
	assert.Equal(t, []string{"https://media.test/a-alt.mp4"}, saved.Scenes[0].SubVideos)
	assert.False(t, saved.CharacterCandidates[0].Selected)

	// Two readers must not share scene backing arrays either.
	first, err := mem.Get(ctx, session.ID)
	require.NoError(t, err)
	second, err := mem.Get(ctx, session.ID)
	require.NoError(t, err)

	first.Scenes[1].VideoURL = "first-writer"
	first.Scenes[0].SubVideos = append(first.Scenes[0].SubVideos, "first-extra")
	assert.Equal(t, "https://media.test/b.mp4", second.Scenes[1].VideoURL)
	assert.Len(t, second.Scenes[0].SubVideos, 1)
}

func TestMemoryStoreClonesIncludeFlag(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()

	excluded := false
	session := &models.Session{
		ID:     uuid.New(),
		Scenes: []models.Scene{{ID: 1, IncludeInFinal: &excluded}},
	}
	require.NoError(t, mem.Save(ctx, session))

	got, err := mem.Get(ctx, session.ID)
	require.NoError(t, err)
	*got.Scenes[0].IncludeInFinal = true

	again, err := mem.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, again.Scenes[0].Included())
}
