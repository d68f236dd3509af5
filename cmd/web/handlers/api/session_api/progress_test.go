package session_api

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/stitch"
	"github.com/adreel/adreel/internal/store"
)

// nullBlobs satisfies blob.Store for paths that never touch media.
type nullBlobs struct{}

func (nullBlobs) Put(context.Context, []byte, string, string) string    { return "" }
func (nullBlobs) Fetch(context.Context, string) ([]byte, string, error) { return nil, "", nil }
func (nullBlobs) Delete(context.Context, string) bool                   { return true }

func TestProgressSnapshotPrefersLiveTracker(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := creative.NewService(mem, mem, nil, nil, nullBlobs{})
	stitcher := stitch.NewStitcher(nullBlobs{}, t.TempDir())

	session := &models.Session{
		ID:     uuid.New(),
		Status: models.SessionGenerating,
		Scenes: []models.Scene{{ID: 1, VideoURL: "https://media.test/clip-1.mp4"}},
	}
	require.NoError(t, mem.Save(context.Background(), session))

	// A single-scene stitch completes immediately, leaving a live tracker
	// entry at 100 while the persisted VideoProgress is still zero.
	_, _, err := stitcher.Stitch(context.Background(), session)
	require.NoError(t, err)

	resp, err := progressSnapshot(context.Background(), svc, stitcher, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Percent, "live tracker wins over the persisted value")
	assert.Equal(t, "completed", resp.Stage)
	assert.Equal(t, models.SessionGenerating, resp.Status)
}

func TestProgressSnapshotFallsBackToPersistedValue(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := creative.NewService(mem, mem, nil, nil, nullBlobs{})
	stitcher := stitch.NewStitcher(nullBlobs{}, t.TempDir())

	session := &models.Session{
		ID:            uuid.New(),
		Status:        models.SessionGenerating,
		VideoProgress: 55,
	}
	require.NoError(t, mem.Save(context.Background(), session))

	resp, err := progressSnapshot(context.Background(), svc, stitcher, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, resp.Percent, "no live tracker, the stored progress stands")
	assert.Empty(t, resp.Stage)
}
