package scenejob

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adreel/adreel/internal/ai"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/store"
)

type fakeVideoGen struct {
	mu    sync.Mutex
	calls int
	err   error
	ticks []int
	video []byte
}

func (f *fakeVideoGen) GenerateText(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeVideoGen) GenerateImage(context.Context, string, []ai.ImageRef) (*ai.ImagePayload, error) {
	return nil, errors.New("not used")
}

func (f *fakeVideoGen) GenerateVideoFromImage(_ context.Context, _ []byte, _, _ string, onProgress ai.ProgressFunc) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	for _, tick := range f.ticks {
		onProgress(tick, "polling")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.video, nil
}

type fakeBlobs struct {
	mu       sync.Mutex
	fetchErr error
	puts     int
}

func (f *fakeBlobs) Put(_ context.Context, _ []byte, name, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	return "https://media.test/" + name
}

func (f *fakeBlobs) Fetch(_ context.Context, _ string) ([]byte, string, error) {
	if f.fetchErr != nil {
		return nil, "", f.fetchErr
	}
	return []byte("png"), "image/png", nil
}

func (f *fakeBlobs) Delete(context.Context, string) bool { return true }

func newSessionWithScenes(t *testing.T, mem *store.MemoryStore, n int) *models.Session {
	t.Helper()
	session := &models.Session{ID: uuid.New(), Status: models.SessionDraft}
	for i := 0; i < n; i++ {
		session.Scenes = append(session.Scenes, models.Scene{
			ID:       i + 1,
			Visuals:  "a scene",
			ImageURL: "https://media.test/still.png",
		})
	}
	require.NoError(t, mem.Save(context.Background(), session))
	return session
}

func TestMapPollPercent(t *testing.T) {
	assert.Equal(t, rampStart, mapPollPercent(0))
	assert.Equal(t, rampEnd, mapPollPercent(rampWindow))

	prev := 0
	for pct := 0; pct <= 100; pct++ {
		p := mapPollPercent(pct)
		assert.GreaterOrEqual(t, p, rampStart, "pct=%d", pct)
		assert.Less(t, p, crawlCap, "slow jobs must never look finished, pct=%d", pct)
		assert.GreaterOrEqual(t, p, prev, "progress went backward at pct=%d", pct)
		prev = p
	}
}

func TestSubmitCompletesJobAndAttachesClip(t *testing.T) {
	mem := store.NewMemoryStore()
	gen := &fakeVideoGen{ticks: []int{10, 30, 60}, video: []byte("mp4")}
	blobs := &fakeBlobs{}
	p := NewProcessor(mem, mem, gen, blobs)

	session := newSessionWithScenes(t, mem, 2)
	session.Scenes[1].VideoURL = "https://media.test/old-take.mp4"
	require.NoError(t, mem.Save(context.Background(), session))

	jobID, err := p.Submit(context.Background(), session.ID, 1, "a scene", session.Scenes[1].ImageURL)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, jobID)
	p.Wait()

	job, err := mem.GetJob(context.Background(), session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.NotEmpty(t, job.VideoURL)
	assert.Empty(t, job.ErrorMessage)
	assert.Equal(t, 1, blobs.puts)

	saved, err := mem.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, job.VideoURL, saved.Scenes[1].VideoURL)
	assert.Equal(t, []string{"https://media.test/old-take.mp4"}, saved.Scenes[1].SubVideos,
		"the previous clip becomes an alternate take")
}

func TestSubmitValidatesInput(t *testing.T) {
	mem := store.NewMemoryStore()
	p := NewProcessor(mem, mem, &fakeVideoGen{}, &fakeBlobs{})

	_, err := p.Submit(context.Background(), uuid.New(), 0, "", "https://x/img.png")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.Submit(context.Background(), uuid.New(), 0, "prompt", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.Submit(context.Background(), uuid.New(), -1, "prompt", "https://x/img.png")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResubmissionKeepsSingleRow(t *testing.T) {
	mem := store.NewMemoryStore()
	gen := &fakeVideoGen{video: []byte("mp4")}
	p := NewProcessor(mem, mem, gen, &fakeBlobs{})
	session := newSessionWithScenes(t, mem, 1)

	first, err := p.Submit(context.Background(), session.ID, 0, "a scene", session.Scenes[0].ImageURL)
	require.NoError(t, err)
	p.Wait()

	second, err := p.Submit(context.Background(), session.ID, 0, "a scene", session.Scenes[0].ImageURL)
	require.NoError(t, err)
	p.Wait()

	assert.NotEqual(t, first, second)
	jobs, err := mem.ListBySession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1, "one row per (session, scene) pair")
	assert.Equal(t, second, jobs[0].ID)
	assert.Equal(t, 2, gen.calls)
}

func TestImageFetchFailureFailsJob(t *testing.T) {
	mem := store.NewMemoryStore()
	p := NewProcessor(mem, mem, &fakeVideoGen{}, &fakeBlobs{fetchErr: errors.New("404")})
	session := newSessionWithScenes(t, mem, 1)

	_, err := p.Submit(context.Background(), session.ID, 0, "a scene", session.Scenes[0].ImageURL)
	require.NoError(t, err)
	p.Wait()

	job, err := mem.GetJob(context.Background(), session.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "could not fetch scene image")
}

func TestGenerationTimeoutFailsJob(t *testing.T) {
	mem := store.NewMemoryStore()
	gen := &fakeVideoGen{ticks: []int{50, 100}, err: ai.ErrTimeout}
	p := NewProcessor(mem, mem, gen, &fakeBlobs{})
	session := newSessionWithScenes(t, mem, 1)

	_, err := p.Submit(context.Background(), session.ID, 0, "a scene", session.Scenes[0].ImageURL)
	require.NoError(t, err)
	p.Wait()

	job, err := mem.GetJob(context.Background(), session.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "video generation timed out", job.ErrorMessage)
	assert.Less(t, lastNonTerminal(gen), 100, "generation band stays below completion")
}

func lastNonTerminal(gen *fakeVideoGen) int {
	max := 0
	for _, tick := range gen.ticks {
		if p := mapPollPercent(tick); p > max {
			max = p
		}
	}
	return max
}

func TestSubmitAllSkipsScenesWithoutImages(t *testing.T) {
	mem := store.NewMemoryStore()
	gen := &fakeVideoGen{video: []byte("mp4")}
	p := NewProcessor(mem, mem, gen, &fakeBlobs{})
	session := newSessionWithScenes(t, mem, 3)
	session.Scenes[1].ImageURL = ""
	require.NoError(t, mem.Save(context.Background(), session))

	jobIDs, err := p.SubmitAll(context.Background(), session.ID, session.Scenes)
	require.NoError(t, err)
	require.Len(t, jobIDs, 2)
	p.Wait()

	jobs, err := p.Status(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 0, jobs[0].SceneIndex)
	assert.Equal(t, 2, jobs[1].SceneIndex)

	// The returned IDs are the queued rows, in scene order.
	assert.Equal(t, []uuid.UUID{jobs[0].ID, jobs[1].ID}, jobIDs)
}
