package stitch

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/pkg/ffmpeg"
)

type recordingBlobs struct {
	mu      sync.Mutex
	fetches int
	puts    int
}

func (r *recordingBlobs) Put(_ context.Context, _ []byte, name, _ string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	return "https://media.test/" + name
}

func (r *recordingBlobs) Fetch(context.Context, string) ([]byte, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	return []byte("mp4"), "video/mp4", nil
}

func (r *recordingBlobs) Delete(context.Context, string) bool { return true }

type transitionCall struct {
	transition    string
	firstDuration float64
	overlap       float64
}

// harness replaces the ffmpeg seams with recorders that produce real files
// so the download/upload paths still exercise the filesystem.
type harness struct {
	stitcher     *Stitcher
	blobs        *recordingBlobs
	durations    []float64
	transitions  []transitionCall
	concats      [][]string
	failPair     map[string]bool
	sessionID    uuid.UUID
	tickTimes    []float64
	tickPercents []int
}

func newHarness(t *testing.T, durations []float64) *harness {
	t.Helper()
	blobs := &recordingBlobs{}
	h := &harness{blobs: blobs, durations: durations, failPair: map[string]bool{}}
	s := NewStitcher(blobs, t.TempDir())

	clipIndex := 0
	s.normalize = func(_ context.Context, _, output string, _ *ffmpeg.NormalizeOptions) (float64, error) {
		require.NoError(t, os.WriteFile(output, []byte("norm"), 0o644))
		d := h.durations[clipIndex]
		clipIndex++
		return d, nil
	}
	s.transition = func(_ context.Context, _, _, output, transition string, firstDuration, overlap float64, onTick func(float64)) error {
		if h.failPair[output] || h.failPair["*"] {
			return errors.New("filter graph failed")
		}
		h.transitions = append(h.transitions, transitionCall{transition, firstDuration, overlap})
		for _, seconds := range h.tickTimes {
			onTick(seconds)
			if p, ok := h.stitcher.Progress(h.sessionID); ok {
				h.tickPercents = append(h.tickPercents, p.Percent)
			}
		}
		return os.WriteFile(output, []byte("joined"), 0o644)
	}
	s.concat = func(_ context.Context, inputs []string, output string) error {
		h.concats = append(h.concats, inputs)
		return os.WriteFile(output, []byte("concat"), 0o644)
	}
	s.probe = func(context.Context, string) (float64, error) { return 0, errors.New("not probed") }

	h.stitcher = s
	return h
}

func sessionWithClips(transitions ...string) *models.Session {
	session := &models.Session{ID: uuid.New()}
	for i, tr := range transitions {
		session.Scenes = append(session.Scenes, models.Scene{
			ID:         i + 1,
			Duration:   4,
			Transition: tr,
			VideoURL:   "https://media.test/clip.mp4",
		})
	}
	return session
}

func TestStitchNoScenesFails(t *testing.T) {
	h := newHarness(t, nil)
	session := &models.Session{ID: uuid.New()}

	excluded := false
	session.Scenes = []models.Scene{
		{ID: 1, VideoURL: ""},
		{ID: 2, VideoURL: "https://media.test/c.mp4", IncludeInFinal: &excluded},
	}

	_, _, err := h.stitcher.Stitch(context.Background(), session)
	assert.ErrorIs(t, err, ErrNoScenes)
	assert.Zero(t, h.blobs.fetches, "no blob traffic on an empty stitch")
	assert.Zero(t, h.blobs.puts)

	p, ok := h.stitcher.Progress(session.ID)
	require.True(t, ok)
	assert.True(t, p.Failed)
}

func TestStitchSingleSceneShortCircuits(t *testing.T) {
	h := newHarness(t, nil)
	session := sessionWithClips("fade")

	url, n, err := h.stitcher.Stitch(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, session.Scenes[0].VideoURL, url, "the lone clip is the final video")
	assert.Equal(t, 1, n)
	assert.Zero(t, h.blobs.fetches)
	assert.Zero(t, h.blobs.puts)
	assert.Empty(t, h.transitions)
	assert.Empty(t, h.concats)

	p, ok := h.stitcher.Progress(session.ID)
	require.True(t, ok)
	assert.True(t, p.Done)
	assert.Equal(t, 100, p.Percent)
}

func TestStitchCarriesMeasuredDurationsThroughReduction(t *testing.T) {
	h := newHarness(t, []float64{5.0, 4.0, 3.0})
	session := sessionWithClips("fade", "fade", "none")

	url, n, err := h.stitcher.Stitch(context.Background(), session)
	require.NoError(t, err)
	assert.Contains(t, url, "final-")
	assert.Equal(t, 3, n)

	require.Len(t, h.transitions, 2)
	assert.Equal(t, 5.0, h.transitions[0].firstDuration)
	assert.Equal(t, 0.5, h.transitions[0].overlap)
	// 5.0 + 4.0 - 0.5 overlap carried into the second fold.
	assert.Equal(t, 8.5, h.transitions[1].firstDuration)
	assert.Equal(t, 1, h.blobs.puts)
}

func TestStitchAllHardCutsUsesSingleConcat(t *testing.T) {
	h := newHarness(t, []float64{4, 4, 4})
	session := sessionWithClips("none", "none", "none")

	_, _, err := h.stitcher.Stitch(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, h.transitions)
	require.Len(t, h.concats, 1, "hard cuts collapse to one concat pass")
	assert.Len(t, h.concats[0], 3)
}

func TestStitchPairFailureFallsBackToHardCut(t *testing.T) {
	h := newHarness(t, []float64{5.0, 4.0, 3.0})
	h.failPair["*"] = true
	session := sessionWithClips("fade", "fade", "none")

	_, _, err := h.stitcher.Stitch(context.Background(), session)
	require.NoError(t, err, "a failed filter costs the crossfade, not the job")
	assert.Empty(t, h.transitions)
	require.Len(t, h.concats, 2, "each failed pair concatenates instead")
	assert.Len(t, h.concats[0], 2)
	assert.Equal(t, 1, h.blobs.puts)
}

func TestStitchUnknownTransitionsCoercedBeforeFiltering(t *testing.T) {
	h := newHarness(t, []float64{4, 4})
	session := sessionWithClips("sparkle-burst", "none")

	_, _, err := h.stitcher.Stitch(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, h.transitions, 1)
	assert.Equal(t, "fade", h.transitions[0].transition)
}

func TestStitchEncoderTicksStayWithinReductionBand(t *testing.T) {
	h := newHarness(t, []float64{5.0, 4.0, 3.0})
	h.tickTimes = []float64{0, 2.5, 6.0, 40.0}
	session := sessionWithClips("fade", "fade", "none")
	h.sessionID = session.ID

	_, _, err := h.stitcher.Stitch(context.Background(), session)
	require.NoError(t, err)

	require.NotEmpty(t, h.tickPercents)
	last := 0
	for _, pct := range h.tickPercents {
		assert.GreaterOrEqual(t, pct, 40, "reduction progress never dips below the download/normalize phases")
		assert.LessOrEqual(t, pct, 85, "reduction progress never spills into the upload phase")
		assert.GreaterOrEqual(t, pct, last, "progress is monotonic within a pair")
		last = pct
	}
	// An out-time far past the expected duration clamps at the band edge.
	assert.LessOrEqual(t, h.tickPercents[len(h.tickPercents)-1], 85)
}

func TestStitchDefaultsUnsetBoundariesToFade(t *testing.T) {
	scenes := []models.Scene{
		{ID: 1, Transition: ""},
		{ID: 2, Transition: "none"},
		{ID: 3, Transition: ""},
	}
	got := boundaryTransitions(scenes)
	assert.Equal(t, []string{"fade", "none"}, got)
}
