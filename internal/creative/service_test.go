package creative

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

// fakeGen is a scriptable ai.Client.
type fakeGen struct {
	mu         sync.Mutex
	text       string
	textErr    error
	imageErr   error
	imageCalls int
}

func (f *fakeGen) GenerateText(_ context.Context, _, _ string) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *fakeGen) GenerateImage(_ context.Context, _ string, _ []ai.ImageRef) (*ai.ImagePayload, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &ai.ImagePayload{Bytes: []byte("png-bytes"), MimeType: "image/png"}, nil
}

func (f *fakeGen) GenerateVideoFromImage(_ context.Context, _ []byte, _, _ string, _ ai.ProgressFunc) ([]byte, error) {
	return nil, errors.New("not used in these tests")
}

// fakeBlobs records puts and deletes; Fetch serves canned bytes.
type fakeBlobs struct {
	mu      sync.Mutex
	puts    []string
	deleted []string
}

func (f *fakeBlobs) Put(_ context.Context, _ []byte, name, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, name)
	return "https://media.test/" + name
}

func (f *fakeBlobs) Fetch(_ context.Context, url string) ([]byte, string, error) {
	return []byte("ref-bytes"), "image/png", nil
}

func (f *fakeBlobs) Delete(_ context.Context, url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return true
}

type fakeCatalog struct {
	product *models.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if f.product == nil || f.product.ID != id {
		return nil, store.ErrNotFound
	}
	return f.product, nil
}

type fixture struct {
	svc     *Service
	gen     *fakeGen
	blobs   *fakeBlobs
	mem     *store.MemoryStore
	product *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        "GlowBrush",
		Description: "A sonic toothbrush with a built-in timer",
		ImageURL:    "https://media.test/products/glowbrush.png",
	}
	gen := &fakeGen{}
	blobs := &fakeBlobs{}
	mem := store.NewMemoryStore()
	svc := NewService(mem, mem, &fakeCatalog{product: product}, gen, blobs)
	return &fixture{svc: svc, gen: gen, blobs: blobs, mem: mem, product: product}
}

func (f *fixture) createSession(t *testing.T) *models.Session {
	t.Helper()
	session, err := f.svc.CreateSession(context.Background(), uuid.New(), f.product.ID, "spring push")
	require.NoError(t, err)
	return session
}

func demo() models.TargetDemographic {
	return models.TargetDemographic{
		AgeBand:   "25-34",
		Gender:    "any",
		Interests: []string{"fitness", "self-care"},
		Tone:      "upbeat",
	}
}

func TestCreateSessionRequiresProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSession(context.Background(), uuid.New(), uuid.Nil, "x")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateSession(context.Background(), uuid.New(), uuid.New(), "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetDemographicsFallsBackToTemplate(t *testing.T) {
	f := newFixture(t)
	f.gen.textErr = errors.New("provider down")
	session := f.createSession(t)

	// Provider failure must never surface; the template script comes back.
	script, err := f.svc.SetDemographics(context.Background(), session.ID, demo())
	require.NoError(t, err)
	require.Len(t, script.AdScript.Scenes, 5)
	assert.NotEmpty(t, script.CharacterPrompt)
	assert.Equal(t, "none", script.AdScript.Scenes[4].Transition)

	saved, err := f.svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepCharacter, saved.CurrentStep)
	assert.Len(t, saved.Scenes, 5)
}

func TestSetDemographicsParsesGeneratedScript(t *testing.T) {
	f := newFixture(t)
	f.gen.text = "```json\n" + `{
		"customerAvatar": "a busy commuter",
		"productBreakdown": "cleans better, faster, cheaper",
		"characterPrompt": "an energetic woman in her 30s",
		"scenes": [
			{"section": "Hook", "visuals": "v1", "dialogue": "d1", "cameraMotion": "push", "transition": "fade", "duration": 3},
			{"section": "Problem", "visuals": "v2", "dialogue": "d2", "cameraMotion": "sway", "transition": "fade", "duration": 4}
		]
	}` + "\n```"
	session := f.createSession(t)

	script, err := f.svc.SetDemographics(context.Background(), session.ID, demo())
	require.NoError(t, err)
	require.Len(t, script.AdScript.Scenes, 2)
	assert.Equal(t, 1, script.AdScript.Scenes[0].ID)
	assert.Equal(t, 2, script.AdScript.Scenes[1].ID)
	assert.Equal(t, "an energetic woman in her 30s", script.CharacterPrompt)
}

func TestGenerateCharactersRequiresDescription(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t)

	_, err := f.svc.GenerateCharacters(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestGenerateCharactersAllFailuresYieldFourPlaceholders(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t)
	_, err := f.svc.SetDemographics(context.Background(), session.ID, demo())
	require.NoError(t, err)

	f.gen.imageErr = errors.New("quota exceeded")

	candidates, err := f.svc.GenerateCharacters(context.Background(), session.ID)
	require.NoError(t, err, "all-fail must degrade, not error")
	require.Len(t, candidates, 4)
	for i, cand := range candidates {
		assert.Equal(t, i+1, cand.ID)
		assert.Contains(t, cand.URL, "placehold.co")
	}
	assert.Empty(t, f.blobs.puts, "placeholders are fixed URLs, not uploads")
}

func TestGenerateCharactersUploadsSuccesses(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t)
	_, err := f.svc.SetDemographics(context.Background(), session.ID, demo())
	require.NoError(t, err)

	candidates, err := f.svc.GenerateCharacters(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 4)
	assert.Equal(t, 4, f.gen.imageCalls)
	assert.Len(t, f.blobs.puts, 4)
}

func TestGenerateProductShotsRequiresCharacter(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t)
	_, err := f.svc.SetDemographics(context.Background(), session.ID, demo())
	require.NoError(t, err)

	_, err = f.svc.GenerateProductShots(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestStepAdvancesMonotonically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.createSession(t)

	steps := []int{session.CurrentStep}
	record := func() {
		s, err := f.svc.GetSession(ctx, session.ID)
		require.NoError(t, err)
		steps = append(steps, s.CurrentStep)
	}

	_, err := f.svc.SetDemographics(ctx, session.ID, demo())
	require.NoError(t, err)
	record()

	_, err = f.svc.GenerateCharacters(ctx, session.ID)
	require.NoError(t, err)
	record()

	require.NoError(t, f.svc.SelectCharacter(ctx, session.ID, "https://media.test/char.png"))
	record()

	_, err = f.svc.GenerateProductShots(ctx, session.ID)
	require.NoError(t, err)
	record()

	require.NoError(t, f.svc.SelectProductShot(ctx, session.ID, "https://media.test/shot.png"))
	record()

	// Re-running an earlier stage must not move the step backward.
	_, err = f.svc.SetDemographics(ctx, session.ID, demo())
	require.NoError(t, err)
	record()

	for i := 1; i < len(steps); i++ {
		assert.GreaterOrEqual(t, steps[i], steps[i-1],
			"step decreased at transition %d: %v", i, steps)
	}
}

func TestSelectCharacterMarksCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.createSession(t)
	_, err := f.svc.SetDemographics(ctx, session.ID, demo())
	require.NoError(t, err)
	candidates, err := f.svc.GenerateCharacters(ctx, session.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SelectCharacter(ctx, session.ID, candidates[2].URL))

	saved, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, candidates[2].URL, saved.SelectedCharacterURL)
	assert.True(t, saved.CharacterCandidates[2].Selected)
	assert.False(t, saved.CharacterCandidates[0].Selected)
}

func TestGenerateSceneImageRequiresProductShot(t *testing.T) {
	f := newFixture(t)
	session := f.createSession(t)
	_, err := f.svc.SetDemographics(context.Background(), session.ID, demo())
	require.NoError(t, err)

	_, err = f.svc.GenerateSceneImage(context.Background(), session.ID, 0, "a kitchen scene")
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestDeleteSessionRemovesEveryReferencedBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.createSession(t)
	_, err := f.svc.SetDemographics(ctx, session.ID, demo())
	require.NoError(t, err)

	// Hand-wire URLs into the persisted session the way the pipeline would.
	saved, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	saved.FinalVideoURL = "https://media.test/final.mp4"
	saved.StitchedVideos = []models.StitchRecord{{URL: "https://media.test/old-final.mp4", SceneCount: 5}}
	saved.Scenes[0].VideoURL = "https://media.test/scene-0.mp4"
	saved.Scenes[1].SubVideos = []string{"https://media.test/scene-1-alt.mp4"}
	require.NoError(t, f.mem.Save(ctx, saved))

	require.NoError(t, f.svc.DeleteSession(ctx, session.ID))

	assert.ElementsMatch(t, []string{
		"https://media.test/final.mp4",
		"https://media.test/old-final.mp4",
		"https://media.test/scene-0.mp4",
		"https://media.test/scene-1-alt.mp4",
	}, f.blobs.deleted)

	_, err = f.svc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
