// Package creative owns the session state machine: demographics, script
// generation, character and product-shot candidates, scene editing, and the
// handoff into per-scene video jobs and stitching.
package creative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/ai"
	"github.com/adreel/adreel/internal/blob"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/store"
)

// ErrValidation marks missing or malformed caller input. Never retried.
var ErrValidation = errors.New("creative: validation failed")

// ErrPrecondition marks an operation invoked before its prerequisite stage
// completed (e.g. product shots before a character is selected).
var ErrPrecondition = errors.New("creative: precondition failed")

// ErrNotFound is returned for unknown sessions.
var ErrNotFound = errors.New("creative: session not found")

// Service sequences the creative stages and persists session state after
// each one. All dependencies are injected.
type Service struct {
	sessions store.SessionStore
	jobs     store.JobStore
	catalog  store.ProductCatalog
	gen      ai.Client
	blobs    blob.Store
}

// NewService wires the session state machine.
func NewService(sessions store.SessionStore, jobs store.JobStore, catalog store.ProductCatalog, gen ai.Client, blobs blob.Store) *Service {
	return &Service{
		sessions: sessions,
		jobs:     jobs,
		catalog:  catalog,
		gen:      gen,
		blobs:    blobs,
	}
}

// CreateSession starts an empty draft session.
func (s *Service) CreateSession(ctx context.Context, userID, productID uuid.UUID, title string) (*models.Session, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %s", ErrValidation, productID)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Title:     title,
		Status:    models.SessionDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// GetSession loads one session.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return session, err
}

// SetDemographics records the target demographic, generates the ad script
// (falling back to a deterministic template when generation or parsing
// fails), and advances the session to the character stage. It never
// surfaces provider errors to the caller.
func (s *Service) SetDemographics(ctx context.Context, sessionID uuid.UUID, demo models.TargetDemographic) (*models.ScriptBundle, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, session.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	script := s.generateScript(ctx, product, demo)

	session.Demographic = &demo
	session.Script = script
	session.Scenes = script.AdScript.Scenes
	session.AdvanceStep(models.StepCharacter)
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return script, nil
}

// GenerateCharacters produces four character candidates from the session's
// character description. All four generations failing degrades to four
// placeholder images rather than an error.
func (s *Service) GenerateCharacters(ctx context.Context, sessionID uuid.UUID) ([]models.Candidate, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	description := characterDescription(session)
	if description == "" {
		return nil, fmt.Errorf("%w: session has no character description yet", ErrPrecondition)
	}

	if err := s.markGenerating(ctx, session); err != nil {
		return nil, err
	}

	candidates := s.generateCandidates(ctx, characterPrompts(description), nil,
		fmt.Sprintf("sessions/%s/characters", session.ID), characterPlaceholders)

	session.CharacterCandidates = candidates
	session.Status = models.SessionDraft
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return candidates, nil
}

// SelectCharacter records the chosen character and advances to the
// product-shot stage.
func (s *Service) SelectCharacter(ctx context.Context, sessionID uuid.UUID, url string) error {
	if url == "" {
		return fmt.Errorf("%w: character url is required", ErrValidation)
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.SelectedCharacterURL = url
	for i := range session.CharacterCandidates {
		session.CharacterCandidates[i].Selected = session.CharacterCandidates[i].URL == url
	}
	session.AdvanceStep(models.StepProductShot)
	session.UpdatedAt = time.Now().UTC()

	return s.sessions.Save(ctx, session)
}

// GenerateProductShots composites the selected character with the product's
// reference image in four interaction styles. Requires a selected character.
func (s *Service) GenerateProductShots(ctx context.Context, sessionID uuid.UUID) ([]models.Candidate, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.SelectedCharacterURL == "" {
		return nil, fmt.Errorf("%w: select a character before generating product shots", ErrPrecondition)
	}

	product, err := s.catalog.GetProduct(ctx, session.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	var refs []ai.ImageRef
	if charBytes, charMime, err := s.blobs.Fetch(ctx, session.SelectedCharacterURL); err == nil {
		refs = append(refs, ai.ImageRef{Bytes: charBytes, MimeType: charMime})
	} else {
		slog.Warn("character reference unavailable for product shots", "session_id", sessionID, "error", err)
	}
	if product.ImageURL != "" {
		if prodBytes, prodMime, err := s.blobs.Fetch(ctx, product.ImageURL); err == nil {
			refs = append(refs, ai.ImageRef{Bytes: prodBytes, MimeType: prodMime})
		} else {
			slog.Warn("product reference unavailable for product shots", "session_id", sessionID, "error", err)
		}
	}

	if err := s.markGenerating(ctx, session); err != nil {
		return nil, err
	}

	candidates := s.generateCandidates(ctx, productShotPrompts(product.Name), refs,
		fmt.Sprintf("sessions/%s/product-shots", session.ID), productShotPlaceholders)

	session.ProductShotCandidates = candidates
	session.Status = models.SessionDraft
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return candidates, nil
}

// SelectProductShot records the chosen composite and advances to the scene
// editing stage.
func (s *Service) SelectProductShot(ctx context.Context, sessionID uuid.UUID, url string) error {
	if url == "" {
		return fmt.Errorf("%w: product shot url is required", ErrValidation)
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.SelectedProductShotURL = url
	for i := range session.ProductShotCandidates {
		session.ProductShotCandidates[i].Selected = session.ProductShotCandidates[i].URL == url
	}
	session.AdvanceStep(models.StepScenes)
	session.UpdatedAt = time.Now().UTC()

	return s.sessions.Save(ctx, session)
}

// UpdateScenes overwrites the session's working scene list. This is the
// user-editable step; excluded scenes are retained, never deleted, so they
// can be re-included later.
func (s *Service) UpdateScenes(ctx context.Context, sessionID uuid.UUID, scenes []models.Scene) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Scenes = scenes
	session.UpdatedAt = time.Now().UTC()
	return s.sessions.Save(ctx, session)
}

// GenerateSceneImage synthesizes one scene still using the selected product
// shot as the consistency reference and returns the uploaded URL. The
// caller is responsible for writing it into the scene entry.
func (s *Service) GenerateSceneImage(ctx context.Context, sessionID uuid.UUID, sceneIndex int, visuals string) (string, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.SelectedProductShotURL == "" {
		return "", fmt.Errorf("%w: select a product shot before generating scene images", ErrPrecondition)
	}
	if sceneIndex < 0 || sceneIndex >= len(session.Scenes) {
		return "", fmt.Errorf("%w: scene index %d out of range", ErrValidation, sceneIndex)
	}

	var refs []ai.ImageRef
	refBytes, refMime, err := s.blobs.Fetch(ctx, session.SelectedProductShotURL)
	if err != nil {
		return "", fmt.Errorf("fetch product shot reference: %w", err)
	}
	refs = append(refs, ai.ImageRef{Bytes: refBytes, MimeType: refMime})

	payload, err := s.gen.GenerateImage(ctx, sceneImagePrompt(visuals), refs)
	if err != nil {
		return "", fmt.Errorf("generate scene image: %w", err)
	}

	name := fmt.Sprintf("sessions/%s/scenes/%d-%s%s",
		session.ID, sceneIndex, uuid.NewString()[:8], extensionFor(payload.MimeType))
	return s.blobs.Put(ctx, payload.Bytes, name, payload.MimeType), nil
}

// DeleteSession removes every blob the session references, its job rows,
// and finally the session record itself. The deletion handler owns this
// cross-component cleanup contract.
func (s *Service) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	for _, url := range session.BlobURLs() {
		if !s.blobs.Delete(ctx, url) {
			slog.Warn("failed to delete session blob", "session_id", sessionID, "url", url)
		}
	}

	if err := s.jobs.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session jobs: %w", err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// MarkStitchStarted flips the session into the stitching stage.
func (s *Service) MarkStitchStarted(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.AdvanceStep(models.StepStitching)
	session.Status = models.SessionGenerating
	session.VideoProgress = 0
	session.UpdatedAt = time.Now().UTC()
	return s.sessions.Save(ctx, session)
}

// MarkStitchFinished records the composite URL, appends it to the stitch
// history, and completes the session.
func (s *Service) MarkStitchFinished(ctx context.Context, sessionID uuid.UUID, videoURL string, sceneCount int) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.FinalVideoURL = videoURL
	session.StitchedVideos = append(session.StitchedVideos, models.StitchRecord{
		URL:        videoURL,
		CreatedAt:  time.Now().UTC(),
		SceneCount: sceneCount,
	})
	session.VideoProgress = 100
	session.Status = models.SessionCompleted
	session.UpdatedAt = time.Now().UTC()
	return s.sessions.Save(ctx, session)
}

// MarkStitchFailed moves the session into the failed state. A session only
// fails when the terminal artifact for its current stage could not be
// produced.
func (s *Service) MarkStitchFailed(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Status = models.SessionFailed
	session.UpdatedAt = time.Now().UTC()
	return s.sessions.Save(ctx, session)
}

func (s *Service) markGenerating(ctx context.Context, session *models.Session) error {
	session.Status = models.SessionGenerating
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
