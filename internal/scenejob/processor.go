// Package scenejob runs the asynchronous per-scene video generation jobs.
// Submit returns as soon as the queued row is written; a detached task then
// drives the job through image fetch, provider generation, and blob upload,
// updating progress after every stage.
package scenejob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/ai"
	"github.com/adreel/adreel/internal/blob"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/store"
)

// ErrValidation marks missing caller input.
var ErrValidation = errors.New("scenejob: validation failed")

// Processor owns the scene video job lifecycle.
type Processor struct {
	jobs     store.JobStore
	sessions store.SessionStore
	gen      ai.Client
	blobs    blob.Store

	wg sync.WaitGroup
}

// NewProcessor wires the job processor.
func NewProcessor(jobs store.JobStore, sessions store.SessionStore, gen ai.Client, blobs blob.Store) *Processor {
	return &Processor{
		jobs:     jobs,
		sessions: sessions,
		gen:      gen,
		blobs:    blobs,
	}
}

// Submit writes the queued job row and starts the background task. It
// returns the job ID immediately; progress is observed through Status.
// Resubmitting a (session, scene) pair resets its existing row rather than
// creating a second one.
func (p *Processor) Submit(ctx context.Context, sessionID uuid.UUID, sceneIndex int, prompt, imageURL string) (uuid.UUID, error) {
	if prompt == "" {
		return uuid.Nil, fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if imageURL == "" {
		return uuid.Nil, fmt.Errorf("%w: scene image url is required", ErrValidation)
	}
	if sceneIndex < 0 {
		return uuid.Nil, fmt.Errorf("%w: scene index %d out of range", ErrValidation, sceneIndex)
	}

	now := time.Now().UTC()
	job := &models.SceneVideoJob{
		ID:         uuid.New(),
		SessionID:  sessionID,
		SceneIndex: sceneIndex,
		Status:     models.JobQueued,
		Progress:   progressQueued,
		Prompt:     prompt,
		ImageURL:   imageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.jobs.Upsert(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("queue scene video job: %w", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// The job outlives the request that submitted it.
		p.run(context.WithoutCancel(ctx), job)
	}()

	return job.ID, nil
}

// SubmitAll queues a job for every scene that has an image, skipping the
// rest, and returns the created job IDs in scene order.
func (p *Processor) SubmitAll(ctx context.Context, sessionID uuid.UUID, scenes []models.Scene) ([]uuid.UUID, error) {
	var jobIDs []uuid.UUID
	for i, scene := range scenes {
		if scene.ImageURL == "" {
			continue
		}
		jobID, err := p.Submit(ctx, sessionID, i, videoPrompt(scene), scene.ImageURL)
		if err != nil {
			return jobIDs, fmt.Errorf("scene %d: %w", i, err)
		}
		jobIDs = append(jobIDs, jobID)
	}
	return jobIDs, nil
}

// Status returns the session's jobs ordered by scene index.
func (p *Processor) Status(ctx context.Context, sessionID uuid.UUID) ([]models.SceneVideoJob, error) {
	return p.jobs.ListBySession(ctx, sessionID)
}

// Wait blocks until every in-flight job has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) run(ctx context.Context, job *models.SceneVideoJob) {
	log := slog.With("session_id", job.SessionID, "scene_index", job.SceneIndex, "job_id", job.ID)
	log.Info("scene video job started")

	p.setProgress(ctx, job, models.JobGenerating, progressStarted)

	image, mimeType, err := p.blobs.Fetch(ctx, job.ImageURL)
	if err != nil {
		p.fail(ctx, job, fmt.Sprintf("could not fetch scene image: %v", err))
		return
	}
	p.setProgress(ctx, job, models.JobGenerating, progressImageReady)

	video, err := p.gen.GenerateVideoFromImage(ctx, image, mimeType, job.Prompt, func(pollPercent int, message string) {
		p.setProgress(ctx, job, models.JobGenerating, mapPollPercent(pollPercent))
		log.Debug("scene video job poll", "progress", job.Progress, "message", message)
	})
	if err != nil {
		if errors.Is(err, ai.ErrTimeout) {
			p.fail(ctx, job, "video generation timed out")
			return
		}
		p.fail(ctx, job, fmt.Sprintf("video generation failed: %v", err))
		return
	}
	p.setProgress(ctx, job, models.JobGenerating, progressDownloaded)

	name := fmt.Sprintf("sessions/%s/videos/scene-%d-%s.mp4", job.SessionID, job.SceneIndex, uuid.NewString()[:8])
	p.setProgress(ctx, job, models.JobGenerating, progressUploading)
	url := p.blobs.Put(ctx, video, name, "video/mp4")

	job.VideoURL = url
	job.ErrorMessage = ""
	p.setProgress(ctx, job, models.JobCompleted, progressDone)
	log.Info("scene video job completed", "video_url", url)

	p.attachToScene(ctx, job)
}

// attachToScene writes the finished clip's URL back into the session's
// scene entry, keeping any previous clip as an alternate take. A write
// failure leaves the job record authoritative and is only logged.
func (p *Processor) attachToScene(ctx context.Context, job *models.SceneVideoJob) {
	session, err := p.sessions.Get(ctx, job.SessionID)
	if err != nil {
		slog.Warn("scene video write-back skipped, session unavailable",
			"session_id", job.SessionID, "scene_index", job.SceneIndex, "error", err)
		return
	}
	if job.SceneIndex >= len(session.Scenes) {
		slog.Warn("scene video write-back skipped, scene no longer exists",
			"session_id", job.SessionID, "scene_index", job.SceneIndex)
		return
	}

	scene := &session.Scenes[job.SceneIndex]
	if scene.VideoURL != "" && scene.VideoURL != job.VideoURL {
		scene.SubVideos = append(scene.SubVideos, scene.VideoURL)
	}
	scene.VideoURL = job.VideoURL
	session.UpdatedAt = time.Now().UTC()

	if err := p.sessions.Save(ctx, session); err != nil {
		slog.Warn("scene video write-back failed",
			"session_id", job.SessionID, "scene_index", job.SceneIndex, "error", err)
	}
}

func (p *Processor) setProgress(ctx context.Context, job *models.SceneVideoJob, status models.JobStatus, progress int) {
	job.Status = status
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
	if err := p.jobs.Update(ctx, job); err != nil {
		slog.Warn("scene video job progress update failed",
			"job_id", job.ID, "progress", progress, "error", err)
	}
}

func (p *Processor) fail(ctx context.Context, job *models.SceneVideoJob, message string) {
	slog.Error("scene video job failed",
		"session_id", job.SessionID, "scene_index", job.SceneIndex, "reason", message)
	job.Status = models.JobFailed
	job.ErrorMessage = message
	job.UpdatedAt = time.Now().UTC()
	if err := p.jobs.Update(ctx, job); err != nil {
		slog.Warn("scene video job failure update lost", "job_id", job.ID, "error", err)
	}
}

// videoPrompt builds the image-to-video prompt for one scene from its
// visual description, camera motion, and spoken line.
func videoPrompt(scene models.Scene) string {
	prompt := scene.Visuals
	if scene.CameraMotion != "" {
		prompt += fmt.Sprintf(" Camera: %s.", scene.CameraMotion)
	}
	if scene.Dialogue != "" {
		prompt += fmt.Sprintf(" The character says: %q", scene.Dialogue)
	}
	return prompt
}
