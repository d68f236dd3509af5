// Package stitch assembles a session's per-scene clips into the final ad:
// download, normalization to shared codec parameters, pairwise transition
// reduction, and upload of the composite.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/blob"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/pkg/ffmpeg"
)

// ErrNoScenes is returned when no included scene has a video clip.
var ErrNoScenes = errors.New("stitch: no scenes to stitch")

const (
	// defaultOverlap is the crossfade window between adjacent clips.
	defaultOverlap = 0.5

	// durationTolerance is how far a scene's scripted duration hint may
	// drift from the measured clip before the hint is logged as stale.
	durationTolerance = 0.5

	// progressRetention keeps a finished job's progress readable long
	// enough for the last poll to observe the terminal state.
	progressRetention = 90 * time.Second
)

// Progress is one observable snapshot of a running stitch.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Done    bool   `json:"done"`
	Failed  bool   `json:"failed"`
}

// Stitcher downloads, normalizes, joins, and uploads scene clips. The
// ffmpeg entry points are swappable so the reduction logic is testable
// without a media toolchain on the host.
type Stitcher struct {
	blobs   blob.Store
	workDir string

	normalize  func(ctx context.Context, input, output string, opts *ffmpeg.NormalizeOptions) (float64, error)
	transition func(ctx context.Context, first, second, output, transition string, firstDuration, overlap float64, onTick func(outTimeSeconds float64)) error
	concat     func(ctx context.Context, inputs []string, output string) error
	probe      func(ctx context.Context, path string) (float64, error)

	mu       sync.Mutex
	tracking map[uuid.UUID]Progress
}

// NewStitcher wires a stitcher writing temporaries under workDir.
func NewStitcher(blobs blob.Store, workDir string) *Stitcher {
	return &Stitcher{
		blobs:   blobs,
		workDir: workDir,
		normalize: func(ctx context.Context, input, output string, opts *ffmpeg.NormalizeOptions) (float64, error) {
			return ffmpeg.Normalize(ctx, input, output, opts)
		},
		transition: func(ctx context.Context, first, second, output, transition string, firstDuration, overlap float64, onTick func(float64)) error {
			cmd := ffmpeg.TransitionCommand(first, second, output, transition, firstDuration, overlap)

			progress := make(chan ffmpeg.Progress, 8)
			drained := make(chan struct{})
			go func() {
				defer close(drained)
				for p := range progress {
					if onTick != nil {
						onTick(p.OutTimeSeconds())
					}
				}
			}()

			err := cmd.RunWithProgress(ctx, progress)
			<-drained
			return err
		},
		concat:   ffmpeg.ConcatFiles,
		probe:    ffmpeg.ProbeDuration,
		tracking: make(map[uuid.UUID]Progress),
	}
}

// Progress reports the live progress of a session's stitch, if one is
// running or recently finished.
func (s *Stitcher) Progress(sessionID uuid.UUID) (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tracking[sessionID]
	return p, ok
}

// Stitch joins the session's included scene clips into one video and
// uploads it, returning the composite URL and how many scenes went in.
// A single eligible scene short-circuits: its existing clip URL is the
// final video and no media work happens.
func (s *Stitcher) Stitch(ctx context.Context, session *models.Session) (string, int, error) {
	url, n, err := s.stitch(ctx, session)
	if err != nil {
		s.set(session.ID, Progress{Stage: "failed", Percent: 0, Message: err.Error(), Done: true, Failed: true})
		return "", 0, err
	}
	s.set(session.ID, Progress{Stage: "completed", Percent: 100, Message: "final video ready", Done: true})
	return url, n, nil
}

func (s *Stitcher) stitch(ctx context.Context, session *models.Session) (string, int, error) {
	var scenes []models.Scene
	for _, scene := range session.Scenes {
		if scene.Included() && scene.VideoURL != "" {
			scenes = append(scenes, scene)
		}
	}
	if len(scenes) == 0 {
		return "", 0, ErrNoScenes
	}
	if len(scenes) == 1 {
		slog.Info("single scene, reusing its clip as the final video",
			"session_id", session.ID, "video_url", scenes[0].VideoURL)
		return scenes[0].VideoURL, 1, nil
	}

	dir := filepath.Join(s.workDir, fmt.Sprintf("%s-%s", session.ID, uuid.NewString()[:8]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("stitch: create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	raw, err := s.download(ctx, session.ID, scenes, dir)
	if err != nil {
		return "", 0, err
	}

	clips, durations, err := s.normalizeAll(ctx, session.ID, scenes, raw, dir)
	if err != nil {
		return "", 0, err
	}

	final, err := s.reduce(ctx, session.ID, scenes, clips, durations, dir)
	if err != nil {
		return "", 0, err
	}

	if total, err := s.probe(ctx, final); err == nil {
		slog.Info("stitch composite assembled",
			"session_id", session.ID, "scenes", len(scenes), "duration_seconds", math.Round(total*100)/100)
	}

	url, err := s.upload(ctx, session.ID, final)
	if err != nil {
		return "", 0, err
	}
	return url, len(scenes), nil
}

// download fetches every clip into the work dir, covering 0-20%.
func (s *Stitcher) download(ctx context.Context, sessionID uuid.UUID, scenes []models.Scene, dir string) ([]string, error) {
	paths := make([]string, len(scenes))
	for i, scene := range scenes {
		s.set(sessionID, Progress{Stage: "downloading", Percent: i * 20 / len(scenes),
			Message: fmt.Sprintf("downloading clip %d/%d", i+1, len(scenes))})

		data, _, err := s.blobs.Fetch(ctx, scene.VideoURL)
		if err != nil {
			return nil, fmt.Errorf("stitch: download scene %d clip: %w", scene.ID, err)
		}
		paths[i] = filepath.Join(dir, fmt.Sprintf("clip-%02d.mp4", i))
		if err := os.WriteFile(paths[i], data, 0o644); err != nil {
			return nil, fmt.Errorf("stitch: write scene %d clip: %w", scene.ID, err)
		}
	}
	s.set(sessionID, Progress{Stage: "downloading", Percent: 20, Message: "clips downloaded"})
	return paths, nil
}

// normalizeAll re-encodes every clip to shared parameters, covering 20-40%.
// Measured durations are authoritative; scripted hints only feed a log line
// when they have drifted.
func (s *Stitcher) normalizeAll(ctx context.Context, sessionID uuid.UUID, scenes []models.Scene, raw []string, dir string) ([]string, []float64, error) {
	clips := make([]string, len(raw))
	durations := make([]float64, len(raw))
	for i, path := range raw {
		s.set(sessionID, Progress{Stage: "normalizing", Percent: 20 + i*20/len(raw),
			Message: fmt.Sprintf("normalizing clip %d/%d", i+1, len(raw))})

		clips[i] = filepath.Join(dir, fmt.Sprintf("norm-%02d.mp4", i))
		measured, err := s.normalize(ctx, path, clips[i], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("stitch: normalize scene %d clip: %w", scenes[i].ID, err)
		}
		if hint := scenes[i].Duration; hint > 0 && math.Abs(measured-hint) > durationTolerance {
			slog.Warn("scene duration hint stale, using measured duration",
				"session_id", sessionID, "scene_id", scenes[i].ID, "hint", hint, "measured", measured)
		}
		durations[i] = measured
	}
	s.set(sessionID, Progress{Stage: "normalizing", Percent: 40, Message: "clips normalized"})
	return clips, durations, nil
}

// reduce joins the normalized clips left to right, covering 40-85%. When
// every boundary is a hard cut the whole list concatenates in one pass;
// otherwise adjacent pairs fold through crossfades, and a pair whose filter
// fails falls back to a hard cut for that boundary only.
func (s *Stitcher) reduce(ctx context.Context, sessionID uuid.UUID, scenes []models.Scene, clips []string, durations []float64, dir string) (string, error) {
	transitions := boundaryTransitions(scenes)

	if allNone(transitions) {
		s.set(sessionID, Progress{Stage: "stitching", Percent: 60, Message: "concatenating clips"})
		out := filepath.Join(dir, "final.mp4")
		if err := s.concat(ctx, clips, out); err != nil {
			return "", fmt.Errorf("stitch: concatenate clips: %w", err)
		}
		s.set(sessionID, Progress{Stage: "stitching", Percent: 85, Message: "clips joined"})
		return out, nil
	}

	current := clips[0]
	currentDuration := durations[0]
	for i := 1; i < len(clips); i++ {
		// Each pair owns a slice of the 40-85 band; encoder out-time
		// ticks refine progress within it.
		bandStart := 40 + (i-1)*45/len(transitions)
		bandEnd := 40 + i*45/len(transitions)
		message := fmt.Sprintf("joining clip %d/%d", i+1, len(clips))
		s.set(sessionID, Progress{Stage: "stitching", Percent: bandStart, Message: message})

		expected := currentDuration + durations[i]
		onTick := func(outTimeSeconds float64) {
			if expected <= 0 {
				return
			}
			frac := outTimeSeconds / expected
			if frac > 1 {
				frac = 1
			}
			s.set(sessionID, Progress{Stage: "stitching",
				Percent: bandStart + int(frac*float64(bandEnd-bandStart)), Message: message})
		}

		out := filepath.Join(dir, fmt.Sprintf("pair-%02d.mp4", i))
		transition := transitions[i-1]

		switch {
		case transition == "none":
			if err := s.concat(ctx, []string{current, clips[i]}, out); err != nil {
				return "", fmt.Errorf("stitch: concatenate clips %d and %d: %w", i-1, i, err)
			}
			currentDuration += durations[i]
		default:
			err := s.transition(ctx, current, clips[i], out, transition, currentDuration, defaultOverlap, onTick)
			if err != nil {
				// A failed filter costs the crossfade, not the stitch.
				slog.Warn("transition filter failed, falling back to hard cut",
					"session_id", sessionID, "pair", i, "transition", transition, "error", err)
				if err := s.concat(ctx, []string{current, clips[i]}, out); err != nil {
					return "", fmt.Errorf("stitch: fallback concatenate clips %d and %d: %w", i-1, i, err)
				}
				currentDuration += durations[i]
			} else {
				currentDuration += durations[i] - defaultOverlap
			}
		}
		current = out
	}
	s.set(sessionID, Progress{Stage: "stitching", Percent: 85, Message: "clips joined"})
	return current, nil
}

// upload pushes the composite to blob storage, covering 85-95%.
func (s *Stitcher) upload(ctx context.Context, sessionID uuid.UUID, final string) (string, error) {
	s.set(sessionID, Progress{Stage: "uploading", Percent: 88, Message: "uploading final video"})

	data, err := os.ReadFile(final)
	if err != nil {
		return "", fmt.Errorf("stitch: read composite: %w", err)
	}

	name := fmt.Sprintf("sessions/%s/final-%s.mp4", sessionID, uuid.NewString()[:8])
	url := s.blobs.Put(ctx, data, name, "video/mp4")
	slog.Info("final video uploaded",
		"session_id", sessionID, "size", humanize.Bytes(uint64(len(data))), "url", url)

	s.set(sessionID, Progress{Stage: "uploading", Percent: 95, Message: "final video uploaded"})
	return url, nil
}

func (s *Stitcher) set(sessionID uuid.UUID, p Progress) {
	s.mu.Lock()
	s.tracking[sessionID] = p
	s.mu.Unlock()

	if p.Done {
		time.AfterFunc(progressRetention, func() {
			s.mu.Lock()
			if cur, ok := s.tracking[sessionID]; ok && cur.Done {
				delete(s.tracking, sessionID)
			}
			s.mu.Unlock()
		})
	}
}

// boundaryTransitions derives the n-1 boundary transitions from the scene
// list. A scene's transition leads into the next scene; unset boundaries
// default to "fade".
func boundaryTransitions(scenes []models.Scene) []string {
	transitions := make([]string, len(scenes)-1)
	for i := range transitions {
		t := scenes[i].Transition
		if t == "" {
			t = "fade"
		}
		transitions[i] = ffmpeg.NormalizeTransition(t)
	}
	return transitions
}

func allNone(transitions []string) bool {
	for _, t := range transitions {
		if t != "none" {
			return false
		}
	}
	return true
}
