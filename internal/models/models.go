// Package models defines the domain types shared across the ad pipeline.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the coarse lifecycle of a creative session.
type SessionStatus string

const (
	SessionDraft      SessionStatus = "draft"
	SessionGenerating SessionStatus = "generating"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// Session steps, in the order the pipeline advances through them.
const (
	StepDemographics = 0
	StepCharacter    = 1
	StepProductShot  = 2
	StepScenes       = 3
	StepStitching    = 4
)

// TargetDemographic describes who the ad is aimed at.
type TargetDemographic struct {
	AgeBand   string   `json:"ageBand"`
	Gender    string   `json:"gender"`
	Interests []string `json:"interests"`
	Tone      string   `json:"tone"`
}

// ScriptBundle holds every artifact of the script-generation stage.
type ScriptBundle struct {
	ProductPrompt    string   `json:"productPrompt"`
	ProductBreakdown string   `json:"productBreakdown"`
	CharacterPrompt  string   `json:"characterPrompt"`
	SceneScript      string   `json:"sceneScript"`
	AdScript         AdScript `json:"adScript"`
}

// AdScript is the structured output of script generation.
type AdScript struct {
	CustomerAvatar string  `json:"customerAvatar"`
	Scenes         []Scene `json:"scenes"`
}

// Candidate is one generated image the user can pick from.
type Candidate struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// Scene is one shot within a session's script. IDs are 1-based in the API;
// job keys use the 0-based index (ID - 1).
type Scene struct {
	ID             int      `json:"id"`
	Section        string   `json:"section"`
	Visuals        string   `json:"visuals"`
	Dialogue       string   `json:"dialogue"`
	CameraMotion   string   `json:"cameraMotion"`
	Transition     string   `json:"transition"`
	Duration       float64  `json:"duration"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	VideoURL       string   `json:"videoUrl,omitempty"`
	IncludeInFinal *bool    `json:"includeInFinal,omitempty"`
	SubVideos      []string `json:"subVideos,omitempty"`
}

// Included reports whether the scene participates in the final stitch.
// The flag defaults to true when absent.
func (s *Scene) Included() bool {
	return s.IncludeInFinal == nil || *s.IncludeInFinal
}

// StitchRecord is one previously stitched composite.
type StitchRecord struct {
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	SceneCount int       `json:"sceneCount"`
}

// Session is one user's end-to-end ad-creation project.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`

	Demographic *TargetDemographic `json:"demographic,omitempty"`
	Script      *ScriptBundle      `json:"script,omitempty"`

	CharacterCandidates    []Candidate `json:"characterCandidates,omitempty"`
	SelectedCharacterURL   string      `json:"selectedCharacterUrl,omitempty"`
	ProductShotCandidates  []Candidate `json:"productShotCandidates,omitempty"`
	SelectedProductShotURL string      `json:"selectedProductShotUrl,omitempty"`

	Scenes []Scene `json:"scenes,omitempty"`

	FinalVideoURL  string         `json:"finalVideoUrl,omitempty"`
	StitchedVideos []StitchRecord `json:"stitchedVideos,omitempty"`

	VideoProgress int           `json:"videoProgress"`
	CurrentStep   int           `json:"currentStep"`
	Status        SessionStatus `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AdvanceStep moves the step ordinal forward, never backward.
func (s *Session) AdvanceStep(step int) {
	if step > s.CurrentStep {
		s.CurrentStep = step
	}
}

// BlobURLs enumerates every blob the session references: the final video,
// the stitch history, and each scene's clip and alternates. The deletion
// handler owns removing all of them before the record goes away.
func (s *Session) BlobURLs() []string {
	var urls []string
	if s.FinalVideoURL != "" {
		urls = append(urls, s.FinalVideoURL)
	}
	for _, rec := range s.StitchedVideos {
		if rec.URL != "" {
			urls = append(urls, rec.URL)
		}
	}
	for _, scene := range s.Scenes {
		if scene.VideoURL != "" {
			urls = append(urls, scene.VideoURL)
		}
		urls = append(urls, scene.SubVideos...)
	}
	return urls
}

// JobStatus tracks one scene video job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobGenerating JobStatus = "generating"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// SceneVideoJob is one asynchronous unit of work producing a scene's clip.
// At most one row exists per (SessionID, SceneIndex).
type SceneVideoJob struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"sessionId"`
	SceneIndex   int       `json:"sceneIndex"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	VideoURL     string    `json:"videoUrl,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Prompt       string    `json:"prompt"`
	ImageURL     string    `json:"imageUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Product is the catalog entry a session advertises. The catalog itself is
// an external collaborator; only the fields the pipeline reads live here.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
}
