package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/models"
)

type jobKey struct {
	sessionID  uuid.UUID
	sceneIndex int
}

// MemoryStore implements SessionStore and JobStore on process-lifetime maps.
// It backs tests and the store-unavailability failover path.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
	jobs     map[jobKey]*models.SceneVideoJob
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*models.Session),
		jobs:     make(map[jobKey]*models.SceneVideoJob),
	}
}

func (s *MemoryStore) Save(_ context.Context, session *models.Session) error {
	clone := cloneSession(session)
	s.mu.Lock()
	s.sessions[session.ID] = clone
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

// cloneSession copies the session and every slice hanging off it, so the
// stored document and the caller's copy never share backing arrays. Scene
// write-backs and scene-list edits run concurrently through this store.
func cloneSession(session *models.Session) *models.Session {
	clone := *session

	if session.Demographic != nil {
		demo := *session.Demographic
		demo.Interests = append([]string(nil), session.Demographic.Interests...)
		clone.Demographic = &demo
	}
	if session.Script != nil {
		script := *session.Script
		script.AdScript.Scenes = cloneScenes(session.Script.AdScript.Scenes)
		clone.Script = &script
	}
	clone.CharacterCandidates = append([]models.Candidate(nil), session.CharacterCandidates...)
	clone.ProductShotCandidates = append([]models.Candidate(nil), session.ProductShotCandidates...)
	clone.Scenes = cloneScenes(session.Scenes)
	clone.StitchedVideos = append([]models.StitchRecord(nil), session.StitchedVideos...)

	return &clone
}

func cloneScenes(scenes []models.Scene) []models.Scene {
	if scenes == nil {
		return nil
	}
	out := make([]models.Scene, len(scenes))
	for i, scene := range scenes {
		out[i] = scene
		out[i].SubVideos = append([]string(nil), scene.SubVideos...)
		if scene.IncludeInFinal != nil {
			include := *scene.IncludeInFinal
			out[i].IncludeInFinal = &include
		}
	}
	return out
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, job *models.SceneVideoJob) error {
	clone := *job
	s.mu.Lock()
	s.jobs[jobKey{job.SessionID, job.SceneIndex}] = &clone
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, job *models.SceneVideoJob) error {
	key := jobKey{job.SessionID, job.SceneIndex}
	clone := *job
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[key]; !ok {
		return ErrNotFound
	}
	s.jobs[key] = &clone
	return nil
}

// GetJob retrieves one job row.
func (s *MemoryStore) GetJob(_ context.Context, sessionID uuid.UUID, sceneIndex int) (*models.SceneVideoJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobKey{sessionID, sceneIndex}]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *MemoryStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]models.SceneVideoJob, error) {
	s.mu.RLock()
	var jobs []models.SceneVideoJob
	for key, job := range s.jobs {
		if key.sessionID == sessionID {
			jobs = append(jobs, *job)
		}
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].SceneIndex < jobs[j].SceneIndex })
	return jobs, nil
}

func (s *MemoryStore) DeleteBySession(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	for key := range s.jobs {
		if key.sessionID == sessionID {
			delete(s.jobs, key)
		}
	}
	s.mu.Unlock()
	return nil
}
