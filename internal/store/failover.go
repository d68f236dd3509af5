package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/models"
)

// Failover serves sessions and jobs from a durable primary store, switching
// a session's records to the in-process memory store for the remainder of
// process lifetime the first time the primary reports unavailability. The
// switch is per session id and transparent to callers.
type Failover struct {
	primary interface {
		SessionStore
		JobStore
	}
	memory *MemoryStore

	unavailable func(error) bool

	mu      sync.RWMutex
	demoted map[uuid.UUID]bool
}

// NewFailover wraps primary with the memory fallback. unavailable decides
// whether an error means the primary cannot be reached; nil defaults to
// IsUnavailable.
func NewFailover(primary interface {
	SessionStore
	JobStore
}, unavailable func(error) bool) *Failover {
	if unavailable == nil {
		unavailable = IsUnavailable
	}
	return &Failover{
		primary:     primary,
		memory:      NewMemoryStore(),
		unavailable: unavailable,
		demoted:     make(map[uuid.UUID]bool),
	}
}

func (f *Failover) isDemoted(id uuid.UUID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.demoted[id]
}

func (f *Failover) demote(id uuid.UUID, cause error) {
	f.mu.Lock()
	already := f.demoted[id]
	f.demoted[id] = true
	f.mu.Unlock()
	if !already {
		slog.Warn("record store unavailable, switching session to in-memory fallback",
			"session_id", id, "error", cause)
	}
}

func (f *Failover) Save(ctx context.Context, session *models.Session) error {
	if f.isDemoted(session.ID) {
		return f.memory.Save(ctx, session)
	}
	err := f.primary.Save(ctx, session)
	if err != nil && f.unavailable(err) {
		f.demote(session.ID, err)
		return f.memory.Save(ctx, session)
	}
	return err
}

func (f *Failover) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if f.isDemoted(id) {
		return f.memory.Get(ctx, id)
	}
	session, err := f.primary.Get(ctx, id)
	if err != nil && f.unavailable(err) {
		f.demote(id, err)
		return f.memory.Get(ctx, id)
	}
	return session, err
}

func (f *Failover) Delete(ctx context.Context, id uuid.UUID) error {
	if f.isDemoted(id) {
		return f.memory.Delete(ctx, id)
	}
	err := f.primary.Delete(ctx, id)
	if err != nil && f.unavailable(err) {
		f.demote(id, err)
		return f.memory.Delete(ctx, id)
	}
	return err
}

func (f *Failover) Upsert(ctx context.Context, job *models.SceneVideoJob) error {
	if f.isDemoted(job.SessionID) {
		return f.memory.Upsert(ctx, job)
	}
	err := f.primary.Upsert(ctx, job)
	if err != nil && f.unavailable(err) {
		f.demote(job.SessionID, err)
		return f.memory.Upsert(ctx, job)
	}
	return err
}

func (f *Failover) Update(ctx context.Context, job *models.SceneVideoJob) error {
	if f.isDemoted(job.SessionID) {
		return f.memory.Update(ctx, job)
	}
	err := f.primary.Update(ctx, job)
	if err != nil && f.unavailable(err) {
		f.demote(job.SessionID, err)
		// The row the task was updating never reached the primary; keep
		// the fallback coherent by writing the full row.
		return f.memory.Upsert(ctx, job)
	}
	return err
}

func (f *Failover) GetJob(ctx context.Context, sessionID uuid.UUID, sceneIndex int) (*models.SceneVideoJob, error) {
	if f.isDemoted(sessionID) {
		return f.memory.GetJob(ctx, sessionID, sceneIndex)
	}
	job, err := f.primary.GetJob(ctx, sessionID, sceneIndex)
	if err != nil && f.unavailable(err) {
		f.demote(sessionID, err)
		return f.memory.GetJob(ctx, sessionID, sceneIndex)
	}
	return job, err
}

func (f *Failover) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SceneVideoJob, error) {
	if f.isDemoted(sessionID) {
		return f.memory.ListBySession(ctx, sessionID)
	}
	jobs, err := f.primary.ListBySession(ctx, sessionID)
	if err != nil && f.unavailable(err) {
		f.demote(sessionID, err)
		return f.memory.ListBySession(ctx, sessionID)
	}
	return jobs, err
}

func (f *Failover) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	if f.isDemoted(sessionID) {
		return f.memory.DeleteBySession(ctx, sessionID)
	}
	err := f.primary.DeleteBySession(ctx, sessionID)
	if err != nil && f.unavailable(err) {
		f.demote(sessionID, err)
		return f.memory.DeleteBySession(ctx, sessionID)
	}
	return err
}
