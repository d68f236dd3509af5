// Package store provides keyed persistence for sessions and scene video
// jobs, with a durable Postgres backend, a process-lifetime memory backend,
// and a failover wrapper that switches between them per key when the durable
// backend is unavailable.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/models"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("store: record not found")

// SessionStore persists creative sessions.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// JobStore persists scene video jobs keyed by (session id, scene index).
type JobStore interface {
	// Upsert inserts the job, or resets the existing row for the same
	// (session id, scene index) pair. There is never more than one row
	// per pair.
	Upsert(ctx context.Context, job *models.SceneVideoJob) error
	Update(ctx context.Context, job *models.SceneVideoJob) error
	GetJob(ctx context.Context, sessionID uuid.UUID, sceneIndex int) (*models.SceneVideoJob, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SceneVideoJob, error)
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) error
}

// ProductCatalog resolves products. The catalog itself is an external
// collaborator; the pipeline only reads from it.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}
