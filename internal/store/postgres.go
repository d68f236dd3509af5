package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adreel/adreel/internal/db"
	"github.com/adreel/adreel/internal/models"
)

// PostgresStore implements SessionStore, JobStore, and ProductCatalog on the
// shared connection pool. Sessions are stored as a JSONB document; jobs get
// a relational row with a unique (session_id, scene_index) constraint.
type PostgresStore struct {
	dbc *db.DatabaseConnection
}

// NewPostgresStore wraps the database connection.
func NewPostgresStore(dbc *db.DatabaseConnection) *PostgresStore {
	return &PostgresStore{dbc: dbc}
}

// IsUnavailable reports whether err indicates the durable store cannot be
// reached, as opposed to a normal query outcome. Connection-class Postgres
// errors and any non-Postgres transport error count as unavailable;
// constraint violations and missing rows do not.
func IsUnavailable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx = connection exception, 57xxx = operator intervention
		if len(pgErr.Code) >= 2 {
			prefix := pgErr.Code[:2]
			return prefix == "08" || prefix == "57"
		}
		return false
	}
	// Dial/timeout failures surface as plain transport errors.
	return true
}

func (s *PostgresStore) Save(ctx context.Context, session *models.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.dbc.Exec(ctx, `
		INSERT INTO sessions (id, user_id, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET document = $3, updated_at = $5`,
		session.ID, session.UserID, doc, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var doc []byte
	err := s.dbc.QueryRow(ctx, `SELECT document FROM sessions WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbc.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, job *models.SceneVideoJob) error {
	_, err := s.dbc.Exec(ctx, `
		INSERT INTO scene_video_jobs
			(id, session_id, scene_index, status, progress, video_url, error_message, prompt, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id, scene_index) DO UPDATE SET
			status = $4, progress = $5, video_url = $6, error_message = $7,
			prompt = $8, image_url = $9, updated_at = $11`,
		job.ID, job.SessionID, job.SceneIndex, job.Status, job.Progress,
		nullable(job.VideoURL), nullable(job.ErrorMessage), job.Prompt, job.ImageURL,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert job %s/%d: %w", job.SessionID, job.SceneIndex, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, job *models.SceneVideoJob) error {
	job.UpdatedAt = time.Now().UTC()
	tag, err := s.dbc.Exec(ctx, `
		UPDATE scene_video_jobs SET
			status = $3, progress = $4, video_url = $5, error_message = $6, updated_at = $7
		WHERE session_id = $1 AND scene_index = $2`,
		job.SessionID, job.SceneIndex, job.Status, job.Progress,
		nullable(job.VideoURL), nullable(job.ErrorMessage), job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job %s/%d: %w", job.SessionID, job.SceneIndex, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, sessionID uuid.UUID, sceneIndex int) (*models.SceneVideoJob, error) {
	row := s.dbc.QueryRow(ctx, `
		SELECT id, session_id, scene_index, status, progress,
		       COALESCE(video_url, ''), COALESCE(error_message, ''),
		       prompt, image_url, created_at, updated_at
		FROM scene_video_jobs
		WHERE session_id = $1 AND scene_index = $2`,
		sessionID, sceneIndex)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s/%d: %w", sessionID, sceneIndex, err)
	}
	return job, nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SceneVideoJob, error) {
	rows, err := s.dbc.Query(ctx, `
		SELECT id, session_id, scene_index, status, progress,
		       COALESCE(video_url, ''), COALESCE(error_message, ''),
		       prompt, image_url, created_at, updated_at
		FROM scene_video_jobs
		WHERE session_id = $1
		ORDER BY scene_index`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var jobs []models.SceneVideoJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.dbc.Exec(ctx, `DELETE FROM scene_video_jobs WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete jobs for %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := s.dbc.QueryRow(ctx,
		`SELECT id, name, description, image_url FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.SceneVideoJob, error) {
	var job models.SceneVideoJob
	err := row.Scan(
		&job.ID, &job.SessionID, &job.SceneIndex, &job.Status, &job.Progress,
		&job.VideoURL, &job.ErrorMessage, &job.Prompt, &job.ImageURL,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
