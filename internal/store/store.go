package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/armelgeek/heysprech-api/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeFormat = time.RFC3339Nano

// Store is the durable record of every job and the single place where job
// state is mutated. All status writes go through status-guarded UPDATEs so
// two workers can never both own the same job.
type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

// Open opens (creating if needed) the job database at dbPath and applies
// pending migrations.
func Open(dbPath string) (*Store, error) {
	registerHook()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads but only one writer
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new pending job for the given source and artifact and
// returns it. The id is assigned here and never changes.
func (s *Store) Create(ctx context.Context, sourceRef, artifactPath string) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		ID:           uuid.New().String(),
		SourceRef:    sourceRef,
		ArtifactPath: artifactPath,
		Status:       model.JobStatusPending,
		Stage:        model.StageTranscription,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, source_ref, artifact_path, status, stage, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceRef, job.ArtifactPath, string(job.Status), string(job.Stage),
		now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Get returns the current record for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_ref, artifact_path, status, stage, error_message, result,
                created_at, updated_at, completed_at
         FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns all jobs, newest first.
func (s *Store) List(ctx context.Context) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_ref, artifact_path, status, stage, error_message, result,
                created_at, updated_at, completed_at
         FROM jobs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job record. Jobs currently owned by a worker are refused
// with ErrJobProcessing; callers must wait for the job to reach a terminal
// status first.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if model.JobStatus(status) == model.JobStatusProcessing {
		return ErrJobProcessing
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job         model.Job
		status      string
		stage       string
		errMsg      sql.NullString
		result      []byte
		createdAt   string
		updatedAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&job.ID, &job.SourceRef, &job.ArtifactPath, &status, &stage,
		&errMsg, &result, &createdAt, &updatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = model.JobStatus(status)
	job.Stage = model.Stage(stage)
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	job.Result = result

	if job.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeFormat, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		job.CompletedAt = &t
	}
	return &job, nil
}
