package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/armelgeek/heysprech-api/internal/model"
)

// The only edges the state machine allows. completed and error are terminal;
// processing -> pending is the hand-off between stages.
var allowedTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusPending:    {model.JobStatusProcessing},
	model.JobStatusProcessing: {model.JobStatusPending, model.JobStatusCompleted, model.JobStatusError},
}

func legalEdge(from, to model.JobStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves a job along a non-terminal edge with a compare-and-set
// on the current status. Edges outside the state machine fail with
// ErrInvalidTransition before touching the database. Terminal statuses carry
// payloads (a result, a failure reason) and are reached only through
// Complete and Fail so status and payload always land together. A CAS miss
// returns ErrNotFound if the job is gone, ErrConflict otherwise.
func (s *Store) Transition(ctx context.Context, id string, from, to model.JobStatus) error {
	if !legalEdge(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if to.Terminal() {
		return fmt.Errorf("%w: %s is terminal, use Complete or Fail", ErrInvalidTransition, to)
	}
	return s.casExec(ctx, id, from,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC().Format(timeFormat), id, string(from))
}

// Claim takes ownership of a job for processing. Exactly one of any number
// of racing claimers succeeds; the rest get ErrConflict (or ErrNotFound for
// stale entries referencing deleted jobs) and must drop their queue entry.
func (s *Store) Claim(ctx context.Context, id string) error {
	return s.Transition(ctx, id, model.JobStatusPending, model.JobStatusProcessing)
}

// AdvanceStage hands a job that finished a non-terminal stage back to
// pending and records the stage that will process it next. Status and stage
// move together in one guarded write.
func (s *Store) AdvanceStage(ctx context.Context, id string, next model.Stage) error {
	return s.casExec(ctx, id, model.JobStatusProcessing,
		`UPDATE jobs SET status = ?, stage = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusPending), string(next),
		time.Now().UTC().Format(timeFormat), id, string(model.JobStatusProcessing))
}

// Complete finalizes a job: status and result are written in the same
// statement so a reader can never observe completed without a result, or a
// result before completion.
func (s *Store) Complete(ctx context.Context, id string, result []byte) error {
	if len(result) == 0 {
		return ErrEmptyResult
	}
	now := time.Now().UTC().Format(timeFormat)
	return s.casExec(ctx, id, model.JobStatusProcessing,
		`UPDATE jobs SET status = ?, result = ?, updated_at = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusCompleted), result, now, now, id, string(model.JobStatusProcessing))
}

// Fail marks a job terminally failed and records the reason. Failed jobs are
// never retried by the pipeline; resubmission is an explicit external act.
func (s *Store) Fail(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC().Format(timeFormat)
	return s.casExec(ctx, id, model.JobStatusProcessing,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusError), reason, now, now, id, string(model.JobStatusProcessing))
}

// casExec runs a status-guarded UPDATE and disambiguates a zero-row result
// into not-found vs conflict.
func (s *Store) casExec(ctx context.Context, id string, expected model.JobStatus, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	return fmt.Errorf("%w: job %s is %s, expected %s", ErrConflict, id, current, expected)
}
