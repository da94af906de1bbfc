package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/armelgeek/heysprech-api/internal/queue"
	"github.com/armelgeek/heysprech-api/internal/store"
)

// Worker runs one stage loop: dequeue, claim, process, forward or finalize.
// Many workers may share a stage; the claim transition in the job store
// guarantees at most one of them ever owns a given job.
type Worker struct {
	id             string
	stage          Stage
	store          *store.Store
	queue          *queue.Queue
	dequeueTimeout time.Duration
	backoff        *Backoff
}

func NewWorker(id string, stage Stage, st *store.Store, q *queue.Queue, dequeueTimeout time.Duration) *Worker {
	return &Worker{
		id:             id,
		stage:          stage,
		store:          st,
		queue:          q,
		dequeueTimeout: dequeueTimeout,
		backoff:        NewBackoff(time.Second, 30*time.Second, 2),
	}
}

// Run loops until ctx is cancelled. The blocking dequeue (bounded by
// dequeueTimeout) is the only suspension point, so shutdown is at most one
// timeout plus the entry in hand away.
func (w *Worker) Run(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] shutting down", w.id)
			return
		default:
		}

		entry, err := w.queue.Dequeue(ctx, w.stage.InputQueue, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				attempt = 0
				continue
			}
			if ctx.Err() != nil {
				log.Printf("[%s] shutting down", w.id)
				return
			}
			// Transient transport fault: no job was claimed, nothing to
			// mark error. Back off and retry.
			attempt++
			delay := w.backoff.Duration(attempt)
			log.Printf("[%s] dequeue failed (attempt %d, retrying in %s): %v", w.id, attempt, delay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		w.handle(ctx, entry)
	}
}

// handle drives one entry through claim/process/forward. The entry is
// consumed whatever happens: failures mark the job, they never re-enqueue.
func (w *Worker) handle(ctx context.Context, entry *queue.Entry) {
	if err := w.store.Claim(ctx, entry.JobID); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrNotFound):
			// Stale or duplicated entry; someone else owns the job or it
			// was deleted. Drop without side effects.
			log.Printf("[%s] dropping entry for job %s: %v", w.id, entry.JobID, err)
		case errors.Is(err, store.ErrInvalidTransition):
			log.Printf("[%s] BUG: illegal claim for job %s: %v", w.id, entry.JobID, err)
		default:
			log.Printf("[%s] claim failed for job %s: %v", w.id, entry.JobID, err)
		}
		return
	}

	log.Printf("[%s] processing job %s", w.id, entry.JobID)

	stageCtx, cancel := context.WithTimeout(ctx, w.stage.Timeout)
	out, err := w.stage.Process(stageCtx, entry)
	cancel()
	if err != nil {
		w.fail(ctx, entry.JobID, err)
		return
	}

	if w.stage.Terminal() {
		w.finalize(ctx, out)
		return
	}
	w.forward(ctx, out)
}

// forward hands the job to the next stage: status back to pending with the
// next stage recorded, then the entry onto the next queue. The status flips
// first so the next stage's claim cannot race a still-processing record.
func (w *Worker) forward(ctx context.Context, entry *queue.Entry) {
	if err := w.store.AdvanceStage(ctx, entry.JobID, w.stage.NextStage); err != nil {
		log.Printf("[%s] BUG: advancing job %s failed: %v", w.id, entry.JobID, err)
		return
	}
	if err := w.queue.Enqueue(ctx, w.stage.NextQueue, entry); err != nil {
		// The job is pending but on no queue, same as a failed submit.
		// Operators re-enqueue by resubmitting; nothing is lost silently.
		log.Printf("[%s] job %s advanced but enqueue on %s failed: %v", w.id, entry.JobID, w.stage.NextQueue, err)
		return
	}
	log.Printf("[%s] job %s forwarded to %s", w.id, entry.JobID, w.stage.NextQueue)
}

// finalize writes the merged segments as the job result and completes it,
// atomically.
func (w *Worker) finalize(ctx context.Context, entry *queue.Entry) {
	if len(entry.Segments) == 0 {
		w.fail(ctx, entry.JobID, fmt.Errorf("terminal stage produced no segments"))
		return
	}
	result, err := json.Marshal(entry.Segments)
	if err != nil {
		w.fail(ctx, entry.JobID, fmt.Errorf("marshal result: %w", err))
		return
	}
	if err := w.store.Complete(ctx, entry.JobID, result); err != nil {
		log.Printf("[%s] BUG: completing job %s failed: %v", w.id, entry.JobID, err)
		return
	}
	log.Printf("[%s] job %s completed", w.id, entry.JobID)
}

// fail terminally marks the job with the failure reason. Timeouts read the
// same as any other processing failure.
func (w *Worker) fail(ctx context.Context, jobID string, cause error) {
	reason := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = fmt.Sprintf("%s stage timed out after %s", w.stage.Name, w.stage.Timeout)
	}
	if err := w.store.Fail(ctx, jobID, reason); err != nil {
		log.Printf("[%s] marking job %s as error failed: %v", w.id, jobID, err)
		return
	}
	log.Printf("[%s] job %s failed: %s", w.id, jobID, reason)
}
