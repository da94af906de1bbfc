package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/armelgeek/heysprech-api/internal/client"
	"github.com/armelgeek/heysprech-api/internal/model"
	"github.com/armelgeek/heysprech-api/internal/queue"
	"github.com/armelgeek/heysprech-api/internal/store"
)

// ErrIngestion wraps artifact acquisition failures: nothing was persisted,
// the caller may simply retry submit.
var ErrIngestion = errors.New("ingestion failed")

// VideoService is the ingestion coordinator plus the read/delete surface
// over the job store.
type VideoService struct {
	store     *store.Store
	queue     *queue.Queue
	extractor client.AudioExtractor
}

func NewVideoService(st *store.Store, q *queue.Queue, extractor client.AudioExtractor) *VideoService {
	return &VideoService{
		store:     st,
		queue:     q,
		extractor: extractor,
	}
}

// Submit acquires the audio artifact, creates the job record and enqueues it
// onto the transcription queue. Extraction failures create no record, so
// there are never pending jobs without a backing artifact. If the enqueue
// after create fails the record stays pending and the error tells the caller
// to retry submit; a retry creates an independent job (no dedup by source).
func (s *VideoService) Submit(ctx context.Context, sourceRef string) (*model.Job, error) {
	artifactPath, err := s.extractor.Extract(ctx, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIngestion, err)
	}

	job, err := s.store.Create(ctx, sourceRef, artifactPath)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	entry := &queue.Entry{JobID: job.ID, ArtifactPath: artifactPath}
	if err := s.queue.Enqueue(ctx, model.TranscriptionQueue, entry); err != nil {
		log.Printf("job %s created but not enqueued: %v", job.ID, err)
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	return job, nil
}

// Get returns a job, or store.ErrNotFound.
func (s *VideoService) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.store.Get(ctx, id)
}

// List returns all jobs, newest first.
func (s *VideoService) List(ctx context.Context) ([]*model.Job, error) {
	return s.store.List(ctx)
}

// Delete removes a job record and its audio artifact. Jobs owned by a
// worker are refused with store.ErrJobProcessing.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if job.ArtifactPath != "" {
		if err := os.Remove(job.ArtifactPath); err != nil && !os.IsNotExist(err) {
			log.Printf("job %s deleted but artifact %s not removed: %v", id, job.ArtifactPath, err)
		}
	}
	return nil
}

// ToResponse converts a job record into its API view, decoding the result
// blob into segments when the job is completed.
func ToResponse(job *model.Job) (*model.JobResponse, error) {
	resp := &model.JobResponse{
		ID:           job.ID,
		SourceRef:    job.SourceRef,
		ArtifactPath: job.ArtifactPath,
		Status:       job.Status,
		Stage:        job.Stage,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		CompletedAt:  job.CompletedAt,
	}
	if len(job.Result) > 0 {
		if err := json.Unmarshal(job.Result, &resp.Segments); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", job.ID, err)
		}
	}
	return resp, nil
}
