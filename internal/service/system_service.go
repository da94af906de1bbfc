package service

import (
	"context"
	"fmt"

	"github.com/armelgeek/heysprech-api/internal/model"
	"github.com/armelgeek/heysprech-api/internal/queue"
)

// WorkerCounter reports live pipeline workers.
type WorkerCounter interface {
	ActiveWorkers() int64
}

// SystemService is the read-only operational view: queue depths and worker
// liveness. It never sits on the pipeline's critical path.
type SystemService struct {
	queue   *queue.Queue
	workers WorkerCounter
}

func NewSystemService(q *queue.Queue, workers WorkerCounter) *SystemService {
	return &SystemService{queue: q, workers: workers}
}

func (s *SystemService) Status(ctx context.Context) (*model.SystemStatusResponse, error) {
	transcription, err := s.queue.Depth(ctx, model.TranscriptionQueue)
	if err != nil {
		return nil, fmt.Errorf("transcription queue depth: %w", err)
	}
	translation, err := s.queue.Depth(ctx, model.TranslationQueue)
	if err != nil {
		return nil, fmt.Errorf("translation queue depth: %w", err)
	}

	resp := &model.SystemStatusResponse{
		TranscriptionQueue: transcription,
		TranslationQueue:   translation,
	}
	if s.workers != nil {
		resp.ActiveWorkers = s.workers.ActiveWorkers()
	}
	return resp, nil
}
