package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/armelgeek/heysprech-api/internal/client"
	"github.com/armelgeek/heysprech-api/internal/model"
	"github.com/armelgeek/heysprech-api/internal/queue"
)

// StageFunc runs one stage's external processing on a queue entry and
// returns the entry to hand to the next stage. It may be slow and may fail;
// the worker loop bounds it with a timeout.
type StageFunc func(ctx context.Context, entry *queue.Entry) (*queue.Entry, error)

// Stage statically maps a pipeline phase to its input queue, its processing
// function and where its output goes. An empty NextQueue marks the terminal
// stage: its output becomes the job result.
type Stage struct {
	Name       model.Stage
	InputQueue string
	NextQueue  string
	NextStage  model.Stage
	Process    StageFunc
	Timeout    time.Duration
}

// Terminal reports whether this stage finalizes the job.
func (s Stage) Terminal() bool {
	return s.NextQueue == ""
}

// TranscriptionStage builds the first stage: audio artifact in, timed
// transcript segments out, forwarded to the translation queue.
func TranscriptionStage(transcriber client.Transcriber, timeout time.Duration) Stage {
	return Stage{
		Name:       model.StageTranscription,
		InputQueue: model.TranscriptionQueue,
		NextQueue:  model.TranslationQueue,
		NextStage:  model.StageTranslation,
		Timeout:    timeout,
		Process: func(ctx context.Context, entry *queue.Entry) (*queue.Entry, error) {
			segments, err := transcriber.Transcribe(ctx, entry.ArtifactPath)
			if err != nil {
				return nil, fmt.Errorf("transcribe: %w", err)
			}
			return &queue.Entry{
				JobID:        entry.JobID,
				ArtifactPath: entry.ArtifactPath,
				Segments:     segments,
			}, nil
		},
	}
}

// TranslationStage builds the terminal stage: each transcript segment gets
// its translation attached, and the merged segments become the job result.
func TranslationStage(translator client.Translator, timeout time.Duration) Stage {
	return Stage{
		Name:       model.StageTranslation,
		InputQueue: model.TranslationQueue,
		NextQueue:  "",
		Timeout:    timeout,
		Process: func(ctx context.Context, entry *queue.Entry) (*queue.Entry, error) {
			if len(entry.Segments) == 0 {
				return nil, fmt.Errorf("entry for job %s carries no segments", entry.JobID)
			}
			segments, err := translator.TranslateSegments(ctx, entry.Segments)
			if err != nil {
				return nil, fmt.Errorf("translate: %w", err)
			}
			return &queue.Entry{
				JobID:        entry.JobID,
				ArtifactPath: entry.ArtifactPath,
				Segments:     segments,
			}, nil
		},
	}
}
