package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armelgeek/heysprech-api/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "dQw4w9WgXcQ", "/audios/dQw4w9WgXcQ.mp3")
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", got.SourceRef)
	assert.Equal(t, "/audios/dQw4w9WgXcQ.mp3", got.ArtifactPath)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, model.StageTranscription, got.Stage)
	assert.Empty(t, got.Result)
	assert.Nil(t, got.ErrorMessage)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "video-1", "/a/1.mp3")
	require.NoError(t, err)
	second, err := s.Create(ctx, "video-2", "/a/2.mp3")
	require.NoError(t, err)
	third, err := s.Create(ctx, "video-3", "/a/3.mp3")
	require.NoError(t, err)

	jobs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	ids := []string{jobs[0].ID, jobs[1].ID, jobs[2].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
	assert.Contains(t, ids, third.ID)
	// Newest first
	assert.False(t, jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
	assert.False(t, jobs[1].CreatedAt.Before(jobs[2].CreatedAt))
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	tests := []struct {
		name string
		from model.JobStatus
		to   model.JobStatus
	}{
		{"double claim", model.JobStatusProcessing, model.JobStatusProcessing},
		{"skip processing", model.JobStatusPending, model.JobStatusCompleted},
		{"pending to error", model.JobStatusPending, model.JobStatusError},
		{"revive completed", model.JobStatusCompleted, model.JobStatusPending},
		{"revive error", model.JobStatusError, model.JobStatusPending},
		{"uncomplete", model.JobStatusCompleted, model.JobStatusProcessing},
		// Legal edges in the state machine, but terminal targets must go
		// through Complete/Fail so status and payload land together.
		{"bare complete", model.JobStatusProcessing, model.JobStatusCompleted},
		{"bare fail", model.JobStatusProcessing, model.JobStatusError},
	}

	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "edge", "/a/e.mp3")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Transition(ctx, job.ID, tt.from, tt.to)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}

	// The record never moved
	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
}

func TestClaimExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "race", "/a/r.mp3")
	require.NoError(t, err)

	const claimers = 16
	var wg sync.WaitGroup
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Claim(ctx, job.ID)
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, claimers-1, conflicts)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
}

func TestClaimMissingJob(t *testing.T) {
	s := newTestStore(t)

	err := s.Claim(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceStage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "stages", "/a/s.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, job.ID))

	require.NoError(t, s.AdvanceStage(ctx, job.ID, model.StageTranslation))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, model.StageTranslation, got.Stage)

	// The job is claimable again for the next stage
	assert.NoError(t, s.Claim(ctx, job.ID))
}

func TestCompleteWritesStatusAndResultTogether(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "complete", "/a/c.mp3")
	require.NoError(t, err)

	result := []byte(`[{"start":0,"end":1.5,"text":"Hallo","translation":"Bonjour"}]`)

	// Only a processing job can complete
	err = s.Complete(ctx, job.ID, result)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.Claim(ctx, job.ID))
	require.NoError(t, s.Complete(ctx, job.ID, result))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, result, got.Result)
	require.NotNil(t, got.CompletedAt)
}

func TestCompleteRejectsEmptyResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "empty", "/a/e.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, job.ID))

	assert.ErrorIs(t, s.Complete(ctx, job.ID, nil), ErrEmptyResult)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Empty(t, got.Result)
}

func TestFailRecordsReason(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "boom", "/a/b.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, job.ID))
	require.NoError(t, s.Fail(ctx, job.ID, "transcription service returned 500"))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusError, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "transcription service returned 500", *got.ErrorMessage)
	assert.Empty(t, got.Result)

	// Terminal: no further claim possible
	assert.ErrorIs(t, s.Claim(ctx, job.ID), ErrConflict)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

	processing, err := s.Create(ctx, "busy", "/a/busy.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, processing.ID))
	assert.ErrorIs(t, s.Delete(ctx, processing.ID), ErrJobProcessing)

	done, err := s.Create(ctx, "done", "/a/done.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, done.ID))
	require.NoError(t, s.Complete(ctx, done.ID, []byte(`[{"text":"x"}]`)))
	require.NoError(t, s.Delete(ctx, done.ID))

	_, err = s.Get(ctx, done.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting one job leaves the other untouched
	got, err := s.Get(ctx, processing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
}

func TestUpdatedAtAdvances(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, "ts", "/a/t.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, job.ID))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.Before(job.UpdatedAt))
}
