package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/armelgeek/heysprech-api/internal/client"
	"github.com/armelgeek/heysprech-api/internal/config"
	"github.com/armelgeek/heysprech-api/internal/queue"
	"github.com/armelgeek/heysprech-api/internal/store"
)

// Pipeline owns the stage workers for both phases and their lifecycle.
type Pipeline struct {
	store          *store.Store
	queue          *queue.Queue
	stages         []stageGroup
	dequeueTimeout time.Duration

	wg     sync.WaitGroup
	active atomic.Int64
}

type stageGroup struct {
	stage   Stage
	workers int
}

func NewPipeline(
	st *store.Store,
	q *queue.Queue,
	transcriber client.Transcriber,
	translator client.Translator,
	cfg *config.PipelineConfig,
) *Pipeline {
	stageTimeout := time.Duration(cfg.StageTimeout) * time.Second
	return &Pipeline{
		store:          st,
		queue:          q,
		dequeueTimeout: time.Duration(cfg.DequeueTimeout) * time.Second,
		stages: []stageGroup{
			{stage: TranscriptionStage(transcriber, stageTimeout), workers: cfg.TranscriptionWorkers},
			{stage: TranslationStage(translator, stageTimeout), workers: cfg.TranslationWorkers},
		},
	}
}

// Start launches the configured number of workers per stage. Workers stop
// when ctx is cancelled; Wait blocks until they are all gone.
func (p *Pipeline) Start(ctx context.Context) {
	for _, g := range p.stages {
		for i := 1; i <= g.workers; i++ {
			id := fmt.Sprintf("%s-%d", g.stage.Name, i)
			w := NewWorker(id, g.stage, p.store, p.queue, p.dequeueTimeout)
			p.wg.Add(1)
			p.active.Add(1)
			go func() {
				defer p.wg.Done()
				defer p.active.Add(-1)
				w.Run(ctx)
			}()
		}
		log.Printf("started %d %s workers", g.workers, g.stage.Name)
	}
}

func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// ActiveWorkers reports how many worker loops are currently alive, for the
// system status endpoint.
func (p *Pipeline) ActiveWorkers() int64 {
	return p.active.Load()
}
