package match

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Recorder is the persistence bridge the engine reports to.
// This lets the engine save results without depending on the storage package.
type Recorder interface {
	RecordMatch(ctx context.Context, rec MatchRecord) error
	SaveCharacterSelection(ctx context.Context, sel Selection) error
}

// persistTimeout bounds a single storage call.
const persistTimeout = 5 * time.Second

type persistJob struct {
	name string
	run  func(ctx context.Context) error
}

// persister runs storage calls on one background goroutine so the tick never
// waits on the database. Jobs are dropped, with a warning, when the queue is full.
type persister struct {
	rec    Recorder
	jobs   chan persistJob
	logger *log.Logger
	wg     sync.WaitGroup
}

func newPersister(rec Recorder, queueSize int, logger *log.Logger) *persister {
	if queueSize < 1 {
		queueSize = 16
	}
	return &persister{
		rec:    rec,
		jobs:   make(chan persistJob, queueSize),
		logger: logger,
	}
}

func (p *persister) start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for job := range p.jobs {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			if err := job.run(ctx); err != nil {
				p.logger.Error("persistence failed", "job", job.name, "error", err)
			} else {
				p.logger.Debug("persisted", "job", job.name)
			}
			cancel()
		}
	}()
}

// stop waits for queued jobs to finish. Must be called from the goroutine
// that enqueues.
func (p *persister) stop() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *persister) enqueue(job persistJob) {
	if p.rec == nil {
		return
	}
	select {
	case p.jobs <- job:
	default:
		p.logger.Warn("persistence queue full, dropping job", "job", job.name)
	}
}

func (p *persister) recordMatch(rec MatchRecord) {
	p.enqueue(persistJob{
		name: "record_match",
		run: func(ctx context.Context) error {
			return p.rec.RecordMatch(ctx, rec)
		},
	})
}

func (p *persister) saveSelection(sel Selection) {
	p.enqueue(persistJob{
		name: "save_character_selection",
		run: func(ctx context.Context) error {
			return p.rec.SaveCharacterSelection(ctx, sel)
		},
	})
}
