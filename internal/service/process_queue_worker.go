package service

import (
	"context"
	"log"
	"sync"
	"time"

	"docuflow/internal/lifecycle"
	"docuflow/internal/pipeline"
)

// ProcessQueueConfig holds settings for the processing queue worker.
type ProcessQueueConfig struct {
	PollInterval   time.Duration
	SweepInterval  time.Duration
	StalledTimeout time.Duration
	DocTimeout     time.Duration
	Concurrency    int
}

// ProcessQueueWorker polls for queued documents and dispatches them through
// the extraction pipeline.
type ProcessQueueWorker struct {
	tracker *lifecycle.Tracker
	engine  *pipeline.Engine
	cfg     ProcessQueueConfig
	wg      sync.WaitGroup
}

// NewProcessQueueWorker creates a new ProcessQueueWorker.
func NewProcessQueueWorker(tracker *lifecycle.Tracker, engine *pipeline.Engine, cfg ProcessQueueConfig) *ProcessQueueWorker {
	return &ProcessQueueWorker{
		tracker: tracker,
		engine:  engine,
		cfg:     cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight pipeline runs have finished.
func (w *ProcessQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	sweeper := time.NewTicker(w.cfg.SweepInterval)
	defer sweeper.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("processQueueWorker: started (poll=%s, concurrency=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			log.Printf("processQueueWorker: shutting down, waiting for in-flight documents...")
			w.wg.Wait()
			log.Printf("processQueueWorker: shutdown complete")
			return

		case <-sweeper.C:
			swept, err := w.tracker.SweepStalled(ctx, w.cfg.StalledTimeout)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("processQueueWorker: sweep error: %v", err)
				}
				continue
			}
			if swept > 0 {
				log.Printf("processQueueWorker: failed %d stalled documents", swept)
			}

		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			docs, err := w.tracker.Claim(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("processQueueWorker: claim error: %v", err)
				continue
			}

			for i := range docs {
				doc := docs[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Fresh context independent of the poll context so
					// in-flight documents complete during shutdown.
					runCtx, cancel := context.WithTimeout(context.Background(), w.cfg.DocTimeout)
					defer cancel()

					log.Printf("processQueueWorker: dispatching document %s", doc.ID)
					if err := w.engine.Process(runCtx, &doc); err != nil {
						log.Printf("processQueueWorker: document %s: %v", doc.ID, err)
					}
				}()
			}
		}
	}
}
