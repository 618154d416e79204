// Package schedule runs the pipeline on a fixed interval.
package schedule

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// RunFunc is one pipeline cycle. Errors are logged, never fatal to the
// loop.
type RunFunc func(ctx context.Context) error

// Scheduler triggers a run immediately and then on every tick until the
// context is cancelled. A tick that fires while the previous run is
// still going is skipped rather than queued.
type Scheduler struct {
	interval time.Duration
	run      RunFunc
	running  atomic.Bool
}

// New creates a scheduler. A non-positive interval falls back to five
// minutes.
func New(interval time.Duration, run RunFunc) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{interval: interval, run: run}
}

// Start blocks until ctx is cancelled, running one cycle up front and
// one per interval after that. Cycles run in the background so a slow
// one never delays the tick that decides to skip it; Start waits for an
// in-flight cycle before returning.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("Scheduler started, interval %s", s.interval)

	var wg sync.WaitGroup
	s.runOnce(ctx, &wg)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, &wg)
		}
	}
}

// runOnce starts one cycle in the background unless the previous one is
// still going.
func (s *Scheduler) runOnce(ctx context.Context, wg *sync.WaitGroup) {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Previous run still in progress, skipping this tick")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.running.Store(false)
		if err := s.run(ctx); err != nil {
			log.Printf("Run failed: %v", err)
		}
	}()
}
