// Package pipeline runs one end-to-end collection cycle: extract news,
// drop duplicates, score what remains, persist keepers, and alert on
// severe items.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dfgiraldo/movalert/internal/alert"
	"github.com/dfgiraldo/movalert/internal/extract"
	"github.com/dfgiraldo/movalert/internal/news"
	"github.com/dfgiraldo/movalert/internal/score"
	"github.com/dfgiraldo/movalert/internal/storage"
)

// Runner wires the pipeline stages together.
type Runner struct {
	store      storage.Store
	extractor  extract.Extractor
	scorer     score.Scorer
	dispatcher alert.Dispatcher
}

// NewRunner creates a pipeline runner. dispatcher may be nil to disable
// alerting.
func NewRunner(store storage.Store, extractor extract.Extractor, scorer score.Scorer, dispatcher alert.Dispatcher) *Runner {
	return &Runner{
		store:      store,
		extractor:  extractor,
		scorer:     scorer,
		dispatcher: dispatcher,
	}
}

// Run executes one pipeline cycle. The execution record is written even
// when the run fails; item-level failures are collected in the stats
// and never abort the cycle.
func (r *Runner) Run(ctx context.Context) (*news.RunStats, error) {
	start := time.Now()
	stats := &news.RunStats{}

	defer func() {
		stats.DurationSeconds = time.Since(start).Seconds()
		if err := r.store.LogExecution(*stats); err != nil {
			log.Printf("Failed to record execution: %v", err)
		}
	}()

	log.Println("Starting pipeline run")

	items, sourceErrs, err := r.extractor.ExtractAll(ctx)
	for _, e := range sourceErrs {
		stats.Errors = append(stats.Errors, fmt.Sprintf("extracting %v", e))
	}
	if err != nil {
		if len(sourceErrs) == 0 {
			stats.Errors = append(stats.Errors, fmt.Sprintf("extraction: %v", err))
		}
		return stats, fmt.Errorf("extraction failed: %w", err)
	}
	stats.Extracted = len(items)
	log.Printf("Extracted %d items", len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("run cancelled: %v", ctx.Err()))
			return stats, ctx.Err()
		}
		r.processItem(ctx, item, stats)
	}

	log.Printf("Run complete: %s", stats.Summary())
	return stats, nil
}

// processItem carries one item through dedup, scoring, persistence, and
// alerting. Failures land in stats.Errors.
func (r *Runner) processItem(ctx context.Context, item news.Item, stats *news.RunStats) {
	dup, err := r.store.IsDuplicate(item.URL)
	if err != nil {
		// Treat the item as new; the unique constraint on insert is the
		// authoritative guard.
		stats.Errors = append(stats.Errors, fmt.Sprintf("dedup check %s: %v", item.URL, err))
	} else if dup {
		stats.Deduplicated++
		return
	}

	stats.Scored++
	scored, err := r.scorer.Score(ctx, item)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("scoring %s: %v", item.URL, err))
		return
	}
	if scored == nil {
		stats.Discarded++
		return
	}
	// Kept counts scorer verdicts, so scored == kept + discarded + errors
	// holds regardless of what happens during persistence.
	stats.Kept++

	id, err := r.store.InsertNews(*scored)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("saving %s: %v", scored.URL, err))
		return
	}
	if id == 0 {
		// Lost an insert race; another run already saved this URL. Not an
		// error, just not saved here, and nothing left to alert on.
		return
	}
	scored.ID = id

	r.maybeAlert(*scored, stats)
}

func (r *Runner) maybeAlert(item news.Item, stats *news.RunStats) {
	if r.dispatcher == nil || item.Enrichment == nil || !item.Enrichment.Severity.Alertable() {
		return
	}

	if !r.dispatcher.SendAlert(item) {
		stats.Errors = append(stats.Errors, fmt.Sprintf("alert for item %d not delivered", item.ID))
		return
	}
	stats.Alerted++

	if err := r.store.MarkAlerted(item.ID); err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("marking item %d alerted: %v", item.ID, err))
	}
}
