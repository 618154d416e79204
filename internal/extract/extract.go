package extract

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dfgiraldo/movalert/internal/news"
)

// Extractor produces the raw candidate items for one pipeline run.
// Per-source failures come back in sourceErrs with the surviving items
// still usable; err is non-nil only when extraction as a whole failed.
type Extractor interface {
	ExtractAll(ctx context.Context) (items []news.Item, sourceErrs []error, err error)
}

// Source is a single upstream news provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]news.Item, error)
}

// Multi fans extraction out across sources. Sources share no state, so
// each fetch runs in its own goroutine; results keep source order so a run
// over the same inputs is deterministic.
type Multi struct {
	sources []Source
	fetcher *BodyFetcher
}

// NewMulti creates a composite extractor. fetcher may be nil to skip
// full-body fetching.
func NewMulti(sources []Source, fetcher *BodyFetcher) *Multi {
	return &Multi{sources: sources, fetcher: fetcher}
}

// ExtractAll fetches every source and flattens the results. A source
// failure costs only that source's items; extraction as a whole fails only
// when every source failed.
func (m *Multi) ExtractAll(ctx context.Context) ([]news.Item, []error, error) {
	if len(m.sources) == 0 {
		return nil, nil, nil
	}

	results := make([][]news.Item, len(m.sources))
	errs := make([]error, len(m.sources))

	var wg sync.WaitGroup
	for i, src := range m.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			items, err := src.Fetch(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return
			}
			results[i] = items
		}(i, src)
	}
	wg.Wait()

	var all []news.Item
	var failed []error
	for i := range m.sources {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			log.Printf("Source failed: %v", errs[i])
			continue
		}
		all = append(all, results[i]...)
		log.Printf("Extracted %d items from %s", len(results[i]), m.sources[i].Name())
	}

	if len(failed) == len(m.sources) {
		return nil, failed, fmt.Errorf("all %d sources failed, first error: %w", len(failed), failed[0])
	}

	if m.fetcher != nil {
		m.fetcher.FillBodies(ctx, all)
	}

	return all, failed, nil
}
