package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartRunsImmediately(t *testing.T) {
	var runs atomic.Int32
	s := New(time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if got := runs.Load(); got != 1 {
		t.Errorf("Expected 1 immediate run, got %d", got)
	}
}

func TestStartRunsOnTicks(t *testing.T) {
	var runs atomic.Int32
	s := New(10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if got := runs.Load(); got < 3 {
		t.Errorf("Expected at least 3 runs over 100ms, got %d", got)
	}
}

func TestOverlappingRunsSkipped(t *testing.T) {
	var starts atomic.Int32

	// The run outlives many ticks; every tick that fires while it is
	// going must be skipped, not queued.
	s := New(10*time.Millisecond, func(ctx context.Context) error {
		starts.Add(1)
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if got := starts.Load(); got != 1 {
		t.Errorf("Expected exactly 1 run while the first is in flight, got %d", got)
	}
}

func TestNewClampsInterval(t *testing.T) {
	s := New(0, func(ctx context.Context) error { return nil })
	if s.interval != 5*time.Minute {
		t.Errorf("Expected 5m fallback, got %s", s.interval)
	}
	s = New(-time.Minute, func(ctx context.Context) error { return nil })
	if s.interval != 5*time.Minute {
		t.Errorf("Expected 5m fallback, got %s", s.interval)
	}
}

func TestRunErrorDoesNotStopLoop(t *testing.T) {
	var runs atomic.Int32
	s := New(10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return context.DeadlineExceeded
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if got := runs.Load(); got < 2 {
		t.Errorf("Expected the loop to keep running after errors, got %d runs", got)
	}
}
