package analysis

import (
	"context"
	"sync"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
)

// TaskState tracks one per-type analysis task through the scheduler. Every
// task ends in a terminal state; a model outage degrades a task to a
// fallback state instead of failing the run.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskCalling TaskState = "calling"

	// terminal states
	TaskCacheHit        TaskState = "cache_hit"
	TaskSkipped         TaskState = "skipped_empty"
	TaskSucceeded       TaskState = "succeeded"
	TaskFallbackMock    TaskState = "fallback_mock"
	TaskFallbackPartial TaskState = "fallback_partial"
)

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCacheHit, TaskSkipped, TaskSucceeded, TaskFallbackMock, TaskFallbackPartial:
		return true
	}
	return false
}

// TaskResult is the outcome of one per-type analysis task.
type TaskResult struct {
	Type     pattern.Type      `json:"pattern_type"`
	State    TaskState         `json:"state"`
	Analysis *pattern.Analysis `json:"-"`
	Err      error             `json:"-"`
}

// runScheduled executes one analysis task per pattern type. Tasks start in
// priority order and at most maxConcurrent run at once, so the
// highest-signal patterns get model budget first when the run is cut short
// by the overall deadline. The returned slice is ordered by priority and
// every entry carries a terminal state and a non-nil analysis.
func (s *Service) runScheduled(ctx context.Context, fingerprint string, data *pattern.PatternData, stats transaction.SummaryStats, maxConcurrent int) []TaskResult {
	types := pattern.AllTypes()
	results := make([]TaskResult, len(types))

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxConcurrent > len(types) {
		maxConcurrent = len(types)
	}

	// workers pull from an ordered channel, so tasks start strictly in
	// priority order even though they finish out of order
	tasks := make(chan int)
	go func() {
		defer close(tasks)
		for i := range types {
			tasks <- i
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < maxConcurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				results[idx] = s.analyzeType(ctx, fingerprint, types[idx], data, stats)
			}
		}()
	}
	wg.Wait()

	return results
}
