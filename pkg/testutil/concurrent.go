package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	dErrors "jackbear/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes    int32
	Errors       int32
	Insufficient int32
	InProgress   int32
	InvalidState int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Insufficient + r.InProgress + r.InvalidState
}

// RunConcurrent executes fn in parallel goroutines and collects results,
// categorizing failures by domain error code. This helper replaces the common
// pattern of WaitGroup + atomic counters in tests.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, insufficient, inProgress, invalidState atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInsufficientCredits):
				insufficient.Add(1)
			case dErrors.HasCode(err, dErrors.CodeOperationInProgress):
				inProgress.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInvalidState):
				invalidState.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes:    successes.Load(),
		Errors:       errs.Load(),
		Insufficient: insufficient.Load(),
		InProgress:   inProgress.Load(),
		InvalidState: invalidState.Load(),
	}
}

// RunConcurrentCtx executes fn in parallel goroutines with context support.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}
