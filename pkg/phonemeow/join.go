package phonemeow

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// defaultBatchConcurrency bounds the fan-out of directory lookups. The
// directory service rate limits aggressively, so this stays small.
const defaultBatchConcurrency = 8

// collectBatch runs fn over every input on its own goroutine, joins, and
// returns the successful outputs in input order together with a compiled
// error for the failures. A non-nil output slice alongside a non-nil error
// is partial success, not total failure; callers must treat it as such.
//
// Every branch reports exactly once. If the number of successes plus
// failures does not add up to the number of inputs, the batch is reported
// as ErrMismatchedBatchOutput even when partial data exists.
func collectBatch[I, O any](ctx context.Context, inputs []I, concurrency int, fn func(context.Context, I) (O, error)) ([]O, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	type branchResult struct {
		output O
		err    error
	}
	results := make([]branchResult, len(inputs))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	wg.Add(len(inputs))
	for i, input := range inputs {
		go func(i int, input I) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			output, err := fn(ctx, input)
			results[i] = branchResult{output: output, err: err}
		}(i, input)
	}
	wg.Wait()

	outputs := make([]O, 0, len(inputs))
	var compiled *multierror.Error
	failures := 0
	for _, res := range results {
		if res.err != nil {
			failures++
			compiled = multierror.Append(compiled, res.err)
		} else {
			outputs = append(outputs, res.output)
		}
	}
	if len(outputs)+failures != len(inputs) {
		return outputs, fmt.Errorf("%w: %d inputs, %d successes, %d failures",
			ErrMismatchedBatchOutput, len(inputs), len(outputs), failures)
	}
	return outputs, compiled.ErrorOrNil()
}
