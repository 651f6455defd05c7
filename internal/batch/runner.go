package batch

import (
	"context"
	"sync"
	"time"
)

// DefaultConcurrency is the chunk size used when Options.Concurrency is
// not set.
const DefaultConcurrency = 3

// Options configures a single Run invocation.
type Options struct {
	// Concurrency is the chunk size. Items within a chunk run
	// concurrently; chunks run sequentially relative to each other.
	// Defaults to DefaultConcurrency when zero or negative.
	Concurrency int

	// ChunkDelay is an optional pause inserted before every chunk after
	// the first, pacing load on the downstream service.
	ChunkDelay time.Duration

	// OnChunkDone, when set, is invoked after each chunk settles with the
	// running succeeded and failed tallies and the number of items not yet
	// started. It runs on the driving goroutine.
	OnChunkDone func(succeeded, failed, remaining int)
}

// Failure pairs a failed item with the error its operation returned.
type Failure[T any] struct {
	Item T
	Err  error
}

// Result holds the outcome of a Run. Succeeded and Failed each preserve
// the input order of their items. Skipped holds items never started
// because the run was cancelled between chunks.
type Result[T any] struct {
	Succeeded []T
	Failed    []Failure[T]
	Skipped   []T

	// Cancelled reports whether the run stopped early. A cancelled run
	// still settled every item it had started.
	Cancelled bool
}

// Run executes op over items in consecutive chunks of Options.Concurrency,
// waiting for every operation in a chunk to settle before the next chunk
// starts. A failed item never aborts its chunk siblings.
//
// Cancellation is cooperative and checked only between chunks: when ctx is
// done, no further chunk starts and the remaining items are reported as
// Skipped. Operations receive a context detached from ctx's cancellation
// so an in-flight chunk always completes.
//
// Run does not retry. Retry policy belongs to the caller.
func Run[T any](ctx context.Context, items []T, op func(ctx context.Context, item T) error, opts Options) Result[T] {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	var result Result[T]
	if len(items) == 0 {
		return result
	}

	// In-flight operations are allowed to settle even after ctx is done.
	opCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(items); start += concurrency {
		if err := ctx.Err(); err != nil {
			result.Skipped = append(result.Skipped, items[start:]...)
			result.Cancelled = true
			return result
		}

		if start > 0 && opts.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				result.Skipped = append(result.Skipped, items[start:]...)
				result.Cancelled = true
				return result
			case <-time.After(opts.ChunkDelay):
			}
		}

		end := start + concurrency
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		errs := make([]error, len(chunk))
		var wg sync.WaitGroup
		for i, item := range chunk {
			wg.Add(1)
			go func(i int, item T) {
				defer wg.Done()
				errs[i] = op(opCtx, item)
			}(i, item)
		}
		wg.Wait()

		for i, item := range chunk {
			if errs[i] != nil {
				result.Failed = append(result.Failed, Failure[T]{Item: item, Err: errs[i]})
			} else {
				result.Succeeded = append(result.Succeeded, item)
			}
		}

		if opts.OnChunkDone != nil {
			opts.OnChunkDone(len(result.Succeeded), len(result.Failed), len(items)-end)
		}
	}

	return result
}
