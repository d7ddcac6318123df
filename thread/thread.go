// Package thread runs loops over index ranges on a fixed number of workers.
// Every call returns only once all of its workers have finished, so
// consecutive calls are separated by a barrier.
package thread

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// NumCores is the number of workers used when a caller asks for zero.
var NumCores = runtime.NumCPU()

// chunksPerWorker controls how finely a range is split. Smaller chunks
// balance uneven work better at the cost of more atomic operations.
const chunksPerWorker = 8

// Workers returns the number of workers that For would use.
func Workers(workers, n int) int {
	if workers <= 0 {
		workers = NumCores
	}
	return max(min(workers, n), 1)
}

// For calls fn on disjoint chunks [lo, hi) which together cover [0, n).
// worker identifies the calling goroutine and lies in [0, Workers(workers,
// n)), so fn may accumulate into per-worker buffers without locking. The
// first error returned by fn stops the remaining chunks from starting.
func For(
	ctx context.Context, workers, n int,
	fn func(worker, lo, hi int) error,
) error {
	if n <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	workers = Workers(workers, n)
	if workers == 1 {
		return fn(0, 0, n)
	}

	chunk := max(n/(workers*chunksPerWorker), 1)
	next := &atomic.Int64{}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				hi := int(next.Add(int64(chunk)))
				lo := hi - chunk
				if lo >= n {
					return nil
				}
				if err := fn(w, lo, min(hi, n)); err != nil {
					return err
				}
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}
