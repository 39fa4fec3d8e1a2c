// Package fileproc provides concurrent per-file processing utilities.
package fileproc

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for the
// default worker count. 2x covers the mixed I/O and hashing workload.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each item is processed. Must be safe for
// concurrent use.
type ProgressFunc func()

// MapIndexed processes items on a fixed worker pool and places each
// result at its input index, so the output order is independent of
// scheduling. An item whose fn returns an error keeps the zero result;
// errors never abort the map. If maxWorkers is <= 0, 2x NumCPU is used.
func MapIndexed[T, R any](items []T, maxWorkers int, fn func(int, T) (R, error), onProgress ProgressFunc) []R {
	if len(items) == 0 {
		return nil
	}

	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results := make([]R, len(items))

	p := pool.New().WithMaxGoroutines(maxWorkers)
	for i, item := range items {
		i, item := i, item // per-iteration copies; required under go <1.22
		p.Go(func() {
			result, err := fn(i, item)
			if err == nil {
				results[i] = result
			}
			if onProgress != nil {
				onProgress()
			}
		})
	}
	p.Wait()

	return results
}
