// ParallelConfig and ParallelMap, a threshold-gated parallel map
// (MultiShortestPath's path combination uses it; exec.Join does not).
// Grounded on the teacher's pkg/pool worker-pool shape, generalized
// from a fixed-size goroutine pool into one that splits [0, n) into
// contiguous ranges, one goroutine per range. There is no work
// stealing: each goroutine processes only its own range, and
// EnableWorkStealing is not read by ParallelMap.
package exec

import (
	"sync"
)

// ParallelConfig supplies the knobs named in §4.C.
type ParallelConfig struct {
	Parallelism        int
	MinRowsPerThread    int
	EnableWorkStealing bool
}

func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{Parallelism: 4, MinRowsPerThread: 1000, EnableWorkStealing: true}
}

// ShouldParallelize reports whether n rows justify sharding under cfg.
func (cfg ParallelConfig) ShouldParallelize(n int) bool {
	return cfg.Parallelism > 1 && n >= cfg.MinRowsPerThread
}

// shard splits [0, n) into up to `workers` contiguous ranges of
// roughly equal size.
func shard(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}
	base := n / workers
	rem := n % workers
	out := make([][2]int, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		out = append(out, [2]int{start, start + size})
		start += size
	}
	return out
}

// ParallelMap applies fn to each index in [0, n) across cfg's worker
// count, aggregating each worker's partial result with combine under
// a lock. When n doesn't meet cfg's threshold, it runs sequentially
// on the calling goroutine — parallel dispatch overhead isn't worth
// it below min_rows_per_thread.
func ParallelMap[T any](cfg ParallelConfig, n int, fn func(i int) T, combine func(acc []T, v T) []T) []T {
	var acc []T
	if !cfg.ShouldParallelize(n) {
		for i := 0; i < n; i++ {
			acc = combine(acc, fn(i))
		}
		return acc
	}

	ranges := shard(n, cfg.Parallelism)
	results := make([][]T, len(ranges))
	var wg sync.WaitGroup
	for w, r := range ranges {
		wg.Add(1)
		go func(w int, lo, hi int) {
			defer wg.Done()
			var local []T
			for i := lo; i < hi; i++ {
				local = combine(local, fn(i))
			}
			results[w] = local
		}(w, r[0], r[1])
	}
	wg.Wait()
	for _, r := range results {
		acc = append(acc, r...)
	}
	return acc
}
