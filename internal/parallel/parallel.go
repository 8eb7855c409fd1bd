// Package parallel provides fixed-size scatter/gather over index ranges.
// Each worker owns a contiguous, disjoint range of indices, so results can be
// written by index (or into per-worker partials) without locks.
package parallel

import (
	"runtime"
	"sync"
)

// Workers returns the worker count to use for n units of work, capped by
// the number of CPUs and never below one.
func Workers(n int) int {
	w := runtime.NumCPU()
	if n < w {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Ranges splits [0, n) into w contiguous chunks whose sizes differ by at
// most one. Empty chunks are omitted.
func Ranges(n, w int) [][2]int {
	if n <= 0 {
		return nil
	}
	if w < 1 {
		w = 1
	}
	if w > n {
		w = n
	}

	out := make([][2]int, 0, w)
	size, rem := n/w, n%w
	start := 0
	for i := 0; i < w; i++ {
		end := start + size
		if i < rem {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

// For runs fn(worker, lo, hi) once per range of [0, n) and waits for all of
// them. worker indexes the range, so callers can keep one partial result per
// worker. With a single range fn runs on the calling goroutine.
func For(n, workers int, fn func(worker, lo, hi int)) {
	ranges := Ranges(n, workers)
	if len(ranges) == 1 {
		fn(0, ranges[0][0], ranges[0][1])
		return
	}

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(i, r[0], r[1])
		}()
	}
	wg.Wait()
}

// Map evaluates fn for every index of [0, n) and returns the results in
// index order.
func Map[T any](n int, fn func(i int) T) []T {
	out := make([]T, n)
	For(n, Workers(n), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = fn(i)
		}
	})
	return out
}
