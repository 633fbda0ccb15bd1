// Package parallel splits row ranges across goroutines for element-wise
// kernels. Each worker owns a disjoint [start, end) range, so results are
// identical to a sequential loop.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the element count below which kernels run inline.
const DefaultThreshold = 4096

// Rows calls fn over disjoint chunks covering [0, n), one goroutine per chunk,
// and waits for all of them.
func Rows(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// RowsIfLarge runs fn(0, n) inline when work (typically rows*cols) is at or
// below threshold and falls back to Rows otherwise.
func RowsIfLarge(n, work, threshold int, fn func(start, end int)) {
	if work <= threshold {
		if n > 0 {
			fn(0, n)
		}
		return
	}
	Rows(n, fn)
}
