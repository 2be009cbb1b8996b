package pageshot

import (
	"context"
	"sync"
)

// DefaultWorkers is the page-level parallelism used when none is configured.
const DefaultWorkers = 3

// ForEach calls fn for every index in [0, n) with at most limit calls in
// flight, and returns once all of them have returned. Indices not yet started
// when ctx is cancelled are skipped. Each call must own its browser: pages
// never share one.
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) {
	if limit < 1 {
		limit = DefaultWorkers
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}
	wg.Wait()
}
