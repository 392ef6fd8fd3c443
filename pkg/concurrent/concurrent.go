package concurrent

import (
	"context"
	"sync"

	"github.com/zeusync/arena/pkg/sequence"
	"golang.org/x/sync/errgroup"
)

// Concurrent runs the action function for each element of the iterator in a separate goroutine,
// at most limit at a time (no limit when limit <= 0). It waits for all goroutines to finish
// and returns the first error encountered.
func Concurrent[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	errGroup, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		errGroup.SetLimit(limit)
	}

	for value := range i.Seq() {
		errGroup.Go(func() error {
			return action(ctx, value)
		})
	}

	return errGroup.Wait()
}

// ParallelMute runs the action function for each element of the iterator in a separate goroutine
// and collects the failures instead of stopping at the first one.
func ParallelMute[T any](i *sequence.Iterator[T], action func(T) error) map[int]error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed map[int]error
	)

	idx := 0
	for value := range i.Seq() {
		wg.Add(1)
		go func(n int, value T) {
			defer wg.Done()
			if err := action(value); err != nil {
				mu.Lock()
				if failed == nil {
					failed = make(map[int]error)
				}
				failed[n] = err
				mu.Unlock()
			}
		}(idx, value)
		idx++
	}

	wg.Wait()
	return failed
}
