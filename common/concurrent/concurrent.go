package concurrent

import (
	"context"
	"sync"
)

type Func = func(context.Context) error

// Run calls each function in its own goroutine and waits for all of them.
// The first failure cancels the shared context; its error is returned.
// Functions must honor context cancellation for Run to terminate.
func Run(ctx context.Context, fs ...Func) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for _, f := range fs {
		wg.Add(1)

		go func(fn Func) {
			defer wg.Done()

			if err := fn(ctx); err != nil {
				once.Do(func() { firstErr = err })
				cancel()
			}
		}(f)
	}

	wg.Wait()
	return firstErr
}
