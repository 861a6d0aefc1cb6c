package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every item concurrently, each invocation holding one of
// the limiter's permits. Results preserve input order. The first error
// cancels the remaining work.
func Map[T, R any](ctx context.Context, l *Limiter, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			release, err := l.Acquire(gctx)
			if err != nil {
				return err
			}
			defer release()

			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
