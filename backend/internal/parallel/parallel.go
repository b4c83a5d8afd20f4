package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunLimited executes the supplied tasks with an optional concurrency limit.
// Tasks receive a context that is cancelled if any sibling returns an error.
func RunLimited(ctx context.Context, limit int, tasks ...func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for _, task := range tasks {
		if task == nil {
			continue
		}
		group.Go(func() error {
			return task(ctx)
		})
	}

	return group.Wait()
}

// ForEach runs fn for every item, honouring the provided concurrency limit.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	if fn == nil || len(items) == 0 {
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for _, item := range items {
		group.Go(func() error {
			return fn(ctx, item)
		})
	}

	return group.Wait()
}

// Map applies fn to every item concurrently and returns the results in input order.
// The first error cancels the remaining calls and is returned with a nil slice.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, int, T) (R, error)) ([]R, error) {
	if fn == nil || len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))
	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for i, item := range items {
		group.Go(func() error {
			out, err := fn(ctx, i, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
