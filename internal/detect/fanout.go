package detect

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FanOut runs probe for every device name concurrently. It fails only
// when every probe failed; otherwise the successful records are returned
// in name order.
func FanOut[T any](ctx context.Context, env Env, names []string, probe func(context.Context, string) (T, error)) ([]T, error) {
	results := make([]*T, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(env.Concurrency, DefaultConcurrency))
	for i, name := range names {
		g.Go(func() error {
			rec, err := probe(gctx, name)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	var out []T
	var firstErr error
	for i := range names {
		if results[i] != nil {
			out = append(out, *results[i])
		} else if firstErr == nil {
			firstErr = errs[i]
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
