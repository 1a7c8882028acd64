package combine

import (
	"context"
	"sync"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunAll runs jobs in parallel, at most Options.Workers at a time. A
// failing job does not stop the others. Results are in job order; the
// entry of a failed job is nil and its error is part of the combined
// error.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	var (
		mu     sync.Mutex
		failed errs.Group
	)
	var g errgroup.Group
	g.SetLimit(max(r.opts.Workers, 1))
	for i, job := range jobs {
		g.Go(func() error {
			res, err := r.Run(ctx, job)
			if err != nil {
				mu.Lock()
				failed.Add(Error.New("%s: %v", job, err))
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // jobs never return an error

	if err := failed.Err(); err != nil {
		r.log.Warn("some jobs failed", zap.Int("jobs", len(jobs)), zap.Error(err))
		return results, err
	}
	return results, nil
}
