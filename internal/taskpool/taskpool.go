// Package taskpool runs independent VM executions concurrently, the Go
// side of the spec's async Task model: each task is a goroutine driving
// its own *vm.VM to completion, bounded by a semaphore so a script that
// spawns many tasks doesn't unbound the number of live goroutines.
package taskpool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"nilan/value"
	"nilan/vm"
)

// Pool bounds how many tasks run at once.
type Pool struct {
	sem *semaphore.Weighted
}

// New returns a Pool that runs at most maxConcurrent tasks simultaneously.
func New(maxConcurrent int64) *Pool {
	return &Pool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Task is one unit of work submitted to the pool: a VM and the entry
// point (item path) to call on it.
type Task struct {
	VM   *vm.VM
	Item string
	Args []value.Value
}

// RunAll runs every task concurrently, bounded by the pool's
// concurrency limit, and returns each task's result in the same order
// tasks were given. The first task to fail cancels the group's context, so
// tasks still waiting for a slot do not start, and RunAll returns that error
// with a nil result slice.
func (p *Pool) RunAll(ctx context.Context, tasks []Task) ([]value.Value, error) {
	results := make([]value.Value, len(tasks))
	g, gctx := errgroup.WithContext(ctx)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := p.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer p.sem.Release(1)

			result, err := task.VM.Call(task.Item, task.Args)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
