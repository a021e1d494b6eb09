package pool

import (
	"context"

	"golang.org/x/sync/semaphore"

	proction "github.com/nontan-rh/proction"
)

// Pool is a proction.Scheduler bounding the number of concurrently
// in-flight Spawn calls to a fixed budget, acquired via a weighted
// semaphore.
type Pool struct {
	sem *semaphore.Weighted
}

// New constructs a Pool allowing at most concurrency simultaneous Spawn
// calls in flight. concurrency <= 0 is treated as 1.
func New(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(concurrency))}
}

// Spawn blocks until a slot is free (or ctx is done), runs task, then
// releases the slot.
func (p *Pool) Spawn(ctx context.Context, task func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return task(ctx)
}

var _ proction.Scheduler = (*Pool)(nil)
