package pool

import (
	"context"

	"golang.org/x/sync/errgroup"

	proction "github.com/nontan-rh/proction"
)

// Grouped is a proction.Scheduler that runs each invocation inside its
// own errgroup.Group, recovering a panicking task and handing the
// recovered value to reportPanic instead of crashing the process. Each
// Spawn gets an independent group, so a panic in one invocation never
// cancels another's context.
type Grouped struct {
	reportPanic func(any)
}

// NewGrouped constructs a Grouped scheduler. reportPanic may be nil, in
// which case a recovered panic is simply swallowed.
func NewGrouped(reportPanic func(any)) *Grouped {
	return &Grouped{reportPanic: reportPanic}
}

func (g *Grouped) Spawn(ctx context.Context, task func(ctx context.Context) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				if g.reportPanic != nil {
					g.reportPanic(r)
				}
				err = nil
			}
		}()
		return task(egCtx)
	})
	return eg.Wait()
}

var _ proction.Scheduler = (*Grouped)(nil)
