package proction

import (
	"context"
	"time"
)

// drive executes a resolved graph to completion: dispatch every ready
// invocation through the Context's Scheduler, and each time one settles,
// decrement its successors' blocker counts, dispatching any that reach
// zero. A failed invocation still unblocks its successors — they dispatch
// normally. A successor whose input was never prepared (its producer
// failed before preparing outputs, or a Compute body failed) surfaces its
// own KindLogic error when it tries to restore it (see RunError); an
// output a ProcN producer prepared before its body failed is restored as
// the body left it. Returns the first RunError
// encountered, or a KindLogic error if any invocation never became
// dispatchable (resolveGraph rejects cycles up front, so that firing here
// means an internal bug).
func drive(ctx context.Context, p *Plan, g *resolvedGraph) error {
	if len(g.all) == 0 {
		return nil
	}

	type settled struct {
		inv *invocation
		err error
	}

	results := make(chan settled, len(g.all))
	dispatched := make(map[invocationID]bool, len(g.all))
	inflight := 0

	dispatch := func(inv *invocation) {
		inflight++
		dispatched[inv.id] = true
		body := chainMiddleware(inv.middlewares, inv.body)
		if p.ctx.metrics != nil {
			p.ctx.metrics.InvocationStarted()
		}
		go func() {
			start := time.Now()
			err := p.ctx.scheduler.Spawn(ctx, body)
			if p.ctx.metrics != nil {
				p.ctx.metrics.InvocationSettled(time.Since(start), err)
			}
			results <- settled{inv: inv, err: err}
		}()
	}

	for _, inv := range g.ready {
		dispatch(inv)
	}

	var firstErr *RunError
	for inflight > 0 {
		s := <-results
		inflight--
		s.inv.settled = true
		s.inv.err = s.err
		if s.err != nil && firstErr == nil {
			firstErr = &RunError{InvocationID: uint64(s.inv.id), Err: s.err}
		}
		for _, next := range s.inv.next {
			next.numResolvedBlockers++
			if next.numResolvedBlockers == next.numBlockers && !dispatched[next.id] {
				dispatch(next)
			}
		}
	}

	for _, inv := range g.all {
		if !dispatched[inv.id] {
			return newError(KindLogic, "computation graph has a cycle")
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return nil
}
