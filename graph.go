package proction

import "sort"

// resolvedGraph is the output of resolveGraph: the invocations a
// destination transitively depends on, plus the seeded ready queue the
// driver starts from.
type resolvedGraph struct {
	ready []*invocation
	all   []*invocation
}

// resolveGraph performs the one-time pass between plan construction and
// execution:
//
//  1. map each output handle to its producing invocation, rejecting
//     duplicate producers (each handle has at most one producer);
//  2. reject cycles: a plan with a producer/consumer cycle can never
//     drain, so it fails here with KindLogic instead of deadlocking;
//  3. prune invocations no destination output transitively depends on —
//     a dead invocation never dispatches, so its provider thunks are
//     never called and its intermediate slots are never acquired;
//  4. for each surviving invocation's input, look up the producer (if
//     any), push the consumer into the producer's next, increment the
//     consumer's numBlockers, and pre-commit one IncRef per
//     intermediate-slot consumption;
//  5. seed the ready queue with invocations whose numBlockers == 0.
func resolveGraph(p *Plan) (*resolvedGraph, error) {
	p.mu.Lock()
	all := make([]*invocation, 0, len(p.invocations))
	for _, inv := range p.invocations {
		all = append(all, inv)
	}
	destinationOut := make(map[handleID]bool, len(p.slots))
	for id, s := range p.slots {
		if s.kind == slotDestination {
			destinationOut[id] = true
		}
	}
	p.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	producedBy := make(map[handleID]*invocation, len(p.slots))
	for _, inv := range all {
		for _, out := range inv.outputs {
			if existing, dup := producedBy[out.id]; dup {
				return nil, newErrorf(KindLogic, "handle %d has more than one producer (invocations %d and %d)", out.id, existing.id, inv.id)
			}
			producedBy[out.id] = inv
		}
	}

	if err := rejectCycles(all, producedBy); err != nil {
		return nil, err
	}

	live := make(map[*invocation]bool, len(all))
	var work []*invocation
	for _, inv := range all {
		for _, out := range inv.outputs {
			if destinationOut[out.id] {
				live[inv] = true
				work = append(work, inv)
				break
			}
		}
	}
	for len(work) > 0 {
		inv := work[len(work)-1]
		work = work[:len(work)-1]
		for _, in := range inv.inputs {
			if producer, ok := producedBy[in.id]; ok && !live[producer] {
				live[producer] = true
				work = append(work, producer)
			}
		}
	}

	liveInvs := make([]*invocation, 0, len(live))
	for _, inv := range all {
		if live[inv] {
			liveInvs = append(liveInvs, inv)
		}
	}

	for _, inv := range liveInvs {
		for _, in := range inv.inputs {
			if err := p.incRefHandle(in); err != nil {
				return nil, err
			}
			if producer, ok := producedBy[in.id]; ok {
				producer.next = append(producer.next, inv)
				inv.numBlockers++
			}
		}
	}

	var ready []*invocation
	for _, inv := range liveInvs {
		if inv.numBlockers == 0 {
			ready = append(ready, inv)
		}
	}

	return &resolvedGraph{ready: ready, all: liveInvs}, nil
}

// rejectCycles runs Kahn's algorithm over every recorded invocation, live
// or not. The counter scheme in the driver never dispatches a cycle
// member, so without this check a cycle would surface as a silent
// no-op (when pruned) or as the driver's error only after the rest of the
// graph had run (when live); checking here turns both into an explicit
// error before anything runs.
func rejectCycles(all []*invocation, producedBy map[handleID]*invocation) error {
	indegree := make(map[*invocation]int, len(all))
	succs := make(map[*invocation][]*invocation, len(all))
	for _, inv := range all {
		for _, in := range inv.inputs {
			if producer, ok := producedBy[in.id]; ok {
				succs[producer] = append(succs[producer], inv)
				indegree[inv]++
			}
		}
	}

	var queue []*invocation
	for _, inv := range all {
		if indegree[inv] == 0 {
			queue = append(queue, inv)
		}
	}
	visited := 0
	for len(queue) > 0 {
		inv := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		visited++
		for _, s := range succs[inv] {
			indegree[s]--
			if indegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if visited != len(all) {
		return newError(KindLogic, "computation graph has a cycle")
	}
	return nil
}
