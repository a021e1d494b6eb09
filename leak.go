package proction

// auditLeaks walks every Intermediate slot in a completed Plan and raises a
// KindAssertion error naming the first one still holding a live payload.
// A slot still uninitialized at this point was never acquired (its
// producing invocation was pruned as dead, or the slot was minted and
// never produced), so it holds nothing to leak. Source and Destination
// slots are caller-owned and exempt. Only runs when the Context was built
// with WithAssertNoLeak(true), since it adds an O(slots) pass after every
// Run.
func auditLeaks(p *Plan) error {
	p.mu.Lock()
	slots := make(map[handleID]*slot, len(p.slots))
	for id, s := range p.slots {
		slots[id] = s
	}
	p.mu.Unlock()

	for id, s := range slots {
		if s.kind != slotIntermediate {
			continue
		}
		if s.ref.State() == refLive {
			if p.ctx.metrics != nil {
				p.ctx.metrics.LeakDetected()
			}
			return newErrorf(KindAssertion, "intermediate slot %d was never freed", id)
		}
	}
	return nil
}
