package proction

import "sync/atomic"

// handleID and invocationID are opaque, monotonic, plan-scoped identities.
// Minting is a simple atomic counter: there is no requirement for global
// uniqueness, only uniqueness within one Plan.
type (
	handleID     uint64
	invocationID uint64
)

// idGen mints monotonic ids starting at 1, so the zero value of handleID /
// invocationID is reliably "no id" / "not yet minted".
type idGen struct{ next atomic.Uint64 }

func (g *idGen) mint() uint64 {
	return g.next.Add(1)
}
