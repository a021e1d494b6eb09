package proction

import "context"

// Handle is an opaque token identifying a value inside one Plan. It
// carries an identity unique within its Plan, a back-reference to that
// Plan (used for the cross-plan Precondition check), and a phantom
// payload-type marker T used only for static typing at call sites.
// Handles are values: cheap to copy, compared by identity, and valid only
// within the single Run that produced them.
type Handle[T any] struct {
	id   handleID
	plan *Plan
}

func (h Handle[T]) valid() bool { return h.plan != nil && h.id != 0 }

// toRef erases T, producing the untyped reference the core's Invocation
// bookkeeping actually operates on (the core is payload-agnostic).
func (h Handle[T]) toRef() handleRef {
	return handleRef{id: h.id, plan: h.plan}
}

// AnyHandle is the type-erased form of Handle[T], used by the raw,
// arbitrary-arity Proc/ProcN builders. Typed callers use Erase to obtain
// one from a Handle[T], and the generic Proc1/Proc2/... convenience
// wrappers do this erasure for you.
type AnyHandle struct {
	id   handleID
	plan *Plan
}

func (h AnyHandle) toRef() handleRef { return handleRef{id: h.id, plan: h.plan} }

// Erase type-erases a Handle[T] into an AnyHandle, for use with the raw
// Proc/ProcN/ToFunc/ToFuncN builders.
func Erase[T any](h Handle[T]) AnyHandle {
	return AnyHandle{id: h.id, plan: h.plan}
}

// handleRef is the internal, type-erased identity shared by Handle[T] and
// AnyHandle: a handle id plus the Plan it was minted in. Two handles refer
// to the same slot iff their handleRefs are equal.
type handleRef struct {
	id   handleID
	plan *Plan
}

// slotKind classifies a slot by who owns its payload.
type slotKind uint8

const (
	slotSource slotKind = iota
	slotDestination
	slotIntermediate
)

func (k slotKind) String() string {
	switch k {
	case slotSource:
		return "source"
	case slotDestination:
		return "destination"
	case slotIntermediate:
		return "intermediate"
	default:
		return "unknown"
	}
}

// slot is the storage record for one handle. Source and Destination slots
// wrap a caller-owned object directly and are never released by the core.
// Intermediate slots hold a thunk that lazily acquires a resource at the
// producing invocation's dispatch time, plus the DeferredRefCount
// guarding its lifetime.
type slot struct {
	kind slotKind

	// Source / Destination.
	obj any

	// Intermediate.
	thunk func(ctx context.Context) (*DisposableWrap[any], error)
	ref   *DeferredRefCount[*DisposableWrap[any]]
}
