package proction

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// planState models a Plan's single-shot lifecycle: only the initial ->
// planning -> running -> (done | error) path is legal; a Plan that
// reaches done or error may never be re-run.
type planState int

const (
	planInitial planState = iota
	planPlanning
	planRunning
	planDone
	planError
)

// objRegistration records which handle, and in which direction (source or
// destination), an external object's identity was first registered as —
// used to reject the same object being used as both.
type objRegistration struct {
	id   handleID
	kind slotKind
}

// Plan owns the handle/invocation id minters, the slot table, the
// invocation table, and the identity-keyed source/destination dedupe
// caches, plus the Context it runs under. Built up by one Run call.
type Plan struct {
	mu sync.Mutex

	id  uuid.UUID
	ctx *Context

	handleIDs     idGen
	invocationIDs idGen

	slots       map[handleID]*slot
	invocations map[invocationID]*invocation

	// objRegistry dedupes Source/Destination registrations by identity
	// pointer (see objectIdentity).
	objRegistry map[uintptr]objRegistration

	state planState
}

func newPlan(ctx *Context) *Plan {
	return &Plan{
		id:          uuid.New(),
		ctx:         ctx,
		slots:       make(map[handleID]*slot),
		invocations: make(map[invocationID]*invocation),
		objRegistry: make(map[uintptr]objRegistration),
		state:       planInitial,
	}
}

// ID returns the Plan's identity, minted once at Run entry. Handle
// membership checks compare Plan pointers; ID exists so membership
// mismatches can be logged and reported meaningfully.
func (p *Plan) ID() uuid.UUID { return p.id }

// objectIdentity extracts a stable identity pointer for types that have
// one (pointers, slices, maps, channels, funcs): the common shapes of
// caller-provided buffers. Types without a referential identity (plain
// ints, strings, structs passed by value) return ok=false, meaning
// Source/Destination dedupe is skipped for that object — every
// registration mints a fresh handle, which is always safe, only less
// convenient.
func objectIdentity(obj any) (uintptr, bool) {
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Map, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return 0, false
		}
		return v.Pointer(), true
	case reflect.Slice:
		if v.IsNil() {
			return 0, false
		}
		return v.Pointer(), true
	default:
		return 0, false
	}
}

// Builder is the handle-minting facade handed to a Run body. Its methods
// are free functions (Source, Destination, Intermediate), not Builder
// methods, because Go methods cannot introduce additional type parameters
// beyond the receiver's.
type Builder struct {
	plan *Plan
}

// Plan returns the Plan this Builder mints handles into.
func (b *Builder) Plan() *Plan { return b.plan }

// Source registers a caller-owned, read-only input object, returning its
// Handle. Calling Source twice with the same object identity returns the
// same Handle. Fails with KindPrecondition if obj's identity was already
// registered as a Destination.
func Source[T any](b *Builder, obj T) (Handle[T], error) {
	return registerExternal[T](b, obj, slotSource)
}

// Destination registers a caller-owned output object, written exactly
// once by exactly one invocation. Fails with KindPrecondition if obj's
// identity was already registered as a Source.
func Destination[T any](b *Builder, obj T) (Handle[T], error) {
	return registerExternal[T](b, obj, slotDestination)
}

func registerExternal[T any](b *Builder, obj T, kind slotKind) (Handle[T], error) {
	p := b.plan
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != planPlanning {
		return Handle[T]{}, newError(KindPrecondition, "handle minted outside plan construction")
	}

	if ptr, ok := objectIdentity(obj); ok {
		if reg, found := p.objRegistry[ptr]; found {
			if reg.kind != kind {
				return Handle[T]{}, newErrorf(KindPrecondition,
					"object registered as %s cannot also be registered as %s", reg.kind, kind)
			}
			return Handle[T]{id: reg.id, plan: p}, nil
		}
		id := handleID(p.handleIDs.mint())
		p.slots[id] = &slot{kind: kind, obj: obj}
		p.objRegistry[ptr] = objRegistration{id: id, kind: kind}
		return Handle[T]{id: id, plan: p}, nil
	}

	id := handleID(p.handleIDs.mint())
	p.slots[id] = &slot{kind: kind, obj: obj}
	return Handle[T]{id: id, plan: p}, nil
}

// Intermediate mints a core-owned handle whose value is produced lazily:
// provide is called at most once, at the producing invocation's dispatch
// time, never at plan construction. A producer none of whose outputs a
// Destination transitively depends on never dispatches at all, so provide
// stays uncalled and the pool stays empty. An unconsumed output of a
// producer that does dispatch is still provided, then released by the
// producer's own hold.
func Intermediate[T any](b *Builder, provide func(ctx context.Context) (*DisposableWrap[T], error)) (Handle[T], error) {
	p := b.plan
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != planPlanning {
		return Handle[T]{}, newError(KindPrecondition, "handle minted outside plan construction")
	}

	id := handleID(p.handleIDs.mint())
	s := &slot{
		kind: slotIntermediate,
		thunk: func(ctx context.Context) (*DisposableWrap[any], error) {
			w, err := provide(ctx)
			if err != nil {
				return nil, err
			}
			return eraseWrap(w)
		},
		ref: NewDeferredRefCount[*DisposableWrap[any]](releaseErasedWrap),
	}
	p.slots[id] = s
	return Handle[T]{id: id, plan: p}, nil
}

// eraseWrap type-erases a *DisposableWrap[T] into a *DisposableWrap[any]:
// the erased wrap's Release delegates to the original (which is itself
// idempotent), and its Body is captured eagerly, since erasure always
// happens immediately after a successful Acquire/provide, before the
// original can have been released.
func eraseWrap[T any](w *DisposableWrap[T]) (*DisposableWrap[any], error) {
	body, err := w.Body()
	if err != nil {
		return nil, err
	}
	return NewDisposableWrap[any](any(body), w.Release), nil
}

func releaseErasedWrap(w *DisposableWrap[any]) error {
	if w == nil {
		return nil
	}
	return w.Release()
}

// restore returns the current value behind a handle: the caller object
// for Source/Destination slots, or the live intermediate payload's Body
// for Intermediate slots. It never mutates ref counts: IncRef is
// pre-committed once per consumption site by resolveGraph (see graph.go),
// and DecRef is performed once per consumption site by the generated
// invocation body (see invocation.go).
func (p *Plan) restore(ctx context.Context, h handleRef) (any, error) {
	if h.plan != p {
		return nil, newErrorf(KindPrecondition, "handle from plan %s is not valid in plan %s", h.plan.id, p.id)
	}
	p.mu.Lock()
	s, ok := p.slots[h.id]
	p.mu.Unlock()
	if !ok {
		return nil, newErrorf(KindLogic, "no slot registered for handle %d", h.id)
	}

	switch s.kind {
	case slotSource, slotDestination:
		return s.obj, nil
	case slotIntermediate:
		wrap, err := s.ref.Value()
		if err != nil {
			return nil, err
		}
		return wrap.Body()
	default:
		return nil, newErrorf(KindLogic, "slot %d has unknown kind", h.id)
	}
}

// prepareOutput produces the value a producing invocation should write
// into / return, for one of its declared output handles. For Destination
// slots this is simply the caller's buffer. For Intermediate slots this
// calls the slot's thunk and Initializes its DeferredRefCount.
func (p *Plan) prepareOutput(ctx context.Context, h handleRef) (any, error) {
	if h.plan != p {
		return nil, newErrorf(KindPrecondition, "handle from plan %s is not valid in plan %s", h.plan.id, p.id)
	}
	p.mu.Lock()
	s, ok := p.slots[h.id]
	p.mu.Unlock()
	if !ok {
		return nil, newErrorf(KindLogic, "no slot registered for handle %d", h.id)
	}

	switch s.kind {
	case slotDestination:
		return s.obj, nil
	case slotIntermediate:
		if s.thunk == nil {
			return nil, newErrorf(KindLogic, "handle %d: intermediate slot has no provider (minted via Compute?)", h.id)
		}
		wrap, err := s.thunk(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.ref.Initialize(wrap); err != nil {
			return nil, err
		}
		return wrap.Body()
	case slotSource:
		return nil, newErrorf(KindLogic, "handle %d: source slot used as output", h.id)
	default:
		return nil, newErrorf(KindLogic, "slot %d has unknown kind", h.id)
	}
}

// incRefHandle pre-commits one consumption-site reservation for h, if h
// is Intermediate. Source/Destination inputs are no-ops.
func (p *Plan) incRefHandle(h handleRef) error {
	p.mu.Lock()
	s, ok := p.slots[h.id]
	p.mu.Unlock()
	if !ok {
		return newErrorf(KindLogic, "no slot registered for handle %d", h.id)
	}
	if s.kind != slotIntermediate {
		return nil
	}
	return s.ref.IncRef()
}

// decRefHandle drops one consumption-site reservation for h, if h is
// Intermediate. Destructor errors are routed to the Plan's Context.
func (p *Plan) decRefHandle(h handleRef) error {
	p.mu.Lock()
	s, ok := p.slots[h.id]
	p.mu.Unlock()
	if !ok {
		return newErrorf(KindLogic, "no slot registered for handle %d", h.id)
	}
	if s.kind != slotIntermediate {
		return nil
	}
	return s.ref.DecRef(p.ctx.reportError)
}

// Run creates a fresh Plan, hands body a Builder for minting Source,
// Destination, and Intermediate handles and building Invocations against
// them, then — once body returns — resolves the dependency graph and
// executes the Plan to completion. Plans are single-shot: Run always
// starts a new one.
func Run(ctx *Context, body func(b *Builder) error) error {
	if ctx == nil {
		ctx = NewContext()
	}

	p := newPlan(ctx)
	p.state = planPlanning

	if err := body(&Builder{plan: p}); err != nil {
		p.state = planError
		return err
	}

	g, err := resolveGraph(p)
	if err != nil {
		p.state = planError
		return err
	}

	p.state = planRunning
	runErr := drive(context.Background(), p, g)
	if runErr != nil {
		p.state = planError
		return runErr
	}

	if p.ctx.assertNoLeak {
		if err := auditLeaks(p); err != nil {
			p.state = planError
			return err
		}
	}

	p.state = planDone
	return nil
}
