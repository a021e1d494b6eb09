package proction

import "context"

// ProvideBody acquires the buffer one derived function output will be
// written into. It runs lazily, at the producing invocation's dispatch —
// never at plan construction — and receives the invocation's restored
// input values in declared order, so pool/size decisions can depend on
// the actual inputs.
type ProvideBody func(ctx context.Context, inputs []any) (*DisposableWrap[any], error)

// ProvideFrom adapts a typed Provider into a ProvideBody, ignoring the
// restored inputs and erasing the payload type. Use it to back a derived
// function's output with a Provider implementation whose buffers don't
// depend on the input values.
func ProvideFrom[T any](p Provider[T]) ProvideBody {
	return func(ctx context.Context, _ []any) (*DisposableWrap[any], error) {
		w, err := p.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return eraseWrap(w)
	}
}

// ToFuncFn is the functional form of a single-output invocation builder:
// each call mints a fresh Intermediate handle, records one invocation
// producing it from the given inputs, and returns the new handle
// immediately. An output no destination transitively depends on is pruned
// by the graph resolver, so its provider is never invoked and the pool
// stays empty.
type ToFuncFn func(inputs ...AnyHandle) (AnyHandle, error)

// ToFuncNFn is the multi-output counterpart of ToFuncFn, returning one
// freshly minted handle per provider.
type ToFuncNFn func(inputs ...AnyHandle) ([]AnyHandle, error)

// ToFunc derives a functional form from a single-output invocation
// builder and a provider: the returned function mints an Intermediate
// slot whose thunk computes provide(restoredInputs...) at dispatch time,
// then records fn against that slot as its sole output. b is the Builder
// each call mints its output handle into.
func ToFunc(b *Builder, fn InvocationFn, provide ProvideBody) ToFuncFn {
	return func(inputs ...AnyHandle) (AnyHandle, error) {
		out, err := mintProvidedIntermediate(b, provide, inputs)
		if err != nil {
			return AnyHandle{}, err
		}
		if err := fn(out, inputs...); err != nil {
			return AnyHandle{}, err
		}
		return out, nil
	}
}

// ToFuncN derives a functional form from a multi-output invocation
// builder, taking one provider per output. The provides list must not be
// empty (an invocation requires at least one output).
func ToFuncN(b *Builder, fn InvocationFnN, provides []ProvideBody) ToFuncNFn {
	return func(inputs ...AnyHandle) ([]AnyHandle, error) {
		if len(provides) == 0 {
			return nil, newError(KindPrecondition, "toFuncN requires at least one provider")
		}
		outs := make([]AnyHandle, len(provides))
		for i, provide := range provides {
			out, err := mintProvidedIntermediate(b, provide, inputs)
			if err != nil {
				return nil, err
			}
			outs[i] = out
		}
		if err := fn(outs, inputs); err != nil {
			return nil, err
		}
		return outs, nil
	}
}

// mintProvidedIntermediate mints an Intermediate slot whose thunk restores
// the invocation's inputs and hands them to provide. The thunk only ever
// runs from inside the producing invocation's body (via prepareOutput), at
// which point every input is already live.
func mintProvidedIntermediate(b *Builder, provide ProvideBody, inputs []AnyHandle) (AnyHandle, error) {
	p := b.plan
	inRefs := make([]handleRef, len(inputs))
	for i, h := range inputs {
		if h.plan == nil {
			return AnyHandle{}, newError(KindPrecondition, "invocation references an unminted handle")
		}
		if h.plan != p {
			return AnyHandle{}, newErrorf(KindPrecondition, "handle from plan %s is not valid in plan %s", h.plan.id, p.id)
		}
		inRefs[i] = h.toRef()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != planPlanning {
		return AnyHandle{}, newError(KindPrecondition, "handle minted outside plan construction")
	}
	id := handleID(p.handleIDs.mint())
	p.slots[id] = &slot{
		kind: slotIntermediate,
		thunk: func(ctx context.Context) (*DisposableWrap[any], error) {
			restored := make([]any, len(inRefs))
			for i, h := range inRefs {
				v, err := p.restore(ctx, h)
				if err != nil {
					return nil, err
				}
				restored[i] = v
			}
			return provide(ctx, restored)
		},
		ref: NewDeferredRefCount[*DisposableWrap[any]](releaseErasedWrap),
	}
	return AnyHandle{id: id, plan: p}, nil
}

// ComputeBody computes one output value directly from restored input
// values, in declared order, rather than writing into a pre-acquired
// buffer. It is the body shape behind Compute and the typed ToFunc1 /
// ToFunc2 wrappers: ordinary value-producing computations that need
// neither a Destination buffer nor an external resource.
type ComputeBody func(ctx context.Context, inputs []any) (any, error)

// Compute is the value-returning sibling of ToFunc: each call to the
// returned function mints a fresh Intermediate handle and records body as
// its sole producer. The computed value is installed as the slot's
// payload directly (wrapped with a no-op release), with no Provider
// involved — equivalent to ToFunc over a provider that boxes the body's
// return value.
func Compute(b *Builder, opts ...Option) func(body ComputeBody) ToFuncFn {
	cfg := resolveInvocationOptions(opts)
	return func(body ComputeBody) ToFuncFn {
		return func(inputs ...AnyHandle) (AnyHandle, error) {
			out, err := mintBareIntermediate(b)
			if err != nil {
				return AnyHandle{}, err
			}
			if err := recordCompute(cfg, body, out, inputs); err != nil {
				return AnyHandle{}, err
			}
			return out, nil
		}
	}
}

// mintBareIntermediate mints an Intermediate slot with no provider thunk:
// Compute initializes the slot's DeferredRefCount itself, from inside the
// generated invocation body, once the computed value is in hand (see
// buildComputeBody), rather than via the thunk/Initialize sequence
// prepareOutput uses for provided Intermediate slots.
func mintBareIntermediate(b *Builder) (AnyHandle, error) {
	p := b.plan
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != planPlanning {
		return AnyHandle{}, newError(KindPrecondition, "handle minted outside plan construction")
	}
	id := handleID(p.handleIDs.mint())
	p.slots[id] = &slot{
		kind: slotIntermediate,
		ref:  NewDeferredRefCount[*DisposableWrap[any]](releaseErasedWrap),
	}
	return AnyHandle{id: id, plan: p}, nil
}

// initializeIntermediate installs v as the live payload of an Intermediate
// slot minted via mintBareIntermediate, wrapping it in a no-op-release
// DisposableWrap: the value is an ordinary Go value, not an externally
// acquired resource, so there is nothing for Release to do.
func (p *Plan) initializeIntermediate(h handleRef, v any) error {
	p.mu.Lock()
	s, ok := p.slots[h.id]
	p.mu.Unlock()
	if !ok {
		return newErrorf(KindLogic, "no slot registered for handle %d", h.id)
	}
	if s.kind != slotIntermediate {
		return newErrorf(KindLogic, "handle %d: not an intermediate slot", h.id)
	}
	return s.ref.Initialize(NewDisposableWrap[any](v, func() error { return nil }))
}

// recordCompute performs the verification and bookkeeping for one Compute
// call: verify all handles share one plan, mint an invocation id, and
// build its body around the caller's ComputeBody.
func recordCompute(cfg *invocationOptions, body ComputeBody, out AnyHandle, inputs []AnyHandle) error {
	plan := out.plan
	if plan == nil {
		return newError(KindPrecondition, "invocation references an unminted handle")
	}
	for _, h := range inputs {
		if h.plan == nil {
			return newError(KindPrecondition, "invocation references an unminted handle")
		}
		if h.plan != plan {
			return newErrorf(KindPrecondition, "handle from plan %s is not valid in plan %s", h.plan.id, plan.id)
		}
	}

	plan.mu.Lock()
	if plan.state != planPlanning {
		plan.mu.Unlock()
		return newError(KindPrecondition, "invocation recorded outside plan construction")
	}
	id := invocationID(plan.invocationIDs.mint())
	plan.mu.Unlock()

	inRefs := make([]handleRef, len(inputs))
	for i, h := range inputs {
		inRefs[i] = h.toRef()
	}
	outRef := out.toRef()

	inv := &invocation{
		id:          id,
		plan:        plan,
		inputs:      inRefs,
		outputs:     []handleRef{outRef},
		middlewares: cfg.middlewares,
	}
	inv.body = buildComputeBody(plan, outRef, inv, body)

	plan.mu.Lock()
	plan.invocations[id] = inv
	plan.mu.Unlock()
	return nil
}

// buildComputeBody restores inputs, computes the output value, releases
// the input reservations, then installs the computed value and drops the
// producer's own implicit hold on it. A failing body never initializes the
// output: downstream consumers surface their own KindLogic error trying to
// restore it. A ProcN body differs here: its outputs are prepared before
// the body runs, so they stay restorable after the body fails.
func buildComputeBody(plan *Plan, out handleRef, inv *invocation, body ComputeBody) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		restoredInputs := make([]any, len(inv.inputs))
		for i, h := range inv.inputs {
			v, err := plan.restore(ctx, h)
			if err != nil {
				return err
			}
			restoredInputs[i] = v
		}

		v, runErr := body(ctx, restoredInputs)

		for _, h := range inv.inputs {
			if err := plan.decRefHandle(h); err != nil {
				plan.ctx.reportError(err)
			}
		}

		if runErr != nil {
			return runErr
		}

		if err := plan.initializeIntermediate(out, v); err != nil {
			return err
		}
		if err := plan.decRefHandle(out); err != nil {
			plan.ctx.reportError(err)
		}
		return nil
	}
}

// ToFunc1 is the single-input, single-output typed convenience over
// Compute, for the common case of a pure unary computation.
func ToFunc1[I1, O any](b *Builder, opts ...Option) func(body func(ctx context.Context, in1 I1) (O, error)) func(h1 Handle[I1]) (Handle[O], error) {
	raw := Compute(b, opts...)
	return func(body func(ctx context.Context, in1 I1) (O, error)) func(Handle[I1]) (Handle[O], error) {
		fn := raw(func(ctx context.Context, inputs []any) (any, error) {
			in1, ok := inputs[0].(I1)
			if !ok {
				return nil, newError(KindPrecondition, "toFunc1: input type assertion failed")
			}
			return body(ctx, in1)
		})
		return func(h1 Handle[I1]) (Handle[O], error) {
			out, err := fn(Erase(h1))
			if err != nil {
				return Handle[O]{}, err
			}
			return Handle[O]{id: out.id, plan: out.plan}, nil
		}
	}
}

// ToFunc2 is the two-input, single-output typed convenience over Compute,
// for binary computations such as an arithmetic pipeline's add and mul
// steps.
func ToFunc2[I1, I2, O any](b *Builder, opts ...Option) func(body func(ctx context.Context, in1 I1, in2 I2) (O, error)) func(h1 Handle[I1], h2 Handle[I2]) (Handle[O], error) {
	raw := Compute(b, opts...)
	return func(body func(ctx context.Context, in1 I1, in2 I2) (O, error)) func(Handle[I1], Handle[I2]) (Handle[O], error) {
		fn := raw(func(ctx context.Context, inputs []any) (any, error) {
			in1, ok := inputs[0].(I1)
			if !ok {
				return nil, newError(KindPrecondition, "toFunc2: input 1 type assertion failed")
			}
			in2, ok := inputs[1].(I2)
			if !ok {
				return nil, newError(KindPrecondition, "toFunc2: input 2 type assertion failed")
			}
			return body(ctx, in1, in2)
		})
		return func(h1 Handle[I1], h2 Handle[I2]) (Handle[O], error) {
			out, err := fn(Erase(h1), Erase(h2))
			if err != nil {
				return Handle[O]{}, err
			}
			return Handle[O]{id: out.id, plan: out.plan}, nil
		}
	}
}

// Proc1 is the single-input, single-output typed convenience wrapper over
// Proc, for invocations writing into a caller-supplied or Intermediate
// output the caller pre-minted (as opposed to ToFunc1, which mints its own
// output). O is typically a pointer or other reference type the body
// writes through.
func Proc1[I1, O any](opts ...Option) func(body func(ctx context.Context, out O, in1 I1) error) func(output Handle[O], in1 Handle[I1]) error {
	raw := Proc(opts...)
	return func(body func(ctx context.Context, out O, in1 I1) error) func(Handle[O], Handle[I1]) error {
		fn := raw(func(ctx context.Context, outputs []any, inputs []any) error {
			out, ok := outputs[0].(O)
			if !ok {
				return newError(KindPrecondition, "proc1: output type assertion failed")
			}
			in1, ok := inputs[0].(I1)
			if !ok {
				return newError(KindPrecondition, "proc1: input type assertion failed")
			}
			return body(ctx, out, in1)
		})
		return func(output Handle[O], in1 Handle[I1]) error {
			return fn(Erase(output), Erase(in1))
		}
	}
}

// Proc2 is the two-input, single-output typed convenience wrapper over
// Proc.
func Proc2[I1, I2, O any](opts ...Option) func(body func(ctx context.Context, out O, in1 I1, in2 I2) error) func(output Handle[O], in1 Handle[I1], in2 Handle[I2]) error {
	raw := Proc(opts...)
	return func(body func(ctx context.Context, out O, in1 I1, in2 I2) error) func(Handle[O], Handle[I1], Handle[I2]) error {
		fn := raw(func(ctx context.Context, outputs []any, inputs []any) error {
			out, ok := outputs[0].(O)
			if !ok {
				return newError(KindPrecondition, "proc2: output type assertion failed")
			}
			in1, ok := inputs[0].(I1)
			if !ok {
				return newError(KindPrecondition, "proc2: input 1 type assertion failed")
			}
			in2, ok := inputs[1].(I2)
			if !ok {
				return newError(KindPrecondition, "proc2: input 2 type assertion failed")
			}
			return body(ctx, out, in1, in2)
		})
		return func(output Handle[O], in1 Handle[I1], in2 Handle[I2]) error {
			return fn(Erase(output), Erase(in1), Erase(in2))
		}
	}
}

// Proc2In2Out is the two-input, two-output typed convenience wrapper over
// ProcN, for operations such as divmod that must write two independent
// results from shared inputs.
func Proc2In2Out[I1, I2, O1, O2 any](opts ...Option) func(body func(ctx context.Context, out1 O1, out2 O2, in1 I1, in2 I2) error) func(output1 Handle[O1], output2 Handle[O2], in1 Handle[I1], in2 Handle[I2]) error {
	raw := ProcN(opts...)
	return func(body func(ctx context.Context, out1 O1, out2 O2, in1 I1, in2 I2) error) func(Handle[O1], Handle[O2], Handle[I1], Handle[I2]) error {
		fn := raw(func(ctx context.Context, outputs []any, inputs []any) error {
			out1, ok := outputs[0].(O1)
			if !ok {
				return newError(KindPrecondition, "proc2in2out: output 1 type assertion failed")
			}
			out2, ok := outputs[1].(O2)
			if !ok {
				return newError(KindPrecondition, "proc2in2out: output 2 type assertion failed")
			}
			in1, ok := inputs[0].(I1)
			if !ok {
				return newError(KindPrecondition, "proc2in2out: input 1 type assertion failed")
			}
			in2, ok := inputs[1].(I2)
			if !ok {
				return newError(KindPrecondition, "proc2in2out: input 2 type assertion failed")
			}
			return body(ctx, out1, out2, in1, in2)
		})
		return func(output1 Handle[O1], output2 Handle[O2], in1 Handle[I1], in2 Handle[I2]) error {
			return fn([]AnyHandle{Erase(output1), Erase(output2)}, []AnyHandle{Erase(in1), Erase(in2)})
		}
	}
}
