package proction

import "context"

// invocation is the immutable scheduling record for one dispatch: ordered
// input/output handle lists, the fully-wrapped async body (restore inputs,
// prepare outputs, run the user body, drop ref-counts), the middleware
// chain, and the mutable graph-resolution bookkeeping.
type invocation struct {
	id      invocationID
	plan    *Plan
	inputs  []handleRef
	outputs []handleRef

	body        func(ctx context.Context) error
	middlewares []Middleware

	// populated by the graph resolver (graph.go)
	next                []*invocation
	numBlockers         int
	numResolvedBlockers int

	// populated by the execution driver (driver.go)
	settled bool
	err     error
}

// invocationOptions holds configuration captured once, at builder
// construction (Proc/ProcN call time), and applied to every invocation
// the returned function later records.
type invocationOptions struct {
	middlewares []Middleware
}

// Option configures a Proc/ProcN builder.
type Option interface {
	applyInvocation(*invocationOptions)
}

type optionFunc func(*invocationOptions)

func (f optionFunc) applyInvocation(o *invocationOptions) { f(o) }

// WithMiddleware appends middleware to an invocation builder's chain, in
// the order given. Middlewares run outermost-first.
func WithMiddleware(mw ...Middleware) Option {
	return optionFunc(func(o *invocationOptions) {
		o.middlewares = append(o.middlewares, mw...)
	})
}

func resolveInvocationOptions(opts []Option) *invocationOptions {
	cfg := &invocationOptions{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.applyInvocation(cfg)
	}
	return cfg
}

// RawBody is the user computation underlying a raw ProcN invocation: it
// receives the prepared output values and restored input values, in
// declared order, as untyped values — the core is payload-agnostic; type
// assertions happen at the call site, either by hand or via the generic
// Proc1/Proc2/... convenience wrappers.
type RawBody func(ctx context.Context, outputs []any, inputs []any) error

// InvocationFnN is the function ProcN(opts)(body) returns: calling it
// records one Invocation against the given output/input handles.
type InvocationFnN func(outputs []AnyHandle, inputs []AnyHandle) error

// ProcN records an invocation builder with an output handle list (length
// >= 1 when invoked) and an input handle list. Each call to the returned
// function registers one Invocation in whichever Plan the given handles
// belong to.
func ProcN(opts ...Option) func(body RawBody) InvocationFnN {
	cfg := resolveInvocationOptions(opts)
	return func(body RawBody) InvocationFnN {
		return func(outputs []AnyHandle, inputs []AnyHandle) error {
			return record(cfg, body, outputs, inputs)
		}
	}
}

// InvocationFn is the single-output specialization of InvocationFnN.
type InvocationFn func(output AnyHandle, inputs ...AnyHandle) error

// Proc records an invocation builder with exactly one output handle.
func Proc(opts ...Option) func(body RawBody) InvocationFn {
	raw := ProcN(opts...)
	return func(body RawBody) InvocationFn {
		fn := raw(body)
		return func(output AnyHandle, inputs ...AnyHandle) error {
			return fn([]AnyHandle{output}, inputs)
		}
	}
}

// record performs the per-call verification and bookkeeping: (a) verify
// all handles share one plan, (b) mint an invocation id, (c) record an
// Invocation whose body closes over the captured handles and the user
// body.
func record(cfg *invocationOptions, userBody RawBody, outputs []AnyHandle, inputs []AnyHandle) error {
	if len(outputs) == 0 {
		return newError(KindPrecondition, "invocation requires at least one output handle")
	}

	var plan *Plan
	for _, h := range outputs {
		if h.plan == nil {
			return newError(KindPrecondition, "invocation references an unminted handle")
		}
		if plan == nil {
			plan = h.plan
		} else if h.plan != plan {
			return newErrorf(KindPrecondition, "handle from plan %s is not valid in plan %s", h.plan.id, plan.id)
		}
	}
	for _, h := range inputs {
		if h.plan == nil {
			return newError(KindPrecondition, "invocation references an unminted handle")
		}
		if plan == nil {
			plan = h.plan
		} else if h.plan != plan {
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

	outRefs := make([]handleRef, len(outputs))
	for i, h := range outputs {
		outRefs[i] = h.toRef()
	}
	inRefs := make([]handleRef, len(inputs))
	for i, h := range inputs {
		inRefs[i] = h.toRef()
	}

	inv := &invocation{
		id:          id,
		plan:        plan,
		inputs:      inRefs,
		outputs:     outRefs,
		middlewares: cfg.middlewares,
	}
	inv.body = buildInvocationBody(plan, inv, userBody)

	plan.mu.Lock()
	plan.invocations[id] = inv
	plan.mu.Unlock()
	return nil
}

// buildInvocationBody wraps userBody with the restore/prepare/decrement
// sequence every generated invocation body performs: restore each input
// to its underlying value; prepare each output to an underlying buffer;
// run the user body with (outputs, inputs); decrement ref-counts for each
// input; decrement ref-counts for each output.
func buildInvocationBody(plan *Plan, inv *invocation, userBody RawBody) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		restoredInputs := make([]any, len(inv.inputs))
		for i, h := range inv.inputs {
			v, err := plan.restore(ctx, h)
			if err != nil {
				return err
			}
			restoredInputs[i] = v
		}

		preparedOutputs := make([]any, len(inv.outputs))
		for i, h := range inv.outputs {
			v, err := plan.prepareOutput(ctx, h)
			if err != nil {
				return err
			}
			preparedOutputs[i] = v
		}

		runErr := userBody(ctx, preparedOutputs, restoredInputs)

		for _, h := range inv.inputs {
			if err := plan.decRefHandle(h); err != nil {
				plan.ctx.reportError(err)
			}
		}
		for _, h := range inv.outputs {
			if err := plan.decRefHandle(h); err != nil {
				plan.ctx.reportError(err)
			}
		}

		return runErr
	}
}
