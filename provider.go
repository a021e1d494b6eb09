package proction

import (
	"context"
	"sync"
)

// DisposableWrap is a scoped-release wrapper over a payload of type T.
// Release calls the underlying release function exactly once; subsequent
// calls are no-ops. Body access after Release fails with KindLogic.
//
// The core never touches a raw resource, only DisposableWraps: this keeps
// single-release discipline in one place, and decouples pool policy (see
// provider/bufpool) from the scheduling/lifetime machinery.
type DisposableWrap[T any] struct {
	mu       sync.Mutex
	body     T
	release  func() error
	released bool
}

// NewDisposableWrap wraps body with a release func. release may be nil,
// in which case Release is a pure state transition with no side effect.
func NewDisposableWrap[T any](body T, release func() error) *DisposableWrap[T] {
	return &DisposableWrap[T]{body: body, release: release}
}

// Body returns the wrapped payload, or a KindLogic error if already
// released.
func (w *DisposableWrap[T]) Body() (T, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		var zero T
		return zero, newError(KindLogic, "disposable wrap: body accessed after release")
	}
	return w.body, nil
}

// Release idempotently invokes the underlying release function. It is
// safe to call concurrently and safe to call more than once.
func (w *DisposableWrap[T]) Release() error {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return nil
	}
	w.released = true
	release := w.release
	w.mu.Unlock()
	if release == nil {
		return nil
	}
	return release()
}

// Provider acquires payloads of type T, yielding a DisposableWrap that the
// caller (here, always the core's lazy intermediate-slot thunk) must
// eventually Release. Acquire/Release thread-safety across concurrent
// calls is the Provider implementation's own responsibility; the core
// never calls a single DisposableWrap's methods concurrently with itself,
// but distinct invocations may call Acquire on the same Provider from
// different goroutines when a non-inline Scheduler is in use.
type Provider[T any] interface {
	Acquire(ctx context.Context) (*DisposableWrap[T], error)
}

// ProviderFunc adapts a plain function to a Provider, analogous to
// http.HandlerFunc.
type ProviderFunc[T any] func(ctx context.Context) (*DisposableWrap[T], error)

func (f ProviderFunc[T]) Acquire(ctx context.Context) (*DisposableWrap[T], error) {
	return f(ctx)
}
