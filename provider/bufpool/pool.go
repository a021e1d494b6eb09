package bufpool

import (
	"context"
	"sync"

	proction "github.com/nontan-rh/proction"
)

// Pool is a proction.Provider backed by a sync.Pool: Acquire hands out a
// reset T, and the returned DisposableWrap's Release puts it back in the
// pool rather than discarding it.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New constructs a Pool. newFn allocates a fresh T when the pool is empty;
// reset restores a T drawn from the pool to a clean state before Acquire
// hands it out (and, symmetrically, before Release returns it) — may be
// nil if T needs no reset (e.g. a fixed-size buffer that's always
// overwritten before being read).
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any { return newFn() }
	return p
}

// Acquire draws a T from the pool (allocating one if empty), resets it,
// and wraps it so Release returns it to the pool.
func (p *Pool[T]) Acquire(ctx context.Context) (*proction.DisposableWrap[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := p.pool.Get().(T)
	if p.reset != nil {
		p.reset(v)
	}
	return proction.NewDisposableWrap(v, func() error {
		if p.reset != nil {
			p.reset(v)
		}
		p.pool.Put(v)
		return nil
	}), nil
}

var _ proction.Provider[*Buffer[float64]] = (*Pool[*Buffer[float64]])(nil)
