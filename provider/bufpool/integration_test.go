package bufpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	proction "github.com/nontan-rh/proction"
)

// countingProvide wraps a Pool-backed provider with acquisition counters,
// so tests can observe the pool's concurrent-acquisition peak and verify
// every acquire is matched by a release.
type countingProvide struct {
	pool               *Pool[*int]
	current, peak      int32
	acquires, releases int32
}

func (c *countingProvide) provide(ctx context.Context, _ []any) (*proction.DisposableWrap[any], error) {
	w, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	atomic.AddInt32(&c.acquires, 1)
	n := atomic.AddInt32(&c.current, 1)
	for {
		old := atomic.LoadInt32(&c.peak)
		if n <= old || atomic.CompareAndSwapInt32(&c.peak, old, n) {
			break
		}
	}
	buf, err := w.Body()
	if err != nil {
		return nil, err
	}
	return proction.NewDisposableWrap[any](buf, func() error {
		atomic.AddInt32(&c.releases, 1)
		atomic.AddInt32(&c.current, -1)
		return w.Release()
	}), nil
}

// TestPool_ArithmeticPipelineHighWaterMark runs (1+2)*(3+4) with both add
// results drawn from one pool: the two adds' buffers are the only pooled
// acquisitions alive at once (the multiply writes straight into the
// caller's destination), so the pool's concurrent-acquisition peak stays
// at 2, and both buffers are back in the pool when the run completes.
func TestPool_ArithmeticPipelineHighWaterMark(t *testing.T) {
	counting := &countingProvide{pool: New(
		func() *int { return new(int) },
		func(v *int) { *v = 0 },
	)}

	var result int
	err := proction.Run(nil, func(b *proction.Builder) error {
		a, err := proction.Source(b, 1)
		if err != nil {
			return err
		}
		c, err := proction.Source(b, 2)
		if err != nil {
			return err
		}
		d, err := proction.Source(b, 3)
		if err != nil {
			return err
		}
		e, err := proction.Source(b, 4)
		if err != nil {
			return err
		}
		outH, err := proction.Destination(b, &result)
		if err != nil {
			return err
		}

		add := proction.ToFunc(b, proction.Proc()(func(_ context.Context, outputs []any, inputs []any) error {
			*outputs[0].(*int) = inputs[0].(int) + inputs[1].(int)
			return nil
		}), counting.provide)

		r1, err := add(proction.Erase(a), proction.Erase(c))
		if err != nil {
			return err
		}
		r2, err := add(proction.Erase(d), proction.Erase(e))
		if err != nil {
			return err
		}

		mul := proction.ProcN()(func(_ context.Context, outputs []any, inputs []any) error {
			*outputs[0].(*int) = *inputs[0].(*int) * *inputs[1].(*int)
			return nil
		})
		return mul([]proction.AnyHandle{proction.Erase(outH)}, []proction.AnyHandle{r1, r2})
	})
	require.NoError(t, err)
	assert.Equal(t, 21, result)
	assert.LessOrEqual(t, atomic.LoadInt32(&counting.peak), int32(2))
	assert.Equal(t, int32(2), atomic.LoadInt32(&counting.acquires))
	assert.Equal(t, atomic.LoadInt32(&counting.acquires), atomic.LoadInt32(&counting.releases))
	assert.Equal(t, int32(0), atomic.LoadInt32(&counting.current))
}

// TestPool_DivModBothOutputsPooled derives divmod functionally with both
// outputs drawn from one pool, consumes both, and verifies every acquired
// buffer was released.
func TestPool_DivModBothOutputsPooled(t *testing.T) {
	counting := &countingProvide{pool: New(
		func() *int { return new(int) },
		func(v *int) { *v = 0 },
	)}

	var quotient, remainder int
	err := proction.Run(nil, func(b *proction.Builder) error {
		num, err := proction.Source(b, 42)
		if err != nil {
			return err
		}
		den, err := proction.Source(b, 5)
		if err != nil {
			return err
		}
		qOut, err := proction.Destination(b, &quotient)
		if err != nil {
			return err
		}
		rOut, err := proction.Destination(b, &remainder)
		if err != nil {
			return err
		}

		divmod := proction.ToFuncN(b, proction.ProcN()(func(_ context.Context, outputs []any, inputs []any) error {
			a, c := inputs[0].(int), inputs[1].(int)
			*outputs[0].(*int) = a / c
			*outputs[1].(*int) = a % c
			return nil
		}), []proction.ProvideBody{counting.provide, counting.provide})

		outs, err := divmod(proction.Erase(num), proction.Erase(den))
		if err != nil {
			return err
		}

		write := proction.ProcN()(func(_ context.Context, outputs []any, inputs []any) error {
			*outputs[0].(*int) = *inputs[0].(*int)
			return nil
		})
		if err := write([]proction.AnyHandle{proction.Erase(qOut)}, []proction.AnyHandle{outs[0]}); err != nil {
			return err
		}
		return write([]proction.AnyHandle{proction.Erase(rOut)}, []proction.AnyHandle{outs[1]})
	})
	require.NoError(t, err)
	assert.Equal(t, 8, quotient)
	assert.Equal(t, 2, remainder)
	assert.Equal(t, int32(2), atomic.LoadInt32(&counting.acquires))
	assert.Equal(t, atomic.LoadInt32(&counting.acquires), atomic.LoadInt32(&counting.releases))
}

// TestPool_BacksDerivedFunction wires a Pool into a derived function's
// output: the accumulation buffer is drawn from the pool at dispatch time
// and returned to it once the consumer completes.
func TestPool_BacksDerivedFunction(t *testing.T) {
	p := New(
		func() *Buffer[int] { return NewBuffer[int](8) },
		func(b *Buffer[int]) { b.Reset() },
	)

	var total int
	err := proction.Run(nil, func(b *proction.Builder) error {
		x, err := proction.Source(b, 19)
		if err != nil {
			return err
		}
		y, err := proction.Source(b, 23)
		if err != nil {
			return err
		}
		outH, err := proction.Destination(b, &total)
		if err != nil {
			return err
		}

		collect := proction.ToFunc(b, proction.Proc()(func(_ context.Context, outputs []any, inputs []any) error {
			buf := outputs[0].(*Buffer[int])
			for _, in := range inputs {
				buf.Push(in.(int))
			}
			return nil
		}), proction.ProvideFrom[*Buffer[int]](p))

		window, err := collect(proction.Erase(x), proction.Erase(y))
		if err != nil {
			return err
		}

		sum := proction.ProcN()(func(_ context.Context, outputs []any, inputs []any) error {
			buf := inputs[0].(*Buffer[int])
			acc := 0
			for _, v := range buf.Slice() {
				acc += v
			}
			*outputs[0].(*int) = acc
			return nil
		})
		return sum([]proction.AnyHandle{proction.Erase(outH)}, []proction.AnyHandle{window})
	})
	require.NoError(t, err)
	assert.Equal(t, 42, total)
}
