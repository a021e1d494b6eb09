package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	proction "github.com/nontan-rh/proction"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(2)

	var inflight, maxInflight int32
	task := func(ctx context.Context) error {
		n := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			cur := atomic.LoadInt32(&maxInflight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInflight, cur, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return nil
	}

	errCh := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() { errCh <- p.Spawn(context.Background(), task) }()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, <-errCh)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInflight), int32(2))
}

func TestPool_UsableAsProctionScheduler(t *testing.T) {
	ctx := proction.NewContext(proction.WithScheduler(New(2)))
	var result int
	err := proction.Run(ctx, func(b *proction.Builder) error {
		x, err := proction.Source(b, 20)
		if err != nil {
			return err
		}
		out, err := proction.Destination(b, &result)
		if err != nil {
			return err
		}
		inc := proction.Proc1[int, *int]()(func(_ context.Context, o *int, v int) error {
			*o = v + 1
			return nil
		})
		return inc(out, x)
	})
	require.NoError(t, err)
	assert.Equal(t, 21, result)
}
