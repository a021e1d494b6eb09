package bufpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AcquireReleaseReuses(t *testing.T) {
	p := New(
		func() *Buffer[float64] { return NewBuffer[float64](4) },
		func(b *Buffer[float64]) { b.Reset() },
	)

	w1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	buf1, err := w1.Body()
	require.NoError(t, err)
	buf1.Push(1)
	buf1.Push(2)
	require.NoError(t, w1.Release())

	w2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	buf2, err := w2.Body()
	require.NoError(t, err)
	assert.Equal(t, 0, buf2.Len()) // reset before handed back out
}

func TestPool_AcquireRespectsCanceledContext(t *testing.T) {
	p := New(func() int { return 0 }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Acquire(ctx)
	assert.Error(t, err)
}
