package proction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredRefCount_IncRefBeforeInitialize(t *testing.T) {
	var destroyed int
	r := NewDeferredRefCount(func(v int) error {
		destroyed++
		return nil
	})

	require.NoError(t, r.IncRef()) // planning-time reservation, pre-Initialize
	require.NoError(t, r.Initialize(42))

	v, err := r.Value()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// two holds outstanding: the reservation plus Initialize's own.
	require.NoError(t, r.DecRef(nil))
	assert.False(t, r.Freed())
	require.NoError(t, r.DecRef(nil))
	assert.True(t, r.Freed())
	assert.Equal(t, 1, destroyed)
}

func TestDeferredRefCount_DanglingProducerStillFrees(t *testing.T) {
	var destroyed int
	r := NewDeferredRefCount(func(v int) error {
		destroyed++
		return nil
	})

	// no consumer ever reserved; only Initialize's own implicit hold exists.
	require.NoError(t, r.Initialize(1))
	require.NoError(t, r.DecRef(nil))
	assert.True(t, r.Freed())
	assert.Equal(t, 1, destroyed)
}

func TestDeferredRefCount_SharedConsumers(t *testing.T) {
	r := NewDeferredRefCount(func(v int) error { return nil })

	require.NoError(t, r.IncRef())
	require.NoError(t, r.IncRef())
	require.NoError(t, r.Initialize(1))

	require.NoError(t, r.DecRef(nil))
	assert.False(t, r.Freed())
	require.NoError(t, r.DecRef(nil))
	assert.False(t, r.Freed())
	require.NoError(t, r.DecRef(nil))
	assert.True(t, r.Freed())
}

func TestDeferredRefCount_ErrorsAfterFreed(t *testing.T) {
	r := NewDeferredRefCount(func(v int) error { return nil })
	require.NoError(t, r.Initialize(1))
	require.NoError(t, r.DecRef(nil))

	assert.Error(t, r.IncRef())
	assert.Error(t, r.DecRef(nil))
	_, err := r.Value()
	assert.Error(t, err)
}

func TestDeferredRefCount_DecRefWhileUninitialized(t *testing.T) {
	r := NewDeferredRefCount(func(v int) error { return nil })
	assert.Error(t, r.DecRef(nil))
}

func TestDeferredRefCount_DestructorPanicReported(t *testing.T) {
	r := NewDeferredRefCount(func(v int) error {
		panic("boom")
	})
	require.NoError(t, r.Initialize(1))

	var mu sync.Mutex
	var reported error
	require.NoError(t, r.DecRef(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = err
	}))

	mu.Lock()
	defer mu.Unlock()
	require.Error(t, reported)
	assert.ErrorIs(t, reported, ErrLogic)
}

func TestDeferredRefCount_ConcurrentIncDec(t *testing.T) {
	r := NewDeferredRefCount(func(v int) error { return nil })
	require.NoError(t, r.Initialize(0))

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, r.IncRef())
	}
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, r.DecRef(nil))
		}()
	}
	wg.Wait()

	assert.False(t, r.Freed()) // Initialize's own hold is still outstanding
	require.NoError(t, r.DecRef(nil))
	assert.True(t, r.Freed())
}
