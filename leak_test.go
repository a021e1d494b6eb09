package proction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLeakAudit_DeadIntermediatePasses: even with assertNoLeak enabled, a
// pruned toFunc's Intermediate passes the audit — it was never acquired,
// so it holds nothing to leak.
func TestLeakAudit_DeadIntermediatePasses(t *testing.T) {
	ctx := NewContext(WithAssertNoLeak(true))
	err := Run(ctx, func(b *Builder) error {
		x, err := Source(b, 1)
		if err != nil {
			return err
		}
		var out int
		outH, err := Destination(b, &out)
		if err != nil {
			return err
		}

		_, err = ToFunc1[int, int](b)(func(_ context.Context, v int) (int, error) {
			return v + 1, nil
		})(x)
		if err != nil {
			return err
		}

		write := Proc1[int, *int]()(func(_ context.Context, o *int, v int) error {
			*o = v
			return nil
		})
		return write(outH, x)
	})
	require.NoError(t, err)
}

// TestLeakAudit_DetectsUnreleasedIntermediate: a consumer whose
// middleware never calls next settles without releasing its input
// reservation, leaving the producer's Intermediate live — the audit
// surfaces it as KindAssertion.
func TestLeakAudit_DetectsUnreleasedIntermediate(t *testing.T) {
	ctx := NewContext(WithAssertNoLeak(true), WithReportError(func(error) {}))
	err := Run(ctx, func(b *Builder) error {
		x, err := Source(b, 1)
		if err != nil {
			return err
		}
		sum, err := ToFunc1[int, int](b)(func(_ context.Context, v int) (int, error) {
			return v + 1, nil
		})(x)
		if err != nil {
			return err
		}

		var out int
		outH, err := Destination(b, &out)
		if err != nil {
			return err
		}

		skipBody := func(next func(ctx context.Context) error) func(ctx context.Context) error {
			return func(ctx context.Context) error { return nil }
		}
		write := Proc1[int, *int](WithMiddleware(skipBody))(func(_ context.Context, o *int, v int) error {
			*o = v
			return nil
		})
		return write(outH, sum)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssertion)
}

func TestNewContext_Defaults(t *testing.T) {
	ctx := NewContext()
	assert.NotNil(t, ctx.scheduler)
	assert.False(t, ctx.assertNoLeak)
	assert.Nil(t, ctx.metrics)
}
