package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	proction "github.com/nontan-rh/proction"
)

// newArithmeticCmd runs ((x+y)*z)+w through two generations of toFunc2
// additions/multiplication, writing the result into a Destination int.
func newArithmeticCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "arithmetic",
		Short: "Run the add/mul arithmetic pipeline scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cfg)
			if err != nil {
				return err
			}

			var result int
			err = proction.Run(ctx, func(b *proction.Builder) error {
				x, err := proction.Source(b, 2)
				if err != nil {
					return err
				}
				y, err := proction.Source(b, 3)
				if err != nil {
					return err
				}
				z, err := proction.Source(b, 4)
				if err != nil {
					return err
				}
				w, err := proction.Source(b, 6)
				if err != nil {
					return err
				}
				out, err := proction.Destination(b, &result)
				if err != nil {
					return err
				}

				add := proction.ToFunc2[int, int, int](b)(func(_ context.Context, a, c int) (int, error) {
					return a + c, nil
				})
				mul := proction.ToFunc2[int, int, int](b)(func(_ context.Context, a, c int) (int, error) {
					return a * c, nil
				})
				write := proction.Proc1[int, *int]()(func(_ context.Context, o *int, v int) error {
					*o = v
					return nil
				})

				sum, err := add(x, y)
				if err != nil {
					return err
				}
				prod, err := mul(sum, z)
				if err != nil {
					return err
				}
				final, err := add(prod, w)
				if err != nil {
					return err
				}
				return write(out, final)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "result = %d\n", result)
			return nil
		},
	}
}
