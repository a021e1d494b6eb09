package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	proction "github.com/nontan-rh/proction"
)

// newDivModCmd runs the two-output divmod scenario: a single invocation
// with two inputs (numerator, denominator) writes two independent
// Destination outputs (quotient, remainder).
func newDivModCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "divmod",
		Short: "Run the two-output divmod scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cfg)
			if err != nil {
				return err
			}

			var quotient, remainder int
			err = proction.Run(ctx, func(b *proction.Builder) error {
				num, err := proction.Source(b, 17)
				if err != nil {
					return err
				}
				den, err := proction.Source(b, 5)
				if err != nil {
					return err
				}
				q, err := proction.Destination(b, &quotient)
				if err != nil {
					return err
				}
				r, err := proction.Destination(b, &remainder)
				if err != nil {
					return err
				}

				divmod := proction.Proc2In2Out[int, int, *int, *int]()(
					func(_ context.Context, outQ, outR *int, a, c int) error {
						*outQ, *outR = a/c, a%c
						return nil
					},
				)
				return divmod(q, r, num, den)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "quotient = %d, remainder = %d\n", quotient, remainder)
			return nil
		},
	}
}
