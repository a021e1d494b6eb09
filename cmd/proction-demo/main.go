// Command proction-demo runs the arithmetic-pipeline and divmod dataflow
// scenarios against a configurable Scheduler, demonstrating proction end
// to end. It has no bearing on core semantics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cfg := defaultConfig()

	root := &cobra.Command{
		Use:           "proction-demo",
		Short:         "Run proction's example dataflow scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				loaded, err := loadConfig(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a TOML config file")
	root.PersistentFlags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "scheduler concurrency, when --scheduler=pool")
	root.PersistentFlags().StringVar(&cfg.Scheduler, "scheduler", cfg.Scheduler, `scheduler to use: "inline", "pool", or "grouped"`)

	root.AddCommand(newArithmeticCmd(&cfg))
	root.AddCommand(newDivModCmd(&cfg))

	return root
}
