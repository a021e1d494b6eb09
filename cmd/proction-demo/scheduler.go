package main

import (
	"fmt"
	"os"

	"github.com/nontan-rh/proction/scheduler/pool"

	proction "github.com/nontan-rh/proction"
)

func buildContext(cfg *config) (*proction.Context, error) {
	var opts []proction.ContextOption
	switch cfg.Scheduler {
	case "", "inline":
	case "pool":
		opts = append(opts, proction.WithScheduler(pool.New(cfg.Concurrency)))
	case "grouped":
		opts = append(opts, proction.WithScheduler(pool.NewGrouped(func(r any) {
			fmt.Fprintf(os.Stderr, "proction-demo: invocation panicked: %v\n", r)
		})))
	default:
		return nil, fmt.Errorf("proction-demo: unknown scheduler %q", cfg.Scheduler)
	}
	return proction.NewContext(opts...), nil
}
