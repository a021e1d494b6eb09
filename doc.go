// Package proction composes small routines, some writing into
// caller-provided buffers, others returning freshly acquired ones, into a
// single Plan; Run then topologically orders them by data dependency and
// executes them with bounded concurrency under a pluggable Scheduler,
// acquiring and releasing intermediate buffers at the earliest safe
// moment.
package proction
