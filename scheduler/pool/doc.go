// Package pool provides bounded-concurrency proction.Scheduler
// implementations: Pool, gated by a weighted semaphore, and Grouped, built
// on an errgroup so a spawn panic's recovered value reaches a
// caller-supplied callback instead of crashing the process.
package pool
