// Package jobs provides a bounded fan-out/fan-in primitive for running
// independent closures concurrently.
package jobs

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelJobs schedules closures onto a bounded worker pool. Add never
// rejects work; it blocks only when the pool is saturated. JoinAll blocks
// until every scheduled closure has finished and returns the first error.
// Closures must not share mutable state except through synchronized
// aggregation targets; completion order is not guaranteed.
type ParallelJobs struct {
	g *errgroup.Group
}

// NewParallel builds a pool with the given concurrency limit. A limit of
// zero or less falls back to the host parallelism.
func NewParallel(limit int) *ParallelJobs {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)
	return &ParallelJobs{g: g}
}

// Add schedules fn. It blocks while the pool is at capacity.
func (p *ParallelJobs) Add(fn func() error) {
	p.g.Go(fn)
}

// JoinAll waits for every scheduled closure, even after one fails, and
// returns the first error encountered.
func (p *ParallelJobs) JoinAll() error {
	return p.g.Wait()
}
