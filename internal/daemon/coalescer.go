package daemon

import "context"

// Coalescer runs a function on demand with at most one run in progress.
// Triggers that arrive while a run is in progress collapse into a single
// follow-up run.
type Coalescer struct {
	pending chan struct{}
	run     func(ctx context.Context)
}

// NewCoalescer creates a Coalescer for run.
func NewCoalescer(run func(ctx context.Context)) *Coalescer {
	return &Coalescer{
		pending: make(chan struct{}, 1),
		run:     run,
	}
}

// Trigger requests a run. It never blocks.
func (c *Coalescer) Trigger() {
	select {
	case c.pending <- struct{}{}:
	default:
		// A run is already queued
	}
}

// Run executes queued runs until ctx is cancelled.
func (c *Coalescer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.pending:
			c.run(ctx)
		}
	}
}
