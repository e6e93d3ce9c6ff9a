package daemon

import (
	"context"
	"time"
)

// registerJobs registers the engine jobs with the scheduler.
func (d *Daemon) registerJobs() {
	// Poll cycle: fetch snapshots and run the evaluation pipeline.
	d.scheduler.AddJob(&Job{
		Name:     "poll_cycle",
		Interval: d.config.PollInterval,
		Run:      d.engine.RunCycle,
	})

	// Staleness sweep: evict tracked state, previous traffic values, and
	// cooldown entries older than the TTL.
	d.scheduler.AddJob(&Job{
		Name:     "state_sweep",
		Interval: d.config.StateTTL / 2,
		Run: func(ctx context.Context) error {
			d.engine.Sweep()
			return nil
		},
	})

	// Status file: keep the on-disk snapshot fresh for the status command.
	d.scheduler.AddJob(&Job{
		Name:     "status_file",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			return WriteStatusFile(d.config.DataDir, d.GetStatus(), d.engine)
		},
	})
}
