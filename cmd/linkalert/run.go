package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/linkalert/internal/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one poll cycle now",
	Long: `Fetch sensor snapshots, evaluate alert rules, and dispatch any due
notifications, then exit. Exit code is 0 when the cycle completed, even
if individual sensors or channels failed; non-zero only on a fatal
startup or configuration error.

For cron-style invocation set state_backend to sqlite so change
detection and cooldown suppression survive between runs.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}
	defer d.Store().Close()

	eng := d.Engine()
	if err := eng.RunCycle(context.Background()); err != nil {
		return err
	}
	eng.Sweep()

	for source, st := range eng.HealthStates() {
		state := "healthy"
		if st.IsDown {
			state = "down"
		}
		fmt.Printf("source %s: %s (failures: %d)\n", source, state, st.ConsecutiveFailures)
	}

	return nil
}
