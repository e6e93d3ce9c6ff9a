package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/linkalert/internal/daemon"
	"github.com/user/linkalert/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, source health, and cooldown state",
	Long:  "Show the current daemon state, source health, active cooldowns, and recent alerts.",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)

	if running {
		fmt.Printf("Daemon: running (PID %d)\n", pid)
	} else {
		fmt.Println("Daemon: stopped")
	}

	if sf, err := daemon.ReadStatusFile(cfg.DataDir); err == nil {
		fmt.Printf("Started: %s\n", sf.StartTime)
		fmt.Printf("Uptime: %s\n", sf.Uptime)

		if len(sf.Jobs) > 0 {
			fmt.Println("\nJobs:")
			for _, job := range sf.Jobs {
				state := "idle"
				if job.Running {
					state = "running"
				}
				fmt.Printf("  %s: %s (last: %s, errors: %d)\n",
					job.Name, state, job.LastRun.Format("15:04:05"), job.ErrorCount)
			}
		}

		if len(sf.Sources) > 0 {
			fmt.Println("\nSources:")
			for name, st := range sf.Sources {
				state := "healthy"
				if st.IsDown {
					state = "DOWN"
				}
				fmt.Printf("  %s: %s (failures: %d, last check: %s)\n",
					name, state, st.ConsecutiveFailures,
					st.LastCheckTime.Format("2006-01-02 15:04:05"))
			}
		}

		if len(sf.Cooldowns) > 0 {
			fmt.Println("\nActive cooldowns:")
			for _, cd := range sf.Cooldowns {
				fmt.Printf("  rule %s / sensor %s: last fired %s\n",
					cd.RuleID, cd.SensorID,
					time.Unix(cd.LastFired, 0).Format("2006-01-02 15:04:05"))
			}
		}
	}

	// Database stats
	store, err := storage.Open(storage.Options{
		Backend:     cfg.StorageBackend,
		DataDir:     cfg.DataDir,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil
	}
	defer store.Close()

	if rules, err := store.ListRules(); err == nil {
		enabled := 0
		for _, r := range rules {
			if r.Enabled {
				enabled++
			}
		}
		fmt.Printf("\nRules: %d (%d enabled)\n", len(rules), enabled)
	}

	if alerts, err := store.RecentAlerts(5); err == nil && len(alerts) > 0 {
		fmt.Println("\nRecent alerts:")
		for _, a := range alerts {
			result := "sent"
			if !a.OverallSuccess {
				result = "FAILED"
			}
			fmt.Printf("  %s %s: %s [%s]\n",
				a.Timestamp.Format("2006-01-02 15:04"), a.SensorName, a.Message, result)
		}
	}

	return nil
}
