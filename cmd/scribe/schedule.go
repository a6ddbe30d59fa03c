package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/scribe/internal/app"
	"github.com/ternarybob/scribe/internal/common"
)

var (
	scheduleExpr string
	scheduleNow  bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule until interrupted",
	Long: `Start the cron trigger and run the pipeline on every tick. A tick that
arrives while a run is still executing is skipped.

Examples:
  # Use scheduler.schedule from the config (default every 6 hours)
  scribe schedule

  # Run hourly and once right away
  scribe schedule --cron "0 * * * *" --now`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleExpr, "cron", "", "Cron expression (overrides scheduler.schedule)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run once immediately before waiting for the first tick")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	expr := config.Scheduler.Schedule
	if scheduleExpr != "" {
		expr = scheduleExpr
	}

	config.Scheduler.Schedule = expr
	common.PrintBanner(config)

	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.SchedulerService.Start(expr); err != nil {
			return err
		}

		// A cron tick that lands during this run is skipped by the run guard
		if scheduleNow {
			common.SafeGo(logger, "initial-run", func() {
				_ = printRunResult(a.SchedulerService.TriggerNow(ctx))
			})
		}

		status := a.SchedulerService.Status()
		event := logger.Info().Str("schedule", status.Schedule)
		if status.NextRun != nil {
			event = event.Str("next_run", status.NextRun.Format(time.RFC3339))
		}
		event.Msg("Waiting for scheduled runs, press Ctrl+C to stop")

		<-ctx.Done()
		logger.Info().Msg("Interrupt received, stopping scheduler")
		return a.SchedulerService.Stop()
	})
}
