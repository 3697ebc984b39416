package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule [cron-expression]",
		Aliases: []string{"sch", "sched"},
		Short:   "Manage the drift check schedule",
		Long: `Manage the drift check schedule.

A drift check re-measures the configured evaluation targets against the
published display model and reports the color difference.

The schedule command can be used in multiple ways:
  dispcal schedule 'minute hour day month weekday' Set schedule with cron expression
  dispcal schedule disable                         Disable the schedule
  dispcal schedule postpone [duration]             Postpone next run
  dispcal schedule skip                            Skip next run
  dispcal schedule show                            Show current schedule`,
		Example: `  dispcal schedule '0 3 * * *' (At 03:00 every day)
  dispcal schedule '0 9 * * 1' (At 09:00 on Monday)
  dispcal schedule '0 9 1 * *' (At 09:00 on the first day of every month)`,
		GroupID: gAdvanced,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runScheduleShow(cmd)
			}
			return runScheduleSet(cmd, args[0])
		},
	}

	cmd.AddCommand(
		newScheduleDisableCommand(),
		newSchedulePostponeCommand(),
		newScheduleSkipCommand(),
		newScheduleShowCommand(),
	)

	return cmd
}

func newScheduleDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable drift checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.Schedule(""); err != nil {
				return err
			}
			cmd.Println("Drift check schedule disabled.")
			return nil
		},
	}
}

func newSchedulePostponeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postpone [duration]",
		Short: "Postpone the next drift check",
		Example: `  dispcal schedule postpone      (Postpone by 1 hour)
  dispcal schedule postpone 90m  (Postpone by 90 minutes)`,
		Long: `Postpone the next drift check by a specified duration.
If no duration is provided, defaults to 1 hour.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := time.Hour
			if len(args) > 0 {
				parsed, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", args[0], err)
				}
				d = parsed
			}
			if _, err := apiClient.PostponeSchedule(d); err != nil {
				return err
			}
			cmd.Printf("Next drift check postponed by %s.\n", d)
			return nil
		},
	}
	return cmd
}

func newScheduleSkipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the next drift check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.SkipSchedule(); err != nil {
				return err
			}
			cmd.Println("Next drift check skipped.")
			return runScheduleShow(cmd)
		},
	}
}

func newScheduleShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the drift check schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScheduleShow(cmd)
		},
	}
}

func runScheduleSet(cmd *cobra.Command, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	nextRuns, err := apiClient.Schedule(cronExpr)
	if err != nil {
		return err
	}
	cmd.Printf("Drift check scheduled. Next %d run(s):\n", len(nextRuns))
	printRuns(cmd, nextRuns)
	return nil
}

func runScheduleShow(cmd *cobra.Command) error {
	nextRuns, err := apiClient.GetSchedule()
	if err != nil {
		return err
	}
	if len(nextRuns) == 0 {
		cmd.Println("Drift check schedule is not set.")
		return nil
	}
	cmd.Printf("Next %d run(s):\n", len(nextRuns))
	printRuns(cmd, nextRuns)
	return nil
}

func printRuns(cmd *cobra.Command, runs []time.Time) {
	for _, run := range runs {
		cmd.Printf("  - %s\n", run.Local().Format(time.DateTime))
	}
}
