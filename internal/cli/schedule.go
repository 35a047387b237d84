package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/db"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"schedules"},
		Short:   "Manage delivery schedules",
	}
	cmd.AddCommand(
		newScheduleListCmd(),
		newScheduleAddCmd(),
		scheduleToggleCmd("enable", true),
		scheduleToggleCmd("disable", false),
		newScheduleRemoveCmd(),
	)
	return cmd
}

// withDB runs fn against an open database.
func withDB(fn func(database *db.DB) error) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()
	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(database *db.DB) error {
				schedules, err := database.ListSchedules(false)
				if err != nil {
					return err
				}
				if len(schedules) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No schedules. They are seeded on the first `attune run`.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tKIND\tCRON\tARG\tENABLED\tLAST RUN")
				for _, s := range schedules {
					last := s.LastRun
					if last == "" {
						last = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", s.Name, s.Kind, s.CronExpr, s.Arg, s.Enabled, last)
				}
				return w.Flush()
			})
		},
	}
}

func newScheduleAddCmd() *cobra.Command {
	var arg string
	cmd := &cobra.Command{
		Use:   "add <name> <kind> <cron>",
		Short: "Add a schedule (kinds: " + strings.Join(db.Kinds(), ", ") + ")",
		Long: `Add a schedule. The cron expression uses the standard five fields and is
evaluated in TIMEZONE, e.g. "0 7 * * *" for every morning at 7.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, kind, expr := args[0], args[1], args[2]
			if _, err := cron.ParseStandard(expr); err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", expr, err)
			}
			if kind == db.KindVoice && arg == "" {
				return fmt.Errorf("voice schedules need --arg <moment>")
			}
			return withDB(func(database *db.DB) error {
				if _, err := database.CreateSchedule(name, kind, expr, arg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added schedule %s (%s, %s)\n", name, kind, expr)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&arg, "arg", "", "argument for the schedule kind (voice moment name)")
	return cmd
}

func scheduleToggleCmd(use string, enabled bool) *cobra.Command {
	done := "Disabled"
	if enabled {
		done = "Enabled"
	}
	return &cobra.Command{
		Use:   use + " <name>",
		Short: done[:len(done)-1] + " a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(database *db.DB) error {
				s, err := database.GetSchedule(args[0])
				if err != nil {
					return err
				}
				if s == nil {
					return fmt.Errorf("no schedule named %q", args[0])
				}
				if err := database.UpdateSchedule(s.ID, map[string]any{"enabled": enabled}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s\n", done, s.Name)
				return nil
			})
		},
	}
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a schedule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(database *db.DB) error {
				if err := database.DeleteSchedule(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
				return nil
			})
		},
	}
}
