// Package cli implements the attune command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the full command tree. Each call returns a fresh tree so
// flags never leak between invocations.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "attune",
		Short:         "attune: daily reflection tracking with insights",
		Long:          `Tracks an evening check-in (presence, emotional state, gratitude, meditation), keeps running stats and streaks, and turns them into daily, rolling and weekly reflections. Prompts and the evening form are delivered over Discord.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		newTrackCmd(),
		newInsightCmd(),
		newConsolidatedCmd(),
		newSummaryCmd(),
		newWeeklyCmd(),
		newStatusCmd(),
		newSendCmd(),
		newScheduleCmd(),
		newDeliveriesCmd(),
		newRunCmd(),
		newChatCmd(),
		newServiceCmd(),
	)
	return root
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
