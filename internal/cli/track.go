package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/checkin"
)

func newTrackCmd() *cobra.Command {
	var silent bool
	cmd := &cobra.Command{
		Use:   "track [YYYY-MM-DD] <field> <value>",
		Short: "Record one answer of the daily check-in",
		Long: `Record one answer. Fields: presence, emotion, gratitude (1-10),
meditation_times (none, 1x, 2x, 3x+), meditation_duration (20, 40, 60, 60+),
gratitudes (separate with ";"), bestPrompt (wealth, family, home, health, joy,
gratitude), insights (free text). The date defaults to today.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := checkin.ParseTrackArgs(args)
			if err != nil {
				return err
			}
			req.Silent = silent

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.checkin.Track(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "print a one-line acknowledgement only")
	return cmd
}
