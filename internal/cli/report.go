package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/checkin"
)

// textCmd builds a command that prints whatever fn renders.
func textCmd(use, short string, fn func(ctx context.Context, svc *checkin.Service) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			text, err := fn(cmd.Context(), a.checkin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newInsightCmd() *cobra.Command {
	return textCmd("insight", "Show the rolling insight over recent entries",
		func(ctx context.Context, svc *checkin.Service) (string, error) {
			return svc.Insight(ctx)
		})
}

func newConsolidatedCmd() *cobra.Command {
	var date string
	cmd := textCmd("consolidated", "Show the reflection for a completed day",
		func(ctx context.Context, svc *checkin.Service) (string, error) {
			return svc.Consolidated(ctx, date)
		})
	cmd.Flags().StringVar(&date, "date", "", "day in YYYY-MM-DD format (default: today)")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	return textCmd("summary", "Print the raw tracking data as JSON",
		func(ctx context.Context, svc *checkin.Service) (string, error) {
			b, err := svc.Summary(ctx)
			return string(b), err
		})
}

func newWeeklyCmd() *cobra.Command {
	return textCmd("weekly", "Show the summary of the last seven days",
		func(ctx context.Context, svc *checkin.Service) (string, error) {
			r, err := svc.Weekly(ctx)
			if err != nil {
				return "", err
			}
			return r.Text(), nil
		})
}

func newStatusCmd() *cobra.Command {
	return textCmd("status", "Show running stats",
		func(ctx context.Context, svc *checkin.Service) (string, error) {
			return svc.Status(ctx)
		})
}
