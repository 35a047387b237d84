package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/db"
)

func newDeliveriesCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "Show recently sent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(database *db.DB) error {
				list, err := database.ListDeliveries(kind, limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing sent yet.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "WHEN\tKIND\tCHANNEL\tSTATUS\tCONTENT")
				for _, d := range list {
					status := d.Status
					if d.Error != "" {
						status += ": " + d.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.CreatedAt, d.Kind, d.Channel, status, firstLine(d.Content, 60))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only show one kind ("+strings.Join(db.Kinds(), ", ")+")")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "how many to show")
	return cmd
}

func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
