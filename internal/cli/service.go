package cli

import (
	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/service"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install and control attune as a background service (launchd or systemd)",
	}
	action := func(use, short string, fn func(*service.Manager) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := service.New(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				return fn(m)
			},
		}
	}
	cmd.AddCommand(
		action("install", "Install the binary and start `attune run` on login", (*service.Manager).Install),
		action("uninstall", "Stop the service and remove it", (*service.Manager).Uninstall),
		action("start", "Start the service", (*service.Manager).Start),
		action("stop", "Stop the service", (*service.Manager).Stop),
		action("restart", "Restart the service", (*service.Manager).Restart),
		action("status", "Show service status", (*service.Manager).Status),
		action("logs", "Follow service logs", (*service.Manager).Logs),
	)
	return cmd
}
