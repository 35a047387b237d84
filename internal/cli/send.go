package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/scheduler"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Deliver a prompt, the evening form, the weekly summary or a voice moment now",
	}
	cmd.AddCommand(
		sendCmd("prompt", db.KindPrompt, "Send the prompt for the current time slot"),
		sendCmd("form", db.KindForm, "Send the evening reflection form"),
		sendCmd("weekly", db.KindWeekly, "Send the weekly summary"),
		newSendVoiceCmd(),
	)
	return cmd
}

func sendCmd(use, kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dispatch(cmd, kind, "")
		},
	}
}

func newSendVoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voice <moment>",
		Short: "Send a guided voice moment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatch(cmd, db.KindVoice, args[0])
		},
	}
}

func dispatch(cmd *cobra.Command, kind, arg string) error {
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

	loader, err := a.newLoader()
	if err != nil {
		return err
	}
	d, err := a.newDispatcher(database, loader, nil)
	if err != nil {
		return err
	}
	err = d.Run(cmd.Context(), kind, arg)
	if errors.Is(err, scheduler.ErrOutsideHours) {
		fmt.Fprintln(cmd.OutOrStdout(), "Outside active hours (9am-8pm), nothing sent.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Sent %s\n", kind)
	return nil
}
