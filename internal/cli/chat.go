package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chris/attune/internal/llm"
)

var errNoLLM = errors.New("no LLM configured: set ANTHROPIC_API_KEY, OPENAI_API_KEY or LLM_PROVIDER=ollama")

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the reflection companion (one exchange when stdin is piped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			ag, err := a.newAgent(database)
			if err != nil {
				return err
			}
			if ag == nil {
				return errNoLLM
			}

			interactive := isatty.IsTerminal(os.Stdin.Fd())
			return chatLoop(cmd, cmd.InOrStdin(), interactive, ag.Run)
		},
	}
}

type runFunc = func(ctx context.Context, history []llm.Message, msg string) (string, []llm.Message, error)

// chatLoop reads lines until EOF or "exit". Non-interactive input gets a
// single exchange.
func chatLoop(cmd *cobra.Command, in io.Reader, interactive bool, run runFunc) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(in)
	prompt := func() {
		if interactive {
			fmt.Fprint(out, "attune> ")
		}
	}

	var history []llm.Message
	prompt()
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			prompt()
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, next, err := run(cmd.Context(), history, input)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		} else {
			fmt.Fprintln(out, reply)
			history = next
		}
		if !interactive {
			break
		}
		prompt()
	}
	return scanner.Err()
}
