package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chris/attune/internal/discord"
	"github.com/chris/attune/internal/scheduler"
)

var errNothingToRun = errors.New("set DISCORD_BOT_TOKEN or DISCORD_WEBHOOK_URL to run the scheduler")

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Discord bot and the delivery scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if a.cfg.DiscordToken == "" && a.cfg.DiscordWebhook == "" {
				return errNothingToRun
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
}

func (a *app) run(ctx context.Context) error {
	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	loader, err := a.newLoader()
	if err != nil {
		return err
	}
	go func() {
		if err := loader.Watch(ctx); err != nil {
			a.log.Warn("prompt library watcher stopped", zap.Error(err))
		}
	}()

	var dm scheduler.DM
	if a.cfg.DiscordToken != "" {
		ag, err := a.newAgent(database)
		if err != nil {
			return err
		}
		var chat discord.Agent
		if ag != nil {
			chat = ag
		}
		handler := discord.NewHandler(a.checkin, database, chat, a.cfg.MaxContextTokens, a.log.Named("discord"))
		bot, err := discord.NewBot(a.cfg.DiscordToken, handler, a.log.Named("discord"))
		if err != nil {
			return err
		}
		defer bot.Close()
		dm = bot
	}

	dispatcher, err := a.newDispatcher(database, loader, dm)
	if err != nil {
		return err
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	sched := scheduler.New(database, dispatcher, loc, a.log.Named("scheduler"))
	sched.Seed(scheduler.Defaults(a.cfg.PromptCron, a.cfg.FormCron, a.cfg.WeeklyCron))
	sched.Start()
	defer sched.Stop()

	a.log.Info("attune is running, press Ctrl+C to exit", zap.Int("schedules", sched.Entries()))
	<-ctx.Done()
	a.log.Info("shutting down")
	return nil
}
