package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chris/attune/internal/agent"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/discord"
	"github.com/chris/attune/internal/llm"
	"github.com/chris/attune/internal/prompts"
	"github.com/chris/attune/internal/scheduler"
)

// newAgent returns nil without error when no LLM credentials are configured.
func (a *app) newAgent(database *db.DB) (*agent.Agent, error) {
	if !a.cfg.LLMEnabled() {
		return nil, nil
	}
	client, err := llm.NewClient(llm.ProviderConfig{
		Provider:  a.cfg.LLMProvider,
		APIKey:    a.cfg.LLMKey(),
		AuthToken: a.cfg.AnthropicToken,
		Model:     a.cfg.LLMModel,
		BaseURL:   a.cfg.OllamaBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return agent.New(a.checkin, database, client, a.cfg.MaxContextTokens, a.log.Named("agent")), nil
}

func (a *app) newLoader() (*prompts.Loader, error) {
	return prompts.NewLoader(a.cfg.PromptLibrary, a.log.Named("prompts"))
}

// newDispatcher wires the delivery channels that are configured. dm may be nil,
// in which case a REST-only Discord sender is used when a token is present.
func (a *app) newDispatcher(database *db.DB, loader *prompts.Loader, dm scheduler.DM) (*scheduler.Dispatcher, error) {
	opts := []scheduler.DispatcherOption{
		scheduler.WithUserName(a.cfg.UserName),
		scheduler.WithLogger(a.log.Named("dispatch")),
	}
	if dm == nil && a.cfg.DiscordToken != "" {
		sender, err := discord.NewSender(a.cfg.DiscordToken)
		if err != nil {
			return nil, err
		}
		dm = sender
	}
	if dm != nil {
		opts = append(opts, scheduler.WithDM(dm))
	}
	if a.cfg.DiscordWebhook != "" {
		opts = append(opts, scheduler.WithWebhook(a.cfg.DiscordWebhook, &http.Client{Timeout: 30 * time.Second}))
	}
	return scheduler.NewDispatcher(database, a.checkin, loader, opts...), nil
}
