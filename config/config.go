package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TrackingPath  string // JSON document with all daily entries
	DatabasePath  string // schedules, notes and delivery log
	Timezone      string // IANA name; decides where a day starts
	UserName      string
	PromptLibrary string // optional YAML override for the prompt library

	DiscordToken   string
	DiscordWebhook string

	PromptCron string // time-slot prompts
	FormCron   string // evening reflection form
	WeeklyCron string // weekly summary

	LLMProvider      string // anthropic, openai, ollama
	AnthropicKey     string // API key (X-Api-Key header)
	AnthropicToken   string // OAuth token (Authorization: Bearer header)
	OpenAIKey        string
	LLMModel         string
	OllamaBaseURL    string
	MaxContextTokens int

	LogLevel  string
	LogFormat string // json or console
}

// ConfigDir is where the installed config and default data live (~/.attune).
// ATTUNE_HOME overrides it.
func ConfigDir() string {
	if d := os.Getenv("ATTUNE_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".attune"
	}
	return filepath.Join(home, ".attune")
}

// ConfigFile is the dotenv-format config read after ./.env.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config")
}

func Load() (*Config, error) {
	// godotenv never overrides variables that are already set, so ./.env wins
	// over the installed config and the real environment wins over both.
	_ = godotenv.Load()             // ignore error if no .env
	_ = godotenv.Load(ConfigFile()) // ignore error if not installed

	maxTokens, err := envInt("MAX_CONTEXT_TOKENS", 100000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TrackingPath:  envOr("TRACKING_PATH", filepath.Join(ConfigDir(), "memory", "tracking.json")),
		DatabasePath:  envOr("DATABASE_PATH", filepath.Join(ConfigDir(), "attune.db")),
		Timezone:      os.Getenv("TIMEZONE"),
		UserName:      os.Getenv("USER_NAME"),
		PromptLibrary: os.Getenv("PROMPT_LIBRARY"),

		DiscordToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook: os.Getenv("DISCORD_WEBHOOK_URL"),

		PromptCron: envOr("PROMPT_CRON", "0 10,13,16,19 * * *"),
		FormCron:   envOr("FORM_CRON", "30 20 * * *"),
		WeeklyCron: envOr("WEEKLY_CRON", "0 19 * * 0"),

		LLMProvider:      envOr("LLM_PROVIDER", "anthropic"),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken:   os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		LLMModel:         os.Getenv("LLM_MODEL"),
		OllamaBaseURL:    envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		MaxContextTokens: maxTokens,

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "console"),
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves Timezone, defaulting to the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LLMEnabled reports whether enough credentials are present to talk to the
// configured provider.
func (c *Config) LLMEnabled() bool {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicKey != "" || c.AnthropicToken != ""
	case "openai":
		return c.OpenAIKey != ""
	case "ollama":
		return c.OllamaBaseURL != ""
	}
	return false
}

// LLMKey picks the API key that matches the provider.
func (c *Config) LLMKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIKey
	}
	return c.AnthropicKey
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
