package llm

import (
	"errors"
	"fmt"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// ErrUnknownProvider is returned by NewClient for an unsupported provider.
var ErrUnknownProvider = errors.New("unknown LLM provider")

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "llama3.1"
)

type ProviderConfig struct {
	Provider  string
	APIKey    string
	AuthToken string // OAuth token (Bearer auth)
	Model     string
	BaseURL   string // only used by ollama
}

// NewClient builds the client for cfg.Provider. Ollama speaks the OpenAI
// protocol, so it shares that client with a local base URL.
func NewClient(cfg ProviderConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.APIKey == "" && cfg.AuthToken == "" {
			return nil, fmt.Errorf("anthropic: no API key or auth token")
		}
		return NewAnthropicClient(cfg.APIKey, cfg.AuthToken, cfg.Model), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: no API key")
		}
		return NewOpenAIClient(cfg.APIKey, modelOr(cfg.Model, defaultOpenAIModel), ""), nil
	case ProviderOllama:
		return NewOpenAIClient("ollama", modelOr(cfg.Model, defaultOllamaModel), cfg.BaseURL), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
