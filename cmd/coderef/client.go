package main

import (
	"fmt"

	"github.com/martinemde/coderef/agent"
	"github.com/martinemde/coderef/config"
	"github.com/martinemde/coderef/unifiedllm"
)

// missingKeyError asks the user to set the variable that holds a key.
type missingKeyError struct {
	envVar string
}

func (e *missingKeyError) Error() string {
	return fmt.Sprintf("set %s environment variable", e.envVar)
}

// newLLMClient builds a client with one adapter for the configured provider.
func newLLMClient(cfg *config.Config) (*unifiedllm.Client, error) {
	key, envVar := cfg.ProviderAPIKey()
	if key == "" {
		return nil, &missingKeyError{envVar: envVar}
	}

	var (
		adapter unifiedllm.ProviderAdapter
		err     error
	)
	model := cfg.EffectiveModel()
	switch cfg.Provider {
	case config.ProviderOpenAI:
		adapter, err = unifiedllm.NewGollmAdapter(cfg.Provider, key,
			unifiedllm.WithModel(model),
			unifiedllm.WithMaxTokens(cfg.MaxTokens))
	default:
		adapter, err = unifiedllm.NewAnthropicAdapter(key,
			unifiedllm.WithAnthropicBaseURL(cfg.AnthropicBaseURL),
			unifiedllm.WithAnthropicModel(model),
			unifiedllm.WithAnthropicMaxTokens(cfg.MaxTokens))
	}
	if err != nil {
		return nil, err
	}

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.Provider),
		unifiedllm.WithMiddleware(agent.LoggingMiddleware(logger)),
	), nil
}
