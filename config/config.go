// Package config loads coderef settings from the environment and the user
// config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/martinemde/coderef/unifiedllm"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds environment settings. Zero values are filled from envDefault.
type Config struct {
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	Context7APIKey   string `env:"CONTEXT7_API_KEY"`

	Provider         string        `env:"CODEREF_PROVIDER" envDefault:"anthropic"`
	Model            string        `env:"CODEREF_MODEL"`
	MaxTokens        int           `env:"CODEREF_MAX_TOKENS" envDefault:"2000"`
	Timeout          time.Duration `env:"CODEREF_TIMEOUT" envDefault:"2m"`
	WebSearchMaxUses int           `env:"CODEREF_WEB_SEARCH_MAX_USES" envDefault:"3"`

	Context7MCPURL string `env:"CODEREF_CONTEXT7_MCP_URL" envDefault:"https://mcp.context7.com/mcp"`
	Context7APIURL string `env:"CODEREF_CONTEXT7_API_URL" envDefault:"https://context7.com/api/v2"`

	ConfigPath string `env:"CODEREF_CONFIG" envDefault:"~/.coderef/config.yaml"`
}

// Load reads the process environment and then the user config file.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadEnvironment is Load with an explicit environment instead of the
// process one.
func LoadEnvironment(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The environment wins over the file.
	if cfg.Context7APIKey == "" {
		m, err := NewManager(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		key, err := m.Context7APIKey()
		if err != nil {
			return nil, err
		}
		cfg.Context7APIKey = key
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported provider %q (want %s or %s)", c.Provider, ProviderAnthropic, ProviderOpenAI)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("CODEREF_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("CODEREF_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.WebSearchMaxUses <= 0 {
		return fmt.Errorf("CODEREF_WEB_SEARCH_MAX_USES must be positive, got %d", c.WebSearchMaxUses)
	}
	return nil
}

// EffectiveModel returns Model, or the provider's preferred catalog model.
func (c *Config) EffectiveModel() string {
	if c.Model != "" {
		return unifiedllm.ResolveModelID(c.Model)
	}
	if info := unifiedllm.GetLatestModel(c.Provider, ""); info != nil {
		return info.ID
	}
	return unifiedllm.DefaultModel
}

// ProviderAPIKey returns the key for the configured provider and the name of
// the variable it comes from.
func (c *Config) ProviderAPIKey() (key, envVar string) {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey, "OPENAI_API_KEY"
	default:
		return c.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	}
}
