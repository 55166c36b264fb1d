package unifiedllm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter.
// gollm only returns generated text, so responses always hold a single text
// part and no server tools are available.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	apiKey    string
	model     string
	maxTokens int
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// NewGollmAdapter creates a new GollmAdapter for the given provider.
// If apiKey is empty, gollm will attempt to read it from environment variables.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{
		apiKey:    apiKey,
		maxTokens: 2000,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		if info := GetLatestModel(provider, ""); info != nil {
			model = info.ID
		} else {
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(0.2),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}

	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("create gollm LLM for provider %s", provider),
			Cause:   err,
		}}
	}

	return &GollmAdapter{
		provider: provider,
		llm:      llm,
		model:    model,
	}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// SupportsServerTools reports that gollm providers cannot run hosted tools.
func (a *GollmAdapter) SupportsServerTools() bool {
	return false
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	return a.buildResponse(req, text), nil
}

// translateRequest converts a unified Request into a gollm Prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	var userParts []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			userParts = append(userParts, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				userParts = append(userParts, "[Assistant]: "+text)
			}
		}
	}

	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if system := req.System(); system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a unified Response from the generated text.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	inputTokens := estimateTokens(req)
	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: a.provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: []ContentPart{TextPart(text)},
		},
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage: Usage{
			// gollm doesn't expose usage; estimate from text length.
			InputTokens:  inputTokens,
			OutputTokens: len(text) / 4,
			TotalTokens:  inputTokens + len(text)/4,
		},
	}
}

// translateError converts a gollm error into the unified error hierarchy.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	msgLower := strings.ToLower(msg)
	pe := ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: a.provider}
	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(msgLower, "403") || strings.Contains(msgLower, "forbidden"):
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		pe.StatusCode = 404
		return &NotFoundError{ProviderError: pe}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		pe.StatusCode = 500
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	default:
		return &pe
	}
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.TextContent()) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
