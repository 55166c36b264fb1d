// Package agent answers a programming question with one model call that may
// consult the Context7 documentation server and web search on the provider
// side, then keeps only the text written after the last tool result.
package agent

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/martinemde/coderef/answer"
	"github.com/martinemde/coderef/unifiedllm"
)

const (
	// NoResponse is returned when the reply holds no final text.
	NoResponse = "No response generated"

	DefaultContext7MCPURL   = "https://mcp.context7.com/mcp"
	DefaultMaxTokens        = 2000
	DefaultWebSearchMaxUses = 3

	// Context7ServerName is the MCP server name the toolset refers to.
	Context7ServerName = "context7"

	mcpToolsetType = "mcp_toolset"
	webSearchType  = "web_search_20250305"
	webSearchName  = "web_search"
)

// DefaultBetas enables remote MCP servers and hosted web search.
var DefaultBetas = []string{"mcp-client-2025-11-20", "web-search-2025-03-05"}

// Options configures an Agent. Zero fields take the package defaults.
type Options struct {
	Model            string
	MaxTokens        int
	Context7MCPURL   string
	Context7APIKey   string // sent as the MCP authorization token when set
	WebSearchMaxUses int
	Betas            []string
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = unifiedllm.DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Context7MCPURL == "" {
		o.Context7MCPURL = DefaultContext7MCPURL
	}
	if o.WebSearchMaxUses <= 0 {
		o.WebSearchMaxUses = DefaultWebSearchMaxUses
	}
	if len(o.Betas) == 0 {
		o.Betas = append([]string(nil), DefaultBetas...)
	}
	return o
}

// Agent sends questions through a unifiedllm.Client.
type Agent struct {
	client *unifiedllm.Client
	opts   Options
	logger *zap.Logger
}

// New creates an Agent. A nil logger discards output.
func New(client *unifiedllm.Client, opts Options, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		client: client,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Options returns the effective options after defaults were applied.
func (a *Agent) Options() Options {
	return a.opts
}

// Query asks the model for a code example. Provider errors are returned
// unchanged so callers can inspect them with errors.As.
func (a *Agent) Query(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is required")
	}

	req, err := a.BuildRequest(question)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	seq := answer.FromMessage(resp.Message)
	text := answer.ExtractFinalText(seq)
	a.logger.Debug("Filtered response",
		zap.Int("segments", len(seq)),
		zap.Int("tool_calls", len(resp.Message.ToolCalls())),
		zap.Int("last_tool_result", seq.LastToolResult()),
		zap.String("finish_reason", resp.FinishReason.Reason),
		zap.Int("chars", len(text)))

	if text == "" {
		return NoResponse, nil
	}
	return text, nil
}

// BuildRequest assembles the request for question. Server tools are attached
// only when the serving adapter and the model can run them.
func (a *Agent) BuildRequest(question string) (unifiedllm.Request, error) {
	req := unifiedllm.Request{
		Model: unifiedllm.ResolveModelID(a.opts.Model),
		Messages: []unifiedllm.Message{
			unifiedllm.SystemMessage(SystemPrompt),
			unifiedllm.UserMessage(question),
		},
		MaxTokens: unifiedllm.IntPtr(a.opts.MaxTokens),
	}

	adapter, err := a.client.Adapter(req)
	if err != nil {
		return unifiedllm.Request{}, err
	}
	if supportsServerTools(adapter, req.Model) {
		req.ProviderOptions = map[string]interface{}{
			"anthropic": a.serverTools(),
		}
	} else {
		a.logger.Debug("Server tools unavailable, answering without retrieval",
			zap.String("provider", adapter.Name()),
			zap.String("model", req.Model))
	}
	return req, nil
}

func (a *Agent) serverTools() unifiedllm.AnthropicOptions {
	server := unifiedllm.MCPServer{
		Type:               "url",
		URL:                a.opts.Context7MCPURL,
		Name:               Context7ServerName,
		AuthorizationToken: a.opts.Context7APIKey,
	}
	return unifiedllm.AnthropicOptions{
		Betas:      a.opts.Betas,
		MCPServers: []unifiedllm.MCPServer{server},
		Tools: []unifiedllm.ServerTool{
			{Type: mcpToolsetType, MCPServerName: Context7ServerName},
			{Type: webSearchType, Name: webSearchName, MaxUses: a.opts.WebSearchMaxUses},
		},
	}
}

func supportsServerTools(adapter unifiedllm.ProviderAdapter, model string) bool {
	st, ok := adapter.(unifiedllm.ServerToolSupporter)
	if !ok || !st.SupportsServerTools() {
		return false
	}
	// Models missing from the catalog are assumed capable.
	if info := unifiedllm.GetModelInfo(model); info != nil {
		return info.SupportsServerTools
	}
	return true
}
