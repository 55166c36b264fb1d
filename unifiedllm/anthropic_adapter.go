package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicBaseURL   = "https://api.anthropic.com/"
	defaultAnthropicMaxTokens = 1024
	webSearchToolType         = "web_search_20250305"
)

// MCPServer describes a remote MCP server the model may call during a request.
type MCPServer struct {
	Type               string `json:"type"` // "url"
	URL                string `json:"url"`
	Name               string `json:"name"`
	AuthorizationToken string `json:"authorization_token,omitempty"`
}

// ServerTool is a provider-executed tool definition, such as an MCP toolset
// or the hosted web search tool.
type ServerTool struct {
	Type          string `json:"type"`
	Name          string `json:"name,omitempty"`
	MCPServerName string `json:"mcp_server_name,omitempty"`
	MaxUses       int    `json:"max_uses,omitempty"`
}

// AnthropicOptions carries Anthropic-only request settings. Pass it in
// Request.ProviderOptions under the "anthropic" key.
type AnthropicOptions struct {
	Betas      []string
	MCPServers []MCPServer
	Tools      []ServerTool
}

func anthropicOptionsFrom(req Request) AnthropicOptions {
	switch v := req.ProviderOptions["anthropic"].(type) {
	case AnthropicOptions:
		return v
	case *AnthropicOptions:
		if v != nil {
			return *v
		}
	}
	return AnthropicOptions{}
}

// AnthropicAdapter calls the beta Messages API through the Anthropic SDK.
// Unlike the gollm adapter it preserves the full, ordered list of content
// blocks, including server tool calls and their results.
//
// The adapter sets no HTTP client timeout and never retries; the caller's
// context is the only deadline.
type AnthropicAdapter struct {
	client     anthropic.Client
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
}

// AnthropicOption configures an AnthropicAdapter.
type AnthropicOption func(*AnthropicAdapter)

// WithAnthropicBaseURL overrides the API base URL.
func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(a *AnthropicAdapter) {
		a.baseURL = sanitizeBaseURL(baseURL)
	}
}

// WithAnthropicHTTPClient sets the HTTP client used for requests.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(a *AnthropicAdapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithAnthropicModel sets the model used when a request does not name one.
func WithAnthropicModel(model string) AnthropicOption {
	return func(a *AnthropicAdapter) {
		a.model = model
	}
}

// WithAnthropicMaxTokens sets the max tokens used when a request does not set them.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(a *AnthropicAdapter) {
		a.maxTokens = n
	}
}

// NewAnthropicAdapter creates an adapter authenticated with apiKey.
func NewAnthropicAdapter(apiKey string, opts ...AnthropicOption) (*AnthropicAdapter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "anthropic api key is required"}}
	}
	a := &AnthropicAdapter{
		baseURL:   defaultAnthropicBaseURL,
		model:     DefaultModel,
		maxTokens: defaultAnthropicMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(a.baseURL),
		option.WithMaxRetries(0),
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(a.httpClient))
	}
	a.client = anthropic.NewClient(clientOpts...)
	return a, nil
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// SupportsServerTools reports that MCP servers and web search are available.
func (a *AnthropicAdapter) SupportsServerTools() bool {
	return true
}

// Complete sends a blocking beta Messages API request.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	params, reqOpts := a.buildParams(req, anthropicOptionsFrom(req))

	msg, err := a.client.Beta.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, translateAnthropicError(ctx, err)
	}
	return convertAnthropicMessage(msg, a.Name()), nil
}

func (a *AnthropicAdapter) buildParams(req Request, opts AnthropicOptions) (anthropic.BetaMessageNewParams, []option.RequestOption) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := a.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if system := req.System(); system != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	for _, msg := range req.Messages {
		role := anthropic.BetaMessageParamRoleUser
		switch msg.Role {
		case RoleSystem:
			continue
		case RoleAssistant:
			role = anthropic.BetaMessageParamRoleAssistant
		}
		params.Messages = append(params.Messages, betaTextMessage(role, msg.TextContent()))
	}
	if len(params.Messages) == 0 {
		params.Messages = append(params.Messages, betaTextMessage(anthropic.BetaMessageParamRoleUser, ""))
	}

	for _, s := range opts.MCPServers {
		server := anthropic.BetaRequestMCPServerURLDefinitionParam{Name: s.Name, URL: s.URL}
		if s.AuthorizationToken != "" {
			server.AuthorizationToken = anthropic.String(s.AuthorizationToken)
		}
		params.MCPServers = append(params.MCPServers, server)
	}
	for _, b := range opts.Betas {
		params.Betas = append(params.Betas, anthropic.AnthropicBeta(b))
	}

	tools, reqOpts := anthropicTools(opts.Tools)
	params.Tools = tools
	return params, reqOpts
}

func betaTextMessage(role anthropic.BetaMessageParamRole, text string) anthropic.BetaMessageParam {
	return anthropic.BetaMessageParam{
		Role: role,
		Content: []anthropic.BetaContentBlockParamUnion{
			{OfText: &anthropic.BetaTextBlockParam{Text: text}},
		},
	}
}

// anthropicTools converts server tools to SDK params. Web search has a typed
// param; any other tool type (such as mcp_toolset) is written into the body
// as-is, in which case the whole list travels that way to keep its order.
func anthropicTools(tools []ServerTool) ([]anthropic.BetaToolUnionParam, []option.RequestOption) {
	var (
		typed []anthropic.BetaToolUnionParam
		all   = make([]any, 0, len(tools))
		raw   bool
	)
	for _, t := range tools {
		if t.Type != webSearchToolType {
			raw = true
			all = append(all, t)
			continue
		}
		ws := &anthropic.BetaWebSearchTool20250305Param{}
		if t.MaxUses > 0 {
			ws.MaxUses = anthropic.Int(int64(t.MaxUses))
		}
		typed = append(typed, anthropic.BetaToolUnionParam{OfWebSearchTool20250305: ws})
		all = append(all, ws)
	}
	if raw {
		return nil, []option.RequestOption{option.WithJSONSet("tools", all)}
	}
	return typed, nil
}

func translateAnthropicError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return anthropicStatusError(apiErr)
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RequestTimeoutError{SDKError: SDKError{Message: "anthropic request timed out", Cause: err}}
	case ctx.Err() != nil:
		return &AbortError{SDKError: SDKError{Message: "anthropic request cancelled", Cause: ctx.Err()}}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RequestTimeoutError{SDKError: SDKError{Message: "anthropic request timed out", Cause: err}}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &NetworkError{SDKError: SDKError{Message: "anthropic request failed", Cause: err}}
	}
	return &SDKError{Message: "anthropic request failed", Cause: err}
}

func anthropicStatusError(apiErr *anthropic.Error) error {
	var retryAfter *float64
	if apiErr.Response != nil {
		if v := apiErr.Response.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.ParseFloat(v, 64); err == nil {
				retryAfter = &secs
			}
		}
	}

	message, code := http.StatusText(apiErr.StatusCode), ""
	var body anthropicErrorBody
	if err := json.Unmarshal([]byte(apiErr.RawJSON()), &body); err == nil && body.Error.Message != "" {
		message, code = body.Error.Message, body.Error.Type
	}
	return ErrorFromStatusCode(apiErr.StatusCode, message, "anthropic", code, retryAfter)
}

// convertAnthropicMessage maps content blocks to content parts one to one,
// keeping their order.
func convertAnthropicMessage(msg *anthropic.BetaMessage, provider string) *Response {
	parts := make([]ContentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		parts = append(parts, convertAnthropicBlock(block))
	}

	stop := string(msg.StopReason)
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &Response{
		ID:       msg.ID,
		Model:    string(msg.Model),
		Provider: provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: parts,
		},
		FinishReason: FinishReason{Reason: mapStopReason(stop), Raw: stop},
		Usage: Usage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}
}

func convertAnthropicBlock(block anthropic.BetaContentBlockUnion) ContentPart {
	raw := json.RawMessage(block.RawJSON())

	switch block.Type {
	case "":
		return ContentPart{Kind: ContentKind("invalid"), Raw: raw}
	case "text":
		return TextPart(block.Text)
	case "thinking":
		return ThinkingPart(block.Thinking, block.Signature)
	case "mcp_tool_use":
		part := ToolCallPart(ToolProviderMCP, block.ID, block.Name, rawField(raw, "input"))
		part.ToolCall.ServerName = block.ServerName
		return part
	case "server_tool_use":
		if block.Name != "" && block.Name != "web_search" {
			// Other hosted tools are not part of the retrieval flow.
			return ContentPart{Kind: ContentKind(block.Type), Raw: raw}
		}
		return ToolCallPart(ToolProviderWebSearch, block.ID, block.Name, rawField(raw, "input"))
	case "mcp_tool_result":
		return ToolResultPart(ToolProviderMCP, block.ToolUseID, rawField(raw, "content"), block.IsError)
	case "web_search_tool_result":
		content := rawField(raw, "content")
		return ToolResultPart(ToolProviderWebSearch, block.ToolUseID, content, isWebSearchError(content))
	default:
		return ContentPart{Kind: ContentKind(block.Type), Raw: raw}
	}
}

// rawField returns the undecoded JSON of one field of a block, so tool
// payloads reach callers exactly as the API sent them.
func rawField(block json.RawMessage, name string) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(block, &fields); err != nil {
		return nil
	}
	return fields[name]
}

// isWebSearchError reports whether a web search result body is an error
// object instead of a result list.
func isWebSearchError(content json.RawMessage) bool {
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(content, &obj); err != nil {
		return false
	}
	return obj.Type == "web_search_tool_result_error"
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	case "pause_turn":
		return "pause"
	case "":
		return ""
	default:
		return "other"
	}
}

func sanitizeBaseURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return defaultAnthropicBaseURL
	}
	return trimmed + "/"
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
