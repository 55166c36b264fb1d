package context7

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	DefaultMCPURL = "https://mcp.context7.com/mcp"

	ToolResolveLibraryID = "resolve-library-id"
	ToolQueryDocs        = "query-docs"

	clientName    = "coderef"
	clientVersion = "0.1.0"
)

// MCPClient calls the hosted Context7 MCP server over streamable HTTP. Each
// call opens its own session.
type MCPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// MCPOption configures an MCPClient.
type MCPOption func(*MCPClient)

// WithMCPHTTPClient sets the base HTTP client. The bearer token is layered on
// top of its transport.
func WithMCPHTTPClient(hc *http.Client) MCPOption {
	return func(c *MCPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMCPLogger sets the logger.
func WithMCPLogger(logger *zap.Logger) MCPOption {
	return func(c *MCPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewMCPClient creates a client for the server at endpoint. apiKey may be
// empty for anonymous access.
func NewMCPClient(endpoint, apiKey string, opts ...MCPOption) *MCPClient {
	if endpoint == "" {
		endpoint = DefaultMCPURL
	}
	c := &MCPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveLibraryID asks the server which Context7 library best matches name.
// The reply is the server's text listing of candidates.
func (c *MCPClient) ResolveLibraryID(ctx context.Context, libraryName, query string) (string, error) {
	return c.callTool(ctx, ToolResolveLibraryID, map[string]any{
		"libraryName": libraryName,
		"query":       query,
	})
}

// QueryDocs fetches documentation for query from the library libraryID.
func (c *MCPClient) QueryDocs(ctx context.Context, libraryID, query string) (string, error) {
	return c.callTool(ctx, ToolQueryDocs, map[string]any{
		"libraryId": libraryID,
		"query":     query,
	})
}

func (c *MCPClient) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	c.logger.Debug("Calling MCP tool", zap.String("tool", name), zap.String("endpoint", c.endpoint))
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", &APIError{Message: fmt.Sprintf("call %s", name), Cause: err}
	}

	text := joinText(res.Content)
	if res.IsError {
		return "", &APIError{Message: fmt.Sprintf("%s failed: %s", name, text)}
	}
	return text, nil
}

func (c *MCPClient) connect(ctx context.Context) (*mcp.ClientSession, error) {
	hc := *c.httpClient
	hc.Transport = &bearerTransport{token: c.apiKey, base: c.httpClient.Transport}

	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   c.endpoint,
		HTTPClient: &hc,
	}, nil)
	if err != nil {
		return nil, &APIError{Message: "Network error", Cause: err}
	}
	return session, nil
}

func joinText(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		if tc, ok := item.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.token == "" {
		return base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return base.RoundTrip(req)
}
