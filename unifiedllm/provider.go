package unifiedllm

import "context"

// ProviderAdapter is the interface every provider backend must implement.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}

// ServerToolSupporter is implemented by adapters that can run provider-hosted
// tools (remote MCP servers, web search) during a single call.
type ServerToolSupporter interface {
	SupportsServerTools() bool
}
