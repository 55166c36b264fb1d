// Package unifiedllm provides a provider-agnostic LLM client. Requests and
// responses use one content model regardless of which backend serves them,
// so callers can inspect the ordered content parts of a reply without
// knowing the provider's wire format.
//
// # Architecture
//
//   - ProviderAdapter interface and shared types (Message, ContentPart, Request, Response)
//   - Typed errors mapped from HTTP status codes
//   - Client with provider routing and middleware
//   - Model catalog with server tool capabilities
//
// # Quick Start
//
//	adapter, _ := unifiedllm.NewAnthropicAdapter(os.Getenv("ANTHROPIC_API_KEY"))
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("anthropic", adapter))
//
//	resp, _ := client.Complete(ctx, unifiedllm.Request{
//	    Model:    "claude-haiku-4-5",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # AnthropicAdapter
//
// The AnthropicAdapter calls the beta Messages API through the Anthropic
// SDK, with retries off and no deadline beyond the caller's context.
// Remote MCP servers, hosted tools and beta flags are passed through
// AnthropicOptions in Request.ProviderOptions["anthropic"]:
//
//	req.ProviderOptions = map[string]interface{}{
//	    "anthropic": unifiedllm.AnthropicOptions{
//	        Betas:      []string{"mcp-client-2025-11-20"},
//	        MCPServers: []unifiedllm.MCPServer{{Type: "url", URL: url, Name: "docs"}},
//	        Tools:      []unifiedllm.ServerTool{{Type: "mcp_toolset", MCPServerName: "docs"}},
//	    },
//	}
//
// Every returned content block becomes one ContentPart, in order. Tool calls
// and tool results run by the provider are tagged with a ToolProvider.
//
// # GollmAdapter
//
// The GollmAdapter wraps gollm.LLM for providers that only generate text.
// Its responses hold a single text part.
//
// # Model Catalog
//
//	info := unifiedllm.GetModelInfo("haiku")
//	models := unifiedllm.ListModels("anthropic")
//	latest := unifiedllm.GetLatestModel("anthropic", "server_tools")
package unifiedllm
