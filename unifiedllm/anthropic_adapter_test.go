package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 120, "output_tokens": 40},
  "content": [
    {"type": "text", "text": "I'll look that up."},
    {"type": "mcp_tool_use", "id": "mcptoolu_1", "name": "query-docs", "server_name": "context7", "input": {"libraryId": "/cplusplus/ranges"}},
    {"type": "mcp_tool_result", "tool_use_id": "mcptoolu_1", "is_error": false, "content": [{"type": "text", "text": "fold_left docs"}]},
    {"type": "server_tool_use", "id": "srvtoolu_1", "name": "web_search", "input": {"query": "fold_left"}},
    {"type": "web_search_tool_result", "tool_use_id": "srvtoolu_1", "content": [{"type": "web_search_result", "url": "https://en.cppreference.com"}]},
    {"type": "thinking", "thinking": "compose", "signature": "sig"},
    {"type": "citations_delta"},
    {"type": "text", "text": "auto s = std::ranges::fold_left(v, 0, std::plus{});"}
  ]
}`

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicAdapter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	adapter, err := NewAnthropicAdapter("sk-ant-test", WithAnthropicBaseURL(srv.URL+"/"), WithAnthropicHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return adapter
}

func TestNewAnthropicAdapterRequiresKey(t *testing.T) {
	_, err := NewAnthropicAdapter("  ")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func betaHeader(h http.Header) []string {
	var flags []string
	for _, v := range h.Values("Anthropic-Beta") {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				flags = append(flags, f)
			}
		}
	}
	return flags
}

func TestAnthropicAdapterRequest(t *testing.T) {
	var (
		gotPath    string
		gotQuery   string
		gotHeaders http.Header
		gotBody    map[string]interface{}
	)
	adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseResponse)
	})

	req := Request{
		Model:     "claude-haiku-4-5",
		MaxTokens: IntPtr(500),
		Messages:  []Message{SystemMessage("be succinct"), UserMessage("C++ fold_left")},
		ProviderOptions: map[string]interface{}{
			"anthropic": AnthropicOptions{
				Betas:      []string{"mcp-client-2025-11-20", "web-search-2025-03-05"},
				MCPServers: []MCPServer{{Type: "url", URL: "https://mcp.context7.com/mcp", Name: "context7", AuthorizationToken: "ctx7sk_abc"}},
				Tools: []ServerTool{
					{Type: "mcp_toolset", MCPServerName: "context7"},
					{Type: "web_search_20250305", Name: "web_search", MaxUses: 3},
				},
			},
		},
	}
	if _, err := adapter.Complete(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/messages" || gotQuery != "beta=true" {
		t.Errorf("unexpected endpoint %s?%s", gotPath, gotQuery)
	}
	if gotHeaders.Get("X-Api-Key") != "sk-ant-test" {
		t.Errorf("missing api key header")
	}
	if gotHeaders.Get("Anthropic-Version") != "2023-06-01" {
		t.Errorf("missing version header")
	}
	betas := betaHeader(gotHeaders)
	if len(betas) != 2 || betas[0] != "mcp-client-2025-11-20" || betas[1] != "web-search-2025-03-05" {
		t.Errorf("unexpected beta flags %v", betas)
	}

	if gotBody["model"] != "claude-haiku-4-5" {
		t.Errorf("unexpected model %v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(500) {
		t.Errorf("unexpected max_tokens %v", gotBody["max_tokens"])
	}
	system, _ := gotBody["system"].([]interface{})
	if len(system) != 1 || system[0].(map[string]interface{})["text"] != "be succinct" {
		t.Errorf("unexpected system %v", gotBody["system"])
	}
	servers, _ := gotBody["mcp_servers"].([]interface{})
	if len(servers) != 1 {
		t.Fatalf("expected one mcp server, got %v", gotBody["mcp_servers"])
	}
	server := servers[0].(map[string]interface{})
	if server["type"] != "url" || server["name"] != "context7" ||
		server["url"] != "https://mcp.context7.com/mcp" || server["authorization_token"] != "ctx7sk_abc" {
		t.Errorf("unexpected mcp server %v", server)
	}
	tools, _ := gotBody["tools"].([]interface{})
	if len(tools) != 2 {
		t.Fatalf("expected two tools, got %v", gotBody["tools"])
	}
	toolset := tools[0].(map[string]interface{})
	if toolset["type"] != "mcp_toolset" || toolset["mcp_server_name"] != "context7" {
		t.Errorf("unexpected mcp toolset %v", toolset)
	}
	search := tools[1].(map[string]interface{})
	if search["type"] != "web_search_20250305" || search["name"] != "web_search" || search["max_uses"] != float64(3) {
		t.Errorf("unexpected web search tool %v", search)
	}
	messages, _ := gotBody["messages"].([]interface{})
	if len(messages) != 1 {
		t.Errorf("expected system message to be lifted out, got %d messages", len(messages))
	}
}

func TestAnthropicAdapterWebSearchOnly(t *testing.T) {
	var gotBody map[string]interface{}
	adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, `{"id":"m","role":"assistant","content":[{"type":"text","text":"hi"}],"stop_reason":"end_turn"}`)
	})

	req := Request{
		Messages: []Message{UserMessage("q")},
		ProviderOptions: map[string]interface{}{
			"anthropic": AnthropicOptions{Tools: []ServerTool{{Type: "web_search_20250305", Name: "web_search", MaxUses: 2}}},
		},
	}
	if _, err := adapter.Complete(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tools, _ := gotBody["tools"].([]interface{})
	if len(tools) != 1 {
		t.Fatalf("expected one tool, got %v", gotBody["tools"])
	}
	search := tools[0].(map[string]interface{})
	if search["type"] != "web_search_20250305" || search["max_uses"] != float64(2) {
		t.Errorf("unexpected web search tool %v", search)
	}
}

func TestAnthropicAdapterPlainRequestHasNoBeta(t *testing.T) {
	var gotBeta []string
	var gotBody map[string]interface{}
	adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		gotBeta = betaHeader(r.Header)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, `{"id":"m","role":"assistant","content":[{"type":"text","text":"hi"}],"stop_reason":"max_tokens"}`)
	})

	resp, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotBeta) != 0 {
		t.Errorf("expected no beta flags, got %v", gotBeta)
	}
	if gotBody["model"] != DefaultModel {
		t.Errorf("expected default model, got %v", gotBody["model"])
	}
	if _, ok := gotBody["mcp_servers"]; ok {
		t.Error("expected mcp_servers to be omitted")
	}
	if _, ok := gotBody["tools"]; ok {
		t.Error("expected tools to be omitted")
	}
	if resp.FinishReason.Reason != "length" {
		t.Errorf("expected length finish reason, got %q", resp.FinishReason.Reason)
	}
}

func TestAnthropicAdapterBlockMapping(t *testing.T) {
	adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, toolUseResponse)
	})

	resp, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("q")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []ContentKind{
		ContentText,
		ContentToolCall,
		ContentToolResult,
		ContentToolCall,
		ContentToolResult,
		ContentThinking,
		ContentKind("citations_delta"),
		ContentText,
	}
	parts := resp.Message.Content
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d", len(want), len(parts))
	}
	for i, kind := range want {
		if parts[i].Kind != kind {
			t.Errorf("part %d: expected %q, got %q", i, kind, parts[i].Kind)
		}
	}

	if parts[1].ToolCall.Provider != ToolProviderMCP || parts[1].ToolCall.ServerName != "context7" {
		t.Errorf("unexpected mcp call %+v", parts[1].ToolCall)
	}
	if parts[2].ToolResult.Provider != ToolProviderMCP || parts[2].ToolResult.ToolCallID != "mcptoolu_1" {
		t.Errorf("unexpected mcp result %+v", parts[2].ToolResult)
	}
	if parts[3].ToolCall.Provider != ToolProviderWebSearch {
		t.Errorf("unexpected web search call %+v", parts[3].ToolCall)
	}
	if parts[4].ToolResult.Provider != ToolProviderWebSearch || parts[4].ToolResult.IsError {
		t.Errorf("unexpected web search result %+v", parts[4].ToolResult)
	}
	if len(parts[6].Raw) == 0 {
		t.Error("expected unknown block to keep its raw body")
	}

	if resp.Usage.TotalTokens != 160 {
		t.Errorf("expected total tokens 160, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason.Reason != "stop" || resp.FinishReason.Raw != "end_turn" {
		t.Errorf("unexpected finish reason %+v", resp.FinishReason)
	}
	if resp.Provider != "anthropic" || resp.ID != "msg_01" {
		t.Errorf("unexpected response metadata %s/%s", resp.Provider, resp.ID)
	}
}

func decodeBlock(t *testing.T, raw string) anthropic.BetaContentBlockUnion {
	t.Helper()
	var block anthropic.BetaContentBlockUnion
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		t.Fatalf("decode block: %v", err)
	}
	return block
}

func TestConvertAnthropicBlockEdgeCases(t *testing.T) {
	t.Run("web search error result", func(t *testing.T) {
		part := convertAnthropicBlock(decodeBlock(t, `{"type":"web_search_tool_result","tool_use_id":"s1","content":{"type":"web_search_tool_result_error","error_code":"max_uses_exceeded"}}`))
		if part.Kind != ContentToolResult || !part.ToolResult.IsError {
			t.Errorf("expected error result, got %+v", part)
		}
	})

	t.Run("mcp error result", func(t *testing.T) {
		part := convertAnthropicBlock(decodeBlock(t, `{"type":"mcp_tool_result","tool_use_id":"m1","is_error":true,"content":[{"type":"text","text":"boom"}]}`))
		if part.Kind != ContentToolResult || !part.ToolResult.IsError || part.ToolResult.ToolCallID != "m1" {
			t.Errorf("expected mcp error result, got %+v", part)
		}
	})

	t.Run("other server tool", func(t *testing.T) {
		part := convertAnthropicBlock(decodeBlock(t, `{"type":"server_tool_use","id":"s2","name":"code_execution","input":{}}`))
		if part.Kind != ContentKind("server_tool_use") {
			t.Errorf("expected pass-through kind, got %q", part.Kind)
		}
	})

	t.Run("untyped block", func(t *testing.T) {
		part := convertAnthropicBlock(decodeBlock(t, `{"text":"orphan"}`))
		if part.Kind != ContentKind("invalid") {
			t.Errorf("expected invalid kind, got %q", part.Kind)
		}
	})

	t.Run("tool payload kept verbatim", func(t *testing.T) {
		part := convertAnthropicBlock(decodeBlock(t, `{"type":"mcp_tool_use","id":"m2","name":"query-docs","server_name":"context7","input":{"libraryId":"/a/b"}}`))
		if string(part.ToolCall.Arguments) != `{"libraryId":"/a/b"}` {
			t.Errorf("unexpected arguments %s", part.ToolCall.Arguments)
		}
	})
}

func TestAnthropicAdapterErrors(t *testing.T) {
	t.Run("authentication", func(t *testing.T) {
		adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
		})
		_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("q")}})
		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
		}
		if authErr.Message != "invalid x-api-key" || authErr.ErrorCode != "authentication_error" {
			t.Errorf("unexpected error fields %+v", authErr.ProviderError)
		}
	})

	t.Run("rate limit with retry-after", func(t *testing.T) {
		adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
		})
		_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("q")}})
		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("expected RateLimitError, got %T", err)
		}
		if rl.RetryAfter == nil || *rl.RetryAfter != 7 {
			t.Errorf("expected retry-after 7, got %v", rl.RetryAfter)
		}
	})

	t.Run("overloaded", func(t *testing.T) {
		adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(529)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
		})
		_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("q")}})
		var se *ServerError
		if !errors.As(err, &se) || se.Message != "Overloaded" || !IsTransient(err) {
			t.Fatalf("expected transient ServerError, got %T: %v", err, err)
		}
	})

	t.Run("undecodable success body", func(t *testing.T) {
		adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "{")
		})
		_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("q")}})
		if err == nil {
			t.Fatal("expected decode error")
		}
		if _, ok := AsProviderError(err); ok {
			t.Errorf("expected a non-provider error, got %T", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := adapter.Complete(ctx, Request{Messages: []Message{UserMessage("q")}})
		var timeout *RequestTimeoutError
		if !errors.As(err, &timeout) {
			t.Fatalf("expected RequestTimeoutError, got %T: %v", err, err)
		}
	})

	t.Run("http client timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(300 * time.Millisecond):
			}
		}))
		t.Cleanup(srv.Close)
		adapter, err := NewAnthropicAdapter("sk-ant-test",
			WithAnthropicBaseURL(srv.URL),
			WithAnthropicHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err = adapter.Complete(ctx, Request{Messages: []Message{UserMessage("q")}})
		var timeout *RequestTimeoutError
		if !errors.As(err, &timeout) {
			t.Fatalf("expected RequestTimeoutError, got %T: %v", err, err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		adapter, err := NewAnthropicAdapter("sk-ant-test", WithAnthropicBaseURL(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("q")}})
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %T: %v", err, err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		adapter := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := adapter.Complete(ctx, Request{Messages: []Message{UserMessage("q")}})
		var abort *AbortError
		if !errors.As(err, &abort) {
			t.Fatalf("expected AbortError, got %T: %v", err, err)
		}
	})
}

func TestAnthropicOptionsFromPointer(t *testing.T) {
	opts := &AnthropicOptions{Betas: []string{"b"}}
	got := anthropicOptionsFrom(Request{ProviderOptions: map[string]interface{}{"anthropic": opts}})
	if len(got.Betas) != 1 {
		t.Errorf("expected pointer options to be read, got %+v", got)
	}
	if got := anthropicOptionsFrom(Request{}); len(got.Betas) != 0 || len(got.Tools) != 0 {
		t.Errorf("expected zero options, got %+v", got)
	}
}

func TestNewAnthropicAdapterLeavesDeadlineToContext(t *testing.T) {
	adapter, err := NewAnthropicAdapter("sk-ant-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.httpClient != nil {
		t.Errorf("expected no adapter-level HTTP client, got timeout %s", adapter.httpClient.Timeout)
	}
}

func TestSanitizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"":                       defaultAnthropicBaseURL,
		"http://localhost:8080":  "http://localhost:8080/",
		"http://localhost:8080/": "http://localhost:8080/",
		" https://proxy/v/ ":     "https://proxy/v/",
	}
	for in, want := range tests {
		if got := sanitizeBaseURL(in); got != want {
			t.Errorf("sanitizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
