package unifiedllm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
	ContentThinking   ContentKind = "thinking"
)

// ToolProvider identifies the tool family behind a server-side tool call.
type ToolProvider string

const (
	// ToolProviderMCP marks calls routed to a remote MCP server.
	ToolProviderMCP ToolProvider = "mcp"
	// ToolProviderWebSearch marks the provider-hosted web search tool.
	ToolProviderWebSearch ToolProvider = "web_search"
)

// ToolCallData represents a model-initiated tool invocation.
type ToolCallData struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Provider   ToolProvider    `json:"provider,omitempty"`
	ServerName string          `json:"server_name,omitempty"` // MCP server that owns the tool
}

// ToolResultData holds the result of a tool execution.
type ToolResultData struct {
	ToolCallID string          `json:"tool_call_id"`
	Content    json.RawMessage `json:"content,omitempty"`
	IsError    bool            `json:"is_error"`
	Provider   ToolProvider    `json:"provider,omitempty"`
}

// ThinkingData represents model reasoning content.
type ThinkingData struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// ContentPart is a tagged union representing one part of a message.
// Parts of a kind the adapter did not recognise keep the raw kind and body.
type ContentPart struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolCallData   `json:"tool_call,omitempty"`
	ToolResult *ToolResultData `json:"tool_result,omitempty"`
	Thinking   *ThinkingData   `json:"thinking,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ToolCallPart creates a tool call ContentPart.
func ToolCallPart(provider ToolProvider, id, name string, args json.RawMessage) ContentPart {
	return ContentPart{
		Kind:     ContentToolCall,
		ToolCall: &ToolCallData{ID: id, Name: name, Arguments: args, Provider: provider},
	}
}

// ToolResultPart creates a tool result ContentPart.
func ToolResultPart(provider ToolProvider, toolCallID string, content json.RawMessage, isError bool) ContentPart {
	return ContentPart{
		Kind:       ContentToolResult,
		ToolResult: &ToolResultData{ToolCallID: toolCallID, Content: content, IsError: isError, Provider: provider},
	}
}

// ThinkingPart creates a thinking ContentPart.
func ThinkingPart(text, signature string) ContentPart {
	return ContentPart{
		Kind:     ContentThinking,
		Thinking: &ThinkingData{Text: text, Signature: signature},
	}
}

// Message is the fundamental unit of conversation.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextContent returns the concatenation of all text content parts.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls extracts all tool call data from the message content.
func (m Message) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range m.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// AssistantMessage creates an assistant Message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// FinishReason describes why generation stopped.
type FinishReason struct {
	Reason string `json:"reason"` // "stop", "length", "tool_calls", "pause", "other"
	Raw    string `json:"raw,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Request is the input type for Complete.
type Request struct {
	Model           string                 `json:"model"`
	Messages        []Message              `json:"messages"`
	Provider        string                 `json:"provider,omitempty"`
	Temperature     *float64               `json:"temperature,omitempty"`
	MaxTokens       *int                   `json:"max_tokens,omitempty"`
	ProviderOptions map[string]interface{} `json:"provider_options,omitempty"`
}

// System returns the concatenated text of all system messages.
func (r Request) System() string {
	var parts []string
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem {
			if text := msg.TextContent(); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// Response is the output of Complete.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// Text returns the concatenated text from all text parts in the response message.
func (r Response) Text() string {
	return r.Message.TextContent()
}

// IntPtr is a convenience for optional integer request fields.
func IntPtr(v int) *int { return &v }
