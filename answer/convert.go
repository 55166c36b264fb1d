package answer

import "github.com/martinemde/coderef/unifiedllm"

// FromMessage converts the content parts of an LLM message into a Sequence,
// one segment per part.
func FromMessage(msg unifiedllm.Message) Sequence {
	seq := make(Sequence, 0, len(msg.Content))
	for _, part := range msg.Content {
		seq = append(seq, fromPart(part))
	}
	return seq
}

func fromPart(part unifiedllm.ContentPart) Segment {
	switch part.Kind {
	case unifiedllm.ContentText:
		return Text{Content: part.Text}
	case unifiedllm.ContentToolCall:
		if part.ToolCall == nil {
			break
		}
		if p, ok := providerOf(part.ToolCall.Provider); ok {
			return ToolInvocation{Provider: p, Payload: part.ToolCall.Arguments}
		}
	case unifiedllm.ContentToolResult:
		if part.ToolResult == nil {
			break
		}
		if p, ok := providerOf(part.ToolResult.Provider); ok {
			return ToolResult{Provider: p, Payload: part.ToolResult.Content}
		}
	}
	return Unknown{Kind: string(part.Kind)}
}

func providerOf(p unifiedllm.ToolProvider) (Provider, bool) {
	switch p {
	case unifiedllm.ToolProviderMCP:
		return DocTool, true
	case unifiedllm.ToolProviderWebSearch:
		return WebSearchTool, true
	}
	return 0, false
}
