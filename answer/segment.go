package answer

import "encoding/json"

// Provider identifies the tool family behind an invocation or result.
type Provider int

const (
	// DocTool is the documentation retrieval service.
	DocTool Provider = iota
	// WebSearchTool is the hosted web search fallback.
	WebSearchTool
)

func (p Provider) String() string {
	switch p {
	case DocTool:
		return "doc"
	case WebSearchTool:
		return "web_search"
	default:
		return "unknown"
	}
}

// Segment is one unit of a model reply. The set of implementations is closed.
// Segments are held as values; a non-nil pointer to one is read the same way.
type Segment interface {
	segment()
}

// Text is human-readable text produced by the model.
type Text struct {
	Content string
}

// ToolInvocation records that the model called a tool. The payload is not
// interpreted.
type ToolInvocation struct {
	Provider Provider
	Payload  json.RawMessage
}

// ToolResult records that a tool call completed and returned data to the
// model. Error results count as results.
type ToolResult struct {
	Provider Provider
	Payload  json.RawMessage
}

// Unknown is any segment that could not be classified.
type Unknown struct {
	Kind string
}

func (Text) segment()           {}
func (ToolInvocation) segment() {}
func (ToolResult) segment()     {}
func (Unknown) segment()        {}

// Sequence is an ordered reply. Order is the order of emission and is never
// changed.
type Sequence []Segment
