// Package answer selects the final answer from the ordered content returned
// by a single model call that may have used server tools.
//
// A reply interleaves narrated text, tool invocations and tool results. Only
// the text emitted after the last tool result is the answer:
//
//	seq := answer.FromMessage(resp.Message)
//	text := answer.ExtractFinalText(seq)
//
// Segments form a closed set (Text, ToolInvocation, ToolResult, Unknown).
// Unknown segments never move the cutoff and are never emitted.
package answer
