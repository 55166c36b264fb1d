package answer

import "strings"

// LastToolResult returns the index of the last ToolResult in s, or -1.
func (s Sequence) LastToolResult() int {
	for i := len(s) - 1; i >= 0; i-- {
		switch r := s[i].(type) {
		case ToolResult:
			return i
		case *ToolResult:
			if r != nil {
				return i
			}
		}
	}
	return -1
}

// ExtractFinalText joins, with a newline, the content of every Text segment
// after the last ToolResult. It returns "" when there is none.
func ExtractFinalText(s Sequence) string {
	var parts []string
	for _, seg := range s[s.LastToolResult()+1:] {
		switch t := seg.(type) {
		case Text:
			parts = append(parts, t.Content)
		case *Text:
			if t != nil {
				parts = append(parts, t.Content)
			}
		}
	}
	return strings.Join(parts, "\n")
}
