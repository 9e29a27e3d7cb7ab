package providers

import "strings"

const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
)

// SplitReasoning separates a model response into the visible answer and its
// reasoning trace. Every <thinking> block is collected into reasoning; the
// remainder is the answer. An unterminated block consumes the rest of the
// response as reasoning.
func SplitReasoning(raw string) (answer, reasoning string) {
	var answerParts, reasoningParts []string
	rest := raw
	for {
		open := strings.Index(rest, thinkingOpen)
		if open < 0 {
			answerParts = append(answerParts, rest)
			break
		}
		answerParts = append(answerParts, rest[:open])
		rest = rest[open+len(thinkingOpen):]

		end := strings.Index(rest, thinkingClose)
		if end < 0 {
			reasoningParts = append(reasoningParts, strings.TrimSpace(rest))
			break
		}
		if block := strings.TrimSpace(rest[:end]); block != "" {
			reasoningParts = append(reasoningParts, block)
		}
		rest = rest[end+len(thinkingClose):]
	}
	return strings.TrimSpace(strings.Join(answerParts, "")), strings.Join(reasoningParts, "\n")
}
