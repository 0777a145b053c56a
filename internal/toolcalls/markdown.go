package toolcalls

import (
	"regexp"
	"strings"
)

var mdToolCallRe = regexp.MustCompile("(?s)```(?:tool[_-]?call|invoke)\\s*\\n(.*?)(?:```|</tool[_-]?call>|</toolcall>|</invoke>|</minimax:toolcall>)")

// parseMarkdownToolCallBlocks handles models (often behind OpenRouter) that
// wrap a tool call in a markdown fence instead of emitting it via tags or a
// structured API response: ```tool_call\n{...}\n``` or the hybrid
// ```tool_call\n{...}</tool_call>.
func parseMarkdownToolCallBlocks(response string) ([]rawToolCall, []string, bool) {
	var calls []rawToolCall
	var textParts []string
	lastEnd := 0

	matches := mdToolCallRe.FindAllStringSubmatchIndex(response, -1)
	for _, m := range matches {
		fullStart, fullEnd := m[0], m[1]
		before := strings.TrimSpace(response[lastEnd:fullStart])
		if before != "" {
			textParts = append(textParts, before)
		}
		inner := submatchAt(response, m, 1)
		for _, value := range extractJSONValues(inner) {
			calls = append(calls, parseToolCallsFromJSONValue(value)...)
		}
		lastEnd = fullEnd
	}

	if len(calls) == 0 {
		return nil, nil, false
	}

	after := strings.TrimSpace(response[lastEnd:])
	if after != "" {
		textParts = append(textParts, after)
	}
	return calls, textParts, true
}

var mdToolNameRe = regexp.MustCompile("(?s)```tool\\s+(\\w+)\\s*\\n(.*?)(?:```|$)")

// parseMarkdownToolNameBlocks handles the ```tool <name>\n{...}\n``` format
// used by some providers (e.g. xAI's Grok).
func parseMarkdownToolNameBlocks(response string) ([]rawToolCall, []string, bool) {
	var calls []rawToolCall
	var textParts []string
	lastEnd := 0

	matches := mdToolNameRe.FindAllStringSubmatchIndex(response, -1)
	for _, m := range matches {
		fullStart, fullEnd := m[0], m[1]
		before := strings.TrimSpace(response[lastEnd:fullStart])
		if before != "" {
			textParts = append(textParts, before)
		}

		toolName := submatchAt(response, m, 1)
		inner := submatchAt(response, m, 2)

		for _, value := range extractJSONValues(inner) {
			args, ok := value.(map[string]any)
			if !ok {
				args = map[string]any{}
			}
			calls = append(calls, rawToolCall{Name: toolName, Arguments: marshalArgs(args)})
		}

		lastEnd = fullEnd
	}

	if len(calls) == 0 {
		return nil, nil, false
	}

	after := strings.TrimSpace(response[lastEnd:])
	if after != "" {
		textParts = append(textParts, after)
	}
	return calls, textParts, true
}
