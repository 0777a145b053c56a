// Package toolcalls extracts tool-call invocations from raw LLM completion
// text. Models behind different providers and proxies emit tool calls in a
// handful of incompatible dialects — native tool_calls arrays, several
// flavors of XML tag, markdown-fenced JSON, Perl-style hash blocks, and a
// terse GLM line format — so parsing tries each dialect in priority order
// and returns whichever one actually matched.
//
// SECURITY: ParseToolCalls never falls back to extracting arbitrary JSON
// objects from response text. Doing so would let a prompt-injection payload
// embedded in a file, email, or web page that merely resembles a tool call
// get executed. A call is only recognized when it is explicitly wrapped in
// one of the supported dialects below.
package toolcalls

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/nexuscore/agent-runtime/pkg/models"
)

// ParsedCall is one tool invocation extracted from model output, normalized
// to a JSON object regardless of which dialect produced it.
type ParsedCall struct {
	Name       string
	Arguments  json.RawMessage
	ToolCallID string
}

var toolCallOpenTags = []string{
	"<tool_call>", "<toolcall>", "<tool-call>", "<invoke>",
	"<minimax:tool_call>", "<minimax:toolcall>",
}

var toolCallCloseTags = []string{
	"</tool_call>", "</toolcall>", "</tool-call>", "</invoke>",
	"</minimax:tool_call>", "</minimax:toolcall>",
}

func matchingToolCallCloseTag(openTag string) (string, bool) {
	switch openTag {
	case "<tool_call>":
		return "</tool_call>", true
	case "<toolcall>":
		return "</toolcall>", true
	case "<tool-call>":
		return "</tool-call>", true
	case "<invoke>":
		return "</invoke>", true
	case "<minimax:tool_call>":
		return "</minimax:tool_call>", true
	case "<minimax:toolcall>":
		return "</minimax:toolcall>", true
	default:
		return "", false
	}
}

func findFirstTag(haystack string, tags []string) (idx int, tag string, ok bool) {
	best := -1
	var bestTag string
	for _, t := range tags {
		i := strings.Index(haystack, t)
		if i < 0 {
			continue
		}
		if best == -1 || i < best {
			best = i
			bestTag = t
		}
	}
	if best == -1 {
		return 0, "", false
	}
	return best, bestTag, true
}

func stripLeadingCloseTags(input string) string {
	for {
		trimmed := strings.TrimLeft(input, " \t\r\n")
		if !strings.HasPrefix(trimmed, "</") {
			return trimmed
		}
		end := strings.Index(trimmed, ">")
		if end < 0 {
			return ""
		}
		input = trimmed[end+1:]
	}
}

func rawCallToParsed(raw rawToolCall) ParsedCall {
	return ParsedCall{Name: raw.Name, Arguments: raw.Arguments, ToolCallID: raw.ToolCallID}
}

// ParseToolCalls extracts tool calls from an LLM completion's raw text,
// trying each known dialect in priority order:
//
//  1. OpenAI-style JSON with a top-level tool_calls array (native API shape,
//     also used by some proxies that return it as plain text)
//  2. MiniMax-style attributed <invoke name="..">S<parameter name="..">
//  3. Tagged blocks: <tool_call>, <toolcall>, <tool-call>, <invoke> (JSON,
//     nested-tag, or GLM-shortened body)
//  4. Markdown fences: ```tool_call ...``` and ```tool <name> ...```
//  5. XML attribute-style <invoke name="...">/<parameter name="..."> without
//     a minimax wrapper
//  6. Perl/hash-ref style TOOL_CALL { tool => "...", args => { ... } } /TOOL_CALL
//  7. <FunctionCall>name<code>key>value</code></FunctionCall>
//  8. GLM terse line format: tool_name/param>value
//
// It returns the residual text (everything that was not consumed as part of
// a recognized tool call) alongside the parsed calls. issue is non-nil when
// the response looks like it was trying to emit a tool call but none of the
// dialects actually matched it — callers can surface that to the model as a
// formatting nudge.
func ParseToolCalls(response string) (residual string, calls []ParsedCall, issue error) {
	text, raw := parseToolCallsRaw(response)
	calls = make([]ParsedCall, 0, len(raw))
	for _, r := range raw {
		calls = append(calls, rawCallToParsed(r))
	}
	if iss := detectParseIssue(response, calls); iss != "" {
		issue = errors.New(iss)
	}
	return text, calls, issue
}

func parseToolCallsRaw(response string) (string, []rawToolCall) {
	var textParts []string
	var calls []rawToolCall
	remaining := response

	if trimmed := strings.TrimSpace(response); trimmed != "" {
		var value any
		if err := json.Unmarshal([]byte(trimmed), &value); err == nil {
			found := parseToolCallsFromJSONValue(value)
			if len(found) > 0 {
				calls = found
				if obj, ok := value.(map[string]any); ok {
					if content, ok := obj["content"].(string); ok && strings.TrimSpace(content) != "" {
						textParts = append(textParts, strings.TrimSpace(content))
					}
				}
				return strings.Join(textParts, "\n"), calls
			}
		}
	}

	if text, minimaxCalls, ok := parseMinimaxInvokeCalls(response); ok && len(minimaxCalls) > 0 {
		return text, minimaxCalls
	}

	for {
		start, openTag, found := findFirstTag(remaining, toolCallOpenTags)
		if !found {
			break
		}

		before := remaining[:start]
		if strings.TrimSpace(before) != "" {
			textParts = append(textParts, strings.TrimSpace(before))
		}

		closeTag, hasClose := matchingToolCallCloseTag(openTag)
		if !hasClose {
			break
		}

		afterOpen := remaining[start+len(openTag):]
		closeIdx := strings.Index(afterOpen, closeTag)
		if closeIdx >= 0 {
			inner := afterOpen[:closeIdx]
			parsed, ok := parseTagBody(inner)
			if ok {
				calls = append(calls, parsed...)
			}
			remaining = afterOpen[closeIdx+len(closeTag):]
			continue
		}

		// No matching close tag. Models sometimes mix open/close aliases
		// (e.g. <tool_call>...</invoke>) — try a cross-alias close first.
		if crossIdx, crossTag, ok := findFirstTag(afterOpen, toolCallCloseTags); ok {
			inner := afterOpen[:crossIdx]
			if parsed, matched := parseTagBody(inner); matched {
				calls = append(calls, parsed...)
				remaining = afterOpen[crossIdx+len(crossTag):]
				continue
			}
		}

		// Fall back to brace-balanced JSON recovery from the unclosed tag.
		if end, ok := findJSONEnd(afterOpen); ok {
			var value any
			if err := json.Unmarshal([]byte(afterOpen[:end]), &value); err == nil {
				if parsed := parseToolCallsFromJSONValue(value); len(parsed) > 0 {
					calls = append(calls, parsed...)
					remaining = stripLeadingCloseTags(afterOpen[end:])
					continue
				}
			}
		}

		if value, end, ok := extractFirstJSONValueWithEnd(afterOpen); ok {
			if parsed := parseToolCallsFromJSONValue(value); len(parsed) > 0 {
				calls = append(calls, parsed...)
				remaining = stripLeadingCloseTags(afterOpen[end:])
				continue
			}
		}

		// Last resort: the open tag may have no close tag at all, with a
		// GLM-shortened body directly inside it.
		if call, ok := parseGLMShortenedBody(strings.TrimSpace(afterOpen)); ok {
			calls = append(calls, call)
			remaining = ""
			continue
		}

		remaining = remaining[start:]
		break
	}

	if len(calls) == 0 {
		if md, text, ok := parseMarkdownToolCallBlocks(response); ok {
			calls = md
			textParts = text
			remaining = ""
		}
	}

	if len(calls) == 0 {
		if md, text, ok := parseMarkdownToolNameBlocks(response); ok {
			calls = md
			textParts = text
			remaining = ""
		}
	}

	if len(calls) == 0 {
		if xmlCalls := parseXMLAttributeToolCalls(remaining); len(xmlCalls) > 0 {
			cleaned := remaining
			for _, call := range xmlCalls {
				calls = append(calls, call)
			}
			if start := strings.Index(cleaned, "<minimax:toolcall>"); start >= 0 {
				if end := strings.Index(cleaned, "</minimax:toolcall>"); end >= 0 {
					endPos := end + len("</minimax:toolcall>")
					if endPos <= len(cleaned) {
						cleaned = cleaned[:start] + cleaned[endPos:]
					}
				}
			}
			if strings.TrimSpace(cleaned) != "" {
				textParts = append(textParts, strings.TrimSpace(cleaned))
			}
			remaining = ""
		}
	}

	if len(calls) == 0 {
		if perlCalls := parsePerlStyleToolCalls(remaining); len(perlCalls) > 0 {
			cleaned := remaining
			calls = append(calls, perlCalls...)
			for {
				start := strings.Index(cleaned, "TOOL_CALL")
				if start < 0 {
					break
				}
				end := strings.Index(cleaned, "/TOOL_CALL")
				if end < 0 {
					break
				}
				endPos := end + len("/TOOL_CALL")
				if endPos > len(cleaned) {
					break
				}
				cleaned = cleaned[:start] + cleaned[endPos:]
			}
			if strings.TrimSpace(cleaned) != "" {
				textParts = append(textParts, strings.TrimSpace(cleaned))
			}
			remaining = ""
		}
	}

	if len(calls) == 0 {
		if funcCalls := parseFunctionCallToolCalls(remaining); len(funcCalls) > 0 {
			cleaned := remaining
			calls = append(calls, funcCalls...)
			for {
				start := strings.Index(cleaned, "<FunctionCall>")
				if start < 0 {
					break
				}
				end := strings.Index(cleaned, "</FunctionCall>")
				if end < 0 {
					break
				}
				endPos := end + len("</FunctionCall>")
				if endPos > len(cleaned) {
					break
				}
				cleaned = cleaned[:start] + cleaned[endPos:]
			}
			if strings.TrimSpace(cleaned) != "" {
				textParts = append(textParts, strings.TrimSpace(cleaned))
			}
			remaining = ""
		}
	}

	if len(calls) == 0 {
		if glmCalls := parseGLMStyleToolCalls(remaining); len(glmCalls) > 0 {
			cleaned := remaining
			for _, gc := range glmCalls {
				calls = append(calls, rawToolCall{Name: gc.name, Arguments: gc.arguments})
				if gc.raw != "" {
					cleaned = strings.ReplaceAll(cleaned, gc.raw, "")
				}
			}
			if strings.TrimSpace(cleaned) != "" {
				textParts = append(textParts, strings.TrimSpace(cleaned))
			}
			remaining = ""
		}
	}

	if strings.TrimSpace(remaining) != "" {
		textParts = append(textParts, strings.TrimSpace(remaining))
	}

	return strings.Join(textParts, "\n"), calls
}

// parseTagBody parses the body of a <tool_call>-family tag, trying JSON
// first, then nested XML tags, then a GLM-shortened single line.
func parseTagBody(inner string) ([]rawToolCall, bool) {
	var calls []rawToolCall

	for _, value := range extractJSONValues(inner) {
		if parsed := parseToolCallsFromJSONValue(value); len(parsed) > 0 {
			calls = append(calls, parsed...)
		}
	}
	if len(calls) > 0 {
		return calls, true
	}

	if xmlCalls, ok := parseXMLToolCalls(inner); ok {
		return xmlCalls, true
	}

	if call, ok := parseGLMShortenedBody(inner); ok {
		return []rawToolCall{call}, true
	}

	return nil, false
}

// detectParseIssue reports a human-readable note when response looks like it
// was attempting to emit a tool call (contains a recognizable marker) but no
// dialect actually parsed one out of it.
func detectParseIssue(response string, parsed []ParsedCall) string {
	if len(parsed) > 0 {
		return ""
	}
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return ""
	}

	markers := []string{
		"<tool_call", "<toolcall", "<tool-call",
		"```tool_call", "```toolcall", "```tool-call",
		"```tool file_", "```tool shell", "```tool web_", "```tool memory_", "```tool ",
		"\"tool_calls\"", "TOOL_CALL", "<FunctionCall>",
	}
	for _, m := range markers {
		if strings.Contains(trimmed, m) {
			return "response resembled a tool-call payload but no valid tool call could be parsed"
		}
	}
	return ""
}

// ParseStructuredToolCalls converts native tool_calls returned by a
// provider's structured API (already ID'd and name'd) into ParsedCall,
// applying the same argument normalization as the text-based dialects.
func ParseStructuredToolCalls(calls []models.ToolCall) []ParsedCall {
	out := make([]ParsedCall, 0, len(calls))
	for _, c := range calls {
		var value any
		if len(c.Input) > 0 {
			if err := json.Unmarshal(c.Input, &value); err != nil {
				value = map[string]any{}
			}
		} else {
			value = map[string]any{}
		}
		args := normalizeToolArguments(c.Name, value, rawStringArgumentHint(string(c.Input)))
		raw, err := json.Marshal(args)
		if err != nil {
			raw = json.RawMessage("{}")
		}
		out = append(out, ParsedCall{Name: c.Name, Arguments: raw, ToolCallID: c.ID})
	}
	return out
}
