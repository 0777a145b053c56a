package toolcalls

import (
	"regexp"
	"strings"
)

var minimaxInvokeRe = regexp.MustCompile(`(?is)<invoke\b[^>]*\bname\s*=\s*(?:"([^"]+)"|'([^']+)')[^>]*>(.*?)</invoke>`)
var minimaxParameterRe = regexp.MustCompile(`(?is)<parameter\b[^>]*\bname\s*=\s*(?:"([^"]+)"|'([^']+)')[^>]*>(.*?)</parameter>`)

// parseMinimaxInvokeCalls parses MiniMax-style XML tool calls with
// attributed invoke/parameter tags, tolerating single or double quotes and
// extra attributes on either tag:
//
//	<invoke name="shell"><parameter name="command">ls</parameter></invoke>
//
// It returns the surrounding text with every matched invoke block (and any
// minimax:tool_call wrapper tags) removed, alongside the parsed calls.
func parseMinimaxInvokeCalls(response string) (string, []rawToolCall, bool) {
	var calls []rawToolCall
	var textParts []string
	lastEnd := 0

	matches := minimaxInvokeRe.FindAllStringSubmatchIndex(response, -1)
	for _, m := range matches {
		fullStart, fullEnd := m[0], m[1]

		before := strings.TrimSpace(response[lastEnd:fullStart])
		if before != "" {
			textParts = append(textParts, before)
		}

		name := submatchAt(response, m, 1)
		if name == "" {
			name = submatchAt(response, m, 2)
		}
		name = strings.TrimSpace(name)
		body := strings.TrimSpace(submatchAt(response, m, 3))
		lastEnd = fullEnd

		if name == "" {
			continue
		}
		name = aliasToolName(name)

		args := map[string]any{}
		for _, pm := range minimaxParameterRe.FindAllStringSubmatchIndex(body, -1) {
			key := submatchAt(body, pm, 1)
			if key == "" {
				key = submatchAt(body, pm, 2)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			value := strings.TrimSpace(submatchAt(body, pm, 3))
			if value == "" {
				continue
			}
			if parsed := extractJSONValues(value); len(parsed) > 0 {
				args[key] = parsed[0]
			} else {
				args[key] = value
			}
		}

		if len(args) == 0 {
			if parsed := extractJSONValues(body); len(parsed) > 0 {
				switch v := parsed[0].(type) {
				case map[string]any:
					args = v
				default:
					args = map[string]any{"value": v}
				}
			} else if body != "" {
				args["content"] = body
			}
		}

		calls = append(calls, rawToolCall{Name: name, Arguments: marshalArgs(args)})
	}

	if len(calls) == 0 {
		return "", nil, false
	}

	after := strings.TrimSpace(response[lastEnd:])
	if after != "" {
		textParts = append(textParts, after)
	}

	text := strings.Join(textParts, "\n")
	for _, marker := range []string{
		"<minimax:tool_call>", "</minimax:tool_call>",
		"<minimax:toolcall>", "</minimax:toolcall>",
	} {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = strings.TrimSpace(text)

	return text, calls, true
}

var xmlAttrInvokeRe = regexp.MustCompile(`(?s)<invoke\s+name="([^"]+)"[^>]*>(.*?)</invoke>`)
var xmlAttrParamRe = regexp.MustCompile(`<parameter\s+name="([^"]+)"[^>]*>([^<]*)</parameter>`)

// parseXMLAttributeToolCalls parses attribute-style tool calls that aren't
// wrapped in a minimax:toolcall envelope:
//
//	<invoke name="shell">
//	<parameter name="command">ls</parameter>
//	</invoke>
func parseXMLAttributeToolCalls(response string) []rawToolCall {
	var calls []rawToolCall

	for _, m := range xmlAttrInvokeRe.FindAllStringSubmatchIndex(response, -1) {
		toolName := submatchAt(response, m, 1)
		inner := submatchAt(response, m, 2)
		if toolName == "" {
			continue
		}

		args := map[string]any{}
		for _, pm := range xmlAttrParamRe.FindAllStringSubmatchIndex(inner, -1) {
			paramName := submatchAt(inner, pm, 1)
			paramValue := submatchAt(inner, pm, 2)
			if paramName != "" {
				args[paramName] = paramValue
			}
		}

		if len(args) > 0 {
			calls = append(calls, rawToolCall{Name: aliasToolName(toolName), Arguments: marshalArgs(args)})
		}
	}

	return calls
}

// submatchAt returns submatch group g (1-indexed) from a FindAllSubmatchIndex
// result, or "" if that group did not participate in the match.
func submatchAt(s string, m []int, g int) string {
	lo, hi := m[2*g], m[2*g+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return s[lo:hi]
}
