package toolcalls

import (
	"regexp"
	"strings"
)

var xmlOpenTagRe = regexp.MustCompile(`<([a-zA-Z_][a-zA-Z0-9_-]*)>`)

func isXMLMetaTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "tool_call", "toolcall", "tool-call", "invoke",
		"thinking", "thought", "analysis", "reasoning", "reflection":
		return true
	default:
		return false
	}
}

// xmlPair is one matched <tag>...</tag> span.
type xmlPair struct {
	tag   string
	inner string
}

// extractXMLPairs extracts all <tag>...</tag> pairs from input, matching
// closing tags by name without regex backreferences.
func extractXMLPairs(input string) []xmlPair {
	var results []xmlPair
	searchStart := 0

	for searchStart < len(input) {
		loc := xmlOpenTagRe.FindStringSubmatchIndex(input[searchStart:])
		if loc == nil {
			break
		}
		openEnd := searchStart + loc[1]
		tagName := input[searchStart+loc[2] : searchStart+loc[3]]

		closingTag := "</" + tagName + ">"
		closePos := strings.Index(input[openEnd:], closingTag)
		if closePos < 0 {
			searchStart = openEnd
			continue
		}

		inner := strings.TrimSpace(input[openEnd : openEnd+closePos])
		results = append(results, xmlPair{tag: tagName, inner: inner})
		searchStart = openEnd + closePos + len(closingTag)
	}

	return results
}

// parseXMLToolCalls parses <tool_call>/<invoke>-family bodies whose content
// is itself a sequence of <tag>...</tag> pairs — one tag per tool call, each
// containing either a JSON argument payload or nested argument tags:
//
//	<memory_recall><query>...</query></memory_recall>
//	<shell>{"command":"pwd"}</shell>
func parseXMLToolCalls(xmlContent string) ([]rawToolCall, bool) {
	var calls []rawToolCall
	trimmed := strings.TrimSpace(xmlContent)

	if !strings.HasPrefix(trimmed, "<") || !strings.Contains(trimmed, ">") {
		return nil, false
	}

	for _, pair := range extractXMLPairs(trimmed) {
		if isXMLMetaTag(pair.tag) || pair.inner == "" {
			continue
		}

		args := map[string]any{}

		if values := extractJSONValues(pair.inner); len(values) > 0 {
			switch v := values[0].(type) {
			case map[string]any:
				args = v
			default:
				args = map[string]any{"value": v}
			}
		} else {
			for _, inner := range extractXMLPairs(pair.inner) {
				if isXMLMetaTag(inner.tag) || inner.inner == "" {
					continue
				}
				args[inner.tag] = inner.inner
			}
			if len(args) == 0 {
				args["content"] = pair.inner
			}
		}

		calls = append(calls, rawToolCall{Name: pair.tag, Arguments: marshalArgs(args)})
	}

	return calls, len(calls) > 0
}
