package toolcalls

import (
	"encoding/json"
	"strings"
)

// glmCall is one call recovered from the GLM line-based dialect, paired
// with the raw source line so callers can strip it out of the surrounding
// text.
type glmCall struct {
	name      string
	arguments json.RawMessage
	raw       string
}

// parseGLMStyleToolCalls scans response line by line for GLM's terse
// "tool_name/param>value" format (and bare URLs, which it promotes to a
// shell curl command), e.g.:
//
//	shell/command>ls -la
//	browser_open/url>https://example.com
//	http_request/{"url": "https://example.com"}
func parseGLMStyleToolCalls(text string) []glmCall {
	var calls []glmCall

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if pos := strings.Index(trimmed, "/"); pos >= 0 {
			toolPart := trimmed[:pos]
			rest := trimmed[pos+1:]

			if isAlnumUnderscore(toolPart) {
				toolName := aliasToolName(toolPart)

				if gtPos := strings.Index(rest, ">"); gtPos >= 0 {
					paramName := strings.TrimSpace(rest[:gtPos])
					value := strings.TrimSpace(rest[gtPos+1:])

					var args map[string]any
					switch toolName {
					case "shell":
						switch {
						case paramName == "url":
							cmd, ok := buildCurlCommand(value)
							if !ok {
								continue
							}
							args = map[string]any{"command": cmd}
						case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
							if cmd, ok := buildCurlCommand(value); ok {
								args = map[string]any{"command": cmd}
							} else {
								args = map[string]any{"command": value}
							}
						default:
							args = map[string]any{"command": value}
						}
					case "http_request":
						args = map[string]any{"url": value, "method": "GET"}
					default:
						args = map[string]any{paramName: value}
					}

					calls = append(calls, glmCall{name: toolName, arguments: marshalArgs(args), raw: trimmed})
					continue
				}

				if strings.HasPrefix(rest, "{") {
					if values := extractJSONValues(rest); len(values) > 0 {
						calls = append(calls, glmCall{name: toolName, arguments: marshalArgs(values[0]), raw: trimmed})
					}
				}
			}
		}

		if cmd, ok := buildCurlCommand(trimmed); ok {
			calls = append(calls, glmCall{
				name:      "shell",
				arguments: marshalArgs(map[string]any{"command": cmd}),
				raw:       trimmed,
			})
		}
	}

	return calls
}

func isAlnumUnderscore(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

// parseGLMShortenedBody parses a GLM-4-family shortened tool-call body found
// inside a <tool_call>-family tag. Three sub-formats are recognized:
//
//  1. Function style: "tool_name(key=\"value\", ...)"
//  2. Attribute style: "tool_name key=\"value\" [/]>"
//  3. Shortened: "tool_name>value" with either a single value (mapped via
//     defaultParamForTool), a YAML-like "key: value" line per row, or a
//     single value used directly.
func parseGLMShortenedBody(body string) (rawToolCall, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return rawToolCall{}, false
	}

	var toolRaw, valuePart string
	matchedFunctionStyle := false

	if open := strings.Index(body, "("); open > 0 && strings.HasSuffix(body, ")") {
		toolRaw = strings.TrimSpace(body[:open])
		valuePart = strings.TrimSpace(body[open+1 : len(body)-1])
		matchedFunctionStyle = true
	}

	if !matchedFunctionStyle && strings.Contains(body, `="`) {
		splitPos := strings.IndexFunc(body, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
		if splitPos < 0 {
			splitPos = len(body)
		}
		toolRaw = strings.TrimSpace(body[:splitPos])
		attrs := strings.TrimSpace(body[splitPos:])
		attrs = strings.TrimSuffix(attrs, "/>")
		attrs = strings.TrimSuffix(attrs, ">")
		attrs = strings.TrimSuffix(attrs, "/")
		valuePart = strings.TrimSpace(attrs)
	} else if !matchedFunctionStyle {
		gtPos := strings.Index(body, ">")
		if gtPos < 0 {
			return rawToolCall{}, false
		}
		toolRaw = strings.TrimSpace(body[:gtPos])
		value := strings.TrimSpace(body[gtPos+1:])
		value = strings.TrimSuffix(value, "/>")
		value = strings.TrimSuffix(value, "/")
		valuePart = strings.TrimSpace(value)
	}

	toolRaw = strings.TrimRight(toolRaw, " \t\r\n")
	if toolRaw == "" || !isAlnumUnderscore(toolRaw) {
		return rawToolCall{}, false
	}

	toolName := aliasToolName(toolRaw)

	if strings.Contains(valuePart, `="`) {
		if args, ok := parseAttributeStyleArgs(valuePart); ok {
			return rawToolCall{Name: toolName, Arguments: marshalArgs(args)}, true
		}
	}

	if strings.Contains(valuePart, "\n") {
		args := map[string]any{}
		for _, line := range strings.Split(valuePart, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			colonPos := strings.Index(line, ":")
			if colonPos < 0 {
				continue
			}
			key := strings.TrimSpace(line[:colonPos])
			value := strings.TrimSpace(line[colonPos+1:])
			if key == "" || value == "" {
				continue
			}
			switch value {
			case "true", "yes":
				args[key] = true
			case "false", "no":
				args[key] = false
			default:
				args[key] = value
			}
		}
		if len(args) > 0 {
			return rawToolCall{Name: toolName, Arguments: marshalArgs(args)}, true
		}
	}

	if valuePart != "" {
		param := defaultParamForTool(toolRaw)
		var args map[string]any
		switch toolName {
		case "shell":
			if strings.HasPrefix(valuePart, "http://") || strings.HasPrefix(valuePart, "https://") {
				if cmd, ok := buildCurlCommand(valuePart); ok {
					args = map[string]any{"command": cmd}
				} else {
					args = map[string]any{"command": valuePart}
				}
			} else {
				args = map[string]any{"command": valuePart}
			}
		case "http_request":
			args = map[string]any{"url": valuePart, "method": "GET"}
		default:
			args = map[string]any{param: valuePart}
		}
		return rawToolCall{Name: toolName, Arguments: marshalArgs(args)}, true
	}

	return rawToolCall{}, false
}

// parseAttributeStyleArgs parses a sequence of key="value" pairs, tolerating
// arbitrary separators between them (commas, semicolons, whitespace).
func parseAttributeStyleArgs(value string) (map[string]any, bool) {
	args := map[string]any{}
	rest := value

	for {
		eqPos := strings.Index(rest, `="`)
		if eqPos < 0 {
			break
		}
		keyStart := strings.LastIndexFunc(rest[:eqPos], func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
		if keyStart < 0 {
			keyStart = 0
		} else {
			keyStart++
		}
		key := strings.Trim(strings.TrimSpace(rest[keyStart:eqPos]), ",;")

		afterQuote := rest[eqPos+2:]
		endQuote := strings.Index(afterQuote, `"`)
		if endQuote < 0 {
			break
		}
		value := afterQuote[:endQuote]
		if key != "" {
			args[key] = value
		}
		rest = afterQuote[endQuote+1:]
	}

	return args, len(args) > 0
}
