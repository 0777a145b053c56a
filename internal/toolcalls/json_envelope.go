package toolcalls

import (
	"encoding/json"
	"strings"
)

// rawToolCall is the internal representation produced by every dialect
// parser before it is converted to the public ParsedCall.
type rawToolCall struct {
	Name       string
	Arguments  json.RawMessage
	ToolCallID string
}

func asString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// parseToolCallID finds a call's id following the same priority chain
// native APIs use: function.id, then root id/tool_call_id/call_id.
func parseToolCallID(root map[string]any, function map[string]any) string {
	if function != nil {
		if id, ok := asString(function, "id"); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id)
		}
	}
	for _, key := range []string{"id", "tool_call_id", "call_id"} {
		if id, ok := asString(root, key); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func marshalArgs(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// parseToolCallValue parses one tool-call object, trying the
// function-wrapped shape ({"function": {"name": ..., "arguments": ...}})
// first and falling back to the flat shape ({"name": ..., "arguments": ...}).
func parseToolCallValue(value any) (rawToolCall, bool) {
	root, ok := value.(map[string]any)
	if !ok {
		return rawToolCall{}, false
	}

	if function, ok := root["function"].(map[string]any); ok {
		name := strings.TrimSpace(stringOr(function["name"], ""))
		if name != "" {
			name = aliasToolName(name)
			rawArgs, hint := pickArguments(function)
			args := normalizeToolArguments(name, parseArgumentsValue(rawArgs), hint)
			return rawToolCall{
				Name:       name,
				Arguments:  marshalArgs(args),
				ToolCallID: parseToolCallID(root, function),
			}, true
		}
	}

	name := strings.TrimSpace(stringOr(root["name"], ""))
	if name == "" {
		return rawToolCall{}, false
	}
	name = aliasToolName(name)

	rawArgs, hint := pickArguments(root)
	args := normalizeToolArguments(name, parseArgumentsValue(rawArgs), hint)
	return rawToolCall{
		Name:       name,
		Arguments:  marshalArgs(args),
		ToolCallID: parseToolCallID(root, nil),
	}, true
}

// pickArguments reads the "arguments" field, falling back to "parameters",
// and returns both the raw value and a string hint for when it was sent as
// a bare string instead of an object.
func pickArguments(m map[string]any) (any, string) {
	raw, ok := m["arguments"]
	if !ok {
		raw, ok = m["parameters"]
	}
	if !ok {
		return nil, ""
	}
	hint := ""
	if s, ok := raw.(string); ok {
		hint = rawStringArgumentHint(s)
	}
	return raw, hint
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

// parseToolCallsFromJSONValue extracts tool calls from a decoded JSON value:
// a top-level "tool_calls" array field takes priority; failing that, the
// value itself is treated as an array of call objects, or as a single call
// object.
func parseToolCallsFromJSONValue(value any) []rawToolCall {
	var calls []rawToolCall

	if obj, ok := value.(map[string]any); ok {
		if arr, ok := obj["tool_calls"].([]any); ok {
			for _, item := range arr {
				if parsed, ok := parseToolCallValue(item); ok {
					calls = append(calls, parsed)
				}
			}
			if len(calls) > 0 {
				return calls
			}
		}
	}

	if arr, ok := value.([]any); ok {
		for _, item := range arr {
			if parsed, ok := parseToolCallValue(item); ok {
				calls = append(calls, parsed)
			}
		}
		return calls
	}

	if parsed, ok := parseToolCallValue(value); ok {
		calls = append(calls, parsed)
	}

	return calls
}

// extractJSONValues scans input for every JSON object/array it can parse.
//
// SECURITY: this extracts ANY well-formed JSON value from its input. It must
// only be called on content already known to originate from inside a tool
// call wrapper (e.g. a <tool_call> tag body) where the model has explicitly
// signaled intent to invoke a tool — never on raw untrusted text, or it
// becomes a prompt-injection vector.
func extractJSONValues(input string) []any {
	var values []any
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return values
	}

	var whole any
	if err := json.Unmarshal([]byte(trimmed), &whole); err == nil {
		return append(values, whole)
	}

	skipUntil := -1
	for i, ch := range trimmed {
		if i < skipUntil {
			continue
		}
		if ch == '{' || ch == '[' {
			if value, consumed, ok := decodeOneJSONValue(trimmed[i:]); ok && consumed > 0 {
				values = append(values, value)
				skipUntil = i + consumed
			}
		}
	}

	return values
}

// decodeOneJSONValue decodes a single JSON value from the start of s,
// returning the value and how many bytes of s it consumed.
func decodeOneJSONValue(s string) (any, int, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, 0, false
	}
	return value, int(dec.InputOffset()), true
}

// findJSONEnd finds the end of a leading JSON object in input by tracking
// balanced braces (respecting string literals and escapes), without
// requiring the input to be valid JSON past that point.
func findJSONEnd(input string) (int, bool) {
	trimmed := strings.TrimLeft(input, " \t\r\n")
	offset := len(input) - len(trimmed)

	if !strings.HasPrefix(trimmed, "{") {
		return 0, false
	}

	depth := 0
	inString := false
	escapeNext := false

	for i, ch := range trimmed {
		if escapeNext {
			escapeNext = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escapeNext = true
		case ch == '"':
			inString = !inString
		case ch == '{' && !inString:
			depth++
		case ch == '}' && !inString:
			depth--
			if depth == 0 {
				return offset + i + len(string(ch)), true
			}
		}
	}

	return 0, false
}

// extractFirstJSONValueWithEnd finds and decodes the first JSON value
// starting at a '{' or '[' anywhere in input, returning the value and the
// byte offset immediately past it.
func extractFirstJSONValueWithEnd(input string) (any, int, bool) {
	trimmed := strings.TrimLeft(input, " \t\r\n")
	trimOffset := len(input) - len(trimmed)

	for i, ch := range trimmed {
		if ch != '{' && ch != '[' {
			continue
		}
		slice := trimmed[i:]
		if value, consumed, ok := decodeOneJSONValue(slice); ok && consumed > 0 {
			return value, trimOffset + i + consumed, true
		}
	}

	return nil, 0, false
}
