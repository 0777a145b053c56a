package toolcalls

import (
	"encoding/json"
	"strings"
)

// parseArgumentsValue interprets a raw "arguments" field: providers either
// send it as a nested object or, less often, as a JSON-encoded string.
func parseArgumentsValue(raw any) any {
	switch v := raw.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return map[string]any{}
		}
		return parsed
	case nil:
		return map[string]any{}
	default:
		return v
	}
}

// rawStringArgumentHint returns the raw arguments text with surrounding
// whitespace trimmed, whatever its shape. It lets shell-command
// normalization recover a command even when a model skipped the object
// wrapper entirely; normalizeShellCommandFromRaw rejects a hint that looks
// like a JSON object or array.
func rawStringArgumentHint(raw string) string {
	return strings.TrimSpace(raw)
}

// normalizeShellCommandFromRaw turns a raw string value into a shell command:
// it strips a single layer of matching quotes, rejects anything that looks
// like a JSON object/array (so callers don't mistake unparsed JSON for a
// command), and promotes a bare URL to an equivalent curl invocation.
func normalizeShellCommandFromRaw(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	unwrapped := trimmed
	if len(unwrapped) >= 2 {
		if (unwrapped[0] == '"' && unwrapped[len(unwrapped)-1] == '"') ||
			(unwrapped[0] == '\'' && unwrapped[len(unwrapped)-1] == '\'') {
			unwrapped = unwrapped[1 : len(unwrapped)-1]
		}
	}
	unwrapped = strings.TrimSpace(unwrapped)
	if unwrapped == "" {
		return "", false
	}

	if (strings.HasPrefix(unwrapped, "{") && strings.HasSuffix(unwrapped, "}")) ||
		(strings.HasPrefix(unwrapped, "[") && strings.HasSuffix(unwrapped, "]")) {
		return "", false
	}

	if strings.HasPrefix(unwrapped, "http://") || strings.HasPrefix(unwrapped, "https://") {
		if cmd, ok := buildCurlCommand(unwrapped); ok {
			return cmd, true
		}
		return unwrapped, true
	}

	return unwrapped, true
}

var shellCommandAliasKeys = []string{
	"cmd", "script", "shell_command", "command_line", "bash", "sh", "input",
}

// normalizeShellArguments fills in a "command" field for the shell tool from
// whatever shape the model actually produced: an object that already has a
// non-empty command passes through unchanged; otherwise it tries a fixed
// list of alias keys, then a url/http_url field, then the raw string hint
// that accompanied the structured arguments (if any).
func normalizeShellArguments(arguments any, rawStringHint string) any {
	switch v := arguments.(type) {
	case map[string]any:
		if cmd, ok := v["command"].(string); ok && strings.TrimSpace(cmd) != "" {
			return v
		}

		for _, alias := range shellCommandAliasKeys {
			if value, ok := v[alias].(string); ok {
				if cmd, ok := normalizeShellCommandFromRaw(value); ok {
					v["command"] = cmd
					return v
				}
			}
		}

		url, ok := v["url"].(string)
		if !ok {
			url, ok = v["http_url"].(string)
		}
		if ok {
			url = strings.TrimSpace(url)
			if url != "" {
				if cmd, ok := normalizeShellCommandFromRaw(url); ok {
					v["command"] = cmd
					return v
				}
			}
		}

		if rawStringHint != "" {
			if cmd, ok := normalizeShellCommandFromRaw(rawStringHint); ok {
				v["command"] = cmd
			}
		}
		return v

	case string:
		if cmd, ok := normalizeShellCommandFromRaw(v); ok {
			return map[string]any{"command": cmd}
		}
		return map[string]any{}

	default:
		if rawStringHint != "" {
			if cmd, ok := normalizeShellCommandFromRaw(rawStringHint); ok {
				return map[string]any{"command": cmd}
			}
		}
		return map[string]any{}
	}
}

// normalizeToolArguments applies per-tool argument normalization. Only the
// shell tool needs it today: every dialect above can produce a command
// under a different key name, and this is the single place that reconciles
// them before the tool ever sees the arguments.
func normalizeToolArguments(toolName string, arguments any, rawStringHint string) any {
	if aliasToolName(toolName) == "shell" {
		return normalizeShellArguments(arguments, rawStringHint)
	}
	return arguments
}
