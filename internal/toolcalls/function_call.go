package toolcalls

import (
	"regexp"
	"strings"
)

var functionCallRe = regexp.MustCompile(`(?s)<FunctionCall>\s*(\w+)\s*<code>([^<]+)</code>\s*</FunctionCall>`)

// parseFunctionCallToolCalls handles a format seen from some coding-agent
// proxies:
//
//	<FunctionCall>
//	file_read
//	<code>path>/Users/kylelampa/Documents/zeroclaw/README.md</code>
//	</FunctionCall>
//
// Arguments are "key>value" lines inside the <code> body.
func parseFunctionCallToolCalls(response string) []rawToolCall {
	var calls []rawToolCall

	for _, m := range functionCallRe.FindAllStringSubmatchIndex(response, -1) {
		toolName := submatchAt(response, m, 1)
		argsText := submatchAt(response, m, 2)
		if toolName == "" {
			continue
		}

		args := map[string]any{}
		for _, line := range strings.Split(argsText, "\n") {
			line = strings.TrimSpace(line)
			pos := strings.Index(line, ">")
			if pos < 0 {
				continue
			}
			key := strings.TrimSpace(line[:pos])
			value := strings.TrimSpace(line[pos+1:])
			if key != "" && value != "" {
				args[key] = value
			}
		}

		if len(args) > 0 {
			calls = append(calls, rawToolCall{Name: aliasToolName(toolName), Arguments: marshalArgs(args)})
		}
	}

	return calls
}
