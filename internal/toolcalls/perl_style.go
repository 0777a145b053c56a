package toolcalls

import "regexp"

var perlBlockRe = regexp.MustCompile(`(?s)TOOL_CALL\s*\{(.+?)\}\s*/TOOL_CALL`)
var perlToolNameRe = regexp.MustCompile(`tool\s*=>\s*"([^"]+)"`)
var perlArgsBlockRe = regexp.MustCompile(`(?s)args\s*=>\s*\{(.+?)\}`)
var perlArgRe = regexp.MustCompile(`--(\w+)\s+"([^"]+)"`)

// parsePerlStyleToolCalls handles a Perl/hash-ref-flavored format some
// models emit:
//
//	TOOL_CALL
//	{tool => "shell", args => {
//	  --command "ls -la"
//	  --description "List current directory contents"
//	}}
//	/TOOL_CALL
func parsePerlStyleToolCalls(response string) []rawToolCall {
	var calls []rawToolCall

	for _, m := range perlBlockRe.FindAllStringSubmatchIndex(response, -1) {
		content := submatchAt(response, m, 1)

		nameMatch := perlToolNameRe.FindStringSubmatch(content)
		if nameMatch == nil || nameMatch[1] == "" {
			continue
		}
		toolName := nameMatch[1]

		argsBlock := ""
		if abm := perlArgsBlockRe.FindStringSubmatch(content); abm != nil {
			argsBlock = abm[1]
		}

		args := map[string]any{}
		for _, am := range perlArgRe.FindAllStringSubmatch(argsBlock, -1) {
			if am[1] != "" {
				args[am[1]] = am[2]
			}
		}

		if len(args) > 0 {
			calls = append(calls, rawToolCall{Name: aliasToolName(toolName), Arguments: marshalArgs(args)})
		}
	}

	return calls
}
