package toolcalls

import "strings"

// aliasToolName maps the many names different providers use for the same
// tool onto the names this runtime actually registers. "bash", "browser",
// and "web_search" all end up invoking the shell tool, for instance.
func aliasToolName(name string) string {
	switch name {
	case "shell", "bash", "sh", "exec", "command", "cmd", "browser_open", "browser", "web_search":
		return "shell"
	case "send_message", "sendmessage":
		return "message_send"
	case "fileread", "file_read", "readfile", "read_file", "file":
		return "file_read"
	case "filewrite", "file_write", "writefile", "write_file":
		return "file_write"
	case "filelist", "file_list", "listfiles", "list_files":
		return "file_list"
	case "memoryrecall", "memory_recall", "recall", "memrecall":
		return "memory_recall"
	case "memorystore", "memory_store", "store", "memstore":
		return "memory_store"
	case "memoryforget", "memory_forget", "forget", "memforget":
		return "memory_forget"
	case "http_request", "http", "fetch", "curl", "wget":
		return "http_request"
	default:
		return name
	}
}

// defaultParamForTool returns the parameter name a shortened single-value
// call (e.g. "shell>uname -a") should populate for the given tool.
func defaultParamForTool(tool string) string {
	switch tool {
	case "shell", "bash", "sh", "exec", "command", "cmd":
		return "command"
	case "file_read", "fileread", "readfile", "read_file", "file",
		"file_write", "filewrite", "writefile", "write_file",
		"file_edit", "fileedit", "editfile", "edit_file",
		"file_list", "filelist", "listfiles", "list_files":
		return "path"
	case "memory_recall", "memoryrecall", "recall", "memrecall",
		"memory_forget", "memoryforget", "forget", "memforget":
		return "query"
	case "memory_store", "memorystore", "store", "memstore":
		return "content"
	case "http_request", "http", "fetch", "curl", "wget", "browser_open", "browser", "web_search":
		return "url"
	default:
		return "input"
	}
}

// buildCurlCommand turns a bare URL into a shell command, for dialects that
// emit a URL where a command was expected. It refuses anything that isn't a
// clean, whitespace-free http(s) URL.
func buildCurlCommand(url string) (string, bool) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", false
	}
	if strings.ContainsFunc(url, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
		return "", false
	}
	escaped := strings.ReplaceAll(url, "'", `'\\''`)
	return "curl -s '" + escaped + "'", true
}
