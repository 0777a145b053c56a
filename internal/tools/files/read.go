package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nexuscore/agent-runtime/internal/agent"
	"github.com/nexuscore/agent-runtime/internal/tools/security"
)

// maxFileReadBytes bounds how large a file file_read will load into memory.
const maxFileReadBytes = 10 * 1024 * 1024

// ReadTool implements file_read: line-numbered file reads sandboxed to a
// workspace root, with partial reads via 1-based offset/limit and a
// lossy-UTF-8 fallback for non-UTF-8 files. PDF text is not extracted:
// PDFs take the lossy-UTF-8 path like any other binary file.
type ReadTool struct {
	security *security.SecurityPolicy
}

// NewReadTool creates a file_read tool backed by the given shared policy.
func NewReadTool(policy *security.SecurityPolicy) *ReadTool {
	return &ReadTool{security: policy}
}

func (t *ReadTool) Name() string { return "file_read" }

func (t *ReadTool) Description() string {
	return "Read file contents with line numbers. Supports partial reading via offset and limit. Binary files, PDF included, are read with lossy UTF-8 conversion."
}

func (t *ReadTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file. Relative paths resolve from workspace; outside paths require policy allowlist.",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "Starting line number (1-based, default: 1)",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of lines to return (default: all)",
			},
		},
		"required": []string{"path"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Path   string `json:"path"`
		Offset *int64 `json:"offset"`
		Limit  *int64 `json:"limit"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if strings.TrimSpace(input.Path) == "" {
		return nil, fmt.Errorf("missing 'path' parameter")
	}
	path := input.Path

	if t.security.IsRateLimited() {
		return errResult("Rate limit exceeded: too many actions in the last hour"), nil
	}

	if !t.security.IsPathAllowed(path) {
		return errResult(fmt.Sprintf("Path not allowed by security policy: %s", path)), nil
	}

	// Record the action before canonicalization so every non-trivially
	// rejected request still consumes budget; otherwise an attacker can
	// probe path existence via canonicalize errors for free.
	if !t.security.RecordAction() {
		return errResult("Rate limit exceeded: action budget exhausted"), nil
	}

	fullPath := input.Path
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(t.security.WorkspaceDir, fullPath)
	}

	resolved, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return errResult(fmt.Sprintf("Failed to resolve file path: %v", err)), nil
	}

	if !t.security.IsResolvedPathAllowed(resolved) {
		return errResult(t.security.ResolvedPathViolationMessage(resolved)), nil
	}

	// Check size after canonicalization to avoid a TOCTOU symlink bypass.
	info, err := os.Stat(resolved)
	if err != nil {
		return errResult(fmt.Sprintf("Failed to read file metadata: %v", err)), nil
	}
	if info.Size() > maxFileReadBytes {
		return errResult(fmt.Sprintf("File too large: %d bytes (limit: %d bytes)", info.Size(), int64(maxFileReadBytes))), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if utf8.Valid(data) {
		return &agent.ToolResult{Content: renderLines(string(data), input.Offset, input.Limit)}, nil
	}

	if text, ok := tryExtractPDFText(data); ok {
		return &agent.ToolResult{Content: text}, nil
	}

	return &agent.ToolResult{Content: strings.ToValidUTF8(string(data), "�")}, nil
}

func renderLines(content string, offset1based, limit *int64) string {
	if content == "" {
		return ""
	}
	lines := splitLines(content)
	total := len(lines)
	if total == 0 {
		return ""
	}

	start := int64(0)
	if offset1based != nil {
		o := *offset1based
		if o < 1 {
			o = 1
		}
		start = o - 1
	}
	if start > int64(total) {
		start = int64(total)
	}

	end := int64(total)
	if limit != nil {
		l := *limit
		if l < 0 {
			l = 0
		}
		end = start + l
		if end > int64(total) {
			end = int64(total)
		}
	}

	if start >= end {
		return fmt.Sprintf("[No lines in range, file has %d lines]", total)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d: %s", i+1, lines[i])
	}

	if start > 0 || end < int64(total) {
		fmt.Fprintf(&b, "\n[Lines %d-%d of %d]", start+1, end, total)
	} else {
		fmt.Fprintf(&b, "\n[%d lines total]", total)
	}
	return b.String()
}

// splitLines mirrors Rust's str::lines(): split on '\n', stripping a
// trailing '\r' from each line, with no line produced for a trailing
// newline at end of input.
func splitLines(content string) []string {
	parts := strings.Split(content, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// tryExtractPDFText would extract text from a PDF payload. None of this
// module's example dependencies (gofpdf only generates PDFs) ship a PDF
// text-extraction codec, so this always reports no match and callers fall
// through to the lossy-UTF-8 path.
func tryExtractPDFText(data []byte) (string, bool) {
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return "", false
	}
	return "", false
}

func errResult(msg string) *agent.ToolResult {
	return &agent.ToolResult{Content: msg, IsError: true}
}

// Config configures the workspace-scoped write, edit and apply_patch tools.
// Only Workspace is read; MaxReadBytes is not consulted by any tool here.
type Config struct {
	Workspace    string
	MaxReadBytes int64
}

func toolError(msg string) *agent.ToolResult {
	return errResult(msg)
}
