package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nexuscore/agent-runtime/internal/tools/security"
)

func newTestReadTool(t *testing.T, workspace string) *ReadTool {
	t.Helper()
	return NewReadTool(security.NewSecurityPolicy(workspace))
}

func readParams(t *testing.T, m map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return raw
}

func TestFileReadName(t *testing.T) {
	tool := newTestReadTool(t, t.TempDir())
	if tool.Name() != "file_read" {
		t.Errorf("name = %q, want file_read", tool.Name())
	}
}

func TestFileReadSchemaHasPath(t *testing.T) {
	tool := newTestReadTool(t, t.TempDir())
	var schema map[string]any
	if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
		t.Fatalf("schema not valid JSON: %v", err)
	}
	props, _ := schema["properties"].(map[string]any)
	for _, key := range []string{"path", "offset", "limit"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "path" {
		t.Errorf("required = %v, want only [path]", required)
	}
}

func TestFileReadExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "test.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "1: hello world") || !strings.Contains(result.Content, "[1 lines total]") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestFileReadNonexistentFile(t *testing.T) {
	dir := t.TempDir()
	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "nope.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "Failed to resolve") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadBlocksPathTraversal(t *testing.T) {
	dir := t.TempDir()
	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "../../../etc/passwd"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "not allowed") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadBlocksAbsolutePath(t *testing.T) {
	tool := newTestReadTool(t, t.TempDir())
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "/etc/passwd"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "not allowed") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadBlocksNullByteInPath(t *testing.T) {
	tool := newTestReadTool(t, t.TempDir())
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "test\x00evil.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "not allowed") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadBlocksWhenRateLimited(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	policy := security.NewSecurityPolicy(dir)
	policy.MaxActionsPerHour = 0
	tool := NewReadTool(policy)

	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "test.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "Rate limit exceeded") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadNonexistentConsumesRateLimitBudget(t *testing.T) {
	dir := t.TempDir()
	policy := security.NewSecurityPolicy(dir)
	policy.MaxActionsPerHour = 2
	tool := NewReadTool(policy)

	for i, name := range []string{"nope1.txt", "nope2.txt"} {
		result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": name}))
		if err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
		if !result.IsError || !strings.Contains(result.Content, "Failed to resolve") {
			t.Fatalf("attempt %d result = %+v", i, result)
		}
	}

	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "nope3.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "Rate limit") {
		t.Errorf("expected rate limit error, got %+v", result)
	}
}

func TestFileReadWithOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lines.txt"), []byte("aaa\nbbb\nccc\nddd\neee"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := newTestReadTool(t, dir)

	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "lines.txt", "offset": 2, "limit": 2}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Content, "2: bbb") || !strings.Contains(result.Content, "3: ccc") {
		t.Errorf("content = %q", result.Content)
	}
	if strings.Contains(result.Content, "1: aaa") || strings.Contains(result.Content, "4: ddd") {
		t.Errorf("content leaked lines outside range: %q", result.Content)
	}
	if !strings.Contains(result.Content, "[Lines 2-3 of 5]") {
		t.Errorf("content = %q", result.Content)
	}

	result, err = tool.Execute(context.Background(), readParams(t, map[string]any{"path": "lines.txt", "offset": 4}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Content, "[Lines 4-5 of 5]") {
		t.Errorf("content = %q", result.Content)
	}

	result, err = tool.Execute(context.Background(), readParams(t, map[string]any{"path": "lines.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Content, "[5 lines total]") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestFileReadOffsetBeyondEnd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "short.txt"), []byte("one\ntwo"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "short.txt", "offset": 100}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Content, "[No lines in range, file has 2 lines]") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestFileReadRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", maxFileReadBytes+1)
	if err := os.WriteFile(filepath.Join(dir, "huge.bin"), []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "huge.bin"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "File too large") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadLossyReadsBinaryFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte{0x00, 0x80, 0xFF, 0xFE, 'h', 'i', 0x80}
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "data.bin"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hi") {
		t.Errorf("lossy output must preserve ascii, got %q", result.Content)
	}
	if !strings.ContainsRune(result.Content, '�') {
		t.Errorf("lossy output must contain replacement char, got %q", result.Content)
	}
}

func TestFileReadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	tool := newTestReadTool(t, dir)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "empty.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError || result.Content != "" {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadBlocksSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not exercised on windows")
	}
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	outside := filepath.Join(root, "outside")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("outside workspace"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(workspace, "escape.txt")); err != nil {
		t.Fatal(err)
	}

	tool := newTestReadTool(t, workspace)
	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": "escape.txt"}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "escapes workspace") {
		t.Errorf("result = %+v", result)
	}
}

func TestFileReadOutsideWorkspaceAllowedWhenWorkspaceOnlyDisabled(t *testing.T) {
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	outside := filepath.Join(root, "outside")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}
	outsideFile := filepath.Join(outside, "notes.txt")
	if err := os.WriteFile(outsideFile, []byte("outside"), 0o644); err != nil {
		t.Fatal(err)
	}

	policy := security.NewSecurityPolicy(workspace)
	policy.WorkspaceOnly = false
	tool := NewReadTool(policy)

	result, err := tool.Execute(context.Background(), readParams(t, map[string]any{"path": outsideFile}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "outside") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestFileReadMissingPathParam(t *testing.T) {
	tool := newTestReadTool(t, t.TempDir())
	if _, err := tool.Execute(context.Background(), readParams(t, map[string]any{})); err == nil {
		t.Error("expected an error for a missing path parameter")
	}
}
