package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolRegistry manages available tools with thread-safe registration and lookup.
// Tools are registered by canonical name and can be retrieved for execution
// during agent conversations. Construction is the only mutation point in
// normal operation; after startup the registry is read-mostly.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates a new empty tool registry ready for tool registration.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry by its name. If a tool with the same
// name already exists, it is replaced. Register rejects a tool whose schema
// does not describe a JSON object (the dispatcher only ever advertises
// function-call tool specs; see spec §6 on the wire shape).
func (r *ToolRegistry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool registry: cannot register nil tool")
	}
	if tool.Name() == "" {
		return fmt.Errorf("tool registry: tool name must not be empty")
	}
	if err := validateToolSchema(tool.Schema()); err != nil {
		return fmt.Errorf("tool registry: tool %q has invalid schema: %w", tool.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	return nil
}

var toolSchemaResourceSeq atomic.Uint64

// validateToolSchema checks that schema is itself a valid JSON-Schema
// document describing an object-shaped parameter set, rejecting anything
// that could not be advertised as a function-call tool spec to a
// native-tool-calling provider. Validation is delegated to jsonschema/v5
// rather than hand-checked, so malformed schemas (bad types, broken $refs,
// invalid keyword combinations) are caught the same way a provider's own
// strict schema validator would catch them.
func validateToolSchema(schema json.RawMessage) error {
	if len(schema) == 0 {
		// Tools built before schema advertisement existed (or that are never
		// offered to a native-tool-calling provider) may omit a schema.
		return nil
	}

	url := fmt.Sprintf("tool-schema-%d.json", toolSchemaResourceSeq.Add(1))
	compiled, err := jsonschema.CompileString(url, string(schema))
	if err != nil {
		return fmt.Errorf("not a valid JSON Schema document: %w", err)
	}
	if compiled.Types != nil && len(compiled.Types) > 0 {
		ok := false
		for _, t := range compiled.Types {
			if t == "object" {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("schema type must be %q, got %v", "object", compiled.Types)
		}
	}
	return nil
}

// Unregister removes a tool from the registry by name.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by canonical name and a boolean indicating if it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Tool parameter limits to prevent resource exhaustion.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// Execute runs a tool by name with the given JSON parameters. It never lets
// a tool's own panics or errors escape across the dispatch boundary: lookup
// failures, oversized input, and tool-reported errors all come back as a
// structured ToolResult with IsError set, never as a returned error.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &ToolResult{
			Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength),
			IsError: true,
		}, nil
	}

	if len(params) > MaxToolParamsSize {
		return &ToolResult{
			Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize),
			IsError: true,
		}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{
			Content: "tool not found: " + name,
			IsError: true,
		}, nil
	}
	return tool.Execute(ctx, params)
}

// AsLLMTools returns all registered tools as a slice for advertising to LLM
// providers that support native tool-calling.
func (r *ToolRegistry) AsLLMTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// Names returns the canonical names of every registered tool, for diagnostics
// and for building the "available agents" style hints some tools advertise
// in their own schema description.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
