// Package subagent provides the delegate tool: a way for the main agent to
// hand off a subtask to a differently-configured agent (a different
// provider/model pair) and get back a single response.
package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexuscore/agent-runtime/internal/agent"
	"github.com/nexuscore/agent-runtime/internal/agent/providers"
)

// DelegateTimeout bounds how long a single delegated call may run before the
// tool gives up and reports a timeout, so a misbehaving sub-agent can never
// block the parent conversation indefinitely.
const DelegateTimeout = 120 * time.Second

// AgentConfig describes one named delegation target: which provider/model
// to call, an optional system prompt, sampling temperature, and how many
// further delegation hops it may make.
type AgentConfig struct {
	Provider     string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxDepth     uint32
}

// DelegateTool delegates a subtask to a named agent with a different
// provider/model configuration. depth is immutable for the lifetime of the
// tool instance: it is set at construction and never mutated, so concurrent
// calls through the same instance always see the same recursion budget.
type DelegateTool struct {
	agents  map[string]AgentConfig
	lookup  func(providerName string) (providers.ChatProvider, bool)
	depth   uint32
}

// NewDelegateTool creates a top-level DelegateTool (depth 0). lookup
// resolves a configured provider name to a live ChatProvider.
func NewDelegateTool(agents map[string]AgentConfig, lookup func(string) (providers.ChatProvider, bool)) *DelegateTool {
	return &DelegateTool{agents: agents, lookup: lookup, depth: 0}
}

// WithDepth creates a DelegateTool for a sub-agent's own tool registry, with
// an incremented recursion depth. Construct a sub-agent's DelegateTool this
// way once sub-agents get their own tool registries, passing
// parent.depth+1.
func WithDepth(agents map[string]AgentConfig, lookup func(string) (providers.ChatProvider, bool), depth uint32) *DelegateTool {
	return &DelegateTool{agents: agents, lookup: lookup, depth: depth}
}

func (t *DelegateTool) Name() string { return "delegate" }

func (t *DelegateTool) Description() string {
	return "Delegate a subtask to a specialized agent. Use when a task benefits from a different " +
		"model (e.g. fast summarization, deep reasoning, code generation). The sub-agent runs a " +
		"single prompt and returns its response."
}

func (t *DelegateTool) Schema() json.RawMessage {
	names := make([]string, 0, len(t.agents))
	for name := range t.agents {
		names = append(names, name)
	}
	available := "(none configured)"
	if len(names) > 0 {
		available = strings.Join(names, ", ")
	}

	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"agent": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": fmt.Sprintf("Name of the agent to delegate to. Available: %s", available),
			},
			"prompt": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The task/prompt to send to the sub-agent",
			},
			"context": map[string]any{
				"type":        "string",
				"description": "Optional context to prepend (e.g. relevant code, prior findings)",
			},
		},
		"required": []string{"agent", "prompt"},
	}
	raw, _ := json.Marshal(schema)
	return raw
}

func (t *DelegateTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		Agent   string `json:"agent"`
		Prompt  string `json:"prompt"`
		Context string `json:"context"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return errResult(fmt.Sprintf("invalid input: %s", err)), nil
	}

	agentName := strings.TrimSpace(args.Agent)
	if agentName == "" {
		return errResult("'agent' parameter must not be empty"), nil
	}
	prompt := strings.TrimSpace(args.Prompt)
	if prompt == "" {
		return errResult("'prompt' parameter must not be empty"), nil
	}
	delegateContext := strings.TrimSpace(args.Context)

	cfg, ok := t.agents[agentName]
	if !ok {
		return errResult(fmt.Sprintf("unknown agent %q. Available agents: %s", agentName, availableNames(t.agents))), nil
	}

	if t.depth >= cfg.MaxDepth {
		return errResult(fmt.Sprintf(
			"delegation depth limit reached (%d/%d). Cannot delegate further to prevent infinite loops.",
			t.depth, cfg.MaxDepth,
		)), nil
	}

	provider, ok := t.lookup(cfg.Provider)
	if !ok {
		return errResult(fmt.Sprintf("failed to resolve provider %q for agent %q", cfg.Provider, agentName)), nil
	}

	fullPrompt := prompt
	if delegateContext != "" {
		fullPrompt = fmt.Sprintf("[Context]\n%s\n\n[Task]\n%s", delegateContext, prompt)
	}

	callCtx, cancel := context.WithTimeout(ctx, DelegateTimeout)
	defer cancel()

	response, err := provider.ChatWithSystem(callCtx, cfg.SystemPrompt, fullPrompt, cfg.Model, cfg.Temperature)
	if err != nil {
		if callCtx.Err() != nil {
			return errResult(fmt.Sprintf("agent %q timed out after %s", agentName, DelegateTimeout)), nil
		}
		return errResult(fmt.Sprintf("agent %q failed: %s", agentName, err)), nil
	}

	return &agent.ToolResult{
		Content: fmt.Sprintf("[Agent %q (%s/%s)]\n%s", agentName, cfg.Provider, cfg.Model, response),
	}, nil
}

func availableNames(agents map[string]AgentConfig) string {
	if len(agents) == 0 {
		return "(none configured)"
	}
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func errResult(msg string) *agent.ToolResult {
	return &agent.ToolResult{Content: msg, IsError: true}
}
